package noteservice

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/starford/secondbrain/internal/apperr"
	"github.com/starford/secondbrain/internal/models"
	"github.com/starford/secondbrain/internal/testutil"
)

type recorder struct {
	mu    sync.Mutex
	kinds []string
}

func (r *recorder) PublishNoteEvent(kind, _, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, kind)
}

func setup(t *testing.T) (*Service, *recorder) {
	t.Helper()
	rec := &recorder{}
	return NewService(testutil.TestDB(t), rec), rec
}

func intPtr(v int) *int { return &v }

func TestCreateOrUpdateByPathTwiceYieldsVersionTwo(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	path := "71-pets/71.01-rex.md"

	first, action, err := svc.CreateOrUpdateByPath(ctx, "71.01", path, "Rex", "good dog")
	if err != nil {
		t.Fatal(err)
	}
	if action != models.ActionCreated || first.Version != 1 {
		t.Fatalf("first: action=%s version=%d", action, first.Version)
	}

	second, action, err := svc.CreateOrUpdateByPath(ctx, "71.01", path, "Rex", "very good dog")
	if err != nil {
		t.Fatal(err)
	}
	if action != models.ActionUpdated || second.Version != 2 || second.ID != first.ID {
		t.Fatalf("second: action=%s version=%d id=%s", action, second.Version, second.ID)
	}

	all, err := svc.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 || all[0].Content != "very good dog" {
		t.Errorf("notes = %+v", all)
	}
}

func TestAppend(t *testing.T) {
	svc, rec := setup(t)
	ctx := context.Background()
	n, err := svc.Create(ctx, CreateInput{CategoryID: "41.01", Title: "Watchlist", Content: "- Heat"})
	if err != nil {
		t.Fatal(err)
	}
	if n.Path != "41-movies/41.01-watchlist.md" {
		t.Errorf("derived path = %s", n.Path)
	}

	got, err := svc.Append(ctx, n.ID, "- Alien")
	if err != nil {
		t.Fatal(err)
	}
	if got.Content != "- Heat\n\n- Alien" || got.Version != 2 {
		t.Errorf("append: content=%q version=%d", got.Content, got.Version)
	}

	if _, err := svc.Append(ctx, "missing", "x"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("append missing: %v", err)
	}
	if len(rec.kinds) != 2 || rec.kinds[0] != "created" || rec.kinds[1] != "appended" {
		t.Errorf("published = %v", rec.kinds)
	}
}

func TestCreateRejectsExistingPathAndBadID(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	in := CreateInput{CategoryID: "43.01", Path: "43-books/43.01-dune.md", Title: "Dune"}
	if _, err := svc.Create(ctx, in); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Create(ctx, in); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("duplicate create: %v", err)
	}
	if _, err := svc.Create(ctx, CreateInput{CategoryID: "43", Title: "x"}); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("bad jdId: %v", err)
	}
}

func TestUpdatePartial(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	n, err := svc.Create(ctx, CreateInput{CategoryID: "82.01", Title: "Goals", Content: "run"})
	if err != nil {
		t.Fatal(err)
	}
	content := "run a marathon"
	got, err := svc.Update(ctx, n.ID, UpdateInput{Content: &content})
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Goals" || got.Content != content || got.Version != 2 {
		t.Errorf("updated = %+v", got)
	}

	if _, err := svc.Update(ctx, n.ID, UpdateInput{Content: &content, ExpectedVersion: 1}); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("stale update: %v", err)
	}
}

func TestUpsertStaleVersionConflicts(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	path := "31-family/31.01-mom.md"

	res, err := svc.Upsert(ctx, UpsertInput{Path: path, CategoryID: "31.01", Title: "Mom", Content: "v1"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusCreated || res.CurrentVersion != 1 {
		t.Fatalf("create: %+v", res)
	}

	res, err = svc.Upsert(ctx, UpsertInput{Path: path, Title: "Mom", Content: "v2", ExpectedVersion: intPtr(1)})
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusUpdated || res.CurrentVersion != 2 || res.Note.CategoryID != "31.01" {
		t.Fatalf("update: %+v", res)
	}

	res, err = svc.Upsert(ctx, UpsertInput{Path: path, Title: "Mom", Content: "stale", ExpectedVersion: intPtr(1)})
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusConflict || res.CurrentVersion != 2 || *res.ExpectedVersion != 1 {
		t.Fatalf("conflict: %+v", res)
	}

	stored, err := svc.GetByPath(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Content != "v2" || stored.Version != 2 {
		t.Errorf("conflict mutated note: %+v", stored)
	}
}

func TestUpsertWithoutExpectedVersionOverwrites(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	if _, err := svc.Upsert(ctx, UpsertInput{Path: "/64-random/64.01-x.md", CategoryID: "64.01", Title: "x"}); err != nil {
		t.Fatal(err)
	}
	res, err := svc.Upsert(ctx, UpsertInput{Path: "64-random/64.01-x.md", Title: "x", Content: "forced"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusUpdated || res.Note.Content != "forced" {
		t.Errorf("forced upsert: %+v", res)
	}
	if _, err := svc.Upsert(ctx, UpsertInput{Path: "new.md", Title: "x"}); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("new note without jdId: %v", err)
	}
}

func TestByAreaSearchDelete(t *testing.T) {
	svc, rec := setup(t)
	ctx := context.Background()
	rex, _ := svc.Create(ctx, CreateInput{CategoryID: "71.01", Title: "Rex", Content: "golden retriever"})
	if _, err := svc.Create(ctx, CreateInput{CategoryID: "72.01", Title: "Car", Content: "oil change"}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Create(ctx, CreateInput{CategoryID: "31.01", Title: "Mom", Content: "retriever allergy"}); err != nil {
		t.Fatal(err)
	}

	home, err := svc.ByArea(ctx, "7")
	if err != nil {
		t.Fatal(err)
	}
	if len(home) != 2 {
		t.Errorf("area 7 notes = %d", len(home))
	}
	if _, err := svc.ByArea(ctx, " "); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("empty area: %v", err)
	}

	hits, err := svc.Search(ctx, "retriever", "7")
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].Note.ID != rex.ID {
		t.Errorf("hits = %+v", hits)
	}
	if hits, _ := svc.Search(ctx, "  ", ""); len(hits) != 0 {
		t.Errorf("blank query hits = %d", len(hits))
	}

	if err := svc.DeleteByPath(ctx, rex.Path); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Get(ctx, rex.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("get deleted: %v", err)
	}
	if rec.kinds[len(rec.kinds)-1] != "deleted" {
		t.Errorf("last published = %s", rec.kinds[len(rec.kinds)-1])
	}
}
