package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/starford/secondbrain/internal/categorizer"
	"github.com/starford/secondbrain/internal/db"
	"github.com/starford/secondbrain/internal/llm"
	"github.com/starford/secondbrain/internal/models"
	"github.com/starford/secondbrain/internal/noteservice"
	"github.com/starford/secondbrain/internal/sse"
	"github.com/starford/secondbrain/internal/testutil"
)

type fakeModel struct {
	CompleteFunc func(ctx context.Context, req llm.Request) (string, error)
}

func (f fakeModel) Complete(ctx context.Context, req llm.Request) (string, error) {
	return f.CompleteFunc(ctx, req)
}

func replying(s string) fakeModel {
	return fakeModel{CompleteFunc: func(context.Context, llm.Request) (string, error) { return s, nil }}
}

type events []sse.Event

func (e *events) Publish(ev sse.Event) { *e = append(*e, ev) }

func setup(t *testing.T, model llm.Completer) (*Pipeline, *db.DB, *events) {
	t.Helper()
	store := testutil.TestDB(t)
	notes := noteservice.NewService(store, nil)
	engine := categorizer.NewEngine(model, store, nil, 2048, testutil.Logger())
	pub := &events{}
	return New(store, engine, notes, pub, testutil.Logger()), store, pub
}

func capture(t *testing.T, store *db.DB, text string) *models.Capture {
	t.Helper()
	c := &models.Capture{Source: models.SourceWeb, ContentType: models.ContentText, Text: text}
	if err := store.CreateCapture(context.Background(), c); err != nil {
		t.Fatal(err)
	}
	return c
}

func TestProcessNextNothingPending(t *testing.T) {
	p, _, _ := setup(t, replying("{}"))
	res := p.ProcessNext(context.Background())
	if res.Processed || res.Reason != ReasonNoPending {
		t.Errorf("result = %+v", res)
	}
}

func TestProcessNextCreatesNote(t *testing.T) {
	p, store, pub := setup(t, replying(`Here you go: {"action":"create","area":"7","jdId":"71.01",
		"title":"Rex","content":"# Rex\n\nGolden retriever","reasoning":"a pet"}`))
	ctx := context.Background()
	c := capture(t, store, "our dog Rex is a golden retriever")

	res := p.ProcessNext(ctx)
	if !res.Processed || res.Action != models.ActionCreated || res.NotePath != "71-pets/71.01-rex.md" {
		t.Fatalf("result = %+v", res)
	}

	got, err := store.GetCapture(ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.CaptureStatusDone {
		t.Errorf("status = %s", got.Status)
	}

	log, err := store.RecentActivity(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(log) != 1 || log[0].CategoryLabel != "Home" || log[0].Reasoning != "a pet" || log[0].CaptureID != c.ID {
		t.Fatalf("activity = %+v", log)
	}
	if log[0].Debug == nil || log[0].Debug.CaptureText != c.Text {
		t.Errorf("debug = %+v", log[0].Debug)
	}
	if len(*pub) != 1 || (*pub)[0].Type != sse.TypeCaptureProcessed {
		t.Errorf("published = %+v", *pub)
	}
}

func TestProcessNextFallbackWhenNoJSON(t *testing.T) {
	p, store, _ := setup(t, replying("Sorry, I cannot help with that."))
	ctx := context.Background()
	capture(t, store, "random musing")

	res := p.ProcessNext(ctx)
	if !res.Processed || !res.Fallback {
		t.Fatalf("result = %+v", res)
	}
	n, err := store.GetNote(ctx, res.NoteID)
	if err != nil {
		t.Fatal(err)
	}
	if n.CategoryID != "61.01" || n.Content != "# Note\n\nrandom musing" {
		t.Errorf("note = %+v", n)
	}
	log, _ := store.RecentActivity(ctx, 1)
	if len(log) != 1 || log[0].Reasoning != categorizer.FallbackReasoning {
		t.Errorf("activity = %+v", log)
	}
}

func TestProcessNextFilesCaptureWithoutText(t *testing.T) {
	p, store, _ := setup(t, replying("no idea"))
	ctx := context.Background()
	c := &models.Capture{Source: models.SourceWeb, ContentType: "image+text"}
	if err := store.CreateCapture(ctx, c); err != nil {
		t.Fatal(err)
	}

	res := p.ProcessNext(ctx)
	if !res.Processed || !res.Fallback {
		t.Fatalf("result = %+v", res)
	}
	n, err := store.GetNote(ctx, res.NoteID)
	if err != nil {
		t.Fatal(err)
	}
	if n.Title != "New Note" || n.CategoryID != "61.01" {
		t.Errorf("note = %+v", n)
	}
	got, _ := store.GetCapture(ctx, c.ID)
	if got.Status != models.CaptureStatusDone {
		t.Errorf("status = %s", got.Status)
	}
}

func TestProcessNextTransportFailureLeavesPending(t *testing.T) {
	p, store, _ := setup(t, fakeModel{CompleteFunc: func(context.Context, llm.Request) (string, error) {
		return "", errors.New("connection refused")
	}})
	ctx := context.Background()
	c := capture(t, store, "retry me")

	res := p.ProcessNext(ctx)
	if res.Processed || res.Error == "" || res.CaptureID != c.ID {
		t.Fatalf("result = %+v", res)
	}
	got, _ := store.GetCapture(ctx, c.ID)
	if got.Status != models.CaptureStatusPending {
		t.Errorf("status = %s, want pending", got.Status)
	}
	if log, _ := store.RecentActivity(ctx, 10); len(log) != 0 {
		t.Errorf("activity written on failure: %+v", log)
	}
}

func TestProcessNextAppendAndMissingTarget(t *testing.T) {
	var reply string
	p, store, _ := setup(t, fakeModel{CompleteFunc: func(context.Context, llm.Request) (string, error) { return reply, nil }})
	ctx := context.Background()

	existing := &models.Note{CategoryID: "41.01", Path: "41-movies/41.01-watchlist.md", Title: "Watchlist", Content: "- Heat"}
	if err := store.InsertNote(ctx, existing); err != nil {
		t.Fatal(err)
	}

	reply = `{"action":"append","existingNoteId":"` + existing.ID + `","jdId":"41.01","title":"Watchlist","content":"- Alien"}`
	capture(t, store, "watch Alien")
	res := p.ProcessNext(ctx)
	if res.Action != models.ActionAppended || res.NoteID != existing.ID {
		t.Fatalf("append result = %+v", res)
	}
	n, _ := store.GetNote(ctx, existing.ID)
	if n.Content != "- Heat\n\n- Alien" || n.Version != 2 {
		t.Errorf("appended note = %+v", n)
	}

	reply = `{"action":"append","existingNoteId":"gone","jdId":"42.01","title":"Shows","content":"- Severance"}`
	capture(t, store, "watch Severance")
	res = p.ProcessNext(ctx)
	if res.Action != models.ActionCreated || res.NotePath != "42-tv/42.01-shows.md" {
		t.Errorf("fallback-to-create result = %+v", res)
	}
}
