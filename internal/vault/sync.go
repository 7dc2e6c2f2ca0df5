package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/starford/secondbrain/internal/checksum"
	"github.com/starford/secondbrain/internal/jd"
	"github.com/starford/secondbrain/internal/models"
	"github.com/starford/secondbrain/internal/noteservice"
)

const conflictMarker = ".conflict-"

// Notes is the note store the vault syncs against.
type Notes interface {
	List(ctx context.Context) ([]models.Note, error)
	Upsert(ctx context.Context, in noteservice.UpsertInput) (*noteservice.UpsertResult, error)
}

// Report summarises one push or pull.
type Report struct {
	Created   int      `json:"created"`
	Updated   int      `json:"updated"`
	Skipped   int      `json:"skipped"`
	Removed   int      `json:"removed"`
	Conflicts []string `json:"conflicts,omitempty"`
	Errors    int      `json:"errors"`
}

// Syncer pushes local edits to the note store and pulls notes into the vault.
// Calls are serialized so the state file is never written concurrently.
type Syncer struct {
	mu     sync.Mutex
	files  Provider
	notes  Notes
	logger *slog.Logger
	now    func() time.Time
}

// NewSyncer creates a Syncer.
func NewSyncer(files Provider, notes Notes, logger *slog.Logger) *Syncer {
	return &Syncer{files: files, notes: notes, logger: logger, now: time.Now}
}

// Push uploads vault files, all of them when paths is empty. Files whose checksum
// matches the last sync are skipped. Unless force is set, the upsert carries the
// version recorded at the last sync; on conflict the local copy is saved next to
// the file as <name>.conflict-YYYYMMDD-HHMMSS.md and the file is left alone.
func (s *Syncer) Push(ctx context.Context, force bool, paths ...string) (*Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := loadState(s.files)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		files, err := s.files.List("")
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			paths = append(paths, f.Path)
		}
	}

	rep := &Report{}
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		if !Syncable(p) {
			continue
		}
		if err := s.pushFile(ctx, st, p, force, rep); err != nil {
			rep.Errors++
			s.logger.Warn("vault: push failed", slog.String("path", p), slog.String("error", err.Error()))
		}
	}

	if err := saveState(s.files, st, s.now().UTC()); err != nil {
		return rep, err
	}
	s.logger.Info("vault: push done",
		slog.Int("created", rep.Created),
		slog.Int("updated", rep.Updated),
		slog.Int("skipped", rep.Skipped),
		slog.Int("conflicts", len(rep.Conflicts)))
	return rep, nil
}

func (s *Syncer) pushFile(ctx context.Context, st *State, p string, force bool, rep *Report) error {
	data, err := s.files.Read(p)
	if err != nil {
		return err
	}
	sum := checksum.Sum(data)
	prev, known := st.Notes[p]
	if known && !force && prev.Checksum == sum {
		rep.Skipped++
		return nil
	}

	doc := Parse(data)
	in := noteservice.UpsertInput{
		Path:       p,
		CategoryID: doc.CategoryID(p),
		Title:      doc.Title(p),
		Content:    doc.Body,
	}
	if !jd.ValidID(in.CategoryID) {
		return fmt.Errorf("invalid jdId %q", in.CategoryID)
	}
	if known && !force {
		v := prev.Version
		in.ExpectedVersion = &v
	}

	res, err := s.notes.Upsert(ctx, in)
	if err != nil {
		return err
	}
	switch res.Status {
	case noteservice.StatusConflict:
		backup := conflictPath(p, s.now())
		if err := s.files.Write(backup, data); err != nil {
			return fmt.Errorf("write conflict copy: %w", err)
		}
		rep.Conflicts = append(rep.Conflicts, backup)
		s.logger.Warn("vault: conflict",
			slog.String("path", p),
			slog.Int("expected_version", prev.Version),
			slog.Int("current_version", res.CurrentVersion),
			slog.String("backup", backup))
		return nil
	case noteservice.StatusCreated:
		rep.Created++
	default:
		rep.Updated++
	}
	st.Notes[p] = Entry{Version: res.Note.Version, Checksum: sum, SyncedAt: s.now().UTC()}
	return nil
}

// Pull writes every note into the vault with fresh frontmatter. Notes whose
// version is not newer than the last sync are skipped unless force is set, and
// files pulled earlier whose note no longer exists are removed.
func (s *Syncer) Pull(ctx context.Context, force bool) (*Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := loadState(s.files)
	if err != nil {
		return nil, err
	}
	notes, err := s.notes.List(ctx)
	if err != nil {
		return nil, err
	}

	rep := &Report{}
	next := &State{Notes: make(map[string]Entry, len(notes))}
	remote := make(map[string]struct{}, len(notes))
	for _, n := range notes {
		remote[n.Path] = struct{}{}
		prev, known := st.Notes[n.Path]
		if known && !force && prev.Version >= n.Version && s.exists(n.Path) {
			next.Notes[n.Path] = prev
			rep.Skipped++
			continue
		}

		data, err := Render(n, s.now())
		if err == nil {
			err = s.files.Write(n.Path, data)
		}
		if err != nil {
			rep.Errors++
			s.logger.Warn("vault: pull failed", slog.String("path", n.Path), slog.String("error", err.Error()))
			if known {
				next.Notes[n.Path] = prev
			}
			continue
		}
		if known {
			rep.Updated++
		} else {
			rep.Created++
		}
		next.Notes[n.Path] = Entry{Version: n.Version, Checksum: checksum.Sum(data), SyncedAt: s.now().UTC()}
	}

	for p := range st.Notes {
		if _, ok := remote[p]; ok {
			continue
		}
		if err := s.files.Delete(p); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				rep.Errors++
				s.logger.Warn("vault: remove orphan failed", slog.String("path", p), slog.String("error", err.Error()))
			}
			continue
		}
		rep.Removed++
	}

	if err := saveState(s.files, next, s.now().UTC()); err != nil {
		return rep, err
	}
	s.logger.Info("vault: pull done",
		slog.Int("created", rep.Created),
		slog.Int("updated", rep.Updated),
		slog.Int("skipped", rep.Skipped),
		slog.Int("removed", rep.Removed))
	return rep, nil
}

func (s *Syncer) exists(p string) bool {
	_, err := s.files.Read(p)
	return err == nil
}

// Syncable reports whether a vault path is a note file rather than a conflict copy.
func Syncable(p string) bool {
	return strings.HasSuffix(p, ".md") && !strings.Contains(p, conflictMarker)
}

func conflictPath(p string, t time.Time) string {
	return strings.TrimSuffix(p, ".md") + conflictMarker + t.Format("20060102-150405") + ".md"
}
