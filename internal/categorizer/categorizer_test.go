package categorizer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/starford/secondbrain/internal/apperr"
	"github.com/starford/secondbrain/internal/llm"
	"github.com/starford/secondbrain/internal/models"
	"github.com/starford/secondbrain/internal/testutil"
)

type fakeModel struct {
	CompleteFunc func(ctx context.Context, req llm.Request) (string, error)
	last         llm.Request
}

func (f *fakeModel) Complete(ctx context.Context, req llm.Request) (string, error) {
	f.last = req
	return f.CompleteFunc(ctx, req)
}

type staticNotes []models.Note

func (s staticNotes) ListNotes(context.Context) ([]models.Note, error) { return s, nil }

type fakeImages struct {
	img *llm.Image
	err error
}

func (f fakeImages) Load(context.Context, string) (*llm.Image, error) { return f.img, f.err }

func reply(s string) *fakeModel {
	return &fakeModel{CompleteFunc: func(context.Context, llm.Request) (string, error) { return s, nil }}
}

func TestParseDecisionFull(t *testing.T) {
	d := ParseDecision("Sure! ```json\n"+`{"action":"append","existingNoteId":"n42","area":"41","jdId":"41.01",`+
		`"title":"Watchlist","content":"- Alien","reasoning":"movie list exists"}`+"\n```", "watch Alien")
	if d.Fallback {
		t.Fatal("unexpected fallback")
	}
	if d.Action != ActionAppend || d.TargetNoteID != "n42" {
		t.Errorf("action = %s target = %s", d.Action, d.TargetNoteID)
	}
	if d.CategoryID != "41.01" || d.AreaName != "Media" {
		t.Errorf("category = %s area = %s", d.CategoryID, d.AreaName)
	}
	if d.Title != "Watchlist" || d.Content != "- Alien" || d.Reasoning != "movie list exists" {
		t.Errorf("decision = %+v", d)
	}
}

func TestParseDecisionDefaults(t *testing.T) {
	d := ParseDecision(`{"area": 7}`, "Feed the cat")
	if d.Action != ActionCreate {
		t.Errorf("action = %s", d.Action)
	}
	if d.CategoryID != "71.01" || d.AreaName != "Home" {
		t.Errorf("category = %s area = %s", d.CategoryID, d.AreaName)
	}
	if d.Title != "Untitled Note" {
		t.Errorf("title = %q", d.Title)
	}
	if d.Content != "# Untitled Note\n\nFeed the cat" {
		t.Errorf("content = %q", d.Content)
	}
	if d.Reasoning != "AI suggestion" {
		t.Errorf("reasoning = %q", d.Reasoning)
	}
}

func TestParseDecisionUnknownAreaUsesIdeas(t *testing.T) {
	d := ParseDecision(`{"area":"x","jdId":"bogus","title":"T","content":"c"}`, "")
	if d.CategoryID != "61.01" || d.AreaName != "Ideas" {
		t.Errorf("category = %s area = %s", d.CategoryID, d.AreaName)
	}
}

func TestParseDecisionAppendWithoutTargetCreates(t *testing.T) {
	d := ParseDecision(`{"action":"append","jdId":"31.01","title":"Mom"}`, "")
	if d.Action != ActionCreate || d.TargetNoteID != "" {
		t.Errorf("decision = %+v", d)
	}
}

func TestParseDecisionNoJSONFallsBack(t *testing.T) {
	text := "Buy a new\nbike helmet before the spring season starts, maybe the red one"
	for _, r := range []string{"I am not sure.", "{not json}", ""} {
		d := ParseDecision(r, text)
		if !d.Fallback {
			t.Errorf("reply %q: expected fallback", r)
			continue
		}
		if d.CategoryID != "61.01" || d.AreaName != "Ideas" {
			t.Errorf("fallback category = %s", d.CategoryID)
		}
		if d.Reasoning != FallbackReasoning {
			t.Errorf("reasoning = %q", d.Reasoning)
		}
		if d.Title != "Buy a new bike helmet before the spring season sta" {
			t.Errorf("title = %q", d.Title)
		}
		if d.Content != "# Note\n\n"+text {
			t.Errorf("content = %q", d.Content)
		}
	}
	if d := Fallback("  \n "); d.Title != "New Note" {
		t.Errorf("empty fallback title = %q", d.Title)
	}
}

func TestSystemPromptEmbedsCorpusSorted(t *testing.T) {
	p := SystemPrompt([]models.Note{
		{ID: "b", CategoryID: "71.01", Path: "71-pets/71.01-rex.md", Title: "Rex", Content: "good dog"},
		{ID: "a", CategoryID: "31.01", Path: "31-family/31.01-mom.md", Title: "Mom", Content: "birthday"},
	})
	mom := strings.Index(p, "=== NOTE [a] ===")
	rex := strings.Index(p, "=== NOTE [b] ===")
	if mom < 0 || rex < 0 || mom > rex {
		t.Errorf("notes missing or out of order (mom=%d rex=%d)", mom, rex)
	}
	if !strings.Contains(p, "JD ID: 71.01\nPath: 71-pets/71.01-rex.md\nTitle: Rex\n\ngood dog\n=== END NOTE ===") {
		t.Errorf("note block malformed")
	}
	if !strings.Contains(p, "📅 Event: Title | YYYY-MM-DD | HH:MM | Location") {
		t.Errorf("event syntax missing")
	}
	if strings.Contains(p, "(No notes yet)") {
		t.Errorf("empty marker with notes present")
	}
	if !strings.Contains(SystemPrompt(nil), "(No notes yet)") {
		t.Errorf("empty corpus marker missing")
	}
}

func TestUserPrompt(t *testing.T) {
	c := &models.Capture{Source: "web", ContentType: "image"}
	p := UserPrompt(c, ImageUnavailable)
	if !strings.Contains(p, "[No text content]") {
		t.Errorf("missing empty-text marker")
	}
	if !strings.Contains(p, "could not be loaded") {
		t.Errorf("missing unavailable-image note")
	}
	if strings.Contains(UserPrompt(c, ImageNone), "could not be loaded") {
		t.Errorf("image note without image")
	}
}

func TestCategorizeAttachesImage(t *testing.T) {
	model := reply(`{"action":"create","area":"4","jdId":"43.01","title":"Dune","content":"# Dune","reasoning":"book"}`)
	img := &llm.Image{MediaType: "image/png", Data: []byte("x")}
	e := NewEngine(model, staticNotes{{ID: "n1", CategoryID: "43.02"}}, fakeImages{img: img}, 2048, testutil.Logger())

	out, err := e.Categorize(context.Background(), &models.Capture{ID: "c1", Text: "cover photo", FileRef: "dune.png"})
	if err != nil {
		t.Fatal(err)
	}
	if model.last.Image != img || model.last.MaxTokens != 2048 {
		t.Errorf("request = %+v", model.last)
	}
	if !out.Debug.ImageAttached || out.Debug.NotesInContext != 1 || out.Debug.RawResponse == "" {
		t.Errorf("debug = %+v", out.Debug)
	}
	if out.Decision.CategoryID != "43.01" {
		t.Errorf("decision = %+v", out.Decision)
	}
}

func TestCategorizeImageFailureIsNotFatal(t *testing.T) {
	model := reply(`{"jdId":"64.01","title":"x","content":"y"}`)
	e := NewEngine(model, staticNotes{}, fakeImages{err: errors.New("404")}, 2048, testutil.Logger())

	out, err := e.Categorize(context.Background(), &models.Capture{ID: "c1", FileRef: "gone.png"})
	if err != nil {
		t.Fatal(err)
	}
	if out.Debug.ImageAttached || model.last.Image != nil {
		t.Errorf("image should not be attached")
	}
	if !strings.Contains(model.last.User, "could not be loaded") {
		t.Errorf("prompt should mention missing image")
	}
}

func TestCategorizeTransportError(t *testing.T) {
	model := &fakeModel{CompleteFunc: func(context.Context, llm.Request) (string, error) {
		return "", apperr.ErrNotConfigured
	}}
	e := NewEngine(model, staticNotes{}, nil, 2048, testutil.Logger())
	_, err := e.Categorize(context.Background(), &models.Capture{ID: "c1", Text: "x"})
	if !errors.Is(err, apperr.ErrNotConfigured) {
		t.Errorf("err = %v", err)
	}
}
