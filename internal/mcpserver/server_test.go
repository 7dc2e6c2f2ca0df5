package mcpserver

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/secondbrain/internal/apperr"
	"github.com/starford/secondbrain/internal/ask"
	"github.com/starford/secondbrain/internal/attachments"
	"github.com/starford/secondbrain/internal/captures"
	"github.com/starford/secondbrain/internal/db"
	"github.com/starford/secondbrain/internal/events"
	"github.com/starford/secondbrain/internal/llm"
	"github.com/starford/secondbrain/internal/models"
	"github.com/starford/secondbrain/internal/noteservice"
	"github.com/starford/secondbrain/internal/testutil"
)

type fakeModel struct {
	reply string
	err   error
}

func (f fakeModel) Complete(context.Context, llm.Request) (string, error) {
	return f.reply, f.err
}

func testServer(t *testing.T, model llm.Completer) (*Server, *db.DB) {
	t.Helper()
	store := testutil.TestDB(t)
	files, err := attachments.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	srv := New("test", Deps{
		Notes:       noteservice.NewService(store, nil),
		Captures:    captures.NewService(store, nil),
		Ask:         ask.NewService(store, model, 256),
		Calendar:    events.NewCalendar(store, time.UTC),
		Attachments: files,
	})
	return srv, store
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error

	switch name {
	case "search_notes":
		result, err = srv.searchNotes(ctx, req)
	case "read_note":
		result, err = srv.readNote(ctx, req)
	case "list_area":
		result, err = srv.listArea(ctx, req)
	case "capture":
		result, err = srv.capture(ctx, req)
	case "capture_image":
		result, err = srv.captureImage(ctx, req)
	case "ask":
		result, err = srv.ask(ctx, req)
	case "upcoming_events":
		result, err = srv.upcomingEvents(ctx, req)
	case "get_taxonomy":
		result, err = srv.getTaxonomy(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func seedNote(t *testing.T, store *db.DB, id, path, title, content string) {
	t.Helper()
	n := &models.Note{CategoryID: id, Path: path, Title: title, Content: content}
	if err := store.InsertNote(context.Background(), n); err != nil {
		t.Fatal(err)
	}
}

func TestReadAndSearchNotes(t *testing.T) {
	srv, store := testServer(t, fakeModel{})
	seedNote(t, store, "61.01", "61-projects/61.01-garden.md", "Garden", "# Garden\n\nPlant tomatoes")

	r := callTool(t, srv, "read_note", map[string]interface{}{"path": "61-projects/61.01-garden.md"})
	if got := resultText(r); got != "# Garden\n\nPlant tomatoes" {
		t.Errorf("read result = %q", got)
	}

	r = callTool(t, srv, "search_notes", map[string]interface{}{"query": "tomatoes"})
	if got := resultText(r); !strings.Contains(got, "61.01-garden.md") {
		t.Errorf("search result = %q", got)
	}

	r = callTool(t, srv, "search_notes", map[string]interface{}{"query": "tomatoes", "prefix": "7"})
	if got := resultText(r); got != "no matching notes" {
		t.Errorf("prefixed search = %q", got)
	}
}

func TestReadNoteMissing(t *testing.T) {
	srv, _ := testServer(t, fakeModel{})
	r := callTool(t, srv, "read_note", map[string]interface{}{"path": "nope.md"})
	if !r.IsError {
		t.Error("expected error for missing note")
	}
}

func TestListArea(t *testing.T) {
	srv, store := testServer(t, fakeModel{})
	seedNote(t, store, "71.01", "71-pets/71.01-rex.md", "Rex", "dog")
	seedNote(t, store, "61.01", "61-projects/61.01-garden.md", "Garden", "plants")

	r := callTool(t, srv, "list_area", map[string]interface{}{"area": "7"})
	if got := resultText(r); got != "71.01 Rex (71-pets/71.01-rex.md)" {
		t.Errorf("list_area = %q", got)
	}
	r = callTool(t, srv, "list_area", map[string]interface{}{})
	if !r.IsError {
		t.Error("expected error without area")
	}
}

func TestCaptureTool(t *testing.T) {
	srv, store := testServer(t, fakeModel{})
	r := callTool(t, srv, "capture", map[string]interface{}{"text": "call the plumber"})
	if r.IsError || !strings.HasPrefix(resultText(r), "captured: ") {
		t.Fatalf("capture = %q", resultText(r))
	}
	pending, err := store.PendingCaptures(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].Text != "call the plumber" || pending[0].ContentType != models.ContentText {
		t.Errorf("pending = %+v", pending)
	}
}

func TestCaptureImageDataURI(t *testing.T) {
	srv, store := testServer(t, fakeModel{})
	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)

	r := callTool(t, srv, "capture_image", map[string]interface{}{"url": uri, "text": "whiteboard"})
	if r.IsError {
		t.Fatalf("capture_image error: %s", resultText(r))
	}
	pending, err := store.PendingCaptures(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending = %d", len(pending))
	}
	c := pending[0]
	if c.ContentType != models.ContentImage || c.Text != "whiteboard" || !strings.HasSuffix(c.FileRef, "-image.png") {
		t.Errorf("capture = %+v", c)
	}
	if _, err := srv.deps.Attachments.Resolve(c.FileRef); err != nil {
		t.Error(err)
	}
}

func TestCaptureImageRejects(t *testing.T) {
	srv, _ := testServer(t, fakeModel{})
	for _, u := range []string{
		"data:text/plain;base64,aGVsbG8=",
		"data:image/png,raw",
		"ftp://example.com/a.png",
		"http://127.0.0.1/a.png",
	} {
		r := callTool(t, srv, "capture_image", map[string]interface{}{"url": u})
		if !r.IsError {
			t.Errorf("capture_image(%q) should fail", u)
		}
	}
}

func TestAskTool(t *testing.T) {
	srv, store := testServer(t, fakeModel{reply: "Rex is a dog."})
	seedNote(t, store, "71.01", "71-pets/71.01-rex.md", "Rex", "Rex is a dog")

	r := callTool(t, srv, "ask", map[string]interface{}{"question": "Who is Rex?"})
	if got := resultText(r); got != "Rex is a dog.\n\n(sources: 1)" {
		t.Errorf("ask = %q", got)
	}
}

func TestAskToolNotConfigured(t *testing.T) {
	srv, _ := testServer(t, fakeModel{err: apperr.ErrNotConfigured})
	r := callTool(t, srv, "ask", map[string]interface{}{"question": "anything"})
	if !r.IsError || resultText(r) != "API key not configured" {
		t.Errorf("ask = %q", resultText(r))
	}
}

func TestUpcomingEvents(t *testing.T) {
	srv, store := testServer(t, fakeModel{})
	soon := time.Now().UTC().AddDate(0, 0, 2).Format("2006-01-02")
	later := time.Now().UTC().AddDate(0, 0, 40).Format("2006-01-02")
	for _, e := range []*models.Event{
		{Title: "Dentist", StartDate: soon, AllDay: true, Location: "Main St", Category: events.CategoryAppointments},
		{Title: "Trip", StartDate: later, AllDay: true, Category: events.CategoryTravel},
	} {
		if err := store.InsertEvent(context.Background(), e); err != nil {
			t.Fatal(err)
		}
	}

	r := callTool(t, srv, "upcoming_events", map[string]interface{}{})
	if got := resultText(r); got != soon+" Dentist @ Main St [Appointments]" {
		t.Errorf("upcoming = %q", got)
	}
	r = callTool(t, srv, "upcoming_events", map[string]interface{}{"days": 60})
	if got := resultText(r); !strings.Contains(got, "Trip") {
		t.Errorf("upcoming 60 = %q", got)
	}
}

func TestTaxonomy(t *testing.T) {
	srv, _ := testServer(t, fakeModel{})
	got := resultText(callTool(t, srv, "get_taxonomy", nil))
	for _, want := range []string{"Johnny.Decimal", "📅 Event:", "Archive"} {
		if !strings.Contains(got, want) {
			t.Errorf("taxonomy missing %q", want)
		}
	}

	contents, err := srv.readTaxonomyResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil || len(contents) != 1 {
		t.Fatalf("resource = %v, %v", contents, err)
	}
	if tc, ok := contents[0].(mcp.TextResourceContents); !ok || tc.URI != TaxonomyURI {
		t.Errorf("resource contents = %+v", contents[0])
	}
}
