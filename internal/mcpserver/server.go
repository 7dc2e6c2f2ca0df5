// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the second brain to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/secondbrain/internal/apperr"
	"github.com/starford/secondbrain/internal/ask"
	"github.com/starford/secondbrain/internal/attachments"
	"github.com/starford/secondbrain/internal/captures"
	"github.com/starford/secondbrain/internal/events"
	"github.com/starford/secondbrain/internal/models"
	"github.com/starford/secondbrain/internal/noteservice"
)

// TaxonomyURI is the resource URI of the taxonomy guide.
const TaxonomyURI = "secondbrain://taxonomy"

// Deps are the services the tools call into.
type Deps struct {
	Notes       *noteservice.Service
	Captures    *captures.Service
	Ask         *ask.Service
	Calendar    *events.Calendar
	Attachments *attachments.Store
}

// Server wraps the MCP server with the second brain tools.
type Server struct {
	mcp  *server.MCPServer
	deps Deps
}

// New creates a new MCP server with all tools registered.
func New(version string, deps Deps) *Server {
	s := &Server{deps: deps}

	s.mcp = server.NewMCPServer(
		"Second Brain",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Full-text search through note titles and content. Returns at most 10 hits."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithString("prefix", mcp.Description("Optional category ID prefix, e.g. 6 or 61")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the full Markdown content of a note."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Note path, e.g. 61-projects/61.01-garden.md")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("list_area",
		mcp.WithDescription("List the notes filed under one area of the taxonomy."),
		mcp.WithString("area", mcp.Required(), mcp.Description("Area digit 0-9")),
	), s.listArea)

	s.mcp.AddTool(mcp.NewTool("capture",
		mcp.WithDescription("Save a thought for later filing. It is categorized on the next processing pass."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Text to capture")),
	), s.capture)

	s.mcp.AddTool(mcp.NewTool("capture_image",
		mcp.WithDescription("Save an image for later filing. Accepts an http(s) URL or a base64 data URI."),
		mcp.WithString("url", mcp.Required(), mcp.Description("Image URL or data:image/...;base64,... URI")),
		mcp.WithString("text", mcp.Description("Optional text to file with the image")),
	), s.captureImage)

	s.mcp.AddTool(mcp.NewTool("ask",
		mcp.WithDescription("Answer a question from the notes in the knowledge base."),
		mcp.WithString("question", mcp.Required(), mcp.Description("Question to answer")),
	), s.ask)

	s.mcp.AddTool(mcp.NewTool("upcoming_events",
		mcp.WithDescription("List calendar events from today through the next N days."),
		mcp.WithNumber("days", mcp.Description(fmt.Sprintf("Number of days ahead (default %d)", events.DefaultUpcomingDays))),
	), s.upcomingEvents)

	s.mcp.AddTool(mcp.NewTool("get_taxonomy",
		mcp.WithDescription("Returns the Johnny.Decimal areas and categories notes are filed under, "+
			"and the event line syntax picked up from note text."),
	), s.getTaxonomy)

	s.mcp.AddResource(
		mcp.NewResource(TaxonomyURI, "Taxonomy",
			mcp.WithResourceDescription("Johnny.Decimal areas, categories and event syntax."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readTaxonomyResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	hits, err := s.deps.Notes.Search(ctx, query, req.GetString("prefix", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(hits) == 0 {
		return mcp.NewToolResultText("no matching notes"), nil
	}
	out, _ := json.MarshalIndent(hits, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.deps.Notes.GetByPath(ctx, path)
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(n.Content), nil
}

func (s *Server) listArea(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	area, err := req.RequireString("area")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	notes, err := s.deps.Notes.ByArea(ctx, area)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(notes) == 0 {
		return mcp.NewToolResultText("no notes in area " + area), nil
	}
	return mcp.NewToolResultText(formatNoteList(notes)), nil
}

func formatNoteList(notes []models.Note) string {
	lines := make([]string, len(notes))
	for i, n := range notes {
		lines[i] = fmt.Sprintf("%s %s (%s)", n.CategoryID, n.Title, n.Path)
	}
	return strings.Join(lines, "\n")
}

func (s *Server) capture(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	c, err := s.deps.Captures.Create(ctx, captures.Input{ContentType: models.ContentText, Text: text})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("captured: " + c.ID), nil
}

func (s *Server) ask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	a, err := s.deps.Ask.Ask(ctx, question)
	if errors.Is(err, apperr.ErrNotConfigured) {
		return mcp.NewToolResultError("API key not configured"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s\n\n(sources: %d)", a.Answer, a.SourcesCount)), nil
}

func (s *Server) upcomingEvents(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	days := req.GetInt("days", events.DefaultUpcomingDays)
	evs, err := s.deps.Calendar.Upcoming(ctx, days)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(evs) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("no events in the next %d days", days)), nil
	}
	lines := make([]string, len(evs))
	for i, e := range evs {
		line := e.StartDate + " " + e.Title
		if e.Location != "" {
			line += " @ " + e.Location
		}
		lines[i] = line + " [" + events.CategoryLabel(e.Category) + "]"
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) getTaxonomy(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(Guide()), nil
}

func (s *Server) readTaxonomyResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      TaxonomyURI,
			MIMEType: "text/markdown",
			Text:     Guide(),
		},
	}, nil
}
