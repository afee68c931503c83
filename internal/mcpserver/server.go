// Package mcpserver exposes the note dashboard as MCP (Model Context
// Protocol) tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/notedash/internal/apperr"
	"github.com/starford/notedash/internal/dashboard"
	"github.com/starford/notedash/internal/models"
	"github.com/starford/notedash/internal/parser"
)

const noteFormatURI = "notedash://note-format"

// Server wraps the MCP server with the dashboard tools.
type Server struct {
	mcp  *server.MCPServer
	dash *dashboard.Dashboard
}

// New creates an MCP server with all tools registered. Every tool acts as
// the user of the current session.
func New(dash *dashboard.Dashboard, version string) *Server {
	s := &Server{dash: dash}

	s.mcp = server.NewMCPServer(
		"notedash",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("Reload and list the personal, project and shared notes of the logged-in user."),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read one note as Markdown with YAML frontmatter."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Free-text search over the titles and content of visible notes. Clears any tag filter."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("filter_by_tags",
		mcp.WithDescription("Add tags to the active tag filter and list notes carrying any of them. Clears any search."),
		mcp.WithString("tags", mcp.Required(), mcp.Description("Comma separated tags, e.g. work,urgent")),
	), s.filterByTags)

	s.mcp.AddTool(mcp.NewTool("clear_filters",
		mcp.WithDescription("Leave search and tag-filter mode and reload all notes."),
	), s.clearFilters)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a note from Markdown. Content MUST follow the note format contract "+
			"(get_note_contract tool or the "+noteFormatURI+" resource)."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown with YAML frontmatter")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("update_note",
		mcp.WithDescription("Replace a note's title, type, tags and body with the given Markdown document."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown with YAML frontmatter")),
	), s.updateNote)

	s.mcp.AddTool(mcp.NewTool("delete_note",
		mcp.WithDescription("Permanently delete a note. Requires confirm=true."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
		mcp.WithBoolean("confirm", mcp.Required(), mcp.Description("Must be true to delete")),
	), s.deleteNote)

	s.mcp.AddTool(mcp.NewTool("share_note",
		mcp.WithDescription("Give the user registered under an email address read access to a note."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
		mcp.WithString("email", mcp.Required(), mcp.Description("Recipient email")),
	), s.shareNote)

	s.mcp.AddTool(mcp.NewTool("get_note_contract",
		mcp.WithDescription("Returns the note format contract. Call this before creating or updating notes."),
	), s.getNoteContract)

	s.mcp.AddResource(
		mcp.NewResource(noteFormatURI, "Note Format Contract",
			mcp.WithResourceDescription("Markdown format accepted by create_note and update_note."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
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

func toolError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(apperr.Message(err))
}

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

// summary is the compact listing entry returned to tools.
type summary struct {
	ID    string          `json:"id"`
	Title string          `json:"title"`
	Type  models.NoteKind `json:"type"`
	Tags  []string        `json:"tags"`
}

type sectionOut struct {
	Title string    `json:"title"`
	Notes []summary `json:"notes"`
	Empty string    `json:"empty,omitempty"`
}

func summarize(v dashboard.View) []sectionOut {
	secs := v.Sections()
	out := make([]sectionOut, 0, len(secs))
	for _, sec := range secs {
		so := sectionOut{Title: sec.Title, Notes: make([]summary, 0, len(sec.Notes))}
		for _, n := range sec.Notes {
			so.Notes = append(so.Notes, summary{ID: n.ID, Title: n.Title, Type: n.Kind, Tags: n.Tags.Strings()})
		}
		if len(so.Notes) == 0 {
			so.Empty = sec.Empty
		}
		out = append(out, so)
	}
	return out
}

func (s *Server) listNotes(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.dash.LoadAll(ctx); err != nil {
		return toolError(err), nil
	}
	return jsonResult(summarize(s.dash.Snapshot())), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.dash.Open(ctx, id)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(string(parser.Render(*note))), nil
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.dash.Search(ctx, query); err != nil {
		return toolError(err), nil
	}
	return jsonResult(summarize(s.dash.Snapshot())), nil
}

func (s *Server) filterByTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("tags")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tags := models.NewTags(strings.Split(raw, ",")...)
	if len(tags) == 0 {
		return mcp.NewToolResultError("at least one tag is required"), nil
	}
	for _, tag := range tags {
		if err := s.dash.AddTagFilter(ctx, tag); err != nil {
			return toolError(err), nil
		}
	}
	return jsonResult(summarize(s.dash.Snapshot())), nil
}

func (s *Server) clearFilters(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.dash.ClearAll(ctx); err != nil {
		return toolError(err), nil
	}
	return jsonResult(summarize(s.dash.Snapshot())), nil
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	in, err := parser.Parse([]byte(content))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.dash.Create(ctx, in)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", note.ID)), nil
}

func (s *Server) updateNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	in, err := parser.Parse([]byte(content))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tags := in.Tags.Strings()
	patch := models.NotePatch{Title: &in.Title, Content: &in.Content, Kind: &in.Kind, Tags: &tags}
	note, err := s.dash.Update(ctx, id, patch)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("updated: %s", note.ID)), nil
}

func (s *Server) deleteNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	confirmed, _ := req.GetArguments()["confirm"].(bool)
	if err := s.dash.Delete(ctx, id, func(models.Note) bool { return confirmed }); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", id)), nil
}

func (s *Server) shareNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	email, err := req.RequireString("email")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := s.dash.Share(ctx, id, email); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("shared %s with %s", id, email)), nil
}

func (s *Server) getNoteContract(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormatContract), nil
}

func (s *Server) readNoteFormatResource(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      noteFormatURI,
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}
