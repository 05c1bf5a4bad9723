package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"smartnotes/internal/auth"
	"smartnotes/internal/enrich"
	"smartnotes/internal/errs"
	"smartnotes/internal/notes"
)

// NewServer creates an MCP server with tools for note and enrichment
// operations. Every note tool is scoped to the caller's user id.
func NewServer(svc *notes.Service, gw *enrich.Gateway, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer(
		"Smart Notes",
		"1.0.0",
		server.WithToolCapabilities(true),
	)
	t := &tools{svc: svc, gw: gw, log: log}

	// Tool: list_notes - All of the caller's notes
	s.AddTool(
		mcp.NewTool("list_notes",
			mcp.WithDescription("List all of your notes, newest first."),
		),
		t.handleListNotes,
	)

	// Tool: search_notes - Case-insensitive substring search
	s.AddTool(
		mcp.NewTool("search_notes",
			mcp.WithDescription("Search your notes by text and/or an exact tag. Use this to find specific information across notes."),
			mcp.WithString("query",
				mcp.Description("Search text matched against title, content and tags"),
			),
			mcp.WithString("tag",
				mcp.Description("Optional: only return notes carrying this exact tag"),
			),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of notes to return (default: 50, max: 200)"),
			),
		),
		t.handleSearchNotes,
	)

	s.AddTool(
		mcp.NewTool("get_note",
			mcp.WithDescription("Get one of your notes by its ID."),
			mcp.WithString("id",
				mcp.Required(),
				mcp.Description("The note ID"),
			),
		),
		t.handleGetNote,
	)

	s.AddTool(
		mcp.NewTool("create_note",
			mcp.WithDescription("Create a note. Title and content are required."),
			mcp.WithString("title", mcp.Required(), mcp.Description("Note title")),
			mcp.WithString("content", mcp.Required(), mcp.Description("Note body (markdown)")),
			mcp.WithArray("tags", mcp.WithStringItems(), mcp.Description("Optional tags")),
			mcp.WithString("summary", mcp.Description("Optional one-sentence summary")),
		),
		t.handleCreateNote,
	)

	s.AddTool(
		mcp.NewTool("update_note",
			mcp.WithDescription("Replace the title, content, tags and summary of one of your notes."),
			mcp.WithString("id", mcp.Required(), mcp.Description("The note ID")),
			mcp.WithString("title", mcp.Required(), mcp.Description("Note title")),
			mcp.WithString("content", mcp.Required(), mcp.Description("Note body (markdown)")),
			mcp.WithArray("tags", mcp.WithStringItems(), mcp.Description("The complete tag set; omitted means no tags")),
			mcp.WithString("summary", mcp.Description("Optional one-sentence summary")),
		),
		t.handleUpdateNote,
	)

	s.AddTool(
		mcp.NewTool("delete_note",
			mcp.WithDescription("Delete one of your notes by its ID."),
			mcp.WithString("id", mcp.Required(), mcp.Description("The note ID")),
		),
		t.handleDeleteNote,
	)

	// AI tools work on arbitrary text and never touch stored notes.
	s.AddTool(
		mcp.NewTool("summarize",
			mcp.WithDescription("Summarize text in one short, professional sentence."),
			mcp.WithString("content", mcp.Required(), mcp.Description("Text to summarize")),
		),
		t.handleSummarize,
	)

	s.AddTool(
		mcp.NewTool("improve",
			mcp.WithDescription("Rewrite text with better grammar and clarity, keeping its meaning."),
			mcp.WithString("content", mcp.Required(), mcp.Description("Text to improve")),
		),
		t.handleImprove,
	)

	s.AddTool(
		mcp.NewTool("extract_tags",
			mcp.WithDescription("Suggest 3-5 single-word tags for a note."),
			mcp.WithString("title", mcp.Description("Note title")),
			mcp.WithString("content", mcp.Required(), mcp.Description("Note body")),
		),
		t.handleExtractTags,
	)

	return s
}

// NewHTTPHandler serves s over streamable HTTP. It must sit behind
// auth.RequireUser; the resolved user id is carried into tool calls.
func NewHTTPHandler(s *server.MCPServer) http.Handler {
	return server.NewStreamableHTTPServer(s,
		server.WithHTTPContextFunc(func(ctx context.Context, r *http.Request) context.Context {
			return auth.WithUserID(ctx, auth.UserID(r.Context()))
		}),
	)
}

// NoteResult represents a note in tool responses
type NoteResult struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags"`
	Summary   string    `json:"summary,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type tools struct {
	svc *notes.Service
	gw  *enrich.Gateway
	log *slog.Logger
}

func (t *tools) handleListNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	owner, errResult := requireOwner(ctx)
	if errResult != nil {
		return errResult, nil
	}
	noteList, err := t.svc.List(ctx, owner)
	if err != nil {
		return t.toolError("failed to list notes", err), nil
	}
	return jsonResult(notesToResults(noteList)), nil
}

func (t *tools) handleSearchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	owner, errResult := requireOwner(ctx)
	if errResult != nil {
		return errResult, nil
	}
	noteList, err := t.svc.Search(ctx, owner, notes.SearchQuery{
		Query: req.GetString("query", ""),
		Tag:   req.GetString("tag", ""),
		Limit: req.GetInt("limit", 50),
	})
	if err != nil {
		return t.toolError("failed to search notes", err), nil
	}
	return jsonResult(notesToResults(noteList)), nil
}

func (t *tools) handleGetNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	owner, errResult := requireOwner(ctx)
	if errResult != nil {
		return errResult, nil
	}
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id is required"), nil
	}
	note, err := t.svc.Get(ctx, owner, id)
	if err != nil {
		return t.toolError("failed to get note", err), nil
	}
	return jsonResult(noteToResult(note)), nil
}

func (t *tools) handleCreateNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	owner, errResult := requireOwner(ctx)
	if errResult != nil {
		return errResult, nil
	}
	note, err := t.svc.Create(ctx, owner, notes.CreateNoteInput{
		Title:   req.GetString("title", ""),
		Content: req.GetString("content", ""),
		Tags:    req.GetStringSlice("tags", nil),
		Summary: req.GetString("summary", ""),
	})
	if err != nil {
		return t.toolError("failed to create note", err), nil
	}
	return jsonResult(noteToResult(note)), nil
}

func (t *tools) handleUpdateNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	owner, errResult := requireOwner(ctx)
	if errResult != nil {
		return errResult, nil
	}
	note, err := t.svc.Update(ctx, owner, notes.UpdateNoteInput{
		ID:      req.GetString("id", ""),
		Title:   req.GetString("title", ""),
		Content: req.GetString("content", ""),
		Tags:    req.GetStringSlice("tags", nil),
		Summary: req.GetString("summary", ""),
	})
	if err != nil {
		return t.toolError("failed to update note", err), nil
	}
	return jsonResult(noteToResult(note)), nil
}

func (t *tools) handleDeleteNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	owner, errResult := requireOwner(ctx)
	if errResult != nil {
		return errResult, nil
	}
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id is required"), nil
	}
	if err := t.svc.Delete(ctx, owner, id); err != nil {
		return t.toolError("failed to delete note", err), nil
	}
	return jsonResult(notes.DeleteResult{Message: "Note deleted successfully"}), nil
}

func (t *tools) handleSummarize(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, errResult := requireOwner(ctx); errResult != nil {
		return errResult, nil
	}
	summary, err := t.gw.Summarize(ctx, req.GetString("content", ""))
	if err != nil {
		return t.toolError("failed to summarize", err), nil
	}
	return mcp.NewToolResultText(summary), nil
}

func (t *tools) handleImprove(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, errResult := requireOwner(ctx); errResult != nil {
		return errResult, nil
	}
	improved, err := t.gw.Improve(ctx, req.GetString("content", ""))
	if err != nil {
		return t.toolError("failed to improve content", err), nil
	}
	return mcp.NewToolResultText(improved), nil
}

func (t *tools) handleExtractTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, errResult := requireOwner(ctx); errResult != nil {
		return errResult, nil
	}
	tags, err := t.gw.ExtractTags(ctx, req.GetString("title", ""), req.GetString("content", ""))
	if err != nil {
		return t.toolError("failed to generate tags", err), nil
	}
	return jsonResult(enrich.TagsResponse{Tags: tags}), nil
}

// Helper functions

func requireOwner(ctx context.Context) (string, *mcp.CallToolResult) {
	owner := auth.UserID(ctx)
	if owner == "" {
		return "", mcp.NewToolResultError("unauthorized")
	}
	return owner, nil
}

// toolError reports err to the model. Internal causes are logged and
// replaced by a generic message, as the HTTP handlers do.
func (t *tools) toolError(msg string, err error) *mcp.CallToolResult {
	if errs.CodeOf(err) == errs.Internal {
		t.log.Error(msg, "error", err)
	}
	return mcp.NewToolResultError(fmt.Sprintf("%s: %s", msg, errs.MessageOf(err)))
}

func jsonResult(v any) *mcp.CallToolResult {
	data, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(data))
}

func noteToResult(note *notes.Note) NoteResult {
	return NoteResult{
		ID:        note.ID,
		Title:     note.Title,
		Content:   note.Content,
		Tags:      note.Tags,
		Summary:   note.Summary,
		CreatedAt: note.CreatedAt,
		UpdatedAt: note.UpdatedAt,
	}
}

func notesToResults(noteList []*notes.Note) []NoteResult {
	results := make([]NoteResult, len(noteList))
	for i, note := range noteList {
		results[i] = noteToResult(note)
	}
	return results
}
