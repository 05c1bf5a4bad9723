package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartnotes/internal/auth"
	"smartnotes/internal/enrich"
	"smartnotes/internal/notes"
)

func newTools(gen enrich.Generator) *tools {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &tools{
		svc: notes.NewService(notes.NewMemStore()),
		gw:  enrich.NewGateway(gen, log),
		log: log,
	}
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func as(user string) context.Context {
	return auth.WithUserID(context.Background(), user)
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "content is %T", res.Content[0])
	return text.Text
}

func TestTools_CreateListUpdateDelete(t *testing.T) {
	tl := newTools(nil)

	res, err := tl.handleCreateNote(as("alice"), call(map[string]any{
		"title":   "Trip",
		"content": "Went to the lake",
		"tags":    []any{"travel", " lake "},
	}))
	require.NoError(t, err)
	require.False(t, res.IsError, textOf(t, res))

	var created NoteResult
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &created))
	assert.Equal(t, []string{"travel", "lake"}, created.Tags)

	res, err = tl.handleUpdateNote(as("alice"), call(map[string]any{
		"id":      created.ID,
		"title":   "Trip",
		"content": "Went to the lake",
		"tags":    []any{"travel", "lake", "summer"},
	}))
	require.NoError(t, err)
	require.False(t, res.IsError, textOf(t, res))

	res, err = tl.handleListNotes(as("alice"), call(nil))
	require.NoError(t, err)
	var list []NoteResult
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &list))
	require.Len(t, list, 1)
	assert.Equal(t, []string{"travel", "lake", "summer"}, list[0].Tags)

	res, err = tl.handleDeleteNote(as("alice"), call(map[string]any{"id": created.ID}))
	require.NoError(t, err)
	assert.Contains(t, textOf(t, res), "Note deleted successfully")
}

func TestTools_OwnerScoping(t *testing.T) {
	tl := newTools(nil)
	res, _ := tl.handleCreateNote(as("alice"), call(map[string]any{"title": "Private", "content": "secret"}))
	var created NoteResult
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &created))

	res, err := tl.handleGetNote(as("bob"), call(map[string]any{"id": created.ID}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, "failed to get note: note not found", textOf(t, res))

	res, _ = tl.handleDeleteNote(as("bob"), call(map[string]any{"id": created.ID}))
	assert.True(t, res.IsError)

	res, _ = tl.handleSearchNotes(as("bob"), call(map[string]any{"query": "secret"}))
	assert.JSONEq(t, `[]`, textOf(t, res))

	res, _ = tl.handleGetNote(as("alice"), call(map[string]any{"id": created.ID}))
	assert.False(t, res.IsError)
	assert.Contains(t, textOf(t, res), "secret")
}

func TestTools_RequireIdentity(t *testing.T) {
	tl := newTools(nil)
	ctx := context.Background()

	for name, handler := range map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"list_notes":   tl.handleListNotes,
		"create_note":  tl.handleCreateNote,
		"summarize":    tl.handleSummarize,
		"extract_tags": tl.handleExtractTags,
	} {
		res, err := handler(ctx, call(map[string]any{"title": "t", "content": "c"}))
		require.NoError(t, err, name)
		assert.True(t, res.IsError, name)
		assert.Equal(t, "unauthorized", textOf(t, res), name)
	}
}

func TestTools_CreateValidation(t *testing.T) {
	res, err := newTools(nil).handleCreateNote(as("alice"), call(map[string]any{"title": "Trip"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, "failed to create note: content is required", textOf(t, res))
}

func TestTools_Enrichment(t *testing.T) {
	tl := newTools(enrich.GeneratorFunc(func(_ context.Context, prompt string) (string, error) {
		if strings.HasPrefix(prompt, "Generate") {
			return "travel, lake", nil
		}
		return "A lake trip.", nil
	}))

	res, err := tl.handleSummarize(as("alice"), call(map[string]any{"content": "Went to the lake"}))
	require.NoError(t, err)
	assert.Equal(t, "A lake trip.", textOf(t, res))

	res, err = tl.handleExtractTags(as("alice"), call(map[string]any{"title": "Trip", "content": "Went to the lake"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"tags":["travel","lake"]}`, textOf(t, res))

	res, err = tl.handleImprove(as("alice"), call(map[string]any{"content": "  "}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, "failed to improve content: Content is required", textOf(t, res))
}

func TestNewServer_Builds(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewServer(notes.NewService(notes.NewMemStore()), enrich.NewGateway(nil, log), log)
	require.NotNil(t, s)
	assert.NotNil(t, NewHTTPHandler(s))
}
