package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartnotes/internal/auth"
	"smartnotes/internal/client"
	"smartnotes/internal/enrich"
	"smartnotes/internal/notes"
)

const testKeyHex = "404142434445464748494a4b4c4d4e4f505152535455565758595a5b5c5d5e5f"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens, err := auth.NewTokenService(testKeyHex, time.Hour)
	require.NoError(t, err)

	gen := enrich.GeneratorFunc(func(_ context.Context, prompt string) (string, error) {
		switch {
		case strings.HasPrefix(prompt, "Summarize"):
			return "A day at the lake.", nil
		case strings.HasPrefix(prompt, "Improve"):
			return "I went to the lake.", nil
		default:
			return "travel, lake, nature", nil
		}
	})

	guard := auth.RequireUser(tokens, log)
	mux := http.NewServeMux()
	notes.NewHandler(notes.NewService(notes.NewMemStore()), log).RegisterRoutes(mux, guard)
	enrich.NewHandler(enrich.NewGateway(gen, log), log).RegisterRoutes(mux, guard)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type cli struct {
	fs afero.Fs
}

func (c *cli) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(c.fs, strings.NewReader(stdin), &out)
	root.SetArgs(append([]string{"--profile", "/home/test/profile.yaml"}, args...))
	root.SetOut(&out)
	root.SetErr(&out)
	err := root.Execute()
	return out.String(), err
}

func loggedIn(t *testing.T, srv *httptest.Server) *cli {
	t.Helper()
	c := &cli{fs: afero.NewMemMapFs()}
	_, err := c.run(t, "", "token", "--key", testKeyHex, "--user", "user_alice", "--save", "--server", srv.URL)
	require.NoError(t, err)
	return c
}

func TestCLI_TokenSavesProfile(t *testing.T) {
	srv := newTestServer(t)
	c := loggedIn(t, srv)

	p, err := loadProfile(c.fs, "/home/test/profile.yaml")
	require.NoError(t, err)
	assert.Equal(t, srv.URL, p.Server)
	assert.True(t, strings.HasPrefix(p.Token, "v4.local."))
}

func TestCLI_NewWithAIThenList(t *testing.T) {
	srv := newTestServer(t)
	c := loggedIn(t, srv)

	out, err := c.run(t, "", "new", "--title", "Trip", "--content", "i go lake", "--tags", "summer", "--improve", "--summarize", "--suggest-tags")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Summary: A day at the lake.")
	assert.Contains(t, out, "Suggested tags: travel, lake, nature")
	assert.Contains(t, out, "Note saved.")

	out, err = c.run(t, "", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Trip")
	assert.Contains(t, out, "summer,travel,lake,nature")
}

func TestCLI_NewRequiresTitleBeforeNetwork(t *testing.T) {
	c := loggedIn(t, newTestServer(t))

	_, err := c.run(t, "", "new", "--content", "body only")
	assert.ErrorContains(t, err, "Title is required")
}

func TestCLI_ContentFile(t *testing.T) {
	c := loggedIn(t, newTestServer(t))
	require.NoError(t, afero.WriteFile(c.fs, "/tmp/note.md", []byte("# Lake\n\nKayaking"), 0o644))

	_, err := c.run(t, "", "new", "--title", "Lake", "--content-file", "/tmp/note.md")
	require.NoError(t, err)

	out, err := c.run(t, "", "search", "kayak")
	require.NoError(t, err)
	assert.Contains(t, out, "Lake")
}

func TestCLI_DeleteAsksForConfirmation(t *testing.T) {
	srv := newTestServer(t)
	c := loggedIn(t, srv)
	_, err := c.run(t, "", "new", "--title", "Trip", "--content", "lake")
	require.NoError(t, err)

	p, err := loadProfile(c.fs, "/home/test/profile.yaml")
	require.NoError(t, err)
	list := listNotes(t, srv.URL, p.Token)
	require.Len(t, list, 1)
	id := list[0].ID

	out, err := c.run(t, "n\n", "delete", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Aborted.")
	assert.Len(t, listNotes(t, srv.URL, p.Token), 1)

	out, err = c.run(t, "y\n", "delete", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Note "+id+" deleted.")
	assert.Empty(t, listNotes(t, srv.URL, p.Token))

	_, err = c.run(t, "", "delete", "--yes", id)
	assert.ErrorContains(t, err, "note not found")
}

func TestCLI_Edit(t *testing.T) {
	srv := newTestServer(t)
	c := loggedIn(t, srv)
	_, err := c.run(t, "", "new", "--title", "Trip", "--content", "lake", "--tags", "a,b")
	require.NoError(t, err)

	p, _ := loadProfile(c.fs, "/home/test/profile.yaml")
	id := listNotes(t, srv.URL, p.Token)[0].ID

	out, err := c.run(t, "", "edit", id, "--tags", "a,b,c")
	require.NoError(t, err, out)

	list := listNotes(t, srv.URL, p.Token)
	require.Len(t, list, 1)
	assert.Equal(t, []string{"a", "b", "c"}, list[0].Tags)
	assert.Equal(t, "Trip", list[0].Title)

	_, err = c.run(t, "", "edit", "missing-id", "--title", "x")
	assert.ErrorContains(t, err, "not found")
}

func TestCLI_NoServerConfigured(t *testing.T) {
	c := &cli{fs: afero.NewMemMapFs()}
	_, err := c.run(t, "", "list")
	assert.ErrorContains(t, err, "no server configured")
}

func TestCLI_BadTokenIsUnauthenticated(t *testing.T) {
	srv := newTestServer(t)
	c := &cli{fs: afero.NewMemMapFs()}
	_, err := c.run(t, "", "login", "--server", srv.URL, "--token", "v4.local.garbage")
	require.NoError(t, err)

	_, err = c.run(t, "", "list")
	assert.ErrorContains(t, err, "unauthorized")
}

func listNotes(t *testing.T, server, token string) []*notes.Note {
	t.Helper()
	list, err := client.New(server, client.WithToken(token)).List(context.Background())
	require.NoError(t, err)
	return list
}
