package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passThrough(next http.Handler) http.Handler { return next }

func serve(t *testing.T, gen Generator, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	NewHandler(newGateway(gen), discardLogger()).RegisterRoutes(mux, passThrough)

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHandler_Summarize(t *testing.T) {
	rec := serve(t, &countingGenerator{reply: "A lake trip."}, "/ai/summarize", `{"content":"Went to the lake"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "A lake trip.", decodeBody(t, rec)["summary"])
}

func TestHandler_Improve(t *testing.T) {
	rec := serve(t, &countingGenerator{reply: "I went to the store yesterday."}, "/ai/improve", `{"content":"i go to store yesterday"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	improved := decodeBody(t, rec)["improved"]
	assert.Equal(t, "I went to the store yesterday.", improved)
}

func TestHandler_Tags(t *testing.T) {
	rec := serve(t, &countingGenerator{reply: "travel,lake,nature"}, "/ai/tags", `{"title":"Trip","content":"Went to the lake"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"travel", "lake", "nature"}, decodeBody(t, rec)["tags"])
}

func TestHandler_MissingContentIs400(t *testing.T) {
	gen := &countingGenerator{reply: "unused"}
	for _, path := range []string{"/ai/summarize", "/ai/improve", "/ai/tags"} {
		rec := serve(t, gen, path, `{"title":"only a title"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		body := decodeBody(t, rec)
		assert.Equal(t, "content_required", body["code"], path)
		assert.Equal(t, "Content is required", body["error"], path)
	}
	assert.Zero(t, gen.calls.Load())
}

func TestHandler_ProviderErrorIs500WithMessage(t *testing.T) {
	gen := GeneratorFunc(func(context.Context, string) (string, error) {
		return "", errors.New("API key not valid")
	})
	rec := serve(t, gen, "/ai/summarize", `{"content":"hello"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "upstream", body["code"])
	assert.Equal(t, "API key not valid", body["error"])
}

func TestHandler_InvalidJSONIs400(t *testing.T) {
	rec := serve(t, &countingGenerator{}, "/ai/improve", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_argument", decodeBody(t, rec)["code"])
}
