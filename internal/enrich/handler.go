package enrich

import (
	"log/slog"
	"net/http"

	"smartnotes/internal/obs"
	"smartnotes/internal/respond"
)

// ContentRequest is the body of /ai/summarize and /ai/improve.
type ContentRequest struct {
	Content string `json:"content"`
}

// TagsRequest is the body of /ai/tags.
type TagsRequest struct {
	Content string `json:"content"`
	Title   string `json:"title"`
}

type SummaryResponse struct {
	Summary string `json:"summary"`
}

type ImproveResponse struct {
	Improved string `json:"improved"`
}

type TagsResponse struct {
	Tags []string `json:"tags"`
}

// Handler serves the enrichment endpoints. They never touch the note store
// and work on content that was never saved.
type Handler struct {
	gw  *Gateway
	log *slog.Logger
}

func NewHandler(gw *Gateway, log *slog.Logger) *Handler {
	return &Handler{gw: gw, log: log}
}

// RegisterRoutes mounts the AI routes on mux behind guard.
func (h *Handler) RegisterRoutes(mux *http.ServeMux, guard func(http.Handler) http.Handler) {
	mux.Handle("POST /ai/summarize", guard(http.HandlerFunc(h.Summarize)))
	mux.Handle("POST /ai/improve", guard(http.HandlerFunc(h.Improve)))
	mux.Handle("POST /ai/tags", guard(http.HandlerFunc(h.Tags)))
}

// Summarize handles POST /ai/summarize
func (h *Handler) Summarize(w http.ResponseWriter, r *http.Request) {
	var req ContentRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, obs.From(r.Context(), h.log), "failed to decode summarize request", err)
		return
	}
	summary, err := h.gw.Summarize(r.Context(), req.Content)
	if err != nil {
		respond.Error(w, obs.From(r.Context(), h.log), "failed to summarize", err)
		return
	}
	respond.JSON(w, http.StatusOK, SummaryResponse{Summary: summary})
}

// Improve handles POST /ai/improve
func (h *Handler) Improve(w http.ResponseWriter, r *http.Request) {
	var req ContentRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, obs.From(r.Context(), h.log), "failed to decode improve request", err)
		return
	}
	improved, err := h.gw.Improve(r.Context(), req.Content)
	if err != nil {
		respond.Error(w, obs.From(r.Context(), h.log), "failed to improve content", err)
		return
	}
	respond.JSON(w, http.StatusOK, ImproveResponse{Improved: improved})
}

// Tags handles POST /ai/tags
func (h *Handler) Tags(w http.ResponseWriter, r *http.Request) {
	var req TagsRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, obs.From(r.Context(), h.log), "failed to decode tags request", err)
		return
	}
	tags, err := h.gw.ExtractTags(r.Context(), req.Title, req.Content)
	if err != nil {
		respond.Error(w, obs.From(r.Context(), h.log), "failed to generate tags", err)
		return
	}
	respond.JSON(w, http.StatusOK, TagsResponse{Tags: tags})
}
