package notes

import (
	"log/slog"
	"net/http"
	"strconv"

	"smartnotes/internal/auth"
	"smartnotes/internal/obs"
	"smartnotes/internal/respond"
)

type Handler struct {
	svc *Service
	log *slog.Logger
}

func NewHandler(svc *Service, log *slog.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// RegisterRoutes mounts the note routes on mux, each behind requireUser.
func (h *Handler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("GET /notes", requireUser(http.HandlerFunc(h.ListNotes)))
	mux.Handle("POST /notes", requireUser(http.HandlerFunc(h.CreateNote)))
	mux.Handle("PUT /notes", requireUser(http.HandlerFunc(h.UpdateNote)))
	mux.Handle("DELETE /notes", requireUser(http.HandlerFunc(h.DeleteNote)))
	mux.Handle("GET /notes/search", requireUser(http.HandlerFunc(h.SearchNotes)))
	mux.Handle("GET /notes/preview", requireUser(http.HandlerFunc(h.PreviewNote)))
}

// ListNotes handles GET /notes
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := h.svc.List(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		respond.Error(w, obs.From(r.Context(), h.log), "failed to list notes", err)
		return
	}
	respond.JSON(w, http.StatusOK, notes)
}

// CreateNote handles POST /notes. The owner always comes from the resolved
// identity; any owner field in the body is ignored.
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var input CreateNoteInput
	if err := respond.Decode(r, &input); err != nil {
		respond.Error(w, obs.From(r.Context(), h.log), "failed to decode note", err)
		return
	}

	note, err := h.svc.Create(r.Context(), auth.UserID(r.Context()), input)
	if err != nil {
		respond.Error(w, obs.From(r.Context(), h.log), "failed to create note", err)
		return
	}

	obs.From(r.Context(), h.log).Info("note created", "id", note.ID, "tags", len(note.Tags))
	respond.JSON(w, http.StatusCreated, note)
}

// UpdateNote handles PUT /notes
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	var input UpdateNoteInput
	if err := respond.Decode(r, &input); err != nil {
		respond.Error(w, obs.From(r.Context(), h.log), "failed to decode note", err)
		return
	}

	note, err := h.svc.Update(r.Context(), auth.UserID(r.Context()), input)
	if err != nil {
		respond.Error(w, obs.From(r.Context(), h.log), "failed to update note", err)
		return
	}
	respond.JSON(w, http.StatusOK, note)
}

// DeleteNote handles DELETE /notes?id=ID
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if err := h.svc.Delete(r.Context(), auth.UserID(r.Context()), id); err != nil {
		respond.Error(w, obs.From(r.Context(), h.log), "failed to delete note", err)
		return
	}

	obs.From(r.Context(), h.log).Info("note deleted", "id", id)
	respond.JSON(w, http.StatusOK, DeleteResult{Message: "Note deleted successfully"})
}

// SearchNotes handles GET /notes/search?q=&tag=&limit=
func (h *Handler) SearchNotes(w http.ResponseWriter, r *http.Request) {
	q := SearchQuery{
		Query: r.URL.Query().Get("q"),
		Tag:   r.URL.Query().Get("tag"),
		Limit: parseInt(r.URL.Query().Get("limit"), 50),
	}

	notes, err := h.svc.Search(r.Context(), auth.UserID(r.Context()), q)
	if err != nil {
		respond.Error(w, obs.From(r.Context(), h.log), "failed to search notes", err)
		return
	}
	respond.JSON(w, http.StatusOK, notes)
}

// PreviewNote handles GET /notes/preview?id=ID
func (h *Handler) PreviewNote(w http.ResponseWriter, r *http.Request) {
	html, err := h.svc.Preview(r.Context(), auth.UserID(r.Context()), r.URL.Query().Get("id"))
	if err != nil {
		respond.Error(w, obs.From(r.Context(), h.log), "failed to render note", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(html))
}

func parseInt(s string, defaultVal int) int {
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}
