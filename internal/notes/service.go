package notes

import (
	"bytes"
	"context"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"

	"smartnotes/internal/errs"
)

type Service struct {
	store    Store
	validate *Validator
	md       goldmark.Markdown
	policy   *bluemonday.Policy
}

func NewService(store Store) *Service {
	return &Service{
		store:    store,
		validate: NewValidator(),
		md:       goldmark.New(),
		policy:   bluemonday.UGCPolicy(),
	}
}

// Create creates a new note owned by ownerID.
func (s *Service) Create(ctx context.Context, ownerID string, input CreateNoteInput) (*Note, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, err
	}

	note := &Note{
		OwnerID: ownerID,
		Title:   input.Title,
		Content: input.Content,
		Tags:    CleanTags(input.Tags),
		Summary: strings.TrimSpace(input.Summary),
	}
	if err := s.store.Insert(ctx, note); err != nil {
		return nil, err
	}
	return note, nil
}

// List returns the owner's notes, newest first.
func (s *Service) List(ctx context.Context, ownerID string) ([]*Note, error) {
	return s.store.ListByOwner(ctx, ownerID)
}

// Get retrieves one of the owner's notes.
func (s *Service) Get(ctx context.Context, ownerID, id string) (*Note, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errs.New(errs.InvalidArgument, "id is required")
	}
	return s.store.FindByIDAndOwner(ctx, id, ownerID)
}

// Update replaces title, content, tags and summary of one of the owner's notes.
func (s *Service) Update(ctx context.Context, ownerID string, input UpdateNoteInput) (*Note, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, err
	}
	return s.store.UpdateByIDAndOwner(ctx, input.ID, ownerID, NoteFields{
		Title:   input.Title,
		Content: input.Content,
		Tags:    CleanTags(input.Tags),
		Summary: strings.TrimSpace(input.Summary),
	})
}

// Delete removes one of the owner's notes.
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	if strings.TrimSpace(id) == "" {
		return errs.New(errs.InvalidArgument, "id is required")
	}
	return s.store.DeleteByIDAndOwner(ctx, id, ownerID)
}

// Search performs an owner-scoped search
func (s *Service) Search(ctx context.Context, ownerID string, q SearchQuery) ([]*Note, error) {
	q.Query = strings.TrimSpace(q.Query)
	q.Tag = strings.TrimSpace(q.Tag)
	return s.store.Search(ctx, ownerID, q)
}

// Preview renders one of the owner's notes to sanitized HTML.
func (s *Service) Preview(ctx context.Context, ownerID, id string) (string, error) {
	note, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return "", err
	}
	return s.RenderMarkdown(note.Content), nil
}

// RenderMarkdown converts markdown content to sanitized HTML
func (s *Service) RenderMarkdown(content string) string {
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(content), &buf); err != nil {
		return s.policy.Sanitize(content)
	}
	return s.policy.Sanitize(buf.String())
}

// CleanTags trims each tag and drops empty ones, keeping order and
// duplicates. A nil input yields an empty slice.
func CleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// MergeTags returns the union of the given lists with exact-match
// duplicates removed, in first-seen order.
func MergeTags(lists ...[]string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, list := range lists {
		for _, t := range CleanTags(list) {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}
