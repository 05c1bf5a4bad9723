package notes

import (
	"context"
	"errors"
	"strings"

	"smartnotes/internal/errs"
)

var (
	ErrNoteNotFound = errors.New("note not found")
)

// Store persists notes keyed by owner. Every read and write filters by the
// owner id; a note belonging to someone else is indistinguishable from one
// that does not exist.
type Store interface {
	Insert(ctx context.Context, n *Note) error
	ListByOwner(ctx context.Context, ownerID string) ([]*Note, error)
	FindByIDAndOwner(ctx context.Context, id, ownerID string) (*Note, error)
	UpdateByIDAndOwner(ctx context.Context, id, ownerID string, f NoteFields) (*Note, error)
	DeleteByIDAndOwner(ctx context.Context, id, ownerID string) error
	Search(ctx context.Context, ownerID string, q SearchQuery) ([]*Note, error)
}

func notFound() error {
	return errs.Wrap(errs.NotFound, "note not found", ErrNoteNotFound)
}

// checkRecord enforces the record invariants shared by both stores.
func checkRecord(ownerID, title, content string) error {
	switch {
	case strings.TrimSpace(ownerID) == "":
		return errs.New(errs.Unauthenticated, "owner is required")
	case strings.TrimSpace(title) == "":
		return errs.New(errs.InvalidArgument, "title is required")
	case strings.TrimSpace(content) == "":
		return errs.New(errs.InvalidArgument, "content is required")
	}
	return nil
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return append([]string{}, tags...)
}
