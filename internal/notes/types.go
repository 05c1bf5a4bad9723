package notes

import (
	"time"
)

// Note is a user's note. ID and OwnerID are strings so the Mongo and memory
// stores share one type; the Mongo repo converts ObjectIDs at its edge.
type Note struct {
	ID        string    `bson:"-" json:"id"`
	OwnerID   string    `bson:"user_id" json:"ownerId"`
	Title     string    `bson:"title" json:"title"`
	Content   string    `bson:"content" json:"content"`
	Tags      []string  `bson:"tags" json:"tags"`
	Summary   string    `bson:"summary,omitempty" json:"summary,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// NoteFields are the mutable fields of a note. Updates replace all of them.
type NoteFields struct {
	Title   string
	Content string
	Tags    []string
	Summary string
}

// CreateNoteInput is the body of POST /notes.
type CreateNoteInput struct {
	Title   string   `json:"title" validate:"required,notblank"`
	Content string   `json:"content" validate:"required,notblank"`
	Tags    []string `json:"tags"`
	Summary string   `json:"summary"`
}

// UpdateNoteInput is the body of PUT /notes.
type UpdateNoteInput struct {
	ID      string   `json:"id" validate:"required"`
	Title   string   `json:"title" validate:"required,notblank"`
	Content string   `json:"content" validate:"required,notblank"`
	Tags    []string `json:"tags"`
	Summary string   `json:"summary"`
}

// SearchQuery represents search parameters
type SearchQuery struct {
	Query string // matched against title, content and tags
	Tag   string // exact tag filter
	Limit int
}

// DeleteResult is the body returned by DELETE /notes.
type DeleteResult struct {
	Message string `json:"message"`
}

func (q SearchQuery) limit() int {
	switch {
	case q.Limit <= 0:
		return 50
	case q.Limit > 200:
		return 200
	default:
		return q.Limit
	}
}

func (n *Note) clone() *Note {
	c := *n
	c.Tags = append([]string{}, n.Tags...)
	return &c
}
