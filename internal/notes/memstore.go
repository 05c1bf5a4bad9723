package notes

import (
	"context"
	"crypto/rand"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// MemStore is an in-process Store for tests and STORE=memory dev runs.
// One mutex serialises all access, which makes every update and delete
// atomic per note.
type MemStore struct {
	mu      sync.Mutex
	notes   map[string]*Note
	now     func() time.Time
	entropy io.Reader
}

// MemOption configures a MemStore.
type MemOption func(*MemStore)

// WithClock overrides the clock used for createdAt/updatedAt.
func WithClock(now func() time.Time) MemOption {
	return func(s *MemStore) { s.now = now }
}

func NewMemStore(opts ...MemOption) *MemStore {
	s := &MemStore{
		notes:   make(map[string]*Note),
		now:     time.Now,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemStore) Insert(_ context.Context, n *Note) error {
	if err := checkRecord(n.OwnerID, n.Title, n.Content); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	id, err := ulid.New(ulid.Timestamp(now), s.entropy)
	if err != nil {
		return err
	}

	stored := n.clone()
	stored.ID = id.String()
	stored.Tags = nonNilTags(n.Tags)
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.notes[stored.ID] = stored

	*n = *stored.clone()
	return nil
}

func (s *MemStore) ListByOwner(_ context.Context, ownerID string) ([]*Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Note, 0)
	for _, n := range s.notes {
		if n.OwnerID == ownerID {
			out = append(out, n.clone())
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *MemStore) FindByIDAndOwner(_ context.Context, id, ownerID string) (*Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notes[id]
	if !ok || n.OwnerID != ownerID {
		return nil, notFound()
	}
	return n.clone(), nil
}

func (s *MemStore) UpdateByIDAndOwner(_ context.Context, id, ownerID string, f NoteFields) (*Note, error) {
	if err := checkRecord(ownerID, f.Title, f.Content); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notes[id]
	if !ok || n.OwnerID != ownerID {
		return nil, notFound()
	}
	n.Title = f.Title
	n.Content = f.Content
	n.Tags = nonNilTags(f.Tags)
	n.Summary = f.Summary
	n.UpdatedAt = s.now().UTC()
	return n.clone(), nil
}

func (s *MemStore) DeleteByIDAndOwner(_ context.Context, id, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notes[id]
	if !ok || n.OwnerID != ownerID {
		return notFound()
	}
	delete(s.notes, id)
	return nil
}

// Search matches q.Query case-insensitively against title, content and tags.
func (s *MemStore) Search(ctx context.Context, ownerID string, q SearchQuery) ([]*Note, error) {
	all, err := s.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(q.Query))
	out := make([]*Note, 0)
	for _, n := range all {
		if q.Tag != "" && !hasTag(n.Tags, q.Tag) {
			continue
		}
		if needle != "" && !matches(n, needle) {
			continue
		}
		out = append(out, n)
		if len(out) == q.limit() {
			break
		}
	}
	return out, nil
}

func matches(n *Note, needle string) bool {
	if strings.Contains(strings.ToLower(n.Title), needle) ||
		strings.Contains(strings.ToLower(n.Content), needle) {
		return true
	}
	for _, t := range n.Tags {
		if strings.Contains(strings.ToLower(t), needle) {
			return true
		}
	}
	return false
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func sortNewestFirst(notes []*Note) {
	sort.Slice(notes, func(i, j int) bool {
		if !notes[i].CreatedAt.Equal(notes[j].CreatedAt) {
			return notes[i].CreatedAt.After(notes[j].CreatedAt)
		}
		return notes[i].ID > notes[j].ID
	})
}
