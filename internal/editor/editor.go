// Package editor holds the client-side draft state machine that sits
// between a note editing UI and the note service.
//
// A draft moves idle -> drafting -> saving and back to idle, or back to
// drafting when the save fails. While drafting, at most one AI call runs
// at a time. Network calls are made without holding the state lock, so
// snapshots and field edits stay responsive while a call is in flight.
package editor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"

	"smartnotes/internal/errs"
	"smartnotes/internal/notes"
)

// State is the top-level editor state.
type State int

const (
	Idle State = iota
	Drafting
	Saving
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Drafting:
		return "drafting"
	case Saving:
		return "saving"
	default:
		return "unknown"
	}
}

// AIKind names an enrichment operation.
type AIKind string

const (
	AISummary AIKind = "summary"
	AIImprove AIKind = "improve"
	AITags    AIKind = "tags"
)

var (
	ErrBusy           = errors.New("another operation is already in progress")
	ErrNotDrafting    = errors.New("no draft is open")
	ErrUnacknowledged = errors.New("acknowledge the previous error first")
	ErrDeleteDeclined = errors.New("delete was not confirmed")
	ErrUnknownAIKind  = errors.New("unknown AI operation")

	ErrTitleRequired   = errs.New(errs.InvalidArgument, "Title is required")
	ErrContentRequired = errs.New(errs.InvalidArgument, "Content is required")
)

// NoteAPI is the note service as seen by the editor.
type NoteAPI interface {
	List(ctx context.Context) ([]*notes.Note, error)
	Create(ctx context.Context, in notes.CreateNoteInput) (*notes.Note, error)
	Update(ctx context.Context, in notes.UpdateNoteInput) (*notes.Note, error)
	Delete(ctx context.Context, id string) error
	Summarize(ctx context.Context, content string) (string, error)
	Improve(ctx context.Context, content string) (string, error)
	ExtractTags(ctx context.Context, title, content string) ([]string, error)
}

// Confirmer gates destructive operations.
type Confirmer interface {
	Confirm(ctx context.Context, id string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, id string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, id string) bool { return f(ctx, id) }

// Draft is the user's unsaved note. ID is the edit target; empty means the
// draft will be created on save.
type Draft struct {
	ID      string
	Title   string
	Content string
	Tags    []string
}

// Snapshot is a copy of everything a UI needs to render.
type Snapshot struct {
	State State
	// AIPending is the running AI operation, or "" when none is.
	AIPending AIKind
	Draft     Draft
	// Summary and SuggestedTags are advisory AI results, not yet part of
	// the note.
	Summary       string
	SuggestedTags []string
	Err           error
	Notes         []*notes.Note
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithSummaryAsTag makes Save fold the advisory summary into the tag set
// instead of sending it as the note's summary field.
func WithSummaryAsTag(on bool) Option {
	return func(o *Orchestrator) { o.summaryAsTag = on }
}

// WithLogger sets the logger used for state transitions.
func WithLogger(log *slog.Logger) Option {
	return func(o *Orchestrator) { o.log = log }
}

// Orchestrator drives one editing session.
type Orchestrator struct {
	api          NoteAPI
	confirm      Confirmer
	summaryAsTag bool
	log          *slog.Logger

	mu        sync.Mutex
	state     State
	aiPending AIKind
	// generation changes whenever the draft is replaced or dropped, so late
	// AI results for an old draft are discarded.
	generation    uint64
	draft         Draft
	summary       string
	// freshSummary is set when summary came from RunAI on this draft
	// rather than from the stored note.
	freshSummary  bool
	suggestedTags []string
	err           error
	list          []*notes.Note
}

// New creates an idle orchestrator. A nil confirm declines every delete.
func New(api NoteAPI, confirm Confirmer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		api:     api,
		confirm: confirm,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if o.confirm == nil {
		o.confirm = ConfirmFunc(func(context.Context, string) bool { return false })
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Snapshot returns a copy of the visible state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	d := o.draft
	d.Tags = cloneStrings(o.draft.Tags)
	list := make([]*notes.Note, len(o.list))
	for i, n := range o.list {
		c := *n
		c.Tags = cloneStrings(n.Tags)
		list[i] = &c
	}
	return Snapshot{
		State:         o.state,
		AIPending:     o.aiPending,
		Draft:         d,
		Summary:       o.summary,
		SuggestedTags: cloneStrings(o.suggestedTags),
		Err:           o.err,
		Notes:         list,
	}
}

// Acknowledge clears the surfaced error.
func (o *Orchestrator) Acknowledge() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.err = nil
}

// NewDraft opens an empty draft, replacing any open one.
func (o *Orchestrator) NewDraft() error {
	return o.open(Draft{}, "")
}

// Edit opens a draft for an existing note. Saving it updates that note.
func (o *Orchestrator) Edit(n *notes.Note) error {
	if n == nil {
		return errs.New(errs.InvalidArgument, "note is required")
	}
	return o.open(Draft{
		ID:      n.ID,
		Title:   n.Title,
		Content: n.Content,
		Tags:    cloneStrings(n.Tags),
	}, n.Summary)
}

func (o *Orchestrator) open(d Draft, summary string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.checkMutable(); err != nil {
		return err
	}
	o.resetLocked()
	o.state = Drafting
	o.draft = d
	o.summary = summary
	o.log.Debug("draft opened", "id", d.ID)
	return nil
}

// Cancel drops the open draft and any AI results without contacting the
// server.
func (o *Orchestrator) Cancel() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch o.state {
	case Saving:
		return ErrBusy
	case Idle:
		return nil
	}
	o.resetLocked()
	o.err = nil
	o.state = Idle
	return nil
}

func (o *Orchestrator) SetTitle(title string) error {
	return o.edit(func(d *Draft) { d.Title = title })
}

func (o *Orchestrator) SetContent(content string) error {
	return o.edit(func(d *Draft) { d.Content = content })
}

func (o *Orchestrator) SetTags(tags []string) error {
	return o.edit(func(d *Draft) { d.Tags = cloneStrings(tags) })
}

func (o *Orchestrator) edit(fn func(*Draft)) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.checkDrafting(); err != nil {
		return err
	}
	fn(&o.draft)
	return nil
}

// RunAI runs one enrichment call against the draft. Improve replaces the
// content; summary and tags fill the advisory fields. Empty content is a
// no-op. On failure the error is surfaced and the draft is left as it was.
func (o *Orchestrator) RunAI(ctx context.Context, kind AIKind) error {
	switch kind {
	case AISummary, AIImprove, AITags:
	default:
		return ErrUnknownAIKind
	}

	o.mu.Lock()
	if err := o.checkDrafting(); err != nil {
		o.mu.Unlock()
		return err
	}
	if o.aiPending != "" {
		o.mu.Unlock()
		return ErrBusy
	}
	if strings.TrimSpace(o.draft.Content) == "" {
		o.mu.Unlock()
		return nil
	}
	o.aiPending = kind
	gen := o.generation
	title, content := o.draft.Title, o.draft.Content
	o.mu.Unlock()

	var (
		text string
		tags []string
		err  error
	)
	switch kind {
	case AISummary:
		text, err = o.api.Summarize(ctx, content)
	case AIImprove:
		text, err = o.api.Improve(ctx, content)
	case AITags:
		tags, err = o.api.ExtractTags(ctx, title, content)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.generation != gen {
		o.log.Debug("dropping AI result for closed draft", "kind", kind)
		return nil
	}
	o.aiPending = ""
	if err != nil {
		o.err = err
		o.log.Warn("AI operation failed", "kind", kind, "error", err)
		return err
	}
	switch kind {
	case AISummary:
		o.summary = text
		o.freshSummary = true
	case AIImprove:
		o.draft.Content = text
	case AITags:
		o.suggestedTags = cloneStrings(tags)
	}
	return nil
}

// Save creates or updates the note. The tags sent are the deduplicated
// union of the manual tags, the suggested tags and, in summary-as-tag mode,
// a summary generated for this draft. A summary loaded with the note is
// sent back unchanged.
func (o *Orchestrator) Save(ctx context.Context) error {
	o.mu.Lock()
	if err := o.checkDrafting(); err != nil {
		o.mu.Unlock()
		return err
	}
	if o.aiPending != "" {
		o.mu.Unlock()
		return ErrBusy
	}
	switch {
	case strings.TrimSpace(o.draft.Title) == "":
		o.err = ErrTitleRequired
		o.mu.Unlock()
		return ErrTitleRequired
	case strings.TrimSpace(o.draft.Content) == "":
		o.err = ErrContentRequired
		o.mu.Unlock()
		return ErrContentRequired
	}

	d := o.draft
	tags := notes.MergeTags(d.Tags, o.suggestedTags)
	summary := o.summary
	if o.summaryAsTag && o.freshSummary {
		tags = notes.MergeTags(tags, []string{summary})
		summary = ""
	}
	o.state = Saving
	o.mu.Unlock()

	var err error
	if d.ID == "" {
		_, err = o.api.Create(ctx, notes.CreateNoteInput{Title: d.Title, Content: d.Content, Tags: tags, Summary: summary})
	} else {
		_, err = o.api.Update(ctx, notes.UpdateNoteInput{ID: d.ID, Title: d.Title, Content: d.Content, Tags: tags, Summary: summary})
	}

	o.mu.Lock()
	if err != nil {
		o.state = Drafting
		o.err = err
		o.mu.Unlock()
		o.log.Warn("save failed", "id", d.ID, "error", err)
		return err
	}
	o.resetLocked()
	o.state = Idle
	o.mu.Unlock()

	o.log.Debug("draft saved", "id", d.ID, "tags", len(tags))
	return o.Refresh(ctx)
}

// Delete removes a note after the confirmation gate allows it. It does not
// depend on, or change, the open draft.
func (o *Orchestrator) Delete(ctx context.Context, id string) error {
	if !o.confirm.Confirm(ctx, id) {
		return ErrDeleteDeclined
	}
	if err := o.api.Delete(ctx, id); err != nil {
		o.surface(err)
		return err
	}
	return o.Refresh(ctx)
}

// Refresh reloads the note list.
func (o *Orchestrator) Refresh(ctx context.Context) error {
	list, err := o.api.List(ctx)
	if err != nil {
		o.surface(err)
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.list = list
	return nil
}

func (o *Orchestrator) surface(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.err = err
}

// checkMutable reports whether a new draft may be opened. Callers hold mu.
func (o *Orchestrator) checkMutable() error {
	if o.state == Saving {
		return ErrBusy
	}
	if o.err != nil {
		return ErrUnacknowledged
	}
	return nil
}

// checkDrafting reports whether the open draft may change. Callers hold mu.
func (o *Orchestrator) checkDrafting() error {
	switch o.state {
	case Idle:
		return ErrNotDrafting
	case Saving:
		return ErrBusy
	}
	if o.err != nil {
		return ErrUnacknowledged
	}
	return nil
}

func (o *Orchestrator) resetLocked() {
	o.generation++
	o.aiPending = ""
	o.draft = Draft{}
	o.summary = ""
	o.freshSummary = false
	o.suggestedTags = nil
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string{}, s...)
}
