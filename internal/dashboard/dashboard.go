// Package dashboard holds the note-collection view-model: the three base
// lists, the display mode and the error banner, kept consistent under
// concurrent, out-of-order server responses.
//
// Concurrency model: all state lives behind one mutex that is never held
// across a network call. Every mutation of a note takes a per-id generation
// when issued. A successful response is applied unless a later-issued
// operation on the same id already succeeded, so the local copy always ends
// at the last successful operation in issue order. Search and tag-filter queries share one view
// generation. List reads record the mutation sequence at start so a reply
// computed before a newer local mutation cannot resurrect old copies.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"golang.org/x/sync/errgroup"

	"github.com/starford/notedash/internal/apperr"
	"github.com/starford/notedash/internal/models"
)

// API is the subset of the remote notes client the dashboard calls.
type API interface {
	CreatePersonalNote(ctx context.Context, in models.NoteInput) (*models.Note, error)
	ListPersonalNotes(ctx context.Context, userID string) ([]models.Note, error)
	ListProjectNotes(ctx context.Context, userID string) ([]models.Note, error)
	ListSharedNotes(ctx context.Context, userID string) ([]models.Note, error)
	GetNote(ctx context.Context, noteID string) (*models.Note, error)
	UpdateNote(ctx context.Context, noteID string, in models.NoteInput) (*models.Note, error)
	DeleteNote(ctx context.Context, noteID string) (string, error)
	ShareNote(ctx context.Context, noteID, email string) (*models.Note, error)
	NotesByTags(ctx context.Context, userID string, tags []string) ([]models.Note, error)
	SearchNotes(ctx context.Context, userID, query string) ([]models.Note, error)
}

// Identity supplies the authenticated owner for every request.
type Identity interface {
	Require() (models.User, error)
}

// Publisher receives change notifications. Implementations must not block.
type Publisher interface {
	PublishNoteEvent(kind, noteID string)
	PublishViewEvent(mode string)
}

// Note event kinds.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
	EventShared  = "shared"
)

// ConfirmFunc is asked before a delete is sent. Returning false aborts it.
type ConfirmFunc func(models.Note) bool

type nopPublisher struct{}

func (nopPublisher) PublishNoteEvent(string, string) {}
func (nopPublisher) PublishViewEvent(string)         {}

// flight tracks the mutations issued for one note id. applied is the
// generation of the newest response applied so far.
type flight struct {
	gen      uint64
	applied  uint64
	inflight int
}

// touch is the last mutation applied to a note while list reads were open.
type touch struct {
	seq     uint64
	deleted bool
	note    models.Note
}

// Dashboard is the note-collection view-model.
type Dashboard struct {
	api    API
	ident  Identity
	pub    Publisher
	logger *slog.Logger

	mu       sync.Mutex
	personal []models.Note
	project  []models.Note
	shared   []models.Note
	mode     Mode
	loaded   bool
	stale    bool
	loading  int
	lastErr  string

	loadGen uint64
	viewGen uint64
	flights map[string]*flight

	seq     uint64
	readers int
	touched map[string]touch
}

// Option configures a Dashboard.
type Option func(*Dashboard)

// WithPublisher routes change notifications to p.
func WithPublisher(p Publisher) Option {
	return func(d *Dashboard) {
		if p != nil {
			d.pub = p
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(d *Dashboard) {
		if l != nil {
			d.logger = l
		}
	}
}

// New returns an empty dashboard in ALL mode.
func New(api API, ident Identity, opts ...Option) *Dashboard {
	d := &Dashboard{
		api:     api,
		ident:   ident,
		pub:     nopPublisher{},
		logger:  slog.Default(),
		mode:    ModeAll{},
		flights: make(map[string]*flight),
		touched: make(map[string]touch),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// LoadAll fetches the personal, project and shared lists concurrently. Each
// list is applied as soon as it arrives, so a partial failure still shows
// what succeeded; the returned error joins every failure.
func (d *Dashboard) LoadAll(ctx context.Context) error {
	user, err := d.require()
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.loadGen++
	gen := d.loadGen
	start := d.beginReadLocked()
	d.loading++
	d.lastErr = ""
	d.mu.Unlock()

	fetches := []struct {
		name  string
		fetch func(context.Context, string) ([]models.Note, error)
		dst   func(*Dashboard) *[]models.Note
	}{
		{"personal", d.api.ListPersonalNotes, func(d *Dashboard) *[]models.Note { return &d.personal }},
		{"project", d.api.ListProjectNotes, func(d *Dashboard) *[]models.Note { return &d.project }},
		{"shared", d.api.ListSharedNotes, func(d *Dashboard) *[]models.Note { return &d.shared }},
	}
	errs := make([]error, len(fetches))

	var g errgroup.Group
	for i, f := range fetches {
		g.Go(func() error {
			notes, err := f.fetch(ctx, user.ID)
			if err != nil {
				errs[i] = fmt.Errorf("dashboard: load %s notes: %w", f.name, err)
				return errs[i]
			}
			d.mu.Lock()
			defer d.mu.Unlock()
			if gen != d.loadGen {
				d.logger.Debug("discarding superseded list", "list", f.name)
				return nil
			}
			*f.dst(d) = d.reconcileLocked(notes, start)
			return nil
		})
	}
	_ = g.Wait()
	err = errors.Join(errs...)

	d.mu.Lock()
	d.endReadLocked()
	d.loading--
	if gen == d.loadGen {
		if err != nil {
			d.lastErr = messageOr(err, "Failed to load notes.")
		} else {
			d.loaded = true
			d.stale = false
		}
	}
	d.mu.Unlock()

	if err != nil {
		d.logger.Warn("load notes failed", "error", err)
		return err
	}
	d.pub.PublishViewEvent(string(KindAll))
	return nil
}

// Create validates in and creates it as the session owner's note. On success
// the base lists are reloaded; the current display mode is kept. A reload
// failure is reported through the error banner, not the return value.
func (d *Dashboard) Create(ctx context.Context, in models.NoteInput) (*models.Note, error) {
	user, err := d.require()
	if err != nil {
		return nil, err
	}
	in.OwnerID = user.ID
	in.Tags = models.NewTags(in.Tags...)
	if in.Kind == "" {
		in.Kind = models.KindPersonal
	}
	if err := in.Validate(); err != nil {
		return nil, d.fail(fmt.Errorf("dashboard: create note: %w", err))
	}

	d.clearError()
	note, err := d.api.CreatePersonalNote(ctx, in)
	if err != nil {
		return nil, d.fail(fmt.Errorf("dashboard: create note: %w", err))
	}
	d.pub.PublishNoteEvent(EventCreated, note.ID)

	if err := d.LoadAll(ctx); err != nil {
		d.logger.Warn("reload after create failed", "note_id", note.ID, "error", err)
	}
	return note, nil
}

// Update merges patch onto the current copy of the note, validates it and
// sends it. The server's representation replaces the note in every set that
// holds it, and moves between the personal and project lists when its kind
// changed. A response is dropped when a later-issued operation on the same id
// already succeeded. Only the note's owner may update it.
func (d *Dashboard) Update(ctx context.Context, id string, patch models.NotePatch) (*models.Note, error) {
	user, err := d.require()
	if err != nil {
		return nil, err
	}
	current, err := d.owned(ctx, id, user)
	if err != nil {
		return nil, d.fail(fmt.Errorf("dashboard: update note %s: %w", id, err))
	}
	in := patch.Apply(current)
	if in.OwnerID == "" {
		in.OwnerID = user.ID
	}
	if err := in.Validate(); err != nil {
		return nil, d.fail(fmt.Errorf("dashboard: update note %s: %w", id, err))
	}

	d.clearError()
	gen := d.issue(id)
	note, err := d.api.UpdateNote(ctx, id, in)

	d.mu.Lock()
	latest, apply := d.settleLocked(id, gen, err == nil)
	if err != nil {
		if latest {
			d.lastErr = messageOr(err, "Failed to update note.")
		}
		d.mu.Unlock()
		return nil, fmt.Errorf("dashboard: update note %s: %w", id, err)
	}
	if !apply {
		d.mu.Unlock()
		d.logger.Debug("discarding superseded update", "note_id", id)
		return note, nil
	}
	d.placeLocked(*note, user.ID)
	d.touchLocked(id, touch{note: *note})
	d.mu.Unlock()

	d.pub.PublishNoteEvent(EventUpdated, id)
	return note, nil
}

// Delete removes a note after confirm approves it. Without approval no
// request is sent and ErrNotConfirmed is returned. The note leaves the local
// sets only once the server reports success. Only the note's owner may delete
// it.
func (d *Dashboard) Delete(ctx context.Context, id string, confirm ConfirmFunc) error {
	user, err := d.require()
	if err != nil {
		return err
	}
	note, err := d.owned(ctx, id, user)
	if err != nil {
		return d.fail(fmt.Errorf("dashboard: delete note %s: %w", id, err))
	}
	if confirm == nil || !confirm(note) {
		return fmt.Errorf("dashboard: delete note %s: %w", id, apperr.ErrNotConfirmed)
	}

	d.clearError()
	gen := d.issue(id)
	_, err = d.api.DeleteNote(ctx, id)

	d.mu.Lock()
	latest, apply := d.settleLocked(id, gen, err == nil)
	if err != nil {
		if latest {
			d.lastErr = messageOr(err, "Failed to delete note.")
		}
		d.mu.Unlock()
		return fmt.Errorf("dashboard: delete note %s: %w", id, err)
	}
	if apply {
		d.removeLocked(id)
		d.touchLocked(id, touch{deleted: true})
	}
	d.mu.Unlock()

	if apply {
		d.pub.PublishNoteEvent(EventDeleted, id)
	} else {
		d.logger.Debug("discarding superseded delete", "note_id", id)
	}
	return nil
}

// Share grants the user registered under email read access to the note.
// Only the note's owner may share it.
func (d *Dashboard) Share(ctx context.Context, id, email string) (*models.Note, error) {
	user, err := d.require()
	if err != nil {
		return nil, err
	}
	email = strings.TrimSpace(email)
	if err := validation.Validate(email, validation.Required, is.EmailFormat); err != nil {
		return nil, d.fail(fmt.Errorf("dashboard: share note %s: %w", id, apperr.Invalid(fmt.Errorf("email %w", err))))
	}
	if _, err := d.owned(ctx, id, user); err != nil {
		return nil, d.fail(fmt.Errorf("dashboard: share note %s: %w", id, err))
	}

	d.clearError()
	gen := d.issue(id)
	note, err := d.api.ShareNote(ctx, id, email)

	d.mu.Lock()
	latest, apply := d.settleLocked(id, gen, err == nil && note != nil)
	if err != nil {
		if latest {
			d.lastErr = messageOr(err, "Failed to share note.")
		}
		d.mu.Unlock()
		return nil, fmt.Errorf("dashboard: share note %s: %w", id, err)
	}
	if apply {
		d.replaceLocked(*note)
		d.touchLocked(id, touch{note: *note})
	}
	d.mu.Unlock()

	if apply {
		d.pub.PublishNoteEvent(EventShared, id)
	} else {
		d.logger.Debug("discarding superseded share", "note_id", id)
	}
	return note, nil
}

// Open fetches a single note and refreshes any local copies of it.
func (d *Dashboard) Open(ctx context.Context, id string) (*models.Note, error) {
	if _, err := d.require(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	start := d.beginReadLocked()
	d.mu.Unlock()

	note, err := d.api.GetNote(ctx, id)

	d.mu.Lock()
	defer d.mu.Unlock()
	defer d.endReadLocked()
	if err != nil {
		d.lastErr = messageOr(err, "Failed to load note.")
		return nil, fmt.Errorf("dashboard: open note %s: %w", id, err)
	}
	if _, busy := d.flights[id]; !busy {
		if fresh := d.reconcileLocked([]models.Note{*note}, start); len(fresh) == 1 {
			d.replaceLocked(fresh[0])
		}
	}
	return note, nil
}

// Search runs a free-text search. A non-blank query enters SEARCH mode and
// clears any tag filter; a blank query leaves an active search for ALL and
// sends nothing.
func (d *Dashboard) Search(ctx context.Context, query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		d.mu.Lock()
		changed := d.mode.Kind() == KindSearch
		if changed {
			d.viewGen++
			d.mode = ModeAll{}
		}
		d.mu.Unlock()
		if changed {
			d.pub.PublishViewEvent(string(KindAll))
		}
		return nil
	}
	user, err := d.require()
	if err != nil {
		return err
	}
	return d.query(ModeSearch{Query: query, Pending: true}, func() ([]models.Note, error) {
		return d.api.SearchNotes(ctx, user.ID, query)
	}, "search")
}

// AddTagFilter adds tag to the active filter and re-queries. A blank tag is a
// validation error. A tag already in the filter changes nothing and sends no
// request.
func (d *Dashboard) AddTagFilter(ctx context.Context, tag string) error {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return d.fail(fmt.Errorf("dashboard: add tag filter: %w", apperr.Invalidf("Tag must not be blank.")))
	}
	user, err := d.require()
	if err != nil {
		return err
	}
	d.mu.Lock()
	tags, added := activeTags(d.mode).Add(tag)
	d.mu.Unlock()
	if !added {
		return nil
	}
	return d.filter(ctx, user, tags)
}

// RemoveTagFilter drops tag from the active filter. When no tags remain, or
// no filter was active, the view returns to ALL without a request.
func (d *Dashboard) RemoveTagFilter(ctx context.Context, tag string) error {
	d.mu.Lock()
	tags, _ := activeTags(d.mode).Remove(strings.TrimSpace(tag))
	if len(tags) == 0 {
		d.viewGen++
		d.mode = ModeAll{}
		d.mu.Unlock()
		d.pub.PublishViewEvent(string(KindAll))
		return nil
	}
	d.mu.Unlock()

	user, err := d.require()
	if err != nil {
		return err
	}
	return d.filter(ctx, user, tags)
}

// ClearAll leaves search and filter modes, dismisses the error banner and
// reloads the base lists.
func (d *Dashboard) ClearAll(ctx context.Context) error {
	d.mu.Lock()
	d.viewGen++
	d.mode = ModeAll{}
	d.lastErr = ""
	d.mu.Unlock()
	return d.LoadAll(ctx)
}

// Invalidate marks every collection stale, e.g. after logout. Responses still
// in flight are discarded.
func (d *Dashboard) Invalidate() {
	d.mu.Lock()
	d.stale = true
	d.loadGen++
	d.viewGen++
	d.mu.Unlock()
}

// Reset drops all collections and returns to an empty ALL view.
func (d *Dashboard) Reset() {
	d.mu.Lock()
	d.personal, d.project, d.shared = nil, nil, nil
	d.mode = ModeAll{}
	d.loaded = false
	d.stale = false
	d.lastErr = ""
	d.loadGen++
	d.viewGen++
	d.mu.Unlock()
}

// LastError returns the error banner text, empty when there is none.
func (d *Dashboard) LastError() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastErr
}

// DismissError clears the error banner.
func (d *Dashboard) DismissError() {
	d.clearError()
}

func (d *Dashboard) filter(ctx context.Context, user models.User, tags models.Tags) error {
	return d.query(ModeTagFilter{Tags: tags, Pending: true}, func() ([]models.Note, error) {
		return d.api.NotesByTags(ctx, user.ID, tags.Strings())
	}, "filter by tags")
}

// query switches to pending, runs fetch and commits the result when no newer
// search or filter was issued meanwhile. A failed query leaves the mode with
// an empty result set.
func (d *Dashboard) query(pending Mode, fetch func() ([]models.Note, error), op string) error {
	d.mu.Lock()
	d.viewGen++
	gen := d.viewGen
	d.mode = pending
	d.lastErr = ""
	start := d.beginReadLocked()
	d.mu.Unlock()
	d.pub.PublishViewEvent(string(pending.Kind()))

	notes, err := fetch()

	d.mu.Lock()
	d.endReadLocked()
	if gen != d.viewGen {
		d.mu.Unlock()
		d.logger.Debug("discarding superseded view result", "op", op)
		if err != nil {
			return fmt.Errorf("dashboard: %s: %w", op, err)
		}
		return nil
	}
	results := []models.Note{}
	if err == nil {
		results = d.reconcileLocked(notes, start)
	} else {
		d.lastErr = messageOr(err, "Failed to "+op+".")
	}
	d.mode = settled(pending).withResults(results)
	d.mu.Unlock()
	d.pub.PublishViewEvent(string(pending.Kind()))

	if err != nil {
		return fmt.Errorf("dashboard: %s: %w", op, err)
	}
	return nil
}

func settled(m Mode) Mode {
	switch v := m.(type) {
	case ModeSearch:
		v.Pending = false
		return v
	case ModeTagFilter:
		v.Pending = false
		return v
	}
	return m
}

func (d *Dashboard) require() (models.User, error) {
	user, err := d.ident.Require()
	if err != nil {
		return models.User{}, fmt.Errorf("dashboard: %w", err)
	}
	return user, nil
}

// owned returns the note when user owns it. Notes without a known owner pass.
func (d *Dashboard) owned(ctx context.Context, id string, user models.User) (models.Note, error) {
	n, err := d.lookup(ctx, id)
	if err != nil {
		return models.Note{}, err
	}
	if n.OwnerID != "" && n.OwnerID != user.ID {
		return models.Note{}, apperr.ErrForbidden
	}
	return n, nil
}

// lookup returns the local copy of id, fetching it when not held.
func (d *Dashboard) lookup(ctx context.Context, id string) (models.Note, error) {
	if n, ok := d.find(id); ok {
		return n, nil
	}
	n, err := d.api.GetNote(ctx, id)
	if err != nil {
		return models.Note{}, err
	}
	return *n, nil
}

func (d *Dashboard) find(id string) (models.Note, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, set := range [][]models.Note{d.personal, d.project, d.shared, d.mode.results()} {
		if i := indexOf(set, id); i >= 0 {
			return set[i], true
		}
	}
	return models.Note{}, false
}

func (d *Dashboard) fail(err error) error {
	d.mu.Lock()
	d.lastErr = apperr.Message(err)
	d.mu.Unlock()
	return err
}

func (d *Dashboard) clearError() {
	d.mu.Lock()
	d.lastErr = ""
	d.mu.Unlock()
}

func (d *Dashboard) issue(id string) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	f := d.flights[id]
	if f == nil {
		f = &flight{}
		d.flights[id] = f
	}
	f.gen++
	f.inflight++
	return f.gen
}

// settleLocked completes gen for id. latest reports whether gen is the newest
// issued; apply reports whether a successful response must be applied, which
// holds unless a later-issued response was applied already.
func (d *Dashboard) settleLocked(id string, gen uint64, ok bool) (latest, apply bool) {
	f := d.flights[id]
	if f == nil {
		return false, false
	}
	latest = f.gen == gen
	if ok && gen > f.applied {
		f.applied = gen
		apply = true
	}
	f.inflight--
	if f.inflight == 0 {
		delete(d.flights, id)
	}
	return latest, apply
}

func (d *Dashboard) beginReadLocked() uint64 {
	d.readers++
	return d.seq
}

func (d *Dashboard) endReadLocked() {
	d.readers--
	if d.readers == 0 {
		clear(d.touched)
	}
}

func (d *Dashboard) touchLocked(id string, t touch) {
	d.seq++
	if d.readers == 0 {
		return
	}
	t.seq = d.seq
	d.touched[id] = t
}

// reconcileLocked overlays mutations applied after start onto a list read
// and removes duplicate ids.
func (d *Dashboard) reconcileLocked(notes []models.Note, start uint64) []models.Note {
	out := make([]models.Note, 0, len(notes))
	for _, n := range dedupe(notes) {
		if t, ok := d.touched[n.ID]; ok && t.seq > start {
			if t.deleted {
				continue
			}
			n = t.note
		}
		out = append(out, n)
	}
	return out
}

// replaceLocked swaps n into every set that already holds it.
func (d *Dashboard) replaceLocked(n models.Note) {
	d.personal, _ = replaceIn(d.personal, n)
	d.project, _ = replaceIn(d.project, n)
	d.shared, _ = replaceIn(d.shared, n)
	if r := d.mode.results(); r != nil {
		r, _ = replaceIn(r, n)
		d.mode = d.mode.withResults(r)
	}
}

// placeLocked is replaceLocked plus reclassification of owned notes between
// the personal and project lists.
func (d *Dashboard) placeLocked(n models.Note, ownerID string) {
	if n.OwnerID != ownerID || !d.loaded {
		d.replaceLocked(n)
		return
	}
	switch n.Kind {
	case models.KindPersonal:
		d.project = removeFrom(d.project, n.ID)
		d.personal = upsertIn(d.personal, n)
	case models.KindProject:
		d.personal = removeFrom(d.personal, n.ID)
		d.project = upsertIn(d.project, n)
	}
	d.shared, _ = replaceIn(d.shared, n)
	if r := d.mode.results(); r != nil {
		r, _ = replaceIn(r, n)
		d.mode = d.mode.withResults(r)
	}
}

func (d *Dashboard) removeLocked(id string) {
	d.personal = removeFrom(d.personal, id)
	d.project = removeFrom(d.project, id)
	d.shared = removeFrom(d.shared, id)
	if r := d.mode.results(); r != nil {
		r = removeFrom(r, id)
		d.mode = d.mode.withResults(r)
	}
}

func messageOr(err error, fallback string) string {
	if msg := apperr.Message(err); msg != "" {
		return msg
	}
	return fallback
}
