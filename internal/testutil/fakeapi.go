package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/notedash/internal/models"
)

// Operation names, matching the remote client's op labels.
const (
	OpCreateAccount = "create account"
	OpLogin         = "login"
	OpCreateNote    = "create note"
	OpListPersonal  = "list personal notes"
	OpListProject   = "list project notes"
	OpListShared    = "list shared notes"
	OpGetNote       = "get note"
	OpUpdateNote    = "update note"
	OpDeleteNote    = "delete note"
	OpShareNote     = "share note"
	OpFilterByTags  = "filter by tags"
	OpSearch        = "search"
)

type fakeUser struct {
	models.User
	password string
}

type gate struct {
	ch   chan struct{}
	once sync.Once
}

func (g *gate) open() { g.once.Do(func() { close(g.ch) }) }

type fault struct {
	status    int
	message   string
	transport bool
}

// FakeAPI is an in-memory implementation of the notes API contract.
type FakeAPI struct {
	Server *httptest.Server

	mu       sync.Mutex
	seq      int
	users    map[string]*fakeUser
	notes    map[string]models.Note
	order    []string
	calls    map[string]int
	faults   map[string][]fault
	gates    map[string][]*gate
	allGates []*gate
	lastTags []string
	lastForm string
	now      func() time.Time
}

// NewFakeAPI starts a fake API server that is closed on cleanup.
func NewFakeAPI(t *testing.T) *FakeAPI {
	t.Helper()
	f := &FakeAPI{
		users:  make(map[string]*fakeUser),
		notes:  make(map[string]models.Note),
		calls:  make(map[string]int),
		faults: make(map[string][]fault),
		gates:  make(map[string][]*gate),
		now:    time.Now,
	}
	// Without keep-alives a dropped connection is never a reused one, so the
	// client transport cannot silently replay the request.
	f.Server = httptest.NewUnstartedServer(f.router())
	f.Server.Config.SetKeepAlivesEnabled(false)
	f.Server.Start()
	t.Cleanup(func() {
		f.ReleaseAll()
		f.Server.Close()
	})
	return f
}

// URL is the base URL of the fake.
func (f *FakeAPI) URL() string { return f.Server.URL }

func (f *FakeAPI) router() http.Handler {
	r := chi.NewRouter()
	r.Post("/users/", f.handle(OpCreateAccount, f.createUser))
	r.Post("/users/login", f.handle(OpLogin, f.login))
	r.Post("/notes/personal/", f.handle(OpCreateNote, f.createNote))
	r.Get("/notes/personal/{userId}", f.handle(OpListPersonal, f.listByKind(models.KindPersonal)))
	r.Get("/notes/projects/{userId}", f.handle(OpListProject, f.listByKind(models.KindProject)))
	r.Get("/shared-notes/{userId}", f.handle(OpListShared, f.listShared))
	r.Get("/note/{noteId}", f.handle(OpGetNote, f.getNote))
	r.Put("/note/{noteId}", f.handle(OpUpdateNote, f.updateNote))
	r.Delete("/note/{noteId}", f.handle(OpDeleteNote, f.deleteNote))
	r.Post("/share-note/{noteId}", f.handle(OpShareNote, f.shareNote))
	r.Post("/notes/tags/{userId}", f.handle(OpFilterByTags, f.notesByTags))
	r.Post("/notes/search/{userId}", f.handle(OpSearch, f.search))
	return r
}

type result struct {
	status int
	body   any
}

func ok(body any) result { return result{status: http.StatusOK, body: body} }

func fail(status int, detail string) result {
	return result{status: status, body: map[string]string{"detail": detail}}
}

// handle counts the call, applies injected faults, computes the response,
// then waits on any gate before writing it.
func (f *FakeAPI) handle(op string, fn func(*http.Request) result) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.calls[op]++
		var flt *fault
		if q := f.faults[op]; len(q) > 0 {
			flt = &q[0]
			f.faults[op] = q[1:]
		}
		var g *gate
		if q := f.gates[op]; len(q) > 0 {
			g = q[0]
			f.gates[op] = q[1:]
		}
		f.mu.Unlock()

		var res result
		if flt == nil {
			res = fn(r)
		}
		if g != nil {
			<-g.ch
		}

		if flt != nil {
			if flt.transport {
				if hj, ok := w.(http.Hijacker); ok {
					conn, _, err := hj.Hijack()
					if err == nil {
						_ = conn.Close()
						return
					}
				}
			}
			res = result{status: flt.status, body: map[string]string{"detail": flt.message}}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(res.status)
		_ = json.NewEncoder(w).Encode(res.body)
	}
}

// FailNext makes the next call to op answer with status and a detail message.
func (f *FakeAPI) FailNext(op string, status int, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults[op] = append(f.faults[op], fault{status: status, message: message})
}

// DropNext makes the next call to op fail at the transport level.
func (f *FakeAPI) DropNext(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults[op] = append(f.faults[op], fault{transport: true})
}

// Hold delays the response of the next call to op until the returned
// release func is called. The request itself is processed immediately.
func (f *FakeAPI) Hold(op string) (release func()) {
	g := &gate{ch: make(chan struct{})}
	f.mu.Lock()
	f.gates[op] = append(f.gates[op], g)
	f.allGates = append(f.allGates, g)
	f.mu.Unlock()
	return g.open
}

// ReleaseAll opens every pending gate.
func (f *FakeAPI) ReleaseAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range f.allGates {
		g.open()
	}
	f.allGates = nil
	clear(f.gates)
}

// Calls returns how many requests op has received.
func (f *FakeAPI) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// LastTags returns the body of the most recent tag-filter request.
func (f *FakeAPI) LastTags() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.lastTags)
}

// LastSearchForm returns the raw form value of the most recent search.
func (f *FakeAPI) LastSearchForm() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastForm
}

// AddUser seeds an account and returns it.
func (f *FakeAPI) AddUser(username, email, password string) models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := &fakeUser{User: models.User{ID: f.nextID(), Username: username, Email: email}, password: password}
	f.users[u.ID] = u
	return u.User
}

// AddNote seeds a note owned by in.OwnerID and returns it.
func (f *FakeAPI) AddNote(in models.NoteInput, sharedWith ...string) models.Note {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.insert(in)
	n.SharedWith = append([]string{}, sharedWith...)
	f.notes[n.ID] = n
	return n
}

// Note returns the stored note with id.
func (f *FakeAPI) Note(id string) (models.Note, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.notes[id]
	return n, ok
}

func (f *FakeAPI) nextID() string {
	f.seq++
	return fmt.Sprintf("%024x", f.seq)
}

func (f *FakeAPI) insert(in models.NoteInput) models.Note {
	now := models.Timestamp{Time: f.now().UTC()}
	n := models.Note{
		ID:         f.nextID(),
		OwnerID:    in.OwnerID,
		Title:      in.Title,
		Kind:       in.Kind,
		Content:    in.Content,
		Tags:       slices.Clone(in.Tags),
		CreatedAt:  now,
		UpdatedAt:  now,
		SharedWith: []string{},
	}
	f.notes[n.ID] = n
	f.order = append(f.order, n.ID)
	return n
}

// each visits stored notes in insertion order.
func (f *FakeAPI) each(fn func(models.Note)) {
	for _, id := range f.order {
		if n, ok := f.notes[id]; ok {
			fn(n)
		}
	}
}

func (f *FakeAPI) createUser(r *http.Request) result {
	var body struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return fail(http.StatusUnprocessableEntity, "invalid body")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == body.Username {
			return fail(http.StatusBadRequest, "Username already exists")
		}
		if u.Email == body.Email {
			return fail(http.StatusBadRequest, "Email already exists")
		}
	}
	u := &fakeUser{User: models.User{ID: f.nextID(), Username: body.Username, Email: body.Email}, password: body.Password}
	f.users[u.ID] = u
	return ok(map[string]any{"message": "User created successfully", "user": u.User})
}

func (f *FakeAPI) login(r *http.Request) result {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Email    string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Email == "" {
		return fail(http.StatusUnprocessableEntity, "invalid body")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == body.Username && u.password == body.Password {
			return ok(map[string]any{"message": "Login successful", "user": u.User})
		}
	}
	return fail(http.StatusUnauthorized, "Invalid username or password")
}

func (f *FakeAPI) createNote(r *http.Request) result {
	var in models.NoteInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		return fail(http.StatusUnprocessableEntity, "invalid body")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.insert(in)
	return ok(map[string]any{"message": "Personal note created successfully", "note": n})
}

func (f *FakeAPI) listByKind(kind models.NoteKind) func(*http.Request) result {
	return func(r *http.Request) result {
		uid := chi.URLParam(r, "userId")
		f.mu.Lock()
		defer f.mu.Unlock()
		out := []models.Note{}
		f.each(func(n models.Note) {
			if n.OwnerID == uid && n.Kind == kind {
				out = append(out, n)
			}
		})
		return ok(map[string]any{"message": "Notes retrieved successfully", "notes": out})
	}
}

func (f *FakeAPI) listShared(r *http.Request) result {
	uid := chi.URLParam(r, "userId")
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Note{}
	f.each(func(n models.Note) {
		if slices.Contains(n.SharedWith, uid) {
			out = append(out, n)
		}
	})
	return ok(map[string]any{"message": "Shared notes retrieved successfully", "notes": out})
}

func (f *FakeAPI) getNote(r *http.Request) result {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, found := f.notes[chi.URLParam(r, "noteId")]
	if !found {
		return fail(http.StatusNotFound, "Note not found")
	}
	return ok(map[string]any{"message": "Note retrieved successfully", "note": n})
}

func (f *FakeAPI) updateNote(r *http.Request) result {
	var in models.NoteInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		return fail(http.StatusUnprocessableEntity, "invalid body")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id := chi.URLParam(r, "noteId")
	n, found := f.notes[id]
	if !found {
		return fail(http.StatusNotFound, "Note not found")
	}
	n.OwnerID = in.OwnerID
	n.Title = in.Title
	n.Kind = in.Kind
	n.Content = in.Content
	n.Tags = slices.Clone(in.Tags)
	n.UpdatedAt = models.Timestamp{Time: f.now().UTC()}
	f.notes[id] = n
	return ok(map[string]any{"message": "Note updated successfully", "note": n})
}

func (f *FakeAPI) deleteNote(r *http.Request) result {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := chi.URLParam(r, "noteId")
	if _, found := f.notes[id]; !found {
		return fail(http.StatusNotFound, "Note not found")
	}
	delete(f.notes, id)
	return ok(map[string]string{"message": "Note deleted successfully"})
}

func (f *FakeAPI) shareNote(r *http.Request) result {
	var body struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return fail(http.StatusUnprocessableEntity, "invalid body")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id := chi.URLParam(r, "noteId")
	n, found := f.notes[id]
	if !found {
		return fail(http.StatusNotFound, "Note not found")
	}
	var target *fakeUser
	for _, u := range f.users {
		if u.Email == body.Email {
			target = u
		}
	}
	if target == nil {
		return fail(http.StatusNotFound, "User with this email does not exist")
	}
	if !slices.Contains(n.SharedWith, target.ID) {
		n.SharedWith = append(slices.Clone(n.SharedWith), target.ID)
	}
	f.notes[id] = n
	return ok(map[string]any{"message": "Note shared successfully", "note": n})
}

func (f *FakeAPI) notesByTags(r *http.Request) result {
	var tags []string
	if err := json.NewDecoder(r.Body).Decode(&tags); err != nil {
		return fail(http.StatusUnprocessableEntity, "invalid body")
	}
	uid := chi.URLParam(r, "userId")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastTags = tags
	out := []models.Note{}
	f.each(func(n models.Note) {
		if n.OwnerID != uid && !slices.Contains(n.SharedWith, uid) {
			return
		}
		for _, t := range tags {
			if n.Tags.Contains(t) {
				out = append(out, n)
				return
			}
		}
	})
	return ok(map[string]any{"message": "Notes by tags retrieved successfully", "notes": out})
}

func (f *FakeAPI) search(r *http.Request) result {
	if err := r.ParseForm(); err != nil {
		return fail(http.StatusUnprocessableEntity, "invalid form")
	}
	query := r.PostForm.Get("query")
	if query == "" {
		return fail(http.StatusUnprocessableEntity, "query: field required")
	}
	uid := chi.URLParam(r, "userId")
	needle := strings.ToLower(query)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastForm = query
	out := []models.Note{}
	f.each(func(n models.Note) {
		if n.OwnerID != uid && !slices.Contains(n.SharedWith, uid) {
			return
		}
		if strings.Contains(strings.ToLower(n.Title), needle) || strings.Contains(strings.ToLower(n.Content), needle) {
			out = append(out, n)
		}
	})
	return ok(map[string]any{"message": "Notes search results", "notes": out})
}
