package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/starford/notedash/internal/account"
	"github.com/starford/notedash/internal/dashboard"
	"github.com/starford/notedash/internal/models"
	"github.com/starford/notedash/internal/remote"
	"github.com/starford/notedash/internal/session"
	"github.com/starford/notedash/internal/testutil"
)

type testEnv struct {
	fake   *testutil.FakeAPI
	store  *session.Store
	router http.Handler
}

func newTestEnv(t *testing.T, token string) *testEnv {
	t.Helper()
	fake := testutil.NewFakeAPI(t)
	client, err := remote.New(fake.URL())
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := session.NewStore(testutil.TestStorage(t), logger)
	dash := dashboard.New(client, store, dashboard.WithLogger(logger))
	accounts := account.New(client, store, logger, dash)
	router := NewRouter(Deps{Dashboard: dash, Accounts: accounts, Session: store}, token != "", token)
	return &testEnv{fake: fake, store: store, router: router}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rd)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) login(t *testing.T) models.User {
	t.Helper()
	e.fake.AddUser("ada", "ada@example.com", "pw")
	w := e.do(t, http.MethodPost, "/auth/login", account.LoginForm{Username: "ada", Password: "pw"})
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", w.Code, w.Body.String())
	}
	var u models.User
	_ = json.Unmarshal(w.Body.Bytes(), &u)
	return u
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

func TestAuthMiddleware_TokenMode(t *testing.T) {
	env := newTestEnv(t, "secret")

	if w := env.do(t, http.MethodGet, "/auth/me", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("no token = %d", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/auth/me", nil, "Authorization", "Bearer wrong"); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d", w.Code)
	}
	w := env.do(t, http.MethodGet, "/auth/me", nil, "Authorization", "Bearer secret")
	if w.Code != http.StatusUnauthorized || decode[errResponse](t, w).Error != "You must be logged in." {
		t.Errorf("valid token without session = %d %s", w.Code, w.Body.String())
	}
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	env := newTestEnv(t, "")
	for _, path := range []string{"/dashboard", "/notes/abc"} {
		if w := env.do(t, http.MethodGet, path, nil); w.Code != http.StatusUnauthorized {
			t.Errorf("GET %s = %d, want 401", path, w.Code)
		}
	}
	if env.fake.Calls(testutil.OpGetNote) != 0 {
		t.Error("unauthenticated request reached the remote API")
	}
}

func TestSignupAndLogin(t *testing.T) {
	env := newTestEnv(t, "")

	w := env.do(t, http.MethodPost, "/auth/signup", account.SignupForm{
		Username: "ada", Email: "ada@example.com", Password: "pw", ConfirmPassword: "nope",
	})
	if w.Code != http.StatusBadRequest || decode[errResponse](t, w).Error != "Passwords do not match." {
		t.Fatalf("mismatch = %d %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodPost, "/auth/signup", account.SignupForm{
		Username: "ada", Email: "ada@example.com", Password: "pw", ConfirmPassword: "pw",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("signup = %d %s", w.Code, w.Body.String())
	}
	if env.store.Authenticated() {
		t.Fatal("signup must not log in")
	}

	w = env.do(t, http.MethodPost, "/auth/login", account.LoginForm{Username: "ada", Password: "bad"})
	if w.Code != http.StatusUnauthorized || decode[errResponse](t, w).Error != "Invalid username or password" {
		t.Fatalf("bad login = %d %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodPost, "/auth/login", account.LoginForm{Username: "ada", Password: "pw"})
	if w.Code != http.StatusOK {
		t.Fatalf("login = %d", w.Code)
	}
	w = env.do(t, http.MethodGet, "/auth/me", nil)
	if w.Code != http.StatusOK || decode[models.User](t, w).Username != "ada" {
		t.Errorf("me = %d %s", w.Code, w.Body.String())
	}

	if w := env.do(t, http.MethodPost, "/auth/logout", nil); w.Code != http.StatusNoContent {
		t.Errorf("logout = %d", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/dashboard", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("dashboard after logout = %d", w.Code)
	}
}

func TestNoteLifecycle(t *testing.T) {
	env := newTestEnv(t, "")
	env.login(t)
	env.fake.AddUser("bob", "bob@example.com", "pw")

	w := env.do(t, http.MethodPost, "/notes", CreateNoteRequest{Title: "Plan", Content: "steps", Tags: []string{"work"}})
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d %s", w.Code, w.Body.String())
	}
	note := decode[models.Note](t, w)

	w = env.do(t, http.MethodPost, "/notes", CreateNoteRequest{Title: "", Content: "x"})
	if w.Code != http.StatusBadRequest || decode[errResponse](t, w).Error != "Title and content are required." {
		t.Errorf("invalid create = %d %s", w.Code, w.Body.String())
	}

	dash := decode[DashboardResponse](t, env.do(t, http.MethodGet, "/dashboard", nil))
	if len(dash.View.Personal) != 1 || len(dash.Sections) != 3 || dash.Sections[0].Title != "My Personal Notes" {
		t.Fatalf("dashboard = %+v", dash)
	}

	title := "Plan v2"
	w = env.do(t, http.MethodPut, "/notes/"+note.ID, UpdateNoteRequest{Title: &title})
	if w.Code != http.StatusOK || decode[models.Note](t, w).Title != "Plan v2" {
		t.Fatalf("update = %d %s", w.Code, w.Body.String())
	}

	if w := env.do(t, http.MethodGet, "/notes/"+note.ID, nil); w.Code != http.StatusOK {
		t.Errorf("get = %d", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/notes/ffffffffffffffffffffffff", nil); w.Code != http.StatusNotFound {
		t.Errorf("get missing = %d", w.Code)
	}

	w = env.do(t, http.MethodPost, "/notes/"+note.ID+"/share", ShareRequest{Email: "nobody@example.com"})
	if w.Code != http.StatusNotFound || decode[errResponse](t, w).Error != "User with this email does not exist" {
		t.Errorf("share unknown = %d %s", w.Code, w.Body.String())
	}
	if w := env.do(t, http.MethodPost, "/notes/"+note.ID+"/share", ShareRequest{Email: "bob@example.com"}); w.Code != http.StatusOK {
		t.Errorf("share = %d %s", w.Code, w.Body.String())
	}

	if w := env.do(t, http.MethodDelete, "/notes/"+note.ID, nil); w.Code != http.StatusBadRequest {
		t.Errorf("unconfirmed delete = %d", w.Code)
	}
	if env.fake.Calls(testutil.OpDeleteNote) != 0 {
		t.Error("unconfirmed delete reached remote")
	}
	if w := env.do(t, http.MethodDelete, "/notes/"+note.ID+"?confirm=true", nil); w.Code != http.StatusNoContent {
		t.Errorf("delete = %d %s", w.Code, w.Body.String())
	}
	if _, ok := env.fake.Note(note.ID); ok {
		t.Error("note still stored remotely")
	}
}

func TestSearchAndFilters(t *testing.T) {
	env := newTestEnv(t, "")
	u := env.login(t)
	env.fake.AddNote(models.NoteInput{OwnerID: u.ID, Title: "Standup", Kind: models.KindPersonal, Content: "daily", Tags: models.Tags{"work"}})
	env.fake.AddNote(models.NoteInput{OwnerID: u.ID, Title: "Shopping", Kind: models.KindPersonal, Content: "milk", Tags: models.Tags{"home"}})

	dash := decode[DashboardResponse](t, env.do(t, http.MethodPost, "/search", SearchRequest{Query: "milk"}))
	if dash.View.Mode != dashboard.KindSearch || len(dash.View.Results) != 1 || dash.Sections[0].Title != `Search Results for "milk"` {
		t.Fatalf("search = %+v", dash)
	}

	dash = decode[DashboardResponse](t, env.do(t, http.MethodPost, "/filters/tags", TagRequest{Tag: "work"}))
	if dash.View.Mode != dashboard.KindTagFilter || dash.View.Query != "" || len(dash.View.Results) != 1 {
		t.Fatalf("filter = %+v", dash.View)
	}

	dash = decode[DashboardResponse](t, env.do(t, http.MethodDelete, "/filters/tags/work", nil))
	if dash.View.Mode != dashboard.KindAll {
		t.Errorf("after removing last tag mode = %s", dash.View.Mode)
	}

	if w := env.do(t, http.MethodPost, "/filters/tags", TagRequest{Tag: " "}); w.Code != http.StatusBadRequest {
		t.Errorf("blank tag = %d", w.Code)
	}
}

func TestRemoteFailureMapsToBadGateway(t *testing.T) {
	env := newTestEnv(t, "")
	env.login(t)
	env.fake.FailNext(testutil.OpListPersonal, http.StatusInternalServerError, "database unavailable")

	w := env.do(t, http.MethodPost, "/dashboard/reload", nil)
	if w.Code != http.StatusBadGateway || decode[errResponse](t, w).Error != "database unavailable" {
		t.Fatalf("reload = %d %s", w.Code, w.Body.String())
	}
	dash := decode[DashboardResponse](t, env.do(t, http.MethodGet, "/dashboard", nil))
	if dash.View.Error != "database unavailable" {
		t.Errorf("banner = %q", dash.View.Error)
	}
	if w := env.do(t, http.MethodDelete, "/dashboard/error", nil); w.Code != http.StatusNoContent {
		t.Errorf("dismiss = %d", w.Code)
	}
	if dash := decode[DashboardResponse](t, env.do(t, http.MethodGet, "/dashboard", nil)); dash.View.Error != "" {
		t.Errorf("banner after dismiss = %q", dash.View.Error)
	}
}

func TestInvalidJSON(t *testing.T) {
	env := newTestEnv(t, "")
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString("{"))
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d", w.Code)
	}
}

func TestLoginLoadsDashboard(t *testing.T) {
	env := newTestEnv(t, "")
	u := env.fake.AddUser("ada", "ada@example.com", "pw")
	env.fake.AddNote(models.NoteInput{OwnerID: u.ID, Title: "Standup", Kind: models.KindPersonal, Content: "daily"})

	if w := env.do(t, http.MethodPost, "/auth/login", account.LoginForm{Username: "ada", Password: "pw"}); w.Code != http.StatusOK {
		t.Fatalf("login = %d %s", w.Code, w.Body.String())
	}
	if c := env.fake.Calls(testutil.OpListPersonal); c != 1 {
		t.Errorf("personal list calls = %d", c)
	}
	dash := decode[DashboardResponse](t, env.do(t, http.MethodGet, "/dashboard", nil))
	if !dash.View.Loaded || len(dash.View.Personal) != 1 || dash.View.Personal[0].Title != "Standup" {
		t.Errorf("dashboard after login = %+v", dash.View)
	}
}

func TestForeignNoteMutationIsForbidden(t *testing.T) {
	env := newTestEnv(t, "")
	u := env.login(t)
	bob := env.fake.AddUser("bob", "bob@example.com", "pw")
	note := env.fake.AddNote(models.NoteInput{OwnerID: bob.ID, Title: "Bob's", Kind: models.KindPersonal, Content: "x"}, u.ID)

	title := "Mine now"
	w := env.do(t, http.MethodPut, "/notes/"+note.ID, UpdateNoteRequest{Title: &title})
	if w.Code != http.StatusForbidden || decode[errResponse](t, w).Error != "Only the owner can change this note." {
		t.Errorf("update foreign = %d %s", w.Code, w.Body.String())
	}
	if w := env.do(t, http.MethodDelete, "/notes/"+note.ID+"?confirm=true", nil); w.Code != http.StatusForbidden {
		t.Errorf("delete foreign = %d", w.Code)
	}
	if _, ok := env.fake.Note(note.ID); !ok {
		t.Error("foreign note was deleted")
	}
}
