package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/starford/notedash/internal/apperr"
	"github.com/starford/notedash/internal/models"
	"github.com/starford/notedash/internal/testutil"
)

func testClient(t *testing.T) (*Client, *testutil.FakeAPI) {
	t.Helper()
	api := testutil.NewFakeAPI(t)
	c, err := New(api.URL())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, api
}

func TestNew_InvalidBaseURL(t *testing.T) {
	for _, u := range []string{"", "localhost:8000", "://x"} {
		if _, err := New(u); err == nil {
			t.Errorf("expected error for base URL %q", u)
		}
	}
}

func TestCreateUserAndLogin(t *testing.T) {
	c, _ := testClient(t)
	ctx := context.Background()

	u, err := c.CreateUser(ctx, NewAccount{Username: "ada", Email: "ada@example.com", Password: "pw"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.ID == "" || u.Username != "ada" {
		t.Errorf("user = %+v", u)
	}

	got, err := c.Login(ctx, Credentials{Username: "ada", Password: "pw", Email: "login@example.com"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("login id = %q, want %q", got.ID, u.ID)
	}

	_, err = c.Login(ctx, Credentials{Username: "ada", Password: "wrong", Email: "login@example.com"})
	if !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Fatalf("bad password err = %v", err)
	}
	if apperr.Message(err) != "Invalid username or password" {
		t.Errorf("message = %q", apperr.Message(err))
	}
}

func TestNoteLifecycle(t *testing.T) {
	c, api := testClient(t)
	ctx := context.Background()
	owner := api.AddUser("ada", "ada@example.com", "pw")
	friend := api.AddUser("bob", "bob@example.com", "pw")

	created, err := c.CreatePersonalNote(ctx, models.NoteInput{
		OwnerID: owner.ID, Title: "Plan", Kind: models.KindProject, Content: "ship it",
	})
	if err != nil {
		t.Fatalf("CreatePersonalNote: %v", err)
	}
	if created.ID == "" || created.CreatedAt.IsZero() || created.Tags == nil {
		t.Errorf("created = %+v", created)
	}

	personal, err := c.ListPersonalNotes(ctx, owner.ID)
	if err != nil || len(personal) != 0 {
		t.Fatalf("personal = %v err=%v", personal, err)
	}
	projects, err := c.ListProjectNotes(ctx, owner.ID)
	if err != nil || len(projects) != 1 {
		t.Fatalf("projects = %v err=%v", projects, err)
	}

	in := created.Input()
	in.Title = "Plan v2"
	in.Tags = models.Tags{"work"}
	updated, err := c.UpdateNote(ctx, created.ID, in)
	if err != nil {
		t.Fatalf("UpdateNote: %v", err)
	}
	if updated.ID != created.ID || updated.Title != "Plan v2" {
		t.Errorf("updated = %+v", updated)
	}

	shared, err := c.ShareNote(ctx, created.ID, friend.Email)
	if err != nil {
		t.Fatalf("ShareNote: %v", err)
	}
	if len(shared.SharedWith) != 1 || shared.SharedWith[0] != friend.ID {
		t.Errorf("shared_with = %v", shared.SharedWith)
	}
	withFriend, err := c.ListSharedNotes(ctx, friend.ID)
	if err != nil || len(withFriend) != 1 {
		t.Fatalf("shared list = %v err=%v", withFriend, err)
	}

	got, err := c.GetNote(ctx, created.ID)
	if err != nil || got.Title != "Plan v2" {
		t.Fatalf("GetNote = %+v err=%v", got, err)
	}

	msg, err := c.DeleteNote(ctx, created.ID)
	if err != nil || msg == "" {
		t.Fatalf("DeleteNote msg=%q err=%v", msg, err)
	}
	if _, err := c.GetNote(ctx, created.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("get after delete err = %v", err)
	}
}

func TestShareNote_UnknownRecipient(t *testing.T) {
	c, api := testClient(t)
	owner := api.AddUser("ada", "ada@example.com", "pw")
	n := api.AddNote(models.NoteInput{OwnerID: owner.ID, Title: "t", Kind: models.KindPersonal, Content: "c"})

	_, err := c.ShareNote(context.Background(), n.ID, "nobody@example.com")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
	if apperr.Message(err) != "User with this email does not exist" {
		t.Errorf("message = %q", apperr.Message(err))
	}
}

func TestNotesByTagsAndSearch(t *testing.T) {
	c, api := testClient(t)
	ctx := context.Background()
	owner := api.AddUser("ada", "ada@example.com", "pw")
	api.AddNote(models.NoteInput{OwnerID: owner.ID, Title: "Groceries", Kind: models.KindPersonal, Content: "milk", Tags: models.Tags{"home"}})
	api.AddNote(models.NoteInput{OwnerID: owner.ID, Title: "Sprint", Kind: models.KindProject, Content: "Deploy & test", Tags: models.Tags{"work", "urgent"}})

	byTag, err := c.NotesByTags(ctx, owner.ID, []string{"work", "urgent"})
	if err != nil {
		t.Fatalf("NotesByTags: %v", err)
	}
	if len(byTag) != 1 || byTag[0].Title != "Sprint" {
		t.Errorf("byTag = %v", byTag)
	}
	if tags := api.LastTags(); len(tags) != 2 || tags[0] != "work" || tags[1] != "urgent" {
		t.Errorf("sent tags = %v", tags)
	}

	found, err := c.SearchNotes(ctx, owner.ID, "deploy & TEST")
	if err != nil {
		t.Fatalf("SearchNotes: %v", err)
	}
	if len(found) != 1 || found[0].Title != "Sprint" {
		t.Errorf("found = %v", found)
	}
	if api.LastSearchForm() != "deploy & TEST" {
		t.Errorf("form query = %q", api.LastSearchForm())
	}

	none, err := c.SearchNotes(ctx, owner.ID, "nothing-matches")
	if err != nil {
		t.Fatalf("SearchNotes: %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Errorf("empty result must be a non-nil empty slice, got %#v", none)
	}
}

func TestErrorConvention(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"detail", `{"detail":"Note not found"}`, "Note not found"},
		{"message", `{"message":"gone away"}`, "gone away"},
		{"error", `{"error":"boom"}`, "boom"},
		{"validation list", `{"detail":[{"loc":["body","title"],"msg":"field required"}]}`, "body.title: field required"},
		{"no json", `<html>oops</html>`, "remote API returned HTTP 500"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()
			c, err := New(srv.URL)
			if err != nil {
				t.Fatal(err)
			}
			_, err = c.GetNote(context.Background(), "1")
			var apiErr *apperr.APIError
			if !errors.As(err, &apiErr) || apiErr.Status != 500 {
				t.Fatalf("err = %v", err)
			}
			if got := apperr.Message(err); got != tc.want {
				t.Errorf("message = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestTransportError(t *testing.T) {
	c, api := testClient(t)
	api.DropNext(testutil.OpDeleteNote)
	_, err := c.DeleteNote(context.Background(), "42")
	if !errors.Is(err, apperr.ErrTransport) {
		t.Fatalf("err = %v, want transport error", err)
	}
	if api.Calls(testutil.OpDeleteNote) != 1 {
		t.Errorf("delete must not be retried, calls = %d", api.Calls(testutil.OpDeleteNote))
	}
}

func TestRequestIDHeader(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get(RequestIDHeader)
		_, _ = w.Write([]byte(`{"notes":[]}`))
	}))
	defer srv.Close()
	c, err := New(srv.URL, WithDebugLogging(true))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.ListPersonalNotes(context.Background(), "u1"); err != nil {
		t.Fatalf("ListPersonalNotes: %v", err)
	}
	if len(got) != 36 {
		t.Errorf("request id = %q", got)
	}
}

func TestCanceledContext(t *testing.T) {
	c, api := testClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.GetNote(ctx, "1"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if api.Calls(testutil.OpGetNote) != 0 {
		t.Error("no request should be sent on a canceled context")
	}
}
