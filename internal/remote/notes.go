package remote

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/starford/notedash/internal/models"
)

type noteEnvelope struct {
	Message string      `json:"message"`
	Note    models.Note `json:"note"`
}

type notesEnvelope struct {
	Message string        `json:"message"`
	Notes   []models.Note `json:"notes"`
}

func (e notesEnvelope) list() []models.Note {
	if e.Notes == nil {
		return []models.Note{}
	}
	return e.Notes
}

func seg(id string) string { return url.PathEscape(id) }

// CreatePersonalNote creates a note. The API classifies it by in.Kind.
func (c *Client) CreatePersonalNote(ctx context.Context, in models.NoteInput) (*models.Note, error) {
	r, err := jsonRequest("create note", http.MethodPost, "/notes/personal/", withTags(in))
	if err != nil {
		return nil, err
	}
	var env noteEnvelope
	if err := c.do(ctx, r, &env); err != nil {
		return nil, err
	}
	return &env.Note, nil
}

// ListPersonalNotes returns the user's personal notes.
func (c *Client) ListPersonalNotes(ctx context.Context, userID string) ([]models.Note, error) {
	return c.list(ctx, "list personal notes", http.MethodGet, "/notes/personal/"+seg(userID))
}

// ListProjectNotes returns the user's project notes.
func (c *Client) ListProjectNotes(ctx context.Context, userID string) ([]models.Note, error) {
	return c.list(ctx, "list project notes", http.MethodGet, "/notes/projects/"+seg(userID))
}

// ListSharedNotes returns notes other users shared with userID.
func (c *Client) ListSharedNotes(ctx context.Context, userID string) ([]models.Note, error) {
	return c.list(ctx, "list shared notes", http.MethodGet, "/shared-notes/"+seg(userID))
}

func (c *Client) list(ctx context.Context, op, method, path string) ([]models.Note, error) {
	var env notesEnvelope
	if err := c.do(ctx, request{op: op, method: method, path: path}, &env); err != nil {
		return nil, err
	}
	return env.list(), nil
}

// GetNote fetches a single note.
func (c *Client) GetNote(ctx context.Context, noteID string) (*models.Note, error) {
	var env noteEnvelope
	r := request{op: "get note", method: http.MethodGet, path: "/note/" + seg(noteID)}
	if err := c.do(ctx, r, &env); err != nil {
		return nil, err
	}
	return &env.Note, nil
}

// UpdateNote replaces the editable fields of a note.
func (c *Client) UpdateNote(ctx context.Context, noteID string, in models.NoteInput) (*models.Note, error) {
	r, err := jsonRequest("update note", http.MethodPut, "/note/"+seg(noteID), withTags(in))
	if err != nil {
		return nil, err
	}
	var env noteEnvelope
	if err := c.do(ctx, r, &env); err != nil {
		return nil, err
	}
	// The update response echoes the request body, which has no id.
	if env.Note.ID == "" {
		env.Note.ID = noteID
	}
	return &env.Note, nil
}

// DeleteNote removes a note. The confirmation message is returned.
func (c *Client) DeleteNote(ctx context.Context, noteID string) (string, error) {
	var env struct {
		Message string `json:"message"`
	}
	r := request{op: "delete note", method: http.MethodDelete, path: "/note/" + seg(noteID)}
	if err := c.do(ctx, r, &env); err != nil {
		return "", err
	}
	return env.Message, nil
}

// ShareNote grants the account registered under email access to a note.
func (c *Client) ShareNote(ctx context.Context, noteID, email string) (*models.Note, error) {
	r, err := jsonRequest("share note", http.MethodPost, "/share-note/"+seg(noteID), map[string]string{"email": email})
	if err != nil {
		return nil, err
	}
	var env noteEnvelope
	if err := c.do(ctx, r, &env); err != nil {
		return nil, err
	}
	return &env.Note, nil
}

// NotesByTags returns owned and shared notes carrying any of tags.
func (c *Client) NotesByTags(ctx context.Context, userID string, tags []string) ([]models.Note, error) {
	if tags == nil {
		tags = []string{}
	}
	r, err := jsonRequest("filter by tags", http.MethodPost, "/notes/tags/"+seg(userID), tags)
	if err != nil {
		return nil, err
	}
	var env notesEnvelope
	if err := c.do(ctx, r, &env); err != nil {
		return nil, err
	}
	return env.list(), nil
}

// SearchNotes runs a title/content search. The query travels as a
// form-encoded "query" field.
func (c *Client) SearchNotes(ctx context.Context, userID, query string) ([]models.Note, error) {
	form := url.Values{"query": {query}}
	r := request{
		op:          "search",
		method:      http.MethodPost,
		path:        "/notes/search/" + seg(userID),
		body:        strings.NewReader(form.Encode()),
		contentType: "application/x-www-form-urlencoded",
	}
	var env notesEnvelope
	if err := c.do(ctx, r, &env); err != nil {
		return nil, err
	}
	return env.list(), nil
}

func withTags(in models.NoteInput) models.NoteInput {
	if in.Tags == nil {
		in.Tags = models.Tags{}
	}
	return in
}
