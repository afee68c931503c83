// Package models defines the domain types exchanged with the remote notes API.
package models

import (
	"slices"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/notedash/internal/apperr"
)

// NoteKind classifies a note. Only the two variants below are valid.
type NoteKind string

const (
	KindPersonal NoteKind = "personal"
	KindProject  NoteKind = "project"
)

// Valid reports whether k is one of the two known kinds.
func (k NoteKind) Valid() bool {
	return k == KindPersonal || k == KindProject
}

// User is the authenticated identity held by the session store.
type User struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Note is a server-owned note. The client never mutates a Note in place;
// every change replaces it with the server's returned representation.
type Note struct {
	ID         string    `json:"_id"`
	OwnerID    string    `json:"userId"`
	Title      string    `json:"title"`
	Kind       NoteKind  `json:"type_"`
	Content    string    `json:"content"`
	Tags       Tags      `json:"tags"`
	CreatedAt  Timestamp `json:"created_at"`
	UpdatedAt  Timestamp `json:"updated_at"`
	SharedWith []string  `json:"shared_with,omitempty"`
}

// Input returns the wire body that would recreate n as-is.
func (n Note) Input() NoteInput {
	return NoteInput{
		OwnerID: n.OwnerID,
		Title:   n.Title,
		Kind:    n.Kind,
		Content: n.Content,
		Tags:    slices.Clone(n.Tags),
	}
}

// NoteInput is the body of create and update requests.
type NoteInput struct {
	OwnerID string   `json:"userId"`
	Title   string   `json:"title"`
	Kind    NoteKind `json:"type_"`
	Content string   `json:"content"`
	Tags    Tags     `json:"tags"`
}

// Validate blocks submission of incomplete notes before any network call.
func (in *NoteInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Content) == "" {
		return apperr.Invalidf("Title and content are required.")
	}
	return apperr.Invalid(validation.ValidateStruct(in,
		validation.Field(&in.OwnerID, validation.Required),
		validation.Field(&in.Kind, validation.Required, validation.In(KindPersonal, KindProject)),
		validation.Field(&in.Tags, validation.By(uniqueTags)),
	))
}

// NotePatch carries the fields an update changes; nil fields are kept.
type NotePatch struct {
	Title   *string   `json:"title,omitempty"`
	Content *string   `json:"content,omitempty"`
	Kind    *NoteKind `json:"type_,omitempty"`
	Tags    *[]string `json:"tags,omitempty"`
}

// Apply merges p onto the current representation of a note.
func (p NotePatch) Apply(current Note) NoteInput {
	in := current.Input()
	if p.Title != nil {
		in.Title = *p.Title
	}
	if p.Content != nil {
		in.Content = *p.Content
	}
	if p.Kind != nil {
		in.Kind = *p.Kind
	}
	if p.Tags != nil {
		in.Tags = NewTags(*p.Tags...)
	}
	return in
}

// Empty reports whether the patch changes nothing.
func (p NotePatch) Empty() bool {
	return p.Title == nil && p.Content == nil && p.Kind == nil && p.Tags == nil
}
