package api

import (
	"github.com/starford/notedash/internal/dashboard"
	"github.com/starford/notedash/internal/models"
)

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	Title   string          `json:"title" example:"Groceries" validate:"required"`
	Type    models.NoteKind `json:"type_" example:"personal" enums:"personal,project"`
	Content string          `json:"content" example:"Milk, eggs" validate:"required"`
	Tags    []string        `json:"tags" example:"home,errands"`
}

func (r CreateNoteRequest) input() models.NoteInput {
	return models.NoteInput{Title: r.Title, Kind: r.Type, Content: r.Content, Tags: r.Tags}
}

// UpdateNoteRequest carries the fields to change; omitted fields are kept.
type UpdateNoteRequest = models.NotePatch

// ShareRequest is the request body for sharing a note.
type ShareRequest struct {
	Email string `json:"email" example:"friend@example.com" validate:"required"`
}

// SearchRequest is the request body for a free-text search.
type SearchRequest struct {
	Query string `json:"query" example:"meeting"`
}

// TagRequest is the request body for adding a tag filter.
type TagRequest struct {
	Tag string `json:"tag" example:"work" validate:"required"`
}

// DashboardResponse is the current dashboard state with its display layout.
type DashboardResponse struct {
	View     dashboard.View      `json:"view"`
	Sections []dashboard.Section `json:"sections"`
}

func dashboardResponse(v dashboard.View) DashboardResponse {
	return DashboardResponse{View: v, Sections: v.Sections()}
}
