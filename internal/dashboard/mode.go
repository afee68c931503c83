package dashboard

import (
	"github.com/starford/notedash/internal/models"
)

// ModeKind names the display mode variant.
type ModeKind string

const (
	KindAll       ModeKind = "all"
	KindSearch    ModeKind = "search"
	KindTagFilter ModeKind = "tag_filter"
)

// Mode is the display mode: ModeAll, ModeSearch or ModeTagFilter. Holding a
// single Mode value makes an active search and an active tag filter
// mutually exclusive.
type Mode interface {
	Kind() ModeKind
	results() []models.Note
	withResults([]models.Note) Mode
}

// ModeAll shows the three base lists.
type ModeAll struct{}

// ModeSearch shows the result of a free-text search. Results is nil while
// Pending and a non-nil (possibly empty) slice once answered.
type ModeSearch struct {
	Query   string
	Results []models.Note
	Pending bool
}

// ModeTagFilter shows notes carrying any of Tags.
type ModeTagFilter struct {
	Tags    models.Tags
	Results []models.Note
	Pending bool
}

func (ModeAll) Kind() ModeKind       { return KindAll }
func (ModeSearch) Kind() ModeKind    { return KindSearch }
func (ModeTagFilter) Kind() ModeKind { return KindTagFilter }

func (ModeAll) results() []models.Note         { return nil }
func (m ModeSearch) results() []models.Note    { return m.Results }
func (m ModeTagFilter) results() []models.Note { return m.Results }

func (m ModeAll) withResults([]models.Note) Mode { return m }

func (m ModeSearch) withResults(r []models.Note) Mode {
	m.Results = r
	return m
}

func (m ModeTagFilter) withResults(r []models.Note) Mode {
	m.Results = r
	return m
}

// activeTags returns the filter tags when m is a tag filter.
func activeTags(m Mode) models.Tags {
	if f, ok := m.(ModeTagFilter); ok {
		return f.Tags
	}
	return nil
}
