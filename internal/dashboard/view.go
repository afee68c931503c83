package dashboard

import (
	"fmt"
	"strings"

	"github.com/starford/notedash/internal/models"
)

// View is an immutable copy of the dashboard state.
type View struct {
	Mode     ModeKind      `json:"mode"`
	Query    string        `json:"query,omitempty"`
	Tags     []string      `json:"tags,omitempty"`
	Results  []models.Note `json:"results,omitempty"`
	Pending  bool          `json:"pending"`
	Personal []models.Note `json:"personal"`
	Project  []models.Note `json:"project"`
	Shared   []models.Note `json:"shared"`
	Loaded   bool          `json:"loaded"`
	Loading  bool          `json:"loading"`
	Stale    bool          `json:"stale"`
	Error    string        `json:"error,omitempty"`
}

// Section is one titled list of the rendered dashboard.
type Section struct {
	Title string        `json:"title"`
	Notes []models.Note `json:"notes"`
	Empty string        `json:"empty,omitempty"`
}

// Snapshot returns a copy of the current state safe to read without locking.
func (d *Dashboard) Snapshot() View {
	d.mu.Lock()
	defer d.mu.Unlock()

	v := View{
		Mode:     d.mode.Kind(),
		Personal: orEmpty(d.personal),
		Project:  orEmpty(d.project),
		Shared:   orEmpty(d.shared),
		Loaded:   d.loaded,
		Loading:  d.loading > 0,
		Stale:    d.stale,
		Error:    d.lastErr,
	}
	switch m := d.mode.(type) {
	case ModeSearch:
		v.Query = m.Query
		v.Pending = m.Pending
		v.Results = cloneNotes(m.Results)
	case ModeTagFilter:
		v.Tags = m.Tags.Strings()
		v.Pending = m.Pending
		v.Results = cloneNotes(m.Results)
	}
	return v
}

// Sections lays the view out for display: the result list in search and
// tag-filter modes, otherwise the three base lists.
func (v View) Sections() []Section {
	switch v.Mode {
	case KindSearch:
		return []Section{{
			Title: fmt.Sprintf("Search Results for %q", v.Query),
			Notes: orEmpty(v.Results),
			Empty: emptyUnlessPending(v.Pending, "No notes match your search."),
		}}
	case KindTagFilter:
		return []Section{{
			Title: "Notes Tagged With: " + strings.Join(v.Tags, ", "),
			Notes: orEmpty(v.Results),
			Empty: emptyUnlessPending(v.Pending, "No notes carry these tags."),
		}}
	}
	return []Section{
		{Title: "My Personal Notes", Notes: v.Personal, Empty: "You have no personal notes yet."},
		{Title: "My Project Notes", Notes: v.Project, Empty: "You have no project notes yet."},
		{Title: "Notes Shared With Me", Notes: v.Shared, Empty: "No notes have been shared with you."},
	}
}

func emptyUnlessPending(pending bool, msg string) string {
	if pending {
		return "Processing..."
	}
	return msg
}

func orEmpty(notes []models.Note) []models.Note {
	if notes == nil {
		return []models.Note{}
	}
	return cloneNotes(notes)
}
