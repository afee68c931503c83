package dashboard

import (
	"slices"

	"github.com/starford/notedash/internal/models"
)

// indexOf returns the position of id in notes, or -1.
func indexOf(notes []models.Note, id string) int {
	return slices.IndexFunc(notes, func(n models.Note) bool { return n.ID == id })
}

// replaceIn swaps the copy of n.ID for n. It returns a new slice and whether
// the note was present.
func replaceIn(notes []models.Note, n models.Note) ([]models.Note, bool) {
	i := indexOf(notes, n.ID)
	if i < 0 {
		return notes, false
	}
	out := slices.Clone(notes)
	out[i] = n
	return out, true
}

// removeFrom drops every copy of id.
func removeFrom(notes []models.Note, id string) []models.Note {
	if indexOf(notes, id) < 0 {
		return notes
	}
	return slices.DeleteFunc(slices.Clone(notes), func(n models.Note) bool { return n.ID == id })
}

// upsertIn replaces n in place or appends it.
func upsertIn(notes []models.Note, n models.Note) []models.Note {
	if out, ok := replaceIn(notes, n); ok {
		return out
	}
	return append(slices.Clone(notes), n)
}

// dedupe keeps the first copy of each id and always returns a non-nil slice.
func dedupe(notes []models.Note) []models.Note {
	out := make([]models.Note, 0, len(notes))
	seen := make(map[string]struct{}, len(notes))
	for _, n := range notes {
		if _, dup := seen[n.ID]; dup {
			continue
		}
		seen[n.ID] = struct{}{}
		out = append(out, n)
	}
	return out
}

func cloneNotes(notes []models.Note) []models.Note {
	if notes == nil {
		return nil
	}
	return slices.Clone(notes)
}
