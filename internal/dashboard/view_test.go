package dashboard

import (
	"testing"

	"github.com/starford/notedash/internal/models"
)

func TestSections(t *testing.T) {
	all := View{Mode: KindAll, Personal: []models.Note{{ID: "1"}}}
	secs := all.Sections()
	if len(secs) != 3 || secs[0].Title != "My Personal Notes" || len(secs[0].Notes) != 1 {
		t.Fatalf("all sections = %+v", secs)
	}

	search := View{Mode: KindSearch, Query: "plan", Pending: true}
	secs = search.Sections()
	if len(secs) != 1 || secs[0].Title != `Search Results for "plan"` || secs[0].Empty != "Processing..." {
		t.Errorf("search section = %+v", secs)
	}
	if secs[0].Notes == nil {
		t.Error("section notes must not be nil")
	}

	filter := View{Mode: KindTagFilter, Tags: []string{"work", "urgent"}, Results: []models.Note{}}
	secs = filter.Sections()
	if secs[0].Title != "Notes Tagged With: work, urgent" || secs[0].Empty != "No notes carry these tags." {
		t.Errorf("filter section = %+v", secs)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	d := New(nil, staticIdentity{})
	d.personal = []models.Note{{ID: "1", Title: "a"}}
	v := d.Snapshot()
	v.Personal[0].Title = "mutated"
	if d.personal[0].Title != "a" {
		t.Error("snapshot shares backing array with dashboard state")
	}
}
