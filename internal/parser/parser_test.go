package parser

import (
	"slices"
	"testing"

	"github.com/starford/notedash/internal/models"
)

func TestParse_FrontmatterAndBody(t *testing.T) {
	input := []byte("---\ntitle: Hello\ntype: project\ntags:\n  - go\n  - notes\n---\n# Heading\nBody text #go #later.\n")
	in, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in.Title != "Hello" || in.Kind != models.KindProject {
		t.Errorf("title=%q kind=%q", in.Title, in.Kind)
	}
	if !slices.Equal(in.Tags, models.Tags{"go", "notes", "later"}) {
		t.Errorf("tags = %v", in.Tags)
	}
	if in.Content != "# Heading\nBody text #go #later." {
		t.Errorf("content = %q", in.Content)
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	in, err := Parse([]byte("# Just a heading\nSome text.\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in.Title != "Just a heading" || in.Kind != models.KindPersonal {
		t.Errorf("title=%q kind=%q", in.Title, in.Kind)
	}
	if in.Tags == nil {
		t.Error("tags should be empty, not nil")
	}
}

func TestParse_CommaSeparatedTags(t *testing.T) {
	in, err := Parse([]byte("---\ntags: work, urgent ,work\n---\nx\n"))
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(in.Tags, models.Tags{"work", "urgent"}) {
		t.Errorf("tags = %v", in.Tags)
	}
}

func TestParse_Errors(t *testing.T) {
	cases := map[string]string{
		"invalid yaml": "---\n: invalid: yaml: {{{\n---\nBody\n",
		"bad type":     "---\ntype: journal\n---\nBody\n",
		"map tags":     "---\ntags:\n  a: b\n---\nBody\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(doc)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParse_UnclosedFrontmatterIsBody(t *testing.T) {
	in, err := Parse([]byte("---\ntitle: x\nno end"))
	if err != nil {
		t.Fatal(err)
	}
	if in.Title != "" || in.Content == "" {
		t.Errorf("unexpected input: %+v", in)
	}
}

func TestRenderRoundTrip(t *testing.T) {
	n := models.Note{Title: "Plan", Kind: models.KindProject, Content: "Steps", Tags: models.Tags{"a", "b"}}
	in, err := Parse(Render(n))
	if err != nil {
		t.Fatal(err)
	}
	if in.Title != n.Title || in.Kind != n.Kind || in.Content != n.Content || !slices.Equal(in.Tags, n.Tags) {
		t.Errorf("round trip = %+v", in)
	}
}
