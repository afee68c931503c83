// Package parser converts between notes and Markdown documents carrying YAML
// frontmatter (title, type, tags).
package parser

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/notedash/internal/models"
)

var tagRe = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)

// frontmatter is the recognised header of a note document. Tags may be a
// YAML list or a comma separated string.
type frontmatter struct {
	Title string    `yaml:"title,omitempty"`
	Type  string    `yaml:"type,omitempty"`
	Tags  yaml.Node `yaml:"tags,omitempty"`
}

// Parse turns a Markdown document into a note body. The title comes from
// frontmatter or the first H1; tags from frontmatter are merged with inline
// #tags; type defaults to personal. The caller sets the owner.
func Parse(data []byte) (models.NoteInput, error) {
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return models.NoteInput{}, err
	}

	kind := models.NoteKind(strings.ToLower(strings.TrimSpace(fm.Type)))
	if kind == "" {
		kind = models.KindPersonal
	}
	if !kind.Valid() {
		return models.NoteInput{}, fmt.Errorf("parser: type %q: must be personal or project", fm.Type)
	}

	tags, err := frontmatterTags(&fm.Tags)
	if err != nil {
		return models.NoteInput{}, err
	}
	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		tags, _ = tags.Add(m[1])
	}

	return models.NoteInput{
		Title:   deriveTitle(fm.Title, body),
		Kind:    kind,
		Content: strings.TrimSpace(body),
		Tags:    tags,
	}, nil
}

// Render writes n as a document that Parse reads back to the same input.
func Render(n models.Note) []byte {
	var buf bytes.Buffer
	header := struct {
		Title string   `yaml:"title"`
		Type  string   `yaml:"type"`
		Tags  []string `yaml:"tags,flow"`
	}{n.Title, string(n.Kind), n.Tags.Strings()}
	out, _ := yaml.Marshal(header)
	buf.WriteString("---\n")
	buf.Write(out)
	buf.WriteString("---\n")
	buf.WriteString(n.Content)
	if !strings.HasSuffix(n.Content, "\n") {
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// splitFrontmatter separates YAML frontmatter (between leading --- lines)
// from the body. Without a closing delimiter the whole input is body.
func splitFrontmatter(data []byte) (frontmatter, string, error) {
	const delim = "---"
	var fm frontmatter
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return fm, string(data), nil
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return fm, string(data), nil
	}

	block := rest[:idx]
	body := strings.TrimLeft(string(rest[idx+1+len(delim):]), "\n\r")

	if err := yaml.Unmarshal(block, &fm); err != nil {
		return fm, "", fmt.Errorf("parser: frontmatter: %w", err)
	}
	return fm, body, nil
}

func frontmatterTags(node *yaml.Node) (models.Tags, error) {
	switch node.Kind {
	case 0:
		return models.Tags{}, nil
	case yaml.ScalarNode:
		return models.NewTags(strings.Split(node.Value, ",")...), nil
	case yaml.SequenceNode:
		var raw []string
		if err := node.Decode(&raw); err != nil {
			return nil, fmt.Errorf("parser: tags: %w", err)
		}
		return models.NewTags(raw...), nil
	}
	return nil, fmt.Errorf("parser: tags: expected a list or a string (line %d)", node.Line)
}

// deriveTitle prefers the frontmatter title, then the first H1 heading.
func deriveTitle(title, body string) string {
	if t := strings.TrimSpace(title); t != "" {
		return t
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
