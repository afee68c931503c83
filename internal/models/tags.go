package models

import (
	"errors"
	"slices"
	"strings"
)

// Tags is an ordered set of tag strings. Uniqueness is case-sensitive.
type Tags []string

// NewTags builds a Tags value from raw input, trimming entries and dropping
// blanks and duplicates while keeping first-seen order.
func NewTags(raw ...string) Tags {
	out := make(Tags, 0, len(raw))
	for _, t := range raw {
		out, _ = out.Add(t)
	}
	return out
}

// Add returns the set with tag appended. The bool is false when tag was blank
// or already present, in which case the original set is returned.
func (t Tags) Add(tag string) (Tags, bool) {
	tag = strings.TrimSpace(tag)
	if tag == "" || t.Contains(tag) {
		return t, false
	}
	out := make(Tags, len(t), len(t)+1)
	copy(out, t)
	return append(out, tag), true
}

// Remove returns the set without tag. The bool is false when tag was absent.
func (t Tags) Remove(tag string) (Tags, bool) {
	i := slices.Index(t, tag)
	if i < 0 {
		return t, false
	}
	out := make(Tags, 0, len(t)-1)
	out = append(out, t[:i]...)
	return append(out, t[i+1:]...), true
}

// Contains reports whether tag is in the set.
func (t Tags) Contains(tag string) bool {
	return slices.Contains(t, tag)
}

// Strings returns a copy as a plain slice, never nil.
func (t Tags) Strings() []string {
	if t == nil {
		return []string{}
	}
	return slices.Clone([]string(t))
}

func uniqueTags(value any) error {
	tags, _ := value.(Tags)
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		if strings.TrimSpace(tag) == "" {
			return errors.New("must not contain blank tags")
		}
		if _, dup := seen[tag]; dup {
			return errors.New("must not contain duplicate tags")
		}
		seen[tag] = struct{}{}
	}
	return nil
}
