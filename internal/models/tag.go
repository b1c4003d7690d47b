package models

import (
	"regexp"
	"sort"
	"strings"
)

const (
	// MaxTagsPerTask is the maximum number of tags a task may carry
	MaxTagsPerTask = 10
	// MaxTagLength is the maximum length of a single tag
	MaxTagLength = 50
)

// TagPattern is the canonical tag format: lowercase alphanumerics and hyphens
var TagPattern = regexp.MustCompile(`^[a-z0-9-]{1,50}$`)

// Tag is a normalized label attached to a task
type Tag = string

// NormalizeTag lowercases and trims a raw tag candidate and strips surrounding
// punctuation left over from natural-language parsing. It does not validate;
// callers check the result against TagPattern.
func NormalizeTag(raw string) string {
	t := strings.ToLower(strings.TrimSpace(raw))
	t = strings.Trim(t, `.,:;!?"'()[]`)
	return t
}

// ValidTag reports whether a normalized tag matches the canonical format
func ValidTag(t string) bool {
	return TagPattern.MatchString(t)
}

// TagSet is a set of unique tags on one task
type TagSet map[string]struct{}

// NewTagSet builds a set from a slice, dropping duplicates
func NewTagSet(tags []string) TagSet {
	s := make(TagSet, len(tags))
	for _, t := range tags {
		s[t] = struct{}{}
	}
	return s
}

// Add inserts a tag. Returns false if the tag is already present.
func (s TagSet) Add(t string) bool {
	if _, ok := s[t]; ok {
		return false
	}
	s[t] = struct{}{}
	return true
}

// Contains reports membership
func (s TagSet) Contains(t string) bool {
	_, ok := s[t]
	return ok
}

// Remove deletes a tag. Returns false if the tag was not present.
func (s TagSet) Remove(t string) bool {
	if _, ok := s[t]; !ok {
		return false
	}
	delete(s, t)
	return true
}

// Len returns the number of tags in the set
func (s TagSet) Len() int { return len(s) }

// Sorted returns the tags as a sorted slice
func (s TagSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
