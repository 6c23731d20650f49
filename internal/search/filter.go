// Package search filters a note collection by free text or by a date query.
package search

import (
	"strings"
	"time"

	"github.com/htonioni/smart-note-ai/internal/datesearch"
	"github.com/htonioni/smart-note-ai/internal/notes"
)

// Filter returns the notes matching query, preserving their order. An empty
// query returns collection itself. Queries recognised as dates match on
// UpdatedAt; anything else is a case-insensitive substring match over title,
// body, tags, and summary. reference anchors relative date queries.
func Filter(collection []notes.Note, query string, reference time.Time) []notes.Note {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return collection
	}

	matches := textMatcher(strings.ToLower(trimmed))
	if dateRange, ok := datesearch.Parse(trimmed, reference); ok {
		matches = func(note notes.Note) bool {
			return dateRange.Contains(note.UpdatedAt)
		}
	}

	filtered := make([]notes.Note, 0, len(collection))
	for _, note := range collection {
		if matches(note) {
			filtered = append(filtered, note)
		}
	}
	return filtered
}

func textMatcher(needle string) func(notes.Note) bool {
	return func(note notes.Note) bool {
		if containsFold(note.Title, needle) || containsFold(note.Body, needle) {
			return true
		}
		for _, tag := range note.Tags {
			if containsFold(tag, needle) {
				return true
			}
		}
		return note.Summary != nil && containsFold(*note.Summary, needle)
	}
}

func containsFold(haystack, lowerNeedle string) bool {
	return strings.Contains(strings.ToLower(haystack), lowerNeedle)
}
