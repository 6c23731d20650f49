// Package ai generates tags and a summary for a note through a generative
// language model and validates what the model returns.
package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/htonioni/smart-note-ai/internal/errs"
	"github.com/htonioni/smart-note-ai/internal/notes"
)

const (
	// MaxSummaryLength bounds generated summaries, in characters.
	MaxSummaryLength = 212
	// MaxTags bounds the number of generated tags.
	MaxTags = notes.MaxTags
)

// ErrInvalidResponse indicates that the model answered with content that is
// not a well-formed tags and summary object.
var ErrInvalidResponse = errors.New("ai: invalid model response")

// Content is the enrichment produced for a note.
type Content struct {
	Tags    []string `json:"tags"`
	Summary string   `json:"summary"`
}

type rawContent struct {
	Tags    []string `json:"tags"`
	Summary *string  `json:"summary"`
}

// ParseContent validates a model reply. Replies may be wrapped in markdown
// code fences. Tags are lowercased and deduplicated; summaries longer than
// MaxSummaryLength are cut at a word boundary.
//
// The prompt asks for three or four tags, but any reply with between one and
// MaxTags distinct tags is accepted.
func ParseContent(raw string) (Content, error) {
	payload := stripFences(raw)
	if payload == "" {
		return Content{}, invalidResponse("empty reply")
	}

	decoder := json.NewDecoder(strings.NewReader(payload))
	decoder.DisallowUnknownFields()
	var decoded rawContent
	if err := decoder.Decode(&decoded); err != nil {
		return Content{}, invalidResponse(fmt.Sprintf("reply is not a content object: %v", err))
	}
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return Content{}, invalidResponse("reply has trailing data")
	}

	tags, err := validateTags(decoded.Tags)
	if err != nil {
		return Content{}, err
	}

	if decoded.Summary == nil {
		return Content{}, invalidResponse("summary is missing")
	}
	summary := strings.Join(strings.Fields(*decoded.Summary), " ")
	if summary == "" {
		return Content{}, invalidResponse("summary is empty")
	}

	return Content{Tags: tags, Summary: truncateSummary(summary)}, nil
}

func invalidResponse(reason string) error {
	return errs.Wrap(errs.InvalidResponse, reason, ErrInvalidResponse)
}

func stripFences(raw string) string {
	text := strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(text, "```json"):
		text = strings.TrimPrefix(text, "```json")
	case strings.HasPrefix(text, "```"):
		text = strings.TrimPrefix(text, "```")
	default:
		return text
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

func validateTags(raw []string) ([]string, error) {
	tags := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, candidate := range raw {
		tag := notes.NormalizeTag(candidate)
		if tag == "" {
			continue
		}
		if strings.IndexFunc(tag, isNotTagRune) >= 0 {
			return nil, invalidResponse(fmt.Sprintf("tag %q is not a single word", tag))
		}
		if _, duplicate := seen[tag]; duplicate {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	if len(tags) == 0 {
		return nil, invalidResponse("no tags returned")
	}
	if len(tags) > MaxTags {
		return nil, invalidResponse(fmt.Sprintf("%d tags returned, at most %d allowed", len(tags), MaxTags))
	}
	return tags, nil
}

func isNotTagRune(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func truncateSummary(summary string) string {
	if utf8.RuneCountInString(summary) <= MaxSummaryLength {
		return summary
	}
	cut := string([]rune(summary)[:MaxSummaryLength])
	if boundary := strings.LastIndexByte(cut, ' '); boundary > 0 {
		cut = cut[:boundary]
	}
	return strings.TrimRightFunc(cut, func(r rune) bool {
		return unicode.IsSpace(r) || r == ',' || r == ';' || r == ':'
	})
}
