package ai

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/htonioni/smart-note-ai/internal/errs"
)

func TestParseContentAcceptsFencedJSON(t *testing.T) {
	testCases := map[string]string{
		"plain":      `{"tags":["Grocery","weekly"],"summary":"Weekly shopping list"}`,
		"json fence": "```json\n{\"tags\":[\"grocery\",\"weekly\"],\"summary\":\"Weekly shopping list\"}\n```",
		"bare fence": "```\n{\"tags\":[\"grocery\",\"weekly\"],\"summary\":\"Weekly shopping list\"}\n```",
		"padded":     "  \n {\"tags\":[\" grocery \",\"WEEKLY\",\"weekly\"],\"summary\":\"  Weekly   shopping list \"}\n",
	}

	for name, raw := range testCases {
		t.Run(name, func(t *testing.T) {
			content, err := ParseContent(raw)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if strings.Join(content.Tags, ",") != "grocery,weekly" {
				t.Fatalf("unexpected tags %v", content.Tags)
			}
			if content.Summary != "Weekly shopping list" {
				t.Fatalf("unexpected summary %q", content.Summary)
			}
		})
	}
}

func TestParseContentRejectsMalformedReplies(t *testing.T) {
	testCases := map[string]string{
		"empty":           "   ",
		"not json":        "Here are your tags: grocery, weekly",
		"unknown field":   `{"tags":["a"],"summary":"s","confidence":0.9}`,
		"trailing data":   `{"tags":["a"],"summary":"s"} {"tags":[]}`,
		"missing summary": `{"tags":["a"]}`,
		"blank summary":   `{"tags":["a"],"summary":"   "}`,
		"no tags":         `{"tags":[],"summary":"s"}`,
		"too many tags":   `{"tags":["a","b","c","d","e"],"summary":"s"}`,
		"phrase tag":      `{"tags":["to do"],"summary":"s"}`,
		"symbol tag":      `{"tags":["c++"],"summary":"s"}`,
		"wrong type":      `{"tags":"a,b","summary":"s"}`,
	}

	for name, raw := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseContent(raw)
			if !errors.Is(err, ErrInvalidResponse) {
				t.Fatalf("expected ErrInvalidResponse, got %v", err)
			}
			if !errs.Is(err, errs.InvalidResponse) {
				t.Fatalf("expected invalid_response kind, got %s", errs.KindOf(err))
			}
		})
	}
}

func TestParseContentAcceptsShortTagLists(t *testing.T) {
	content, err := ParseContent(`{"tags":["Recipe","recipe"],"summary":"Bread recipe."}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(content.Tags) != 1 || content.Tags[0] != "recipe" {
		t.Fatalf("unexpected tags %v", content.Tags)
	}
}

func TestParseContentTruncatesLongSummaryAtWordBoundary(t *testing.T) {
	summary := strings.Repeat("insight ", 60)
	content, err := ParseContent(`{"tags":["notes"],"summary":"` + summary + `"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if utf8.RuneCountInString(content.Summary) > MaxSummaryLength {
		t.Fatalf("summary has %d characters", utf8.RuneCountInString(content.Summary))
	}
	if strings.HasSuffix(content.Summary, " ") || !strings.HasSuffix(content.Summary, "insight") {
		t.Fatalf("summary not cut at a word boundary: %q", content.Summary)
	}
}

func TestBuildPromptEmbedsNote(t *testing.T) {
	prompt := BuildPrompt("  Groceries ", "Milk, eggs, bread")
	if !strings.Contains(prompt, `Note Title: "Groceries"`) {
		t.Fatalf("prompt missing title: %s", prompt)
	}
	if !strings.Contains(prompt, `Note Content: "Milk, eggs, bread"`) {
		t.Fatalf("prompt missing body: %s", prompt)
	}
	if !strings.Contains(prompt, "212 characters maximum") {
		t.Fatalf("prompt missing summary bound")
	}
}
