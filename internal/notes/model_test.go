package notes

import (
	"errors"
	"strings"
	"testing"

	"github.com/htonioni/smart-note-ai/internal/errs"
)

func TestNewNoteIDValidatesInput(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		want    NoteID
		wantErr bool
	}{
		{name: "positive", input: "7", want: 7},
		{name: "padded", input: " 12 ", want: 12},
		{name: "zero", input: "0", wantErr: true},
		{name: "negative", input: "-3", wantErr: true},
		{name: "text", input: "abc", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			id, err := NewNoteID(testCase.input)
			if testCase.wantErr {
				if !errors.Is(err, ErrInvalidNoteID) {
					t.Fatalf("expected ErrInvalidNoteID, got %v", err)
				}
				if !errs.Is(err, errs.InvalidRequest) {
					t.Fatalf("expected invalid_request kind, got %s", errs.KindOf(err))
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if id != testCase.want {
				t.Fatalf("expected %d, got %d", testCase.want, id)
			}
		})
	}
}

func TestFieldsNormalizeRejectsInvalidContent(t *testing.T) {
	testCases := []struct {
		name   string
		fields Fields
		target error
	}{
		{name: "blank title", fields: Fields{Title: " \t", Body: "body"}, target: ErrInvalidTitle},
		{name: "long title", fields: Fields{Title: strings.Repeat("t", MaxTitleLength+1), Body: "body"}, target: ErrInvalidTitle},
		{name: "blank body", fields: Fields{Title: "title", Body: "\n"}, target: ErrInvalidBody},
		{name: "long body", fields: Fields{Title: "title", Body: strings.Repeat("b", MaxBodyLength+1)}, target: ErrInvalidBody},
		{name: "multi word tag", fields: Fields{Title: "title", Body: "body", Tags: []string{"two words"}}, target: ErrInvalidTags},
		{name: "too many tags", fields: Fields{Title: "title", Body: "body", Tags: []string{"a", "b", "c", "d", "e"}}, target: ErrInvalidTags},
		{name: "long summary", fields: Fields{Title: "title", Body: "body", Summary: StringPointer(strings.Repeat("s", MaxSummaryLength+1))}, target: ErrInvalidSummary},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			_, err := testCase.fields.Normalize()
			if !errors.Is(err, testCase.target) {
				t.Fatalf("expected %v, got %v", testCase.target, err)
			}
			if !errs.Is(err, errs.Validation) {
				t.Fatalf("expected validation kind, got %s", errs.KindOf(err))
			}
		})
	}
}

func TestFieldsNormalizeCountsCharactersNotBytes(t *testing.T) {
	fields := Fields{Title: strings.Repeat("é", MaxTitleLength), Body: "body"}
	if _, err := fields.Normalize(); err != nil {
		t.Fatalf("expected %d multi-byte characters to be accepted: %v", MaxTitleLength, err)
	}
}

func TestFieldsNormalizeCountsDistinctTags(t *testing.T) {
	normalized, err := Fields{
		Title: "title",
		Body:  "body",
		Tags:  []string{"a", "B", "b", "c", " ", "d", "A"},
	}.Normalize()
	if err != nil {
		t.Fatalf("unexpected error for four distinct tags: %v", err)
	}
	if strings.Join(normalized.Tags, ",") != "a,b,c,d" {
		t.Fatalf("unexpected tags %v", normalized.Tags)
	}
}

func TestFieldsNormalizeCleansTagsAndSummary(t *testing.T) {
	normalized, err := Fields{
		Title:   "title",
		Body:    "body",
		Tags:    []string{" Work ", "", "WORK", "ideas"},
		Summary: StringPointer("   "),
	}.Normalize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Join(normalized.Tags, ",") != "work,ideas" {
		t.Fatalf("unexpected tags %v", normalized.Tags)
	}
	if normalized.Summary != nil {
		t.Fatalf("expected blank summary to become absent")
	}
}

func TestNoteCloneDoesNotShareState(t *testing.T) {
	original := Note{ID: 1, Title: "t", Body: "b", Tags: []string{"one"}, Summary: StringPointer("s")}
	copied := original.Clone()
	copied.Tags[0] = "changed"
	*copied.Summary = "changed"
	if original.Tags[0] != "one" || *original.Summary != "s" {
		t.Fatalf("clone shares state with original: %+v", original)
	}
}
