package notes

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/htonioni/smart-note-ai/internal/errs"
)

const (
	// MaxTitleLength bounds note titles, in characters.
	MaxTitleLength = 60
	// MaxBodyLength bounds note bodies, in characters.
	MaxBodyLength = 1500
	// MaxSummaryLength bounds stored summaries, in characters.
	MaxSummaryLength = 500
	// MaxTags bounds the number of tags attached to a note.
	MaxTags = 4
)

var (
	// ErrInvalidNoteID indicates that a note identifier is not a positive integer.
	ErrInvalidNoteID = errors.New("notes: invalid note id")
	// ErrInvalidTitle indicates that a title is empty or too long.
	ErrInvalidTitle = errors.New("notes: invalid title")
	// ErrInvalidBody indicates that a body is empty or too long.
	ErrInvalidBody = errors.New("notes: invalid body")
	// ErrInvalidTags indicates that the tag list is malformed.
	ErrInvalidTags = errors.New("notes: invalid tags")
	// ErrInvalidSummary indicates that a summary is too long.
	ErrInvalidSummary = errors.New("notes: invalid summary")
)

// NoteID identifies a stored note. Identifiers are assigned by the store.
type NoteID int64

// NewNoteID validates raw input and returns a NoteID.
func NewNoteID(rawInput string) (NoteID, error) {
	value, err := strconv.ParseInt(strings.TrimSpace(rawInput), 10, 64)
	if err != nil || value <= 0 {
		return 0, errs.Wrap(errs.InvalidRequest, fmt.Sprintf("note id %q must be a positive integer", rawInput), ErrInvalidNoteID)
	}
	return NoteID(value), nil
}

// Int64 exposes the raw identifier.
func (id NoteID) Int64() int64 {
	return int64(id)
}

// String returns the decimal form of the identifier.
func (id NoteID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// Note models a persisted note. A nil Tags slice or Summary means the value
// was never generated; an empty slice is a deliberately empty tag list.
type Note struct {
	ID        NoteID    `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Title     string    `gorm:"column:title;size:240;not null" json:"title"`
	Body      string    `gorm:"column:body;type:text;not null" json:"body"`
	Tags      []string  `gorm:"column:tags;type:text;serializer:json" json:"tags"`
	Summary   *string   `gorm:"column:summary;type:text" json:"summary"`
	CreatedAt time.Time `gorm:"column:created_at;not null;autoCreateTime:false" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;autoUpdateTime:false;index:idx_notes_updated" json:"updatedAt"`
}

// TableName provides the explicit table binding for GORM.
func (Note) TableName() string {
	return "notes"
}

// Fields returns the user-editable content of the note.
func (n Note) Fields() Fields {
	return Fields{
		Title:   n.Title,
		Body:    n.Body,
		Tags:    cloneTags(n.Tags),
		Summary: cloneSummary(n.Summary),
	}
}

// Clone returns a deep copy so callers can hand notes out without sharing slices.
func (n Note) Clone() Note {
	copied := n
	copied.Tags = cloneTags(n.Tags)
	copied.Summary = cloneSummary(n.Summary)
	return copied
}

// Fields is the content written by create and update. Updates replace every field.
type Fields struct {
	Title   string
	Body    string
	Tags    []string
	Summary *string
}

// Normalize trims and validates the fields, returning a validation error
// naming the first offending field. Tags are lowercased with blanks and
// duplicates dropped; more than MaxTags distinct tags is an error.
func (f Fields) Normalize() (Fields, error) {
	title := strings.TrimSpace(f.Title)
	if title == "" {
		return Fields{}, errs.Wrap(errs.Validation, "title is required", ErrInvalidTitle)
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return Fields{}, errs.Wrap(errs.Validation, fmt.Sprintf("title exceeds %d characters", MaxTitleLength), ErrInvalidTitle)
	}

	body := strings.TrimSpace(f.Body)
	if body == "" {
		return Fields{}, errs.Wrap(errs.Validation, "body is required", ErrInvalidBody)
	}
	if utf8.RuneCountInString(body) > MaxBodyLength {
		return Fields{}, errs.Wrap(errs.Validation, fmt.Sprintf("body exceeds %d characters", MaxBodyLength), ErrInvalidBody)
	}

	tags, err := normalizeTags(f.Tags)
	if err != nil {
		return Fields{}, err
	}

	var summary *string
	if f.Summary != nil {
		trimmed := strings.TrimSpace(*f.Summary)
		if utf8.RuneCountInString(trimmed) > MaxSummaryLength {
			return Fields{}, errs.Wrap(errs.Validation, fmt.Sprintf("summary exceeds %d characters", MaxSummaryLength), ErrInvalidSummary)
		}
		if trimmed != "" {
			summary = &trimmed
		}
	}

	return Fields{Title: title, Body: body, Tags: tags, Summary: summary}, nil
}

// NormalizeTag lowercases and trims a tag, returning "" for blank input.
func NormalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

func normalizeTags(tags []string) ([]string, error) {
	if tags == nil {
		return nil, nil
	}
	normalized := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		value := NormalizeTag(tag)
		if value == "" {
			continue
		}
		if strings.IndexFunc(value, unicode.IsSpace) >= 0 {
			return nil, errs.Wrap(errs.Validation, fmt.Sprintf("tag %q must be a single word", value), ErrInvalidTags)
		}
		if _, duplicate := seen[value]; duplicate {
			continue
		}
		seen[value] = struct{}{}
		normalized = append(normalized, value)
	}
	if len(normalized) > MaxTags {
		return nil, errs.Wrap(errs.Validation, fmt.Sprintf("at most %d tags are allowed", MaxTags), ErrInvalidTags)
	}
	return normalized, nil
}

func cloneTags(tags []string) []string {
	if tags == nil {
		return nil
	}
	return append(make([]string, 0, len(tags)), tags...)
}

func cloneSummary(summary *string) *string {
	if summary == nil {
		return nil
	}
	value := *summary
	return &value
}

// StringPointer returns a pointer to value.
func StringPointer(value string) *string {
	return &value
}
