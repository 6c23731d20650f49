package notes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/htonioni/smart-note-ai/internal/errs"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase = errors.New("database handle is required")
	errNoteNotFound    = errors.New("note not found")
	noOpLogger         = zap.NewNop()
)

// ServiceError carries a dotted operation.reason code alongside its failure kind.
type ServiceError struct {
	code string
	kind errs.Kind
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// Code returns the operation.reason code.
func (e *ServiceError) Code() string {
	return e.code
}

// Kind reports the failure kind for errs.KindOf.
func (e *ServiceError) Kind() errs.Kind {
	return e.kind
}

const (
	opServiceNew = "notes.service.new"
	opListNotes  = "notes.list"
	opGetNote    = "notes.get"
	opCreateNote = "notes.create"
	opUpdateNote = "notes.update"
	opDeleteNote = "notes.delete"

	fieldNoteID = "note_id"

	reasonMissingDatabase = "missing_database"
	reasonInvalidFields   = "invalid_fields"
	reasonNotFound        = "not_found"
	reasonQueryFailed     = "query_failed"
	reasonInsertFailed    = "insert_failed"
	reasonSaveFailed      = "save_failed"
	reasonDeleteFailed    = "delete_failed"
)

func newServiceError(operation, reason string, kind errs.Kind, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, kind: kind, err: cause}
}

// ServiceConfig describes the dependencies of the persistence service.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Service stores notes in the relational database.
type Service struct {
	db     *gorm.DB
	clock  func() time.Time
	logger *zap.Logger
}

// NewService validates the configuration and constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, reasonMissingDatabase, errs.Server, errMissingDatabase)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		db:     cfg.Database,
		clock:  clock,
		logger: logger,
	}, nil
}

// List returns all notes, most recently updated first.
func (s *Service) List(ctx context.Context) ([]Note, error) {
	if s.db == nil {
		s.logError(opListNotes, reasonMissingDatabase, errMissingDatabase)
		return nil, newServiceError(opListNotes, reasonMissingDatabase, errs.Server, errMissingDatabase)
	}

	var stored []Note
	if err := s.db.WithContext(ctx).
		Order("updated_at DESC").
		Order("id DESC").
		Find(&stored).Error; err != nil {
		s.logError(opListNotes, reasonQueryFailed, err)
		return nil, newServiceError(opListNotes, reasonQueryFailed, errs.Server, err)
	}
	return stored, nil
}

// Get returns a single note.
func (s *Service) Get(ctx context.Context, id NoteID) (Note, error) {
	if s.db == nil {
		s.logError(opGetNote, reasonMissingDatabase, errMissingDatabase)
		return Note{}, newServiceError(opGetNote, reasonMissingDatabase, errs.Server, errMissingDatabase)
	}
	return s.find(s.db.WithContext(ctx), opGetNote, id)
}

// Create stores a new note and returns it with its assigned identifier and timestamps.
func (s *Service) Create(ctx context.Context, fields Fields) (Note, error) {
	if s.db == nil {
		s.logError(opCreateNote, reasonMissingDatabase, errMissingDatabase)
		return Note{}, newServiceError(opCreateNote, reasonMissingDatabase, errs.Server, errMissingDatabase)
	}

	normalized, err := fields.Normalize()
	if err != nil {
		return Note{}, newServiceError(opCreateNote, reasonInvalidFields, errs.Validation, err)
	}

	createdAt := s.clock().UTC()
	note := Note{
		Title:     normalized.Title,
		Body:      normalized.Body,
		Tags:      normalized.Tags,
		Summary:   normalized.Summary,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	if err := s.db.WithContext(ctx).Create(&note).Error; err != nil {
		s.logError(opCreateNote, reasonInsertFailed, err)
		return Note{}, newServiceError(opCreateNote, reasonInsertFailed, errs.Server, err)
	}
	return note, nil
}

// Update replaces the content of an existing note. The stored updated_at
// never moves backwards even when the clock does.
func (s *Service) Update(ctx context.Context, id NoteID, fields Fields) (Note, error) {
	if s.db == nil {
		s.logError(opUpdateNote, reasonMissingDatabase, errMissingDatabase)
		return Note{}, newServiceError(opUpdateNote, reasonMissingDatabase, errs.Server, errMissingDatabase)
	}

	normalized, err := fields.Normalize()
	if err != nil {
		return Note{}, newServiceError(opUpdateNote, reasonInvalidFields, errs.Validation, err)
	}

	var updated Note
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.find(tx, opUpdateNote, id)
		if err != nil {
			return err
		}

		updatedAt := s.clock().UTC()
		if updatedAt.Before(existing.UpdatedAt) {
			updatedAt = existing.UpdatedAt
		}

		existing.Title = normalized.Title
		existing.Body = normalized.Body
		existing.Tags = normalized.Tags
		existing.Summary = normalized.Summary
		existing.UpdatedAt = updatedAt

		if err := tx.Save(&existing).Error; err != nil {
			s.logError(opUpdateNote, reasonSaveFailed, err, zap.Int64(fieldNoteID, id.Int64()))
			return newServiceError(opUpdateNote, reasonSaveFailed, errs.Server, err)
		}
		updated = existing
		return nil
	})
	if txErr != nil {
		return Note{}, txErr
	}
	return updated, nil
}

// Delete removes a note.
func (s *Service) Delete(ctx context.Context, id NoteID) error {
	if s.db == nil {
		s.logError(opDeleteNote, reasonMissingDatabase, errMissingDatabase)
		return newServiceError(opDeleteNote, reasonMissingDatabase, errs.Server, errMissingDatabase)
	}

	result := s.db.WithContext(ctx).Delete(&Note{}, id.Int64())
	if result.Error != nil {
		s.logError(opDeleteNote, reasonDeleteFailed, result.Error, zap.Int64(fieldNoteID, id.Int64()))
		return newServiceError(opDeleteNote, reasonDeleteFailed, errs.Server, result.Error)
	}
	if result.RowsAffected == 0 {
		return newServiceError(opDeleteNote, reasonNotFound, errs.NotFound, errNoteNotFound)
	}
	return nil
}

func (s *Service) find(db *gorm.DB, operation string, id NoteID) (Note, error) {
	var note Note
	err := db.Where("id = ?", id.Int64()).Take(&note).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Note{}, newServiceError(operation, reasonNotFound, errs.NotFound, errNoteNotFound)
	}
	if err != nil {
		s.logError(operation, reasonQueryFailed, err, zap.Int64(fieldNoteID, id.Int64()))
		return Note{}, newServiceError(operation, reasonQueryFailed, errs.Server, err)
	}
	return note, nil
}

func (s *Service) loggerOrDefault() *zap.Logger {
	if s == nil {
		return noOpLogger
	}
	if s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("notes service error", attrs...)
}
