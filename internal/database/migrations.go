package database

import (
	"errors"
	"slices"
	"time"

	"github.com/htonioni/smart-note-ai/internal/notes"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	migrationNormalizeNoteTags = "2026-10-01_normalize_note_tags"

	migrationBatchSize = 200
)

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationNormalizeNoteTags, apply: normalizeNoteTags},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := db.Transaction(migration.apply); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// normalizeNoteTags rewrites tags stored before tag normalization existed:
// lowercased, trimmed, blanks and duplicates dropped.
func normalizeNoteTags(db *gorm.DB) error {
	var batch []notes.Note
	return db.Where("tags IS NOT NULL").FindInBatches(&batch, migrationBatchSize, func(tx *gorm.DB, _ int) error {
		for _, note := range batch {
			cleaned := cleanTags(note.Tags)
			if slices.Equal(cleaned, note.Tags) {
				continue
			}
			note.Tags = cleaned
			if err := tx.Save(&note).Error; err != nil {
				return err
			}
		}
		return nil
	}).Error
}

func cleanTags(tags []string) []string {
	cleaned := make([]string, 0, len(tags))
	for _, tag := range tags {
		value := notes.NormalizeTag(tag)
		if value == "" || slices.Contains(cleaned, value) {
			continue
		}
		cleaned = append(cleaned, value)
	}
	return cleaned
}
