package session

import (
	"context"

	"github.com/htonioni/smart-note-ai/internal/ai"
	"github.com/htonioni/smart-note-ai/internal/errs"
	"github.com/htonioni/smart-note-ai/internal/notes"
	"github.com/htonioni/smart-note-ai/internal/notify"
)

// Create stores a new note and prepends it to the collection. When
// aiRequested is set, tags and a summary are generated first; a failed
// generation does not block creation.
func (s *Session) Create(ctx context.Context, title, body string, aiRequested bool) (notes.Note, error) {
	fields, err := notes.Fields{Title: title, Body: body}.Normalize()
	if err != nil {
		s.fail(OperationCreate, 0, err, describeFailure(OperationCreate, err), notify.SeverityWarning)
		return notes.Note{}, err
	}

	s.mu.Lock()
	s.creating++
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.creating--
		s.mu.Unlock()
	}()

	var aiErr error
	if aiRequested {
		content, err := s.generate(ctx, fields.Title, fields.Body)
		if err != nil {
			aiErr = err
			s.fail(OperationEnrich, 0, err, withDetail(messageGenerateFailed, OperationEnrich, err), notify.SeverityWarning)
		} else {
			fields.Tags = content.Tags
			fields.Summary = notes.StringPointer(content.Summary)
		}
	}

	created, err := s.repository.Create(ctx, fields)
	if err != nil {
		s.fail(OperationCreate, 0, err, describeFailure(OperationCreate, err), notify.SeverityError)
		return notes.Note{}, err
	}

	s.prepend(created)
	if aiErr != nil {
		s.notifier.Show(withDetail(messageCreatedWithoutAI, OperationEnrich, aiErr), notify.SeverityWarning)
	} else {
		s.notifier.Show(messageCreated, notify.SeveritySuccess)
	}
	return created.Clone(), nil
}

// Edit sends the full content of note to the repository and, once confirmed,
// replaces the local copy with the stored record.
func (s *Session) Edit(ctx context.Context, note notes.Note) (notes.Note, error) {
	fields, err := note.Fields().Normalize()
	if err != nil {
		s.fail(OperationEdit, note.ID, err, describeFailure(OperationEdit, err), notify.SeverityWarning)
		return notes.Note{}, err
	}

	release, err := s.lanes.acquire(ctx, note.ID)
	if err != nil {
		s.fail(OperationEdit, note.ID, err, describeFailure(OperationEdit, err), notify.SeverityError)
		return notes.Note{}, err
	}
	defer release()
	defer s.track(OperationEdit, note.ID)()

	updated, err := s.repository.Update(ctx, note.ID, fields)
	if err != nil {
		s.fail(OperationEdit, note.ID, err, describeFailure(OperationEdit, err), notify.SeverityError)
		return notes.Note{}, err
	}

	s.replace(updated)
	s.notifier.Show(messageUpdated, notify.SeveritySuccess)
	return updated.Clone(), nil
}

// Delete removes the note from the repository and the collection. A note the
// repository reports missing is dropped locally and Delete returns nil.
func (s *Session) Delete(ctx context.Context, id notes.NoteID) error {
	release, err := s.lanes.acquire(ctx, id)
	if err != nil {
		s.fail(OperationDelete, id, err, describeFailure(OperationDelete, err), notify.SeverityError)
		return err
	}
	defer release()
	defer s.track(OperationDelete, id)()

	err = s.repository.Delete(ctx, id)
	switch {
	case err == nil:
		s.remove(id)
		s.notifier.Show(messageDeleted, notify.SeveritySuccess)
		return nil
	case errs.Is(err, errs.NotFound):
		s.remove(id)
		s.fail(OperationDelete, id, err, messageDeleteNotFound, notify.SeverityWarning)
		return nil
	default:
		s.fail(OperationDelete, id, err, describeFailure(OperationDelete, err), notify.SeverityError)
		return err
	}
}

// Enrich generates tags and a summary for a held note and stores them. The
// collection changes only after both the generation and the update succeed.
func (s *Session) Enrich(ctx context.Context, id notes.NoteID) (notes.Note, error) {
	release, err := s.lanes.acquire(ctx, id)
	if err != nil {
		s.fail(OperationEnrich, id, err, withDetail(messageGenerateFailed, OperationEnrich, err), notify.SeverityError)
		return notes.Note{}, err
	}
	defer release()

	current, ok := s.Note(id)
	if !ok {
		return notes.Note{}, errs.Wrap(errs.NotFound, "note is not loaded", ErrNoteNotLoaded)
	}
	defer s.track(OperationEnrich, id)()

	content, err := s.generate(ctx, current.Title, current.Body)
	if err != nil {
		s.fail(OperationEnrich, id, err, withDetail(messageGenerateFailed, OperationEnrich, err), notify.SeverityError)
		return notes.Note{}, err
	}

	fields := current.Fields()
	fields.Tags = content.Tags
	fields.Summary = notes.StringPointer(content.Summary)

	updated, err := s.repository.Update(ctx, id, fields)
	if err != nil {
		s.fail(OperationEnrich, id, err, withDetail(messageGeneratedUnsaved, OperationEnrich, err), notify.SeverityWarning)
		return notes.Note{}, err
	}

	s.replace(updated)
	s.notifier.Show(messageEnriched, notify.SeveritySuccess)
	return updated.Clone(), nil
}

// ClearSummary removes the summary of a held note, keeping its tags.
func (s *Session) ClearSummary(ctx context.Context, id notes.NoteID) (notes.Note, error) {
	release, err := s.lanes.acquire(ctx, id)
	if err != nil {
		s.fail(OperationClearSummary, id, err, withDetail(messageClearFailed, OperationClearSummary, err), notify.SeverityError)
		return notes.Note{}, err
	}
	defer release()

	current, ok := s.Note(id)
	if !ok {
		return notes.Note{}, errs.Wrap(errs.NotFound, "note is not loaded", ErrNoteNotLoaded)
	}
	defer s.track(OperationClearSummary, id)()

	fields := current.Fields()
	fields.Summary = nil

	updated, err := s.repository.Update(ctx, id, fields)
	if err != nil {
		s.fail(OperationClearSummary, id, err, withDetail(messageClearFailed, OperationClearSummary, err), notify.SeverityError)
		return notes.Note{}, err
	}

	s.replace(updated)
	s.notifier.Show(messageSummaryRemoved, notify.SeveritySuccess)
	return updated.Clone(), nil
}

func (s *Session) generate(ctx context.Context, title, body string) (ai.Content, error) {
	if s.enricher == nil {
		return ai.Content{}, errs.New(errs.Unavailable, messageAIUnconfigured)
	}
	return s.enricher.Generate(ctx, title, body)
}
