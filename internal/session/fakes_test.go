package session

import (
	"context"
	"sync"
	"time"

	"github.com/htonioni/smart-note-ai/internal/ai"
	"github.com/htonioni/smart-note-ai/internal/errs"
	"github.com/htonioni/smart-note-ai/internal/notes"
)

var (
	testLocation = time.FixedZone("test-local", -5*60*60)
	testNow      = time.Date(2024, time.March, 15, 11, 0, 0, 0, testLocation)
)

func fixedClock() time.Time {
	return testNow
}

type fakeRepository struct {
	mu      sync.Mutex
	stored  map[notes.NoteID]notes.Note
	order   []notes.NoteID
	nextID  notes.NoteID
	updates []notes.Fields
	creates []notes.Fields
	deletes []notes.NoteID

	listErr   error
	createErr error
	updateErr error
	deleteErr error

	updateStarted chan notes.NoteID
	updateGate    chan struct{}
}

func newFakeRepository(seed ...notes.Note) *fakeRepository {
	repository := &fakeRepository{stored: make(map[notes.NoteID]notes.Note)}
	for _, note := range seed {
		repository.stored[note.ID] = note.Clone()
		repository.order = append(repository.order, note.ID)
		if note.ID > repository.nextID {
			repository.nextID = note.ID
		}
	}
	return repository
}

func (r *fakeRepository) List(context.Context) ([]notes.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	listed := make([]notes.Note, 0, len(r.order))
	for _, id := range r.order {
		listed = append(listed, r.stored[id].Clone())
	}
	return listed, nil
}

func (r *fakeRepository) Create(_ context.Context, fields notes.Fields) (notes.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creates = append(r.creates, fields)
	if r.createErr != nil {
		return notes.Note{}, r.createErr
	}
	r.nextID++
	note := notes.Note{
		ID:        r.nextID,
		Title:     fields.Title,
		Body:      fields.Body,
		Tags:      fields.Tags,
		Summary:   fields.Summary,
		CreatedAt: testNow,
		UpdatedAt: testNow,
	}
	r.stored[note.ID] = note.Clone()
	r.order = append([]notes.NoteID{note.ID}, r.order...)
	return note, nil
}

func (r *fakeRepository) Update(_ context.Context, id notes.NoteID, fields notes.Fields) (notes.Note, error) {
	if r.updateStarted != nil {
		r.updateStarted <- id
	}
	if r.updateGate != nil {
		<-r.updateGate
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, fields)
	if r.updateErr != nil {
		return notes.Note{}, r.updateErr
	}
	existing, ok := r.stored[id]
	if !ok {
		return notes.Note{}, errs.New(errs.NotFound, "note not found")
	}
	existing.Title = fields.Title
	existing.Body = fields.Body
	existing.Tags = fields.Tags
	existing.Summary = fields.Summary
	existing.UpdatedAt = existing.UpdatedAt.Add(time.Minute)
	r.stored[id] = existing.Clone()
	return existing, nil
}

func (r *fakeRepository) Delete(_ context.Context, id notes.NoteID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deletes = append(r.deletes, id)
	if r.deleteErr != nil {
		return r.deleteErr
	}
	if _, ok := r.stored[id]; !ok {
		return errs.New(errs.NotFound, "note not found")
	}
	delete(r.stored, id)
	return nil
}

func (r *fakeRepository) updateCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.updates)
}

type fakeEnricher struct {
	mu      sync.Mutex
	content ai.Content
	err     error
	calls   int
}

func (e *fakeEnricher) Generate(_ context.Context, title, body string) (ai.Content, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.err != nil {
		return ai.Content{}, e.err
	}
	return ai.Content{Tags: append([]string(nil), e.content.Tags...), Summary: e.content.Summary}, nil
}

func (e *fakeEnricher) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}
