// Package session owns the notes of one user session: the in-memory
// collection, the search query over it, the per-operation in-flight sets, and
// the coordinators that reconcile local state with the persistence and AI
// collaborators.
//
// Local state changes only after the collaborator confirms the change. The
// one exception is Delete, which also drops the note locally when the store
// reports it missing. Operations on the same note id run one at a time;
// operations on different ids run concurrently.
package session

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/htonioni/smart-note-ai/internal/ai"
	"github.com/htonioni/smart-note-ai/internal/errs"
	"github.com/htonioni/smart-note-ai/internal/notes"
	"github.com/htonioni/smart-note-ai/internal/notify"
	"github.com/htonioni/smart-note-ai/internal/search"
	"go.uber.org/zap"
)

// ErrNoteNotLoaded reports an operation on an id the session does not hold.
var ErrNoteNotLoaded = errors.New("session: note is not loaded")

var errMissingRepository = errors.New("session: repository is required")

// Repository is the persistence collaborator.
type Repository interface {
	List(ctx context.Context) ([]notes.Note, error)
	Create(ctx context.Context, fields notes.Fields) (notes.Note, error)
	Update(ctx context.Context, id notes.NoteID, fields notes.Fields) (notes.Note, error)
	Delete(ctx context.Context, id notes.NoteID) error
}

// Enricher is the AI collaborator.
type Enricher interface {
	Generate(ctx context.Context, title, body string) (ai.Content, error)
}

// Config describes the collaborators of a Session. Enricher may be nil, in
// which case AI operations fail as unavailable. Notifier defaults to a fresh
// emitter, Logger to a no-op logger, and Clock to time.Now.
type Config struct {
	Repository Repository
	Enricher   Enricher
	Notifier   *notify.Emitter
	Logger     *zap.Logger
	Clock      func() time.Time
}

// Session is safe for concurrent use.
type Session struct {
	repository Repository
	enricher   Enricher
	notifier   *notify.Emitter
	logger     *zap.Logger
	clock      func() time.Time
	lanes      *sequencer

	mu       sync.RWMutex
	notes    []notes.Note
	query    string
	loading  bool
	creating int
	inFlight map[Operation]map[notes.NoteID]int
}

// New constructs a Session. The collection starts empty and Loading reports
// true until the first Load completes.
func New(cfg Config) (*Session, error) {
	if cfg.Repository == nil {
		return nil, errMissingRepository
	}

	notifier := cfg.Notifier
	if notifier == nil {
		notifier = notify.NewEmitter()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Session{
		repository: cfg.Repository,
		enricher:   cfg.Enricher,
		notifier:   notifier,
		logger:     logger,
		clock:      clock,
		lanes:      newSequencer(),
		loading:    true,
		inFlight:   make(map[Operation]map[notes.NoteID]int),
	}, nil
}

// Notes returns a copy of the collection in display order.
func (s *Session) Notes() []notes.Note {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.notes)
}

// Note returns a copy of the note with id.
func (s *Session) Note(id notes.NoteID) (notes.Note, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	index := s.indexOf(id)
	if index < 0 {
		return notes.Note{}, false
	}
	return s.notes[index].Clone(), true
}

// SetQuery replaces the search query.
func (s *Session) SetQuery(query string) {
	s.mu.Lock()
	s.query = query
	s.mu.Unlock()
}

// Query returns the search query.
func (s *Session) Query() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query
}

// Filtered returns the notes matching the current query, recomputed from the
// current collection on every call.
func (s *Session) Filtered() []notes.Note {
	s.mu.RLock()
	collection := cloneAll(s.notes)
	query := s.query
	s.mu.RUnlock()
	return search.Filter(collection, query, s.clock())
}

// Loading reports whether the initial load has not completed yet.
func (s *Session) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Creating reports whether a Create is in flight.
func (s *Session) Creating() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creating > 0
}

// InFlight returns the ids with an operation of the given kind in flight,
// in ascending order.
func (s *Session) InFlight(operation Operation) []notes.NoteID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]notes.NoteID, 0, len(s.inFlight[operation]))
	for id := range s.inFlight[operation] {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// IsInFlight reports whether an operation of the given kind is in flight for id.
func (s *Session) IsInFlight(operation Operation, id notes.NoteID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inFlight[operation][id] > 0
}

// Notifications exposes the notification slot.
func (s *Session) Notifications() *notify.Emitter {
	return s.notifier
}

// Load replaces the collection with the repository's notes.
func (s *Session) Load(ctx context.Context) error {
	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	loaded, err := s.repository.List(ctx)
	if err != nil {
		s.fail(OperationLoad, 0, err, withDetail("Failed to load notes.", OperationLoad, err), notify.SeverityError)
		return err
	}

	collection := make([]notes.Note, 0, len(loaded))
	seen := make(map[notes.NoteID]struct{}, len(loaded))
	for _, note := range loaded {
		if _, duplicate := seen[note.ID]; duplicate {
			continue
		}
		seen[note.ID] = struct{}{}
		collection = append(collection, note.Clone())
	}

	s.mu.Lock()
	s.notes = collection
	s.mu.Unlock()
	return nil
}

func (s *Session) indexOf(id notes.NoteID) int {
	return slices.IndexFunc(s.notes, func(note notes.Note) bool { return note.ID == id })
}

// prepend inserts note at the front, dropping any stale entry with its id.
func (s *Session) prepend(note notes.Note) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index := s.indexOf(note.ID); index >= 0 {
		s.notes = slices.Delete(s.notes, index, index+1)
	}
	s.notes = slices.Insert(s.notes, 0, note.Clone())
}

// replace swaps in note at the position of its id. Notes no longer held are
// not reinserted.
func (s *Session) replace(note notes.Note) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index := s.indexOf(note.ID); index >= 0 {
		s.notes[index] = note.Clone()
	}
}

func (s *Session) remove(id notes.NoteID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index := s.indexOf(id); index >= 0 {
		s.notes = slices.Delete(s.notes, index, index+1)
	}
}

// track marks id in flight for operation and returns the function clearing it.
func (s *Session) track(operation Operation, id notes.NoteID) func() {
	s.mu.Lock()
	ids, ok := s.inFlight[operation]
	if !ok {
		ids = make(map[notes.NoteID]int)
		s.inFlight[operation] = ids
	}
	ids[id]++
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		ids[id]--
		if ids[id] <= 0 {
			delete(ids, id)
		}
	}
}

func (s *Session) fail(operation Operation, id notes.NoteID, err error, message string, severity notify.Severity) {
	fields := []zap.Field{
		zap.String("operation", string(operation)),
		zap.String("kind", string(errs.KindOf(err))),
		zap.Error(err),
	}
	if id != 0 {
		fields = append(fields, zap.Int64("note_id", id.Int64()))
	}
	if errs.KindOf(err) == errs.Unknown {
		s.logger.Error("note operation failed", fields...)
	} else {
		s.logger.Warn("note operation failed", fields...)
	}
	s.notifier.Show(message, severity)
}

func cloneAll(collection []notes.Note) []notes.Note {
	copies := make([]notes.Note, len(collection))
	for index, note := range collection {
		copies[index] = note.Clone()
	}
	return copies
}
