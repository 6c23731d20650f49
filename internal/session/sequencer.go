package session

import (
	"context"
	"sync"

	"github.com/htonioni/smart-note-ai/internal/notes"
)

// sequencer serializes operations per note id. Operations on different ids
// never wait on each other.
type sequencer struct {
	mu    sync.Mutex
	lanes map[notes.NoteID]*lane
}

type lane struct {
	token chan struct{}
	refs  int
}

func newSequencer() *sequencer {
	return &sequencer{lanes: make(map[notes.NoteID]*lane)}
}

// acquire blocks until the lane for id is free or ctx ends. The returned
// release must be called exactly once.
func (s *sequencer) acquire(ctx context.Context, id notes.NoteID) (func(), error) {
	s.mu.Lock()
	current, ok := s.lanes[id]
	if !ok {
		current = &lane{token: make(chan struct{}, 1)}
		s.lanes[id] = current
	}
	current.refs++
	s.mu.Unlock()

	select {
	case current.token <- struct{}{}:
		return func() {
			<-current.token
			s.leave(id, current)
		}, nil
	case <-ctx.Done():
		s.leave(id, current)
		return nil, ctx.Err()
	}
}

func (s *sequencer) leave(id notes.NoteID, current *lane) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current.refs--
	if current.refs == 0 {
		delete(s.lanes, id)
	}
}

// active reports how many lanes are held or awaited.
func (s *sequencer) active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lanes)
}
