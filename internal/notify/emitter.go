// Package notify holds the single user-facing status message of a session.
package notify

import (
	"context"
	"sync"
)

// Severity classifies a notification for display.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

const subscriberBufferSize = 16

// Toast is the content of the notification slot.
type Toast struct {
	Visible  bool
	Message  string
	Severity Severity
}

// Emitter keeps the most recent notification. A new Show overwrites the
// current one; there is no queue. Subscribers receive every change on a
// buffered stream and miss updates while their buffer is full.
type Emitter struct {
	mu          sync.RWMutex
	current     Toast
	subscribers map[int64]chan Toast
	nextID      int64
}

// NewEmitter returns an emitter with an empty, hidden slot.
func NewEmitter() *Emitter {
	return &Emitter{subscribers: make(map[int64]chan Toast)}
}

// Show replaces the slot content and makes it visible.
func (e *Emitter) Show(message string, severity Severity) {
	e.update(Toast{Visible: true, Message: message, Severity: severity})
}

// Dismiss hides the current notification, keeping its content.
func (e *Emitter) Dismiss() {
	e.mu.RLock()
	toast := e.current
	e.mu.RUnlock()
	if !toast.Visible {
		return
	}
	toast.Visible = false
	e.update(toast)
}

// Current returns the slot content.
func (e *Emitter) Current() Toast {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.current
}

// Subscribe streams slot changes until ctx ends or the returned cleanup runs,
// after which the stream is closed.
func (e *Emitter) Subscribe(ctx context.Context) (<-chan Toast, func()) {
	stream := make(chan Toast, subscriberBufferSize)

	e.mu.Lock()
	e.nextID++
	subscriberID := e.nextID
	e.subscribers[subscriberID] = stream
	e.mu.Unlock()

	stopped := make(chan struct{})
	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.subscribers, subscriberID)
			close(stream)
			e.mu.Unlock()
			close(stopped)
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			cleanup()
		case <-stopped:
		}
	}()
	return stream, cleanup
}

// Sends happen under the lock and never block.
func (e *Emitter) update(toast Toast) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.current = toast
	for _, stream := range e.subscribers {
		select {
		case stream <- toast:
		default:
		}
	}
}
