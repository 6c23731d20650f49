package notify

import (
	"context"
	"testing"
	"time"
)

func TestEmitterShowReplacesCurrentMessage(t *testing.T) {
	emitter := NewEmitter()
	if emitter.Current().Visible {
		t.Fatalf("expected hidden slot on construction")
	}

	emitter.Show("Note Created successfully!", SeveritySuccess)
	emitter.Show("Note deleted!", SeverityInfo)

	current := emitter.Current()
	if !current.Visible || current.Message != "Note deleted!" || current.Severity != SeverityInfo {
		t.Fatalf("unexpected slot %+v", current)
	}
}

func TestEmitterDismissHidesMessage(t *testing.T) {
	emitter := NewEmitter()
	emitter.Show("Note updated!", SeveritySuccess)
	emitter.Dismiss()

	current := emitter.Current()
	if current.Visible {
		t.Fatalf("expected slot to be hidden")
	}
	if current.Message != "Note updated!" {
		t.Fatalf("expected message to survive dismissal, got %q", current.Message)
	}
}

func TestEmitterPublishesToSubscribers(t *testing.T) {
	emitter := NewEmitter()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, cleanup := emitter.Subscribe(ctx)
	defer cleanup()

	emitter.Show("Failed to generate AI content", SeverityError)
	emitter.Dismiss()

	select {
	case received := <-stream:
		if received.Message != "Failed to generate AI content" || received.Severity != SeverityError || !received.Visible {
			t.Fatalf("unexpected toast %+v", received)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected toast within deadline")
	}

	select {
	case received := <-stream:
		if received.Visible {
			t.Fatalf("expected dismissal to be published, got %+v", received)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected dismissal within deadline")
	}
}

func TestEmitterClosesStreamOnCleanup(t *testing.T) {
	emitter := NewEmitter()
	stream, cleanup := emitter.Subscribe(context.Background())
	cleanup()
	cleanup()

	emitter.Show("Note deleted!", SeverityInfo)

	select {
	case received, open := <-stream:
		if open {
			t.Fatalf("did not expect toast after cleanup, got %+v", received)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("expected stream to be closed")
	}
}

func TestEmitterClosesStreamWhenContextEnds(t *testing.T) {
	emitter := NewEmitter()
	ctx, cancel := context.WithCancel(context.Background())
	stream, cleanup := emitter.Subscribe(ctx)
	defer cleanup()

	drained := make(chan int)
	go func() {
		count := 0
		for range stream {
			count++
		}
		drained <- count
	}()

	emitter.Show("Note updated!", SeveritySuccess)
	cancel()

	select {
	case <-drained:
	case <-time.After(time.Second):
		t.Fatal("range over stream did not finish after cancellation")
	}
	emitter.Show("after cancel", SeverityInfo)
}

func TestEmitterDropsUpdatesForSlowSubscribers(t *testing.T) {
	emitter := NewEmitter()
	_, cleanup := emitter.Subscribe(context.Background())
	defer cleanup()

	done := make(chan struct{})
	go func() {
		for index := 0; index < subscriberBufferSize*4; index++ {
			emitter.Show("message", SeverityInfo)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("show blocked on a full subscriber")
	}
}
