package logbuf

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
)

func TestBuffer_TailChronological(t *testing.T) {
	b := New(10)
	for i := 0; i < 5; i++ {
		b.Append(fmt.Sprintf("line %d", i))
	}

	got := b.Tail(3)
	want := []string{"line 2", "line 3", "line 4"}
	if len(got) != len(want) {
		t.Fatalf("tail = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("tail[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestBuffer_EvictsOldest(t *testing.T) {
	b := New(3)
	for i := 0; i < 7; i++ {
		b.Append(fmt.Sprintf("line %d", i))
	}

	got := b.Tail(0)
	if len(got) != 3 || got[0] != "line 4" || got[2] != "line 6" {
		t.Fatalf("tail = %v", got)
	}
	// Asking past capacity caps at what is buffered.
	if got := b.Tail(100); len(got) != 3 {
		t.Fatalf("tail(100) = %v", got)
	}
}

func TestBuffer_SubscriberReceivesLines(t *testing.T) {
	b := New(10)
	ch, cancel := b.Subscribe(4)
	defer cancel()

	b.Append("hello")
	if got := <-ch; got != "hello" {
		t.Fatalf("got %q", got)
	}
}

func TestBuffer_StalledSubscriberDropsSilently(t *testing.T) {
	b := New(100)
	ch, cancel := b.Subscribe(2)
	defer cancel()

	// Nobody drains ch; ingestion must not block.
	for i := 0; i < 50; i++ {
		b.Append(fmt.Sprintf("line %d", i))
	}

	// Ring kept everything, the subscriber only its queue's worth.
	if got := b.Tail(0); len(got) != 50 {
		t.Fatalf("ring has %d lines", len(got))
	}
	if len(ch) != 2 {
		t.Fatalf("subscriber queue = %d, want 2", len(ch))
	}
	if got := <-ch; got != "line 0" {
		t.Fatalf("first queued line = %q", got)
	}
}

func TestBuffer_CancelIdempotent(t *testing.T) {
	b := New(10)
	_, cancel := b.Subscribe(1)
	cancel()
	cancel()
	if n := b.Subscribers(); n != 0 {
		t.Fatalf("subscribers = %d", n)
	}
	b.Append("after cancel") // must not panic on the closed channel
}

func TestHandler_TeesToRing(t *testing.T) {
	b := New(10)
	logger := slog.New(NewHandler(slog.NewTextHandler(io.Discard, nil), b))

	logger.Info("session attached", "guild_id", "g1")

	got := b.Tail(1)
	if len(got) != 1 {
		t.Fatal("no line buffered")
	}
	if !strings.Contains(got[0], "INFO") || !strings.Contains(got[0], "session attached") {
		t.Fatalf("line = %q", got[0])
	}
	if !strings.Contains(got[0], "guild_id=g1") {
		t.Fatalf("line missing attr: %q", got[0])
	}
}

func TestHandler_WithAttrsCarriesContext(t *testing.T) {
	b := New(10)
	logger := slog.New(NewHandler(slog.NewTextHandler(io.Discard, nil), b))

	logger.With("component", "worker").Warn("utterance failed")

	got := b.Tail(1)
	if !strings.Contains(got[0], "component=worker") {
		t.Fatalf("line = %q", got[0])
	}
}
