package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/vexofm/vexo/internal/session"
)

func TestSession_GreetFirstSightingOfDay(t *testing.T) {
	f := newFixture(t)
	s := f.registry.Get("g1")
	if err := s.EnsureConnected(context.Background(), "vc1"); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	s.Greet(context.Background(), "u1", "Alice")
	calls := waitForPlays(t, f.sink, 1)

	variants := map[string]bool{
		"Hello Alice":               true,
		"Hey Alice":                 true,
		"Good to see you Alice":     true,
		"Alice has joined the chat": true,
	}
	if got := string(calls[0].Data); !variants[got] {
		t.Fatalf("greeting = %q, want a random variant", got)
	}
	if calls[0].Volume != 0.8 {
		t.Fatalf("volume = %v, want 0.8", calls[0].Volume)
	}
}

func TestSession_GreetRejoinSameDay(t *testing.T) {
	f := newFixture(t)
	s := f.registry.Get("g1")
	if err := s.EnsureConnected(context.Background(), "vc1"); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	s.Greet(context.Background(), "u1", "Alice")
	waitForPlays(t, f.sink, 1)

	s.Greet(context.Background(), "u1", "Alice")
	calls := waitForPlays(t, f.sink, 2)
	if got := string(calls[1].Data); got != "Welcome back Alice" {
		t.Fatalf("rejoin greeting = %q, want Welcome back", got)
	}
}

func TestSession_GreetSkippedWhenDetached(t *testing.T) {
	f := newFixture(t)
	s := f.registry.Get("g1")
	if err := s.EnsureConnected(context.Background(), "vc1"); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	s.Greet(context.Background(), "u1", "Alice")
	if err := s.Disconnect(session.ReasonSlashLeave); err != nil {
		t.Fatalf("disconnect: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	if got := len(f.sink.Calls()); got != 0 {
		t.Fatalf("greeting played after detach: %d calls", got)
	}
}

func TestSession_Farewell(t *testing.T) {
	f := newFixture(t)
	s := f.registry.Get("g1")
	if err := s.EnsureConnected(context.Background(), "vc1"); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	s.Farewell(context.Background(), "u1", "Alice")
	calls := waitForPlays(t, f.sink, 1)

	variants := map[string]bool{"See ya Alice": true, "Bye Alice": true, "Until next time Alice": true}
	if got := string(calls[0].Data); !variants[got] {
		t.Fatalf("farewell = %q", got)
	}
	if calls[0].Volume != 0.8 {
		t.Fatalf("volume = %v, want 0.8", calls[0].Volume)
	}
}
