// Package mock provides a configurable [audio.Sink] test double that records
// every playback and can simulate failures or slow playback.
package mock

import (
	"context"
	"io"
	"sync"

	"github.com/vexofm/vexo/pkg/audio"
)

// Compile-time interface assertion.
var _ audio.Sink = (*Sink)(nil)

// PlayCall records a single Play invocation.
type PlayCall struct {
	Data   []byte
	Volume float64
}

// Sink is a mock audio.Sink. The zero value plays everything successfully.
type Sink struct {
	// PlayErr, when set, is returned from every Play after the stream is
	// drained.
	PlayErr error

	// PlayFunc, when set, replaces the default behavior entirely. The call
	// is still recorded.
	PlayFunc func(ctx context.Context, src io.Reader, volume float64) error

	mu    sync.Mutex
	calls []PlayCall
}

// Play drains src, records the call, and honors ctx cancellation.
func (s *Sink) Play(ctx context.Context, src io.Reader, volume float64) error {
	data, readErr := io.ReadAll(src)

	s.mu.Lock()
	s.calls = append(s.calls, PlayCall{Data: data, Volume: volume})
	s.mu.Unlock()

	if s.PlayFunc != nil {
		return s.PlayFunc(ctx, src, volume)
	}
	if readErr != nil {
		return readErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.PlayErr
}

// Calls returns a snapshot of recorded playbacks.
func (s *Sink) Calls() []PlayCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PlayCall, len(s.calls))
	copy(out, s.calls)
	return out
}

// Reset clears recorded calls.
func (s *Sink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}
