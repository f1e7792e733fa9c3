// Package mock provides a test double for the tts.Provider interface.
//
// Use Provider to feed controlled MP3 bytes to consumers and to verify the
// text and voice id passed to the backend. OpenFunc overrides the canned
// behaviour entirely for tests that need streaming or blocking readers.
package mock

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/vexofm/vexo/pkg/provider/tts"
)

// OpenCall records a single invocation of Open.
type OpenCall struct {
	// Ctx is the context passed to Open.
	Ctx context.Context
	// Text is the utterance text passed to Open.
	Text string
	// VoiceID is the voice id passed to Open.
	VoiceID string
}

// Provider is a mock implementation of tts.Provider.
type Provider struct {
	mu sync.Mutex

	// --- Configurable responses ---

	// ProviderName is returned by Name. Defaults to "mock" when empty.
	ProviderName string

	// Audio is the payload emitted by readers returned from Open.
	Audio []byte

	// OpenErr, if non-nil, is returned from Open instead of a reader.
	OpenErr error

	// OpenErrs, if non-empty, supplies per-call errors consumed in order
	// (a nil entry means success). Once exhausted, OpenErr applies.
	OpenErrs []error

	// OpenFunc, if non-nil, replaces the canned behaviour entirely.
	OpenFunc func(ctx context.Context, text, voiceID string) (io.ReadCloser, error)

	// --- Call records ---

	// OpenCalls records every call to Open in order.
	OpenCalls []OpenCall
}

// Compile-time interface assertion.
var _ tts.Provider = (*Provider)(nil)

// Name returns ProviderName or "mock".
func (p *Provider) Name() string {
	if p.ProviderName != "" {
		return p.ProviderName
	}
	return "mock"
}

// Open records the call and returns a reader over Audio, or the configured
// error.
func (p *Provider) Open(ctx context.Context, text, voiceID string) (io.ReadCloser, error) {
	p.mu.Lock()
	p.OpenCalls = append(p.OpenCalls, OpenCall{Ctx: ctx, Text: text, VoiceID: voiceID})
	var err error
	if len(p.OpenErrs) > 0 {
		err = p.OpenErrs[0]
		p.OpenErrs = p.OpenErrs[1:]
	} else {
		err = p.OpenErr
	}
	audio := append([]byte(nil), p.Audio...)
	fn := p.OpenFunc
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, text, voiceID)
	}
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(audio)), nil
}

// Calls returns a copy of the recorded Open calls. Thread-safe.
func (p *Provider) Calls() []OpenCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]OpenCall(nil), p.OpenCalls...)
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.OpenCalls = nil
}
