// Package tts defines the contract for streaming text-to-speech providers
// and the byte-stream handle handed to audio playback.
//
// A Provider opens an upstream synthesis request and returns a reader of
// MP3-framed audio bytes that may start yielding data before the upstream
// body is complete. [Stream] bridges a provider reader to a consumer: a
// background producer pumps bytes into a pipe while the consumer reads,
// and producer completion is reported on [Stream.Done].
package tts

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Provider opens streaming synthesis requests against one TTS backend.
type Provider interface {
	// Name identifies the provider in logs and breaker state.
	Name() string

	// Open performs the upstream request for a single utterance and returns
	// a reader of MP3 audio bytes. The reader may begin yielding bytes before
	// the upstream body finishes. The caller must close the reader; closing
	// it releases the underlying connection.
	Open(ctx context.Context, text, voiceID string) (io.ReadCloser, error)
}

// Sentinel errors surfaced by provider implementations.
var (
	// ErrNullAudio indicates the provider answered successfully but with a
	// null audio payload.
	ErrNullAudio = errors.New("tts: provider returned null audio")

	// ErrParse indicates the audio payload could not be located in the
	// provider response.
	ErrParse = errors.New("tts: audio payload not found in response")

	// ErrDecode indicates the audio payload was located but could not be
	// decoded.
	ErrDecode = errors.New("tts: audio payload decode failed")
)

// StatusError reports a non-2xx upstream HTTP status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("tts: provider status %d", e.Code)
}
