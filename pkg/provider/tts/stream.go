package tts

import (
	"io"
	"sync"
)

// Stream is a readable MP3 byte stream fed by a background producer.
//
// Read blocks until bytes are available or the producer finishes (EOF on
// clean completion, the producer's error otherwise). Closing the stream
// aborts the producer: its next write fails and the produce function
// returns. Done reports the producer's final outcome exactly once.
type Stream struct {
	r         *io.PipeReader
	done      chan error
	closeOnce sync.Once
}

// NewStream starts produce in a background goroutine writing into the
// stream. The producer's return value closes the write side (nil for clean
// EOF) and is delivered on [Stream.Done].
func NewStream(produce func(w io.Writer) error) *Stream {
	pr, pw := io.Pipe()
	s := &Stream{r: pr, done: make(chan error, 1)}
	go func() {
		err := produce(pw)
		pw.CloseWithError(err)
		s.done <- err
	}()
	return s
}

// Read returns up to len(p) bytes of audio, blocking until bytes arrive or
// the stream ends.
func (s *Stream) Read(p []byte) (int, error) {
	return s.r.Read(p)
}

// Close aborts the producer and releases the stream. Safe to call multiple
// times. Reads after Close return [io.ErrClosedPipe].
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		_ = s.r.Close()
	})
	return nil
}

// Done reports producer completion. The channel receives exactly one value:
// nil when all upstream bytes were delivered, the terminating error
// otherwise.
func (s *Stream) Done() <-chan error {
	return s.done
}
