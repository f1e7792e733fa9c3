package discord

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/vexofm/vexo/pkg/audio"
)

// newTestSink builds a Sink whose decoder yields pcm directly and whose
// speaking calls are recorded.
func newTestSink(pcm []byte, sendBuf int) (*Sink, chan []byte, *[]bool, *sync.Mutex) {
	send := make(chan []byte, sendBuf)
	var mu sync.Mutex
	var flags []bool
	s := &Sink{
		opusSend: send,
		speaking: func(b bool) error {
			mu.Lock()
			flags = append(flags, b)
			mu.Unlock()
			return nil
		},
		decode: func(ctx context.Context, src io.Reader) (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(pcm)), nil
		},
	}
	return s, send, &flags, &mu
}

func TestSink_PlaySendsAllFrames(t *testing.T) {
	pcm := make([]byte, audio.FrameBytes*3)
	s, send, flags, mu := newTestSink(pcm, 16)

	if err := s.Play(context.Background(), nil, 1.0); err != nil {
		t.Fatalf("play: %v", err)
	}
	if got := len(send); got != 3 {
		t.Fatalf("sent %d frames, want 3", got)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(*flags) != 2 || !(*flags)[0] || (*flags)[1] {
		t.Fatalf("speaking flags = %v, want [true false]", *flags)
	}
}

func TestSink_PartialFrameIsPadded(t *testing.T) {
	pcm := make([]byte, audio.FrameBytes+100)
	s, send, _, _ := newTestSink(pcm, 16)

	if err := s.Play(context.Background(), nil, 1.0); err != nil {
		t.Fatalf("play: %v", err)
	}
	if got := len(send); got != 2 {
		t.Fatalf("sent %d frames, want 2 (partial frame padded)", got)
	}
}

func TestSink_CancelStopsPlayback(t *testing.T) {
	pcm := make([]byte, audio.FrameBytes*100)
	// No send buffer: the first send blocks until cancellation.
	s, _, flags, mu := newTestSink(pcm, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Play(ctx, nil, 1.0) }()

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("play did not stop after cancel")
	}

	mu.Lock()
	defer mu.Unlock()
	if n := len(*flags); n != 2 || (*flags)[n-1] {
		t.Fatalf("speaking flags = %v, want speaking lowered on exit", *flags)
	}
}

func TestSink_DecodeErrorSurfaces(t *testing.T) {
	s := &Sink{
		decode: func(ctx context.Context, src io.Reader) (io.ReadCloser, error) {
			return nil, io.ErrClosedPipe
		},
	}
	if err := s.Play(context.Background(), nil, 1.0); err == nil {
		t.Fatal("expected decode error")
	}
}
