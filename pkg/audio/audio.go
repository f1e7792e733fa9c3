// Package audio defines the playback abstractions for streaming synthesized
// speech into voice channels.
//
// The primary abstraction is [Sink] — it consumes an MP3 stream and plays it
// on a voice channel. Implementations are provided by platform-specific
// adapter packages (e.g., audio/discord); audio/mock provides a test double.
//
// This package lives under pkg/ because external code (third-party platform
// adapters) is expected to implement [Sink].
package audio

import (
	"context"
	"io"
)

// Voice channels use 48 kHz stereo 16-bit PCM at 20 ms frame size.
const (
	SampleRate  = 48000
	Channels    = 2
	FrameSizeMs = 20

	// FrameSamples is the number of samples per channel per 20 ms frame.
	FrameSamples = SampleRate * FrameSizeMs / 1000 // 960

	// FrameBytes is the PCM size of one frame:
	// 960 samples/channel × 2 channels × 2 bytes/sample.
	FrameBytes = FrameSamples * Channels * 2
)

// Volume bounds. Values outside are clamped, never rejected.
const (
	MinVolume = 0.0
	MaxVolume = 2.0
)

// Sink plays a single audio stream into a voice channel.
//
// Implementations must be safe for concurrent use, but Play itself is
// serialized by the caller: one utterance plays at a time per channel.
type Sink interface {
	// Play decodes the MP3 stream from src and plays it at the given volume
	// until EOF or ctx cancellation. A cancelled ctx stops playback promptly
	// and returns ctx.Err(). Volume is clamped to [MinVolume, MaxVolume].
	Play(ctx context.Context, src io.Reader, volume float64) error
}

// ClampVolume bounds a playback volume to [MinVolume, MaxVolume].
func ClampVolume(v float64) float64 {
	if v < MinVolume {
		return MinVolume
	}
	if v > MaxVolume {
		return MaxVolume
	}
	return v
}

// ApplyVolume scales interleaved little-endian int16 PCM in place by the
// given factor, clamping samples to the int16 range. Volume 1.0 returns the
// slice untouched.
func ApplyVolume(pcm []byte, volume float64) []byte {
	if volume == 1.0 {
		return pcm
	}
	for i := 0; i+1 < len(pcm); i += 2 {
		s := float64(int16(pcm[i]) | int16(pcm[i+1])<<8)
		s *= volume
		if s > 32767 {
			s = 32767
		} else if s < -32768 {
			s = -32768
		}
		v := int16(s)
		pcm[i] = byte(v)
		pcm[i+1] = byte(v >> 8)
	}
	return pcm
}
