// Package discord provides an [audio.Sink] implementation backed by Discord
// voice channels via the bwmarrin/discordgo library. It bridges the MP3
// output of the synthesis pipeline with Discord's Opus-based voice
// transport: MP3 is decoded to 48 kHz stereo PCM, volume-scaled, encoded to
// Opus and pushed onto the voice connection's send channel, which discordgo
// paces at one frame per 20 ms.
package discord

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/vexofm/vexo/pkg/audio"
)

// Compile-time interface assertion.
var _ audio.Sink = (*Sink)(nil)

// Sink plays MP3 streams on a single Discord voice connection.
type Sink struct {
	opusSend chan<- []byte
	speaking func(bool) error
	decode   func(ctx context.Context, src io.Reader) (io.ReadCloser, error)
}

// NewSink creates a Sink over an already-joined voice connection. The
// decoder's subprocess binary resolution happens lazily on first Play.
func NewSink(vc *discordgo.VoiceConnection, dec *audio.MP3Decoder) *Sink {
	if dec == nil {
		dec = &audio.MP3Decoder{}
	}
	return &Sink{
		opusSend: vc.OpusSend,
		speaking: vc.Speaking,
		decode:   dec.Decode,
	}
}

// Play decodes src and streams it to the voice connection until EOF or ctx
// cancellation. The speaking flag is raised for the duration of playback.
func (s *Sink) Play(ctx context.Context, src io.Reader, volume float64) error {
	volume = audio.ClampVolume(volume)

	pcm, err := s.decode(ctx, src)
	if err != nil {
		return fmt.Errorf("discord: decode stream: %w", err)
	}
	defer pcm.Close()

	enc, err := newOpusEncoder()
	if err != nil {
		return err
	}

	s.setSpeaking(true)
	defer s.setSpeaking(false)

	frame := make([]byte, audio.FrameBytes)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, rErr := io.ReadFull(pcm, frame)
		if rErr == io.EOF {
			return nil
		}
		last := false
		if errors.Is(rErr, io.ErrUnexpectedEOF) {
			// Pad the final partial frame with silence.
			clear(frame[n:])
			last = true
		} else if rErr != nil {
			return fmt.Errorf("discord: read pcm: %w", rErr)
		}

		audio.ApplyVolume(frame, volume)

		packet, eErr := enc.encode(frame)
		if eErr != nil {
			return eErr
		}

		select {
		case s.opusSend <- packet:
		case <-ctx.Done():
			return ctx.Err()
		}

		if last {
			return nil
		}
	}
}

// setSpeaking sends a speaking notification to Discord, logging any errors.
func (s *Sink) setSpeaking(b bool) {
	if s.speaking == nil {
		return
	}
	if err := s.speaking(b); err != nil {
		slog.Warn("discord: speaking notification error", "speaking", b, "error", err)
	}
}
