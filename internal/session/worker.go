package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vexofm/vexo/internal/observe"
	"github.com/vexofm/vexo/internal/queue"
	"github.com/vexofm/vexo/internal/settings"
	"github.com/vexofm/vexo/pkg/audio"
)

// startWorkerLocked launches the utterance worker if it is not already
// running. Must be called with s.mu held.
func (s *GuildSession) startWorkerLocked() {
	if s.workerRunning {
		return
	}
	s.workerRunning = true
	s.workerDone = make(chan struct{})
	go s.runWorker(s.workerDone)
}

// runWorker drains the playback queue until the stop sentinel arrives.
// Errors never terminate the loop.
func (s *GuildSession) runWorker(done chan struct{}) {
	defer close(done)

	for {
		it, ok := s.queue.Dequeue()
		if !ok {
			return
		}
		observe.DefaultMetrics().QueueDepth.Add(context.Background(), -1)
		if s.State() != StateAttached {
			continue
		}
		if err := s.play(it); err != nil {
			slog.Error("utterance playback failed", "guild_id", s.guildID, "error", err)
		}
	}
}

// play synthesizes and plays one utterance. Empty text after trimming and
// truncation is a no-op.
func (s *GuildSession) play(it queue.Item) error {
	gs := s.deps.Settings.Get(s.guildID)

	voice := settings.EffectiveVoice(gs, s.deps.Catalog, it.VoiceID, it.AllowDefault)
	text := strings.TrimSpace(it.Text)
	if n := gs.MaxTTSChars; n > 0 {
		if r := []rune(text); len(r) > n {
			text = string(r[:n])
		}
	}
	if text == "" {
		return nil
	}

	s.mu.Lock()
	conn := s.conn
	base := s.playCtx
	s.mu.Unlock()
	if conn == nil || base == nil {
		return nil
	}

	stream, err := s.deps.Chain.Open(base, text, voice, gs.FallbackVoice)
	if err != nil {
		return err
	}
	defer stream.Close()

	volume := 1.0
	if it.Volume > 0 {
		volume = audio.ClampVolume(it.Volume)
	}

	playCtx, cancel := context.WithTimeout(base, s.deps.MaxAudio)
	defer cancel()

	src := &progressReader{r: stream}
	src.touch()
	stopWatch := s.watchStuck(playCtx, cancel, src)

	playStart := time.Now()
	playErr := conn.Sink().Play(playCtx, src, volume)
	stopWatch()

	m := observe.DefaultMetrics()
	m.PlaybackDuration.Record(base, time.Since(playStart).Seconds())
	if playErr == nil && it.Source != "" {
		m.RecordUtterance(base, it.Source)
	}

	// Abort the producer before awaiting its outcome.
	stream.Close()
	producerErr := <-stream.Done()

	if playErr != nil && !errors.Is(playErr, context.Canceled) {
		return playErr
	}
	if producerErr != nil && !errors.Is(producerErr, io.ErrClosedPipe) && !errors.Is(producerErr, context.Canceled) {
		slog.Warn("synthesis producer ended with error", "guild_id", s.guildID, "voice_id", voice, "error", producerErr)
	}
	return nil
}

// watchStuck cancels playback when the stream stops making byte progress
// for the configured stuck window. Returns a stop func.
func (s *GuildSession) watchStuck(ctx context.Context, cancel context.CancelFunc, src *progressReader) func() {
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if time.Since(src.lastProgress()) > s.deps.Stuck {
					slog.Warn("playback made no progress, aborting", "guild_id", s.guildID)
					cancel()
					return
				}
			}
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { close(stop) }) }
}

// progressReader tracks when bytes last flowed, for the stuck watchdog.
type progressReader struct {
	r    io.Reader
	last atomic.Int64 // unix nanos
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.touch()
	}
	return n, err
}

func (p *progressReader) touch() {
	p.last.Store(time.Now().UnixNano())
}

func (p *progressReader) lastProgress() time.Time {
	return time.Unix(0, p.last.Load())
}
