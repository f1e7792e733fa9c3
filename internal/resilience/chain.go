package resilience

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/vexofm/vexo/internal/observe"
	"github.com/vexofm/vexo/pkg/provider/tts"
)

// Default provider breaker policies and retry backoff.
const (
	primaryBreakerThreshold  = 3
	primaryBreakerReset      = 60 * time.Second
	fallbackBreakerThreshold = 5
	fallbackBreakerReset     = 30 * time.Second

	defaultMaxRetries = 2
	defaultRetryBase  = 500 * time.Millisecond
)

// ChainConfig configures a [Chain].
type ChainConfig struct {
	// Primary is the preferred TTS backend.
	Primary tts.Provider

	// Fallback is the translator backend used when the primary path fails.
	Fallback tts.Provider

	// TranslatorVoiceID is the voice id passed to the fallback provider.
	TranslatorVoiceID string

	// MaxRetries is the retry budget per provider attempt. Default: 2.
	MaxRetries int

	// RetryBase is the initial backoff between retries. Default: 500ms.
	RetryBase time.Duration
}

// Chain routes a synthesis request across the primary and fallback providers
// with breaker protection, per-voice cooldowns and retry with backoff.
//
// The failover order for Open is fixed: substitute the fallback voice when
// the requested voice is on cooldown; run the voice's own provider under its
// breaker with retries; on failure try the translator backend once; on
// translator failure mark the requested voice failed and try the primary
// once more with the fallback voice; finally surface the first error.
type Chain struct {
	primary  tts.Provider
	fallback tts.Provider

	primaryBreaker  *Breaker
	fallbackBreaker *Breaker
	voices          *VoiceTracker

	translatorVoice string
	maxRetries      int
	retryBase       time.Duration
}

// NewChain creates a Chain with the standard breaker policies: primary opens
// after 3 failures for 60s, fallback after 5 for 30s, voices cool down for
// 5 minutes after 3 consecutive failures.
func NewChain(cfg ChainConfig) *Chain {
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	} else if maxRetries == 0 {
		maxRetries = defaultMaxRetries
	}
	retryBase := cfg.RetryBase
	if retryBase <= 0 {
		retryBase = defaultRetryBase
	}
	return &Chain{
		primary:         cfg.Primary,
		fallback:        cfg.Fallback,
		primaryBreaker:  NewBreaker(cfg.Primary.Name(), primaryBreakerThreshold, primaryBreakerReset),
		fallbackBreaker: NewBreaker(cfg.Fallback.Name(), fallbackBreakerThreshold, fallbackBreakerReset),
		voices:          NewVoiceTracker(defaultVoiceThreshold, defaultVoiceCooldown),
		translatorVoice: cfg.TranslatorVoiceID,
		maxRetries:      maxRetries,
		retryBase:       retryBase,
	}
}

// Voices exposes the per-voice failure tracker shared with callers that
// need availability checks (the effective-voice resolver).
func (c *Chain) Voices() *VoiceTracker {
	return c.voices
}

// Open starts a streaming synthesis for text with the requested voice,
// applying the failover order described on [Chain]. The returned stream may
// be read immediately; producer completion is reported on Stream.Done.
func (c *Chain) Open(ctx context.Context, text, requestedVoice, fallbackVoice string) (*tts.Stream, error) {
	voice := requestedVoice
	if !c.voices.Available(voice) {
		slog.Info("voice on cooldown, substituting fallback",
			"voice", voice,
			"fallback", fallbackVoice,
		)
		voice = fallbackVoice
	}

	provider, breaker := c.primary, c.primaryBreaker
	onFallbackProvider := c.ownsFallback(voice)
	if onFallbackProvider {
		provider, breaker = c.fallback, c.fallbackBreaker
	}

	rc, firstErr := c.openWithRetry(ctx, provider, breaker, text, voice)
	if firstErr == nil {
		return c.stream(rc, voice), nil
	}
	slog.Warn("tts open failed",
		"provider", provider.Name(),
		"voice", voice,
		"error", firstErr,
	)

	if !onFallbackProvider {
		rc, err := c.openOnce(ctx, c.fallback, c.fallbackBreaker, text, c.translatorVoice)
		if err == nil {
			return c.stream(rc, c.translatorVoice), nil
		}
		slog.Warn("translator fallback failed", "error", err)

		if requestedVoice != fallbackVoice {
			c.voices.MarkFailed(requestedVoice)
			rc, err := c.openOnce(ctx, c.primary, c.primaryBreaker, text, fallbackVoice)
			if err == nil {
				return c.stream(rc, fallbackVoice), nil
			}
			slog.Warn("fallback voice retry failed", "voice", fallbackVoice, "error", err)
		}
	}

	return nil, firstErr
}

// ownsFallback reports whether the voice id routes to the fallback provider.
func (c *Chain) ownsFallback(voiceID string) bool {
	return strings.HasPrefix(voiceID, c.fallback.Name())
}

// openWithRetry attempts an open under the breaker with backoff retries.
func (c *Chain) openWithRetry(ctx context.Context, p tts.Provider, b *Breaker, text, voice string) (io.ReadCloser, error) {
	return Retry(ctx, c.maxRetries, c.retryBase, func() (io.ReadCloser, error) {
		return c.openOnce(ctx, p, b, text, voice)
	})
}

// openOnce attempts a single open under the breaker. 5xx statuses from the
// primary provider count against the voice.
func (c *Chain) openOnce(ctx context.Context, p tts.Provider, b *Breaker, text, voice string) (io.ReadCloser, error) {
	start := time.Now()
	var rc io.ReadCloser
	err := b.Execute(func() error {
		var openErr error
		rc, openErr = p.Open(ctx, text, voice)
		return openErr
	})
	m := observe.DefaultMetrics()
	if err != nil {
		m.RecordProviderRequest(ctx, p.Name(), "error")
		m.RecordProviderError(ctx, p.Name())
		var se *tts.StatusError
		if p == c.primary && errors.As(err, &se) && se.Code >= 500 {
			c.voices.MarkFailed(voice)
		}
		return nil, fmt.Errorf("%s: open: %w", p.Name(), err)
	}
	m.RecordProviderRequest(ctx, p.Name(), "ok")
	m.RecordSynthesis(ctx, p.Name(), time.Since(start).Seconds())
	return rc, nil
}

// stream pumps the provider body into a Stream. Clean completion counts as
// a success for the voice.
func (c *Chain) stream(rc io.ReadCloser, voice string) *tts.Stream {
	return tts.NewStream(func(w io.Writer) error {
		defer rc.Close()
		if _, err := io.Copy(w, rc); err != nil {
			return err
		}
		c.voices.MarkSuccess(voice)
		return nil
	})
}
