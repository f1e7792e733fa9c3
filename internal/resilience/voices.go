package resilience

import (
	"log/slog"
	"sync"
	"time"
)

// Default per-voice failure policy.
const (
	defaultVoiceThreshold = 3
	defaultVoiceCooldown  = 300 * time.Second
)

// voiceState tracks one voice's consecutive failures.
type voiceState struct {
	failures      int
	cooldownUntil time.Time
}

// VoiceTracker counts consecutive synthesis failures per voice id and places
// repeatedly failing voices on cooldown. Successes wind the counter back
// down, so a flaky voice recovers without waiting out a full cooldown.
type VoiceTracker struct {
	threshold int
	cooldown  time.Duration

	mu     sync.Mutex
	voices map[string]*voiceState
}

// NewVoiceTracker creates a tracker with the given threshold and cooldown.
// Non-positive values fall back to the defaults (3 failures, 300s).
func NewVoiceTracker(threshold int, cooldown time.Duration) *VoiceTracker {
	if threshold <= 0 {
		threshold = defaultVoiceThreshold
	}
	if cooldown <= 0 {
		cooldown = defaultVoiceCooldown
	}
	return &VoiceTracker{
		threshold: threshold,
		cooldown:  cooldown,
		voices:    make(map[string]*voiceState),
	}
}

// MarkFailed records a failure for the voice. Reaching the threshold starts
// (or extends) the cooldown window.
func (t *VoiceTracker) MarkFailed(voiceID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := t.voices[voiceID]
	if st == nil {
		st = &voiceState{}
		t.voices[voiceID] = st
	}
	st.failures++
	if st.failures >= t.threshold {
		st.cooldownUntil = time.Now().Add(t.cooldown)
		slog.Warn("voice placed on cooldown",
			"voice", voiceID,
			"failures", st.failures,
			"cooldown", t.cooldown,
		)
	}
}

// MarkSuccess records a success for the voice, decrementing its failure
// count with a floor of zero. At zero the voice's state is cleared.
func (t *VoiceTracker) MarkSuccess(voiceID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := t.voices[voiceID]
	if st == nil {
		return
	}
	if st.failures > 0 {
		st.failures--
	}
	if st.failures == 0 {
		delete(t.voices, voiceID)
	}
}

// Available reports whether the voice may be used. An expired cooldown
// clears the voice's state entirely.
func (t *VoiceTracker) Available(voiceID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := t.voices[voiceID]
	if st == nil {
		return true
	}
	if !st.cooldownUntil.IsZero() && !time.Now().Before(st.cooldownUntil) {
		delete(t.voices, voiceID)
		return true
	}
	return st.failures < t.threshold
}
