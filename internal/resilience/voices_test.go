package resilience

import (
	"testing"
	"time"
)

func TestVoiceTracker_CooldownAfterThreshold(t *testing.T) {
	vt := NewVoiceTracker(3, time.Minute)

	vt.MarkFailed("en_us_002")
	vt.MarkFailed("en_us_002")
	if !vt.Available("en_us_002") {
		t.Fatal("voice unavailable below threshold")
	}
	vt.MarkFailed("en_us_002")
	if vt.Available("en_us_002") {
		t.Fatal("voice available after reaching threshold")
	}
	if !vt.Available("en_us_006") {
		t.Fatal("unrelated voice affected")
	}
}

func TestVoiceTracker_SuccessDecrementsToFloor(t *testing.T) {
	vt := NewVoiceTracker(3, time.Minute)

	vt.MarkFailed("en_us_002")
	vt.MarkFailed("en_us_002")
	vt.MarkSuccess("en_us_002")
	vt.MarkFailed("en_us_002")
	vt.MarkFailed("en_us_002")
	if vt.Available("en_us_002") {
		t.Fatal("voice available after net three failures")
	}

	// Decrementing past zero must not underflow.
	vt.MarkSuccess("en_us_006")
	vt.MarkSuccess("en_us_006")
	vt.MarkFailed("en_us_006")
	if !vt.Available("en_us_006") {
		t.Fatal("voice unavailable after a single failure")
	}
}

func TestVoiceTracker_CooldownExpiryClearsState(t *testing.T) {
	vt := NewVoiceTracker(3, 20*time.Millisecond)

	for i := 0; i < 3; i++ {
		vt.MarkFailed("en_us_002")
	}
	if vt.Available("en_us_002") {
		t.Fatal("voice available during cooldown")
	}

	time.Sleep(40 * time.Millisecond)

	if !vt.Available("en_us_002") {
		t.Fatal("voice unavailable after cooldown expiry")
	}
	// Expiry clears the counter entirely: one new failure is not threshold.
	vt.MarkFailed("en_us_002")
	if !vt.Available("en_us_002") {
		t.Fatal("stale failure count survived cooldown expiry")
	}
}
