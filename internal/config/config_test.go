package config

import (
	"testing"
	"time"

	"github.com/vexofm/vexo/internal/queue"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "tok")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.StoreFilePath != "data/vexo-store.json" {
		t.Errorf("StoreFilePath = %q", cfg.StoreFilePath)
	}
	if cfg.TTSPrimaryURL != "https://tiktok-tts.weilnet.workers.dev/api/generation" {
		t.Errorf("TTSPrimaryURL = %q", cfg.TTSPrimaryURL)
	}
	if cfg.TTSFallbackURL != "https://translate.google.com/translate_tts" {
		t.Errorf("TTSFallbackURL = %q", cfg.TTSFallbackURL)
	}
	if cfg.AnnouncerProvider != "openai" || cfg.AnnouncerModel != "gpt-4o-mini" {
		t.Errorf("announcer = %q/%q", cfg.AnnouncerProvider, cfg.AnnouncerModel)
	}
	if !cfg.MetricsEnabled || !cfg.WebUIEnabled {
		t.Error("metrics and web ui should default on")
	}
	if cfg.WebHost != "127.0.0.1" || cfg.WebPort != 8080 {
		t.Errorf("web = %s:%d", cfg.WebHost, cfg.WebPort)
	}
	if cfg.LogLevel != LogInfo {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.QueueMaxSize != 100 || cfg.DropPolicy != queue.DropOldest {
		t.Errorf("queue = %d/%q", cfg.QueueMaxSize, cfg.DropPolicy)
	}
	if cfg.Coalesce != 500*time.Millisecond {
		t.Errorf("Coalesce = %v", cfg.Coalesce)
	}
	if cfg.UserCooldown != 1500*time.Millisecond {
		t.Errorf("UserCooldown = %v", cfg.UserCooldown)
	}
	if cfg.MaxAudio != 20*time.Second || cfg.Stuck != 45*time.Second {
		t.Errorf("playback limits = %v/%v", cfg.MaxAudio, cfg.Stuck)
	}
	if cfg.MaxMessageChars != 350 || cfg.MaxUtteranceChars != 1000 {
		t.Errorf("char limits = %d/%d", cfg.MaxMessageChars, cfg.MaxUtteranceChars)
	}
	if cfg.AllowlistTextChannels != nil {
		t.Errorf("AllowlistTextChannels = %v, want empty", cfg.AllowlistTextChannels)
	}
}

func TestLoad_RequiresToken(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")
	if _, err := Load(); err == nil {
		t.Fatal("Load succeeded without DISCORD_TOKEN")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "tok")
	t.Setenv("WEB_PORT", "9000")
	t.Setenv("USER_COOLDOWN_SECONDS", "2.5")
	t.Setenv("COALESCE_MS", "250")
	t.Setenv("DROP_POLICY", "reject")
	t.Setenv("METRICS_ENABLED", "off")
	t.Setenv("ALLOWLIST_TEXT_CHANNEL_IDS", "123, 456")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.WebPort != 9000 {
		t.Errorf("WebPort = %d", cfg.WebPort)
	}
	if cfg.UserCooldown != 2500*time.Millisecond {
		t.Errorf("UserCooldown = %v", cfg.UserCooldown)
	}
	if cfg.Coalesce != 250*time.Millisecond {
		t.Errorf("Coalesce = %v", cfg.Coalesce)
	}
	if cfg.DropPolicy != queue.Reject {
		t.Errorf("DropPolicy = %q", cfg.DropPolicy)
	}
	if cfg.MetricsEnabled {
		t.Error("MetricsEnabled = true, want off")
	}
	if len(cfg.AllowlistTextChannels) != 2 || cfg.AllowlistTextChannels[0] != 123 || cfg.AllowlistTextChannels[1] != 456 {
		t.Errorf("AllowlistTextChannels = %v", cfg.AllowlistTextChannels)
	}
}

func TestLoad_RejectsBadValues(t *testing.T) {
	cases := []struct {
		key, val string
	}{
		{"LOG_LEVEL", "verbose"},
		{"DROP_POLICY", "newest"},
		{"WEB_PORT", "0"},
		{"WEB_PORT", "not-a-port"},
		{"QUEUE_MAXSIZE", "-1"},
		{"USER_COOLDOWN_SECONDS", "-2"},
		{"COALESCE_MS", "0.5"},
		{"METRICS_ENABLED", "maybe"},
		{"ALLOWLIST_TEXT_CHANNEL_IDS", "abc"},
	}
	for _, tc := range cases {
		t.Run(tc.key+"="+tc.val, func(t *testing.T) {
			t.Setenv("DISCORD_TOKEN", "tok")
			t.Setenv(tc.key, tc.val)
			if _, err := Load(); err == nil {
				t.Fatalf("Load accepted %s=%s", tc.key, tc.val)
			}
		})
	}
}

func TestLogLevel_IsValid(t *testing.T) {
	for _, l := range []LogLevel{LogDebug, LogInfo, LogWarn, LogError} {
		if !l.IsValid() {
			t.Errorf("%q reported invalid", l)
		}
	}
	if LogLevel("trace").IsValid() {
		t.Error("unknown level reported valid")
	}
}
