// Package config loads the runtime configuration for Vexo from environment
// variables with safe defaults.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/vexofm/vexo/internal/queue"
)

// LogLevel controls log verbosity for the bot process.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config contains all runtime settings for the bot and its control plane.
type Config struct {
	// DiscordToken is the bot token. Required.
	DiscordToken string

	// DatabaseURL is the Postgres DSN. When empty, the JSON file store at
	// StoreFilePath is used instead.
	DatabaseURL   string
	StoreFilePath string

	// VoicesFile optionally replaces the builtin voice catalog.
	VoicesFile string

	TTSPrimaryURL  string
	TTSFallbackURL string
	TTSHTTPTimeout time.Duration

	// AnnouncerProvider selects the text generation backend ("openai" or
	// an any-llm provider name). Empty disables generation.
	AnnouncerProvider string
	AnnouncerModel    string
	OpenAIAPIKey      string

	MetricsEnabled bool

	WebUIEnabled bool
	WebHost      string
	WebPort      int
	WebUIToken   string

	LogLevel       LogLevel
	LogFilePath    string
	WebLogMaxLines int

	QueueMaxSize int
	DropPolicy   queue.Policy

	Coalesce          time.Duration
	MaxMessageChars   int
	MaxUtteranceChars int
	UserCooldown      time.Duration

	MaxAudio   time.Duration
	MaxRetries int
	Stuck      time.Duration

	// AllowlistTextChannels globally limits chat auto-read when non-empty.
	AllowlistTextChannels []int64
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		DiscordToken:      stringsTrimSpace("DISCORD_TOKEN"),
		DatabaseURL:       stringsTrimSpace("DATABASE_URL"),
		StoreFilePath:     envOrDefault("STORE_FILE_PATH", "data/vexo-store.json"),
		VoicesFile:        stringsTrimSpace("VOICES_FILE"),
		TTSPrimaryURL:     envOrDefault("TTS_PRIMARY_URL", "https://tiktok-tts.weilnet.workers.dev/api/generation"),
		TTSFallbackURL:    envOrDefault("TTS_FALLBACK_URL", "https://translate.google.com/translate_tts"),
		AnnouncerProvider: envOrDefault("ANNOUNCER_PROVIDER", "openai"),
		AnnouncerModel:    envOrDefault("ANNOUNCER_MODEL", "gpt-4o-mini"),
		OpenAIAPIKey:      stringsTrimSpace("OPENAI_API_KEY"),
		MetricsEnabled:    true,
		WebUIEnabled:      true,
		WebHost:           envOrDefault("WEB_HOST", "127.0.0.1"),
		WebPort:           8080,
		WebUIToken:        stringsTrimSpace("WEB_UI_TOKEN"),
		LogLevel:          LogLevel(strings.ToLower(envOrDefault("LOG_LEVEL", "info"))),
		LogFilePath:       stringsTrimSpace("LOG_FILE_PATH"),
		WebLogMaxLines:    1000,
		QueueMaxSize:      100,
		DropPolicy:        queue.Policy(envOrDefault("DROP_POLICY", string(queue.DropOldest))),
		Coalesce:          500 * time.Millisecond,
		MaxMessageChars:   350,
		MaxUtteranceChars: 1000,
		UserCooldown:      1500 * time.Millisecond,
		MaxAudio:          20 * time.Second,
		MaxRetries:        2,
		Stuck:             45 * time.Second,
		TTSHTTPTimeout:    20 * time.Second,
	}

	var err error
	if cfg.MetricsEnabled, err = boolFromEnv("METRICS_ENABLED", cfg.MetricsEnabled); err != nil {
		return Config{}, err
	}
	if cfg.WebUIEnabled, err = boolFromEnv("WEB_UI_ENABLED", cfg.WebUIEnabled); err != nil {
		return Config{}, err
	}
	if cfg.WebPort, err = intFromEnv("WEB_PORT", cfg.WebPort); err != nil {
		return Config{}, err
	}
	if cfg.WebLogMaxLines, err = intFromEnv("WEB_LOG_MAX_LINES", cfg.WebLogMaxLines); err != nil {
		return Config{}, err
	}
	if cfg.QueueMaxSize, err = intFromEnv("QUEUE_MAXSIZE", cfg.QueueMaxSize); err != nil {
		return Config{}, err
	}
	if cfg.MaxMessageChars, err = intFromEnv("MAX_MESSAGE_CHARS", cfg.MaxMessageChars); err != nil {
		return Config{}, err
	}
	if cfg.MaxUtteranceChars, err = intFromEnv("MAX_UTTERANCE_CHARS", cfg.MaxUtteranceChars); err != nil {
		return Config{}, err
	}
	if cfg.MaxRetries, err = intFromEnv("MAX_RETRIES", cfg.MaxRetries); err != nil {
		return Config{}, err
	}
	if cfg.Coalesce, err = millisFromEnv("COALESCE_MS", cfg.Coalesce); err != nil {
		return Config{}, err
	}
	if cfg.UserCooldown, err = secondsFromEnv("USER_COOLDOWN_SECONDS", cfg.UserCooldown); err != nil {
		return Config{}, err
	}
	if cfg.MaxAudio, err = secondsFromEnv("MAX_AUDIO_SECONDS", cfg.MaxAudio); err != nil {
		return Config{}, err
	}
	if cfg.Stuck, err = secondsFromEnv("STUCK_SECONDS", cfg.Stuck); err != nil {
		return Config{}, err
	}
	if cfg.TTSHTTPTimeout, err = secondsFromEnv("TTS_HTTP_TIMEOUT", cfg.TTSHTTPTimeout); err != nil {
		return Config{}, err
	}
	if cfg.AllowlistTextChannels, err = channelIDsFromEnv("ALLOWLIST_TEXT_CHANNEL_IDS"); err != nil {
		return Config{}, err
	}

	if cfg.DiscordToken == "" {
		return Config{}, fmt.Errorf("DISCORD_TOKEN is required")
	}
	if !cfg.LogLevel.IsValid() {
		return Config{}, fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error")
	}
	if !cfg.DropPolicy.IsValid() {
		return Config{}, fmt.Errorf("DROP_POLICY must be %q or %q", queue.DropOldest, queue.Reject)
	}
	if cfg.WebPort <= 0 || cfg.WebPort > 65535 {
		return Config{}, fmt.Errorf("WEB_PORT must be a valid port")
	}
	if cfg.QueueMaxSize <= 0 {
		return Config{}, fmt.Errorf("QUEUE_MAXSIZE must be positive")
	}
	if cfg.MaxRetries < 0 {
		return Config{}, fmt.Errorf("MAX_RETRIES must be >= 0")
	}
	if cfg.MaxAudio <= 0 || cfg.Stuck <= 0 || cfg.TTSHTTPTimeout <= 0 {
		return Config{}, fmt.Errorf("MAX_AUDIO_SECONDS, STUCK_SECONDS and TTS_HTTP_TIMEOUT must be positive")
	}

	return cfg, nil
}

// SlogLevel maps the configured level onto the slog scale.
func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}

// millisFromEnv parses an integer millisecond count.
func millisFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s parse error: expected non-negative milliseconds", key)
	}
	return time.Duration(n) * time.Millisecond, nil
}

// secondsFromEnv parses a float second count, so "1.5" means 1500ms.
func secondsFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return 0, fmt.Errorf("%s parse error: expected non-negative seconds", key)
	}
	return time.Duration(f * float64(time.Second)), nil
}

// channelIDsFromEnv parses a comma-separated snowflake list.
func channelIDsFromEnv(key string) ([]int64, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return nil, nil
	}
	parts := strings.Split(v, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s parse error: %q is not a channel id", key, p)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
