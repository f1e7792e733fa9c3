// Package web is the control plane: a small HTTP/WS API for status,
// settings, logs, voice previews and remote TTS. It is designed to sit on
// localhost (or behind a reverse proxy) next to the bot process.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vexofm/vexo/internal/announcer"
	"github.com/vexofm/vexo/internal/catalog"
	"github.com/vexofm/vexo/internal/discord"
	"github.com/vexofm/vexo/internal/health"
	"github.com/vexofm/vexo/internal/logbuf"
	"github.com/vexofm/vexo/internal/observe"
	"github.com/vexofm/vexo/internal/resilience"
	"github.com/vexofm/vexo/internal/session"
	"github.com/vexofm/vexo/internal/settings"
)

const (
	previewMaxChars = 200
	logTailDefault  = 500
	shutdownTimeout = 5 * time.Second
)

// Bot is the platform surface the control plane reports on and resolves
// voice channels through.
type Bot interface {
	BotTag() string
	StartedAt() time.Time
	Guilds() []discord.GuildInfo
	FirstPopulatedVoiceChannel(guildID string) string
}

// Config holds the web server configuration.
type Config struct {
	Host string
	Port int

	// Token protects routes outside the read allowlist when non-empty.
	Token string

	// Version is reported by /api/status.
	Version string
}

// Deps bundles the collaborators the handlers need.
type Deps struct {
	Bot       Bot
	Sessions  *session.Registry
	Settings  *settings.Store
	Catalog   *catalog.Catalog
	Chain     *resilience.Chain
	Logs      *logbuf.Buffer
	Announcer *announcer.Announcer

	// Metrics, when non-nil, is mounted at /metrics (the Prometheus
	// scrape handler).
	Metrics http.Handler

	// Health, when non-nil, contributes /healthz and /readyz.
	Health *health.Handler
}

// Server serves the control plane API.
type Server struct {
	cfg  Config
	deps Deps

	// allowlist holds the paths that skip token auth.
	allowlist map[string]bool
}

// New creates a Server. Call Router for the handler or Run to serve.
func New(cfg Config, deps Deps) *Server {
	// The read/preview/settings/TTS surface stays open; the generation
	// endpoints and anything unknown require the token when one is set.
	return &Server{
		cfg:  cfg,
		deps: deps,
		allowlist: map[string]bool{
			"/api/status":         true,
			"/api/guilds":         true,
			"/api/voices":         true,
			"/api/voices/preview": true,
			"/api/logs":           true,
			"/api/logs/stream":    true,
			"/api/settings":       true,
			"/api/tts":            true,
			"/ws/tts":             true,
			"/metrics":            true,
			"/healthz":            true,
			"/readyz":             true,
		},
	}
}

// Router builds the chi handler with auth middleware applied.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	if s.deps.Metrics != nil {
		r.Use(observe.Middleware(observe.DefaultMetrics()))
	}
	r.Use(s.auth)

	r.Get("/api/status", s.handleStatus)
	r.Get("/api/guilds", s.handleGuilds)
	r.Get("/api/voices", s.handleVoices)
	r.Get("/api/voices/preview", s.handleVoicePreview)
	r.Get("/api/logs", s.handleLogs)
	r.Get("/api/logs/stream", s.handleLogsStream)
	r.Get("/api/settings", s.handleSettingsGet)
	r.Post("/api/settings", s.handleSettingsPost)
	r.Post("/api/tts", s.handleTTS)
	r.Post("/api/radio-presenter", s.handleRadioPresenter)
	r.Post("/api/song-suggestions", s.handleSongSuggestions)
	r.Get("/ws/tts", s.handleTTSWS)

	if s.deps.Metrics != nil {
		r.Handle("/metrics", s.deps.Metrics)
	}
	if s.deps.Health != nil {
		r.Get("/healthz", s.deps.Health.Healthz)
		r.Get("/readyz", s.deps.Health.Readyz)
	}

	return r
}

// Run serves until ctx is cancelled, then drains with a short timeout.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler: s.Router(),
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()
	slog.Info("web ui listening", "host", s.cfg.Host, "port", s.cfg.Port)

	select {
	case err := <-errc:
		return fmt.Errorf("web: serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("web: shutdown: %w", err)
	}
	return ctx.Err()
}

// auth requires the configured token for routes outside the allowlist.
// The token arrives as a bearer header or a ?token query parameter.
func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Token == "" || s.allowlist[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}
		if bearerToken(r) != s.cfg.Token {
			respondError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return r.URL.Query().Get("token")
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		// A body with no JSON value at all reads as empty; truncated JSON
		// stays an error.
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
