package web

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/vexofm/vexo/internal/settings"
)

// previewChunkSize keeps preview streaming responsive without flushing
// per-read.
const previewChunkSize = 64 * 1024

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var uptime float64
	if t := s.deps.Bot.StartedAt(); !t.IsZero() {
		uptime = time.Since(t).Seconds()
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"user":           s.deps.Bot.BotTag(),
		"version":        s.cfg.Version,
		"guild_count":    len(s.deps.Bot.Guilds()),
		"uptime_seconds": uptime,
		"web_host":       s.cfg.Host,
		"web_port":       s.cfg.Port,
	})
}

func (s *Server) handleGuilds(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"guilds": s.deps.Bot.Guilds()})
}

func (s *Server) handleVoices(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"voices": s.deps.Catalog.Voices()})
}

// handleVoicePreview synthesizes a short sample for one voice and streams
// the MP3 straight to the client. Closing the connection aborts synthesis.
func (s *Server) handleVoicePreview(w http.ResponseWriter, r *http.Request) {
	voiceID := r.URL.Query().Get("voice_id")
	if voiceID == "" {
		respondError(w, http.StatusBadRequest, "missing_voice", "voice_id is required")
		return
	}
	if !s.deps.Catalog.Has(voiceID) {
		respondError(w, http.StatusNotFound, "unknown_voice", "unknown voice id: "+voiceID)
		return
	}

	text := strings.TrimSpace(r.URL.Query().Get("text"))
	if text == "" {
		text = "Hello! This is " + s.deps.Catalog.FriendlyName(voiceID) + "."
	}
	if len(text) > previewMaxChars {
		text = text[:previewMaxChars]
	}

	stream, err := s.deps.Chain.Open(r.Context(), text, voiceID, voiceID)
	if err != nil {
		respondError(w, http.StatusBadGateway, "synthesis_failed", err.Error())
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	buf := make([]byte, previewChunkSize)
	for {
		n, err := stream.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err != nil {
			return
		}
	}
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	tail := logTailDefault
	if raw := r.URL.Query().Get("tail"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid_tail", "tail must be a positive integer")
			return
		}
		tail = n
	}
	respondJSON(w, http.StatusOK, map[string]any{"lines": s.deps.Logs.Tail(tail)})
}

// handleLogsStream is the SSE live log feed. Each log line becomes one
// event; multi-line records are split into multiple data fields.
func (s *Server) handleLogsStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming_unsupported", "response writer does not support streaming")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	lines, cancel := s.deps.Logs.Subscribe(100)
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if _, err := io.WriteString(w, sseEncode(line)); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// sseEncode renders one event: a data: field per line plus the blank
// separator.
func sseEncode(msg string) string {
	var b strings.Builder
	for _, line := range strings.Split(msg, "\n") {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	return b.String()
}

func (s *Server) handleSettingsGet(w http.ResponseWriter, r *http.Request) {
	guildID, ok := s.requireGuild(w, r.URL.Query().Get("guild_id"))
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"guild_id": guildID,
		"settings": s.deps.Settings.Get(guildID),
	})
}

func (s *Server) handleSettingsPost(w http.ResponseWriter, r *http.Request) {
	guildID, ok := s.requireGuild(w, r.URL.Query().Get("guild_id"))
	if !ok {
		return
	}

	var patch map[string]any
	if err := decodeJSON(r, &patch); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", "request body must be a JSON object of settings")
		return
	}

	updated, err := s.deps.Settings.Update(r.Context(), guildID, patch)
	if err != nil {
		var ve *settings.ValidationError
		var ue *settings.UnknownSettingError
		switch {
		case errors.As(err, &ve), errors.As(err, &ue):
			respondError(w, http.StatusBadRequest, "invalid_setting", err.Error())
		default:
			respondError(w, http.StatusInternalServerError, "update_failed", err.Error())
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"guild_id": guildID,
		"settings": updated,
	})
}

// requireGuild validates a guild_id parameter against the bot's roster.
// On failure it writes the error response and returns ok=false.
func (s *Server) requireGuild(w http.ResponseWriter, guildID string) (string, bool) {
	if guildID == "" {
		respondError(w, http.StatusBadRequest, "missing_guild", "guild_id is required")
		return "", false
	}
	for _, g := range s.deps.Bot.Guilds() {
		if g.ID == guildID {
			return guildID, true
		}
	}
	respondError(w, http.StatusNotFound, "unknown_guild", "bot is not in guild "+guildID)
	return "", false
}
