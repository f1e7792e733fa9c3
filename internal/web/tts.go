package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/vexofm/vexo/internal/announcer"
	"github.com/vexofm/vexo/internal/queue"
	"github.com/vexofm/vexo/internal/session"
	"github.com/vexofm/vexo/internal/settings"
)

// radioVolume attenuates presenter lines so they sit under music playback.
const radioVolume = 0.5

type ttsRequest struct {
	GuildID   string `json:"guild_id"`
	Text      string `json:"text"`
	VoiceID   string `json:"voice_id,omitempty"`
	ChannelID string `json:"channel_id,omitempty"`
}

type queuedResponse struct {
	Queued    bool   `json:"queued"`
	ChannelID string `json:"channel_id"`
	VoiceID   string `json:"voice_id"`
	Dropped   int    `json:"dropped,omitempty"`
}

// handleTTS speaks arbitrary text into a guild voice channel on behalf of
// the control plane.
func (s *Server) handleTTS(w http.ResponseWriter, r *http.Request) {
	var req ttsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", "request body must be JSON")
		return
	}
	guildID, ok := s.requireGuild(w, req.GuildID)
	if !ok {
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		respondError(w, http.StatusBadRequest, "missing_text", "text is required")
		return
	}

	gs := s.deps.Settings.Get(guildID)
	voiceID := settings.EffectiveVoice(gs, s.deps.Catalog, req.VoiceID, false)

	s.speak(w, r, guildID, req.ChannelID, queue.Item{Text: text, VoiceID: voiceID, Source: "web"})
}

type radioRequest struct {
	GuildID     string `json:"guild_id"`
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	RequestedBy string `json:"requested_by,omitempty"`
	ForUser     string `json:"for_user,omitempty"`
	ChannelID   string `json:"channel_id,omitempty"`
}

type radioResponse struct {
	queuedResponse
	Intro     string `json:"intro"`
	Generated bool   `json:"generated"`
}

// handleRadioPresenter generates a DJ intro for a song and speaks it in the
// guild. The line plays attenuated and in the server voice, so it reads as
// the station talking rather than a user.
func (s *Server) handleRadioPresenter(w http.ResponseWriter, r *http.Request) {
	var req radioRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", "request body must be JSON")
		return
	}
	guildID, ok := s.requireGuild(w, req.GuildID)
	if !ok {
		return
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Artist) == "" {
		respondError(w, http.StatusBadRequest, "missing_song", "title and artist are required")
		return
	}

	intro, generated := s.deps.Announcer.Intro(r.Context(), announcer.IntroRequest{
		Title:       req.Title,
		Artist:      req.Artist,
		RequestedBy: req.RequestedBy,
		ForUser:     req.ForUser,
	})

	gs := s.deps.Settings.Get(guildID)
	item := queue.Item{
		Text:         intro,
		VoiceID:      settings.EffectiveVoice(gs, s.deps.Catalog, "", true),
		Volume:       radioVolume,
		AllowDefault: true,
		Source:       "announcement",
	}

	qr, ok := s.enqueue(w, r, guildID, req.ChannelID, item)
	if !ok {
		return
	}
	respondJSON(w, http.StatusAccepted, radioResponse{
		queuedResponse: qr,
		Intro:          intro,
		Generated:      generated,
	})
}

type suggestionsRequest struct {
	Prompt string `json:"prompt,omitempty"`
	Count  int    `json:"count,omitempty"`
}

func (s *Server) handleSongSuggestions(w http.ResponseWriter, r *http.Request) {
	var req suggestionsRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_body", "request body must be JSON")
		return
	}

	songs := s.deps.Announcer.Suggestions(r.Context(), announcer.SuggestionsRequest{
		Prompt: req.Prompt,
		Count:  req.Count,
	})
	respondJSON(w, http.StatusOK, map[string]any{"songs": songs})
}

// speak runs the enqueue flow and writes the plain queued response.
func (s *Server) speak(w http.ResponseWriter, r *http.Request, guildID, channelID string, item queue.Item) {
	qr, ok := s.enqueue(w, r, guildID, channelID, item)
	if !ok {
		return
	}
	respondJSON(w, http.StatusAccepted, qr)
}

// enqueue resolves the target voice channel, connects the guild session
// and queues the utterance. On failure it writes the error response and
// returns ok=false.
func (s *Server) enqueue(w http.ResponseWriter, r *http.Request, guildID, channelID string, item queue.Item) (queuedResponse, bool) {
	sess := s.deps.Sessions.Get(guildID)

	// Explicit channel wins; otherwise stay where we are, or find listeners.
	target := channelID
	if target == "" {
		target = sess.ChannelID()
	}
	if target == "" {
		target = s.deps.Bot.FirstPopulatedVoiceChannel(guildID)
	}
	if target == "" {
		respondError(w, http.StatusConflict, "no_channel", "no populated voice channel to join")
		return queuedResponse{}, false
	}

	if err := sess.EnsureConnected(r.Context(), target); err != nil {
		var locked *session.LockedError
		switch {
		case errors.As(err, &locked):
			respondError(w, http.StatusConflict, "locked", "session is locked to channel "+locked.ChannelID)
		case errors.Is(err, session.ErrCooldown):
			respondError(w, http.StatusConflict, "cooldown", "reconnect cooldown active, retry shortly")
		default:
			respondError(w, http.StatusBadGateway, "connect_failed", err.Error())
		}
		return queuedResponse{}, false
	}

	dropped, accepted := sess.Enqueue(item)
	if !accepted {
		respondError(w, http.StatusTooManyRequests, "queue_full", "utterance queue is full")
		return queuedResponse{}, false
	}
	return queuedResponse{
		Queued:    true,
		ChannelID: target,
		VoiceID:   item.VoiceID,
		Dropped:   dropped,
	}, true
}
