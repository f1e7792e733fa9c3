// Package router turns platform events into session actions: chat auto-read
// with speaker attribution, auto-join and auto-leave on voice-state changes,
// and greet/farewell announcements. Handlers never propagate errors back to
// the platform SDK; everything is logged and swallowed.
package router

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/vexofm/vexo/internal/catalog"
	"github.com/vexofm/vexo/internal/queue"
	"github.com/vexofm/vexo/internal/session"
	"github.com/vexofm/vexo/internal/settings"
	"github.com/vexofm/vexo/internal/userprefs"
)

// Config tunes the router's rate limits and caps.
type Config struct {
	// MaxMessageChars truncates chat message content before attribution.
	MaxMessageChars int

	// MaxUtteranceChars caps the composed utterance.
	MaxUtteranceChars int

	// UserCooldown drops messages from an author who spoke too recently.
	UserCooldown time.Duration

	// Coalesce merges rapid messages from the same author into one
	// utterance.
	Coalesce time.Duration

	// AllowedTextChannels, when non-empty, limits auto-read globally in
	// addition to the per-guild allowlist.
	AllowedTextChannels []int64
}

// Router dispatches platform events. Safe for concurrent use.
type Router struct {
	cfg      Config
	sessions *session.Registry
	platform session.Platform
	settings *settings.Store
	prefs    *userprefs.Store
	cat      *catalog.Catalog

	botUserID string

	mu      sync.Mutex
	lastAt  map[string]time.Time // author -> last enqueue time
	pending map[string]*pendingUtterance
}

// pendingUtterance buffers rapid messages from one author while the
// coalesce window is open.
type pendingUtterance struct {
	msg   Message
	texts []string
	timer *time.Timer
}

// New creates a Router. Zero config fields get the standard defaults.
func New(cfg Config, sessions *session.Registry, platform session.Platform, st *settings.Store, prefs *userprefs.Store, cat *catalog.Catalog) *Router {
	if cfg.MaxMessageChars <= 0 {
		cfg.MaxMessageChars = 350
	}
	if cfg.MaxUtteranceChars <= 0 {
		cfg.MaxUtteranceChars = 1000
	}
	if cfg.UserCooldown < 0 {
		cfg.UserCooldown = 0
	}
	return &Router{
		cfg:      cfg,
		sessions: sessions,
		platform: platform,
		settings: st,
		prefs:    prefs,
		cat:      cat,
		lastAt:   make(map[string]time.Time),
		pending:  make(map[string]*pendingUtterance),
	}
}

// SetBotUser records the bot's own user id so its events can be told apart.
func (r *Router) SetBotUser(userID string) {
	r.mu.Lock()
	r.botUserID = userID
	r.mu.Unlock()
}

func (r *Router) botUser() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.botUserID
}

// Attachment describes one message attachment for classification.
type Attachment struct {
	ContentType string
	Filename    string
}

// Message is an inbound chat message, already resolved by the platform
// layer. Content should be mention-normalized (see [NormalizeMentions]).
type Message struct {
	GuildID   string
	ChannelID string

	AuthorID          string
	AuthorDisplayName string
	AuthorBot         bool

	// AuthorVoiceChannelID is the voice channel the author is currently
	// in, "" when they are not in voice.
	AuthorVoiceChannelID string

	Content     string
	Attachments []Attachment

	// EmbedTypes carries the embed type strings ("image", "video", ...).
	EmbedTypes []string
}

// HandleMessage runs the chat auto-read flow for one message.
func (r *Router) HandleMessage(ctx context.Context, msg Message) {
	if msg.AuthorBot || msg.GuildID == "" {
		return
	}
	if strings.TrimSpace(msg.Content) == "" {
		return
	}

	gs := r.settings.Get(msg.GuildID)
	if !gs.AutoReadMessages {
		return
	}
	if !r.textChannelAllowed(gs, msg.ChannelID) {
		return
	}

	// Auto-read only fires in a voice channel's text surface, and only
	// while the author is in that same voice channel.
	if msg.AuthorVoiceChannelID == "" || msg.AuthorVoiceChannelID != msg.ChannelID {
		return
	}

	if r.coalesce(ctx, msg) {
		return
	}
	r.deliver(ctx, msg, []string{msg.Content})
}

// coalesce buffers the message when the author posted again within the
// coalesce window. Returns true when the message was absorbed.
func (r *Router) coalesce(ctx context.Context, msg Message) bool {
	if r.cfg.Coalesce <= 0 {
		return false
	}
	key := msg.GuildID + "/" + msg.AuthorID

	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.pending[key]; ok {
		p.texts = append(p.texts, msg.Content)
		return true
	}

	p := &pendingUtterance{msg: msg, texts: []string{msg.Content}}
	p.timer = time.AfterFunc(r.cfg.Coalesce, func() {
		r.mu.Lock()
		delete(r.pending, key)
		texts := p.texts
		r.mu.Unlock()
		r.deliver(ctx, p.msg, texts)
	})
	r.pending[key] = p
	return true
}

// deliver attaches, resolves the voice and enqueues the composed utterance.
func (r *Router) deliver(ctx context.Context, msg Message, texts []string) {
	if r.cfg.UserCooldown > 0 {
		r.mu.Lock()
		last, seen := r.lastAt[msg.AuthorID]
		if seen && time.Since(last) < r.cfg.UserCooldown {
			r.mu.Unlock()
			slog.Debug("auto-read dropped by user cooldown", "guild_id", msg.GuildID, "user_id", msg.AuthorID)
			return
		}
		r.lastAt[msg.AuthorID] = time.Now()
		r.mu.Unlock()
	}

	sess := r.sessions.Get(msg.GuildID)
	if err := sess.EnsureConnected(ctx, msg.AuthorVoiceChannelID); err != nil {
		slog.Warn("auto-read attach failed", "guild_id", msg.GuildID, "channel_id", msg.AuthorVoiceChannelID, "error", err)
		return
	}

	if err := r.prefs.Touch(ctx, msg.AuthorID, msg.AuthorDisplayName); err != nil {
		slog.Warn("display name upsert failed", "user_id", msg.AuthorID, "error", err)
	}

	gs := r.settings.Get(msg.GuildID)
	pref, err := r.prefs.Voice(ctx, msg.AuthorID)
	if err != nil {
		slog.Warn("voice preference lookup failed", "user_id", msg.AuthorID, "error", err)
	}
	voiceID := settings.EffectiveVoice(gs, r.cat, pref, false)

	text, isStatus := r.compose(ctx, msg, texts)
	if text == "" {
		return
	}

	if !isStatus && sess.LastSpeaker() != msg.AuthorID {
		name := r.prefs.SpeakName(ctx, msg.AuthorID, msg.AuthorDisplayName)
		text = name + ` said. "` + text + `"`
	}
	sess.SetLastSpeaker(msg.AuthorID)

	if n := r.cfg.MaxUtteranceChars; n > 0 {
		if runes := []rune(text); len(runes) > n {
			text = string(runes[:n])
		}
	}

	sess.Enqueue(queue.Item{Text: text, VoiceID: voiceID, Source: "chat"})
}

// compose classifies the message and returns the text to speak plus whether
// it is a status line (statuses skip speaker attribution).
func (r *Router) compose(ctx context.Context, msg Message, texts []string) (string, bool) {
	switch {
	case hasImage(msg):
		return r.prefs.SpeakName(ctx, msg.AuthorID, msg.AuthorDisplayName) + " posted an image", true
	case hasVideo(msg):
		return r.prefs.SpeakName(ctx, msg.AuthorID, msg.AuthorDisplayName) + " posted a video", true
	}

	joined := strings.TrimSpace(strings.Join(texts, ". "))
	lowered := strings.ToLower(joined)
	if strings.Contains(lowered, "http://") || strings.Contains(lowered, "https://") {
		return r.prefs.SpeakName(ctx, msg.AuthorID, msg.AuthorDisplayName) + " posted a link", true
	}

	if n := r.cfg.MaxMessageChars; n > 0 {
		if runes := []rune(joined); len(runes) > n {
			joined = string(runes[:n])
		}
	}
	return joined, false
}

func (r *Router) textChannelAllowed(gs settings.GuildSettings, channelID string) bool {
	id, err := strconv.ParseInt(channelID, 10, 64)
	if err != nil {
		return false
	}
	if !gs.TextChannelAllowed(id) {
		return false
	}
	if len(r.cfg.AllowedTextChannels) == 0 {
		return true
	}
	for _, allowed := range r.cfg.AllowedTextChannels {
		if allowed == id {
			return true
		}
	}
	return false
}

var imageExts = []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp", ".tiff", ".svg"}
var videoExts = []string{".mp4", ".mov", ".webm", ".mkv", ".avi", ".wmv", ".flv", ".m4v"}

func hasImage(msg Message) bool {
	for _, a := range msg.Attachments {
		if classify(a, "image/", imageExts) {
			return true
		}
	}
	return hasEmbedType(msg, "image")
}

func hasVideo(msg Message) bool {
	for _, a := range msg.Attachments {
		if classify(a, "video/", videoExts) {
			return true
		}
	}
	return hasEmbedType(msg, "video")
}

func classify(a Attachment, ctPrefix string, exts []string) bool {
	if strings.HasPrefix(strings.ToLower(a.ContentType), ctPrefix) {
		return true
	}
	name := strings.ToLower(a.Filename)
	for _, ext := range exts {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

func hasEmbedType(msg Message, want string) bool {
	for _, t := range msg.EmbedTypes {
		if strings.EqualFold(t, want) {
			return true
		}
	}
	return false
}
