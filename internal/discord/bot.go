// Package discord provides the Discord layer for Vexo. It owns the
// discordgo.Session lifecycle, implements the voice platform used by the
// per-guild sessions, translates gateway events into platform-neutral
// router events, and dispatches slash command interactions.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/vexofm/vexo/internal/catalog"
	"github.com/vexofm/vexo/internal/router"
	"github.com/vexofm/vexo/internal/session"
	"github.com/vexofm/vexo/internal/settings"
	"github.com/vexofm/vexo/internal/userprefs"
	"github.com/vexofm/vexo/pkg/audio"
)

// Config holds Discord bot configuration.
type Config struct {
	// Token is the Discord bot token (without the "Bot " prefix).
	Token string
}

// Bot owns the Discord gateway connection. Commands are registered
// globally, so the bot serves every guild it is invited to.
type Bot struct {
	mu        sync.RWMutex
	session   *discordgo.Session
	platform  *VoicePlatform
	cmds      *CommandRouter
	deps      Deps
	commands  []*discordgo.ApplicationCommand
	startedAt time.Time
	closeOnce sync.Once
}

// Deps are the collaborators the bot feeds gateway events into. Wired
// after construction because the session registry itself needs the bot's
// voice platform.
type Deps struct {
	Events   *router.Router
	Sessions *session.Registry
	Settings *settings.Store
	Prefs    *userprefs.Store
	Catalog  *catalog.Catalog
}

// New creates the bot and its gateway session without connecting.
func New(cfg Config, dec *audio.MP3Decoder) (*Bot, error) {
	s, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("discord: create session: %w", err)
	}

	s.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsMessageContent

	return &Bot{
		session:  s,
		platform: NewVoicePlatform(s, dec),
		cmds:     NewCommandRouter(),
	}, nil
}

// Platform returns the voice platform backed by this bot's session.
// Valid before Open.
func (b *Bot) Platform() *VoicePlatform { return b.platform }

// Router returns the command router for registering handlers.
func (b *Bot) Router() *CommandRouter { return b.cmds }

// Session returns the underlying discordgo session.
func (b *Bot) Session() *discordgo.Session { return b.session }

// Wire installs the event translators and slash commands. Must be called
// before Open.
func (b *Bot) Wire(deps Deps) {
	b.deps = deps

	NewCommands(deps.Sessions, deps.Settings, deps.Prefs, deps.Catalog).Register(b.cmds)

	b.session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		b.cmds.Handle(s, i)
	})
	b.session.AddHandler(b.onMessage)
	b.session.AddHandler(b.onVoiceState)
	b.session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		deps.Events.SetBotUser(r.User.ID)
		slog.Info("discord gateway ready", "user", r.User.Username, "guilds", len(r.Guilds))
	})
}

// Open connects to the gateway.
func (b *Bot) Open() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("discord: open session: %w", err)
	}
	b.mu.Lock()
	b.startedAt = time.Now()
	b.mu.Unlock()
	return nil
}

// Run registers the slash commands with the Discord API and blocks until
// ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	appID := b.session.State.User.ID

	cmds := b.cmds.ApplicationCommands()
	if len(cmds) > 0 {
		registered, err := b.session.ApplicationCommandBulkOverwrite(appID, "", cmds)
		if err != nil {
			return fmt.Errorf("discord: register commands: %w", err)
		}
		b.mu.Lock()
		b.commands = registered
		b.mu.Unlock()
		slog.Info("discord commands registered", "count", len(registered))
	}

	<-ctx.Done()
	return ctx.Err()
}

// Close disconnects from Discord and unregisters commands.
func (b *Bot) Close() error {
	var closeErr error
	b.closeOnce.Do(func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		if b.session != nil && len(b.commands) > 0 {
			appID := b.session.State.User.ID
			for _, cmd := range b.commands {
				if err := b.session.ApplicationCommandDelete(appID, "", cmd.ID); err != nil {
					slog.Warn("discord: failed to delete command", "name", cmd.Name, "err", err)
				}
			}
		}

		if b.session != nil {
			if err := b.session.Close(); err != nil {
				closeErr = fmt.Errorf("discord: close session: %w", err)
			}
		}

		slog.Info("discord bot closed")
	})
	return closeErr
}

// GuildInfo is one roster entry for the control plane.
type GuildInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Guilds returns the guilds the bot is currently in, sorted by name.
func (b *Bot) Guilds() []GuildInfo {
	b.session.State.RLock()
	out := make([]GuildInfo, 0, len(b.session.State.Guilds))
	for _, g := range b.session.State.Guilds {
		out = append(out, GuildInfo{ID: g.ID, Name: g.Name})
	}
	b.session.State.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// FirstPopulatedVoiceChannel returns the id of the guild's first voice
// channel (in display order) that has human members, "" when all are empty.
func (b *Bot) FirstPopulatedVoiceChannel(guildID string) string {
	g, err := b.session.State.Guild(guildID)
	if err != nil {
		return ""
	}

	b.session.State.RLock()
	channels := make([]*discordgo.Channel, len(g.Channels))
	copy(channels, g.Channels)
	b.session.State.RUnlock()

	sort.Slice(channels, func(i, j int) bool { return channels[i].Position < channels[j].Position })
	for _, ch := range channels {
		if ch.Type != discordgo.ChannelTypeGuildVoice {
			continue
		}
		if b.platform.NonBotMembers(guildID, ch.ID) > 0 {
			return ch.ID
		}
	}
	return ""
}

// BotTag returns the bot account's user tag, "" before the gateway is open.
func (b *Bot) BotTag() string {
	u := b.session.State.User
	if u == nil {
		return ""
	}
	if u.Discriminator == "" || u.Discriminator == "0" {
		return u.Username
	}
	return u.Username + "#" + u.Discriminator
}

// StartedAt reports when the gateway connection was opened.
func (b *Bot) StartedAt() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.startedAt
}
