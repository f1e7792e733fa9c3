package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"github.com/vexofm/vexo/internal/catalog"
	"github.com/vexofm/vexo/internal/queue"
	"github.com/vexofm/vexo/internal/session"
	"github.com/vexofm/vexo/internal/settings"
	"github.com/vexofm/vexo/internal/userprefs"
)

// maxChoices is Discord's autocomplete choice limit.
const maxChoices = 25

const commandTimeout = 30 * time.Second

// Commands holds the dependencies for the voice slash commands.
type Commands struct {
	sessions *session.Registry
	settings *settings.Store
	prefs    *userprefs.Store
	cat      *catalog.Catalog
}

// NewCommands creates the slash command handlers.
func NewCommands(sessions *session.Registry, st *settings.Store, prefs *userprefs.Store, cat *catalog.Catalog) *Commands {
	return &Commands{sessions: sessions, settings: st, prefs: prefs, cat: cat}
}

// Register registers /tts, /leave, /voice and the /set group.
func (c *Commands) Register(r *CommandRouter) {
	r.RegisterCommand("tts", ttsDefinition(), c.handleTTS)
	r.RegisterCommand("leave", leaveDefinition(), c.handleLeave)
	r.RegisterCommand("voice", voiceDefinition(), c.handleVoice)
	r.RegisterAutocomplete("voice", c.autocompleteVoice)

	r.RegisterCommand("set", setDefinition(), func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		RespondEphemeral(s, i, "Please use a subcommand: `/set voice`, `/set nickname` or `/set followme`.")
	})
	r.RegisterHandler("set/voice", c.handleSetVoice)
	r.RegisterAutocomplete("set/voice", c.autocompleteVoice)
	r.RegisterHandler("set/nickname", c.handleSetNickname)
	r.RegisterHandler("set/followme", c.handleSetFollowme)
}

func ttsDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "tts",
		Description: "Speak text in your current voice channel",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "text",
				Description: "Text to speak",
				Required:    true,
			},
		},
	}
}

func leaveDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "leave",
		Description: "Disconnect the bot from voice in this server",
	}
}

func voiceDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "voice",
		Description: "View or set your personal TTS voice",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:         discordgo.ApplicationCommandOptionString,
				Name:         "voice_id",
				Description:  "Voice ID or name (autocomplete). Use 'reset' to clear",
				Autocomplete: true,
			},
		},
	}
}

func setDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "set",
		Description: "Set preferences",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "voice",
				Description: "Pick your voice by name or id",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:         discordgo.ApplicationCommandOptionString,
						Name:         "voice_id",
						Description:  "Leave empty to view. Or type to search.",
						Autocomplete: true,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "nickname",
				Description: "Set the name the bot will speak for you",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "nickname",
						Description: "Leave empty to view. Use 'reset' to clear.",
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "followme",
				Description: "Have the bot auto-join your voice channel",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionBoolean,
						Name:        "enabled",
						Description: "Enable or disable auto-join",
					},
				},
			},
		},
	}
}

// handleTTS handles /tts: attach to the caller's voice channel and queue
// the text with their personal voice.
func (c *Commands) handleTTS(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" {
		RespondEphemeral(s, i, "This command can only be used in a server.")
		return
	}
	userID := interactionUserID(i)
	text := strings.TrimSpace(stringOption(i, "text"))
	if text == "" {
		RespondEphemeral(s, i, "Nothing to say.")
		return
	}

	channel := voiceChannelOf(s, i.GuildID, userID)
	if channel == "" {
		RespondEphemeral(s, i, "Join a voice channel first.")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	sess := c.sessions.Get(i.GuildID)
	if err := sess.EnsureConnected(ctx, channel); err != nil {
		var locked *session.LockedError
		if errors.As(err, &locked) {
			RespondEphemeral(s, i, fmt.Sprintf(
				"I'm currently locked to <#%s>. Try again once it's empty (or use /leave).", locked.ChannelID))
			return
		}
		RespondError(s, i, err)
		return
	}

	if err := c.prefs.Touch(ctx, userID, interactionDisplayName(i)); err != nil {
		slog.Warn("discord: touch user failed", "user_id", userID, "err", err)
	}

	gs := c.settings.Get(i.GuildID)
	pref, err := c.prefs.Voice(ctx, userID)
	if err != nil {
		slog.Warn("discord: voice pref lookup failed", "user_id", userID, "err", err)
		pref = ""
	}

	sess.Enqueue(queue.Item{
		Text:    text,
		VoiceID: settings.EffectiveVoice(gs, c.cat, pref, false),
		Source:  "command",
	})
	RespondEphemeral(s, i, "Queued.")
}

// handleLeave handles /leave.
func (c *Commands) handleLeave(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" {
		RespondEphemeral(s, i, "This command can only be used in a server.")
		return
	}
	if err := c.sessions.Get(i.GuildID).Disconnect(session.ReasonSlashLeave); err != nil {
		slog.Warn("discord: leave failed", "guild_id", i.GuildID, "err", err)
	}
	RespondEphemeral(s, i, "Disconnected.")
}

// handleVoice handles /voice (view or set).
func (c *Commands) handleVoice(s *discordgo.Session, i *discordgo.InteractionCreate) {
	c.voiceCommand(s, i)
}

// handleSetVoice handles /set voice. Same semantics as /voice; it exists so
// all preferences live under one command group.
func (c *Commands) handleSetVoice(s *discordgo.Session, i *discordgo.InteractionCreate) {
	c.voiceCommand(s, i)
}

func (c *Commands) voiceCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" {
		RespondEphemeral(s, i, "This command can only be used in a server.")
		return
	}
	userID := interactionUserID(i)

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err := c.prefs.Touch(ctx, userID, interactionDisplayName(i)); err != nil {
		slog.Warn("discord: touch user failed", "user_id", userID, "err", err)
	}

	gs := c.settings.Get(i.GuildID)
	userDefault := settings.UserDefault(gs, c.cat)

	raw, present := optionalStringOption(i, "voice_id")
	if !present {
		saved, err := c.prefs.Voice(ctx, userID)
		if err != nil {
			RespondError(s, i, err)
			return
		}
		effective := settings.EffectiveVoice(gs, c.cat, saved, false)
		note := ""
		if saved != "" && saved != effective {
			note = fmt.Sprintf(
				"\nNote: Your saved voice (`%s`) isn't available in this server, so I'll use `%s` instead.",
				saved, effective)
		}
		RespondEphemeral(s, i, fmt.Sprintf(
			"Your voice is `%s`%s.%s\nChange it with `/set voice` (autocomplete helps).",
			effective, friendlySuffix(c.cat, effective), note))
		return
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		RespondEphemeral(s, i, "Pick a voice, or leave the option empty to view your current one.")
		return
	}

	switch strings.ToLower(raw) {
	case "reset", "default":
		if err := c.prefs.SetVoice(ctx, userID, interactionDisplayName(i), userDefault); err != nil {
			RespondError(s, i, err)
			return
		}
		RespondEphemeral(s, i, fmt.Sprintf("Reset your voice to `%s` (the server voice is reserved).", userDefault))
		return
	}

	id := raw
	if v, ok := c.cat.Lookup(raw); ok {
		id = v.ID
	}

	if id == gs.DefaultVoiceID {
		RespondEphemeral(s, i, "That voice is reserved for the bot. Please choose a different voice.")
		return
	}
	if !gs.VoiceAllowed(id) {
		RespondEphemeral(s, i, fmt.Sprintf(
			"`%s` isn't allowed in this server. Ask an admin to allow it in the web settings.", id))
		return
	}

	if err := c.prefs.SetVoice(ctx, userID, interactionDisplayName(i), id); err != nil {
		RespondError(s, i, err)
		return
	}
	RespondEphemeral(s, i, fmt.Sprintf("Set your voice to `%s`%s.", id, friendlySuffix(c.cat, id)))
}

// handleSetNickname handles /set nickname.
func (c *Commands) handleSetNickname(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" {
		RespondEphemeral(s, i, "This command can only be used in a server.")
		return
	}
	userID := interactionUserID(i)
	displayName := interactionDisplayName(i)

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	raw, present := optionalStringOption(i, "nickname")
	if !present {
		current, err := c.prefs.Nickname(ctx, userID)
		if err != nil {
			RespondError(s, i, err)
			return
		}
		if current != "" {
			RespondEphemeral(s, i, fmt.Sprintf("Your nickname is set to `%s` (this is what I'll speak).", current))
		} else {
			RespondEphemeral(s, i, fmt.Sprintf(
				"You don't have a nickname set. I'll use your Discord display name (`%s`).\nSet one with `/set nickname <name>`.",
				displayName))
		}
		return
	}

	nickname := strings.Join(strings.Fields(raw), " ")
	lower := strings.ToLower(nickname)
	if nickname == "" || lower == "reset" || lower == "clear" || lower == "default" {
		if err := c.prefs.ClearNickname(ctx, userID, displayName); err != nil {
			RespondError(s, i, err)
			return
		}
		RespondEphemeral(s, i, fmt.Sprintf(
			"Cleared your nickname. I'll use your Discord display name (`%s`).", displayName))
		return
	}

	if utf8.RuneCountInString(nickname) > userprefs.MaxNicknameLen {
		RespondEphemeral(s, i, fmt.Sprintf("Nickname must be %d characters or fewer.", userprefs.MaxNicknameLen))
		return
	}

	if err := c.prefs.SetNickname(ctx, userID, displayName, nickname); err != nil {
		RespondError(s, i, err)
		return
	}
	RespondEphemeral(s, i, fmt.Sprintf("Saved! Your nickname is now `%s`.", nickname))
}

// handleSetFollowme handles /set followme.
func (c *Commands) handleSetFollowme(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" {
		RespondEphemeral(s, i, "This command can only be used in a server.")
		return
	}
	userID := interactionUserID(i)

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err := c.prefs.Touch(ctx, userID, interactionDisplayName(i)); err != nil {
		slog.Warn("discord: touch user failed", "user_id", userID, "err", err)
	}

	enabled, present := boolOption(i, "enabled")
	if !present {
		current, err := c.prefs.AutoJoin(ctx, userID)
		if err != nil {
			RespondError(s, i, err)
			return
		}
		RespondEphemeral(s, i, fmt.Sprintf("Auto-join is currently `%s` for you.", onOff(current)))
		return
	}

	if err := c.prefs.SetAutoJoin(ctx, userID, interactionDisplayName(i), enabled); err != nil {
		RespondError(s, i, err)
		return
	}
	RespondEphemeral(s, i, fmt.Sprintf("Auto-join is now `%s` for you.", onOff(enabled)))
}

// autocompleteVoice answers /voice and /set voice autocomplete with
// catalog matches, popular voices first, the reserved server voice
// excluded.
func (c *Commands) autocompleteVoice(s *discordgo.Session, i *discordgo.InteractionCreate) {
	gs := c.settings.Get(i.GuildID)
	RespondChoices(s, i, c.voiceChoices(gs, focusedOption(i)))
}

func (c *Commands) voiceChoices(gs settings.GuildSettings, query string) []*discordgo.ApplicationCommandOptionChoice {
	choices := []*discordgo.ApplicationCommandOptionChoice{
		{Name: "reset (clear preference)", Value: "reset"},
	}
	for _, v := range c.cat.Autocomplete(query, 2*maxChoices) {
		if v.ID == gs.DefaultVoiceID || !gs.VoiceAllowed(v.ID) {
			continue
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  choiceLabel(v),
			Value: v.ID,
		})
		if len(choices) == maxChoices {
			break
		}
	}
	return choices
}

// choiceLabel renders "Name (id)" within Discord's 100 character limit.
func choiceLabel(v catalog.Voice) string {
	label := v.ID
	if v.Name != "" && v.Name != v.ID {
		label = v.Name + " (" + v.ID + ")"
	}
	if len(label) > 100 {
		label = label[:100]
	}
	return label
}

func friendlySuffix(cat *catalog.Catalog, id string) string {
	if name := cat.FriendlyName(id); name != id {
		return " (" + name + ")"
	}
	return ""
}

func onOff(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}

// interactionUserID extracts the user ID from an interaction, handling
// both guild (Member) and DM (User) contexts.
func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

// interactionDisplayName extracts the invoking user's display name.
func interactionDisplayName(i *discordgo.InteractionCreate) string {
	if i.Member != nil {
		return memberDisplayName(i.Member, i.Member.User)
	}
	return memberDisplayName(nil, i.User)
}

// commandOptions returns the option list of the invoked command, unwrapping
// a subcommand level when present.
func commandOptions(i *discordgo.InteractionCreate) []*discordgo.ApplicationCommandInteractionDataOption {
	opts := i.ApplicationCommandData().Options
	if len(opts) > 0 && opts[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		return opts[0].Options
	}
	return opts
}

func stringOption(i *discordgo.InteractionCreate, name string) string {
	v, _ := optionalStringOption(i, name)
	return v
}

func optionalStringOption(i *discordgo.InteractionCreate, name string) (string, bool) {
	for _, opt := range commandOptions(i) {
		if opt.Name == name && opt.Type == discordgo.ApplicationCommandOptionString {
			return opt.StringValue(), true
		}
	}
	return "", false
}

func boolOption(i *discordgo.InteractionCreate, name string) (value, present bool) {
	for _, opt := range commandOptions(i) {
		if opt.Name == name && opt.Type == discordgo.ApplicationCommandOptionBoolean {
			return opt.BoolValue(), true
		}
	}
	return false, false
}

func focusedOption(i *discordgo.InteractionCreate) string {
	for _, opt := range commandOptions(i) {
		if opt.Focused {
			if s, ok := opt.Value.(string); ok {
				return s
			}
		}
	}
	return ""
}
