package router

import (
	"context"
	"log/slog"

	"github.com/vexofm/vexo/internal/session"
)

// VoiceState is one voice-state transition, already flattened by the
// platform layer.
type VoiceState struct {
	GuildID     string
	UserID      string
	DisplayName string
	Bot         bool

	BeforeChannelID string
	AfterChannelID  string
}

// HandleVoiceState reacts to a voice-state change: external bot
// disconnects, auto-follow joins, greet/farewell announcements and
// auto-leave when the channel empties.
func (r *Router) HandleVoiceState(ctx context.Context, ev VoiceState) {
	if ev.GuildID == "" {
		return
	}
	sess := r.sessions.Get(ev.GuildID)

	// The bot itself was disconnected (kicked or channel deleted).
	if ev.UserID == r.botUser() {
		if ev.BeforeChannelID != "" && ev.AfterChannelID == "" {
			if err := sess.Disconnect(session.ReasonDisconnected); err != nil {
				slog.Warn("disconnect after kick failed", "guild_id", ev.GuildID, "error", err)
			}
		}
		return
	}

	botChannel := sess.ChannelID()

	// Auto-follow users who opted in, as long as nobody is with the bot.
	if !ev.Bot && ev.AfterChannelID != "" && ev.AfterChannelID != ev.BeforeChannelID {
		r.autoFollow(ctx, sess, botChannel, ev)
	}

	// Greetings and farewells only make sense while the bot is in a
	// channel.
	if botChannel != "" && !ev.Bot {
		joined := ev.AfterChannelID == botChannel && ev.BeforeChannelID != botChannel
		left := ev.BeforeChannelID == botChannel && ev.AfterChannelID != botChannel

		if joined || left {
			gs := r.settings.Get(ev.GuildID)
			if joined && gs.GreetOnJoin {
				sess.Greet(ctx, ev.UserID, ev.DisplayName)
			}
			if left && gs.FarewellOnLeave {
				sess.Farewell(ctx, ev.UserID, ev.DisplayName)
			}
		}
	}

	r.checkShouldLeave(ev.GuildID, sess)
}

// autoFollow moves the bot to the channel a followed user just joined,
// never abandoning a channel that still has people in it.
func (r *Router) autoFollow(ctx context.Context, sess *session.GuildSession, botChannel string, ev VoiceState) {
	wants, err := r.prefs.AutoJoin(ctx, ev.UserID)
	if err != nil {
		slog.Warn("auto-join lookup failed", "user_id", ev.UserID, "error", err)
		return
	}
	if !wants {
		return
	}

	switch {
	case botChannel == "":
		if err := sess.EnsureConnected(ctx, ev.AfterChannelID); err != nil {
			slog.Warn("auto-join attach failed", "guild_id", ev.GuildID, "channel_id", ev.AfterChannelID, "error", err)
		}
	case botChannel != ev.AfterChannelID:
		if r.platform.NonBotMembers(ev.GuildID, botChannel) > 0 {
			// Don't leave people already with the bot.
			return
		}
		if err := sess.Disconnect(session.ReasonAutoFollow); err != nil {
			slog.Warn("auto-join detach failed", "guild_id", ev.GuildID, "error", err)
			return
		}
		if err := sess.EnsureConnected(ctx, ev.AfterChannelID); err != nil {
			slog.Warn("auto-join attach failed", "guild_id", ev.GuildID, "channel_id", ev.AfterChannelID, "error", err)
		}
	}
}

// checkShouldLeave detaches when the bot's channel has no human members
// left and the tenant opted into leave-when-alone.
func (r *Router) checkShouldLeave(guildID string, sess *session.GuildSession) {
	channel := sess.ChannelID()
	if channel == "" {
		return
	}
	if !r.settings.Get(guildID).LeaveWhenAlone {
		return
	}
	if r.platform.NonBotMembers(guildID, channel) > 0 {
		return
	}
	if err := sess.Disconnect(session.ReasonAlone); err != nil {
		slog.Warn("auto-leave failed", "guild_id", guildID, "error", err)
	}
}
