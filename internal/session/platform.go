package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/vexofm/vexo/pkg/audio"
)

// ErrAlreadyConnected is returned by [Platform.Join] when the platform is
// still holding a live voice client for the guild.
var ErrAlreadyConnected = errors.New("session: already connected")

// ErrCooldown rejects a reconnect attempt made within the per-guild
// connect cooldown window.
var ErrCooldown = errors.New("session: reconnect cooldown active")

// LockedError rejects an attachment attempt while the session is attached
// to a different channel.
type LockedError struct {
	ChannelID string
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("session: locked to channel %s", e.ChannelID)
}

// ConnectFailedError wraps a platform-side connect failure.
type ConnectFailedError struct {
	Cause error
}

func (e *ConnectFailedError) Error() string {
	return fmt.Sprintf("session: connect failed: %v", e.Cause)
}

func (e *ConnectFailedError) Unwrap() error { return e.Cause }

// Platform is the voice surface of the chat platform. internal/discord
// implements it over discordgo; tests use a mock.
type Platform interface {
	// Join connects the bot to a voice channel self-deafened and returns
	// the live client. Implementations return an error wrapping
	// [ErrAlreadyConnected] when a voice client already exists for the
	// guild.
	Join(ctx context.Context, guildID, channelID string) (Conn, error)

	// Live returns the platform's current voice client for the guild, nil
	// when none exists. Used to adopt clients that outlived a process
	// restart and to detect platform-side drops.
	Live(guildID string) Conn

	// NonBotMembers counts the human members currently in a voice channel.
	NonBotMembers(guildID, channelID string) int
}

// Conn is an attached voice client.
type Conn interface {
	// ChannelID reports the channel the client is on.
	ChannelID() string

	// Move switches the client to another channel without disconnecting.
	Move(ctx context.Context, channelID string) error

	// Sink returns the playback sink for this client.
	Sink() audio.Sink

	// Close disconnects the client. Safe to call more than once.
	Close() error
}
