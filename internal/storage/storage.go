// Package storage persists guild settings, user records and member-seen
// markers behind a single Store interface.
//
// Two implementations exist: a Postgres store (used when DATABASE_URL is
// set) and a JSON file store with atomic rename writes. Guild settings are
// stored as opaque validated JSON documents so the storage layer stays
// decoupled from the settings schema.
package storage

import (
	"context"
	"time"
)

// UserRecord is one user's persisted preferences. Empty Nickname or VoiceID
// mean "unset"; an unset voice resolves to the tenant's user default.
type UserRecord struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Nickname    string    `json:"nickname,omitempty"`
	VoiceID     string    `json:"voice_id,omitempty"`
	AutoJoin    bool      `json:"auto_join"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Store is the durable backend shared by the settings, user-preference and
// member-seen caches. All implementations are safe for concurrent use.
type Store interface {
	// SaveGuildSettings persists a validated settings document for a guild.
	SaveGuildSettings(ctx context.Context, guildID string, doc []byte) error

	// LoadGuildSettings returns all persisted settings documents by guild id.
	LoadGuildSettings(ctx context.Context) (map[string][]byte, error)

	// UpsertUser inserts or replaces a user record.
	UpsertUser(ctx context.Context, rec UserRecord) error

	// GetUser fetches one user record. ok is false when absent.
	GetUser(ctx context.Context, userID string) (rec UserRecord, ok bool, err error)

	// ReplaceUserVoice rewrites every record holding fromVoice to toVoice
	// and returns the affected user ids.
	ReplaceUserVoice(ctx context.Context, fromVoice, toVoice string) ([]string, error)

	// MemberSeen returns the stored date key for (guild, user), or "" when
	// the pair has never been seen.
	MemberSeen(ctx context.Context, guildID, userID string) (string, error)

	// SetMemberSeen upserts the date key for (guild, user).
	SetMemberSeen(ctx context.Context, guildID, userID, dateKey string) error

	// Close releases the backend.
	Close() error
}
