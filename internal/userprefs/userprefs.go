// Package userprefs caches per-user voice, nickname and auto-join
// preferences with write-through persistence. Every setter upserts the
// user's display name so records stay labelled for the operator UI.
package userprefs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vexofm/vexo/internal/storage"
)

// MaxNicknameLen caps stored nicknames.
const MaxNicknameLen = 64

// Store is the user-preference cache. Safe for concurrent use.
type Store struct {
	persist storage.Store

	mu sync.Mutex
	// cache holds loaded records; a nil entry marks a user known to be
	// absent so repeated misses skip storage.
	cache map[string]*storage.UserRecord
}

// NewStore creates a Store backed by persist.
func NewStore(persist storage.Store) *Store {
	return &Store{
		persist: persist,
		cache:   make(map[string]*storage.UserRecord),
	}
}

// load returns the cached record, falling through to storage on a miss.
// Must be called with s.mu held.
func (s *Store) load(ctx context.Context, userID string) (*storage.UserRecord, error) {
	if rec, ok := s.cache[userID]; ok {
		return rec, nil
	}
	rec, ok, err := s.persist.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("userprefs: load %s: %w", userID, err)
	}
	if !ok {
		s.cache[userID] = nil
		return nil, nil
	}
	s.cache[userID] = &rec
	return &rec, nil
}

// mutate loads (or creates) the user's record, applies fn, persists and
// re-caches it. displayName refreshes the stored label when non-empty.
func (s *Store) mutate(ctx context.Context, userID, displayName string, fn func(*storage.UserRecord)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	var next storage.UserRecord
	if rec != nil {
		next = *rec
	} else {
		next = storage.UserRecord{UserID: userID}
	}
	if displayName != "" {
		next.DisplayName = displayName
	}
	fn(&next)

	if err := s.persist.UpsertUser(ctx, next); err != nil {
		return fmt.Errorf("userprefs: persist %s: %w", userID, err)
	}
	s.cache[userID] = &next
	return nil
}

// Touch upserts the user's display name without changing preferences.
func (s *Store) Touch(ctx context.Context, userID, displayName string) error {
	if displayName == "" {
		return nil
	}
	return s.mutate(ctx, userID, displayName, func(*storage.UserRecord) {})
}

// Voice returns the user's preferred voice id, "" when unset.
func (s *Store) Voice(ctx context.Context, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.load(ctx, userID)
	if err != nil || rec == nil {
		return "", err
	}
	return rec.VoiceID, nil
}

// SetVoice stores the user's preferred voice.
func (s *Store) SetVoice(ctx context.Context, userID, displayName, voiceID string) error {
	return s.mutate(ctx, userID, displayName, func(r *storage.UserRecord) {
		r.VoiceID = voiceID
	})
}

// ClearVoice removes the user's voice preference.
func (s *Store) ClearVoice(ctx context.Context, userID, displayName string) error {
	return s.SetVoice(ctx, userID, displayName, "")
}

// Nickname returns the user's spoken nickname, "" when unset.
func (s *Store) Nickname(ctx context.Context, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.load(ctx, userID)
	if err != nil || rec == nil {
		return "", err
	}
	return rec.Nickname, nil
}

// SetNickname stores the user's spoken nickname.
func (s *Store) SetNickname(ctx context.Context, userID, displayName, nickname string) error {
	if len(nickname) > MaxNicknameLen {
		return fmt.Errorf("userprefs: nickname too long (max %d)", MaxNicknameLen)
	}
	return s.mutate(ctx, userID, displayName, func(r *storage.UserRecord) {
		r.Nickname = nickname
	})
}

// ClearNickname removes the user's spoken nickname.
func (s *Store) ClearNickname(ctx context.Context, userID, displayName string) error {
	return s.SetNickname(ctx, userID, displayName, "")
}

// AutoJoin reports whether the bot follows this user between channels.
func (s *Store) AutoJoin(ctx context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.load(ctx, userID)
	if err != nil || rec == nil {
		return false, err
	}
	return rec.AutoJoin, nil
}

// SetAutoJoin stores the user's auto-follow flag.
func (s *Store) SetAutoJoin(ctx context.Context, userID, displayName string, on bool) error {
	return s.mutate(ctx, userID, displayName, func(r *storage.UserRecord) {
		r.AutoJoin = on
	})
}

// SpeakName returns the name used when speaking about the user: the stored
// nickname when set, otherwise the supplied platform display name.
func (s *Store) SpeakName(ctx context.Context, userID, displayName string) string {
	nick, err := s.Nickname(ctx, userID)
	if err != nil {
		slog.Warn("nickname lookup failed", "user_id", userID, "error", err)
		return displayName
	}
	if nick != "" {
		return nick
	}
	return displayName
}

// MigrateDefaultVoice rewrites every user holding oldDefault to
// userDefault. Called when a guild's server voice changes so users are not
// left speaking with the newly reserved voice. Returns the affected ids.
func (s *Store) MigrateDefaultVoice(ctx context.Context, oldDefault, userDefault string) ([]string, error) {
	if oldDefault == "" || oldDefault == userDefault {
		return nil, nil
	}

	ids, err := s.persist.ReplaceUserVoice(ctx, oldDefault, userDefault)
	if err != nil {
		return nil, fmt.Errorf("userprefs: migrate default voice: %w", err)
	}

	s.mu.Lock()
	for _, id := range ids {
		if rec := s.cache[id]; rec != nil {
			rec.VoiceID = userDefault
		}
	}
	s.mu.Unlock()

	if len(ids) > 0 {
		slog.Info("migrated user voices after default change",
			"from", oldDefault,
			"to", userDefault,
			"user_ids", ids,
		)
	}
	return ids, nil
}
