package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vexofm/vexo/internal/storage"
)

// Store caches validated per-guild settings with write-through persistence.
//
// A single mutex serializes access across guilds; contention is low and the
// simplicity keeps get/update linearizable per tenant. All returned records
// are deep copies.
type Store struct {
	persist  storage.Store
	defaults GuildSettings

	mu    sync.Mutex
	cache map[string]GuildSettings

	// onDefaultChange runs after an Update replaces the guild's server
	// voice. Invoked outside the store lock.
	onDefaultChange func(ctx context.Context, oldDefault string, updated GuildSettings)
}

// NewStore creates a Store backed by persist. defaults seeds guilds seen
// for the first time.
func NewStore(persist storage.Store, defaults GuildSettings) *Store {
	return &Store{
		persist:  persist,
		defaults: defaults,
		cache:    make(map[string]GuildSettings),
	}
}

// Preload populates the cache from persistence. Records that no longer
// validate are skipped with a warning rather than failing startup.
func (s *Store) Preload(ctx context.Context) error {
	docs, err := s.persist.LoadGuildSettings(ctx)
	if err != nil {
		return fmt.Errorf("settings: preload: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for guildID, doc := range docs {
		rec := s.defaults.Clone()
		if err := json.Unmarshal(doc, &rec); err != nil {
			slog.Warn("skipping unreadable guild settings", "guild_id", guildID, "error", err)
			continue
		}
		if err := rec.Validate(); err != nil {
			slog.Warn("skipping invalid guild settings", "guild_id", guildID, "error", err)
			continue
		}
		s.cache[guildID] = rec
	}
	slog.Info("guild settings preloaded", "guilds", len(s.cache))
	return nil
}

// Get returns the guild's settings, creating the default record on first
// read. The result is a deep copy.
func (s *Store) Get(guildID string) GuildSettings {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.cache[guildID]
	if !ok {
		rec = s.defaults.Clone()
		s.cache[guildID] = rec
	}
	return rec.Clone()
}

// OnDefaultVoiceChange registers fn to run whenever an Update changes a
// guild's server voice: fn receives the previous voice id and a copy of the
// updated settings. It runs on the updating goroutine after the write lands,
// outside the store lock.
func (s *Store) OnDefaultVoiceChange(fn func(ctx context.Context, oldDefault string, updated GuildSettings)) {
	s.mu.Lock()
	s.onDefaultChange = fn
	s.mu.Unlock()
}

// Update merges patch over the guild's current settings, validates,
// persists, and updates the cache. The cache is only touched after the
// write succeeds, so a concurrent Get never sees an unpersisted record.
func (s *Store) Update(ctx context.Context, guildID string, patch map[string]any) (GuildSettings, error) {
	s.mu.Lock()

	current, ok := s.cache[guildID]
	if !ok {
		current = s.defaults.Clone()
	}

	next, err := ApplyPatch(current, patch)
	if err != nil {
		s.mu.Unlock()
		return GuildSettings{}, err
	}

	doc, err := json.Marshal(next)
	if err != nil {
		s.mu.Unlock()
		return GuildSettings{}, fmt.Errorf("settings: encode: %w", err)
	}
	if err := s.persist.SaveGuildSettings(ctx, guildID, doc); err != nil {
		s.mu.Unlock()
		return GuildSettings{}, fmt.Errorf("settings: persist guild %s: %w", guildID, err)
	}

	s.cache[guildID] = next
	oldDefault := current.DefaultVoiceID
	notify := s.onDefaultChange
	s.mu.Unlock()

	if notify != nil && oldDefault != next.DefaultVoiceID {
		notify(ctx, oldDefault, next.Clone())
	}
	return next.Clone(), nil
}
