package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// File is a single-file JSON [Store] for deployments without Postgres.
// Every write rewrites the file via a temp file and atomic rename, so a
// crash mid-write never corrupts existing data.
type File struct {
	path string

	mu   sync.Mutex
	data fileData
}

// Compile-time interface assertion.
var _ Store = (*File)(nil)

// fileData is the on-disk document.
type fileData struct {
	GuildSettings map[string]json.RawMessage `json:"guild_settings"`
	Users         map[string]UserRecord      `json:"users"`
	MemberSeen    map[string]string          `json:"member_seen"` // "guildID/userID" -> date key
}

// NewFile opens (or initialises) the JSON store at path, creating parent
// directories as needed.
func NewFile(path string) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("storage: create data dir: %w", err)
	}

	f := &File{path: path, data: newFileData()}
	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// Fresh store.
	case err != nil:
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	default:
		if err := json.Unmarshal(raw, &f.data); err != nil {
			return nil, fmt.Errorf("storage: parse %s: %w", path, err)
		}
		if f.data.GuildSettings == nil {
			f.data.GuildSettings = make(map[string]json.RawMessage)
		}
		if f.data.Users == nil {
			f.data.Users = make(map[string]UserRecord)
		}
		if f.data.MemberSeen == nil {
			f.data.MemberSeen = make(map[string]string)
		}
	}
	return f, nil
}

func newFileData() fileData {
	return fileData{
		GuildSettings: make(map[string]json.RawMessage),
		Users:         make(map[string]UserRecord),
		MemberSeen:    make(map[string]string),
	}
}

// flush writes the document to disk. Must be called with f.mu held.
func (f *File) flush() error {
	raw, err := json.MarshalIndent(f.data, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: encode store: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("storage: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("storage: rename %s: %w", tmp, err)
	}
	return nil
}

func seenKey(guildID, userID string) string {
	return guildID + "/" + userID
}

// SaveGuildSettings persists a guild's settings document.
func (f *File) SaveGuildSettings(_ context.Context, guildID string, doc []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data.GuildSettings[guildID] = append(json.RawMessage(nil), doc...)
	return f.flush()
}

// LoadGuildSettings returns all settings documents keyed by guild id.
func (f *File) LoadGuildSettings(context.Context) (map[string][]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string][]byte, len(f.data.GuildSettings))
	for id, doc := range f.data.GuildSettings {
		out[id] = append([]byte(nil), doc...)
	}
	return out, nil
}

// UpsertUser inserts or replaces a user record.
func (f *File) UpsertUser(_ context.Context, rec UserRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec.UpdatedAt = time.Now().UTC()
	f.data.Users[rec.UserID] = rec
	return f.flush()
}

// GetUser fetches one user record.
func (f *File) GetUser(_ context.Context, userID string) (UserRecord, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.data.Users[userID]
	return rec, ok, nil
}

// ReplaceUserVoice rewrites every record holding fromVoice to toVoice.
func (f *File) ReplaceUserVoice(_ context.Context, fromVoice, toVoice string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var ids []string
	now := time.Now().UTC()
	for id, rec := range f.data.Users {
		if rec.VoiceID != fromVoice {
			continue
		}
		rec.VoiceID = toVoice
		rec.UpdatedAt = now
		f.data.Users[id] = rec
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	if err := f.flush(); err != nil {
		return nil, err
	}
	return ids, nil
}

// MemberSeen returns the stored date key for (guild, user), "" when absent.
func (f *File) MemberSeen(_ context.Context, guildID, userID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data.MemberSeen[seenKey(guildID, userID)], nil
}

// SetMemberSeen upserts the date key for (guild, user).
func (f *File) SetMemberSeen(_ context.Context, guildID, userID, dateKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data.MemberSeen[seenKey(guildID, userID)] = dateKey
	return f.flush()
}

// Close is a no-op for the file store.
func (f *File) Close() error {
	return nil
}
