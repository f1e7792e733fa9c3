package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres is the pgx-backed [Store].
type Postgres struct {
	pool *pgxpool.Pool
}

// Compile-time interface assertion.
var _ Store = (*Postgres)(nil)

var schemaStmts = []string{
	`CREATE TABLE IF NOT EXISTS guild_settings (
		guild_id   TEXT PRIMARY KEY,
		settings   JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS discord_users (
		discord_id   TEXT PRIMARY KEY,
		display_name TEXT NOT NULL DEFAULT '',
		nickname     TEXT NOT NULL DEFAULT '',
		voice_id     TEXT NOT NULL DEFAULT '',
		auto_join    BOOLEAN NOT NULL DEFAULT FALSE,
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS member_seen (
		guild_id       TEXT NOT NULL,
		user_id        TEXT NOT NULL,
		last_seen_date TEXT NOT NULL,
		PRIMARY KEY (guild_id, user_id)
	)`,
}

// migrationStmts bring pre-existing deployments up to the current schema.
// Additive only; existing columns and data are never dropped.
var migrationStmts = []string{
	`ALTER TABLE discord_users ADD COLUMN IF NOT EXISTS display_name TEXT NOT NULL DEFAULT ''`,
	`ALTER TABLE discord_users ADD COLUMN IF NOT EXISTS nickname TEXT NOT NULL DEFAULT ''`,
	`ALTER TABLE discord_users ADD COLUMN IF NOT EXISTS auto_join BOOLEAN NOT NULL DEFAULT FALSE`,
	`ALTER TABLE discord_users ADD COLUMN IF NOT EXISTS updated_at TIMESTAMPTZ NOT NULL DEFAULT now()`,
}

// NewPostgres connects to dsn, creates the schema, applies additive
// migrations, and imports the legacy user_voices table when present.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("storage: ping postgres: %w", err)
	}

	p := &Postgres{pool: pool}
	if err := p.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if err := p.migrateLegacyVoices(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) initSchema(ctx context.Context) error {
	for _, stmt := range schemaStmts {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("storage: create schema: %w", err)
		}
	}
	for _, stmt := range migrationStmts {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("storage: migrate schema: %w", err)
		}
	}
	return nil
}

// migrateLegacyVoices copies rows from a legacy user_voices table into
// discord_users. The legacy table is left untouched so a rollback keeps
// its data.
func (p *Postgres) migrateLegacyVoices(ctx context.Context) error {
	var legacy *string
	if err := p.pool.QueryRow(ctx, `SELECT to_regclass('user_voices')::text`).Scan(&legacy); err != nil {
		return fmt.Errorf("storage: check legacy table: %w", err)
	}
	if legacy == nil {
		return nil
	}

	tag, err := p.pool.Exec(ctx, `
		INSERT INTO discord_users (discord_id, voice_id, updated_at)
		SELECT discord_id::text, voice_id, COALESCE(updated_at, now())
		FROM user_voices
		ON CONFLICT (discord_id) DO UPDATE
			SET voice_id = EXCLUDED.voice_id, updated_at = EXCLUDED.updated_at`)
	if err != nil {
		return fmt.Errorf("storage: migrate user_voices: %w", err)
	}
	slog.Info("migrated legacy user_voices table", "rows", tag.RowsAffected())
	return nil
}

// SaveGuildSettings upserts a guild's settings document.
func (p *Postgres) SaveGuildSettings(ctx context.Context, guildID string, doc []byte) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO guild_settings (guild_id, settings, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (guild_id) DO UPDATE
			SET settings = EXCLUDED.settings, updated_at = now()`,
		guildID, doc)
	if err != nil {
		return fmt.Errorf("storage: save guild settings: %w", err)
	}
	return nil
}

// LoadGuildSettings returns all settings documents keyed by guild id.
func (p *Postgres) LoadGuildSettings(ctx context.Context) (map[string][]byte, error) {
	rows, err := p.pool.Query(ctx, `SELECT guild_id, settings FROM guild_settings`)
	if err != nil {
		return nil, fmt.Errorf("storage: load guild settings: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]byte)
	for rows.Next() {
		var (
			guildID string
			doc     []byte
		)
		if err := rows.Scan(&guildID, &doc); err != nil {
			return nil, fmt.Errorf("storage: scan guild settings: %w", err)
		}
		out[guildID] = doc
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: iterate guild settings: %w", err)
	}
	return out, nil
}

// UpsertUser inserts or replaces a user record.
func (p *Postgres) UpsertUser(ctx context.Context, rec UserRecord) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO discord_users (discord_id, display_name, nickname, voice_id, auto_join, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (discord_id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			nickname     = EXCLUDED.nickname,
			voice_id     = EXCLUDED.voice_id,
			auto_join    = EXCLUDED.auto_join,
			updated_at   = now()`,
		rec.UserID, rec.DisplayName, rec.Nickname, rec.VoiceID, rec.AutoJoin)
	if err != nil {
		return fmt.Errorf("storage: upsert user %s: %w", rec.UserID, err)
	}
	return nil
}

// GetUser fetches one user record.
func (p *Postgres) GetUser(ctx context.Context, userID string) (UserRecord, bool, error) {
	var rec UserRecord
	err := p.pool.QueryRow(ctx, `
		SELECT discord_id, display_name, nickname, voice_id, auto_join, updated_at
		FROM discord_users WHERE discord_id = $1`, userID).
		Scan(&rec.UserID, &rec.DisplayName, &rec.Nickname, &rec.VoiceID, &rec.AutoJoin, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return UserRecord{}, false, nil
	}
	if err != nil {
		return UserRecord{}, false, fmt.Errorf("storage: get user %s: %w", userID, err)
	}
	return rec, true, nil
}

// ReplaceUserVoice rewrites every record holding fromVoice to toVoice.
func (p *Postgres) ReplaceUserVoice(ctx context.Context, fromVoice, toVoice string) ([]string, error) {
	rows, err := p.pool.Query(ctx, `
		UPDATE discord_users SET voice_id = $2, updated_at = now()
		WHERE voice_id = $1
		RETURNING discord_id`, fromVoice, toVoice)
	if err != nil {
		return nil, fmt.Errorf("storage: replace user voice: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("storage: scan replaced user: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: iterate replaced users: %w", err)
	}
	return ids, nil
}

// MemberSeen returns the stored date key for (guild, user), "" when absent.
func (p *Postgres) MemberSeen(ctx context.Context, guildID, userID string) (string, error) {
	var date string
	err := p.pool.QueryRow(ctx, `
		SELECT last_seen_date FROM member_seen WHERE guild_id = $1 AND user_id = $2`,
		guildID, userID).Scan(&date)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("storage: member seen: %w", err)
	}
	return date, nil
}

// SetMemberSeen upserts the date key for (guild, user).
func (p *Postgres) SetMemberSeen(ctx context.Context, guildID, userID, dateKey string) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO member_seen (guild_id, user_id, last_seen_date)
		VALUES ($1, $2, $3)
		ON CONFLICT (guild_id, user_id) DO UPDATE SET last_seen_date = EXCLUDED.last_seen_date`,
		guildID, userID, dateKey)
	if err != nil {
		return fmt.Errorf("storage: set member seen: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
