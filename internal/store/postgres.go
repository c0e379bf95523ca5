package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"relay/internal/api"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS relay_profiles (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS relay_servers (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	category    TEXT NOT NULL DEFAULT 'other',
	command     TEXT NOT NULL,
	args        JSONB NOT NULL DEFAULT '[]',
	env         JSONB NOT NULL DEFAULT '{}',
	secrets     JSONB NOT NULL DEFAULT '[]',
	enabled     BOOLEAN NOT NULL DEFAULT false,
	profile_id  TEXT NOT NULL DEFAULT 'default',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS relay_servers_profile_idx ON relay_servers (profile_id, enabled);

CREATE TABLE IF NOT EXISTS relay_settings (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

INSERT INTO relay_profiles (id, name) VALUES ('default', 'Default') ON CONFLICT (id) DO NOTHING;
`

const serverColumns = `id, name, description, category, command, args, env, secrets, enabled, profile_id, created_at, updated_at`

// PostgresStore is a Store backed by a PostgreSQL database.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to dsn and creates the schema if needed.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) ListServers(ctx context.Context, profileID string) ([]api.ServerDefinition, error) {
	query := `SELECT ` + serverColumns + ` FROM relay_servers`
	var args []any
	if profileID != "" {
		query += ` WHERE profile_id = $1`
		args = append(args, profileID)
	}
	query += ` ORDER BY name, id`
	return s.queryServers(ctx, query, args...)
}

func (s *PostgresStore) ListEnabledServers(ctx context.Context, profileID string) ([]api.ServerDefinition, error) {
	return s.queryServers(ctx, `SELECT `+serverColumns+` FROM relay_servers
		WHERE enabled AND profile_id = $1 ORDER BY name, id`, profileID)
}

func (s *PostgresStore) queryServers(ctx context.Context, query string, args ...any) ([]api.ServerDefinition, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []api.ServerDefinition{}
	for rows.Next() {
		def, err := scanServer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, def)
	}
	return out, rows.Err()
}

func scanServer(row pgx.Row) (api.ServerDefinition, error) {
	var (
		def                      api.ServerDefinition
		argsJSON, envJSON, secJS []byte
	)
	if err := row.Scan(&def.ID, &def.Name, &def.Description, &def.Category, &def.Command,
		&argsJSON, &envJSON, &secJS, &def.Enabled, &def.ProfileID, &def.CreatedAt, &def.UpdatedAt); err != nil {
		return api.ServerDefinition{}, err
	}
	if err := json.Unmarshal(argsJSON, &def.Args); err != nil {
		return api.ServerDefinition{}, fmt.Errorf("server %s args: %w", def.ID, err)
	}
	if err := json.Unmarshal(envJSON, &def.Env); err != nil {
		return api.ServerDefinition{}, fmt.Errorf("server %s env: %w", def.ID, err)
	}
	if err := json.Unmarshal(secJS, &def.Secrets); err != nil {
		return api.ServerDefinition{}, fmt.Errorf("server %s secrets: %w", def.ID, err)
	}
	if len(def.Env) == 0 {
		def.Env = nil
	}
	if len(def.Args) == 0 {
		def.Args = nil
	}
	if len(def.Secrets) == 0 {
		def.Secrets = nil
	}
	return def, nil
}

func (s *PostgresStore) GetServer(ctx context.Context, id string) (api.ServerDefinition, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+serverColumns+` FROM relay_servers WHERE id = $1`, id)
	def, err := scanServer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return api.ServerDefinition{}, api.NewServerNotFoundError(id)
	}
	return def, err
}

func (s *PostgresStore) SaveServer(ctx context.Context, def api.ServerDefinition) error {
	if def.ID == "" {
		return fmt.Errorf("server id cannot be empty")
	}
	if def.ProfileID == "" {
		def.ProfileID = api.DefaultProfileID
	}
	if def.Category == "" {
		def.Category = api.DefaultCategory
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO relay_servers (id, name, description, category, command, args, env, secrets, enabled, profile_id, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6::jsonb,$7::jsonb,$8::jsonb,$9,$10,$11,$12)
		ON CONFLICT (id) DO UPDATE SET
		  name=EXCLUDED.name,
		  description=EXCLUDED.description,
		  category=EXCLUDED.category,
		  command=EXCLUDED.command,
		  args=EXCLUDED.args,
		  env=EXCLUDED.env,
		  secrets=EXCLUDED.secrets,
		  enabled=EXCLUDED.enabled,
		  profile_id=EXCLUDED.profile_id,
		  updated_at=EXCLUDED.updated_at
	`, def.ID, def.Name, def.Description, def.Category, def.Command,
		jsonOr(def.Args, "[]"), jsonOr(def.Env, "{}"), jsonOr(def.Secrets, "[]"),
		def.Enabled, def.ProfileID, timeOrNow(def.CreatedAt), timeOrNow(def.UpdatedAt))
	return err
}

func (s *PostgresStore) DeleteServer(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM relay_servers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return api.NewServerNotFoundError(id)
	}
	return nil
}

func (s *PostgresStore) ListProfiles(ctx context.Context) ([]api.Profile, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, created_at, updated_at FROM relay_profiles`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []api.Profile
	for rows.Next() {
		var p api.Profile
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortProfiles(out)
	return out, nil
}

func (s *PostgresStore) GetProfile(ctx context.Context, id string) (api.Profile, error) {
	var p api.Profile
	err := s.pool.QueryRow(ctx, `SELECT id, name, created_at, updated_at FROM relay_profiles WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return api.Profile{}, api.NewProfileNotFoundError(id)
	}
	return p, err
}

func (s *PostgresStore) SaveProfile(ctx context.Context, p api.Profile) error {
	if p.ID == "" {
		return fmt.Errorf("profile id cannot be empty")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO relay_profiles (id, name, created_at, updated_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, updated_at=EXCLUDED.updated_at
	`, p.ID, p.Name, timeOrNow(p.CreatedAt), timeOrNow(p.UpdatedAt))
	return err
}

func (s *PostgresStore) ActiveProfile(ctx context.Context) (string, error) {
	var id string
	err := s.pool.QueryRow(ctx, `SELECT value FROM relay_settings WHERE key = 'activeProfile'`).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && id == "") {
		return api.DefaultProfileID, nil
	}
	return id, err
}

func (s *PostgresStore) SetActiveProfile(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO relay_settings (key, value, updated_at) VALUES ('activeProfile', $1, now())
		ON CONFLICT (key) DO UPDATE SET value=EXCLUDED.value, updated_at=now()
	`, id)
	return err
}

func jsonOr(v any, empty string) string {
	b, err := json.Marshal(v)
	if err != nil || string(b) == "null" {
		return empty
	}
	return string(b)
}

func timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

var _ Store = (*PostgresStore)(nil)
