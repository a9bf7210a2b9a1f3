package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/raushankrgupta/fitly-tryon/models"
)

// Schema creates the tables used by PostgresStore.
const Schema = `
CREATE TABLE IF NOT EXISTS identities (
	id             TEXT PRIMARY KEY,
	email          TEXT NOT NULL,
	password       TEXT NOT NULL DEFAULT '',
	metadata       JSONB NOT NULL DEFAULT '{}'::jsonb,
	provider       TEXT NOT NULL DEFAULT 'email',
	otp            TEXT NOT NULL DEFAULT '',
	otp_expires_at TIMESTAMPTZ,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE UNIQUE INDEX IF NOT EXISTS identities_email_idx ON identities (lower(email));

CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	email      TEXT NOT NULL DEFAULT '',
	full_name  TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS wardrobe (
	id               TEXT PRIMARY KEY,
	user_id          TEXT NOT NULL,
	image_url        TEXT NOT NULL,
	cloth_url        TEXT,
	style            TEXT,
	accessories      JSONB,
	final_look_name  TEXT,
	attire_used_name TEXT,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS wardrobe_user_created_idx ON wardrobe (user_id, created_at DESC);
`

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close(ctx context.Context) error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies Schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// --- Identities ---

const identityColumns = `id, email, password, metadata, provider, otp, COALESCE(otp_expires_at, 'epoch'::timestamptz), created_at, updated_at`

func scanIdentity(row pgx.Row) (*models.Identity, error) {
	var i models.Identity
	err := row.Scan(&i.ID, &i.Email, &i.PasswordHash, &i.Metadata, &i.Provider, &i.OTP, &i.OTPExpiresAt, &i.CreatedAt, &i.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan identity: %w", err)
	}
	return &i, nil
}

func (s *PostgresStore) CreateIdentity(ctx context.Context, id *models.Identity) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO identities (id, email, password, metadata, provider, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id.ID, id.Email, id.PasswordHash, id.Metadata, id.Provider, id.CreatedAt, id.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrEmailTaken
		}
		return fmt.Errorf("create identity: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetIdentity(ctx context.Context, id string) (*models.Identity, error) {
	return scanIdentity(s.pool.QueryRow(ctx, `SELECT `+identityColumns+` FROM identities WHERE id = $1`, id))
}

func (s *PostgresStore) GetIdentityByEmail(ctx context.Context, email string) (*models.Identity, error) {
	return scanIdentity(s.pool.QueryRow(ctx, `SELECT `+identityColumns+` FROM identities WHERE lower(email) = lower($1)`, email))
}

func (s *PostgresStore) execIdentity(ctx context.Context, op, sql string, args ...any) error {
	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) UpdateIdentityMetadata(ctx context.Context, id string, meta models.UserMetadata) error {
	return s.execIdentity(ctx, "update metadata",
		`UPDATE identities SET metadata = $2, updated_at = now() WHERE id = $1`, id, meta)
}

func (s *PostgresStore) UpdatePassword(ctx context.Context, id, hash string) error {
	return s.execIdentity(ctx, "update password",
		`UPDATE identities SET password = $2, updated_at = now() WHERE id = $1`, id, hash)
}

func (s *PostgresStore) SetResetOTP(ctx context.Context, id, otp string, expiresAt time.Time) error {
	var expires *time.Time
	if !expiresAt.IsZero() {
		expires = &expiresAt
	}
	return s.execIdentity(ctx, "set reset otp",
		`UPDATE identities SET otp = $2, otp_expires_at = $3, updated_at = now() WHERE id = $1`, id, otp, expires)
}

// --- Profiles ---

func (s *PostgresStore) InsertProfile(ctx context.Context, p *models.Profile) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, email, full_name, created_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, full_name = EXCLUDED.full_name`,
		p.ID, p.Email, p.FullName, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	var p models.Profile
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, full_name, created_at FROM users WHERE id = $1`, id,
	).Scan(&p.ID, &p.Email, &p.FullName, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &p, nil
}

func (s *PostgresStore) UpdateProfileName(ctx context.Context, id, fullName string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET full_name = $2 WHERE id = $1`, id, fullName)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Outfits ---

const outfitColumns = `id, user_id, image_url, COALESCE(cloth_url, ''), COALESCE(style, ''),
	COALESCE(accessories, '{}'::jsonb), COALESCE(final_look_name, ''), COALESCE(attire_used_name, ''), created_at`

func scanOutfit(row pgx.Row) (*models.Outfit, error) {
	var o models.Outfit
	err := row.Scan(&o.ID, &o.UserID, &o.ImageURL, &o.ClothURL, &o.Style,
		&o.Accessories, &o.FinalLookName, &o.AttireUsedName, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *PostgresStore) InsertOutfit(ctx context.Context, o *models.Outfit) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO wardrobe (id, user_id, image_url, cloth_url, style, accessories, final_look_name, attire_used_name, created_at)
		 VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, NULLIF($7, ''), NULLIF($8, ''), $9)`,
		o.ID, o.UserID, o.ImageURL, o.ClothURL, o.Style, o.Accessories, o.FinalLookName, o.AttireUsedName, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert outfit: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListOutfits(ctx context.Context, userID string) ([]models.Outfit, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+outfitColumns+` FROM wardrobe WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list outfits: %w", err)
	}
	defer rows.Close()

	var outfits []models.Outfit
	for rows.Next() {
		o, err := scanOutfit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan outfit: %w", err)
		}
		outfits = append(outfits, *o)
	}
	return outfits, rows.Err()
}

func (s *PostgresStore) GetOutfit(ctx context.Context, userID, id string) (*models.Outfit, error) {
	o, err := scanOutfit(s.pool.QueryRow(ctx,
		`SELECT `+outfitColumns+` FROM wardrobe WHERE id = $1 AND user_id = $2`, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get outfit: %w", err)
	}
	return o, nil
}

func (s *PostgresStore) UpdateOutfit(ctx context.Context, userID, id string, u models.OutfitUpdate) (int64, error) {
	sets := []string{}
	args := []any{id, userID}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if u.Style != nil {
		add("style", *u.Style)
	}
	if u.Accessories != nil {
		add("accessories", u.Accessories)
	}
	if u.FinalLookName != nil {
		add("final_look_name", *u.FinalLookName)
	}
	if u.AttireUsedName != nil {
		add("attire_used_name", *u.AttireUsedName)
	}
	if len(sets) == 0 {
		return 0, nil
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE wardrobe SET `+strings.Join(sets, ", ")+` WHERE id = $1 AND user_id = $2`, args...)
	if err != nil {
		return 0, fmt.Errorf("update outfit: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) DeleteOutfit(ctx context.Context, userID, id string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM wardrobe WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return 0, fmt.Errorf("delete outfit: %w", err)
	}
	return tag.RowsAffected(), nil
}
