package database

import (
	"context"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver

	"photogram/internal/config"
)

func Connect(cfg *config.Config) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode)

	return ConnectDSN(dsn)
}

// ConnectDSN opens a connection from a raw DSN or postgres:// URL.
func ConnectDSN(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Println("Connected to database successfully")
	return db, nil
}

// schema is idempotent. An account row carries both mirrored relationship sets;
// its photo sequence lives in photos and each photo's comment sequence in photo_comments.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id              BIGSERIAL PRIMARY KEY,
		email           TEXT NOT NULL UNIQUE,
		password_hash   TEXT NOT NULL,
		first_name      TEXT NOT NULL,
		last_name       TEXT NOT NULL,
		profile_picture TEXT,
		following       BIGINT[] NOT NULL DEFAULT '{}',
		followers       BIGINT[] NOT NULL DEFAULT '{}',
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT accounts_no_self_follow CHECK (NOT (id = ANY(following)) AND NOT (id = ANY(followers)))
	)`,
	`CREATE INDEX IF NOT EXISTS accounts_profile_picture_idx ON accounts (profile_picture)`,
	`CREATE TABLE IF NOT EXISTS photos (
		id         BIGSERIAL PRIMARY KEY,
		owner_id   BIGINT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		uri        TEXT NOT NULL,
		likers     BIGINT[] NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS photos_uri_idx ON photos (uri, id)`,
	`CREATE INDEX IF NOT EXISTS photos_owner_idx ON photos (owner_id, created_at, id)`,
	`CREATE TABLE IF NOT EXISTS photo_comments (
		id         BIGSERIAL PRIMARY KEY,
		photo_id   BIGINT NOT NULL REFERENCES photos(id) ON DELETE CASCADE,
		author_id  BIGINT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		text       TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS photo_comments_photo_idx ON photo_comments (photo_id, created_at, id)`,
}

// Migrate creates the tables and indexes if they do not exist.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	log.Printf("[Database] Migrate OK: statements=%d", len(schema))
	return nil
}
