package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/platinummonkey/huddle/pkg/observability"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// Migrations returns the schema migrations in version order
func Migrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create images and addresses tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS images (
					id TEXT PRIMARY KEY,
					url TEXT NOT NULL,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE TABLE IF NOT EXISTS addresses (
					id TEXT PRIMARY KEY,
					street TEXT NOT NULL DEFAULT '',
					city TEXT NOT NULL DEFAULT '',
					state TEXT NOT NULL DEFAULT '',
					zip TEXT NOT NULL DEFAULT ''
				);
			`,
		},
		{
			Version:     2,
			Description: "Create users table",
			SQL: `
				CREATE TABLE IF NOT EXISTS users (
					id TEXT PRIMARY KEY,
					uuid TEXT NOT NULL UNIQUE,
					email TEXT NOT NULL,
					new_email TEXT,
					name TEXT NOT NULL,
					is_staff BOOLEAN NOT NULL DEFAULT FALSE,
					email_confirmed BOOLEAN NOT NULL DEFAULT FALSE,
					password_hash TEXT,
					password_token TEXT,
					avatar_id TEXT REFERENCES images(id) ON DELETE SET NULL,
					twitter_id TEXT,
					parental_approval BOOLEAN,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					CONSTRAINT users_email_key UNIQUE (email)
				);

				CREATE INDEX IF NOT EXISTS idx_users_created_at ON users(created_at);
				CREATE INDEX IF NOT EXISTS idx_users_name ON users(name);
			`,
		},
		{
			Version:     3,
			Description: "Create schools table",
			SQL: `
				CREATE TABLE IF NOT EXISTS schools (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					phone TEXT,
					address_id TEXT REFERENCES addresses(id) ON DELETE SET NULL,
					logo_id TEXT REFERENCES images(id) ON DELETE SET NULL,
					cover_id TEXT REFERENCES images(id) ON DELETE SET NULL,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_schools_name ON schools(name);
			`,
		},
		{
			Version:     4,
			Description: "Create user_roles table",
			SQL: `
				CREATE TABLE IF NOT EXISTS user_roles (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					type TEXT NOT NULL CHECK (type IN ('ADMIN', 'COACH', 'ATHLETE', 'PARENT')),
					status TEXT NOT NULL DEFAULT 'PENDING' CHECK (status IN ('PENDING', 'ACTIVE', 'DENIED')),
					school_id TEXT REFERENCES schools(id) ON DELETE CASCADE,
					child_user_id TEXT REFERENCES users(id) ON DELETE CASCADE,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					CONSTRAINT user_roles_one_target CHECK (num_nonnulls(school_id, child_user_id) = 1)
				);

				CREATE INDEX IF NOT EXISTS idx_user_roles_user_id ON user_roles(user_id);
				CREATE INDEX IF NOT EXISTS idx_user_roles_school_id ON user_roles(school_id) WHERE school_id IS NOT NULL;
				CREATE INDEX IF NOT EXISTS idx_user_roles_child_user_id ON user_roles(child_user_id) WHERE child_user_id IS NOT NULL;
			`,
		},
		{
			Version:     5,
			Description: "Create uploads and parent_consents tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS uploads (
					id TEXT PRIMARY KEY,
					user_id TEXT REFERENCES users(id) ON DELETE CASCADE,
					blob_name TEXT NOT NULL,
					content_type TEXT NOT NULL DEFAULT 'application/octet-stream',
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_uploads_created_at ON uploads(created_at);

				CREATE TABLE IF NOT EXISTS parent_consents (
					id TEXT PRIMARY KEY,
					signature_id TEXT NOT NULL REFERENCES images(id),
					version TEXT NOT NULL,
					child_user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					parent_user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					ip TEXT NOT NULL,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
			`,
		},
		{
			Version:     6,
			Description: "Create notifications and activities tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS notifications (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					unread BOOLEAN NOT NULL DEFAULT TRUE,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_notifications_unread ON notifications(user_id) WHERE unread;

				CREATE TABLE IF NOT EXISTS activities (
					id BIGSERIAL PRIMARY KEY,
					kind TEXT NOT NULL,
					subject_id TEXT NOT NULL,
					request_id TEXT,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_activities_subject ON activities(subject_id, created_at);
			`,
		},
	}
}

// Migrate applies every pending migration, each in its own transaction,
// and returns the number applied
func Migrate(ctx context.Context, db *sqlx.DB) (int, error) {
	logger := observability.FromContext(ctx)

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`); err != nil {
		return 0, fmt.Errorf("failed to create migrations table: %w", err)
	}

	var versions []int
	if err := db.SelectContext(ctx, &versions, `SELECT version FROM schema_migrations ORDER BY version`); err != nil {
		return 0, fmt.Errorf("failed to query migrations: %w", err)
	}
	applied := make(map[int]bool, len(versions))
	for _, v := range versions {
		applied[v] = true
	}

	count := 0
	for _, migration := range Migrations() {
		if applied[migration.Version] {
			continue
		}

		logger.WithField("version", migration.Version).Infof("running migration: %s", migration.Description)

		err := WithTx(ctx, db, func(tx *sqlx.Tx) error {
			if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
				return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO schema_migrations (version, description) VALUES ($1, $2)`,
				migration.Version, migration.Description,
			); err != nil {
				return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
			}
			return nil
		})
		if err != nil {
			return count, err
		}
		count++
	}

	return count, nil
}
