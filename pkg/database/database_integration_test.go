//go:build integration

package database

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/huddle/pkg/apperrors"
)

func TestSchemaConstraints(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx, `INSERT INTO users (id, uuid, email, name) VALUES ('U1', 'uuid-1', 'a@example.com', 'A')`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO schools (id, name) VALUES ('S1', 'Acme')`)
	require.NoError(t, err)

	t.Run("role needs exactly one target", func(t *testing.T) {
		_, err := db.ExecContext(ctx, `INSERT INTO user_roles (id, user_id, type, school_id, child_user_id) VALUES ('R1', 'U1', 'ADMIN', 'S1', 'U1')`)
		assert.ErrorIs(t, apperrors.FromDB(err), apperrors.ErrConstraintViolation)

		_, err = db.ExecContext(ctx, `INSERT INTO user_roles (id, user_id, type) VALUES ('R2', 'U1', 'ADMIN')`)
		assert.ErrorIs(t, apperrors.FromDB(err), apperrors.ErrConstraintViolation)
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := db.ExecContext(ctx, `INSERT INTO users (id, uuid, email, name) VALUES ('U2', 'uuid-2', 'a@example.com', 'B')`)
		assert.ErrorIs(t, apperrors.FromDB(err), apperrors.ErrConstraintViolation)
	})

	t.Run("migrate is idempotent", func(t *testing.T) {
		count, err := Migrate(ctx, db)
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("failed step rolls back earlier steps", func(t *testing.T) {
		err := WithTx(ctx, db, func(tx *sqlx.Tx) error {
			if _, err := tx.ExecContext(ctx, `INSERT INTO schools (id, name) VALUES ('S2', 'Orphan')`); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, `INSERT INTO user_roles (id, user_id, type, school_id) VALUES ('R3', 'missing-user', 'ADMIN', 'S2')`)
			return apperrors.FromDB(err)
		})
		assert.ErrorIs(t, err, apperrors.ErrConstraintViolation)

		var n int
		require.NoError(t, db.GetContext(ctx, &n, `SELECT COUNT(*) FROM schools WHERE id = 'S2'`))
		assert.Zero(t, n)
	})
}
