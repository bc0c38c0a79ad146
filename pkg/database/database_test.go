package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/huddle/pkg/config"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func TestWithTx(t *testing.T) {
	ctx := context.Background()

	t.Run("commits on success", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO schools").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := WithTx(ctx, db, func(tx *sqlx.Tx) error {
			_, err := tx.ExecContext(ctx, "INSERT INTO schools (id, name) VALUES ($1, $2)", "S1", "Acme")
			return err
		})

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back and returns the step error", func(t *testing.T) {
		db, mock := newMockDB(t)
		stepErr := errors.New("role insert failed")
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO schools").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectRollback()

		err := WithTx(ctx, db, func(tx *sqlx.Tx) error {
			if _, err := tx.ExecContext(ctx, "INSERT INTO schools (id, name) VALUES ($1, $2)", "S1", "Acme"); err != nil {
				return err
			}
			return stepErr
		})

		assert.Same(t, stepErr, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on panic and re-panics", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		assert.PanicsWithValue(t, "boom", func() {
			_ = WithTx(ctx, db, func(tx *sqlx.Tx) error {
				panic("boom")
			})
		})
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin failure", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin().WillReturnError(errors.New("pool exhausted"))

		called := false
		err := WithTx(ctx, db, func(tx *sqlx.Tx) error {
			called = true
			return nil
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to begin transaction")
		assert.False(t, called)
	})

	t.Run("commit failure", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectCommit().WillReturnError(errors.New("serialization failure"))

		err := WithTx(ctx, db, func(tx *sqlx.Tx) error { return nil })

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to commit transaction")
	})
}

func TestMigrate(t *testing.T) {
	ctx := context.Background()

	t.Run("applies pending migrations", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))

		rows := sqlmock.NewRows([]string{"version"})
		for _, m := range Migrations()[:len(Migrations())-1] {
			rows.AddRow(m.Version)
		}
		mock.ExpectQuery("SELECT version FROM schema_migrations").WillReturnRows(rows)

		last := Migrations()[len(Migrations())-1]
		mock.ExpectBegin()
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS notifications").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("INSERT INTO schema_migrations").
			WithArgs(last.Version, last.Description).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		count, err := Migrate(ctx, db)

		require.NoError(t, err)
		assert.Equal(t, 1, count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stops at the first failing migration", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT version FROM schema_migrations").WillReturnRows(sqlmock.NewRows([]string{"version"}))
		mock.ExpectBegin()
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS images").WillReturnError(errors.New("permission denied"))
		mock.ExpectRollback()

		count, err := Migrate(ctx, db)

		require.Error(t, err)
		assert.Equal(t, 0, count)
		assert.Contains(t, err.Error(), "failed to execute migration 1")
	})
}

func TestMigrationsAreOrdered(t *testing.T) {
	prev := 0
	for _, m := range Migrations() {
		assert.Greater(t, m.Version, prev)
		assert.NotEmpty(t, m.Description)
		prev = m.Version
	}
}

func TestConfigure(t *testing.T) {
	db, _ := newMockDB(t)
	Configure(db, config.DatabaseConfig{MaxOpenConns: 7})
	assert.Equal(t, 7, db.Stats().MaxOpenConnections)
}
