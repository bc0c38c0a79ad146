package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/platinummonkey/huddle/pkg/apperrors"
	"github.com/platinummonkey/huddle/pkg/query"
)

const table = "users"

// columns never include the password hash itself
var columns = []string{
	"users.id", "users.uuid", "users.email", "users.new_email", "users.name",
	"users.is_staff", "users.email_confirmed",
	"users.password_hash IS NOT NULL AS has_password",
	"users.avatar_id", "users.twitter_id", "users.parental_approval",
	"users.created_at", "users.updated_at",
}

var selectColumns = strings.Join(columns, ", ")

// Store handles user persistence
type Store struct {
	db sqlx.ExtContext
}

// NewStore creates a new user store
func NewStore(db sqlx.ExtContext) *Store {
	return &Store{db: db}
}

// Listing builds the list query for filter and order clauses
func Listing(filter Filter, orderBy []string) query.Listing {
	return query.Listing{
		Table:   table,
		Columns: columns,
		Where:   filter.Where(),
		OrderBy: orderBy,
	}
}

// ByIDs returns the users with the given ids, keyed by id
func (s *Store) ByIDs(ctx context.Context, ids []string) (map[string]*User, error) {
	var rows []*User
	if err := sqlx.SelectContext(ctx, s.db, &rows,
		`SELECT `+selectColumns+` FROM users WHERE users.id = ANY($1)`, pq.Array(ids),
	); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	out := make(map[string]*User, len(rows))
	for _, u := range rows {
		out[u.ID] = u
	}
	return out, nil
}

// GetByUUID returns the user owning the confirmation handle
func (s *Store) GetByUUID(ctx context.Context, handle string) (*User, error) {
	var u User
	err := sqlx.GetContext(ctx, s.db, &u, `SELECT `+selectColumns+` FROM users WHERE users.uuid = $1`, handle)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("user", handle)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// NotificationCounts returns the unread notification count per user. Users
// without unread notifications are absent.
func (s *Store) NotificationCounts(ctx context.Context, ids []string) (map[string]int, error) {
	var rows []struct {
		UserID string `db:"user_id"`
		Count  int    `db:"count"`
	}
	if err := sqlx.SelectContext(ctx, s.db, &rows, `
		SELECT user_id, COUNT(*) AS count FROM notifications
		WHERE unread AND user_id = ANY($1)
		GROUP BY user_id`,
		pq.Array(ids),
	); err != nil {
		return nil, fmt.Errorf("failed to count notifications: %w", err)
	}

	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.UserID] = r.Count
	}
	return out, nil
}

// Update applies the set fields of in and returns the updated user
func Update(ctx context.Context, ext sqlx.ExtContext, id string, in UpdateInput) (*User, error) {
	set := map[string]interface{}{"updated_at": sq.Expr("NOW()")}
	if in.Name != nil {
		set["name"] = strings.TrimSpace(*in.Name)
	}
	if in.NewEmail != nil {
		set["new_email"] = strings.TrimSpace(*in.NewEmail)
	}

	stmt, args, err := query.Builder.Update(table).
		SetMap(set).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + selectColumns).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build user update: %w", err)
	}

	var u User
	if err := sqlx.GetContext(ctx, ext, &u, stmt, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("user", id)
		}
		return nil, fmt.Errorf("failed to update user: %w", apperrors.FromDB(err))
	}
	return &u, nil
}

// SetParentalApproval records approve on the user with id
func SetParentalApproval(ctx context.Context, ext sqlx.ExtContext, id string, approve bool) error {
	res, err := ext.ExecContext(ctx,
		`UPDATE users SET parental_approval = $1, updated_at = NOW() WHERE id = $2`, approve, id)
	if err != nil {
		return fmt.Errorf("failed to set parental approval: %w", apperrors.FromDB(err))
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to set parental approval: %w", err)
	} else if n == 0 {
		return apperrors.NotFound("user", id)
	}
	return nil
}

// CreateConsent inserts c, generating its id
func CreateConsent(ctx context.Context, ext sqlx.ExtContext, c *Consent) error {
	c.ID = uuid.NewString()
	_, err := ext.ExecContext(ctx, `
		INSERT INTO parent_consents (id, signature_id, version, child_user_id, parent_user_id, ip)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.SignatureID, c.Version, c.ChildUserID, c.ParentUserID, c.IP,
	)
	if err != nil {
		return fmt.Errorf("failed to create consent: %w", apperrors.FromDB(err))
	}
	return nil
}

// ConfirmEmail marks the email of id confirmed. A non-nil passwordTokenHash
// is stored as the pending password token.
func ConfirmEmail(ctx context.Context, ext sqlx.ExtContext, id string, passwordTokenHash *string) error {
	_, err := ext.ExecContext(ctx, `
		UPDATE users
		SET email_confirmed = TRUE, password_token = COALESCE($1, password_token), updated_at = NOW()
		WHERE id = $2`,
		passwordTokenHash, id,
	)
	if err != nil {
		return fmt.Errorf("failed to confirm email: %w", apperrors.FromDB(err))
	}
	return nil
}
