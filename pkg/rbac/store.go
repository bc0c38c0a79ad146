package rbac

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/platinummonkey/huddle/pkg/apperrors"
)

const roleColumns = `id, user_id, type, status, school_id, child_user_id, created_at, updated_at`

// roleRow is the user_roles row shape
type roleRow struct {
	ID          string         `db:"id"`
	UserID      string         `db:"user_id"`
	Type        RoleType       `db:"type"`
	Status      RoleStatus     `db:"status"`
	SchoolID    sql.NullString `db:"school_id"`
	ChildUserID sql.NullString `db:"child_user_id"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func (r roleRow) toRole() Role {
	role := Role{
		ID:        r.ID,
		UserID:    r.UserID,
		Type:      r.Type,
		Status:    r.Status,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.SchoolID.Valid {
		role.SchoolRole = &SchoolRole{SchoolID: r.SchoolID.String}
	}
	if r.ChildUserID.Valid {
		role.ParentRole = &ParentRole{ChildUserID: r.ChildUserID.String}
	}
	return role
}

// Store handles role persistence
type Store struct {
	db sqlx.ExtContext
}

// NewStore creates a new role store
func NewStore(db sqlx.ExtContext) *Store {
	return &Store{db: db}
}

// LoadCaller builds the Caller for userID with all of the user's roles
func (s *Store) LoadCaller(ctx context.Context, userID string) (*Caller, error) {
	return s.loadCaller(ctx, "id", userID)
}

// LoadCallerByEmail builds the Caller for the user owning email
func (s *Store) LoadCallerByEmail(ctx context.Context, email string) (*Caller, error) {
	return s.loadCaller(ctx, "email", email)
}

func (s *Store) loadCaller(ctx context.Context, column, value string) (*Caller, error) {
	var user struct {
		ID      string `db:"id"`
		Email   string `db:"email"`
		IsStaff bool   `db:"is_staff"`
	}
	err := sqlx.GetContext(ctx, s.db, &user, `SELECT id, email, is_staff FROM users WHERE `+column+` = $1`, value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("user", value)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load caller: %w", err)
	}

	roles, err := s.RolesForUsers(ctx, []string{user.ID})
	if err != nil {
		return nil, err
	}

	return &Caller{
		UserID: user.ID,
		Email:  user.Email,
		Staff:  user.IsStaff,
		Roles:  roles[user.ID],
	}, nil
}

// RolesForUsers returns the roles of every user in userIDs, oldest first
func (s *Store) RolesForUsers(ctx context.Context, userIDs []string) (map[string][]Role, error) {
	var rows []roleRow
	err := sqlx.SelectContext(ctx, s.db, &rows,
		`SELECT `+roleColumns+` FROM user_roles WHERE user_id = ANY($1) ORDER BY created_at, id`,
		pq.Array(userIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}

	out := make(map[string][]Role, len(userIDs))
	for _, r := range rows {
		out[r.UserID] = append(out[r.UserID], r.toRole())
	}
	return out, nil
}

// HasSchoolRole implements MembershipStore
func (s *Store) HasSchoolRole(ctx context.Context, userID string, schoolIDs []string) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, s.db, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM user_roles
			WHERE user_id = $1 AND school_id = ANY($2) AND status <> 'DENIED'
		)`,
		userID, pq.Array(schoolIDs),
	)
	if err != nil {
		return false, fmt.Errorf("failed to check school role: %w", err)
	}
	return exists, nil
}

// CreateRole inserts role through ext, typically a transaction. A missing
// id is generated.
func CreateRole(ctx context.Context, ext sqlx.ExtContext, role *Role) error {
	if role.ID == "" {
		role.ID = uuid.NewString()
	}
	if role.Status == "" {
		role.Status = StatusPending
	}
	if err := role.Validate(); err != nil {
		return err
	}

	var schoolID, childUserID sql.NullString
	if role.SchoolRole != nil {
		schoolID = sql.NullString{String: role.SchoolRole.SchoolID, Valid: true}
	}
	if role.ParentRole != nil {
		childUserID = sql.NullString{String: role.ParentRole.ChildUserID, Valid: true}
	}

	row := ext.QueryRowxContext(ctx, `
		INSERT INTO user_roles (id, user_id, type, status, school_id, child_user_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		role.ID, role.UserID, role.Type, role.Status, schoolID, childUserID,
	)
	if err := row.Scan(&role.CreatedAt, &role.UpdatedAt); err != nil {
		return fmt.Errorf("failed to create role: %w", apperrors.FromDB(err))
	}
	return nil
}
