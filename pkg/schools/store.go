package schools

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
	"github.com/platinummonkey/huddle/pkg/rbac"
)

const table = "schools"

var columns = []string{
	"schools.id", "schools.name", "schools.phone", "schools.address_id",
	"schools.logo_id", "schools.cover_id", "schools.created_at", "schools.updated_at",
}

var selectColumns = strings.Join(columns, ", ")

// Store handles school persistence
type Store struct {
	db sqlx.ExtContext
}

// NewStore creates a new school store
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

// ByIDs returns the schools with the given ids, keyed by id
func (s *Store) ByIDs(ctx context.Context, ids []string) (map[string]*School, error) {
	var rows []*School
	if err := sqlx.SelectContext(ctx, s.db, &rows,
		`SELECT `+selectColumns+` FROM schools WHERE schools.id = ANY($1)`, pq.Array(ids),
	); err != nil {
		return nil, fmt.Errorf("failed to list schools: %w", err)
	}

	out := make(map[string]*School, len(rows))
	for _, school := range rows {
		out[school.ID] = school
	}
	return out, nil
}

// MemberCounts returns, per school, the number of member roles by status.
// Parent roles are never members.
func (s *Store) MemberCounts(ctx context.Context, ids []string) (map[string]map[rbac.RoleStatus]int, error) {
	var rows []struct {
		SchoolID string          `db:"school_id"`
		Status   rbac.RoleStatus `db:"status"`
		Count    int             `db:"count"`
	}
	if err := sqlx.SelectContext(ctx, s.db, &rows, `
		SELECT school_id, status, COUNT(*) AS count FROM user_roles
		WHERE school_id = ANY($1) AND type IN ('ADMIN', 'COACH', 'ATHLETE')
		GROUP BY school_id, status`,
		pq.Array(ids),
	); err != nil {
		return nil, fmt.Errorf("failed to count members: %w", err)
	}

	out := make(map[string]map[rbac.RoleStatus]int, len(ids))
	for _, r := range rows {
		if out[r.SchoolID] == nil {
			out[r.SchoolID] = make(map[rbac.RoleStatus]int)
		}
		out[r.SchoolID][r.Status] = r.Count
	}
	return out, nil
}

// Create inserts a school through ext
func Create(ctx context.Context, ext sqlx.ExtContext, name string, phone *string) (*School, error) {
	var school School
	err := sqlx.GetContext(ctx, ext, &school, `
		INSERT INTO schools (id, name, phone) VALUES ($1, $2, $3)
		RETURNING `+strings.ReplaceAll(selectColumns, "schools.", ""),
		uuid.NewString(), strings.TrimSpace(name), phone,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create school: %w", apperrors.FromDB(err))
	}
	return &school, nil
}

// Changes are the column updates of one school update
type Changes struct {
	Name    *string
	Phone   *string
	LogoID  *string
	CoverID *string
}

// Update applies changes to school id and returns the updated school
func Update(ctx context.Context, ext sqlx.ExtContext, id string, c Changes) (*School, error) {
	set := map[string]interface{}{"updated_at": sq.Expr("NOW()")}
	if c.Name != nil {
		set["name"] = strings.TrimSpace(*c.Name)
	}
	if c.Phone != nil {
		set["phone"] = *c.Phone
	}
	if c.LogoID != nil {
		set["logo_id"] = *c.LogoID
	}
	if c.CoverID != nil {
		set["cover_id"] = *c.CoverID
	}

	stmt, args, err := query.Builder.Update(table).
		SetMap(set).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + selectColumns).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build school update: %w", err)
	}

	var school School
	if err := sqlx.GetContext(ctx, ext, &school, stmt, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("school", id)
		}
		return nil, fmt.Errorf("failed to update school: %w", apperrors.FromDB(err))
	}
	return &school, nil
}
