package users

import (
	sq "github.com/Masterminds/squirrel"

	"github.com/platinummonkey/huddle/pkg/query"
	"github.com/platinummonkey/huddle/pkg/rbac"
)

var orderSchema = query.OrderSchema{
	"createdAt": {"users.created_at"},
	"name":      {"users.name"},
	"email":     {"users.email"},
	"roles":     {"(SELECT COUNT(*) FROM user_roles r WHERE r.user_id = users.id)"},
}

// anchored reports whether the filter names both an anchor and its id
func (f Filter) anchored() bool {
	return f.From != "" && f.FromID != ""
}

// Where compiles the filter. An anchor without an id is ignored.
func (f Filter) Where() sq.Sqlizer {
	roles := f.rolesPredicate()

	var anchor sq.Sqlizer
	if f.anchored() {
		switch f.From {
		case FromSchool:
			// replaces the bare roles predicate
			roles = nil
			anchor = query.Exists(query.Builder.Select("1").From("user_roles r").Where(query.All(
				sq.Expr("r.user_id = users.id"),
				query.Equals("r.school_id", f.FromID),
				typesIn(f.Roles),
			)))
		case FromParent:
			anchor = query.Exists(query.Builder.Select("1").From("user_roles r").Where(query.All(
				query.Equals("r.user_id", f.FromID),
				query.Equals("r.type", string(rbac.RoleParent)),
				sq.Expr("r.child_user_id = users.id"),
			)))
		case FromChild:
			roles = nil
			anchor = query.Exists(query.Builder.Select("1").From("user_roles r").Where(query.All(
				sq.Expr("r.user_id = users.id"),
				query.Equals("r.child_user_id", f.FromID),
			)))
		}
	}

	var search sq.Sqlizer
	if f.Search != "" {
		search = query.Any(
			query.Contains("users.name", f.Search),
			query.Contains("users.email", f.Search),
		)
	}

	return query.All(roles, anchor, search)
}

func (f Filter) rolesPredicate() sq.Sqlizer {
	if f.Roles == nil {
		return nil
	}
	return query.Exists(query.Builder.Select("1").From("user_roles r").Where(query.All(
		sq.Expr("r.user_id = users.id"),
		query.In("r.type", roleStrings(f.Roles)),
	)))
}

func typesIn(types []rbac.RoleType) sq.Sqlizer {
	if types == nil {
		return nil
	}
	return query.In("r.type", roleStrings(types))
}

func roleStrings(types []rbac.RoleType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}
