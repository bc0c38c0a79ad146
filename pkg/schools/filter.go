package schools

import (
	sq "github.com/Masterminds/squirrel"

	"github.com/platinummonkey/huddle/pkg/query"
)

// memberCountExpr counts admins, coaches and athletes, never parents
const memberCountExpr = "(SELECT COUNT(*) FROM user_roles r WHERE r.school_id = schools.id AND r.type IN ('ADMIN', 'COACH', 'ATHLETE'))"

var orderSchema = query.OrderSchema{
	"createdAt":   {"schools.created_at"},
	"name":        {"schools.name"},
	"phone":       {"schools.phone"},
	"memberCount": {memberCountExpr},
	"address": {
		"(SELECT a.street FROM addresses a WHERE a.id = schools.address_id)",
		"(SELECT a.city FROM addresses a WHERE a.id = schools.address_id)",
		"(SELECT a.state FROM addresses a WHERE a.id = schools.address_id)",
		"(SELECT a.zip FROM addresses a WHERE a.id = schools.address_id)",
	},
}

// Where compiles the filter
func (f Filter) Where() sq.Sqlizer {
	if f.Search == "" {
		return query.All()
	}
	return query.Any(
		query.Contains("schools.name", f.Search),
		query.Contains("schools.phone", f.Search),
	)
}
