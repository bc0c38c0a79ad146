package query

import (
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// Builder is the statement builder for Postgres placeholders
var Builder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// All combines predicates with AND, skipping nil ones. With nothing left it
// matches every row.
func All(parts ...sq.Sqlizer) sq.Sqlizer {
	and := sq.And{}
	for _, p := range parts {
		if p != nil {
			and = append(and, p)
		}
	}
	if len(and) == 1 {
		return and[0]
	}
	return and
}

// Any combines predicates with OR, skipping nil ones. With nothing left it
// returns nil so an enclosing All ignores it.
func Any(parts ...sq.Sqlizer) sq.Sqlizer {
	or := sq.Or{}
	for _, p := range parts {
		if p != nil {
			or = append(or, p)
		}
	}
	switch len(or) {
	case 0:
		return nil
	case 1:
		return or[0]
	default:
		return or
	}
}

// Equals is an exact match on column
func Equals(column string, value interface{}) sq.Sqlizer {
	return sq.Eq{column: value}
}

// In matches column against any of values. An empty slice matches nothing.
func In[T any](column string, values []T) sq.Sqlizer {
	if len(values) == 0 {
		return sq.Expr("1=0")
	}
	return sq.Eq{column: values}
}

// Contains is a case-insensitive substring match. LIKE wildcards in term
// are matched literally.
func Contains(column, term string) sq.Sqlizer {
	return sq.ILike{column: "%" + escapeLike(term) + "%"}
}

// Exists is true when the subquery returns at least one row. The subquery
// keeps ? placeholders so the outermost statement numbers every argument
// once, in order.
func Exists(sub sq.SelectBuilder) sq.Sqlizer {
	return sq.Expr("EXISTS (?)", sub.PlaceholderFormat(sq.Question))
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
