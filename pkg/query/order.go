package query

import (
	"fmt"
	"strings"

	"github.com/platinummonkey/huddle/pkg/apperrors"
)

// Direction is a sort direction
type Direction string

// Sort directions
const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// ParseDirection accepts asc/desc in any case
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToUpper(strings.TrimSpace(s))) {
	case Asc:
		return Asc, nil
	case Desc:
		return Desc, nil
	default:
		return "", apperrors.Validation("invalid order direction %q", s)
	}
}

// OrderTerm is one (field, direction) pair of an ordering
type OrderTerm struct {
	Field     string
	Direction Direction
}

// Order is a list of order terms. Terms are applied in slice order.
type Order []OrderTerm

// ParseOrder reads the REST form "name:asc,createdAt:desc". An empty
// string is an empty order.
func ParseOrder(s string) (Order, error) {
	var order Order
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		field, dir, ok := strings.Cut(part, ":")
		if !ok {
			return nil, apperrors.Validation("order term %q must be field:direction", part)
		}
		direction, err := ParseDirection(dir)
		if err != nil {
			return nil, err
		}
		order = append(order, OrderTerm{Field: strings.TrimSpace(field), Direction: direction})
	}
	return order, order.Validate()
}

// Validate rejects blank fields and fields named twice
func (o Order) Validate() error {
	seen := make(map[string]bool, len(o))
	for _, term := range o {
		if term.Field == "" {
			return apperrors.Validation("order field is required")
		}
		if seen[term.Field] {
			return apperrors.Validation("order field %q given more than once", term.Field)
		}
		seen[term.Field] = true
		if term.Direction != Asc && term.Direction != Desc {
			return apperrors.Validation("invalid order direction %q for %s", term.Direction, term.Field)
		}
	}
	return nil
}

// OrderSchema maps an orderable field to the SQL expressions it sorts by.
// A composite field lists several expressions, applied in the listed order.
type OrderSchema map[string][]string

// Compose turns an ordering into ORDER BY clauses. Only the named fields
// appear, in the caller's order; an empty order yields no clauses so the
// store's default order applies.
func (s OrderSchema) Compose(order Order) ([]string, error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}

	var clauses []string
	for _, term := range order {
		exprs, ok := s[term.Field]
		if !ok {
			return nil, apperrors.Validation("cannot order by %q", term.Field)
		}
		for _, expr := range exprs {
			clauses = append(clauses, fmt.Sprintf("%s %s", expr, term.Direction))
		}
	}
	return clauses, nil
}
