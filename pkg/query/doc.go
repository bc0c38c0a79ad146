// Package query composes list queries from a page request, an ordering and
// a filter predicate, and assembles the page envelope.
//
// Order specs keep the caller's field order and only contain the fields the
// caller named; an OrderSchema expands each field into one or more SQL sort
// expressions. Filters are squirrel Sqlizer trees built with All, Any,
// Equals, In, Contains and Exists; an empty filter matches every row.
//
// Assemble runs the page query and the count query with the same predicate
// inside one read-only repeatable-read transaction, so totalCount always
// describes the rows the page was cut from.
package query
