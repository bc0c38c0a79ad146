// Package rbac implements role based authorization for operations.
//
// Roles link a user either to a school (ADMIN, COACH, ATHLETE) or to a child
// user (PARENT). The Graph answers relationship questions about the caller
// of the current request: same user, role in a school, role over another
// user, parent of a user.
//
// Each operation declares a Policy. The Evaluator runs it and resolves the
// tri-state Decision:
//
//   - Allow: the relationship check passed
//   - DeferTo(req): allowed when the caller's capabilities satisfy req
//   - Deny: allowed only for staff, the universal override
//
// Denial returns an error wrapping apperrors.ErrUnauthorized before any
// mutation is attempted.
package rbac
