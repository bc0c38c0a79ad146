package rbac

import (
	"context"
	"fmt"
)

// MembershipStore answers role lookups the caller's own roles cannot
type MembershipStore interface {
	// HasSchoolRole reports whether userID holds a non-denied role in any of schoolIDs
	HasSchoolRole(ctx context.Context, userID string, schoolIDs []string) (bool, error)
}

// Graph answers relationship questions about one caller. Nothing is cached
// beyond the caller's roles, which were loaded for this request.
type Graph struct {
	caller *Caller
	store  MembershipStore
}

// NewGraph creates a graph for caller
func NewGraph(caller *Caller, store MembershipStore) *Graph {
	return &Graph{caller: caller, store: store}
}

// Caller returns the principal the graph answers for
func (g *Graph) Caller() *Caller {
	return g.caller
}

// IsSameUser is true iff the caller is targetID
func (g *Graph) IsSameUser(targetID string) bool {
	return g.caller != nil && targetID != "" && g.caller.UserID == targetID
}

// HasRoleInSchool is true iff the caller has an active role in schoolID
// whose type is one of allowedTypes (any type when none are given)
func (g *Graph) HasRoleInSchool(schoolID string, allowedTypes ...RoleType) bool {
	if g.caller == nil || schoolID == "" {
		return false
	}
	for i := range g.caller.Roles {
		role := &g.caller.Roles[i]
		if role.SchoolRole != nil && role.SchoolRole.SchoolID == schoolID &&
			role.IsActive() && typeAllowed(role.Type, allowedTypes) {
			return true
		}
	}
	return false
}

// HasRoleToUser is true iff the caller holds an active school role of one of
// allowedTypes (any when none are given) in a school where targetUserID
// holds a non-denied role
func (g *Graph) HasRoleToUser(ctx context.Context, targetUserID string, allowedTypes ...RoleType) (bool, error) {
	if g.caller == nil || targetUserID == "" {
		return false, nil
	}

	var schoolIDs []string
	for i := range g.caller.Roles {
		role := &g.caller.Roles[i]
		if role.SchoolRole != nil && role.IsActive() && typeAllowed(role.Type, allowedTypes) {
			schoolIDs = append(schoolIDs, role.SchoolRole.SchoolID)
		}
	}
	if len(schoolIDs) == 0 {
		return false, nil
	}

	ok, err := g.store.HasSchoolRole(ctx, targetUserID, schoolIDs)
	if err != nil {
		return false, fmt.Errorf("failed to check role to user %s: %w", targetUserID, err)
	}
	return ok, nil
}

// IsParentToUser is true iff the caller holds a non-denied parent role for
// targetUserID
func (g *Graph) IsParentToUser(targetUserID string) bool {
	if g.caller == nil || targetUserID == "" {
		return false
	}
	for i := range g.caller.Roles {
		role := &g.caller.Roles[i]
		if role.ParentRole != nil && role.ParentRole.ChildUserID == targetUserID && role.Status != StatusDenied {
			return true
		}
	}
	return false
}
