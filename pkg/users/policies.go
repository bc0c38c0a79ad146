package users

import (
	"context"

	"github.com/platinummonkey/huddle/pkg/rbac"
)

// listPolicy lets callers list the relatives of someone they are related to
func listPolicy(f Filter) rbac.Policy {
	return func(ctx context.Context, g *rbac.Graph) (rbac.Decision, error) {
		if !f.anchored() {
			return rbac.DeferTo(rbac.StaffOnly), nil
		}
		switch f.From {
		case FromSchool:
			return rbac.AllowOr(g.HasRoleInSchool(f.FromID), rbac.StaffOnly), nil
		case FromParent:
			return rbac.AllowOr(g.IsSameUser(f.FromID), rbac.StaffOnly), nil
		case FromChild:
			if g.IsSameUser(f.FromID) {
				return rbac.Allow(), nil
			}
			ok, err := g.HasRoleToUser(ctx, f.FromID, rbac.RoleAdmin, rbac.RoleCoach)
			return rbac.AllowOr(ok, rbac.StaffOnly), err
		}
		return rbac.DeferTo(rbac.StaffOnly), nil
	}
}

// viewPolicy lets the user, school staff sharing a school with them and
// their parents see a user
func viewPolicy(id string) rbac.Policy {
	return func(ctx context.Context, g *rbac.Graph) (rbac.Decision, error) {
		if g.IsSameUser(id) || g.IsParentToUser(id) {
			return rbac.Allow(), nil
		}
		ok, err := g.HasRoleToUser(ctx, id)
		return rbac.AllowOr(ok, rbac.StaffOnly), err
	}
}

func updatePolicy(id string) rbac.Policy {
	return func(ctx context.Context, g *rbac.Graph) (rbac.Decision, error) {
		return rbac.AllowOr(g.IsSameUser(id), rbac.StaffOnly), nil
	}
}

// parentalApprovalPolicy admits parents of the child only; staff pass
// through the evaluator's override
func parentalApprovalPolicy(id string) rbac.Policy {
	return func(ctx context.Context, g *rbac.Graph) (rbac.Decision, error) {
		if g.IsParentToUser(id) {
			return rbac.Allow(), nil
		}
		return rbac.Deny(), nil
	}
}
