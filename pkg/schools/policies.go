package schools

import (
	"context"

	"github.com/platinummonkey/huddle/pkg/rbac"
)

var listPolicy = rbac.Static(rbac.StaffOnly)

func viewPolicy(id string) rbac.Policy {
	return func(ctx context.Context, g *rbac.Graph) (rbac.Decision, error) {
		return rbac.AllowOr(g.HasRoleInSchool(id), rbac.StaffOnly), nil
	}
}

// createPolicy admits users creating a school they will administer
func createPolicy(in CreateInput) rbac.Policy {
	return func(ctx context.Context, g *rbac.Graph) (rbac.Decision, error) {
		ok := in.UserID != nil && g.IsSameUser(*in.UserID)
		return rbac.AllowOr(ok, rbac.StaffOnly), nil
	}
}

func updatePolicy(id string) rbac.Policy {
	return func(ctx context.Context, g *rbac.Graph) (rbac.Decision, error) {
		return rbac.AllowOr(g.HasRoleInSchool(id, rbac.RoleAdmin, rbac.RoleCoach), rbac.StaffOnly), nil
	}
}
