package api

import (
	"context"

	"github.com/platinummonkey/huddle/pkg/assets"
	"github.com/platinummonkey/huddle/pkg/query"
	"github.com/platinummonkey/huddle/pkg/rbac"
	"github.com/platinummonkey/huddle/pkg/schools"
	"github.com/platinummonkey/huddle/pkg/users"
)

// UserService is the user operation surface, implemented by *users.Service
type UserService interface {
	List(ctx context.Context, page query.PageRequest, order query.Order, filter users.Filter) (*query.Page[users.User], error)
	Get(ctx context.Context, id string) (*users.User, error)
	Update(ctx context.Context, id string, in users.UpdateInput) (*users.User, error)
	UpdateParentalApproval(ctx context.Context, id string, in users.ParentalApprovalInput) (bool, error)
	ConfirmEmail(ctx context.Context, handle string) (*users.ConfirmResult, error)
	Roles(ctx context.Context, userID string, status *rbac.RoleStatus) ([]rbac.Role, error)
	ListRoles(ctx context.Context, userID string, status *rbac.RoleStatus) ([]rbac.Role, error)
	NotificationCount(ctx context.Context, userID string) (int, error)
}

// SchoolService is the school operation surface, implemented by
// *schools.Service
type SchoolService interface {
	List(ctx context.Context, page query.PageRequest, order query.Order, filter schools.Filter) (*query.Page[schools.School], error)
	Get(ctx context.Context, id string) (*schools.School, error)
	Create(ctx context.Context, in schools.CreateInput) (*schools.School, error)
	Update(ctx context.Context, id string, in schools.UpdateInput) (*schools.School, error)
	MemberCount(ctx context.Context, schoolID string, status *rbac.RoleStatus) (int, error)
}

// Relations resolves entities reached through a field of an entity the
// caller was already authorized to see. They are not authorized again.
type Relations interface {
	User(ctx context.Context, id string) (*users.User, error)
	School(ctx context.Context, id string) (*schools.School, error)
	Image(ctx context.Context, id string) (*assets.Image, error)
	Address(ctx context.Context, id string) (*assets.Address, error)
}

// LoaderRelations implements Relations with the batched loaders
type LoaderRelations struct {
	Users   *users.Loaders
	Schools *schools.Loaders
	Assets  *assets.Loaders
}

// User implements Relations
func (l LoaderRelations) User(ctx context.Context, id string) (*users.User, error) {
	return l.Users.Users.Load(ctx, id)
}

// School implements Relations
func (l LoaderRelations) School(ctx context.Context, id string) (*schools.School, error) {
	return l.Schools.Schools.Load(ctx, id)
}

// Image implements Relations
func (l LoaderRelations) Image(ctx context.Context, id string) (*assets.Image, error) {
	return l.Assets.Images.Load(ctx, id)
}

// Address implements Relations
func (l LoaderRelations) Address(ctx context.Context, id string) (*assets.Address, error) {
	return l.Assets.Addresses.Load(ctx, id)
}
