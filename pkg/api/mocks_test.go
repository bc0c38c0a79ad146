package api

import (
	"context"
	"errors"

	"github.com/platinummonkey/huddle/pkg/apperrors"
	"github.com/platinummonkey/huddle/pkg/assets"
	"github.com/platinummonkey/huddle/pkg/query"
	"github.com/platinummonkey/huddle/pkg/rbac"
	"github.com/platinummonkey/huddle/pkg/schools"
	"github.com/platinummonkey/huddle/pkg/users"
)

var errUnexpectedCall = errors.New("unexpected call")

type mockUserService struct {
	listFunc              func(ctx context.Context, page query.PageRequest, order query.Order, filter users.Filter) (*query.Page[users.User], error)
	getFunc               func(ctx context.Context, id string) (*users.User, error)
	updateFunc            func(ctx context.Context, id string, in users.UpdateInput) (*users.User, error)
	parentalApprovalFunc  func(ctx context.Context, id string, in users.ParentalApprovalInput) (bool, error)
	confirmEmailFunc      func(ctx context.Context, handle string) (*users.ConfirmResult, error)
	rolesFunc             func(ctx context.Context, userID string, status *rbac.RoleStatus) ([]rbac.Role, error)
	notificationCountFunc func(ctx context.Context, userID string) (int, error)
}

func (m *mockUserService) List(ctx context.Context, page query.PageRequest, order query.Order, filter users.Filter) (*query.Page[users.User], error) {
	if m.listFunc == nil {
		return nil, errUnexpectedCall
	}
	return m.listFunc(ctx, page, order, filter)
}

func (m *mockUserService) Get(ctx context.Context, id string) (*users.User, error) {
	if m.getFunc == nil {
		return nil, errUnexpectedCall
	}
	return m.getFunc(ctx, id)
}

func (m *mockUserService) Update(ctx context.Context, id string, in users.UpdateInput) (*users.User, error) {
	if m.updateFunc == nil {
		return nil, errUnexpectedCall
	}
	return m.updateFunc(ctx, id, in)
}

func (m *mockUserService) UpdateParentalApproval(ctx context.Context, id string, in users.ParentalApprovalInput) (bool, error) {
	if m.parentalApprovalFunc == nil {
		return false, errUnexpectedCall
	}
	return m.parentalApprovalFunc(ctx, id, in)
}

func (m *mockUserService) ConfirmEmail(ctx context.Context, handle string) (*users.ConfirmResult, error) {
	if m.confirmEmailFunc == nil {
		return nil, errUnexpectedCall
	}
	return m.confirmEmailFunc(ctx, handle)
}

func (m *mockUserService) Roles(ctx context.Context, userID string, status *rbac.RoleStatus) ([]rbac.Role, error) {
	if m.rolesFunc == nil {
		return nil, errUnexpectedCall
	}
	return m.rolesFunc(ctx, userID, status)
}

func (m *mockUserService) ListRoles(ctx context.Context, userID string, status *rbac.RoleStatus) ([]rbac.Role, error) {
	return m.Roles(ctx, userID, status)
}

func (m *mockUserService) NotificationCount(ctx context.Context, userID string) (int, error) {
	if m.notificationCountFunc == nil {
		return 0, errUnexpectedCall
	}
	return m.notificationCountFunc(ctx, userID)
}

type mockSchoolService struct {
	listFunc        func(ctx context.Context, page query.PageRequest, order query.Order, filter schools.Filter) (*query.Page[schools.School], error)
	getFunc         func(ctx context.Context, id string) (*schools.School, error)
	createFunc      func(ctx context.Context, in schools.CreateInput) (*schools.School, error)
	updateFunc      func(ctx context.Context, id string, in schools.UpdateInput) (*schools.School, error)
	memberCountFunc func(ctx context.Context, schoolID string, status *rbac.RoleStatus) (int, error)
}

func (m *mockSchoolService) List(ctx context.Context, page query.PageRequest, order query.Order, filter schools.Filter) (*query.Page[schools.School], error) {
	if m.listFunc == nil {
		return nil, errUnexpectedCall
	}
	return m.listFunc(ctx, page, order, filter)
}

func (m *mockSchoolService) Get(ctx context.Context, id string) (*schools.School, error) {
	if m.getFunc == nil {
		return nil, errUnexpectedCall
	}
	return m.getFunc(ctx, id)
}

func (m *mockSchoolService) Create(ctx context.Context, in schools.CreateInput) (*schools.School, error) {
	if m.createFunc == nil {
		return nil, errUnexpectedCall
	}
	return m.createFunc(ctx, in)
}

func (m *mockSchoolService) Update(ctx context.Context, id string, in schools.UpdateInput) (*schools.School, error) {
	if m.updateFunc == nil {
		return nil, errUnexpectedCall
	}
	return m.updateFunc(ctx, id, in)
}

func (m *mockSchoolService) MemberCount(ctx context.Context, schoolID string, status *rbac.RoleStatus) (int, error) {
	if m.memberCountFunc == nil {
		return 0, errUnexpectedCall
	}
	return m.memberCountFunc(ctx, schoolID, status)
}

// mapRelations serves relations from fixed maps
type mapRelations struct {
	users     map[string]*users.User
	schools   map[string]*schools.School
	images    map[string]*assets.Image
	addresses map[string]*assets.Address
}

func (m *mapRelations) User(ctx context.Context, id string) (*users.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, apperrors.NotFound("user", id)
}

func (m *mapRelations) School(ctx context.Context, id string) (*schools.School, error) {
	if s, ok := m.schools[id]; ok {
		return s, nil
	}
	return nil, apperrors.NotFound("school", id)
}

func (m *mapRelations) Image(ctx context.Context, id string) (*assets.Image, error) {
	if img, ok := m.images[id]; ok {
		return img, nil
	}
	return nil, apperrors.NotFound("image", id)
}

func (m *mapRelations) Address(ctx context.Context, id string) (*assets.Address, error) {
	if a, ok := m.addresses[id]; ok {
		return a, nil
	}
	return nil, apperrors.NotFound("address", id)
}
