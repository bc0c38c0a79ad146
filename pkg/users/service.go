package users

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/platinummonkey/huddle/pkg/apperrors"
	"github.com/platinummonkey/huddle/pkg/assets"
	"github.com/platinummonkey/huddle/pkg/audit"
	"github.com/platinummonkey/huddle/pkg/auth"
	"github.com/platinummonkey/huddle/pkg/contextkeys"
	"github.com/platinummonkey/huddle/pkg/database"
	"github.com/platinummonkey/huddle/pkg/loader"
	"github.com/platinummonkey/huddle/pkg/observability"
	"github.com/platinummonkey/huddle/pkg/query"
	"github.com/platinummonkey/huddle/pkg/rbac"
)

// Operation names used for authorization and metrics
const (
	OpUsers                      = "users"
	OpUser                       = "user"
	OpUpdateUser                 = "updateUser"
	OpUpdateUserParentalApproval = "updateUserParentalApproval"
)

// fallbackIP is recorded when the request carried no address
const fallbackIP = "127.0.0.1"

// Deps are the collaborators of the user service
type Deps struct {
	DB        database.DB
	Store     *Store
	Loaders   *Loaders
	Assembler *query.Assembler
	Authz     *rbac.Evaluator
	Promoter  *assets.Promoter
	Activity  *audit.Recorder
}

// Service implements the user operations
type Service struct {
	Deps
	tokens *auth.TokenGenerator
	now    func() time.Time
}

// NewService creates a user service
func NewService(deps Deps) *Service {
	return &Service{Deps: deps, tokens: auth.NewTokenGenerator(), now: time.Now}
}

// List returns a page of users matching filter in the given order
func (s *Service) List(ctx context.Context, page query.PageRequest, order query.Order, filter Filter) (*query.Page[User], error) {
	orderBy, err := orderSchema.Compose(order)
	if err != nil {
		return nil, err
	}
	if err := s.Authz.Authorize(ctx, OpUsers, listPolicy(filter)); err != nil {
		return nil, err
	}

	result, err := query.Assemble[User](ctx, s.Assembler, Listing(filter, orderBy), page)
	if err != nil {
		return nil, err
	}
	for i := range result.Items {
		u := result.Items[i]
		s.Loaders.Users.Prime(ctx, u.ID, &u)
	}
	return result, nil
}

// Get returns the user with id. A missing user is NotFound whatever the
// caller's rights.
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	u, err := s.Loaders.Users.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.Authz.Authorize(ctx, OpUser, viewPolicy(id)); err != nil {
		return nil, err
	}
	return u, nil
}

// Update changes the profile of user id
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*User, error) {
	if err := s.Authz.Authorize(ctx, OpUpdateUser, updatePolicy(id)); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	u, err := Update(ctx, s.DB, id, in)
	if err != nil {
		return nil, err
	}

	s.Activity.Record(ctx, audit.KindUserUpdated, id)
	return u, nil
}

// UpdateParentalApproval records the calling parent's decision on child
// id. Approving requires a signature upload, which becomes the signature
// image of a consent record written in the same transaction.
func (s *Service) UpdateParentalApproval(ctx context.Context, id string, in ParentalApprovalInput) (bool, error) {
	if err := s.Authz.Authorize(ctx, OpUpdateUserParentalApproval, parentalApprovalPolicy(id)); err != nil {
		return false, err
	}
	if in.Approve && (in.SignatureUploadID == nil || *in.SignatureUploadID == "") {
		return false, apperrors.Validation("signature required")
	}
	if _, err := s.Loaders.Users.Load(ctx, id); err != nil {
		return false, err
	}

	if !in.Approve {
		if err := SetParentalApproval(ctx, s.DB, id, false); err != nil {
			return false, err
		}
		s.Activity.Record(ctx, audit.KindParentalApproval, id)
		return true, nil
	}

	parentID := rbac.CallerFromContext(ctx).UserID
	dest := fmt.Sprintf("users/%s/signatures/signature-%s", parentID, s.now().UTC().Format("2006-01-02-15-04"))

	staged, err := s.Promoter.Stage(ctx, *in.SignatureUploadID, dest)
	if err != nil {
		return false, err
	}

	err = database.WithTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		signature, err := staged.Apply(ctx, tx)
		if err != nil {
			return err
		}
		if err := CreateConsent(ctx, tx, &Consent{
			SignatureID:  signature.ID,
			Version:      ConsentVersion,
			ChildUserID:  id,
			ParentUserID: parentID,
			IP:           clientIP(ctx),
		}); err != nil {
			return err
		}
		return SetParentalApproval(ctx, tx, id, true)
	})
	if err != nil {
		s.Promoter.Discard(ctx, staged)
		return false, err
	}

	s.Activity.Record(ctx, audit.KindParentalApproval, id)
	return true, nil
}

// ConfirmResult tells the caller where to send a user who confirmed their
// email: to activation with PasswordToken, or to login when it is empty
type ConfirmResult struct {
	UserID        string
	PasswordToken string
}

// ConfirmEmail confirms the email of the user owning handle. Users without
// a password receive a one-time password token.
func (s *Service) ConfirmEmail(ctx context.Context, handle string) (*ConfirmResult, error) {
	u, err := s.Store.GetByUUID(ctx, handle)
	if err != nil {
		return nil, err
	}

	result := &ConfirmResult{UserID: u.ID}
	var tokenHash *string
	if !u.HasPassword {
		token, hash, err := s.tokens.GeneratePasswordToken()
		if err != nil {
			return nil, err
		}
		result.PasswordToken = token
		tokenHash = &hash
	}

	if err := ConfirmEmail(ctx, s.DB, u.ID, tokenHash); err != nil {
		return nil, err
	}

	observability.FromContext(ctx).WithField("user_id", u.ID).Info("email confirmed")
	s.Activity.Record(ctx, audit.KindEmailConfirmed, u.ID)
	return result, nil
}

// Roles resolves the roles relation of a user already authorized for
// viewing. A nil status returns every role.
func (s *Service) Roles(ctx context.Context, userID string, status *rbac.RoleStatus) ([]rbac.Role, error) {
	key, err := loader.NewRelationKey(userID, RolesArgs{Status: status})
	if err != nil {
		return nil, err
	}
	return s.Loaders.Roles.Load(ctx, key)
}

// ListRoles is the top-level form of Roles: it authorizes like Get
func (s *Service) ListRoles(ctx context.Context, userID string, status *rbac.RoleStatus) ([]rbac.Role, error) {
	if _, err := s.Get(ctx, userID); err != nil {
		return nil, err
	}
	return s.Roles(ctx, userID, status)
}

// NotificationCount resolves the unread notification count of a user
func (s *Service) NotificationCount(ctx context.Context, userID string) (int, error) {
	key, err := loader.NewRelationKey(userID, struct{}{})
	if err != nil {
		return 0, err
	}
	return s.Loaders.NotificationCount.Load(ctx, key)
}

func clientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(contextkeys.ClientIPKey).(string); ok && ip != "" {
		return ip
	}
	return fallbackIP
}
