package users

import (
	"strings"
	"time"

	"github.com/platinummonkey/huddle/pkg/apperrors"
	"github.com/platinummonkey/huddle/pkg/rbac"
)

// User is a platform account
type User struct {
	ID               string    `db:"id" json:"id"`
	UUID             string    `db:"uuid" json:"-"`
	Email            string    `db:"email" json:"email"`
	NewEmail         *string   `db:"new_email" json:"newEmail,omitempty"`
	Name             string    `db:"name" json:"name"`
	IsStaff          bool      `db:"is_staff" json:"isStaff"`
	EmailConfirmed   bool      `db:"email_confirmed" json:"emailConfirmed"`
	HasPassword      bool      `db:"has_password" json:"-"`
	AvatarID         *string   `db:"avatar_id" json:"avatarId,omitempty"`
	TwitterID        *string   `db:"twitter_id" json:"-"`
	ParentalApproval *bool     `db:"parental_approval" json:"parentalApproval"`
	CreatedAt        time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time `db:"updated_at" json:"updatedAt"`
}

// Platform is a connected social platform
type Platform string

// PlatformTwitter is set when the user linked a Twitter account
const PlatformTwitter Platform = "TWITTER"

// Platforms lists the platforms the user connected
func (u *User) Platforms() []Platform {
	platforms := []Platform{}
	if u.TwitterID != nil && *u.TwitterID != "" {
		platforms = append(platforms, PlatformTwitter)
	}
	return platforms
}

// From selects whose relatives a listing returns
type From string

// Listing anchors
const (
	FromSchool From = "SCHOOL"
	FromParent From = "PARENT"
	FromChild  From = "CHILD"
)

// ParseFrom accepts an anchor in any case. Empty means no anchor.
func ParseFrom(s string) (From, error) {
	f := From(strings.ToUpper(strings.TrimSpace(s)))
	switch f {
	case "", FromSchool, FromParent, FromChild:
		return f, nil
	}
	return "", apperrors.Validation("invalid from %q", s)
}

// Filter narrows a user listing
type Filter struct {
	From   From
	FromID string
	Search string
	Roles  []rbac.RoleType
}

// UpdateInput holds the optional profile changes of updateUser
type UpdateInput struct {
	Name     *string `json:"name"`
	NewEmail *string `json:"newEmail"`
}

// Validate rejects blank names and malformed emails
func (in UpdateInput) Validate() error {
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return apperrors.Validation("name must not be empty")
	}
	if in.NewEmail != nil {
		at := strings.Index(*in.NewEmail, "@")
		if at <= 0 || at == len(*in.NewEmail)-1 {
			return apperrors.Validation("invalid email %q", *in.NewEmail)
		}
	}
	return nil
}

// ParentalApprovalInput is the input of updateUserParentalApproval
type ParentalApprovalInput struct {
	Approve           bool    `json:"approve"`
	SignatureUploadID *string `json:"signatureUploadId"`
}

// ConsentVersion is recorded on every parent consent
const ConsentVersion = "v1"

// Consent is a parent's signed approval of a child account
type Consent struct {
	ID           string `db:"id"`
	SignatureID  string `db:"signature_id"`
	Version      string `db:"version"`
	ChildUserID  string `db:"child_user_id"`
	ParentUserID string `db:"parent_user_id"`
	IP           string `db:"ip"`
}

// RolesArgs are the arguments of the roles relation
type RolesArgs struct {
	Status *rbac.RoleStatus `json:"status,omitempty"`
}
