package schools

import (
	"strings"
	"time"

	"github.com/platinummonkey/huddle/pkg/apperrors"
	"github.com/platinummonkey/huddle/pkg/rbac"
)

// School is a member organisation
type School struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Phone     *string   `db:"phone" json:"phone"`
	AddressID *string   `db:"address_id" json:"addressId,omitempty"`
	LogoID    *string   `db:"logo_id" json:"logoId,omitempty"`
	CoverID   *string   `db:"cover_id" json:"coverId,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Filter narrows a school listing
type Filter struct {
	Search string
}

// CreateInput is the input of createSchool
type CreateInput struct {
	UserID *string `json:"userId"`
	Name   string  `json:"name"`
	Phone  *string `json:"phone"`
}

// Validate requires a name
func (in CreateInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return apperrors.Validation("name is required")
	}
	return nil
}

// UpdateInput is the input of updateSchool. Logo and Cover are upload ids.
type UpdateInput struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
	Logo  *string `json:"logo"`
	Cover *string `json:"cover"`
}

// Validate rejects a blank name
func (in UpdateInput) Validate() error {
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return apperrors.Validation("name must not be empty")
	}
	return nil
}

// MemberCountArgs are the arguments of the memberCount relation
type MemberCountArgs struct {
	Status *rbac.RoleStatus `json:"status,omitempty"`
}
