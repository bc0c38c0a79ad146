package rbac

import (
	"fmt"
	"strings"
	"time"

	"github.com/platinummonkey/huddle/pkg/apperrors"
)

// RoleType is the kind of relationship a role grants
type RoleType string

// Role types. PARENT roles point at a child user, the others at a school.
const (
	RoleAdmin   RoleType = "ADMIN"
	RoleCoach   RoleType = "COACH"
	RoleAthlete RoleType = "ATHLETE"
	RoleParent  RoleType = "PARENT"
)

// SchoolMemberTypes are the role types counted as school members
var SchoolMemberTypes = []RoleType{RoleAdmin, RoleCoach, RoleAthlete}

// ParseRoleType accepts a role type in any case
func ParseRoleType(s string) (RoleType, error) {
	t := RoleType(strings.ToUpper(strings.TrimSpace(s)))
	switch t {
	case RoleAdmin, RoleCoach, RoleAthlete, RoleParent:
		return t, nil
	}
	return "", apperrors.Validation("invalid role type %q", s)
}

// RoleStatus is the lifecycle state of a role. Roles only ever change status.
type RoleStatus string

// Role statuses
const (
	StatusPending RoleStatus = "PENDING"
	StatusActive  RoleStatus = "ACTIVE"
	StatusDenied  RoleStatus = "DENIED"
)

// ParseRoleStatus accepts a role status in any case
func ParseRoleStatus(s string) (RoleStatus, error) {
	st := RoleStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case StatusPending, StatusActive, StatusDenied:
		return st, nil
	}
	return "", apperrors.Validation("invalid role status %q", s)
}

// SchoolRole is the school side of a role
type SchoolRole struct {
	SchoolID string `json:"schoolId"`
}

// ParentRole is the child side of a parent role
type ParentRole struct {
	ChildUserID string `json:"childUserId"`
}

// Role assigns a user to a school or to a child user
type Role struct {
	ID         string      `json:"id"`
	UserID     string      `json:"userId"`
	Type       RoleType    `json:"type"`
	Status     RoleStatus  `json:"status"`
	SchoolRole *SchoolRole `json:"schoolRole,omitempty"`
	ParentRole *ParentRole `json:"parentRole,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

// Validate enforces that exactly one of SchoolRole and ParentRole is set and
// that it matches the role type
func (r *Role) Validate() error {
	switch {
	case r.SchoolRole != nil && r.ParentRole != nil:
		return apperrors.Validation("role %s has both a school and a child", r.ID)
	case r.SchoolRole == nil && r.ParentRole == nil:
		return apperrors.Validation("role %s has neither a school nor a child", r.ID)
	case r.Type == RoleParent && r.ParentRole == nil:
		return apperrors.Validation("parent role %s must reference a child", r.ID)
	case r.Type != RoleParent && r.SchoolRole == nil:
		return apperrors.Validation("%s role %s must reference a school", r.Type, r.ID)
	}
	return nil
}

// IsActive reports whether the role has been accepted
func (r *Role) IsActive() bool {
	return r.Status == StatusActive
}

func (r *Role) String() string {
	if r.SchoolRole != nil {
		return fmt.Sprintf("%s:%s@school/%s", r.Type, r.Status, r.SchoolRole.SchoolID)
	}
	if r.ParentRole != nil {
		return fmt.Sprintf("%s:%s@user/%s", r.Type, r.Status, r.ParentRole.ChildUserID)
	}
	return fmt.Sprintf("%s:%s", r.Type, r.Status)
}

func typeAllowed(t RoleType, allowed []RoleType) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == t {
			return true
		}
	}
	return false
}
