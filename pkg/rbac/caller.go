package rbac

import (
	"context"

	"github.com/platinummonkey/huddle/pkg/contextkeys"
)

// Capability is a static permission flag checked against the caller
type Capability string

// CapabilityStaff marks platform staff
const CapabilityStaff Capability = "staff"

// Caller is the authenticated principal of one request
type Caller struct {
	UserID string
	Email  string
	Staff  bool
	Roles  []Role
}

// Has reports whether the caller holds capability
func (c *Caller) Has(capability Capability) bool {
	if c == nil {
		return false
	}
	switch capability {
	case CapabilityStaff:
		return c.Staff
	default:
		return false
	}
}

// WithCaller stores the caller in ctx
func WithCaller(ctx context.Context, caller *Caller) context.Context {
	ctx = contextkeys.WithCaller(ctx, caller)
	if caller != nil {
		ctx = contextkeys.WithUserID(ctx, caller.UserID)
	}
	return ctx
}

// CallerFromContext returns the caller stored in ctx, nil for anonymous requests
func CallerFromContext(ctx context.Context) *Caller {
	caller, _ := ctx.Value(contextkeys.CallerKey).(*Caller)
	return caller
}
