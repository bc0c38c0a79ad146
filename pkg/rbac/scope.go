package rbac

import (
	"context"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/platinummonkey/huddle/pkg/apperrors"
	"github.com/platinummonkey/huddle/pkg/observability"
)

// Requirement is satisfied when the caller holds any of its capabilities
type Requirement struct {
	AnyOf []Capability
}

// RequireCapability builds a Requirement from capabilities
func RequireCapability(capabilities ...Capability) Requirement {
	return Requirement{AnyOf: capabilities}
}

// StaffOnly is the fallback most operations defer to
var StaffOnly = RequireCapability(CapabilityStaff)

// SatisfiedBy reports whether caller meets the requirement. An empty
// requirement is never satisfied.
func (r Requirement) SatisfiedBy(caller *Caller) bool {
	for _, c := range r.AnyOf {
		if caller.Has(c) {
			return true
		}
	}
	return false
}

func (r Requirement) String() string {
	names := make([]string, len(r.AnyOf))
	for i, c := range r.AnyOf {
		names[i] = string(c)
	}
	return strings.Join(names, "|")
}

type outcome int

const (
	outcomeDeny outcome = iota
	outcomeAllow
	outcomeDefer
)

// Decision is the tri-state result of a policy
type Decision struct {
	outcome     outcome
	requirement Requirement
}

// Allow grants access outright
func Allow() Decision {
	return Decision{outcome: outcomeAllow}
}

// Deny refuses access. Staff still pass through the universal override.
func Deny() Decision {
	return Decision{outcome: outcomeDeny}
}

// DeferTo hands the decision to a static capability requirement
func DeferTo(req Requirement) Decision {
	return Decision{outcome: outcomeDefer, requirement: req}
}

// AllowOr returns Allow when ok holds and DeferTo(fallback) otherwise
func AllowOr(ok bool, fallback Requirement) Decision {
	if ok {
		return Allow()
	}
	return DeferTo(fallback)
}

func (d Decision) String() string {
	switch d.outcome {
	case outcomeAllow:
		return "allow"
	case outcomeDefer:
		return "defer(" + d.requirement.String() + ")"
	default:
		return "deny"
	}
}

// Policy decides whether the caller in g may run an operation
type Policy func(ctx context.Context, g *Graph) (Decision, error)

// Static is a policy with no dynamic predicate
func Static(req Requirement) Policy {
	return func(context.Context, *Graph) (Decision, error) {
		return DeferTo(req), nil
	}
}

// Evaluator resolves policies for the caller stored in the request context
type Evaluator struct {
	store     MembershipStore
	decisions *prometheus.CounterVec
}

// NewEvaluator creates an Evaluator. decisions may be nil; when set it is
// labelled operation and outcome.
func NewEvaluator(store MembershipStore, decisions *prometheus.CounterVec) *Evaluator {
	return &Evaluator{store: store, decisions: decisions}
}

// Graph returns the relationship graph for the caller in ctx
func (e *Evaluator) Graph(ctx context.Context) *Graph {
	return NewGraph(CallerFromContext(ctx), e.store)
}

// Authorize runs policy for operation and returns nil when the caller may
// proceed. Anonymous callers are denied without running the policy. A
// policy error denies non-staff callers with that error.
func (e *Evaluator) Authorize(ctx context.Context, operation string, policy Policy) error {
	caller := CallerFromContext(ctx)
	logger := observability.FromContext(ctx).WithField("operation", operation)

	if caller == nil {
		e.record(operation, "anonymous")
		return apperrors.Unauthorized(operation)
	}

	decision, err := policy(ctx, NewGraph(caller, e.store))
	if err != nil {
		if caller.Staff {
			logger.WithError(err).Warn("policy failed, staff override applied")
			e.record(operation, "staff_override")
			return nil
		}
		e.record(operation, "error")
		return fmt.Errorf("failed to authorize %s: %w", operation, err)
	}

	allowed, label := resolve(decision, caller)
	e.record(operation, label)
	logger.WithField("decision", decision.String()).WithField("outcome", label).Debug("authorization evaluated")

	if !allowed {
		return apperrors.Unauthorized(operation)
	}
	return nil
}

// resolve is the single place the tri-state decision becomes a boolean
func resolve(d Decision, caller *Caller) (bool, string) {
	switch d.outcome {
	case outcomeAllow:
		return true, "allow"
	case outcomeDefer:
		if d.requirement.SatisfiedBy(caller) {
			return true, "defer_allow"
		}
		return false, "defer_deny"
	default:
		if caller.Staff {
			return true, "staff_override"
		}
		return false, "deny"
	}
}

func (e *Evaluator) record(operation, outcome string) {
	if e.decisions != nil {
		e.decisions.WithLabelValues(operation, outcome).Inc()
	}
}
