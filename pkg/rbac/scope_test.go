package rbac

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/huddle/pkg/apperrors"
)

func newEvaluator(store MembershipStore) (*Evaluator, *prometheus.CounterVec) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "decisions"}, []string{"operation", "outcome"})
	return NewEvaluator(store, counter), counter
}

func sameUserPolicy(target string) Policy {
	return func(ctx context.Context, g *Graph) (Decision, error) {
		return AllowOr(g.IsSameUser(target), StaffOnly), nil
	}
}

func TestRequirement(t *testing.T) {
	assert.True(t, StaffOnly.SatisfiedBy(&Caller{Staff: true}))
	assert.False(t, StaffOnly.SatisfiedBy(&Caller{}))
	assert.False(t, StaffOnly.SatisfiedBy(nil))
	assert.False(t, Requirement{}.SatisfiedBy(&Caller{Staff: true}), "empty requirement is never satisfied")
}

func TestEvaluator_Authorize(t *testing.T) {
	user := &Caller{UserID: "u1"}
	staff := &Caller{UserID: "admin", Staff: true}

	t.Run("anonymous caller is denied", func(t *testing.T) {
		e, counter := newEvaluator(nil)
		err := e.Authorize(context.Background(), "user", sameUserPolicy("u1"))
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
		assert.Equal(t, float64(1), testutil.ToFloat64(counter.WithLabelValues("user", "anonymous")))
	})

	t.Run("policy allow", func(t *testing.T) {
		e, counter := newEvaluator(nil)
		ctx := WithCaller(context.Background(), user)
		require.NoError(t, e.Authorize(ctx, "user", sameUserPolicy("u1")))
		assert.Equal(t, float64(1), testutil.ToFloat64(counter.WithLabelValues("user", "allow")))
	})

	t.Run("defer denies non staff without relationship", func(t *testing.T) {
		e, counter := newEvaluator(nil)
		ctx := WithCaller(context.Background(), user)
		err := e.Authorize(ctx, "user", sameUserPolicy("u2"))
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
		assert.Contains(t, err.Error(), "user")
		assert.Equal(t, float64(1), testutil.ToFloat64(counter.WithLabelValues("user", "defer_deny")))
	})

	t.Run("defer allows staff", func(t *testing.T) {
		e, counter := newEvaluator(nil)
		ctx := WithCaller(context.Background(), staff)
		require.NoError(t, e.Authorize(ctx, "user", sameUserPolicy("u2")))
		assert.Equal(t, float64(1), testutil.ToFloat64(counter.WithLabelValues("user", "defer_allow")))
	})

	t.Run("explicit deny is overridden for staff only", func(t *testing.T) {
		deny := func(context.Context, *Graph) (Decision, error) { return Deny(), nil }
		e, counter := newEvaluator(nil)

		err := e.Authorize(WithCaller(context.Background(), user), "updateUserParentalApproval", deny)
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

		require.NoError(t, e.Authorize(WithCaller(context.Background(), staff), "updateUserParentalApproval", deny))
		assert.Equal(t, float64(1), testutil.ToFloat64(counter.WithLabelValues("updateUserParentalApproval", "staff_override")))
	})

	t.Run("policy error", func(t *testing.T) {
		failing := func(context.Context, *Graph) (Decision, error) { return Deny(), errors.New("db down") }
		e, _ := newEvaluator(nil)

		err := e.Authorize(WithCaller(context.Background(), user), "school", failing)
		require.Error(t, err)
		assert.NotErrorIs(t, err, apperrors.ErrUnauthorized)
		assert.Contains(t, err.Error(), "db down")

		assert.NoError(t, e.Authorize(WithCaller(context.Background(), staff), "school", failing))
	})

	t.Run("static requirement", func(t *testing.T) {
		e, _ := newEvaluator(nil)
		assert.ErrorIs(t, e.Authorize(WithCaller(context.Background(), user), "users", Static(StaffOnly)), apperrors.ErrUnauthorized)
		assert.NoError(t, e.Authorize(WithCaller(context.Background(), staff), "users", Static(StaffOnly)))
	})

	t.Run("staff is allowed by every policy shape", func(t *testing.T) {
		e, _ := newEvaluator(&fakeMembership{err: errors.New("unreachable")})
		ctx := WithCaller(context.Background(), staff)
		policies := []Policy{
			Static(StaffOnly),
			sameUserPolicy("nobody"),
			func(context.Context, *Graph) (Decision, error) { return Deny(), nil },
			func(ctx context.Context, g *Graph) (Decision, error) {
				ok, err := g.HasRoleToUser(ctx, "someone")
				return AllowOr(ok, StaffOnly), err
			},
		}
		for i, p := range policies {
			assert.NoError(t, e.Authorize(ctx, "op", p), "policy %d", i)
		}
	})

	t.Run("nil counter is tolerated", func(t *testing.T) {
		e := NewEvaluator(nil, nil)
		assert.NoError(t, e.Authorize(WithCaller(context.Background(), user), "user", sameUserPolicy("u1")))
	})
}

func TestDecisionString(t *testing.T) {
	assert.Equal(t, "allow", Allow().String())
	assert.Equal(t, "deny", Deny().String())
	assert.Equal(t, "defer(staff)", DeferTo(StaffOnly).String())
}

func TestCallerFromContext(t *testing.T) {
	assert.Nil(t, CallerFromContext(context.Background()))
	caller := &Caller{UserID: "u1"}
	assert.Same(t, caller, CallerFromContext(WithCaller(context.Background(), caller)))
}
