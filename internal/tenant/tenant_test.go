package tenant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContext(t *testing.T) {
	t.Run("fails without tenant", func(t *testing.T) {
		_, err := FromContext(context.Background())
		assert.ErrorIs(t, err, ErrMissingTenant)
	})

	t.Run("reads context tenant", func(t *testing.T) {
		ctx := ContextWithTenant(context.Background(), "u1")
		id, err := FromContext(ctx)
		require.NoError(t, err)
		assert.Equal(t, "u1", id)
	})

	t.Run("empty context tenant fails closed", func(t *testing.T) {
		ctx := ContextWithTenant(context.Background(), "")
		_, err := FromContext(ctx)
		assert.ErrorIs(t, err, ErrMissingTenant)
	})

	t.Run("scope wins over context tenant", func(t *testing.T) {
		ctx := ContextWithTenant(context.Background(), "other")
		ctx = contextWithScope(ctx, &Scope{tenantID: "u1"})
		id, err := FromContext(ctx)
		require.NoError(t, err)
		assert.Equal(t, "u1", id)
	})
}

func TestCurrentTenant(t *testing.T) {
	assert.Equal(t, None, CurrentTenant(context.Background()))

	ctx := ContextWithTenant(context.Background(), "u1")
	assert.Equal(t, "u1", CurrentTenant(ctx))
}

func TestValidateTenant(t *testing.T) {
	t.Run("matching tenant passes", func(t *testing.T) {
		ctx := ContextWithTenant(context.Background(), "u1")
		assert.NoError(t, ValidateTenant(ctx, "u1"))
	})

	t.Run("mismatch fails", func(t *testing.T) {
		ctx := ContextWithTenant(context.Background(), "u1")
		err := ValidateTenant(ctx, "u2")
		assert.ErrorIs(t, err, ErrTenantMismatch)
	})

	t.Run("empty expected fails", func(t *testing.T) {
		ctx := ContextWithTenant(context.Background(), "u1")
		assert.ErrorIs(t, ValidateTenant(ctx, ""), ErrInvalidTenant)
	})

	t.Run("no scope fails closed", func(t *testing.T) {
		assert.ErrorIs(t, ValidateTenant(context.Background(), "u1"), ErrMissingTenant)
	})
}

func TestScopeFromContext(t *testing.T) {
	_, err := ScopeFromContext(context.Background())
	assert.ErrorIs(t, err, ErrMissingTenant)
}
