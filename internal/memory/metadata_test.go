package memory

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeMetadata(t *testing.T) {
	t.Run("empty yields empty object", func(t *testing.T) {
		got, err := sanitizeMetadata(nil)
		require.NoError(t, err)
		assert.Equal(t, "{}", got)
	})

	t.Run("all leaf kinds accepted", func(t *testing.T) {
		got, err := sanitizeMetadata(map[string]any{
			"string": "value",
			"int":    42,
			"float":  3.14,
			"bool":   true,
			"null":   nil,
			"array":  []any{"a", 1, false},
			"nested": map[string]any{"inner": "ok"},
		})
		require.NoError(t, err)
		assert.Contains(t, got, `"string":"value"`)
	})

	t.Run("depth limit enforced", func(t *testing.T) {
		// Five levels of nesting is fine.
		ok := map[string]any{"a": map[string]any{"b": map[string]any{"c": map[string]any{"d": "leaf"}}}}
		_, err := sanitizeMetadata(ok)
		assert.NoError(t, err)

		// A sixth level breaks the limit.
		deep := map[string]any{"a": map[string]any{"b": map[string]any{"c": map[string]any{"d": map[string]any{"e": "leaf"}}}}}
		_, err = sanitizeMetadata(deep)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("key budget shared across levels", func(t *testing.T) {
		within := make(map[string]any, 64)
		for i := 0; i < 64; i++ {
			within[fmt.Sprintf("k%02d", i)] = i
		}
		_, err := sanitizeMetadata(within)
		assert.NoError(t, err)

		over := make(map[string]any, 65)
		for i := 0; i < 65; i++ {
			over[fmt.Sprintf("k%02d", i)] = i
		}
		_, err = sanitizeMetadata(over)
		assert.ErrorIs(t, err, ErrInvalidInput)

		nested := map[string]any{"outer": map[string]any{}}
		inner := nested["outer"].(map[string]any)
		for i := 0; i < 64; i++ {
			inner[fmt.Sprintf("k%02d", i)] = i
		}
		_, err = sanitizeMetadata(nested)
		assert.ErrorIs(t, err, ErrInvalidInput, "outer key plus 64 inner keys exceeds the budget")
	})

	t.Run("disallowed value types rejected", func(t *testing.T) {
		_, err := sanitizeMetadata(map[string]any{"ch": make(chan int)})
		assert.ErrorIs(t, err, ErrInvalidInput)

		type custom struct{ X int }
		_, err = sanitizeMetadata(map[string]any{"s": custom{X: 1}})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("empty key rejected", func(t *testing.T) {
		_, err := sanitizeMetadata(map[string]any{"": "x"})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestDecodeMetadata(t *testing.T) {
	assert.Nil(t, decodeMetadata(""))
	assert.Nil(t, decodeMetadata("{}"))
	assert.Nil(t, decodeMetadata("not json"))

	got := decodeMetadata(`{"role":"engineer"}`)
	require.NotNil(t, got)
	assert.Equal(t, "engineer", got["role"])
}
