package memory

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateName(t *testing.T) {
	assert.NoError(t, validateName("Ada"))
	assert.NoError(t, validateName(strings.Repeat("a", 255)))
	assert.ErrorIs(t, validateName(""), ErrInvalidInput)
	assert.ErrorIs(t, validateName(strings.Repeat("a", 256)), ErrInvalidInput)

	t.Run("limit counts runes not bytes", func(t *testing.T) {
		assert.NoError(t, validateName(strings.Repeat("ä", 255)))
	})
}

func TestValidateEntityType(t *testing.T) {
	assert.NoError(t, validateEntityType("person"))
	assert.NoError(t, validateEntityType(strings.Repeat("t", 64)))
	assert.ErrorIs(t, validateEntityType(""), ErrInvalidInput)
	assert.ErrorIs(t, validateEntityType(strings.Repeat("t", 65)), ErrInvalidInput)
}

func TestValidatePredicate(t *testing.T) {
	t.Run("well-known predicates accepted", func(t *testing.T) {
		for p := range wellKnownPredicates {
			assert.NoError(t, validatePredicate(p))
		}
	})

	t.Run("custom predicates capped", func(t *testing.T) {
		assert.NoError(t, validatePredicate("mentored_by"))
		assert.NoError(t, validatePredicate(strings.Repeat("p", 100)))
		assert.ErrorIs(t, validatePredicate(strings.Repeat("p", 101)), ErrInvalidInput)
	})

	assert.ErrorIs(t, validatePredicate(""), ErrInvalidInput)
}

func TestValidateContent(t *testing.T) {
	assert.NoError(t, validateContent("Likes testing"))
	assert.NoError(t, validateContent(strings.Repeat("c", 4096)))
	assert.ErrorIs(t, validateContent(""), ErrInvalidInput)
	assert.ErrorIs(t, validateContent(strings.Repeat("c", 4097)), ErrInvalidInput)
}

func TestValidateSource(t *testing.T) {
	assert.NoError(t, validateSource(""))
	assert.NoError(t, validateSource("conversation"))
	assert.ErrorIs(t, validateSource(strings.Repeat("s", 256)), ErrInvalidInput)
}

func TestValidateStrength(t *testing.T) {
	assert.NoError(t, validateStrength(nil))
	assert.NoError(t, validateStrength(floatPtr(0)))
	assert.NoError(t, validateStrength(floatPtr(1)))
	assert.ErrorIs(t, validateStrength(floatPtr(-0.01)), ErrInvalidInput)
	assert.ErrorIs(t, validateStrength(floatPtr(1.01)), ErrInvalidInput)
}

func TestValidateDirection(t *testing.T) {
	assert.NoError(t, validateDirection(DirectionOutgoing))
	assert.NoError(t, validateDirection(DirectionIncoming))
	assert.NoError(t, validateDirection(DirectionBoth))
	assert.NoError(t, validateDirection(""))
	assert.ErrorIs(t, validateDirection(Direction("sideways")), ErrInvalidInput)
}
