package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointID(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, pointID(ClassEntity, "abc"), pointID(ClassEntity, "abc"))
	})

	t.Run("distinct per class", func(t *testing.T) {
		assert.NotEqual(t, pointID(ClassEntity, "abc"), pointID(ClassRelation, "abc"))
	})

	t.Run("distinct per source", func(t *testing.T) {
		assert.NotEqual(t, pointID(ClassEntity, "abc"), pointID(ClassEntity, "abd"))
	})
}

func TestBuildPayload(t *testing.T) {
	payload := buildPayload("u1", Point{
		SourceID: "e-1",
		Class:    ClassEntity,
		Hash:     "deadbeef",
		Payload: map[string]any{
			"content":  "Ada",
			"strength": 0.9,
			"count":    3,
			"flagged":  true,
			"ignored":  []string{"not", "representable"},
		},
	})

	got := fromQdrantPayload(payload)

	assert.Equal(t, "u1", got[payloadKeyTenant])
	assert.Equal(t, "e-1", got[payloadKeyID])
	assert.Equal(t, "deadbeef", got[payloadKeyHash])
	assert.Equal(t, "Ada", got["content"])
	assert.Equal(t, 0.9, got["strength"])
	assert.Equal(t, int64(3), got["count"])
	assert.Equal(t, true, got["flagged"])
	assert.NotContains(t, got, "ignored")
}

func TestBuildPayloadReservedKeysWin(t *testing.T) {
	payload := buildPayload("u1", Point{
		SourceID: "e-1",
		Class:    ClassEntity,
		Hash:     "cafe",
		Payload: map[string]any{
			payloadKeyTenant: "u2",
			payloadKeyID:     "spoofed",
			payloadKeyHash:   "spoofed",
		},
	})

	got := fromQdrantPayload(payload)
	require.Equal(t, "u1", got[payloadKeyTenant], "caller must not be able to spoof the tenant")
	assert.Equal(t, "e-1", got[payloadKeyID])
	assert.Equal(t, "cafe", got[payloadKeyHash])
}
