package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentifier(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple lowercase", "tenant1", "tenant1"},
		{"uppercase converted", "TenantOne", "tenantone"},
		{"email address", "user@example.com", "user_example_com"},
		{"spaces and punctuation", "My Tenant!", "my_tenant"},
		{"collapses underscores", "a__b___c", "a_b_c"},
		{"trims underscores", "_tenant_", "tenant"},
		{"empty returns default", "", "default"},
		{"only invalid chars returns default", "!!!", "default"},
		{"unicode replaced", "tenant-日本", "tenant"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Identifier(tt.input))
		})
	}
}

func TestIdentifier_LongInput(t *testing.T) {
	long := strings.Repeat("a", 100)
	got := Identifier(long)

	assert.LessOrEqual(t, len(got), MaxIdentifierLength)
	// Hash suffix keeps distinct long inputs distinct.
	other := Identifier(strings.Repeat("a", 99) + "b")
	assert.NotEqual(t, got, other)
}

func TestCollectionName(t *testing.T) {
	assert.Equal(t, "u1_entity", CollectionName("u1", "entity"))
	assert.Equal(t, "user_example_com_b4c9a289_triplet", CollectionName("user@example.com", "triplet"))

	// Deterministic for the same inputs.
	assert.Equal(t, CollectionName("u1", "context"), CollectionName("u1", "context"))

	// Combined name never exceeds the limit.
	got := CollectionName(strings.Repeat("x", 80), "relation")
	assert.LessOrEqual(t, len(got), MaxIdentifierLength)
}

func TestCollectionName_SanitizedFormsNeverCollide(t *testing.T) {
	// A raw tenant id that sanitizes to another tenant's literal id must
	// not share that tenant's collections.
	dirty := CollectionName("user@example.com", "entity")
	clean := CollectionName("user_example_com", "entity")
	assert.Equal(t, "user_example_com_entity", clean)
	assert.NotEqual(t, clean, dirty)

	// Two distinct raw ids with the same sanitized form stay distinct.
	assert.NotEqual(t, CollectionName("a@b", "entity"), CollectionName("a.b", "entity"))
}
