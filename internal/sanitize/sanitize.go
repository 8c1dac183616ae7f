// Package sanitize provides shared identifier sanitization for collection names.
//
// Vector store collection names must match: ^[a-z0-9_]{1,64}$
// This package ensures all identifiers conform to this requirement.
package sanitize

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const (
	// MaxIdentifierLength is the maximum length for collection name components.
	// Qdrant requires collection names to be 1-64 characters.
	MaxIdentifierLength = 64

	// HashSuffixLength is the length of the hash suffix added to truncated identifiers.
	// Format: _<8-char-hash> = 9 characters total
	HashSuffixLength = 9

	// DefaultIdentifier is used when sanitization produces an empty result.
	DefaultIdentifier = "default"
)

// Identifier sanitizes a string for use in collection names.
//
// Rules applied:
//   - Converts to lowercase
//   - Replaces invalid characters with underscores
//   - Collapses multiple underscores
//   - Trims leading/trailing underscores
//   - Truncates to MaxIdentifierLength with hash suffix if too long
//   - Returns DefaultIdentifier if result would be empty
//
// Examples:
//
//	"user@example.com" -> "user_example_com"
//	"My Tenant!"       -> "my_tenant"
//	"" or "!!!"        -> "default"
func Identifier(s string) string {
	if s == "" {
		return DefaultIdentifier
	}

	s = strings.ToLower(s)

	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			result.WriteRune(r)
		} else {
			result.WriteRune('_')
		}
	}

	sanitized := result.String()
	for strings.Contains(sanitized, "__") {
		sanitized = strings.ReplaceAll(sanitized, "__", "_")
	}
	sanitized = strings.Trim(sanitized, "_")

	if sanitized == "" {
		return DefaultIdentifier
	}

	if len(sanitized) > MaxIdentifierLength {
		sanitized = truncateWithHash(sanitized)
	}

	return sanitized
}

// truncateWithHash truncates a string to fit within MaxIdentifierLength,
// appending a hash suffix to preserve uniqueness.
//
// Format: <truncated>_<8-char-hash>
func truncateWithHash(s string) string {
	hash := sha256.Sum256([]byte(s))
	hashSuffix := "_" + hex.EncodeToString(hash[:])[:8]

	maxBase := MaxIdentifierLength - HashSuffixLength
	truncated := s[:maxBase]
	truncated = strings.TrimRight(truncated, "_")

	return truncated + hashSuffix
}

// CollectionName builds a vector collection name from tenant and semantic
// class components.
//
// Format: {sanitized_tenant}_{class}
// Example: CollectionName("user@example.com", "entity")
//
//	-> "user_example_com_b4c9a289_entity"
//
// When sanitization alters the tenant component, a short hash of the raw
// tenant id is appended. Distinct raw tenant ids whose sanitized forms
// coincide ("user@example.com" vs the literal "user_example_com") must
// never share a collection: one tenant's erase would otherwise drop the
// other tenant's vectors.
//
// The result is deterministic for a given (tenant, class) pair and is
// guaranteed to be valid for vector store collection names.
func CollectionName(tenant, class string) string {
	base := Identifier(tenant)
	if base != tenant {
		hash := sha256.Sum256([]byte(tenant))
		base += "_" + hex.EncodeToString(hash[:])[:8]
	}

	name := base + "_" + Identifier(class)

	// Final length check on combined name
	if len(name) > MaxIdentifierLength {
		name = truncateWithHash(name)
	}

	return name
}
