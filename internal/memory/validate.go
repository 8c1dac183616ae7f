package memory

import (
	"fmt"
	"unicode/utf8"
)

// Validation limits. Lengths count runes, not bytes, so multi-byte names
// are not penalized.
const (
	maxNameLength      = 255
	maxTypeLength      = 64
	maxPredicateLength = 100
	maxContentLength   = 4096
	maxSourceLength    = 255
)

// wellKnownPredicates are accepted without length inspection. Custom
// predicates are allowed too, capped at maxPredicateLength.
var wellKnownPredicates = map[string]bool{
	"knows":      true,
	"likes":      true,
	"works_with": true,
	"located_in": true,
	"part_of":    true,
	"related_to": true,
	"created":    true,
	"uses":       true,
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidInput, maxNameLength)
	}
	return nil
}

func validateEntityType(entityType string) error {
	if entityType == "" {
		return fmt.Errorf("%w: entity_type is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(entityType) > maxTypeLength {
		return fmt.Errorf("%w: entity_type exceeds %d characters", ErrInvalidInput, maxTypeLength)
	}
	return nil
}

func validatePredicate(predicate string) error {
	if predicate == "" {
		return fmt.Errorf("%w: predicate is required", ErrInvalidInput)
	}
	if wellKnownPredicates[predicate] {
		return nil
	}
	if utf8.RuneCountInString(predicate) > maxPredicateLength {
		return fmt.Errorf("%w: predicate exceeds %d characters", ErrInvalidInput, maxPredicateLength)
	}
	return nil
}

func validateContent(content string) error {
	if content == "" {
		return fmt.Errorf("%w: content is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(content) > maxContentLength {
		return fmt.Errorf("%w: content exceeds %d characters", ErrInvalidInput, maxContentLength)
	}
	return nil
}

func validateSource(source string) error {
	if utf8.RuneCountInString(source) > maxSourceLength {
		return fmt.Errorf("%w: source exceeds %d characters", ErrInvalidInput, maxSourceLength)
	}
	return nil
}

func validateStrength(strength *float64) error {
	if strength == nil {
		return nil
	}
	if *strength < 0 || *strength > 1 {
		return fmt.Errorf("%w: strength must be in [0,1], got %g", ErrInvalidInput, *strength)
	}
	return nil
}

func validateDirection(d Direction) error {
	switch d {
	case DirectionOutgoing, DirectionIncoming, DirectionBoth, "":
		return nil
	}
	return fmt.Errorf("%w: unknown direction %q", ErrInvalidInput, d)
}
