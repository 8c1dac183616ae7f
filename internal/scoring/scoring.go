// Package scoring computes advisory consistency signals for stored vectors
// and search results.
//
// These are heuristic placeholder functions with fixed constants, not learned
// models. They are pure and I/O-free so a real scorer can replace them without
// touching storage code, and they are never used to reject writes.
package scoring

import (
	"errors"
	"fmt"
	"math"
)

// ErrDimensionMismatch is returned when two vectors have different lengths.
// This indicates a programming error; it should not occur in correct usage.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Fixed penalties applied by TripletConsistency.
const (
	penaltyMissingEndpoint  = 0.3
	penaltyMissingPredicate = 0.2
	penaltyStrengthRange    = 0.2
	penaltySelfReference    = 0.5
)

// TripletConsistency scores the plausibility of a (subject, predicate, object)
// relation as a unit. Starts at 1.0 and subtracts fixed penalties, floored at 0:
//
//	missing subject or object id  -0.3 each
//	missing predicate             -0.2
//	strength outside [0,1]        -0.2
//	subject == object             -0.5
//
// Self-referential relations are permitted by the graph layer; the penalty
// here is the only consequence.
func TripletConsistency(sourceID, targetID, predicate string, strength float64) float64 {
	score := 1.0

	if sourceID == "" {
		score -= penaltyMissingEndpoint
	}
	if targetID == "" {
		score -= penaltyMissingEndpoint
	}
	if predicate == "" {
		score -= penaltyMissingPredicate
	}
	if strength < 0 || strength > 1 {
		score -= penaltyStrengthRange
	}
	if sourceID != "" && sourceID == targetID {
		score -= penaltySelfReference
	}

	return math.Max(0, score)
}

// SemanticDrift returns 1 - cosineSimilarity(a, b).
//
// Identical vectors drift 0, orthogonal vectors drift 1, opposite vectors
// drift 2. Callers clamp to [0, 2] for reporting. A zero-magnitude vector has
// undefined direction; its drift against anything is reported as 1 (no
// information either way).
func SemanticDrift(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 1, nil
	}

	cosine := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return 1 - cosine, nil
}

// ClampDrift bounds a drift value to [0, 2] for reporting. Floating point
// rounding can push the raw value marginally outside.
func ClampDrift(drift float64) float64 {
	return math.Min(2, math.Max(0, drift))
}
