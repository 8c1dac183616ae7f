package vectorstore

import (
	"fmt"

	"github.com/fyrsmithlabs/memoryd/internal/sanitize"
)

// Class identifies which kind of graph record a point was derived from.
// Each class lives in its own collection so HNSW parameters can be tuned
// per workload.
type Class string

const (
	// ClassEntity indexes entity name+type text.
	ClassEntity Class = "entity"

	// ClassRelation indexes the subject-predicate-object sentence of a
	// relation.
	ClassRelation Class = "relation"

	// ClassContext indexes observation content.
	ClassContext Class = "context"

	// ClassTriplet indexes the full triplet rendering used for
	// consistency scoring.
	ClassTriplet Class = "triplet"
)

// Classes returns all embedding classes in deterministic order.
func Classes() []Class {
	return []Class{ClassEntity, ClassRelation, ClassContext, ClassTriplet}
}

// Valid reports whether c is a known class.
func (c Class) Valid() bool {
	switch c {
	case ClassEntity, ClassRelation, ClassContext, ClassTriplet:
		return true
	}
	return false
}

// hnswTuning holds per-class HNSW index parameters.
type hnswTuning struct {
	m           uint64
	efConstruct uint64
}

// classTuning maps each class to its HNSW parameters. Relation search is
// recall-sensitive (high m), context search is volume-heavy and tolerates
// lower recall (low m, low ef).
var classTuning = map[Class]hnswTuning{
	ClassEntity:   {m: 16, efConstruct: 200},
	ClassRelation: {m: 32, efConstruct: 128},
	ClassContext:  {m: 8, efConstruct: 64},
	ClassTriplet:  {m: 16, efConstruct: 128},
}

// CollectionFor returns the collection name for a tenant and class.
func CollectionFor(tenantID string, class Class) (string, error) {
	if !class.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidClass, class)
	}
	return sanitize.CollectionName(tenantID, string(class)), nil
}
