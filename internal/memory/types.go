package memory

import (
	"time"

	"github.com/fyrsmithlabs/memoryd/internal/graphstore"
)

// Assistant identifies an AI assistant participating in attribution.
type Assistant struct {
	Name string `json:"name,omitempty"`
	Type string `json:"type,omitempty"`
}

// CreatedBy is the nested attribution shape exposed by the service.
type CreatedBy struct {
	User      string     `json:"user,omitempty"`
	Assistant *Assistant `json:"assistant,omitempty"`
}

// Entity is the service-level entity DTO.
type Entity struct {
	ID         string         `json:"id"`
	EntityType string         `json:"entity_type"`
	Name       string         `json:"name"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedBy  CreatedBy      `json:"created_by"`
	UpdatedBy  CreatedBy      `json:"updated_by"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`

	// RelationCount and ObservationCount are populated only by listing
	// with counts.
	RelationCount    int `json:"relation_count,omitempty"`
	ObservationCount int `json:"observation_count,omitempty"`
}

// Relation is the service-level relation DTO.
type Relation struct {
	ID           string         `json:"id"`
	FromEntityID string         `json:"from_entity_id"`
	Predicate    string         `json:"predicate"`
	ToEntityID   string         `json:"to_entity_id"`
	Strength     float64        `json:"strength"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedBy    CreatedBy      `json:"created_by"`
	UpdatedBy    CreatedBy      `json:"updated_by"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Observation is the service-level observation DTO.
type Observation struct {
	ID        string         `json:"id"`
	EntityID  string         `json:"entity_id"`
	Content   string         `json:"content"`
	Source    string         `json:"source,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedBy CreatedBy      `json:"created_by"`
	UpdatedBy CreatedBy      `json:"updated_by"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// CreateEntityInput is the request to create an entity.
type CreateEntityInput struct {
	EntityType string         `json:"entity_type"`
	Name       string         `json:"name"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedBy  CreatedBy      `json:"created_by"`
}

// UpdateEntityInput is a partial entity update; nil fields are untouched.
type UpdateEntityInput struct {
	EntityType *string         `json:"entity_type,omitempty"`
	Name       *string         `json:"name,omitempty"`
	Metadata   *map[string]any `json:"metadata,omitempty"`
	UpdatedBy  CreatedBy       `json:"updated_by"`
}

// CreateRelationInput is the request to create a relation.
type CreateRelationInput struct {
	FromEntityID string         `json:"from_entity_id"`
	Predicate    string         `json:"predicate"`
	ToEntityID   string         `json:"to_entity_id"`
	Strength     *float64       `json:"strength,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedBy    CreatedBy      `json:"created_by"`
}

// UpdateRelationInput is a partial relation update.
type UpdateRelationInput struct {
	Predicate *string         `json:"predicate,omitempty"`
	Strength  *float64        `json:"strength,omitempty"`
	Metadata  *map[string]any `json:"metadata,omitempty"`
	UpdatedBy CreatedBy       `json:"updated_by"`
}

// CreateObservationInput is the request to create an observation.
type CreateObservationInput struct {
	EntityID  string         `json:"entity_id"`
	Content   string         `json:"content"`
	Source    string         `json:"source,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedBy CreatedBy      `json:"created_by"`
}

// UpdateObservationInput is a partial observation update.
type UpdateObservationInput struct {
	Content   *string         `json:"content,omitempty"`
	Source    *string         `json:"source,omitempty"`
	Metadata  *map[string]any `json:"metadata,omitempty"`
	UpdatedBy CreatedBy       `json:"updated_by"`
}

// ListOptions controls pagination and sorting for listings.
type ListOptions struct {
	Offset  int    `json:"offset,omitempty"`
	Limit   int    `json:"limit,omitempty"`
	SortKey string `json:"sort_key,omitempty"`
	Desc    bool   `json:"desc,omitempty"`
}

func (o ListOptions) page() graphstore.Page {
	return graphstore.Page{Offset: o.Offset, Limit: o.Limit, SortKey: o.SortKey, Desc: o.Desc}
}

// EntityPage is one page of entities plus the filtered total.
type EntityPage struct {
	Entities []Entity `json:"entities"`
	Total    int      `json:"total"`
}

// RelationPage is one page of relations plus the filtered total.
type RelationPage struct {
	Relations []Relation `json:"relations"`
	Total     int        `json:"total"`
}

// ObservationPage is one page of observations plus the filtered total.
type ObservationPage struct {
	Observations []Observation `json:"observations"`
	Total        int           `json:"total"`
}

// Direction selects which side of the graph GetEntityRelations walks.
type Direction string

const (
	// DirectionOutgoing returns relations where the entity is subject.
	DirectionOutgoing Direction = "outgoing"

	// DirectionIncoming returns relations where the entity is object.
	DirectionIncoming Direction = "incoming"

	// DirectionBoth returns both sides, de-duplicated by relation id.
	DirectionBoth Direction = "both"
)

// EntityRelations is an entity's neighborhood: its relations plus every
// endpoint entity hydrated once.
type EntityRelations struct {
	Entity    Entity            `json:"entity"`
	Relations []Relation        `json:"relations"`
	Neighbors map[string]Entity `json:"neighbors"`
}

// MemoryKind selects which record kinds a memory search covers.
type MemoryKind string

const (
	KindEntity      MemoryKind = "entity"
	KindObservation MemoryKind = "observation"
)

// SearchResults is the outcome of a substring memory search.
type SearchResults struct {
	Entities     []Entity      `json:"entities"`
	Observations []Observation `json:"observations"`
	Total        int           `json:"total"`
}

// SimilarMemory is one vector similarity hit.
type SimilarMemory struct {
	SourceID string  `json:"source_id"`
	Score    float32 `json:"score"`

	// Drift is 1 - similarity, clamped to [0, 2]. Advisory only.
	Drift   float64        `json:"drift"`
	Payload map[string]any `json:"payload,omitempty"`
}

// EraseResult reports a whole-tenant erase.
type EraseResult struct {
	Counts graphstore.EraseCounts `json:"counts"`

	// VectorsErased reports whether the derived index was dropped too. It
	// is false when no index is configured.
	VectorsErased bool `json:"vectors_erased"`
}
