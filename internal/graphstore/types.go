package graphstore

import (
	"errors"
	"time"
)

// Sentinel errors surfaced at the store boundary.
var (
	// ErrMissingField is returned when a required field is absent.
	ErrMissingField = errors.New("missing required field")

	// ErrStrengthRange is returned when a relation strength is outside [0,1].
	// Out-of-range strengths are rejected, not clamped.
	ErrStrengthRange = errors.New("strength must be in [0,1]")

	// ErrInvalidSortKey is returned when a sort key is not on the allow-list.
	ErrInvalidSortKey = errors.New("invalid sort key")
)

// Attribution records who created or updated a row. Human and assistant
// attribution are mutually informative, not mutually exclusive.
type Attribution struct {
	UserID        string
	AssistantName string
	AssistantType string
}

// EntityRecord is a persisted entity row.
type EntityRecord struct {
	ID         string
	TenantID   string
	EntityType string
	Name       string
	Metadata   string // JSON blob, sanitized by the service layer
	CreatedBy  Attribution
	UpdatedBy  Attribution
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// EntityWithCounts is an entity plus read-time aggregates.
type EntityWithCounts struct {
	EntityRecord

	// RelationCount counts relations where the entity is subject OR object.
	RelationCount int

	// ObservationCount counts observations owned by the entity.
	ObservationCount int
}

// RelationRecord is a persisted relation row.
type RelationRecord struct {
	ID           string
	TenantID     string
	FromEntityID string
	Predicate    string
	ToEntityID   string
	Strength     float64
	Metadata     string
	CreatedBy    Attribution
	UpdatedBy    Attribution
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ObservationRecord is a persisted observation row.
type ObservationRecord struct {
	ID        string
	TenantID  string
	EntityID  string
	Content   string
	Source    string
	Metadata  string
	CreatedBy Attribution
	UpdatedBy Attribution
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateEntityParams are the fields required to create an entity.
type CreateEntityParams struct {
	EntityType string
	Name       string
	Metadata   string
	CreatedBy  Attribution
}

// CreateRelationParams are the fields required to create a relation.
// Strength defaults to 1.0 when nil.
type CreateRelationParams struct {
	FromEntityID string
	Predicate    string
	ToEntityID   string
	Strength     *float64
	Metadata     string
	CreatedBy    Attribution
}

// CreateObservationParams are the fields required to create an observation.
type CreateObservationParams struct {
	EntityID  string
	Content   string
	Source    string
	Metadata  string
	CreatedBy Attribution
}

// EntityUpdate is a partial entity update; nil fields are left untouched.
type EntityUpdate struct {
	EntityType *string
	Name       *string
	Metadata   *string
	UpdatedBy  Attribution
}

// RelationUpdate is a partial relation update; nil fields are left untouched.
type RelationUpdate struct {
	Predicate *string
	Strength  *float64
	Metadata  *string
	UpdatedBy Attribution
}

// ObservationUpdate is a partial observation update; nil fields are left untouched.
type ObservationUpdate struct {
	Content   *string
	Source    *string
	Metadata  *string
	UpdatedBy Attribution
}

// EntityFilter narrows entity listings. Zero values mean "no constraint".
type EntityFilter struct {
	EntityType    string
	NameContains  string // case-insensitive substring
	CreatedByUser string
}

// RelationFilter narrows relation listings.
type RelationFilter struct {
	Predicate     string
	EntityID      string // matches either endpoint
	FromEntityID  string
	ToEntityID    string
	CreatedByUser string
}

// ObservationFilter narrows observation listings.
type ObservationFilter struct {
	EntityID        string
	Source          string
	ContentContains string // case-insensitive substring
	CreatedByUser   string
}

// Page controls pagination and ordering. The total returned alongside a page
// always reflects the filtered set, not the page size.
type Page struct {
	Offset  int
	Limit   int
	SortKey string
	Desc    bool
}

const (
	defaultPageLimit = 50
	maxPageLimit     = 500
)

// normalize applies limit bounds and the default sort key.
func (p Page) normalize(defaultSort string) Page {
	if p.Limit <= 0 {
		p.Limit = defaultPageLimit
	}
	if p.Limit > maxPageLimit {
		p.Limit = maxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.SortKey == "" {
		p.SortKey = defaultSort
	}
	return p
}

// EraseCounts reports per-kind deletion counts for a bulk tenant erase.
type EraseCounts struct {
	Entities     int `json:"entities"`
	Relations    int `json:"relations"`
	Observations int `json:"observations"`
}
