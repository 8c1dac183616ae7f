package memory

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/memoryd/internal/embeddings"
	"github.com/fyrsmithlabs/memoryd/internal/graphstore"
	"github.com/fyrsmithlabs/memoryd/internal/logging"
	"github.com/fyrsmithlabs/memoryd/internal/tenant"
	"github.com/fyrsmithlabs/memoryd/internal/vectorstore"
)

// VectorIndex is the slice of the vector store the service needs.
// Satisfied by *vectorstore.Index; tests substitute an in-memory fake.
type VectorIndex interface {
	Upsert(ctx context.Context, tenantID string, points []vectorstore.Point) error
	Search(ctx context.Context, tenantID string, class vectorstore.Class, vector []float32, k int, scoreThreshold float32, filters map[string]any) ([]vectorstore.SearchHit, error)
	Delete(ctx context.Context, tenantID string, class vectorstore.Class, sourceID string) error
	DeleteBatch(ctx context.Context, tenantID string, class vectorstore.Class, sourceIDs []string) (int, error)
	DeleteAllForTenant(ctx context.Context, tenantID string) error
}

// Refresher accepts background re-embedding work. Satisfied by
// *embeddings.AsyncRefresher.
type Refresher interface {
	Enqueue(tenantID string, requests []embeddings.Request)
}

// ServiceConfig wires the service's collaborators. Guard and Store are
// required; Pipeline, Index and Refresher are optional, and without them
// the service runs graph-only with no derived index.
type ServiceConfig struct {
	Guard     *tenant.Guard
	Store     *graphstore.Store
	Pipeline  *embeddings.Pipeline
	Index     VectorIndex
	Refresher Refresher
	Log       *logging.Logger
}

// Service implements the per-user memory operations.
type Service struct {
	guard     *tenant.Guard
	store     *graphstore.Store
	pipeline  *embeddings.Pipeline
	index     VectorIndex
	refresher Refresher
	log       *logging.Logger
}

// NewService creates a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Guard == nil {
		return nil, errors.New("memory: guard is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("memory: store is required")
	}
	log := cfg.Log
	if log == nil {
		log = logging.NewNop()
	}
	return &Service{
		guard:     cfg.Guard,
		store:     cfg.Store,
		pipeline:  cfg.Pipeline,
		index:     cfg.Index,
		refresher: cfg.Refresher,
		log:       log.Named("memory"),
	}, nil
}

// withScope validates the tenant identity and runs fn inside one scope.
func (s *Service) withScope(ctx context.Context, tenantID string, fn func(ctx context.Context, scope *tenant.Scope) error) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenant id required", ErrUnauthenticated)
	}
	err := s.guard.WithTenant(ctx, tenantID, fn)
	if errors.Is(err, tenant.ErrInvalidTenant) {
		return fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	return err
}

// refresh pushes re-embedding work for committed writes. With a refresher
// it is asynchronous; otherwise it runs inline. The index converges; a
// failed refresh only means transiently stale vectors.
func (s *Service) refresh(ctx context.Context, tenantID string, reqs []embeddings.Request) {
	if len(reqs) == 0 {
		return
	}
	if s.refresher != nil {
		s.refresher.Enqueue(tenantID, reqs)
		return
	}
	if s.pipeline == nil || s.index == nil {
		return
	}

	outcome := s.pipeline.EmbedBatch(ctx, reqs)
	for _, f := range outcome.Failures {
		s.log.Warn(ctx, "embedding failed, vector left stale",
			zap.String("tenant_id", tenantID),
			zap.String("class", string(f.Class)),
			zap.String("source_id", f.SourceID),
			zap.Error(f.Err),
		)
	}
	if len(outcome.Results) == 0 {
		return
	}
	if err := s.index.Upsert(ctx, tenantID, outcome.Points()); err != nil {
		s.log.Warn(ctx, "vector upsert failed, index left stale",
			zap.String("tenant_id", tenantID),
			zap.Error(err),
		)
	}
}

// dropVectors removes derived points for deleted records. Best effort:
// the graph delete has committed, and a missed vector delete leaves an
// orphan point that can never be read back (its source id resolves to
// nothing).
func (s *Service) dropVectors(ctx context.Context, tenantID string, class vectorstore.Class, sourceIDs []string) {
	if s.index == nil || len(sourceIDs) == 0 {
		return
	}
	deleted, err := s.index.DeleteBatch(ctx, tenantID, class, sourceIDs)
	if err != nil {
		s.log.Warn(ctx, "vector delete failed",
			zap.String("tenant_id", tenantID),
			zap.String("class", string(class)),
			zap.Int("id_count", len(sourceIDs)),
			zap.Error(err),
		)
		return
	}
	if deleted < len(sourceIDs) {
		s.log.Debug(ctx, "some vectors were already absent",
			zap.String("tenant_id", tenantID),
			zap.String("class", string(class)),
			zap.Int("requested", len(sourceIDs)),
			zap.Int("deleted", deleted),
		)
	}
}

// entityRefreshRequest builds the re-embedding request for one entity.
func entityRefreshRequest(e *graphstore.EntityRecord) embeddings.Request {
	return embeddings.Request{
		Class:    vectorstore.ClassEntity,
		SourceID: e.ID,
		Text:     entityText(e.EntityType, e.Name),
		Payload: map[string]any{
			"content":     entityText(e.EntityType, e.Name),
			"entity_type": e.EntityType,
			"name":        e.Name,
		},
	}
}

// CreateEntity validates and persists a new entity, then schedules its
// vector refresh.
func (s *Service) CreateEntity(ctx context.Context, tenantID string, in CreateEntityInput) (*Entity, error) {
	if err := validateEntityType(in.EntityType); err != nil {
		return nil, err
	}
	if err := validateName(in.Name); err != nil {
		return nil, err
	}
	metadata, err := sanitizeMetadata(in.Metadata)
	if err != nil {
		return nil, err
	}

	var record *graphstore.EntityRecord
	err = s.withScope(ctx, tenantID, func(ctx context.Context, scope *tenant.Scope) error {
		var err error
		record, err = s.store.CreateEntity(ctx, scope, graphstore.CreateEntityParams{
			EntityType: in.EntityType,
			Name:       in.Name,
			Metadata:   metadata,
			CreatedBy:  attributionFromDTO(in.CreatedBy),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.refresh(ctx, tenantID, []embeddings.Request{entityRefreshRequest(record)})

	entity := entityFromRecord(record)
	return &entity, nil
}

// GetEntity returns one entity or ErrNotFound.
func (s *Service) GetEntity(ctx context.Context, tenantID, id string) (*Entity, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: entity id required", ErrInvalidInput)
	}

	var record *graphstore.EntityRecord
	err := s.withScope(ctx, tenantID, func(ctx context.Context, scope *tenant.Scope) error {
		var err error
		record, err = s.store.GetEntity(ctx, scope, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("%w: entity %s", ErrNotFound, id)
	}

	entity := entityFromRecord(record)
	return &entity, nil
}

// EntityListFilter narrows entity listings.
type EntityListFilter struct {
	EntityType    string `json:"entity_type,omitempty"`
	NameContains  string `json:"name_contains,omitempty"`
	CreatedByUser string `json:"created_by_user,omitempty"`

	// WithCounts adds per-entity relation and observation counts.
	WithCounts bool `json:"with_counts,omitempty"`
}

// ListEntities returns one page of entities plus the filtered total.
func (s *Service) ListEntities(ctx context.Context, tenantID string, f EntityListFilter, opts ListOptions) (EntityPage, error) {
	var page EntityPage
	filter := graphstore.EntityFilter{
		EntityType:    f.EntityType,
		NameContains:  f.NameContains,
		CreatedByUser: f.CreatedByUser,
	}

	err := s.withScope(ctx, tenantID, func(ctx context.Context, scope *tenant.Scope) error {
		if f.WithCounts {
			records, total, err := s.store.ListEntitiesWithCounts(ctx, scope, filter, opts.page())
			if err != nil {
				return err
			}
			page.Total = total
			page.Entities = make([]Entity, len(records))
			for i, r := range records {
				e := entityFromRecord(&r.EntityRecord)
				e.RelationCount = r.RelationCount
				e.ObservationCount = r.ObservationCount
				page.Entities[i] = e
			}
			return nil
		}

		records, total, err := s.store.ListEntities(ctx, scope, filter, opts.page())
		if err != nil {
			return err
		}
		page.Total = total
		page.Entities = make([]Entity, len(records))
		for i := range records {
			page.Entities[i] = entityFromRecord(&records[i])
		}
		return nil
	})
	if errors.Is(err, graphstore.ErrInvalidSortKey) {
		return EntityPage{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err != nil {
		return EntityPage{}, err
	}
	return page, nil
}

// UpdateEntity applies a partial update and re-embeds the entity plus any
// relations whose rendered text mentions it.
func (s *Service) UpdateEntity(ctx context.Context, tenantID, id string, in UpdateEntityInput) (*Entity, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: entity id required", ErrInvalidInput)
	}
	if in.EntityType != nil {
		if err := validateEntityType(*in.EntityType); err != nil {
			return nil, err
		}
	}
	if in.Name != nil {
		if err := validateName(*in.Name); err != nil {
			return nil, err
		}
	}

	update := graphstore.EntityUpdate{
		EntityType: in.EntityType,
		Name:       in.Name,
		UpdatedBy:  attributionFromDTO(in.UpdatedBy),
	}
	if in.Metadata != nil {
		metadata, err := sanitizeMetadata(*in.Metadata)
		if err != nil {
			return nil, err
		}
		update.Metadata = &metadata
	}

	var record *graphstore.EntityRecord
	var reqs []embeddings.Request
	err := s.withScope(ctx, tenantID, func(ctx context.Context, scope *tenant.Scope) error {
		var err error
		record, err = s.store.UpdateEntity(ctx, scope, id, update)
		if err != nil || record == nil {
			return err
		}
		reqs = append(reqs, entityRefreshRequest(record))

		// Renames ripple into relation and triplet texts.
		if in.Name != nil || in.EntityType != nil {
			touched, err := s.relationRefreshRequests(ctx, scope, graphstore.RelationFilter{EntityID: id})
			if err != nil {
				return err
			}
			reqs = append(reqs, touched...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("%w: entity %s", ErrNotFound, id)
	}

	s.refresh(ctx, tenantID, reqs)

	entity := entityFromRecord(record)
	return &entity, nil
}

// DeleteEntity removes an entity, its relations and observations, and
// their derived vectors.
func (s *Service) DeleteEntity(ctx context.Context, tenantID, id string) error {
	if id == "" {
		return fmt.Errorf("%w: entity id required", ErrInvalidInput)
	}

	var relationIDs, observationIDs []string
	var deleted bool
	err := s.withScope(ctx, tenantID, func(ctx context.Context, scope *tenant.Scope) error {
		// Collect cascade victims before the delete so the derived
		// vectors can be dropped too.
		relations, err := s.collectRelations(ctx, scope, graphstore.RelationFilter{EntityID: id})
		if err != nil {
			return err
		}
		for _, r := range relations {
			relationIDs = append(relationIDs, r.ID)
		}

		observations, err := s.collectObservations(ctx, scope, graphstore.ObservationFilter{EntityID: id})
		if err != nil {
			return err
		}
		for _, o := range observations {
			observationIDs = append(observationIDs, o.ID)
		}

		deleted, err = s.store.DeleteEntity(ctx, scope, id)
		return err
	})
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("%w: entity %s", ErrNotFound, id)
	}

	s.dropVectors(ctx, tenantID, vectorstore.ClassEntity, []string{id})
	s.dropVectors(ctx, tenantID, vectorstore.ClassRelation, relationIDs)
	s.dropVectors(ctx, tenantID, vectorstore.ClassTriplet, relationIDs)
	s.dropVectors(ctx, tenantID, vectorstore.ClassContext, observationIDs)
	return nil
}

// BatchCreateEntities validates every input, then writes all of them in a
// single scope: one bad input fails the whole batch with nothing written.
// This is deliberately stricter than batch embedding, where partial failure
// is tolerated because vectors are derived state.
func (s *Service) BatchCreateEntities(ctx context.Context, tenantID string, inputs []CreateEntityInput) ([]Entity, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: at least one entity required", ErrInvalidInput)
	}

	metadatas := make([]string, len(inputs))
	for i, in := range inputs {
		if err := validateEntityType(in.EntityType); err != nil {
			return nil, fmt.Errorf("entity %d: %w", i, err)
		}
		if err := validateName(in.Name); err != nil {
			return nil, fmt.Errorf("entity %d: %w", i, err)
		}
		metadata, err := sanitizeMetadata(in.Metadata)
		if err != nil {
			return nil, fmt.Errorf("entity %d: %w", i, err)
		}
		metadatas[i] = metadata
	}

	records := make([]*graphstore.EntityRecord, len(inputs))
	err := s.withScope(ctx, tenantID, func(ctx context.Context, scope *tenant.Scope) error {
		for i, in := range inputs {
			record, err := s.store.CreateEntity(ctx, scope, graphstore.CreateEntityParams{
				EntityType: in.EntityType,
				Name:       in.Name,
				Metadata:   metadatas[i],
				CreatedBy:  attributionFromDTO(in.CreatedBy),
			})
			if err != nil {
				return err
			}
			records[i] = record
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	reqs := make([]embeddings.Request, len(records))
	entities := make([]Entity, len(records))
	for i, record := range records {
		reqs[i] = entityRefreshRequest(record)
		entities[i] = entityFromRecord(record)
	}
	s.refresh(ctx, tenantID, reqs)
	return entities, nil
}

// EraseAll irreversibly deletes the tenant's entire graph and derived
// index, returning per-kind counts.
func (s *Service) EraseAll(ctx context.Context, tenantID string) (EraseResult, error) {
	var result EraseResult
	err := s.withScope(ctx, tenantID, func(ctx context.Context, scope *tenant.Scope) error {
		counts, err := s.store.EraseAll(ctx, scope)
		result.Counts = counts
		return err
	})
	if err != nil {
		return EraseResult{}, err
	}

	if s.index != nil {
		if err := s.index.DeleteAllForTenant(ctx, tenantID); err != nil {
			// Graph data is gone; orphaned vectors are unreadable but
			// should still be reported for retry.
			return result, fmt.Errorf("graph erased but index erase failed: %w", err)
		}
		result.VectorsErased = true
	}

	s.log.Info(ctx, "tenant erased",
		zap.String("tenant_id", tenantID),
		zap.Int("entities", result.Counts.Entities),
		zap.Int("relations", result.Counts.Relations),
		zap.Int("observations", result.Counts.Observations),
	)
	return result, nil
}

// scanPageSize bounds each page of an internal full scan. Scans loop
// until the store reports no more rows; a single page would silently drop
// cascade victims past the store's page cap.
const scanPageSize = 500

// collectRelations pages through every relation matching the filter.
func (s *Service) collectRelations(ctx context.Context, scope *tenant.Scope, f graphstore.RelationFilter) ([]graphstore.RelationRecord, error) {
	var all []graphstore.RelationRecord
	for offset := 0; ; offset += scanPageSize {
		records, total, err := s.store.ListRelations(ctx, scope, f, graphstore.Page{Limit: scanPageSize, Offset: offset})
		if err != nil {
			return nil, err
		}
		all = append(all, records...)
		if len(records) == 0 || len(all) >= total {
			return all, nil
		}
	}
}

// collectObservations pages through every observation matching the filter.
func (s *Service) collectObservations(ctx context.Context, scope *tenant.Scope, f graphstore.ObservationFilter) ([]graphstore.ObservationRecord, error) {
	var all []graphstore.ObservationRecord
	for offset := 0; ; offset += scanPageSize {
		records, total, err := s.store.ListObservations(ctx, scope, f, graphstore.Page{Limit: scanPageSize, Offset: offset})
		if err != nil {
			return nil, err
		}
		all = append(all, records...)
		if len(records) == 0 || len(all) >= total {
			return all, nil
		}
	}
}
