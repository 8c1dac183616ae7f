package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/memoryd/internal/graphstore"
	"github.com/fyrsmithlabs/memoryd/internal/scoring"
	"github.com/fyrsmithlabs/memoryd/internal/tenant"
	"github.com/fyrsmithlabs/memoryd/internal/vectorstore"
)

// GetEntityRelations returns an entity's relations in the requested
// direction plus every endpoint entity hydrated once. Direction defaults
// to both sides.
func (s *Service) GetEntityRelations(ctx context.Context, tenantID, entityID string, direction Direction) (*EntityRelations, error) {
	if entityID == "" {
		return nil, fmt.Errorf("%w: entity id required", ErrInvalidInput)
	}
	if err := validateDirection(direction); err != nil {
		return nil, err
	}
	if direction == "" {
		direction = DirectionBoth
	}

	var out EntityRelations
	err := s.withScope(ctx, tenantID, func(ctx context.Context, scope *tenant.Scope) error {
		root, err := s.store.GetEntity(ctx, scope, entityID)
		if err != nil {
			return err
		}
		if root == nil {
			return fmt.Errorf("%w: entity %s", ErrNotFound, entityID)
		}
		out.Entity = entityFromRecord(root)

		var records []graphstore.RelationRecord
		switch direction {
		case DirectionOutgoing:
			records, err = s.collectRelations(ctx, scope, graphstore.RelationFilter{FromEntityID: entityID})
		case DirectionIncoming:
			records, err = s.collectRelations(ctx, scope, graphstore.RelationFilter{ToEntityID: entityID})
		case DirectionBoth:
			// Merge the two directional queries through a relation-id set
			// so a self-loop (from == to) appears exactly once.
			outgoing, oerr := s.collectRelations(ctx, scope, graphstore.RelationFilter{FromEntityID: entityID})
			if oerr != nil {
				return oerr
			}
			incoming, ierr := s.collectRelations(ctx, scope, graphstore.RelationFilter{ToEntityID: entityID})
			if ierr != nil {
				return ierr
			}
			seen := make(map[string]struct{}, len(outgoing)+len(incoming))
			records = make([]graphstore.RelationRecord, 0, len(outgoing)+len(incoming))
			for _, batch := range [][]graphstore.RelationRecord{outgoing, incoming} {
				for _, r := range batch {
					if _, ok := seen[r.ID]; ok {
						continue
					}
					seen[r.ID] = struct{}{}
					records = append(records, r)
				}
			}
		}
		if err != nil {
			return err
		}

		out.Relations = make([]Relation, len(records))
		out.Neighbors = make(map[string]Entity)
		for i := range records {
			out.Relations[i] = relationFromRecord(&records[i])

			for _, endpointID := range []string{records[i].FromEntityID, records[i].ToEntityID} {
				if endpointID == entityID {
					continue
				}
				if _, ok := out.Neighbors[endpointID]; ok {
					continue
				}
				neighbor, err := s.store.GetEntity(ctx, scope, endpointID)
				if err != nil {
					return err
				}
				if neighbor != nil {
					out.Neighbors[endpointID] = entityFromRecord(neighbor)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// isWildcardQuery reports whether the query asks for everything.
func isWildcardQuery(query string) bool {
	switch strings.ToLower(strings.TrimSpace(query)) {
	case "", "*", "all":
		return true
	}
	return false
}

// SearchMemories runs a case-insensitive substring search across entity
// names and observation content. A wildcard query ("*", "all" or empty)
// matches everything up to the limit per kind. An empty kinds slice searches
// both kinds.
func (s *Service) SearchMemories(ctx context.Context, tenantID, query string, kinds []MemoryKind, limit int) (SearchResults, error) {
	if limit <= 0 {
		limit = 50
	}

	wantEntities := len(kinds) == 0
	wantObservations := len(kinds) == 0
	for _, kind := range kinds {
		switch kind {
		case KindEntity:
			wantEntities = true
		case KindObservation:
			wantObservations = true
		default:
			return SearchResults{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidInput, kind)
		}
	}

	var entityFilter graphstore.EntityFilter
	var observationFilter graphstore.ObservationFilter
	if isWildcardQuery(query) {
		s.log.Debug(ctx, "wildcard memory search",
			zap.String("tenant_id", tenantID),
			zap.String("query", query),
		)
	} else {
		entityFilter.NameContains = query
		observationFilter.ContentContains = query
	}

	var results SearchResults
	err := s.withScope(ctx, tenantID, func(ctx context.Context, scope *tenant.Scope) error {
		if wantEntities {
			entities, _, err := s.store.ListEntities(ctx, scope, entityFilter, graphstore.Page{Limit: limit})
			if err != nil {
				return err
			}
			results.Entities = make([]Entity, len(entities))
			for i := range entities {
				results.Entities[i] = entityFromRecord(&entities[i])
			}
		}

		if wantObservations {
			observations, _, err := s.store.ListObservations(ctx, scope, observationFilter, graphstore.Page{Limit: limit})
			if err != nil {
				return err
			}
			results.Observations = make([]Observation, len(observations))
			for i := range observations {
				results.Observations[i] = observationFromRecord(&observations[i])
			}
		}
		return nil
	})
	if err != nil {
		return SearchResults{}, err
	}

	results.Total = len(results.Entities) + len(results.Observations)
	return results, nil
}

// SearchSimilar embeds the query and runs vector similarity search within
// one embedding class. Requires the embedding pipeline and vector index.
// Hits scoring below minScore are dropped (zero disables the floor), and
// filters restrict results to points whose payload matches every entry
// exactly.
func (s *Service) SearchSimilar(ctx context.Context, tenantID string, class vectorstore.Class, query string, k int, minScore float32, filters map[string]any) ([]SimilarMemory, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenant id required", ErrUnauthenticated)
	}
	if s.pipeline == nil || s.index == nil {
		return nil, fmt.Errorf("%w: similarity search requires an embedding pipeline and vector index", ErrInvalidInput)
	}
	if !class.Valid() {
		return nil, fmt.Errorf("%w: unknown class %q", ErrInvalidInput, class)
	}
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query required", ErrInvalidInput)
	}
	if k <= 0 {
		k = 10
	}
	if minScore < 0 || minScore > 1 {
		return nil, fmt.Errorf("%w: min score must be in [0, 1], got %v", ErrInvalidInput, minScore)
	}

	vector, err := s.pipeline.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	hits, err := s.index.Search(ctx, tenantID, class, vector, k, minScore, filters)
	if errors.Is(err, vectorstore.ErrInvalidFilter) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err != nil {
		return nil, err
	}

	out := make([]SimilarMemory, len(hits))
	for i, hit := range hits {
		out[i] = SimilarMemory{
			SourceID: hit.SourceID,
			Score:    hit.Score,
			// The index reports cosine similarity, so drift is its complement.
			Drift:   scoring.ClampDrift(1 - float64(hit.Score)),
			Payload: hit.Payload,
		}
	}
	return out, nil
}
