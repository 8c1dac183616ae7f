package memory

import (
	"context"
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/memoryd/internal/embeddings"
	"github.com/fyrsmithlabs/memoryd/internal/graphstore"
	"github.com/fyrsmithlabs/memoryd/internal/scoring"
	"github.com/fyrsmithlabs/memoryd/internal/tenant"
	"github.com/fyrsmithlabs/memoryd/internal/vectorstore"
)

// relationRefreshPair renders the relation- and triplet-class requests for
// one relation. The consistency score rides in both payloads so search
// results carry it without a graph round trip.
func relationRefreshPair(r *graphstore.RelationRecord, fromName, toName string) []embeddings.Request {
	consistency := scoring.TripletConsistency(r.FromEntityID, r.ToEntityID, r.Predicate, r.Strength)

	return []embeddings.Request{
		{
			Class:    vectorstore.ClassRelation,
			SourceID: r.ID,
			Text:     relationText(fromName, r.Predicate, toName),
			Payload: map[string]any{
				"content":           relationText(fromName, r.Predicate, toName),
				"predicate":         r.Predicate,
				"from_entity_id":    r.FromEntityID,
				"to_entity_id":      r.ToEntityID,
				"strength":          r.Strength,
				"consistency_score": consistency,
			},
		},
		{
			Class:    vectorstore.ClassTriplet,
			SourceID: r.ID,
			Text:     tripletText(fromName, r.Predicate, toName, r.Strength),
			Payload: map[string]any{
				"content":           tripletText(fromName, r.Predicate, toName, r.Strength),
				"predicate":         r.Predicate,
				"consistency_score": consistency,
			},
		},
	}
}

// relationRefreshRequests rebuilds refresh requests for every relation
// matching the filter, resolving endpoint names within the scope.
func (s *Service) relationRefreshRequests(ctx context.Context, scope *tenant.Scope, f graphstore.RelationFilter) ([]embeddings.Request, error) {
	relations, err := s.collectRelations(ctx, scope, f)
	if err != nil {
		return nil, err
	}

	names := make(map[string]string)
	resolve := func(id string) (string, error) {
		if name, ok := names[id]; ok {
			return name, nil
		}
		e, err := s.store.GetEntity(ctx, scope, id)
		if err != nil {
			return "", err
		}
		name := id // dangling endpoint falls back to the raw id
		if e != nil {
			name = e.Name
		}
		names[id] = name
		return name, nil
	}

	var reqs []embeddings.Request
	for i := range relations {
		fromName, err := resolve(relations[i].FromEntityID)
		if err != nil {
			return nil, err
		}
		toName, err := resolve(relations[i].ToEntityID)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, relationRefreshPair(&relations[i], fromName, toName)...)
	}
	return reqs, nil
}

// CreateRelation persists a relation between two existing entities. Both
// endpoints are resolved inside the same transaction as the write, so a
// missing endpoint means nothing is written.
func (s *Service) CreateRelation(ctx context.Context, tenantID string, in CreateRelationInput) (*Relation, error) {
	if in.FromEntityID == "" {
		return nil, fmt.Errorf("%w: from_entity_id required", ErrInvalidInput)
	}
	if in.ToEntityID == "" {
		return nil, fmt.Errorf("%w: to_entity_id required", ErrInvalidInput)
	}
	if err := validatePredicate(in.Predicate); err != nil {
		return nil, err
	}
	if err := validateStrength(in.Strength); err != nil {
		return nil, err
	}
	metadata, err := sanitizeMetadata(in.Metadata)
	if err != nil {
		return nil, err
	}

	var record *graphstore.RelationRecord
	var reqs []embeddings.Request
	err = s.withScope(ctx, tenantID, func(ctx context.Context, scope *tenant.Scope) error {
		from, err := s.store.GetEntity(ctx, scope, in.FromEntityID)
		if err != nil {
			return err
		}
		if from == nil {
			return fmt.Errorf("%w: entity %s", ErrNotFound, in.FromEntityID)
		}
		to, err := s.store.GetEntity(ctx, scope, in.ToEntityID)
		if err != nil {
			return err
		}
		if to == nil {
			return fmt.Errorf("%w: entity %s", ErrNotFound, in.ToEntityID)
		}

		record, err = s.store.CreateRelation(ctx, scope, graphstore.CreateRelationParams{
			FromEntityID: in.FromEntityID,
			Predicate:    in.Predicate,
			ToEntityID:   in.ToEntityID,
			Strength:     in.Strength,
			Metadata:     metadata,
			CreatedBy:    attributionFromDTO(in.CreatedBy),
		})
		if err != nil {
			return err
		}
		reqs = relationRefreshPair(record, from.Name, to.Name)
		return nil
	})
	if errors.Is(err, graphstore.ErrStrengthRange) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err != nil {
		return nil, err
	}

	s.refresh(ctx, tenantID, reqs)

	relation := relationFromRecord(record)
	return &relation, nil
}

// GetRelation returns one relation or ErrNotFound.
func (s *Service) GetRelation(ctx context.Context, tenantID, id string) (*Relation, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: relation id required", ErrInvalidInput)
	}

	var record *graphstore.RelationRecord
	err := s.withScope(ctx, tenantID, func(ctx context.Context, scope *tenant.Scope) error {
		var err error
		record, err = s.store.GetRelation(ctx, scope, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("%w: relation %s", ErrNotFound, id)
	}

	relation := relationFromRecord(record)
	return &relation, nil
}

// RelationListFilter narrows relation listings.
type RelationListFilter struct {
	Predicate     string `json:"predicate,omitempty"`
	EntityID      string `json:"entity_id,omitempty"` // either endpoint
	FromEntityID  string `json:"from_entity_id,omitempty"`
	ToEntityID    string `json:"to_entity_id,omitempty"`
	CreatedByUser string `json:"created_by_user,omitempty"`
}

// ListRelations returns one page of relations plus the filtered total.
func (s *Service) ListRelations(ctx context.Context, tenantID string, f RelationListFilter, opts ListOptions) (RelationPage, error) {
	var page RelationPage
	err := s.withScope(ctx, tenantID, func(ctx context.Context, scope *tenant.Scope) error {
		records, total, err := s.store.ListRelations(ctx, scope, graphstore.RelationFilter{
			Predicate:     f.Predicate,
			EntityID:      f.EntityID,
			FromEntityID:  f.FromEntityID,
			ToEntityID:    f.ToEntityID,
			CreatedByUser: f.CreatedByUser,
		}, opts.page())
		if err != nil {
			return err
		}
		page.Total = total
		page.Relations = make([]Relation, len(records))
		for i := range records {
			page.Relations[i] = relationFromRecord(&records[i])
		}
		return nil
	})
	if errors.Is(err, graphstore.ErrInvalidSortKey) {
		return RelationPage{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err != nil {
		return RelationPage{}, err
	}
	return page, nil
}

// UpdateRelation applies a partial update and re-embeds the relation.
func (s *Service) UpdateRelation(ctx context.Context, tenantID, id string, in UpdateRelationInput) (*Relation, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: relation id required", ErrInvalidInput)
	}
	if in.Predicate != nil {
		if err := validatePredicate(*in.Predicate); err != nil {
			return nil, err
		}
	}
	if err := validateStrength(in.Strength); err != nil {
		return nil, err
	}

	update := graphstore.RelationUpdate{
		Predicate: in.Predicate,
		Strength:  in.Strength,
		UpdatedBy: attributionFromDTO(in.UpdatedBy),
	}
	if in.Metadata != nil {
		metadata, err := sanitizeMetadata(*in.Metadata)
		if err != nil {
			return nil, err
		}
		update.Metadata = &metadata
	}

	var record *graphstore.RelationRecord
	var reqs []embeddings.Request
	err := s.withScope(ctx, tenantID, func(ctx context.Context, scope *tenant.Scope) error {
		var err error
		record, err = s.store.UpdateRelation(ctx, scope, id, update)
		if err != nil || record == nil {
			return err
		}

		fromName := record.FromEntityID
		if from, err := s.store.GetEntity(ctx, scope, record.FromEntityID); err != nil {
			return err
		} else if from != nil {
			fromName = from.Name
		}
		toName := record.ToEntityID
		if to, err := s.store.GetEntity(ctx, scope, record.ToEntityID); err != nil {
			return err
		} else if to != nil {
			toName = to.Name
		}
		reqs = relationRefreshPair(record, fromName, toName)
		return nil
	})
	if errors.Is(err, graphstore.ErrStrengthRange) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("%w: relation %s", ErrNotFound, id)
	}

	s.refresh(ctx, tenantID, reqs)

	relation := relationFromRecord(record)
	return &relation, nil
}

// DeleteRelation removes a relation and its derived vectors.
func (s *Service) DeleteRelation(ctx context.Context, tenantID, id string) error {
	if id == "" {
		return fmt.Errorf("%w: relation id required", ErrInvalidInput)
	}

	var deleted bool
	err := s.withScope(ctx, tenantID, func(ctx context.Context, scope *tenant.Scope) error {
		var err error
		deleted, err = s.store.DeleteRelation(ctx, scope, id)
		return err
	})
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("%w: relation %s", ErrNotFound, id)
	}

	s.dropVectors(ctx, tenantID, vectorstore.ClassRelation, []string{id})
	s.dropVectors(ctx, tenantID, vectorstore.ClassTriplet, []string{id})
	return nil
}
