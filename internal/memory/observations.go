package memory

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/fyrsmithlabs/memoryd/internal/embeddings"
	"github.com/fyrsmithlabs/memoryd/internal/graphstore"
	"github.com/fyrsmithlabs/memoryd/internal/scoring"
	"github.com/fyrsmithlabs/memoryd/internal/tenant"
	"github.com/fyrsmithlabs/memoryd/internal/vectorstore"
)

// observationRefreshRequest renders the context-class request for one
// observation. Coherence rides in the payload: the source acts as the topic
// marker, attribution users as participants, and the last update as the
// boundary timestamp.
func observationRefreshRequest(o *graphstore.ObservationRecord) embeddings.Request {
	var markers scoring.BoundaryMarkers
	if o.Source != "" {
		markers.Topics = append(markers.Topics, o.Source)
	}
	for _, user := range []string{o.CreatedBy.UserID, o.UpdatedBy.UserID} {
		if user != "" && !slices.Contains(markers.Participants, user) {
			markers.Participants = append(markers.Participants, user)
		}
	}
	markers.LastBoundaryAt = o.UpdatedAt
	coherence := scoring.Coherence(markers, time.Now())

	return embeddings.Request{
		Class:    vectorstore.ClassContext,
		SourceID: o.ID,
		Text:     o.Content,
		Payload: map[string]any{
			"content":         o.Content,
			"entity_id":       o.EntityID,
			"source":          o.Source,
			"coherence_score": coherence.Overall,
		},
	}
}

// CreateObservation persists an observation against an existing entity.
func (s *Service) CreateObservation(ctx context.Context, tenantID string, in CreateObservationInput) (*Observation, error) {
	if in.EntityID == "" {
		return nil, fmt.Errorf("%w: entity_id required", ErrInvalidInput)
	}
	if err := validateContent(in.Content); err != nil {
		return nil, err
	}
	if err := validateSource(in.Source); err != nil {
		return nil, err
	}
	metadata, err := sanitizeMetadata(in.Metadata)
	if err != nil {
		return nil, err
	}

	var record *graphstore.ObservationRecord
	err = s.withScope(ctx, tenantID, func(ctx context.Context, scope *tenant.Scope) error {
		owner, err := s.store.GetEntity(ctx, scope, in.EntityID)
		if err != nil {
			return err
		}
		if owner == nil {
			return fmt.Errorf("%w: entity %s", ErrNotFound, in.EntityID)
		}

		record, err = s.store.CreateObservation(ctx, scope, graphstore.CreateObservationParams{
			EntityID:  in.EntityID,
			Content:   in.Content,
			Source:    in.Source,
			Metadata:  metadata,
			CreatedBy: attributionFromDTO(in.CreatedBy),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.refresh(ctx, tenantID, []embeddings.Request{observationRefreshRequest(record)})

	observation := observationFromRecord(record)
	return &observation, nil
}

// GetObservation returns one observation or ErrNotFound.
func (s *Service) GetObservation(ctx context.Context, tenantID, id string) (*Observation, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: observation id required", ErrInvalidInput)
	}

	var record *graphstore.ObservationRecord
	err := s.withScope(ctx, tenantID, func(ctx context.Context, scope *tenant.Scope) error {
		var err error
		record, err = s.store.GetObservation(ctx, scope, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("%w: observation %s", ErrNotFound, id)
	}

	observation := observationFromRecord(record)
	return &observation, nil
}

// ObservationListFilter narrows observation listings.
type ObservationListFilter struct {
	EntityID        string `json:"entity_id,omitempty"`
	Source          string `json:"source,omitempty"`
	ContentContains string `json:"content_contains,omitempty"`
	CreatedByUser   string `json:"created_by_user,omitempty"`
}

// ListObservations returns one page of observations plus the filtered
// total.
func (s *Service) ListObservations(ctx context.Context, tenantID string, f ObservationListFilter, opts ListOptions) (ObservationPage, error) {
	var page ObservationPage
	err := s.withScope(ctx, tenantID, func(ctx context.Context, scope *tenant.Scope) error {
		records, total, err := s.store.ListObservations(ctx, scope, graphstore.ObservationFilter{
			EntityID:        f.EntityID,
			Source:          f.Source,
			ContentContains: f.ContentContains,
			CreatedByUser:   f.CreatedByUser,
		}, opts.page())
		if err != nil {
			return err
		}
		page.Total = total
		page.Observations = make([]Observation, len(records))
		for i := range records {
			page.Observations[i] = observationFromRecord(&records[i])
		}
		return nil
	})
	if errors.Is(err, graphstore.ErrInvalidSortKey) {
		return ObservationPage{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err != nil {
		return ObservationPage{}, err
	}
	return page, nil
}

// UpdateObservation applies a partial update and re-embeds the content.
func (s *Service) UpdateObservation(ctx context.Context, tenantID, id string, in UpdateObservationInput) (*Observation, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: observation id required", ErrInvalidInput)
	}
	if in.Content != nil {
		if err := validateContent(*in.Content); err != nil {
			return nil, err
		}
	}
	if in.Source != nil {
		if err := validateSource(*in.Source); err != nil {
			return nil, err
		}
	}

	update := graphstore.ObservationUpdate{
		Content:   in.Content,
		Source:    in.Source,
		UpdatedBy: attributionFromDTO(in.UpdatedBy),
	}
	if in.Metadata != nil {
		metadata, err := sanitizeMetadata(*in.Metadata)
		if err != nil {
			return nil, err
		}
		update.Metadata = &metadata
	}

	var record *graphstore.ObservationRecord
	err := s.withScope(ctx, tenantID, func(ctx context.Context, scope *tenant.Scope) error {
		var err error
		record, err = s.store.UpdateObservation(ctx, scope, id, update)
		return err
	})
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("%w: observation %s", ErrNotFound, id)
	}

	s.refresh(ctx, tenantID, []embeddings.Request{observationRefreshRequest(record)})

	observation := observationFromRecord(record)
	return &observation, nil
}

// DeleteObservation removes an observation and its derived vector.
func (s *Service) DeleteObservation(ctx context.Context, tenantID, id string) error {
	if id == "" {
		return fmt.Errorf("%w: observation id required", ErrInvalidInput)
	}

	var deleted bool
	err := s.withScope(ctx, tenantID, func(ctx context.Context, scope *tenant.Scope) error {
		var err error
		deleted, err = s.store.DeleteObservation(ctx, scope, id)
		return err
	})
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("%w: observation %s", ErrNotFound, id)
	}

	s.dropVectors(ctx, tenantID, vectorstore.ClassContext, []string{id})
	return nil
}
