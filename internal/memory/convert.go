package memory

import (
	"fmt"

	"github.com/fyrsmithlabs/memoryd/internal/graphstore"
)

func attributionFromDTO(by CreatedBy) graphstore.Attribution {
	attr := graphstore.Attribution{UserID: by.User}
	if by.Assistant != nil {
		attr.AssistantName = by.Assistant.Name
		attr.AssistantType = by.Assistant.Type
	}
	return attr
}

func attributionToDTO(attr graphstore.Attribution) CreatedBy {
	by := CreatedBy{User: attr.UserID}
	if attr.AssistantName != "" || attr.AssistantType != "" {
		by.Assistant = &Assistant{Name: attr.AssistantName, Type: attr.AssistantType}
	}
	return by
}

func entityFromRecord(r *graphstore.EntityRecord) Entity {
	return Entity{
		ID:         r.ID,
		EntityType: r.EntityType,
		Name:       r.Name,
		Metadata:   decodeMetadata(r.Metadata),
		CreatedBy:  attributionToDTO(r.CreatedBy),
		UpdatedBy:  attributionToDTO(r.UpdatedBy),
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func relationFromRecord(r *graphstore.RelationRecord) Relation {
	return Relation{
		ID:           r.ID,
		FromEntityID: r.FromEntityID,
		Predicate:    r.Predicate,
		ToEntityID:   r.ToEntityID,
		Strength:     r.Strength,
		Metadata:     decodeMetadata(r.Metadata),
		CreatedBy:    attributionToDTO(r.CreatedBy),
		UpdatedBy:    attributionToDTO(r.UpdatedBy),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func observationFromRecord(r *graphstore.ObservationRecord) Observation {
	return Observation{
		ID:        r.ID,
		EntityID:  r.EntityID,
		Content:   r.Content,
		Source:    r.Source,
		Metadata:  decodeMetadata(r.Metadata),
		CreatedBy: attributionToDTO(r.CreatedBy),
		UpdatedBy: attributionToDTO(r.UpdatedBy),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// Embedding text renderings. These are stable formats: changing one
// invalidates every content hash of that class and forces a full
// re-embed.

func entityText(entityType, name string) string {
	return fmt.Sprintf("%s: %s", entityType, name)
}

func relationText(fromName, predicate, toName string) string {
	return fmt.Sprintf("%s %s %s", fromName, predicate, toName)
}

func tripletText(fromName, predicate, toName string, strength float64) string {
	return fmt.Sprintf("(%s, %s, %s) [strength=%.2f]", fromName, predicate, toName, strength)
}
