package vectorstore

import (
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// pointNamespace seeds deterministic point ids so re-embedding a record
// overwrites its previous point instead of accumulating duplicates.
var pointNamespace = uuid.MustParse("8f0c2c06-5b5d-4f5e-9a55-2f4bfae6d7a1")

// Point is one derived vector plus its payload.
type Point struct {
	// SourceID is the graph record id the vector was derived from.
	SourceID string

	// Class selects the target collection.
	Class Class

	// Vector is the embedding. Must be non-empty.
	Vector []float32

	// Hash is the content hash of the embedded text, stored in the
	// payload so staleness can be detected without re-embedding.
	Hash string

	// Payload is extra metadata stored alongside the vector. The tenant
	// id and source id are injected by the index and must not be set here.
	Payload map[string]any
}

// SearchHit is one similarity search result.
type SearchHit struct {
	// SourceID is the graph record id of the matching point.
	SourceID string

	// Score is the similarity score reported by the index.
	Score float32

	// Hash is the stored content hash of the matching point.
	Hash string

	// Payload is the stored metadata.
	Payload map[string]any
}

// StoredPoint is a point fetched by id.
type StoredPoint struct {
	SourceID string
	Vector   []float32
	Hash     string
	Payload  map[string]any
}

// pointID derives the deterministic Qdrant point id for a source record
// within a class.
func pointID(class Class, sourceID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(string(class)+"/"+sourceID)).String()
}

// toQdrantValue converts a payload value to the Qdrant wire representation.
// Unsupported types are dropped, matching keyword-filterable payload use.
func toQdrantValue(v any) *qdrant.Value {
	switch val := v.(type) {
	case string:
		return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: val}}
	case int:
		return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(val)}}
	case int64:
		return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: val}}
	case float64:
		return &qdrant.Value{Kind: &qdrant.Value_DoubleValue{DoubleValue: val}}
	case bool:
		return &qdrant.Value{Kind: &qdrant.Value_BoolValue{BoolValue: val}}
	default:
		return nil
	}
}

// fromQdrantPayload converts a Qdrant payload back to plain Go values.
func fromQdrantPayload(payload map[string]*qdrant.Value) map[string]any {
	if payload == nil {
		return nil
	}
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		switch val := v.Kind.(type) {
		case *qdrant.Value_StringValue:
			out[k] = val.StringValue
		case *qdrant.Value_IntegerValue:
			out[k] = val.IntegerValue
		case *qdrant.Value_DoubleValue:
			out[k] = val.DoubleValue
		case *qdrant.Value_BoolValue:
			out[k] = val.BoolValue
		}
	}
	return out
}

// buildPayload assembles the stored payload for a point. Reserved keys win
// over caller-supplied metadata.
func buildPayload(tenantID string, p Point) map[string]*qdrant.Value {
	payload := make(map[string]*qdrant.Value, len(p.Payload)+3)
	for k, v := range p.Payload {
		if qv := toQdrantValue(v); qv != nil {
			payload[k] = qv
		}
	}
	payload[payloadKeyTenant] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: tenantID}}
	payload[payloadKeyID] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: p.SourceID}}
	payload[payloadKeyHash] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: p.Hash}}
	return payload
}

const (
	payloadKeyTenant = "tenant_id"
	payloadKeyID     = "id"
	payloadKeyHash   = "content_hash"
)
