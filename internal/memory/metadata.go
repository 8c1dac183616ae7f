package memory

import (
	"encoding/json"
	"fmt"
)

// Metadata sanitization bounds. Depth counts nesting levels of maps and
// arrays; the key budget is shared across all nesting levels.
const (
	maxMetadataDepth = 5
	maxMetadataKeys  = 64
)

// sanitizeMetadata checks the metadata value tree and renders it to the
// JSON string the graph store persists. Allowed leaves are strings,
// numbers, booleans and nil; containers are maps and arrays. Anything else
// (functions, channels, custom structs arriving through any) is rejected
// rather than silently dropped.
func sanitizeMetadata(metadata map[string]any) (string, error) {
	if len(metadata) == 0 {
		return "{}", nil
	}

	keys := 0
	if err := checkMetadataValue(metadata, 1, &keys); err != nil {
		return "", err
	}

	encoded, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("%w: metadata not serializable: %v", ErrInvalidInput, err)
	}
	return string(encoded), nil
}

func checkMetadataValue(v any, depth int, keys *int) error {
	if depth > maxMetadataDepth {
		return fmt.Errorf("%w: metadata exceeds max depth %d", ErrInvalidInput, maxMetadataDepth)
	}

	switch val := v.(type) {
	case nil, string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, json.Number:
		return nil
	case map[string]any:
		for k, child := range val {
			*keys++
			if *keys > maxMetadataKeys {
				return fmt.Errorf("%w: metadata exceeds max %d keys", ErrInvalidInput, maxMetadataKeys)
			}
			if k == "" {
				return fmt.Errorf("%w: metadata key cannot be empty", ErrInvalidInput)
			}
			if err := checkMetadataValue(child, depth+1, keys); err != nil {
				return err
			}
		}
		return nil
	case []any:
		for _, child := range val {
			if err := checkMetadataValue(child, depth+1, keys); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: metadata value of type %T not allowed", ErrInvalidInput, v)
	}
}

// decodeMetadata parses a stored metadata blob back into a map. Corrupt
// blobs yield nil rather than failing the read.
func decodeMetadata(encoded string) map[string]any {
	if encoded == "" || encoded == "{}" {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(encoded), &out); err != nil {
		return nil
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
