package vectorstore

import "errors"

var (
	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrConnectionFailed indicates the Qdrant client could not be created.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrInvalidFilter indicates a payload filter with a reserved key or
	// an unsupported value type.
	ErrInvalidFilter = errors.New("invalid payload filter")

	// ErrUnavailable indicates the index could not be reached after
	// bounded retries. Callers may retry later; the graph write has
	// already committed.
	ErrUnavailable = errors.New("vector index unavailable")

	// ErrInvalidClass indicates an unknown embedding class.
	ErrInvalidClass = errors.New("invalid embedding class")

	// ErrEmptyVector indicates a point with no vector.
	ErrEmptyVector = errors.New("empty vector")
)
