package memory

import "errors"

var (
	// ErrInvalidInput indicates a request that fails validation. The
	// wrapped message names the offending field.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound indicates a referenced record is absent within the
	// caller's tenant. Records owned by other tenants are
	// indistinguishable from absent ones.
	ErrNotFound = errors.New("not found")

	// ErrUnauthenticated indicates a request without a usable tenant
	// identity.
	ErrUnauthenticated = errors.New("unauthenticated")
)
