// Package tenant binds a tenant identity to data-layer operations.
//
// Two bindings exist:
//
//   - Scope: the relational binding. Guard.WithTenant opens one transaction,
//     brands it with the tenant id, and tears both down together. Every
//     graphstore query receives the Scope and injects the tenant predicate
//     from it, so a pooled connection can never execute a second tenant's
//     query while branded with the first tenant's context.
//
//   - Context tenant: the vector-side binding. The tenant id travels in the
//     context and is extracted fail-closed (ErrMissingTenant) by the vector
//     index, mirroring the relational discipline for operations that run
//     outside a transaction (async embedding refresh, search).
package tenant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Sentinel errors - fail closed security model.
var (
	// ErrInvalidTenant is returned when a tenant identifier is empty or malformed.
	ErrInvalidTenant = errors.New("invalid tenant identifier")

	// ErrMissingTenant is returned when tenant identity is missing from context.
	// This triggers "fail closed" behavior - no empty results, just errors.
	ErrMissingTenant = errors.New("tenant identity missing from context")

	// ErrTenantMismatch is returned when the active scope's tenant differs from
	// the tenant expected by the caller. Never downgraded to a soft failure.
	ErrTenantMismatch = errors.New("tenant mismatch")
)

// None is the diagnostic value reported outside any tenant scope.
const None = "none"

// Scope is the tenant-branded transactional unit. All graph store operations
// require one; it is valid only inside the Guard.WithTenant call that created
// it.
type Scope struct {
	tenantID string
	tx       *sql.Tx
}

// TenantID returns the tenant this scope is bound to.
func (s *Scope) TenantID() string {
	return s.tenantID
}

// Tx returns the transaction exclusive to this scope.
func (s *Scope) Tx() *sql.Tx {
	return s.tx
}

// scopeContextKey is the context key for the active Scope.
type scopeContextKey struct{}

// tenantContextKey is the context key for the plain tenant id (vector side).
type tenantContextKey struct{}

// contextWithScope attaches the active scope to a context.
func contextWithScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, scopeContextKey{}, s)
}

// ScopeFromContext extracts the active Scope. Returns ErrMissingTenant if
// called outside a Guard.WithTenant scope - fail closed.
func ScopeFromContext(ctx context.Context) (*Scope, error) {
	s, ok := ctx.Value(scopeContextKey{}).(*Scope)
	if !ok || s == nil {
		return nil, ErrMissingTenant
	}
	return s, nil
}

// ContextWithTenant attaches a tenant id to a context for operations that run
// outside a relational scope (vector index calls, async refresh).
func ContextWithTenant(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantContextKey{}, tenantID)
}

// FromContext extracts the tenant id from a context. Scope binding wins over
// the plain context tenant. Returns ErrMissingTenant if neither is present.
func FromContext(ctx context.Context) (string, error) {
	if s, err := ScopeFromContext(ctx); err == nil {
		return s.tenantID, nil
	}
	id, ok := ctx.Value(tenantContextKey{}).(string)
	if !ok || id == "" {
		return "", ErrMissingTenant
	}
	return id, nil
}

// CurrentTenant reports the active tenant for diagnostics. Returns None
// outside any scope; never fails.
func CurrentTenant(ctx context.Context) string {
	id, err := FromContext(ctx)
	if err != nil {
		return None
	}
	return id
}

// ValidateTenant fails with ErrTenantMismatch if the active tenant differs
// from expected. Defense-in-depth for callers that receive a tenant id from an
// independent source (e.g. an authenticated caller identity) alongside the
// data-layer context.
func ValidateTenant(ctx context.Context, expected string) error {
	if expected == "" {
		return ErrInvalidTenant
	}
	active, err := FromContext(ctx)
	if err != nil {
		return err
	}
	if active != expected {
		return fmt.Errorf("%w: scope bound to %q, caller expects %q", ErrTenantMismatch, active, expected)
	}
	return nil
}
