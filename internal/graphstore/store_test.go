package graphstore

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/memoryd/internal/tenant"
)

// testStore opens an in-memory database with the schema applied and returns
// the store plus a guard for establishing scopes.
func testStore(t *testing.T) (*Store, *tenant.Guard, *sql.DB) {
	t.Helper()

	db, err := sql.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	// A single connection keeps the shared in-memory database alive and
	// mirrors SQLite's single-writer behavior.
	db.SetMaxOpenConns(1)

	require.NoError(t, Migrate(context.Background(), db))

	return New(nil), tenant.NewGuard(db, nil), db
}

// inScope runs fn inside a tenant scope and fails the test on scope errors.
func inScope(t *testing.T, guard *tenant.Guard, tenantID string, fn func(ctx context.Context, scope *tenant.Scope) error) {
	t.Helper()
	require.NoError(t, guard.WithTenant(context.Background(), tenantID, fn))
}

// seedEntity creates an entity and returns its record.
func seedEntity(t *testing.T, store *Store, guard *tenant.Guard, tenantID, entityType, name string) *EntityRecord {
	t.Helper()
	var out *EntityRecord
	inScope(t, guard, tenantID, func(ctx context.Context, scope *tenant.Scope) error {
		e, err := store.CreateEntity(ctx, scope, CreateEntityParams{
			EntityType: entityType,
			Name:       name,
			CreatedBy:  Attribution{UserID: tenantID},
		})
		out = e
		return err
	})
	return out
}

func floatPtr(f float64) *float64 { return &f }

func strPtr(s string) *string { return &s }
