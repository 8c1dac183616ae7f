package graphstore

import (
	"context"
	"fmt"

	"github.com/fyrsmithlabs/memoryd/internal/tenant"
)

// EraseAll irreversibly deletes every entity, relation and observation owned
// by the scope's tenant and returns per-kind deletion counts.
//
// This is the only operation allowed to affect an entire tenant's data set in
// one call. It deliberately takes no qualifier: the scope alone names the
// tenant, so the deletion cannot be widened across tenants. All three deletes
// share the scope's transaction.
func (s *Store) EraseAll(ctx context.Context, scope *tenant.Scope) (EraseCounts, error) {
	var counts EraseCounts

	res, err := scope.Tx().ExecContext(ctx, `DELETE FROM relations WHERE tenant_id = ?`, scope.TenantID())
	if err != nil {
		return counts, fmt.Errorf("erase relations: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return counts, fmt.Errorf("erase relations rows: %w", err)
	}
	counts.Relations = int(n)

	res, err = scope.Tx().ExecContext(ctx, `DELETE FROM observations WHERE tenant_id = ?`, scope.TenantID())
	if err != nil {
		return counts, fmt.Errorf("erase observations: %w", err)
	}
	n, err = res.RowsAffected()
	if err != nil {
		return counts, fmt.Errorf("erase observations rows: %w", err)
	}
	counts.Observations = int(n)

	res, err = scope.Tx().ExecContext(ctx, `DELETE FROM entities WHERE tenant_id = ?`, scope.TenantID())
	if err != nil {
		return counts, fmt.Errorf("erase entities: %w", err)
	}
	n, err = res.RowsAffected()
	if err != nil {
		return counts, fmt.Errorf("erase entities rows: %w", err)
	}
	counts.Entities = int(n)

	return counts, nil
}
