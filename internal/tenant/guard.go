package tenant

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/memoryd/internal/logging"
)

// Guard establishes tenant scopes over a shared connection pool.
//
// WithTenant is the only way to obtain a Scope. The scope's transaction is
// exclusive to one pooled connection for its lifetime, so the tenant binding
// and the queries issued under it are atomic with respect to connection reuse.
type Guard struct {
	db  *sql.DB
	log *logging.Logger
}

// NewGuard creates a Guard over the given database handle.
func NewGuard(db *sql.DB, log *logging.Logger) *Guard {
	if log == nil {
		log = logging.NewNop()
	}
	return &Guard{
		db:  db,
		log: log.Named("tenant"),
	}
}

// WithTenant executes fn inside a scope restricted to tenantID.
//
// The scope is torn down unconditionally: commit when fn returns nil,
// rollback when fn returns an error or panics (the panic is re-raised after
// rollback). The tenant id and scope are also threaded through the returned
// context for diagnostics and for nested vector-index calls.
func (g *Guard) WithTenant(ctx context.Context, tenantID string, fn func(ctx context.Context, scope *Scope) error) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenant id must be a non-empty string", ErrInvalidTenant)
	}

	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tenant scope: %w", err)
	}

	scope := &Scope{tenantID: tenantID, tx: tx}
	ctx = contextWithScope(ctx, scope)
	ctx = ContextWithTenant(ctx, tenantID)
	ctx = logging.ContextWithFields(ctx, zap.String("tenant_id", tenantID))

	done := false
	defer func() {
		if done {
			return
		}
		// fn panicked: roll back, then re-raise.
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			g.log.Error(ctx, "rollback after panic failed", zap.Error(rbErr))
		}
	}()

	if err := fn(ctx, scope); err != nil {
		done = true
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			g.log.Error(ctx, "rollback failed", zap.Error(rbErr))
		}
		return err
	}

	done = true
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tenant scope: %w", err)
	}
	return nil
}
