// Package graphstore persists the per-tenant knowledge graph: entities,
// relations and observations in SQLite.
//
// Every operation takes a *tenant.Scope and runs inside that scope's
// transaction; the store never establishes a scope itself. This keeps
// cross-entity operations (cascade delete, batch create, relation endpoint
// checks) transactional under the caller's single scope. All SQL injects the
// scope's tenant id as a predicate, so a query can never touch another
// tenant's rows regardless of how the connection pool schedules work.
//
// Updates return (nil, nil) when the id does not exist within the active
// tenant; callers translate that into a NotFound error at their boundary.
package graphstore
