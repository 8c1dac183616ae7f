package graphstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fyrsmithlabs/memoryd/internal/tenant"
)

// entitySortKeys is the allow-list of entity sort keys.
var entitySortKeys = map[string]string{
	"name":        "name",
	"entity_type": "entity_type",
	"created_at":  "created_at",
	"updated_at":  "updated_at",
}

const entityColumns = `id, tenant_id, entity_type, name, metadata,
	created_by_user, created_by_assistant_name, created_by_assistant_type,
	updated_by_user, updated_by_assistant_name, updated_by_assistant_type,
	created_at, updated_at`

func scanEntity(row rowScanner) (*EntityRecord, error) {
	var e EntityRecord
	var createdAt, updatedAt string
	err := row.Scan(
		&e.ID, &e.TenantID, &e.EntityType, &e.Name, &e.Metadata,
		&e.CreatedBy.UserID, &e.CreatedBy.AssistantName, &e.CreatedBy.AssistantType,
		&e.UpdatedBy.UserID, &e.UpdatedBy.AssistantName, &e.UpdatedBy.AssistantType,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.CreatedAt = decodeTime(createdAt)
	e.UpdatedAt = decodeTime(updatedAt)
	return &e, nil
}

// CreateEntity persists a new entity and returns the stored record with its
// server-assigned id and timestamps.
func (s *Store) CreateEntity(ctx context.Context, scope *tenant.Scope, p CreateEntityParams) (*EntityRecord, error) {
	if p.EntityType == "" {
		return nil, fmt.Errorf("%w: entity_type", ErrMissingField)
	}
	if p.Name == "" {
		return nil, fmt.Errorf("%w: name", ErrMissingField)
	}

	now := time.Now().UTC()
	e := &EntityRecord{
		ID:         uuid.New().String(),
		TenantID:   scope.TenantID(),
		EntityType: p.EntityType,
		Name:       p.Name,
		Metadata:   defaultMetadata(p.Metadata),
		CreatedBy:  p.CreatedBy,
		UpdatedBy:  p.CreatedBy,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	_, err := scope.Tx().ExecContext(ctx, `
		INSERT INTO entities (`+entityColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.TenantID, e.EntityType, e.Name, e.Metadata,
		e.CreatedBy.UserID, e.CreatedBy.AssistantName, e.CreatedBy.AssistantType,
		e.UpdatedBy.UserID, e.UpdatedBy.AssistantName, e.UpdatedBy.AssistantType,
		encodeTime(e.CreatedAt), encodeTime(e.UpdatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert entity: %w", err)
	}
	return e, nil
}

// GetEntity returns the entity with the given id within the active tenant,
// or (nil, nil) if absent.
func (s *Store) GetEntity(ctx context.Context, scope *tenant.Scope, id string) (*EntityRecord, error) {
	row := scope.Tx().QueryRowContext(ctx, `
		SELECT `+entityColumns+` FROM entities
		WHERE tenant_id = ? AND id = ?`,
		scope.TenantID(), id,
	)
	e, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get entity: %w", err)
	}
	return e, nil
}

// entityWhere builds the WHERE clause and arguments for an entity filter.
// The tenant predicate always comes first.
func entityWhere(scope *tenant.Scope, f EntityFilter) (string, []any) {
	where := " WHERE tenant_id = ?"
	args := []any{scope.TenantID()}

	if f.EntityType != "" {
		where += " AND entity_type = ?"
		args = append(args, f.EntityType)
	}
	if f.NameContains != "" {
		where += ` AND name LIKE ? ESCAPE '\'`
		args = append(args, likePattern(f.NameContains))
	}
	if f.CreatedByUser != "" {
		where += " AND created_by_user = ?"
		args = append(args, f.CreatedByUser)
	}
	return where, args
}

// ListEntities returns one page of entities plus the total count of the
// filtered set. The count is computed by an independent query so it reflects
// the filter, not the page.
func (s *Store) ListEntities(ctx context.Context, scope *tenant.Scope, f EntityFilter, page Page) ([]EntityRecord, int, error) {
	page = page.normalize("created_at")
	order, err := orderClause(page, entitySortKeys)
	if err != nil {
		return nil, 0, err
	}

	where, args := entityWhere(scope, f)

	var total int
	if err := scope.Tx().QueryRowContext(ctx, "SELECT COUNT(*) FROM entities"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count entities: %w", err)
	}

	rows, err := scope.Tx().QueryContext(ctx,
		"SELECT "+entityColumns+" FROM entities"+where+order,
		append(args, page.Limit, page.Offset)...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list entities: %w", err)
	}
	defer rows.Close()

	var out []EntityRecord
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan entity: %w", err)
		}
		out = append(out, *e)
	}
	return out, total, rows.Err()
}

// ListEntitiesWithCounts behaves like ListEntities but additionally computes
// each entity's relation count (as subject or object) and observation count.
// These are read-time aggregates over an already-bounded page, not stored
// counters.
func (s *Store) ListEntitiesWithCounts(ctx context.Context, scope *tenant.Scope, f EntityFilter, page Page) ([]EntityWithCounts, int, error) {
	entities, total, err := s.ListEntities(ctx, scope, f, page)
	if err != nil {
		return nil, 0, err
	}

	out := make([]EntityWithCounts, 0, len(entities))
	for _, e := range entities {
		ec := EntityWithCounts{EntityRecord: e}

		err := scope.Tx().QueryRowContext(ctx, `
			SELECT COUNT(*) FROM relations
			WHERE tenant_id = ? AND (from_entity_id = ? OR to_entity_id = ?)`,
			scope.TenantID(), e.ID, e.ID,
		).Scan(&ec.RelationCount)
		if err != nil {
			return nil, 0, fmt.Errorf("count relations for entity %s: %w", e.ID, err)
		}

		err = scope.Tx().QueryRowContext(ctx, `
			SELECT COUNT(*) FROM observations
			WHERE tenant_id = ? AND entity_id = ?`,
			scope.TenantID(), e.ID,
		).Scan(&ec.ObservationCount)
		if err != nil {
			return nil, 0, fmt.Errorf("count observations for entity %s: %w", e.ID, err)
		}

		out = append(out, ec)
	}
	return out, total, nil
}

// UpdateEntity applies a partial update. Only supplied fields change;
// updated_at and updater attribution are always refreshed. Returns (nil, nil)
// when the id does not exist within the active tenant.
func (s *Store) UpdateEntity(ctx context.Context, scope *tenant.Scope, id string, u EntityUpdate) (*EntityRecord, error) {
	set := "updated_by_user = ?, updated_by_assistant_name = ?, updated_by_assistant_type = ?, updated_at = ?"
	args := []any{u.UpdatedBy.UserID, u.UpdatedBy.AssistantName, u.UpdatedBy.AssistantType, encodeTime(time.Now().UTC())}

	if u.EntityType != nil {
		if *u.EntityType == "" {
			return nil, fmt.Errorf("%w: entity_type", ErrMissingField)
		}
		set += ", entity_type = ?"
		args = append(args, *u.EntityType)
	}
	if u.Name != nil {
		if *u.Name == "" {
			return nil, fmt.Errorf("%w: name", ErrMissingField)
		}
		set += ", name = ?"
		args = append(args, *u.Name)
	}
	if u.Metadata != nil {
		set += ", metadata = ?"
		args = append(args, defaultMetadata(*u.Metadata))
	}

	args = append(args, scope.TenantID(), id)
	res, err := scope.Tx().ExecContext(ctx,
		"UPDATE entities SET "+set+" WHERE tenant_id = ? AND id = ?", args...)
	if err != nil {
		return nil, fmt.Errorf("update entity: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update entity rows: %w", err)
	}
	if affected == 0 {
		return nil, nil
	}
	return s.GetEntity(ctx, scope, id)
}

// DeleteEntity removes an entity and cascades to relations referencing it
// (either endpoint) and observations owned by it. The cascade shares the
// scope's transaction, so it is atomic. Returns false when the entity does
// not exist within the active tenant.
func (s *Store) DeleteEntity(ctx context.Context, scope *tenant.Scope, id string) (bool, error) {
	res, err := scope.Tx().ExecContext(ctx,
		`DELETE FROM entities WHERE tenant_id = ? AND id = ?`, scope.TenantID(), id)
	if err != nil {
		return false, fmt.Errorf("delete entity: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete entity rows: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	if _, err := scope.Tx().ExecContext(ctx, `
		DELETE FROM relations
		WHERE tenant_id = ? AND (from_entity_id = ? OR to_entity_id = ?)`,
		scope.TenantID(), id, id,
	); err != nil {
		return false, fmt.Errorf("cascade delete relations: %w", err)
	}

	if _, err := scope.Tx().ExecContext(ctx, `
		DELETE FROM observations WHERE tenant_id = ? AND entity_id = ?`,
		scope.TenantID(), id,
	); err != nil {
		return false, fmt.Errorf("cascade delete observations: %w", err)
	}

	return true, nil
}
