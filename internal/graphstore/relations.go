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

var relationSortKeys = map[string]string{
	"predicate":  "predicate",
	"strength":   "strength",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

const relationColumns = `id, tenant_id, from_entity_id, predicate, to_entity_id, strength, metadata,
	created_by_user, created_by_assistant_name, created_by_assistant_type,
	updated_by_user, updated_by_assistant_name, updated_by_assistant_type,
	created_at, updated_at`

func scanRelation(row rowScanner) (*RelationRecord, error) {
	var r RelationRecord
	var createdAt, updatedAt string
	err := row.Scan(
		&r.ID, &r.TenantID, &r.FromEntityID, &r.Predicate, &r.ToEntityID, &r.Strength, &r.Metadata,
		&r.CreatedBy.UserID, &r.CreatedBy.AssistantName, &r.CreatedBy.AssistantType,
		&r.UpdatedBy.UserID, &r.UpdatedBy.AssistantName, &r.UpdatedBy.AssistantType,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.CreatedAt = decodeTime(createdAt)
	r.UpdatedAt = decodeTime(updatedAt)
	return &r, nil
}

// CreateRelation persists a new relation. Strength defaults to 1.0 when
// omitted and is rejected (not clamped) outside [0,1]. Endpoint existence is
// the service layer's concern; same-tenant endpoint ownership is guaranteed
// by the tenant predicate on every endpoint lookup.
func (s *Store) CreateRelation(ctx context.Context, scope *tenant.Scope, p CreateRelationParams) (*RelationRecord, error) {
	if p.FromEntityID == "" {
		return nil, fmt.Errorf("%w: from_entity_id", ErrMissingField)
	}
	if p.ToEntityID == "" {
		return nil, fmt.Errorf("%w: to_entity_id", ErrMissingField)
	}
	if p.Predicate == "" {
		return nil, fmt.Errorf("%w: predicate", ErrMissingField)
	}

	strength := 1.0
	if p.Strength != nil {
		strength = *p.Strength
	}
	if strength < 0 || strength > 1 {
		return nil, fmt.Errorf("%w: got %g", ErrStrengthRange, strength)
	}

	now := time.Now().UTC()
	r := &RelationRecord{
		ID:           uuid.New().String(),
		TenantID:     scope.TenantID(),
		FromEntityID: p.FromEntityID,
		Predicate:    p.Predicate,
		ToEntityID:   p.ToEntityID,
		Strength:     strength,
		Metadata:     defaultMetadata(p.Metadata),
		CreatedBy:    p.CreatedBy,
		UpdatedBy:    p.CreatedBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err := scope.Tx().ExecContext(ctx, `
		INSERT INTO relations (`+relationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.TenantID, r.FromEntityID, r.Predicate, r.ToEntityID, r.Strength, r.Metadata,
		r.CreatedBy.UserID, r.CreatedBy.AssistantName, r.CreatedBy.AssistantType,
		r.UpdatedBy.UserID, r.UpdatedBy.AssistantName, r.UpdatedBy.AssistantType,
		encodeTime(r.CreatedAt), encodeTime(r.UpdatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert relation: %w", err)
	}
	return r, nil
}

// GetRelation returns the relation with the given id within the active
// tenant, or (nil, nil) if absent.
func (s *Store) GetRelation(ctx context.Context, scope *tenant.Scope, id string) (*RelationRecord, error) {
	row := scope.Tx().QueryRowContext(ctx, `
		SELECT `+relationColumns+` FROM relations
		WHERE tenant_id = ? AND id = ?`,
		scope.TenantID(), id,
	)
	r, err := scanRelation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get relation: %w", err)
	}
	return r, nil
}

func relationWhere(scope *tenant.Scope, f RelationFilter) (string, []any) {
	where := " WHERE tenant_id = ?"
	args := []any{scope.TenantID()}

	if f.Predicate != "" {
		where += " AND predicate = ?"
		args = append(args, f.Predicate)
	}
	if f.EntityID != "" {
		where += " AND (from_entity_id = ? OR to_entity_id = ?)"
		args = append(args, f.EntityID, f.EntityID)
	}
	if f.FromEntityID != "" {
		where += " AND from_entity_id = ?"
		args = append(args, f.FromEntityID)
	}
	if f.ToEntityID != "" {
		where += " AND to_entity_id = ?"
		args = append(args, f.ToEntityID)
	}
	if f.CreatedByUser != "" {
		where += " AND created_by_user = ?"
		args = append(args, f.CreatedByUser)
	}
	return where, args
}

// ListRelations returns one page of relations plus the independent total.
func (s *Store) ListRelations(ctx context.Context, scope *tenant.Scope, f RelationFilter, page Page) ([]RelationRecord, int, error) {
	page = page.normalize("created_at")
	order, err := orderClause(page, relationSortKeys)
	if err != nil {
		return nil, 0, err
	}

	where, args := relationWhere(scope, f)

	var total int
	if err := scope.Tx().QueryRowContext(ctx, "SELECT COUNT(*) FROM relations"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count relations: %w", err)
	}

	rows, err := scope.Tx().QueryContext(ctx,
		"SELECT "+relationColumns+" FROM relations"+where+order,
		append(args, page.Limit, page.Offset)...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list relations: %w", err)
	}
	defer rows.Close()

	var out []RelationRecord
	for rows.Next() {
		r, err := scanRelation(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan relation: %w", err)
		}
		out = append(out, *r)
	}
	return out, total, rows.Err()
}

// UpdateRelation applies a partial update; returns (nil, nil) when the id
// does not exist within the active tenant. Strength is rejected outside [0,1]
// on update exactly as on create.
func (s *Store) UpdateRelation(ctx context.Context, scope *tenant.Scope, id string, u RelationUpdate) (*RelationRecord, error) {
	set := "updated_by_user = ?, updated_by_assistant_name = ?, updated_by_assistant_type = ?, updated_at = ?"
	args := []any{u.UpdatedBy.UserID, u.UpdatedBy.AssistantName, u.UpdatedBy.AssistantType, encodeTime(time.Now().UTC())}

	if u.Predicate != nil {
		if *u.Predicate == "" {
			return nil, fmt.Errorf("%w: predicate", ErrMissingField)
		}
		set += ", predicate = ?"
		args = append(args, *u.Predicate)
	}
	if u.Strength != nil {
		if *u.Strength < 0 || *u.Strength > 1 {
			return nil, fmt.Errorf("%w: got %g", ErrStrengthRange, *u.Strength)
		}
		set += ", strength = ?"
		args = append(args, *u.Strength)
	}
	if u.Metadata != nil {
		set += ", metadata = ?"
		args = append(args, defaultMetadata(*u.Metadata))
	}

	args = append(args, scope.TenantID(), id)
	res, err := scope.Tx().ExecContext(ctx,
		"UPDATE relations SET "+set+" WHERE tenant_id = ? AND id = ?", args...)
	if err != nil {
		return nil, fmt.Errorf("update relation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update relation rows: %w", err)
	}
	if affected == 0 {
		return nil, nil
	}
	return s.GetRelation(ctx, scope, id)
}

// DeleteRelation removes a single relation. Returns false when the id does
// not exist within the active tenant.
func (s *Store) DeleteRelation(ctx context.Context, scope *tenant.Scope, id string) (bool, error) {
	res, err := scope.Tx().ExecContext(ctx,
		`DELETE FROM relations WHERE tenant_id = ? AND id = ?`, scope.TenantID(), id)
	if err != nil {
		return false, fmt.Errorf("delete relation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete relation rows: %w", err)
	}
	return affected > 0, nil
}
