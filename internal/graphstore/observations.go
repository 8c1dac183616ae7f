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

var observationSortKeys = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"source":     "source",
}

const observationColumns = `id, tenant_id, entity_id, content, source, metadata,
	created_by_user, created_by_assistant_name, created_by_assistant_type,
	updated_by_user, updated_by_assistant_name, updated_by_assistant_type,
	created_at, updated_at`

func scanObservation(row rowScanner) (*ObservationRecord, error) {
	var o ObservationRecord
	var createdAt, updatedAt string
	err := row.Scan(
		&o.ID, &o.TenantID, &o.EntityID, &o.Content, &o.Source, &o.Metadata,
		&o.CreatedBy.UserID, &o.CreatedBy.AssistantName, &o.CreatedBy.AssistantType,
		&o.UpdatedBy.UserID, &o.UpdatedBy.AssistantName, &o.UpdatedBy.AssistantType,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.CreatedAt = decodeTime(createdAt)
	o.UpdatedAt = decodeTime(updatedAt)
	return &o, nil
}

// CreateObservation persists a new observation. Owning-entity existence is
// the service layer's concern.
func (s *Store) CreateObservation(ctx context.Context, scope *tenant.Scope, p CreateObservationParams) (*ObservationRecord, error) {
	if p.EntityID == "" {
		return nil, fmt.Errorf("%w: entity_id", ErrMissingField)
	}
	if p.Content == "" {
		return nil, fmt.Errorf("%w: content", ErrMissingField)
	}

	now := time.Now().UTC()
	o := &ObservationRecord{
		ID:        uuid.New().String(),
		TenantID:  scope.TenantID(),
		EntityID:  p.EntityID,
		Content:   p.Content,
		Source:    p.Source,
		Metadata:  defaultMetadata(p.Metadata),
		CreatedBy: p.CreatedBy,
		UpdatedBy: p.CreatedBy,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := scope.Tx().ExecContext(ctx, `
		INSERT INTO observations (`+observationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.TenantID, o.EntityID, o.Content, o.Source, o.Metadata,
		o.CreatedBy.UserID, o.CreatedBy.AssistantName, o.CreatedBy.AssistantType,
		o.UpdatedBy.UserID, o.UpdatedBy.AssistantName, o.UpdatedBy.AssistantType,
		encodeTime(o.CreatedAt), encodeTime(o.UpdatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert observation: %w", err)
	}
	return o, nil
}

// GetObservation returns the observation with the given id within the active
// tenant, or (nil, nil) if absent.
func (s *Store) GetObservation(ctx context.Context, scope *tenant.Scope, id string) (*ObservationRecord, error) {
	row := scope.Tx().QueryRowContext(ctx, `
		SELECT `+observationColumns+` FROM observations
		WHERE tenant_id = ? AND id = ?`,
		scope.TenantID(), id,
	)
	o, err := scanObservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get observation: %w", err)
	}
	return o, nil
}

func observationWhere(scope *tenant.Scope, f ObservationFilter) (string, []any) {
	where := " WHERE tenant_id = ?"
	args := []any{scope.TenantID()}

	if f.EntityID != "" {
		where += " AND entity_id = ?"
		args = append(args, f.EntityID)
	}
	if f.Source != "" {
		where += " AND source = ?"
		args = append(args, f.Source)
	}
	if f.ContentContains != "" {
		where += ` AND content LIKE ? ESCAPE '\'`
		args = append(args, likePattern(f.ContentContains))
	}
	if f.CreatedByUser != "" {
		where += " AND created_by_user = ?"
		args = append(args, f.CreatedByUser)
	}
	return where, args
}

// ListObservations returns one page of observations plus the independent total.
func (s *Store) ListObservations(ctx context.Context, scope *tenant.Scope, f ObservationFilter, page Page) ([]ObservationRecord, int, error) {
	page = page.normalize("created_at")
	order, err := orderClause(page, observationSortKeys)
	if err != nil {
		return nil, 0, err
	}

	where, args := observationWhere(scope, f)

	var total int
	if err := scope.Tx().QueryRowContext(ctx, "SELECT COUNT(*) FROM observations"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count observations: %w", err)
	}

	rows, err := scope.Tx().QueryContext(ctx,
		"SELECT "+observationColumns+" FROM observations"+where+order,
		append(args, page.Limit, page.Offset)...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list observations: %w", err)
	}
	defer rows.Close()

	var out []ObservationRecord
	for rows.Next() {
		o, err := scanObservation(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan observation: %w", err)
		}
		out = append(out, *o)
	}
	return out, total, rows.Err()
}

// UpdateObservation applies a partial update; returns (nil, nil) when the id
// does not exist within the active tenant.
func (s *Store) UpdateObservation(ctx context.Context, scope *tenant.Scope, id string, u ObservationUpdate) (*ObservationRecord, error) {
	set := "updated_by_user = ?, updated_by_assistant_name = ?, updated_by_assistant_type = ?, updated_at = ?"
	args := []any{u.UpdatedBy.UserID, u.UpdatedBy.AssistantName, u.UpdatedBy.AssistantType, encodeTime(time.Now().UTC())}

	if u.Content != nil {
		if *u.Content == "" {
			return nil, fmt.Errorf("%w: content", ErrMissingField)
		}
		set += ", content = ?"
		args = append(args, *u.Content)
	}
	if u.Source != nil {
		set += ", source = ?"
		args = append(args, *u.Source)
	}
	if u.Metadata != nil {
		set += ", metadata = ?"
		args = append(args, defaultMetadata(*u.Metadata))
	}

	args = append(args, scope.TenantID(), id)
	res, err := scope.Tx().ExecContext(ctx,
		"UPDATE observations SET "+set+" WHERE tenant_id = ? AND id = ?", args...)
	if err != nil {
		return nil, fmt.Errorf("update observation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update observation rows: %w", err)
	}
	if affected == 0 {
		return nil, nil
	}
	return s.GetObservation(ctx, scope, id)
}

// DeleteObservation removes a single observation. Returns false when the id
// does not exist within the active tenant.
func (s *Store) DeleteObservation(ctx context.Context, scope *tenant.Scope, id string) (bool, error) {
	res, err := scope.Tx().ExecContext(ctx,
		`DELETE FROM observations WHERE tenant_id = ? AND id = ?`, scope.TenantID(), id)
	if err != nil {
		return false, fmt.Errorf("delete observation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete observation rows: %w", err)
	}
	return affected > 0, nil
}
