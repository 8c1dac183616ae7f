package graphstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/memoryd/internal/tenant"
)

func TestCreateEntity(t *testing.T) {
	store, guard, _ := testStore(t)

	t.Run("round trip", func(t *testing.T) {
		inScope(t, guard, "u1", func(ctx context.Context, scope *tenant.Scope) error {
			created, err := store.CreateEntity(ctx, scope, CreateEntityParams{
				EntityType: "person",
				Name:       "Ada",
				Metadata:   `{"role":"engineer"}`,
				CreatedBy:  Attribution{UserID: "u1", AssistantName: "helper", AssistantType: "assistant"},
			})
			require.NoError(t, err)
			require.NotEmpty(t, created.ID)
			assert.Equal(t, "u1", created.TenantID)
			assert.Equal(t, created.CreatedBy, created.UpdatedBy)
			assert.False(t, created.CreatedAt.IsZero())

			got, err := store.GetEntity(ctx, scope, created.ID)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, "Ada", got.Name)
			assert.Equal(t, `{"role":"engineer"}`, got.Metadata)
			return nil
		})
	})

	t.Run("missing fields", func(t *testing.T) {
		inScope(t, guard, "u1", func(ctx context.Context, scope *tenant.Scope) error {
			_, err := store.CreateEntity(ctx, scope, CreateEntityParams{Name: "Ada"})
			assert.ErrorIs(t, err, ErrMissingField)

			_, err = store.CreateEntity(ctx, scope, CreateEntityParams{EntityType: "person"})
			assert.ErrorIs(t, err, ErrMissingField)
			return nil
		})
	})

	t.Run("empty metadata defaults to empty object", func(t *testing.T) {
		inScope(t, guard, "u1", func(ctx context.Context, scope *tenant.Scope) error {
			created, err := store.CreateEntity(ctx, scope, CreateEntityParams{
				EntityType: "person",
				Name:       "Grace",
			})
			require.NoError(t, err)
			assert.Equal(t, "{}", created.Metadata)
			return nil
		})
	})
}

func TestGetEntityTenantIsolation(t *testing.T) {
	store, guard, _ := testStore(t)

	ada := seedEntity(t, store, guard, "u1", "person", "Ada")

	inScope(t, guard, "u2", func(ctx context.Context, scope *tenant.Scope) error {
		got, err := store.GetEntity(ctx, scope, ada.ID)
		require.NoError(t, err)
		assert.Nil(t, got, "entity must be invisible to another tenant")
		return nil
	})
}

func TestListEntities(t *testing.T) {
	store, guard, _ := testStore(t)

	seedEntity(t, store, guard, "u1", "person", "Ada")
	seedEntity(t, store, guard, "u1", "person", "Grace")
	seedEntity(t, store, guard, "u1", "project", "memoryd")
	seedEntity(t, store, guard, "u2", "person", "Mallory")

	t.Run("filter by type", func(t *testing.T) {
		inScope(t, guard, "u1", func(ctx context.Context, scope *tenant.Scope) error {
			got, total, err := store.ListEntities(ctx, scope, EntityFilter{EntityType: "person"}, Page{})
			require.NoError(t, err)
			assert.Equal(t, 2, total)
			assert.Len(t, got, 2)
			return nil
		})
	})

	t.Run("name contains", func(t *testing.T) {
		inScope(t, guard, "u1", func(ctx context.Context, scope *tenant.Scope) error {
			got, total, err := store.ListEntities(ctx, scope, EntityFilter{NameContains: "ra"}, Page{})
			require.NoError(t, err)
			assert.Equal(t, 1, total)
			require.Len(t, got, 1)
			assert.Equal(t, "Grace", got[0].Name)
			return nil
		})
	})

	t.Run("total is independent of page size", func(t *testing.T) {
		inScope(t, guard, "u1", func(ctx context.Context, scope *tenant.Scope) error {
			got, total, err := store.ListEntities(ctx, scope, EntityFilter{}, Page{Limit: 2, SortKey: "name"})
			require.NoError(t, err)
			assert.Equal(t, 3, total)
			assert.Len(t, got, 2)

			rest, total, err := store.ListEntities(ctx, scope, EntityFilter{}, Page{Offset: 2, Limit: 2, SortKey: "name"})
			require.NoError(t, err)
			assert.Equal(t, 3, total)
			assert.Len(t, rest, 1)
			return nil
		})
	})

	t.Run("sort descending", func(t *testing.T) {
		inScope(t, guard, "u1", func(ctx context.Context, scope *tenant.Scope) error {
			got, _, err := store.ListEntities(ctx, scope, EntityFilter{}, Page{SortKey: "name", Desc: true})
			require.NoError(t, err)
			require.Len(t, got, 3)
			assert.Equal(t, "memoryd", got[0].Name)
			assert.Equal(t, "Ada", got[2].Name)
			return nil
		})
	})

	t.Run("unknown sort key rejected", func(t *testing.T) {
		inScope(t, guard, "u1", func(ctx context.Context, scope *tenant.Scope) error {
			_, _, err := store.ListEntities(ctx, scope, EntityFilter{}, Page{SortKey: "name; DROP TABLE entities"})
			assert.ErrorIs(t, err, ErrInvalidSortKey)
			return nil
		})
	})

	t.Run("other tenant sees only its own", func(t *testing.T) {
		inScope(t, guard, "u2", func(ctx context.Context, scope *tenant.Scope) error {
			got, total, err := store.ListEntities(ctx, scope, EntityFilter{}, Page{})
			require.NoError(t, err)
			assert.Equal(t, 1, total)
			require.Len(t, got, 1)
			assert.Equal(t, "Mallory", got[0].Name)
			return nil
		})
	})
}

func TestListEntitiesWithCounts(t *testing.T) {
	store, guard, _ := testStore(t)

	ada := seedEntity(t, store, guard, "u1", "person", "Ada")
	grace := seedEntity(t, store, guard, "u1", "person", "Grace")

	inScope(t, guard, "u1", func(ctx context.Context, scope *tenant.Scope) error {
		_, err := store.CreateRelation(ctx, scope, CreateRelationParams{
			FromEntityID: ada.ID, Predicate: "knows", ToEntityID: grace.ID,
		})
		require.NoError(t, err)
		_, err = store.CreateObservation(ctx, scope, CreateObservationParams{
			EntityID: ada.ID, Content: "Likes testing",
		})
		require.NoError(t, err)
		_, err = store.CreateObservation(ctx, scope, CreateObservationParams{
			EntityID: ada.ID, Content: "Prefers SQLite",
		})
		return err
	})

	inScope(t, guard, "u1", func(ctx context.Context, scope *tenant.Scope) error {
		got, total, err := store.ListEntitiesWithCounts(ctx, scope, EntityFilter{}, Page{SortKey: "name"})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		require.Len(t, got, 2)

		assert.Equal(t, "Ada", got[0].Name)
		assert.Equal(t, 1, got[0].RelationCount)
		assert.Equal(t, 2, got[0].ObservationCount)

		// Grace appears as relation object, so she still counts one relation.
		assert.Equal(t, "Grace", got[1].Name)
		assert.Equal(t, 1, got[1].RelationCount)
		assert.Equal(t, 0, got[1].ObservationCount)
		return nil
	})
}

func TestUpdateEntity(t *testing.T) {
	store, guard, _ := testStore(t)

	ada := seedEntity(t, store, guard, "u1", "person", "Ada")

	t.Run("partial update", func(t *testing.T) {
		inScope(t, guard, "u1", func(ctx context.Context, scope *tenant.Scope) error {
			got, err := store.UpdateEntity(ctx, scope, ada.ID, EntityUpdate{
				Name:      strPtr("Ada Lovelace"),
				UpdatedBy: Attribution{UserID: "u1", AssistantName: "editor"},
			})
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, "Ada Lovelace", got.Name)
			assert.Equal(t, "person", got.EntityType, "unspecified field must be untouched")
			assert.Equal(t, "editor", got.UpdatedBy.AssistantName)
			assert.Equal(t, ada.CreatedBy, got.CreatedBy)
			return nil
		})
	})

	t.Run("absent id yields nil, nil", func(t *testing.T) {
		inScope(t, guard, "u1", func(ctx context.Context, scope *tenant.Scope) error {
			got, err := store.UpdateEntity(ctx, scope, "no-such-id", EntityUpdate{Name: strPtr("x")})
			require.NoError(t, err)
			assert.Nil(t, got)
			return nil
		})
	})

	t.Run("cannot update across tenants", func(t *testing.T) {
		inScope(t, guard, "u2", func(ctx context.Context, scope *tenant.Scope) error {
			got, err := store.UpdateEntity(ctx, scope, ada.ID, EntityUpdate{Name: strPtr("Hijacked")})
			require.NoError(t, err)
			assert.Nil(t, got)
			return nil
		})
		inScope(t, guard, "u1", func(ctx context.Context, scope *tenant.Scope) error {
			got, err := store.GetEntity(ctx, scope, ada.ID)
			require.NoError(t, err)
			assert.Equal(t, "Ada Lovelace", got.Name)
			return nil
		})
	})

	t.Run("empty name rejected", func(t *testing.T) {
		inScope(t, guard, "u1", func(ctx context.Context, scope *tenant.Scope) error {
			_, err := store.UpdateEntity(ctx, scope, ada.ID, EntityUpdate{Name: strPtr("")})
			assert.ErrorIs(t, err, ErrMissingField)
			return nil
		})
	})
}

func TestDeleteEntityCascades(t *testing.T) {
	store, guard, _ := testStore(t)

	ada := seedEntity(t, store, guard, "u1", "person", "Ada")
	grace := seedEntity(t, store, guard, "u1", "person", "Grace")

	var inbound, outbound, obsID string
	inScope(t, guard, "u1", func(ctx context.Context, scope *tenant.Scope) error {
		out, err := store.CreateRelation(ctx, scope, CreateRelationParams{
			FromEntityID: ada.ID, Predicate: "knows", ToEntityID: grace.ID,
		})
		require.NoError(t, err)
		outbound = out.ID

		in, err := store.CreateRelation(ctx, scope, CreateRelationParams{
			FromEntityID: grace.ID, Predicate: "works_with", ToEntityID: ada.ID,
		})
		require.NoError(t, err)
		inbound = in.ID

		obs, err := store.CreateObservation(ctx, scope, CreateObservationParams{
			EntityID: ada.ID, Content: "Likes testing",
		})
		require.NoError(t, err)
		obsID = obs.ID
		return nil
	})

	inScope(t, guard, "u1", func(ctx context.Context, scope *tenant.Scope) error {
		deleted, err := store.DeleteEntity(ctx, scope, ada.ID)
		require.NoError(t, err)
		assert.True(t, deleted)
		return nil
	})

	inScope(t, guard, "u1", func(ctx context.Context, scope *tenant.Scope) error {
		for _, id := range []string{outbound, inbound} {
			r, err := store.GetRelation(ctx, scope, id)
			require.NoError(t, err)
			assert.Nil(t, r, "relation touching the deleted entity must be gone")
		}
		o, err := store.GetObservation(ctx, scope, obsID)
		require.NoError(t, err)
		assert.Nil(t, o)

		g, err := store.GetEntity(ctx, scope, grace.ID)
		require.NoError(t, err)
		assert.NotNil(t, g, "the other endpoint survives")
		return nil
	})

	t.Run("absent id returns false", func(t *testing.T) {
		inScope(t, guard, "u1", func(ctx context.Context, scope *tenant.Scope) error {
			deleted, err := store.DeleteEntity(ctx, scope, ada.ID)
			require.NoError(t, err)
			assert.False(t, deleted)
			return nil
		})
	})
}
