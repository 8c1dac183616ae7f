package graphstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/memoryd/internal/tenant"
)

func TestCreateRelation(t *testing.T) {
	store, guard, _ := testStore(t)

	ada := seedEntity(t, store, guard, "u1", "person", "Ada")
	grace := seedEntity(t, store, guard, "u1", "person", "Grace")

	t.Run("strength defaults to 1", func(t *testing.T) {
		inScope(t, guard, "u1", func(ctx context.Context, scope *tenant.Scope) error {
			r, err := store.CreateRelation(ctx, scope, CreateRelationParams{
				FromEntityID: ada.ID, Predicate: "knows", ToEntityID: grace.ID,
			})
			require.NoError(t, err)
			assert.Equal(t, 1.0, r.Strength)
			return nil
		})
	})

	t.Run("explicit strength is kept", func(t *testing.T) {
		inScope(t, guard, "u1", func(ctx context.Context, scope *tenant.Scope) error {
			r, err := store.CreateRelation(ctx, scope, CreateRelationParams{
				FromEntityID: ada.ID, Predicate: "likes", ToEntityID: grace.ID,
				Strength: floatPtr(0.25),
			})
			require.NoError(t, err)
			assert.Equal(t, 0.25, r.Strength)
			return nil
		})
	})

	t.Run("strength outside range rejected not clamped", func(t *testing.T) {
		inScope(t, guard, "u1", func(ctx context.Context, scope *tenant.Scope) error {
			for _, strength := range []float64{-0.1, 1.5} {
				_, err := store.CreateRelation(ctx, scope, CreateRelationParams{
					FromEntityID: ada.ID, Predicate: "knows", ToEntityID: grace.ID,
					Strength: floatPtr(strength),
				})
				assert.ErrorIs(t, err, ErrStrengthRange)
			}
			return nil
		})
	})

	t.Run("missing fields", func(t *testing.T) {
		inScope(t, guard, "u1", func(ctx context.Context, scope *tenant.Scope) error {
			_, err := store.CreateRelation(ctx, scope, CreateRelationParams{Predicate: "knows", ToEntityID: grace.ID})
			assert.ErrorIs(t, err, ErrMissingField)
			_, err = store.CreateRelation(ctx, scope, CreateRelationParams{FromEntityID: ada.ID, ToEntityID: grace.ID})
			assert.ErrorIs(t, err, ErrMissingField)
			_, err = store.CreateRelation(ctx, scope, CreateRelationParams{FromEntityID: ada.ID, Predicate: "knows"})
			assert.ErrorIs(t, err, ErrMissingField)
			return nil
		})
	})
}

func TestListRelations(t *testing.T) {
	store, guard, _ := testStore(t)

	ada := seedEntity(t, store, guard, "u1", "person", "Ada")
	grace := seedEntity(t, store, guard, "u1", "person", "Grace")
	proj := seedEntity(t, store, guard, "u1", "project", "memoryd")

	inScope(t, guard, "u1", func(ctx context.Context, scope *tenant.Scope) error {
		_, err := store.CreateRelation(ctx, scope, CreateRelationParams{
			FromEntityID: ada.ID, Predicate: "knows", ToEntityID: grace.ID, Strength: floatPtr(0.9),
		})
		require.NoError(t, err)
		_, err = store.CreateRelation(ctx, scope, CreateRelationParams{
			FromEntityID: grace.ID, Predicate: "created", ToEntityID: proj.ID, Strength: floatPtr(0.4),
		})
		require.NoError(t, err)
		_, err = store.CreateRelation(ctx, scope, CreateRelationParams{
			FromEntityID: ada.ID, Predicate: "uses", ToEntityID: proj.ID, Strength: floatPtr(0.6),
		})
		return err
	})

	t.Run("either endpoint filter", func(t *testing.T) {
		inScope(t, guard, "u1", func(ctx context.Context, scope *tenant.Scope) error {
			got, total, err := store.ListRelations(ctx, scope, RelationFilter{EntityID: grace.ID}, Page{})
			require.NoError(t, err)
			assert.Equal(t, 2, total)
			assert.Len(t, got, 2)
			return nil
		})
	})

	t.Run("directional filters", func(t *testing.T) {
		inScope(t, guard, "u1", func(ctx context.Context, scope *tenant.Scope) error {
			got, _, err := store.ListRelations(ctx, scope, RelationFilter{FromEntityID: ada.ID}, Page{})
			require.NoError(t, err)
			assert.Len(t, got, 2)

			got, _, err = store.ListRelations(ctx, scope, RelationFilter{ToEntityID: proj.ID}, Page{})
			require.NoError(t, err)
			assert.Len(t, got, 2)
			return nil
		})
	})

	t.Run("sort by strength", func(t *testing.T) {
		inScope(t, guard, "u1", func(ctx context.Context, scope *tenant.Scope) error {
			got, _, err := store.ListRelations(ctx, scope, RelationFilter{}, Page{SortKey: "strength", Desc: true})
			require.NoError(t, err)
			require.Len(t, got, 3)
			assert.Equal(t, 0.9, got[0].Strength)
			assert.Equal(t, 0.4, got[2].Strength)
			return nil
		})
	})

	t.Run("empty for other tenant", func(t *testing.T) {
		inScope(t, guard, "u2", func(ctx context.Context, scope *tenant.Scope) error {
			got, total, err := store.ListRelations(ctx, scope, RelationFilter{}, Page{})
			require.NoError(t, err)
			assert.Zero(t, total)
			assert.Empty(t, got)
			return nil
		})
	})
}

func TestUpdateRelation(t *testing.T) {
	store, guard, _ := testStore(t)

	ada := seedEntity(t, store, guard, "u1", "person", "Ada")
	grace := seedEntity(t, store, guard, "u1", "person", "Grace")

	var relID string
	inScope(t, guard, "u1", func(ctx context.Context, scope *tenant.Scope) error {
		r, err := store.CreateRelation(ctx, scope, CreateRelationParams{
			FromEntityID: ada.ID, Predicate: "knows", ToEntityID: grace.ID,
		})
		require.NoError(t, err)
		relID = r.ID
		return nil
	})

	t.Run("strength range enforced on update", func(t *testing.T) {
		inScope(t, guard, "u1", func(ctx context.Context, scope *tenant.Scope) error {
			_, err := store.UpdateRelation(ctx, scope, relID, RelationUpdate{Strength: floatPtr(2)})
			assert.ErrorIs(t, err, ErrStrengthRange)
			return nil
		})
	})

	t.Run("partial update", func(t *testing.T) {
		inScope(t, guard, "u1", func(ctx context.Context, scope *tenant.Scope) error {
			got, err := store.UpdateRelation(ctx, scope, relID, RelationUpdate{
				Strength:  floatPtr(0.5),
				UpdatedBy: Attribution{UserID: "u1"},
			})
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, 0.5, got.Strength)
			assert.Equal(t, "knows", got.Predicate)
			return nil
		})
	})

	t.Run("absent id yields nil, nil", func(t *testing.T) {
		inScope(t, guard, "u1", func(ctx context.Context, scope *tenant.Scope) error {
			got, err := store.UpdateRelation(ctx, scope, "no-such-id", RelationUpdate{Strength: floatPtr(0.5)})
			require.NoError(t, err)
			assert.Nil(t, got)
			return nil
		})
	})
}

func TestDeleteRelation(t *testing.T) {
	store, guard, _ := testStore(t)

	ada := seedEntity(t, store, guard, "u1", "person", "Ada")
	grace := seedEntity(t, store, guard, "u1", "person", "Grace")

	var relID string
	inScope(t, guard, "u1", func(ctx context.Context, scope *tenant.Scope) error {
		r, err := store.CreateRelation(ctx, scope, CreateRelationParams{
			FromEntityID: ada.ID, Predicate: "knows", ToEntityID: grace.ID,
		})
		require.NoError(t, err)
		relID = r.ID
		return nil
	})

	t.Run("invisible to other tenant", func(t *testing.T) {
		inScope(t, guard, "u2", func(ctx context.Context, scope *tenant.Scope) error {
			deleted, err := store.DeleteRelation(ctx, scope, relID)
			require.NoError(t, err)
			assert.False(t, deleted)
			return nil
		})
	})

	t.Run("delete leaves endpoints", func(t *testing.T) {
		inScope(t, guard, "u1", func(ctx context.Context, scope *tenant.Scope) error {
			deleted, err := store.DeleteRelation(ctx, scope, relID)
			require.NoError(t, err)
			assert.True(t, deleted)

			e, err := store.GetEntity(ctx, scope, ada.ID)
			require.NoError(t, err)
			assert.NotNil(t, e)
			return nil
		})
	})
}
