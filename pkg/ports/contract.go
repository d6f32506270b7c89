package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSnapshotStoreContract runs a suite of tests to verify that a SnapshotStore implementation
// adheres to the defined interface contract.
func RunSnapshotStoreContract(t *testing.T, store SnapshotStore) {
	ctx := context.Background()
	key := "contract-test-" + time.Now().Format("20060102150405")

	sample := domain.NewSnapshot(
		domain.VariableRecord{Name: "gold", Value: domain.Int(42)},
		domain.VariableRecord{Name: "met_guard", Value: domain.Bool(true)},
		domain.VariableRecord{Name: "mood", Value: domain.Float(0.25)},
		domain.VariableRecord{Name: "name", Value: domain.String("Ana")},
		domain.VariableRecord{Name: "inventory", Value: domain.List{
			Items: []domain.ListItem{{Origin: "Items", Name: "sword", Value: 2}},
			Origins: []domain.ListOrigin{{Name: "Items", Items: []domain.ListOriginItem{
				{Name: "key", Value: 1}, {Name: "sword", Value: 2},
			}}},
		}},
	)

	t.Run("Save and Load", func(t *testing.T) {
		err := store.Save(ctx, key, sample)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, key)
		require.NoError(t, err, "Load should not return error")
		assert.True(t, sample.Equal(loaded), "loaded snapshot should match saved one: %v", loaded)
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		next := domain.NewSnapshot(domain.VariableRecord{Name: "gold", Value: domain.Int(7)})
		require.NoError(t, store.Save(ctx, key, next))

		loaded, err := store.Load(ctx, key)
		require.NoError(t, err)
		assert.True(t, next.Equal(loaded))
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+key)
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, key, sample))

		err := store.Delete(ctx, key)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, key)
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound, "Load after Delete should return ErrSnapshotNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := key + "-1"
		id2 := key + "-2"
		require.NoError(t, store.Save(ctx, id1, sample))
		require.NoError(t, store.Save(ctx, id2, sample))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		keys, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, keys, id1)
		assert.Contains(t, keys, id2)
	})
}
