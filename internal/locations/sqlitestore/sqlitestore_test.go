package sqlitestore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mine-and-die/agent/internal/geom"
	"mine-and-die/agent/internal/locations"
)

func TestLoadUnknownMap(t *testing.T) {
	ctx := context.Background()
	b, err := Open(ctx, ":memory:")
	require.NoError(t, err)
	defer b.Close()

	_, err = b.Load(ctx, 42)
	assert.ErrorIs(t, err, locations.ErrUnknownMap)
}

func TestSaveReplacesAndPreservesOrder(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "locations.db")
	b, err := Open(ctx, path)
	require.NoError(t, err)

	first := []locations.Location{
		{Kind: locations.KindHerb, Position: geom.Vec3{X: 1, Y: 2, Z: 3}, Note: "Peacebloom"},
		{Kind: locations.KindOre, Position: geom.Vec3{X: -4}},
	}
	require.NoError(t, b.Save(ctx, 7, first))
	second := append(first, locations.Location{Kind: locations.KindHotspot, Position: geom.Vec3{Y: 9}})
	require.NoError(t, b.Save(ctx, 7, second))
	require.NoError(t, b.Close())

	reopened, err := Open(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Load(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, second, got)
}

func TestSaveEmptyMapIsKnown(t *testing.T) {
	ctx := context.Background()
	b, err := Open(ctx, ":memory:")
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, b.Save(ctx, 3, nil))
	got, err := b.Load(ctx, 3)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStoreRoundTripsThroughSQLite(t *testing.T) {
	ctx := context.Background()
	b, err := Open(ctx, ":memory:")
	require.NoError(t, err)
	defer b.Close()

	store := locations.NewStore(locations.Config{}, b, nil, nil)
	added, err := store.Add(ctx, 1, locations.Location{Kind: locations.KindOre, Position: geom.Vec3{X: 5}})
	require.NoError(t, err)
	require.True(t, added)
	require.NoError(t, store.Flush(ctx))

	fresh := locations.NewStore(locations.Config{}, b, nil, nil)
	locs, err := fresh.Locations(ctx, 1)
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, locations.KindOre, locs[0].Kind)
}
