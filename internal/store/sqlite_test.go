package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/AeroToyota-Develop/Urban-structure-analysis/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func sampleCollection() *model.Collection {
	c := model.NewCollection("shelters", 3857)

	f := model.NewFeature(geom.NewPointFlat(geom.XY, []float64{15500000, 4250000}))
	f.ID = "1"
	f.Set("name", "第一避難所")
	f.Set("scale", -1)
	c.Append(f)

	g := model.NewFeature(geom.NewLineStringFlat(geom.XY, []float64{0, 0, 100, 0}))
	g.ID = "2"
	g.Set("capacity", 120)
	c.Append(g)

	return c
}

func TestSQLiteStore_SaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveLayer(ctx, sampleCollection(), "避難施設"))

	got, err := s.LoadLayer(ctx, "shelters")
	require.NoError(t, err)
	require.Equal(t, 2, got.Len())
	assert.Equal(t, 3857, got.SRID)

	first := got.Features[0]
	assert.Equal(t, "1", first.ID)
	assert.Equal(t, "第一避難所", first.String("name"))
	assert.Equal(t, -1, first.Int("scale"))

	pt, ok := first.Geom.(*geom.Point)
	require.True(t, ok)
	assert.Equal(t, 15500000.0, pt.X())
}

func TestSQLiteStore_SaveLayerReplacesExisting(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveLayer(ctx, sampleCollection(), ""))

	smaller := model.NewCollection("shelters", 3857)
	smaller.Append(model.NewFeature(geom.NewPointFlat(geom.XY, []float64{0, 0})))
	require.NoError(t, s.SaveLayer(ctx, smaller, ""))

	got, err := s.LoadLayer(ctx, "shelters")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Len())
}

func TestSQLiteStore_LoadLayerNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.LoadLayer(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrLayerNotFound))
}

func TestSQLiteStore_DeleteLayer(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveLayer(ctx, sampleCollection(), ""))
	require.NoError(t, s.DeleteLayer(ctx, "shelters"))

	_, err := s.LoadLayer(ctx, "shelters")
	assert.True(t, eris.Is(err, ErrLayerNotFound))

	err = s.DeleteLayer(ctx, "shelters")
	assert.True(t, eris.Is(err, ErrLayerNotFound))
}

func TestSQLiteStore_ListLayers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveLayer(ctx, sampleCollection(), "避難施設"))

	infos, err := s.ListLayers(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "shelters", infos[0].Name)
	assert.Equal(t, "避難施設", infos[0].Alias)
	assert.Equal(t, 2, infos[0].FeatureCount)
}

func TestSQLiteStore_Runs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "generate")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, RunStatusRunning, run.Status)

	require.NoError(t, s.FinishRun(ctx, run.ID, RunStatusComplete))
}

func TestSQLiteStore_NilGeometryFeature(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c := model.NewCollection("attrs_only", 0)
	f := model.NewFeature(nil)
	f.Set("year", "2024")
	c.Append(f)

	require.NoError(t, s.SaveLayer(ctx, c, ""))

	got, err := s.LoadLayer(ctx, "attrs_only")
	require.NoError(t, err)
	require.Equal(t, 1, got.Len())
	assert.Nil(t, got.Features[0].Geom)
	assert.Equal(t, "2024", got.Features[0].String("year"))
}
