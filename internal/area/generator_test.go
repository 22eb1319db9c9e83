package area

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/AeroToyota-Develop/Urban-structure-analysis/internal/config"
	"github.com/AeroToyota-Develop/Urban-structure-analysis/internal/model"
	"github.com/AeroToyota-Develop/Urban-structure-analysis/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testThresholds() config.ThresholdsConfig {
	return config.ThresholdsConfig{
		RailwayMeters: 800,
		BusMeters:     300,
		ShelterMeters: 1000,
	}
}

func pointFeature(x, y float64) *model.Feature {
	return model.NewFeature(geom.NewPointFlat(geom.XY, []float64{x, y}))
}

func lineFeature(points ...float64) *model.Feature {
	return model.NewFeature(geom.NewLineStringFlat(geom.XY, points))
}

func TestGenerateStationCoverage(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	stations := model.NewCollection("railway_stations", 3857)
	stations.Append(pointFeature(0, 0), pointFeature(5000, 0))
	require.NoError(t, st.SaveLayer(ctx, stations, "stations"))

	gen := NewGenerator(st, testThresholds())
	require.NoError(t, gen.GenerateStationCoverage(ctx))

	buffers, err := st.LoadLayer(ctx, "railway_station_buffers")
	require.NoError(t, err)
	require.Equal(t, 2, buffers.Len())

	f := buffers.Features[0]
	assert.InDelta(t, 800, f.Float("buffer_distance"), 0.001)

	b := f.Bounds()
	assert.InDelta(t, 1600, b.Max(0)-b.Min(0), 1)
}

func TestGenerateBusStopCoverage(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	stops := model.NewCollection("bus_stops", 3857)
	stops.Append(pointFeature(100, 100))
	require.NoError(t, st.SaveLayer(ctx, stops, "stops"))

	gen := NewGenerator(st, testThresholds())
	require.NoError(t, gen.GenerateBusStopCoverage(ctx))

	buffers, err := st.LoadLayer(ctx, "bus_stop_buffers")
	require.NoError(t, err)
	require.Equal(t, 1, buffers.Len())
	assert.InDelta(t, 300, buffers.Features[0].Float("buffer_distance"), 0.001)
}

func TestGenerateShelterAreas(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	shelters := model.NewCollection("shelters", 3857)
	s := pointFeature(0, 5)
	s.Set("code", "S001")
	s.Set("scale", 2)
	shelters.Append(s)
	require.NoError(t, st.SaveLayer(ctx, shelters, "shelters"))

	roads := model.NewCollection("roads", 3857)
	roads.Append(
		lineFeature(0, 0, 400, 0),
		lineFeature(400, 0, 800, 0),
	)
	require.NoError(t, st.SaveLayer(ctx, roads, "roads"))

	gen := NewGenerator(st, testThresholds())
	require.NoError(t, gen.GenerateShelterAreas(ctx))

	buffers, err := st.LoadLayer(ctx, "shelter_buffers")
	require.NoError(t, err)
	require.Greater(t, buffers.Len(), 0)

	for _, f := range buffers.Features {
		assert.Equal(t, "S001", f.String("shelter_id"))
		_, ok := f.Geom.(*geom.Polygon)
		assert.True(t, ok)
	}
}

func TestGenerateShelterAreas_NoNearbyRoads(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	shelters := model.NewCollection("shelters", 3857)
	s := pointFeature(0, 0)
	s.Set("code", "S001")
	shelters.Append(s)
	require.NoError(t, st.SaveLayer(ctx, shelters, "shelters"))

	roads := model.NewCollection("roads", 3857)
	// Far outside the walking budget around the shelter.
	roads.Append(lineFeature(50000, 50000, 51000, 50000))
	require.NoError(t, st.SaveLayer(ctx, roads, "roads"))

	gen := NewGenerator(st, testThresholds())
	require.NoError(t, gen.GenerateShelterAreas(ctx))

	buffers, err := st.LoadLayer(ctx, "shelter_buffers")
	require.NoError(t, err)
	assert.Equal(t, 0, buffers.Len())
}

func TestGenerateShelterAreas_Cancelled(t *testing.T) {
	st := newTestStore(t)

	shelters := model.NewCollection("shelters", 3857)
	shelters.Append(pointFeature(0, 0))
	require.NoError(t, st.SaveLayer(context.Background(), shelters, "shelters"))

	roads := model.NewCollection("roads", 3857)
	roads.Append(lineFeature(0, 0, 100, 0))
	require.NoError(t, st.SaveLayer(context.Background(), roads, "roads"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gen := NewGenerator(st, testThresholds())
	err := gen.GenerateShelterAreas(ctx)
	require.Error(t, err)
}

func TestGenerateAll_MissingLayersSkipped(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	gen := NewGenerator(st, testThresholds())
	require.NoError(t, gen.GenerateAll(ctx))
}
