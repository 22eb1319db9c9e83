package metrics

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

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

func squareFeature(x0, y0, size float64) *model.Feature {
	return model.NewFeature(geom.NewPolygonFlat(geom.XY, []float64{
		x0, y0,
		x0 + size, y0,
		x0 + size, y0 + size,
		x0, y0 + size,
		x0, y0,
	}, []int{10}))
}

func pointFeature(x, y float64) *model.Feature {
	return model.NewFeature(geom.NewPointFlat(geom.XY, []float64{x, y}))
}

// seedBaseLayers saves a single target zone covering (0,0)-(100,100) and
// three point buildings with two population years.
func seedBaseLayers(t *testing.T, st store.Store) {
	t.Helper()
	ctx := context.Background()

	zones := model.NewCollection("zones", 3857)
	zone := squareFeature(0, 0, 100)
	zone.Set("is_target", 1)
	zone.Set("prefecture_name", "東京都")
	zone.Set("name", "千代田区")
	outside := squareFeature(1000, 1000, 100)
	outside.Set("is_target", 0)
	zones.Append(zone, outside)
	require.NoError(t, st.SaveLayer(ctx, zones, "zones"))

	buildings := model.NewCollection("buildings", 3857)
	b1 := pointFeature(10, 10)
	b1.Set("2015_population", 100.0)
	b1.Set("2020_population", 80.0)
	b2 := pointFeature(50, 50)
	b2.Set("2015_population", 200.0)
	b2.Set("2020_population", 150.0)
	b3 := pointFeature(90, 90)
	b3.Set("2015_population", 300.0)
	b3.Set("2020_population", 250.0)
	// Outside the target zone, must never be counted.
	b4 := pointFeature(1050, 1050)
	b4.Set("2015_population", 9999.0)
	b4.Set("2020_population", 9999.0)
	buildings.Append(b1, b2, b3, b4)
	require.NoError(t, st.SaveLayer(ctx, buildings, "buildings"))
}

func saveSquareLayer(t *testing.T, st store.Store, name string, x0, y0, size float64, attrs map[string]any) {
	t.Helper()
	col := model.NewCollection(name, 3857)
	f := squareFeature(x0, y0, size)
	for k, v := range attrs {
		f.Set(k, v)
	}
	col.Append(f)
	require.NoError(t, st.SaveLayer(context.Background(), col, name))
}
