package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
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

// writeRoadShapefile creates a one-record polyline shapefile under
// dir/roads/.
func writeRoadShapefile(t *testing.T, dir string) {
	t.Helper()
	roadDir := filepath.Join(dir, "roads")
	require.NoError(t, os.MkdirAll(roadDir, 0o755))

	w, err := shp.Create(filepath.Join(roadDir, "roads.shp"), shp.POLYLINE)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{shp.StringField("TYPE", 10)}))

	w.Write(shp.NewPolyLine([][]shp.Point{
		{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}},
	}))
	require.NoError(t, w.WriteAttribute(0, 0, "main"))
	w.Close()
}

func TestIngest_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	writeRoadShapefile(t, dir)
	st := newTestStore(t)

	m := &Manifest{Datasets: []Dataset{
		{Folder: "roads", Layer: "roads", Geometry: "line"},
		{Folder: "missing", Layer: "zones", Geometry: "polygon"},
	}}

	err := Ingest(context.Background(), st, m, Options{InputDir: dir, SRID: 3857})
	require.NoError(t, err)

	col, err := st.LoadLayer(context.Background(), "roads")
	require.NoError(t, err)
	require.Equal(t, 1, col.Len())

	f := col.Features[0]
	mls, ok := f.Geom.(*geom.MultiLineString)
	require.True(t, ok)
	assert.Equal(t, 3, mls.LineString(0).NumCoords())
	assert.Equal(t, "main", f.String("TYPE"))

	// The absent folder is skipped, not persisted.
	_, err = st.LoadLayer(context.Background(), "zones")
	assert.Error(t, err)
}

// saveRecordingStore captures the context error seen by SaveLayer.
type saveRecordingStore struct {
	store.Store
	saveCtxErr error
}

func (s *saveRecordingStore) SaveLayer(ctx context.Context, col *model.Collection, alias string) error {
	s.saveCtxErr = ctx.Err()
	return s.Store.SaveLayer(ctx, col, alias)
}

func TestIngest_SavesWithLiveContext(t *testing.T) {
	dir := t.TempDir()
	writeRoadShapefile(t, dir)
	rec := &saveRecordingStore{Store: newTestStore(t)}

	m := &Manifest{Datasets: []Dataset{
		{Folder: "roads", Layer: "roads", Geometry: "line"},
	}}

	err := Ingest(context.Background(), rec, m, Options{InputDir: dir, SRID: 3857})
	require.NoError(t, err)
	assert.NoError(t, rec.saveCtxErr)
}

func TestShapeToGeom_Point(t *testing.T) {
	g := shapeToGeom(&shp.Point{X: 139.69, Y: 35.68}, 4326)
	require.NotNil(t, g)

	p, ok := g.(*geom.Point)
	require.True(t, ok)
	assert.Equal(t, 139.69, p.X())
	assert.Equal(t, 35.68, p.Y())
	assert.Equal(t, 4326, p.SRID())
}

func TestShapeToGeom_PolyLine(t *testing.T) {
	pl := &shp.PolyLine{
		NumParts: 2,
		Parts:    []int32{0, 3},
		Points: []shp.Point{
			{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0},
			{X: 5, Y: 5}, {X: 6, Y: 5},
		},
	}

	g := shapeToGeom(pl, 3857)
	require.NotNil(t, g)

	mls, ok := g.(*geom.MultiLineString)
	require.True(t, ok)
	assert.Equal(t, 2, mls.NumLineStrings())
	assert.Equal(t, 3, mls.LineString(0).NumCoords())
	assert.Equal(t, 2, mls.LineString(1).NumCoords())
}

func TestShapeToGeom_Polygon(t *testing.T) {
	poly := &shp.Polygon{
		NumParts: 1,
		Parts:    []int32{0},
		Points: []shp.Point{
			{X: 0, Y: 0}, {X: 0, Y: 10}, {X: 10, Y: 10}, {X: 10, Y: 0}, {X: 0, Y: 0},
		},
	}

	g := shapeToGeom(poly, 3857)
	require.NotNil(t, g)

	mp, ok := g.(*geom.MultiPolygon)
	require.True(t, ok)
	assert.Equal(t, 1, mp.NumPolygons())
}

func TestShapeToGeom_NilAndUnsupported(t *testing.T) {
	assert.Nil(t, shapeToGeom(nil, 3857))
	assert.Nil(t, shapeToGeom(&shp.PolyLine{}, 3857))
	assert.Nil(t, shapeToGeom(&shp.Polygon{}, 3857))
}

func TestDecodeDBFString_ShiftJIS(t *testing.T) {
	// "東京" in Shift-JIS
	sjis := string([]byte{0x93, 0x8C, 0x8B, 0x9E})
	assert.Equal(t, "東京", decodeDBFString(sjis))
}

func TestDecodeDBFString_UTF8Passthrough(t *testing.T) {
	assert.Equal(t, "避難所", decodeDBFString("避難所"))
	assert.Equal(t, "plain", decodeDBFString("plain"))
}

func TestFindShapefiles(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	for _, name := range []string{
		filepath.Join(dir, "roads.shp"),
		filepath.Join(dir, "roads.dbf"),
		filepath.Join(sub, "more_roads.SHP"),
	} {
		require.NoError(t, os.WriteFile(name, []byte("x"), 0o644))
	}

	paths, err := FindShapefiles(dir)
	require.NoError(t, err)
	assert.Len(t, paths, 2)
}

func TestMapShelters(t *testing.T) {
	col := model.NewCollection("shelters", 3857)
	f := model.NewFeature(geom.NewPointFlat(geom.XY, []float64{0, 0}))
	f.Set("P20_001", "13101001")
	f.Set("P20_002", "中央小学校")
	f.Set("P20_003", "中央区1-1")
	f.Set("P20_005", "500")
	f.Set("P20_006", "2")
	col.Append(f)

	mapped, ok := MapShelters(col)
	require.True(t, ok)
	require.Equal(t, 1, mapped.Len())

	got := mapped.Features[0]
	assert.Equal(t, "13101001", got.String("code"))
	assert.Equal(t, "中央小学校", got.String("name"))
	assert.Equal(t, 500, got.Int("capacity"))
	assert.Equal(t, 2, got.Int("scale"))
	assert.False(t, got.Has("P20_001"))
}

func TestMapShelters_MissingRequiredField(t *testing.T) {
	col := model.NewCollection("shelters", 3857)
	f := model.NewFeature(geom.NewPointFlat(geom.XY, []float64{0, 0}))
	f.Set("P20_002", "名称のみ")
	col.Append(f)

	_, ok := MapShelters(col)
	assert.False(t, ok)
}

func TestMapShelters_ScaleDefaultsToUnknown(t *testing.T) {
	col := model.NewCollection("shelters", 3857)
	f := model.NewFeature(geom.NewPointFlat(geom.XY, []float64{0, 0}))
	f.Set("P20_001", "1")
	f.Set("P20_002", "n")
	col.Append(f)

	mapped, ok := MapShelters(col)
	require.True(t, ok)
	assert.Equal(t, -1, mapped.Features[0].Int("scale"))
}

func TestLoadManifest_Defaults(t *testing.T) {
	m, err := LoadManifest("")
	require.NoError(t, err)
	assert.NotEmpty(t, m.Datasets)

	byLayer := make(map[string]Dataset)
	for _, ds := range m.Datasets {
		byLayer[ds.Layer] = ds
	}
	assert.Equal(t, "shelter", byLayer["shelters"].Kind)
	assert.Contains(t, byLayer["zones"].Required, "is_target")
}

func TestLoadManifest_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	content := `
datasets:
  - folder: custom_roads
    layer: roads
    geometry: line
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	m, err := LoadManifest(path)
	require.NoError(t, err)
	require.Len(t, m.Datasets, 1)
	assert.Equal(t, "custom_roads", m.Datasets[0].Folder)
}

func TestLoadManifest_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	require.NoError(t, os.WriteFile(path, []byte("datasets: []"), 0o644))

	_, err := LoadManifest(path)
	require.Error(t, err)
}

func TestCell_OutOfRange(t *testing.T) {
	rows := [][]string{{"a", "b"}}
	assert.Equal(t, "a", Cell(rows, 0, 0))
	assert.Equal(t, "", Cell(rows, 0, 5))
	assert.Equal(t, "", Cell(rows, 3, 0))
	assert.Equal(t, "", Cell(rows, -1, 0))
}
