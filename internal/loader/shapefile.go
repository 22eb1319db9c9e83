// Package loader ingests source datasets (shapefiles, spreadsheets) into
// feature collections and persists them through the store.
package loader

import (
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/japanese"

	"github.com/AeroToyota-Develop/Urban-structure-analysis/internal/model"
)

// ReadShapefile reads a shapefile into a feature collection. DBF attribute
// values that are not valid UTF-8 are decoded as Shift-JIS, which is what
// the Japanese national land survey distributions use.
func ReadShapefile(shpPath string, srid int) (*model.Collection, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = decodeDBFString(strings.TrimRight(f.String(), "\x00"))
	}

	name := strings.TrimSuffix(filepath.Base(shpPath), filepath.Ext(shpPath))
	col := model.NewCollection(name, srid)
	var skipped int

	for reader.Next() {
		fid, shape := reader.Shape()

		g := shapeToGeom(shape, srid)
		if g == nil {
			skipped++
			continue
		}

		feat := model.NewFeature(g)
		feat.ID = strconv.Itoa(fid)
		for i, fname := range names {
			val := strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
			if val == "" {
				continue
			}
			feat.Set(fname, decodeDBFString(val))
		}
		col.Append(feat)
	}

	if skipped > 0 {
		zap.L().Warn("loader: skipped shapefile records",
			zap.String("file", shpPath),
			zap.Int("skipped", skipped),
		)
	}

	return col, nil
}

// decodeDBFString returns s decoded from Shift-JIS when it is not already
// valid UTF-8.
func decodeDBFString(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	decoded, err := japanese.ShiftJIS.NewDecoder().String(s)
	if err != nil {
		return s
	}
	return decoded
}

// shapeToGeom converts a go-shp geometry to go-geom. Returns nil for nil or
// unsupported shapes.
func shapeToGeom(shape shp.Shape, srid int) geom.T {
	switch s := shape.(type) {
	case *shp.Point:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y}).SetSRID(srid)

	case *shp.PointZ:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y}).SetSRID(srid)

	case *shp.PolyLine:
		return polyLineToMultiLineString(s, srid)

	case *shp.Polygon:
		return polygonToMultiPolygon(s, srid)

	default:
		return nil
	}
}

// polyLineToMultiLineString converts a shapefile PolyLine to a geom.MultiLineString.
func polyLineToMultiLineString(pl *shp.PolyLine, srid int) geom.T {
	if pl == nil || pl.NumParts == 0 || len(pl.Points) == 0 {
		return nil
	}

	mls := geom.NewMultiLineString(geom.XY).SetSRID(srid)

	for i := int32(0); i < pl.NumParts; i++ {
		start, end := partRange(pl.Parts, i, pl.NumParts, len(pl.Points))

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, pl.Points[j].X, pl.Points[j].Y)
		}

		ls := geom.NewLineStringFlat(geom.XY, flat)
		if err := mls.Push(ls); err != nil {
			zap.L().Debug("loader: skipping malformed linestring part", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if mls.NumLineStrings() == 0 {
		return nil
	}
	return mls
}

// polygonToMultiPolygon converts a shapefile Polygon to a geom.MultiPolygon.
// Every part becomes its own single-ring polygon; ring nesting from the
// source is not reconstructed.
func polygonToMultiPolygon(p *shp.Polygon, srid int) geom.T {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(srid)

	for i := int32(0); i < p.NumParts; i++ {
		start, end := partRange(p.Parts, i, p.NumParts, len(p.Points))

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		ring := geom.NewLinearRingFlat(geom.XY, flat)
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(ring); err != nil {
			zap.L().Debug("loader: skipping malformed polygon ring", zap.Int32("part", i), zap.Error(err))
			continue
		}

		if err := mp.Push(poly); err != nil {
			zap.L().Debug("loader: skipping malformed polygon part", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

// partRange returns the [start, end) point indices of part i.
func partRange(parts []int32, i, numParts int32, numPoints int) (int32, int32) {
	start := parts[i]
	if i+1 < numParts {
		return start, parts[i+1]
	}
	return start, int32(numPoints)
}

// FindShapefiles walks dir recursively and returns every .shp path found.
func FindShapefiles(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".shp") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "loader: scan %s", dir)
	}
	return paths, nil
}
