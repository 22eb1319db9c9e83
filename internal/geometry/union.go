package geometry

import (
	"github.com/engelsjk/polygol"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// Union merges polygons into a single (possibly multi-part) polygon using
// martinez boolean clipping. Nil inputs are ignored; an empty input set
// yields an empty MultiPolygon.
func Union(polygons []*geom.Polygon) (*geom.MultiPolygon, error) {
	geoms := make([]polygol.Geom, 0, len(polygons))
	for _, p := range polygons {
		if p == nil || p.NumCoords() == 0 {
			continue
		}
		geoms = append(geoms, toPolygolGeom(p))
	}
	if len(geoms) == 0 {
		return geom.NewMultiPolygon(geom.XY), nil
	}

	merged, err := polygol.Union(geoms[0], geoms[1:]...)
	if err != nil {
		return nil, eris.Wrap(err, "geometry: union")
	}
	return fromPolygolGeom(merged), nil
}

// toPolygolGeom converts a polygon to polygol's multipolygon ring structure.
func toPolygolGeom(p *geom.Polygon) polygol.Geom {
	rings := make([][][]float64, 0, p.NumLinearRings())
	for i := 0; i < p.NumLinearRings(); i++ {
		ring := p.LinearRing(i)
		coords := ring.Coords()
		points := make([][]float64, 0, len(coords))
		for _, c := range coords {
			points = append(points, []float64{c.X(), c.Y()})
		}
		rings = append(rings, points)
	}
	return polygol.Geom{rings}
}

// fromPolygolGeom converts polygol's multipolygon ring structure back into a
// go-geom MultiPolygon.
func fromPolygolGeom(g polygol.Geom) *geom.MultiPolygon {
	mp := geom.NewMultiPolygon(geom.XY)
	for _, polyRings := range g {
		poly := geom.NewPolygon(geom.XY)
		for _, ring := range polyRings {
			if len(ring) < 3 {
				continue
			}
			flat := make([]float64, 0, len(ring)*2)
			for _, pt := range ring {
				if len(pt) < 2 {
					continue
				}
				flat = append(flat, pt[0], pt[1])
			}
			lr := geom.NewLinearRingFlat(geom.XY, flat)
			if err := poly.Push(lr); err != nil {
				continue
			}
		}
		if poly.NumLinearRings() == 0 {
			continue
		}
		if err := mp.Push(poly); err != nil {
			continue
		}
	}
	return mp
}
