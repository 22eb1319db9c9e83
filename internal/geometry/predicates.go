package geometry

import (
	"github.com/twpayne/go-geom"
)

// ContainsPoint reports whether the point (x, y) lies inside g. Supported
// geometries are Polygon and MultiPolygon; interior rings count as holes.
// Anything else reports false.
func ContainsPoint(g geom.T, x, y float64) bool {
	switch t := g.(type) {
	case *geom.Polygon:
		return polygonContains(t, x, y)
	case *geom.MultiPolygon:
		for i := 0; i < t.NumPolygons(); i++ {
			if polygonContains(t.Polygon(i), x, y) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func polygonContains(p *geom.Polygon, x, y float64) bool {
	if p.NumLinearRings() == 0 {
		return false
	}
	if !ringContains(p.LinearRing(0), x, y) {
		return false
	}
	for i := 1; i < p.NumLinearRings(); i++ {
		if ringContains(p.LinearRing(i), x, y) {
			return false
		}
	}
	return true
}

// ringContains is a standard even-odd ray cast over one linear ring.
func ringContains(ring *geom.LinearRing, x, y float64) bool {
	flat := ring.FlatCoords()
	stride := ring.Stride()
	n := len(flat) / stride
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := flat[i*stride], flat[i*stride+1]
		xj, yj := flat[j*stride], flat[j*stride+1]
		if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

// Centroid returns a representative point for g: the point itself, the
// area-weighted centroid for polygons, or the bounding-box center otherwise.
func Centroid(g geom.T) (x, y float64) {
	switch t := g.(type) {
	case *geom.Point:
		return t.X(), t.Y()
	case *geom.Polygon:
		if cx, cy, ok := polygonCentroid(t); ok {
			return cx, cy
		}
	case *geom.MultiPolygon:
		var sx, sy, sa float64
		for i := 0; i < t.NumPolygons(); i++ {
			p := t.Polygon(i)
			if cx, cy, ok := polygonCentroid(p); ok {
				a := p.Area()
				sx += cx * a
				sy += cy * a
				sa += a
			}
		}
		if sa != 0 {
			return sx / sa, sy / sa
		}
	}
	b := g.Bounds()
	return (b.Min(0) + b.Max(0)) / 2, (b.Min(1) + b.Max(1)) / 2
}

// polygonCentroid computes the centroid of the exterior ring by the shoelace
// formula. Degenerate rings report ok=false.
func polygonCentroid(p *geom.Polygon) (x, y float64, ok bool) {
	if p.NumLinearRings() == 0 {
		return 0, 0, false
	}
	ring := p.LinearRing(0)
	flat := ring.FlatCoords()
	stride := ring.Stride()
	n := len(flat) / stride
	if n < 3 {
		return 0, 0, false
	}
	var a, cx, cy float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		xi, yi := flat[i*stride], flat[i*stride+1]
		xj, yj := flat[j*stride], flat[j*stride+1]
		cross := xi*yj - xj*yi
		a += cross
		cx += (xi + xj) * cross
		cy += (yi + yj) * cross
	}
	if a == 0 {
		return 0, 0, false
	}
	return cx / (3 * a), cy / (3 * a), true
}

// ExpandedBounds returns the bounds of g grown by margin on every side.
func ExpandedBounds(g geom.T, margin float64) *geom.Bounds {
	b := g.Bounds()
	return geom.NewBounds(geom.XY).Set(
		b.Min(0)-margin, b.Min(1)-margin,
		b.Max(0)+margin, b.Max(1)+margin,
	)
}
