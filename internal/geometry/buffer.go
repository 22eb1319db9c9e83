// Package geometry provides the planar geometry operations the pipeline
// needs on top of go-geom: round buffers, polygon union, and point-in-polygon
// tests. All coordinates are planar and metric; callers reproject first.
package geometry

import (
	"math"

	"github.com/twpayne/go-geom"
)

// arcSegments is the number of segments used to approximate a quarter
// circle, matching the reference buffer resolution.
const arcSegments = 8

// PointBuffer returns a circular polygon of the given radius around p.
// A non-positive radius yields nil.
func PointBuffer(x, y, radius float64) *geom.Polygon {
	if radius <= 0 {
		return nil
	}
	n := arcSegments * 4
	flat := make([]float64, 0, (n+1)*2)
	for i := 0; i <= n; i++ {
		theta := 2 * math.Pi * float64(i) / float64(n)
		flat = append(flat, x+radius*math.Cos(theta), y+radius*math.Sin(theta))
	}
	return geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)})
}

// SegmentBuffer returns the round-capped buffer of the segment (x1,y1)-(x2,y2)
// at the given half-width: a rectangle along the segment closed by a
// semicircular cap at each end. Zero-length segments degrade to a circle.
// A non-positive width yields nil.
func SegmentBuffer(x1, y1, x2, y2, width float64) *geom.Polygon {
	if width <= 0 {
		return nil
	}
	dx, dy := x2-x1, y2-y1
	length := math.Hypot(dx, dy)
	if length == 0 {
		return PointBuffer(x1, y1, width)
	}
	// Unit direction and right normal; traversing the right side first
	// keeps the ring counterclockwise.
	ux, uy := dx/length, dy/length
	nx, ny := uy, -ux

	flat := make([]float64, 0, (arcSegments*4+4)*2)

	// Right side from start to end.
	flat = append(flat, x1+nx*width, y1+ny*width)
	flat = append(flat, x2+nx*width, y2+ny*width)

	// Cap around the end point, sweeping from the right normal through the
	// segment direction to the left normal.
	flat = appendArc(flat, x2, y2, width, math.Atan2(ny, nx), math.Pi)

	// Left side back to the start.
	flat = append(flat, x1-nx*width, y1-ny*width)

	// Cap around the start point.
	flat = appendArc(flat, x1, y1, width, math.Atan2(-ny, -nx), math.Pi)

	// Close the ring.
	flat = append(flat, flat[0], flat[1])

	return geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)})
}

// appendArc appends points along a circular arc of the given radius around
// (cx, cy), starting at angle start and sweeping by sweep radians. The arc
// endpoints are not emitted; neighbours supply them.
func appendArc(flat []float64, cx, cy, radius, start, sweep float64) []float64 {
	n := arcSegments * 2
	for i := 1; i < n; i++ {
		theta := start + sweep*float64(i)/float64(n)
		flat = append(flat, cx+radius*math.Cos(theta), cy+radius*math.Sin(theta))
	}
	return flat
}
