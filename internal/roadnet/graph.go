// Package roadnet builds undirected weighted graphs from road-network line
// features and computes walk-accessible areas around facilities with a
// distance-budgeted multi-source search.
package roadnet

import (
	"math"

	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/AeroToyota-Develop/Urban-structure-analysis/internal/model"
)

// Coord is a vertex coordinate in a planar metric CRS. Vertex identity is
// exact coordinate equality; there is no snapping tolerance.
type Coord struct {
	X, Y float64
}

// Dist returns the Euclidean distance to other.
func (c Coord) Dist(other Coord) float64 {
	return math.Hypot(other.X-c.X, other.Y-c.Y)
}

// Edge is one undirected road segment between two vertices. Parallel edges
// between the same vertex pair are kept as-is; merging them would change
// which buffers the search emits.
type Edge struct {
	From   int
	To     int
	Weight float64
}

// Graph is an adjacency-list road graph. It is immutable once built and safe
// for concurrent readers.
type Graph struct {
	coords   []Coord
	index    map[Coord]int
	edges    []Edge
	incident [][]int // vertex id -> indices into edges
}

// NumVertices returns the vertex count.
func (g *Graph) NumVertices() int { return len(g.coords) }

// NumEdges returns the edge count.
func (g *Graph) NumEdges() int { return len(g.edges) }

// Coord returns the coordinate of vertex id.
func (g *Graph) Coord(id int) Coord { return g.coords[id] }

// Edge returns the edge at index i.
func (g *Graph) Edge(i int) Edge { return g.edges[i] }

// VertexID returns the id of the vertex at exactly c, if any.
func (g *Graph) VertexID(c Coord) (int, bool) {
	id, ok := g.index[c]
	return id, ok
}

// Incident returns the indices of all edges touching vertex id.
func (g *Graph) Incident(id int) []int { return g.incident[id] }

func (g *Graph) vertex(c Coord) int {
	if id, ok := g.index[c]; ok {
		return id
	}
	id := len(g.coords)
	g.coords = append(g.coords, c)
	g.incident = append(g.incident, nil)
	g.index[c] = id
	return id
}

func (g *Graph) addEdge(a, b Coord, weight float64) {
	ia, ib := g.vertex(a), g.vertex(b)
	idx := len(g.edges)
	g.edges = append(g.edges, Edge{From: ia, To: ib, Weight: weight})
	g.incident[ia] = append(g.incident[ia], idx)
	if ib != ia {
		g.incident[ib] = append(g.incident[ib], idx)
	}
}

// Build constructs a graph from road line features. Each consecutive point
// pair of every (multi-)polyline becomes one undirected edge weighted by its
// Euclidean length. Features with empty geometries or non-line geometry
// types are skipped with a warning; polylines with fewer than two points and
// zero-length segments are skipped silently. Zero valid lines yield an empty
// graph, not an error.
func Build(features []*model.Feature) *Graph {
	g := &Graph{index: make(map[Coord]int)}

	for _, f := range features {
		switch t := f.Geom.(type) {
		case nil:
			zap.L().Warn("roadnet: empty geometry for road feature", zap.String("id", f.ID))
		case *geom.LineString:
			addPolyline(g, t.Coords())
		case *geom.MultiLineString:
			if t.NumLineStrings() == 0 {
				zap.L().Warn("roadnet: empty geometry for road feature", zap.String("id", f.ID))
				continue
			}
			for i := 0; i < t.NumLineStrings(); i++ {
				addPolyline(g, t.LineString(i).Coords())
			}
		default:
			zap.L().Warn("roadnet: unsupported geometry type for road feature",
				zap.String("id", f.ID),
				zap.String("type", geomTypeName(f.Geom)),
			)
		}
	}

	return g
}

func addPolyline(g *Graph, coords []geom.Coord) {
	if len(coords) < 2 {
		return
	}
	for i := 0; i < len(coords)-1; i++ {
		a := Coord{X: coords[i].X(), Y: coords[i].Y()}
		b := Coord{X: coords[i+1].X(), Y: coords[i+1].Y()}
		if a == b {
			continue
		}
		g.addEdge(a, b, a.Dist(b))
	}
}

func geomTypeName(g geom.T) string {
	switch g.(type) {
	case *geom.Point:
		return "Point"
	case *geom.MultiPoint:
		return "MultiPoint"
	case *geom.Polygon:
		return "Polygon"
	case *geom.MultiPolygon:
		return "MultiPolygon"
	case *geom.GeometryCollection:
		return "GeometryCollection"
	default:
		return "unknown"
	}
}
