package roadnet

import (
	"container/heap"
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/AeroToyota-Develop/Urban-structure-analysis/internal/geometry"
)

// NearestNodes returns the k graph vertices closest to point, by planar
// Euclidean distance over a full vertex scan. Result slots start out as the
// query point itself, so a graph with fewer than k vertices degrades to
// copies of the query point rather than an error. The scan is linear on
// purpose: graphs are bounding-box subsets around one facility, never the
// whole network.
func NearestNodes(g *Graph, point Coord, k int) []Coord {
	if k < 1 {
		return nil
	}
	nearest := make([]float64, k)
	points := make([]Coord, k)
	for i := range nearest {
		nearest[i] = math.Inf(1)
		points[i] = point
	}

	for id := 0; id < g.NumVertices(); id++ {
		c := g.Coord(id)
		d := point.Dist(c)

		maxIdx := 0
		for i := 1; i < k; i++ {
			if nearest[i] > nearest[maxIdx] {
				maxIdx = i
			}
		}
		if d < nearest[maxIdx] {
			nearest[maxIdx] = d
			points[maxIdx] = c
		}
	}

	return points
}

// frontierItem is one priority-queue entry: a coordinate and the cumulative
// distance at which it was reached.
type frontierItem struct {
	dist float64
	node Coord
}

type frontier []frontierItem

func (f frontier) Len() int { return len(f) }
func (f frontier) Less(i, j int) bool { return f[i].dist < f[j].dist }
func (f frontier) Swap(i, j int) { f[i], f[j] = f[j], f[i] }
func (f *frontier) Push(x any) { *f = append(*f, x.(frontierItem)) }
func (f *frontier) Pop() any {
	old := *f
	n := len(old)
	item := old[n-1]
	*f = old[:n-1]
	return item
}

// AccessibleArea runs a multi-source Dijkstra over g with a hard distance
// budget and returns the union of the buffer polygons emitted for every edge
// traversal that stays within the budget. The buffer half-width decays
// linearly from baseBuffer at the seed down to zero at maxDistance, so the
// corridor around the street thins out toward the edge of the walkable
// range.
//
// Disconnected graphs, seeds absent from the graph, and searches that reach
// no edge within budget all yield an empty polygon; only a failing geometry
// operation returns an error.
func AccessibleArea(g *Graph, seeds []Coord, maxDistance, baseBuffer float64) (*geom.MultiPolygon, error) {
	visited := make(map[Coord]bool)
	var buffers []*geom.Polygon

	pq := make(frontier, 0, len(seeds))
	for _, seed := range seeds {
		pq = append(pq, frontierItem{dist: 0, node: seed})
	}
	heap.Init(&pq)

	for pq.Len() > 0 {
		item := heap.Pop(&pq).(frontierItem)

		if visited[item.node] {
			continue
		}
		visited[item.node] = true

		// Over budget: drop this node but keep draining the queue, since
		// shorter branches may still be pending.
		if item.dist > maxDistance {
			continue
		}

		id, ok := g.VertexID(item.node)
		if !ok {
			// Degraded seeds are the query point itself and may not be
			// graph vertices.
			continue
		}

		for _, edgeIdx := range g.Incident(id) {
			edge := g.Edge(edgeIdx)
			from := g.Coord(edge.From)
			to := g.Coord(edge.To)

			var next Coord
			switch item.node {
			case from:
				next = to
			case to:
				next = from
			default:
				continue
			}

			tentative := item.dist + edge.Weight
			if visited[next] || tentative > maxDistance {
				continue
			}
			heap.Push(&pq, frontierItem{dist: tentative, node: next})

			width := baseBuffer * (maxDistance - tentative) / maxDistance
			if buf := geometry.SegmentBuffer(from.X, from.Y, to.X, to.Y, width); buf != nil {
				buffers = append(buffers, buf)
			}
		}
	}

	merged, err := geometry.Union(buffers)
	if err != nil {
		return nil, eris.Wrap(err, "roadnet: union accessible area buffers")
	}
	return merged, nil
}
