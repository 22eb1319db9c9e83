package roadnet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AeroToyota-Develop/Urban-structure-analysis/internal/model"
)

// segmentedRoad builds a straight road along the x axis split into segments
// of the given length.
func segmentedRoad(segments int, segmentLength float64) *Graph {
	var features []*model.Feature
	for i := 0; i < segments; i++ {
		x0 := float64(i) * segmentLength
		features = append(features, lineFeature(x0, 0, x0+segmentLength, 0))
	}
	return Build(features)
}

func TestNearestNodes_ReturnsClosestVertices(t *testing.T) {
	g := segmentedRoad(10, 100)

	seeds := NearestNodes(g, Coord{X: 10, Y: 5}, 3)

	require.Len(t, seeds, 3)
	assert.Contains(t, seeds, Coord{X: 0, Y: 0})
	assert.Contains(t, seeds, Coord{X: 100, Y: 0})
	assert.Contains(t, seeds, Coord{X: 200, Y: 0})
}

func TestNearestNodes_DegradesToQueryPoint(t *testing.T) {
	// A single-vertex graph with more seeds requested than vertices exist.
	single := Build([]*model.Feature{lineFeature(0, 0, 0, 0)})
	require.Equal(t, 1, single.NumVertices())
	query := Coord{X: 500, Y: 500}

	seeds := NearestNodes(single, query, 3)

	require.Len(t, seeds, 3)
	matches := 0
	for _, s := range seeds {
		if s == query {
			matches++
		}
	}
	assert.GreaterOrEqual(t, matches, 2, "unfilled slots stay the query point")
}

func TestNearestNodes_EmptyGraph(t *testing.T) {
	g := Build(nil)
	query := Coord{X: 1, Y: 2}

	seeds := NearestNodes(g, query, 2)

	assert.Equal(t, []Coord{query, query}, seeds)
}

func TestAccessibleArea_EmptyGraph(t *testing.T) {
	g := Build(nil)

	area, err := AccessibleArea(g, []Coord{{X: 0, Y: 0}}, 500, 200)

	require.NoError(t, err)
	assert.Equal(t, 0, area.NumPolygons())
}

func TestAccessibleArea_SingleLongEdgeOverBudget(t *testing.T) {
	// One 1000 m edge with a 500 m budget: the first hop already exceeds the
	// budget, so nothing is emitted.
	g := Build([]*model.Feature{lineFeature(0, 0, 1000, 0)})

	area, err := AccessibleArea(g, []Coord{{X: 0, Y: 0}}, 500, 200)

	require.NoError(t, err)
	assert.Equal(t, 0, area.NumPolygons())
}

func TestAccessibleArea_SegmentedRoadWithinBudget(t *testing.T) {
	// The same 1000 m road split into 100 m segments: hops at cumulative
	// distances 100..500 stay in budget and their buffers merge into one
	// non-empty polygon.
	g := segmentedRoad(10, 100)

	area, err := AccessibleArea(g, []Coord{{X: 0, Y: 0}}, 500, 200)

	require.NoError(t, err)
	require.Greater(t, area.NumPolygons(), 0)

	// The merged area must stay inside the budget plus the base buffer
	// around the seed.
	b := area.Bounds()
	assert.GreaterOrEqual(t, b.Min(0), -200.0)
	assert.LessOrEqual(t, b.Max(0), 700.0)
	assert.GreaterOrEqual(t, b.Min(1), -200.0)
	assert.LessOrEqual(t, b.Max(1), 200.0)
}

func TestAccessibleArea_BufferWidthDecaysMonotonically(t *testing.T) {
	maxDistance, base := 500.0, 200.0

	prev := base
	for _, tentative := range []float64{100, 200, 300, 400, 500} {
		width := base * (maxDistance - tentative) / maxDistance
		assert.LessOrEqual(t, width, prev, "width must not grow with distance")
		assert.GreaterOrEqual(t, width, 0.0)
		prev = width
	}
}

func TestAccessibleArea_NeverExceedsBudget(t *testing.T) {
	// A cross of roads: every buffered traversal must derive from a
	// tentative distance within the budget, so the merged area cannot
	// reach past budget+base in any direction.
	var features []*model.Feature
	for i := 0; i < 10; i++ {
		d := float64(i) * 100
		features = append(features,
			lineFeature(d, 0, d+100, 0),
			lineFeature(-d, 0, -d-100, 0),
			lineFeature(0, d, 0, d+100),
			lineFeature(0, -d, 0, -d-100),
		)
	}
	g := Build(features)

	maxDistance, base := 300.0, 150.0
	area, err := AccessibleArea(g, []Coord{{X: 0, Y: 0}}, maxDistance, base)

	require.NoError(t, err)
	require.Greater(t, area.NumPolygons(), 0)

	limit := maxDistance + base
	b := area.Bounds()
	assert.GreaterOrEqual(t, b.Min(0), -limit)
	assert.LessOrEqual(t, b.Max(0), limit)
	assert.GreaterOrEqual(t, b.Min(1), -limit)
	assert.LessOrEqual(t, b.Max(1), limit)
}

func TestAccessibleArea_MultiSourceSeeds(t *testing.T) {
	g := segmentedRoad(10, 100)

	// Duplicate seeds collapse once popped; a second seed farther along the
	// road extends the reachable stretch.
	area, err := AccessibleArea(g, []Coord{
		{X: 0, Y: 0},
		{X: 0, Y: 0},
		{X: 500, Y: 0},
	}, 300, 100)

	require.NoError(t, err)
	require.Greater(t, area.NumPolygons(), 0)
	assert.LessOrEqual(t, area.Bounds().Max(0), 900.0)
}

func TestAccessibleArea_DisconnectedSeed(t *testing.T) {
	g := segmentedRoad(2, 100)

	// A seed that is not a graph vertex is skipped, matching the degraded
	// nearest-node behavior.
	area, err := AccessibleArea(g, []Coord{{X: 9999, Y: 9999}}, 500, 200)

	require.NoError(t, err)
	assert.Equal(t, 0, area.NumPolygons())
}
