// Package area generates coverage-area layers: transit stop buffers and
// walk-accessible polygons around evacuation shelters.
package area

import (
	"context"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/AeroToyota-Develop/Urban-structure-analysis/internal/config"
	"github.com/AeroToyota-Develop/Urban-structure-analysis/internal/geometry"
	"github.com/AeroToyota-Develop/Urban-structure-analysis/internal/model"
	"github.com/AeroToyota-Develop/Urban-structure-analysis/internal/roadnet"
	"github.com/AeroToyota-Develop/Urban-structure-analysis/internal/store"
)

// shelterEdgeBuffer is the base half-width in meters applied to road
// segments reached by the accessibility search.
const shelterEdgeBuffer = 200

// Generator produces the derived coverage layers from the ingested source
// layers and persists them through the store.
type Generator struct {
	store      store.Store
	thresholds config.ThresholdsConfig
}

// NewGenerator creates a coverage generator.
func NewGenerator(st store.Store, thresholds config.ThresholdsConfig) *Generator {
	return &Generator{store: st, thresholds: thresholds}
}

// GenerateAll builds every coverage layer. Missing source layers are
// warned and skipped so a partial store still produces what it can.
func (g *Generator) GenerateAll(ctx context.Context) error {
	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{"railway_station_buffers", g.GenerateStationCoverage},
		{"bus_stop_buffers", g.GenerateBusStopCoverage},
		{"shelter_buffers", g.GenerateShelterAreas},
	}

	for _, step := range steps {
		if err := step.run(ctx); err != nil {
			if eris.Is(err, store.ErrLayerNotFound) {
				zap.L().Warn("area: source layer missing, skipping",
					zap.String("layer", step.name),
					zap.Error(err),
				)
				continue
			}
			return err
		}
	}
	return nil
}

// GenerateStationCoverage buffers railway stations at the railway walking
// threshold and saves the result as railway_station_buffers.
func (g *Generator) GenerateStationCoverage(ctx context.Context) error {
	return g.bufferPointLayer(ctx, "railway_stations", "railway_station_buffers",
		"鉄道駅カバー圏域", g.thresholds.RailwayMeters)
}

// GenerateBusStopCoverage buffers bus stops at the bus walking threshold
// and saves the result as bus_stop_buffers.
func (g *Generator) GenerateBusStopCoverage(ctx context.Context) error {
	return g.bufferPointLayer(ctx, "bus_stops", "bus_stop_buffers",
		"バス停カバー圏域", g.thresholds.BusMeters)
}

func (g *Generator) bufferPointLayer(ctx context.Context, source, target, alias string, distance float64) error {
	col, err := g.store.LoadLayer(ctx, source)
	if err != nil {
		return err
	}

	out := model.NewCollection(target, col.SRID)
	for _, f := range col.Features {
		x, y, ok := pointOf(f)
		if !ok {
			continue
		}
		buf := geometry.PointBuffer(x, y, distance)
		if buf == nil {
			continue
		}
		bf := model.NewFeature(buf)
		bf.ID = f.ID
		bf.Set("buffer_distance", distance)
		out.Append(bf)
	}

	if err := g.store.SaveLayer(ctx, out, alias); err != nil {
		return eris.Wrapf(err, "area: save %s", target)
	}
	zap.L().Info("area: coverage layer generated",
		zap.String("layer", target),
		zap.Int("features", out.Len()),
	)
	return nil
}

// GenerateShelterAreas computes the walk-accessible polygon for every
// shelter and saves them as shelter_buffers, one polygon feature per
// reached area with the shelter id attached.
func (g *Generator) GenerateShelterAreas(ctx context.Context) error {
	shelters, err := g.store.LoadLayer(ctx, "shelters")
	if err != nil {
		return err
	}
	roads, err := g.store.LoadLayer(ctx, "roads")
	if err != nil {
		return err
	}

	budget := g.thresholds.ShelterMeters
	out := model.NewCollection("shelter_buffers", shelters.SRID)

	for i, shelter := range shelters.Features {
		if err := ctx.Err(); err != nil {
			return eris.Wrap(err, "area: shelter area generation cancelled")
		}

		x, y, ok := pointOf(shelter)
		if !ok {
			zap.L().Warn("area: shelter has no usable geometry, skipping",
				zap.String("shelter", shelterID(shelter, i)),
			)
			continue
		}

		// Only roads within walking reach of the shelter matter for
		// its graph.
		bounds := geom.NewBounds(geom.XY).Set(x-budget, y-budget, x+budget, y+budget)
		nearby := roads.FilterBounds(bounds)

		graph := roadnet.Build(nearby)
		if graph.NumVertices() == 0 {
			continue
		}

		k := 3
		if shelter.Int("scale") == -1 {
			k = 1
		}
		seeds := roadnet.NearestNodes(graph, roadnet.Coord{X: x, Y: y}, k)

		accessible, err := roadnet.AccessibleArea(graph, seeds, budget, shelterEdgeBuffer)
		if err != nil {
			return eris.Wrapf(err, "area: accessible area for shelter %s", shelterID(shelter, i))
		}

		id := shelterID(shelter, i)
		for p := 0; p < accessible.NumPolygons(); p++ {
			bf := model.NewFeature(accessible.Polygon(p))
			bf.Set("shelter_id", id)
			out.Append(bf)
		}
	}

	if err := g.store.SaveLayer(ctx, out, "避難施設カバー圏域"); err != nil {
		return eris.Wrap(err, "area: save shelter_buffers")
	}
	zap.L().Info("area: shelter areas generated",
		zap.Int("shelters", shelters.Len()),
		zap.Int("polygons", out.Len()),
	)
	return nil
}

// pointOf returns the representative point of a feature. Non-point
// geometry falls back to its centroid.
func pointOf(f *model.Feature) (float64, float64, bool) {
	switch g := f.Geom.(type) {
	case nil:
		return 0, 0, false
	case *geom.Point:
		return g.X(), g.Y(), true
	default:
		zap.L().Warn("area: non-point geometry, using centroid",
			zap.String("id", f.ID),
		)
		cx, cy := geometry.Centroid(g)
		return cx, cy, true
	}
}

func shelterID(f *model.Feature, idx int) string {
	if code := f.String("code"); code != "" {
		return code
	}
	if f.ID != "" {
		return f.ID
	}
	return strconv.Itoa(idx)
}
