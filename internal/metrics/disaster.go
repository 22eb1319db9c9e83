package metrics

import (
	"context"

	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/AeroToyota-Develop/Urban-structure-analysis/internal/geometry"
	"github.com/AeroToyota-Develop/Urban-structure-analysis/internal/model"
)

// Flood depth ranks follow the national hazard-map classing: rank 2 marks
// half a meter of inundation and rank 3 marks three meters.
const (
	floodRankHalfMeter   = 2
	floodRankThreeMeters = 3
)

// DisasterRow is one year of the disaster-exposure indicators (report
// IF103).
type DisasterRow struct {
	Year string `csv:"year"`

	FloodPlannedHalfMeterShare      string `csv:"flood_plan_0p5m_inundation_pop_share"`
	FloodPlannedHalfMeterShareDelta string `csv:"flood_plan_0p5m_inundation_pop_share_delta"`
	FloodPlannedThreeMeterShare     string `csv:"flood_plan_3m_inundation_pop_share"`
	FloodPlannedThreeMeterDelta     string `csv:"flood_plan_3m_inundation_pop_share_delta"`

	FloodMaximumHalfMeterShare      string `csv:"flood_assumed_0p5m_inundation_pop_share"`
	FloodMaximumHalfMeterShareDelta string `csv:"flood_assumed_0p5m_inundation_pop_share_delta"`
	FloodMaximumThreeMeterShare     string `csv:"flood_assumed_3m_inundation_pop_share"`
	FloodMaximumThreeMeterDelta     string `csv:"flood_assumed_3m_inundation_pop_share_delta"`

	StormSurgeShare      string `csv:"storm_surge_inundation_pop_share"`
	StormSurgeShareDelta string `csv:"storm_surge_inundation_pop_share_delta"`
	TsunamiShare         string `csv:"tsunami_inundation_pop_share"`
	TsunamiShareDelta    string `csv:"tsunami_inundation_pop_share_delta"`
	LandslideShare       string `csv:"landslide_pop_share"`
	LandslideShareDelta  string `csv:"landslide_pop_share_delta"`

	ShelterCoveredShare      string `csv:"shelter_covered_pop_share"`
	ShelterCoveredShareDelta string `csv:"shelter_covered_pop_share_delta"`
}

// Disaster computes per-year population shares exposed to each hazard
// class and the share covered by shelter walk-accessible areas.
func (c *Calculator) Disaster(ctx context.Context) ([]DisasterRow, error) {
	buildings, err := c.loadLayer(ctx, "buildings")
	if err != nil {
		return nil, err
	}
	zones, err := c.loadLayer(ctx, "zones")
	if err != nil {
		return nil, err
	}

	target := targetZones(zones)
	if len(target) == 0 {
		zap.L().Warn("metrics: no target zones, disaster indicators empty")
		return nil, nil
	}
	points := centroidsWithin(buildings, target)

	// Hazard layers are optional; a missing layer reports NA.
	planned := c.optionalLayer(ctx, "hazard_planned")
	maximum := c.optionalLayer(ctx, "hazard_maximum")
	stormSurge := c.optionalLayer(ctx, "hazard_storm_surge")
	tsunami := c.optionalLayer(ctx, "hazard_tsunami")
	landslide := c.optionalLayer(ctx, "hazard_landslide")
	shelterAreas := c.optionalLayer(ctx, "shelter_buffers")

	plannedHalf := pointsAtRank(points, planned, floodRankHalfMeter)
	plannedThree := pointsAtRank(points, planned, floodRankThreeMeters)
	maximumHalf := pointsAtRank(points, maximum, floodRankHalfMeter)
	maximumThree := pointsAtRank(points, maximum, floodRankThreeMeters)

	var stormPoints, tsunamiPoints, landslidePoints, shelterPoints []*model.Feature
	if stormSurge != nil {
		stormPoints = pointsWithin(points, stormSurge)
	}
	if tsunami != nil {
		tsunamiPoints = pointsWithin(points, tsunami)
	}
	if landslide != nil {
		landslidePoints = pointsWithin(points, landslide)
	}
	if shelterAreas != nil {
		shelterPoints = pointsWithin(points, shelterAreas)
	}

	var rows []DisasterRow
	for _, year := range populationYears(points) {
		total := sumPopulation(points, year)

		row := DisasterRow{
			Year:                        year,
			FloodPlannedHalfMeterShare:  hazardCell(planned, plannedHalf, year, total),
			FloodPlannedThreeMeterShare: hazardCell(planned, plannedThree, year, total),
			FloodMaximumHalfMeterShare:  hazardCell(maximum, maximumHalf, year, total),
			FloodMaximumThreeMeterShare: hazardCell(maximum, maximumThree, year, total),
			StormSurgeShare:             hazardCell(stormSurge, stormPoints, year, total),
			TsunamiShare:                hazardCell(tsunami, tsunamiPoints, year, total),
			LandslideShare:              hazardCell(landslide, landslidePoints, year, total),
			ShelterCoveredShare:         hazardCell(shelterAreas, shelterPoints, year, total),
		}

		if len(rows) > 0 {
			prev := rows[len(rows)-1]
			row.FloodPlannedHalfMeterShareDelta = deltaCell(row.FloodPlannedHalfMeterShare, prev.FloodPlannedHalfMeterShare)
			row.FloodPlannedThreeMeterDelta = deltaCell(row.FloodPlannedThreeMeterShare, prev.FloodPlannedThreeMeterShare)
			row.FloodMaximumHalfMeterShareDelta = deltaCell(row.FloodMaximumHalfMeterShare, prev.FloodMaximumHalfMeterShare)
			row.FloodMaximumThreeMeterDelta = deltaCell(row.FloodMaximumThreeMeterShare, prev.FloodMaximumThreeMeterShare)
			row.StormSurgeShareDelta = deltaCell(row.StormSurgeShare, prev.StormSurgeShare)
			row.TsunamiShareDelta = deltaCell(row.TsunamiShare, prev.TsunamiShare)
			row.LandslideShareDelta = deltaCell(row.LandslideShare, prev.LandslideShare)
			row.ShelterCoveredShareDelta = deltaCell(row.ShelterCoveredShare, prev.ShelterCoveredShare)
		} else {
			row.FloodPlannedHalfMeterShareDelta = NA
			row.FloodPlannedThreeMeterDelta = NA
			row.FloodMaximumHalfMeterShareDelta = NA
			row.FloodMaximumThreeMeterDelta = NA
			row.StormSurgeShareDelta = NA
			row.TsunamiShareDelta = NA
			row.LandslideShareDelta = NA
			row.ShelterCoveredShareDelta = NA
		}

		rows = append(rows, row)
	}

	return rows, nil
}

// optionalLayer loads a layer or returns nil when it does not exist.
func (c *Calculator) optionalLayer(ctx context.Context, name string) *model.Collection {
	col, err := c.loadLayer(ctx, name)
	if err != nil {
		zap.L().Warn("metrics: optional layer unavailable",
			zap.String("layer", name),
			zap.Error(err),
		)
		return nil
	}
	return col
}

// pointsAtRank keeps the points whose containing hazard polygon reaches
// the given depth rank. A point inside several polygons counts at the
// deepest one.
func pointsAtRank(points []*model.Feature, hazard *model.Collection, minRank int) []*model.Feature {
	if hazard == nil {
		return nil
	}
	var inside []*model.Feature
	for _, p := range points {
		pt, ok := p.Geom.(*geom.Point)
		if !ok {
			continue
		}
		if maxRankAt(hazard, pt.X(), pt.Y()) >= minRank {
			inside = append(inside, p)
		}
	}
	return inside
}

func maxRankAt(hazard *model.Collection, x, y float64) int {
	best := 0
	for _, h := range hazard.Features {
		if h.Geom == nil || !geometry.ContainsPoint(h.Geom, x, y) {
			continue
		}
		if r := h.Int("rank"); r > best {
			best = r
		}
	}
	return best
}

// hazardCell reports NA when the hazard layer itself is missing, and a
// regular ratio otherwise.
func hazardCell(hazard *model.Collection, covered []*model.Feature, year string, total float64) string {
	if hazard == nil {
		return NA
	}
	return ratioCell(sumPopulation(covered, year), total)
}
