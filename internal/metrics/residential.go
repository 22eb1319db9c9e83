package metrics

import (
	"context"

	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/AeroToyota-Develop/Urban-structure-analysis/internal/model"
)

// ResidentialRow is one year of the residential induction indicators
// (report IF101).
type ResidentialRow struct {
	Year            string  `csv:"year"`
	InductionPop    float64 `csv:"pop_share_rpa_pop"`
	AdminPop        float64 `csv:"pop_share_admin_pop"`
	PopShare        string  `csv:"pop_share"`
	PopShareDelta   string  `csv:"pop_share_delta"`
	PopDensityPerHa string  `csv:"pop_density_rpa"`
}

// Residential computes the population share living inside the residential
// induction area per year, with its density per hectare.
func (c *Calculator) Residential(ctx context.Context) ([]ResidentialRow, error) {
	buildings, err := c.loadLayer(ctx, "buildings")
	if err != nil {
		return nil, err
	}
	zones, err := c.loadLayer(ctx, "zones")
	if err != nil {
		return nil, err
	}
	induction, err := c.loadLayer(ctx, "residential_induction")
	if err != nil {
		return nil, err
	}

	target := targetZones(zones)
	if len(target) == 0 {
		zap.L().Warn("metrics: no target zones, residential indicators empty")
		return nil, nil
	}

	points := centroidsWithin(buildings, target)
	inductionPoints := pointsWithin(points, induction)
	inductionHa := layerAreaHa(induction)

	var rows []ResidentialRow
	for _, year := range populationYears(points) {
		total := sumPopulation(points, year)
		inside := sumPopulation(inductionPoints, year)

		row := ResidentialRow{
			Year:         year,
			InductionPop: inside,
			AdminPop:     total,
			PopShare:     ratioCell(inside, total),
		}

		if inductionHa > 0 {
			row.PopDensityPerHa = numCell(round2(inside/inductionHa), -1)
		} else {
			row.PopDensityPerHa = NA
		}

		if len(rows) > 0 {
			row.PopShareDelta = deltaCell(row.PopShare, rows[len(rows)-1].PopShare)
		} else {
			row.PopShareDelta = NA
		}

		rows = append(rows, row)
	}

	return rows, nil
}

// layerAreaHa sums the polygon areas of a layer in hectares. Geometries
// are assumed to be in a meter-based projection.
func layerAreaHa(col *model.Collection) float64 {
	var m2 float64
	for _, f := range col.Features {
		switch g := f.Geom.(type) {
		case *geom.Polygon:
			m2 += g.Area()
		case *geom.MultiPolygon:
			m2 += g.Area()
		}
	}
	return m2 / 10000
}
