package metrics

import (
	"context"

	"go.uber.org/zap"
)

// TransitRow is one year of the public-transport coverage indicators
// (report IF104).
type TransitRow struct {
	Year                    string  `csv:"year"`
	RailPopCovered          float64 `csv:"rail_pop_covered"`
	RailPopCoverage         string  `csv:"rail_pop_coverage"`
	RailPopCoverageDelta    string  `csv:"rail_pop_coverage_delta"`
	BusPopCovered           float64 `csv:"bus_pop_covered"`
	BusPopCoverage          string  `csv:"bus_pop_coverage"`
	BusPopCoverageDelta     string  `csv:"bus_pop_coverage_delta"`
	TransitPopCovered       float64 `csv:"transit_pop_covered"`
	TransitPopCoverage      string  `csv:"transit_pop_coverage"`
	TransitPopCoverageDelta string  `csv:"transit_pop_coverage_delta"`
}

// Transit computes rail, bus, and combined coverage population and rates
// per year over the building centroids inside the target zones.
func (c *Calculator) Transit(ctx context.Context) ([]TransitRow, error) {
	buildings, err := c.loadLayer(ctx, "buildings")
	if err != nil {
		return nil, err
	}
	zones, err := c.loadLayer(ctx, "zones")
	if err != nil {
		return nil, err
	}
	railBuffers, err := c.loadLayer(ctx, "railway_station_buffers")
	if err != nil {
		return nil, err
	}
	busBuffers, err := c.loadLayer(ctx, "bus_stop_buffers")
	if err != nil {
		return nil, err
	}

	target := targetZones(zones)
	if len(target) == 0 {
		zap.L().Warn("metrics: no target zones, transit indicators empty")
		return nil, nil
	}

	points := centroidsWithin(buildings, target)
	railPoints := pointsWithin(points, railBuffers)
	busPoints := pointsWithin(points, busBuffers)
	transitPoints := unionPoints(railPoints, busPoints)

	var rows []TransitRow
	for _, year := range populationYears(points) {
		total := sumPopulation(points, year)
		railPop := sumPopulation(railPoints, year)
		busPop := sumPopulation(busPoints, year)
		transitPop := sumPopulation(transitPoints, year)

		row := TransitRow{
			Year:               year,
			RailPopCovered:     railPop,
			RailPopCoverage:    ratioCell(railPop, total),
			BusPopCovered:      busPop,
			BusPopCoverage:     ratioCell(busPop, total),
			TransitPopCovered:  transitPop,
			TransitPopCoverage: ratioCell(transitPop, total),
		}

		if len(rows) > 0 {
			prev := rows[len(rows)-1]
			row.RailPopCoverageDelta = deltaCell(row.RailPopCoverage, prev.RailPopCoverage)
			row.BusPopCoverageDelta = deltaCell(row.BusPopCoverage, prev.BusPopCoverage)
			row.TransitPopCoverageDelta = deltaCell(row.TransitPopCoverage, prev.TransitPopCoverage)
		} else {
			row.RailPopCoverageDelta = NA
			row.BusPopCoverageDelta = NA
			row.TransitPopCoverageDelta = NA
		}

		rows = append(rows, row)
	}

	return rows, nil
}
