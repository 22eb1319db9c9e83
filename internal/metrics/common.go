// Package metrics computes the evaluation indicator families from the
// ingested and generated layers and produces CSV report rows.
package metrics

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strconv"

	"github.com/twpayne/go-geom"

	"github.com/AeroToyota-Develop/Urban-structure-analysis/internal/geometry"
	"github.com/AeroToyota-Develop/Urban-structure-analysis/internal/model"
	"github.com/AeroToyota-Develop/Urban-structure-analysis/internal/store"
)

// NA is the placeholder the survey format uses for undefined values.
const NA = "―"

var yearFieldPattern = regexp.MustCompile(`^(\d{4})_population$`)

// Calculator computes the indicator families against the layers in a store.
type Calculator struct {
	store store.Store
}

// NewCalculator creates a calculator reading from st.
func NewCalculator(st store.Store) *Calculator {
	return &Calculator{store: st}
}

func (c *Calculator) loadLayer(ctx context.Context, name string) (*model.Collection, error) {
	return c.store.LoadLayer(ctx, name)
}

// targetZones returns the zone features marked as the evaluation target.
func targetZones(zones *model.Collection) []*model.Feature {
	return zones.FilterInt("is_target", 1)
}

// centroidsWithin reduces buildings to centroid points and keeps only those
// inside one of the zones. Attributes are carried over unchanged.
func centroidsWithin(buildings *model.Collection, zones []*model.Feature) []*model.Feature {
	var points []*model.Feature
	for _, b := range buildings.Features {
		if b.Geom == nil {
			continue
		}
		x, y := geometry.Centroid(b.Geom)
		if !anyContains(zones, x, y) {
			continue
		}
		p := &model.Feature{
			ID:    b.ID,
			Geom:  geom.NewPointFlat(geom.XY, []float64{x, y}),
			Attrs: b.Attrs,
		}
		points = append(points, p)
	}
	return points
}

// anyContains reports whether (x, y) lies inside any feature geometry.
func anyContains(features []*model.Feature, x, y float64) bool {
	for _, f := range features {
		if f.Geom == nil {
			continue
		}
		if geometry.ContainsPoint(f.Geom, x, y) {
			return true
		}
	}
	return false
}

// pointsWithin returns the subset of point features inside any geometry of
// the cover layer.
func pointsWithin(points []*model.Feature, cover *model.Collection) []*model.Feature {
	var inside []*model.Feature
	for _, p := range points {
		pt, ok := p.Geom.(*geom.Point)
		if !ok {
			continue
		}
		if anyContains(cover.Features, pt.X(), pt.Y()) {
			inside = append(inside, p)
		}
	}
	return inside
}

// unionPoints merges point subsets without double counting shared members.
func unionPoints(sets ...[]*model.Feature) []*model.Feature {
	seen := make(map[*model.Feature]bool)
	var out []*model.Feature
	for _, set := range sets {
		for _, p := range set {
			if seen[p] {
				continue
			}
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

// populationYears extracts the sorted distinct years present as
// "YYYY_population" attribute fields.
func populationYears(points []*model.Feature) []string {
	seen := make(map[string]bool)
	for _, p := range points {
		for key := range p.Attrs {
			if m := yearFieldPattern.FindStringSubmatch(key); m != nil {
				seen[m[1]] = true
			}
		}
	}
	years := make([]string, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Strings(years)
	return years
}

// sumPopulation sums the population field of one year over the points.
func sumPopulation(points []*model.Feature, year string) float64 {
	var sum float64
	for _, p := range points {
		sum += p.Float(year + "_population")
	}
	return sum
}

// round3 rounds to three decimals, the survey convention for ratios.
func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// round2 rounds to two decimals, the survey convention for deltas.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ratioCell formats covered/total at three decimals, or NA when the total
// is not positive.
func ratioCell(covered, total float64) string {
	if total <= 0 {
		return NA
	}
	return strconv.FormatFloat(round3(covered/total), 'f', -1, 64)
}

// deltaCell formats the difference of two ratio cells at two decimals.
// Either operand being NA yields NA.
func deltaCell(current, previous string) string {
	cur, err1 := strconv.ParseFloat(current, 64)
	prev, err2 := strconv.ParseFloat(previous, 64)
	if err1 != nil || err2 != nil {
		return NA
	}
	return strconv.FormatFloat(round2(cur-prev), 'f', -1, 64)
}

// numCell formats a float with up to the given decimals.
func numCell(v float64, decimals int) string {
	return strconv.FormatFloat(v, 'f', decimals, 64)
}
