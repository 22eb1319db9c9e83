package metrics

import (
	"context"
	"sort"

	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// UrbanFuncRow is one facility category of the urban-function induction
// indicators (report IF102). Type 0 is the facility set named by the plan
// itself; types 1 through 7 are the standard urban-function categories.
type UrbanFuncRow struct {
	FacilityType   int    `csv:"facility_type"`
	AdminCount     int    `csv:"ufia_facility_admin_count"`
	InductionCount int    `csv:"ufia_facility_count"`
	Share          string `csv:"ufia_facility_share"`
}

// UrbanFunc counts induction facilities inside the urban-function
// induction area against all facilities in the target zones, per facility
// type.
func (c *Calculator) UrbanFunc(ctx context.Context) ([]UrbanFuncRow, error) {
	facilities, err := c.loadLayer(ctx, "induction_facilities")
	if err != nil {
		return nil, err
	}
	zones, err := c.loadLayer(ctx, "zones")
	if err != nil {
		return nil, err
	}
	induction, err := c.loadLayer(ctx, "urbanfunc_induction")
	if err != nil {
		return nil, err
	}

	target := targetZones(zones)
	if len(target) == 0 {
		zap.L().Warn("metrics: no target zones, urban function indicators empty")
		return nil, nil
	}

	adminCounts := make(map[int]int)
	inductionCounts := make(map[int]int)

	for _, f := range facilities.Features {
		pt, ok := f.Geom.(*geom.Point)
		if !ok {
			continue
		}
		if !anyContains(target, pt.X(), pt.Y()) {
			continue
		}
		ftype := f.Int("type")
		adminCounts[ftype]++
		if anyContains(induction.Features, pt.X(), pt.Y()) {
			inductionCounts[ftype]++
		}
	}

	types := make([]int, 0, len(adminCounts))
	for t := range adminCounts {
		types = append(types, t)
	}
	sort.Ints(types)

	var rows []UrbanFuncRow
	for _, t := range types {
		admin := adminCounts[t]
		inside := inductionCounts[t]
		rows = append(rows, UrbanFuncRow{
			FacilityType:   t,
			AdminCount:     admin,
			InductionCount: inside,
			Share:          ratioCell(float64(inside), float64(admin)),
		})
	}

	return rows, nil
}
