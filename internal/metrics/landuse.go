package metrics

import (
	"context"

	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/AeroToyota-Develop/Urban-structure-analysis/internal/geometry"
	"github.com/AeroToyota-Develop/Urban-structure-analysis/internal/model"
)

// LandUseRow holds the land-use change indicators (report IF105). The
// construction indices relate new-construction events inside and outside
// the residential induction area to the stock of residential-land meshes.
type LandUseRow struct {
	ResidentialLandMeshCount  int    `csv:"residential_land_mesh_count"`
	NewConstructionInsideRPA  string `csv:"new_construction_index_inside_rpa"`
	NewConstructionOutsideRPA string `csv:"new_construction_index_outside_rpa"`
	CumulativeChangeIndex     string `csv:"new_construction_index_cumulative_change_index"`
	InsideOutsideDeltaGap     string `csv:"new_construction_index_delta_gap_rpa_vs_outside"`
}

// LandUse computes the residential-land change indicators over the change
// map events and land-use meshes inside the target zones.
func (c *Calculator) LandUse(ctx context.Context) ([]LandUseRow, error) {
	zones, err := c.loadLayer(ctx, "zones")
	if err != nil {
		return nil, err
	}
	changeMaps, err := c.loadLayer(ctx, "change_maps")
	if err != nil {
		return nil, err
	}

	target := targetZones(zones)
	if len(target) == 0 {
		zap.L().Warn("metrics: no target zones, land use indicators empty")
		return nil, nil
	}

	meshes := c.optionalLayer(ctx, "landuse_mesh")
	induction := c.optionalLayer(ctx, "residential_induction")

	meshCount := residentialMeshCount(meshes, target)

	var insideCount, outsideCount int
	for _, f := range changeMaps.Features {
		if f.Geom == nil {
			continue
		}
		x, y := geometry.Centroid(f.Geom)
		if !anyContains(target, x, y) {
			continue
		}
		if induction != nil && anyContains(induction.Features, x, y) {
			insideCount++
		} else {
			outsideCount++
		}
	}

	row := LandUseRow{
		ResidentialLandMeshCount:  meshCount,
		NewConstructionInsideRPA:  ratioCell(float64(insideCount), float64(meshCount)),
		NewConstructionOutsideRPA: ratioCell(float64(outsideCount), float64(meshCount)),
		CumulativeChangeIndex:     ratioCell(float64(insideCount+outsideCount), float64(meshCount)),
	}
	row.InsideOutsideDeltaGap = deltaCell(row.NewConstructionInsideRPA, row.NewConstructionOutsideRPA)

	return []LandUseRow{row}, nil
}

// residentialMeshCount counts the residential-land meshes whose centroid
// lies inside the target zones.
func residentialMeshCount(meshes *model.Collection, target []*model.Feature) int {
	if meshes == nil {
		return 0
	}
	count := 0
	for _, m := range meshes.Features {
		if m.Int("is_residential") != 1 {
			continue
		}
		if m.Geom == nil {
			continue
		}
		var x, y float64
		if pt, ok := m.Geom.(*geom.Point); ok {
			x, y = pt.X(), pt.Y()
		} else {
			x, y = geometry.Centroid(m.Geom)
		}
		if anyContains(target, x, y) {
			count++
		}
	}
	return count
}
