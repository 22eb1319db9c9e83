package loader

import (
	"go.uber.org/zap"

	"github.com/AeroToyota-Develop/Urban-structure-analysis/internal/model"
)

// shelterFields maps the national survey facility DBF columns to the
// attribute names the generators and calculators use.
var shelterFields = map[string]string{
	"P20_001": "code",
	"P20_002": "name",
	"P20_003": "address",
	"P20_004": "type",
	"P20_005": "capacity",
	"P20_006": "scale",
	"P20_007": "earthquake",
	"P20_008": "tsunami",
}

// requiredShelterFields must be present on every record for the dataset to
// be usable.
var requiredShelterFields = []string{"P20_001", "P20_002"}

// MapShelters renames the survey DBF columns into the canonical shelter
// attributes. A collection whose records are missing required columns is
// rejected with ok == false, which callers treat as warn-and-skip.
func MapShelters(col *model.Collection) (*model.Collection, bool) {
	if col.Len() == 0 {
		return col, false
	}

	for _, raw := range requiredShelterFields {
		if !col.Features[0].Has(raw) {
			zap.L().Warn("loader: shelter dataset missing required field",
				zap.String("layer", col.Name),
				zap.String("field", raw),
			)
			return nil, false
		}
	}

	out := model.NewCollection(col.Name, col.SRID)
	for _, f := range col.Features {
		mapped := model.NewFeature(f.Geom)
		mapped.ID = f.ID
		for raw, name := range shelterFields {
			if !f.Has(raw) {
				continue
			}
			mapped.Set(name, f.Attrs[raw])
		}
		// Scale defaults to -1 (unknown) when the column is blank.
		if !mapped.Has("scale") {
			mapped.Set("scale", -1)
		}
		out.Append(mapped)
	}
	return out, true
}
