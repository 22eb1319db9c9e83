package loader

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Dataset describes one source folder and how its shapefiles map to a
// store layer.
type Dataset struct {
	Folder   string   `yaml:"folder"`
	Layer    string   `yaml:"layer"`
	Geometry string   `yaml:"geometry"`
	Required []string `yaml:"required,omitempty"`
	Kind     string   `yaml:"kind,omitempty"`
}

// Manifest lists the datasets to ingest from the input tree.
type Manifest struct {
	Datasets []Dataset `yaml:"datasets"`
}

// DefaultManifest covers the standard input layout used by the
// urban-planning survey exports.
func DefaultManifest() *Manifest {
	return &Manifest{
		Datasets: []Dataset{
			{Folder: "roads", Layer: "roads", Geometry: "line"},
			{Folder: "zones", Layer: "zones", Geometry: "polygon", Required: []string{"is_target"}},
			{Folder: "buildings", Layer: "buildings", Geometry: "polygon"},
			{Folder: "railway_stations", Layer: "railway_stations", Geometry: "point"},
			{Folder: "bus_stops", Layer: "bus_stops", Geometry: "point"},
			{Folder: "shelters", Layer: "shelters", Geometry: "point", Kind: "shelter"},
			{Folder: "residential_induction", Layer: "residential_induction", Geometry: "polygon"},
			{Folder: "urbanfunc_induction", Layer: "urbanfunc_induction", Geometry: "polygon"},
			{Folder: "induction_facilities", Layer: "induction_facilities", Geometry: "point"},
			{Folder: "hazard_planned", Layer: "hazard_planned", Geometry: "polygon"},
			{Folder: "hazard_maximum", Layer: "hazard_maximum", Geometry: "polygon"},
			{Folder: "hazard_storm_surge", Layer: "hazard_storm_surge", Geometry: "polygon"},
			{Folder: "hazard_tsunami", Layer: "hazard_tsunami", Geometry: "polygon"},
			{Folder: "hazard_landslide", Layer: "hazard_landslide", Geometry: "polygon"},
			{Folder: "landuse_mesh", Layer: "landuse_mesh", Geometry: "polygon"},
			{Folder: "change_maps", Layer: "change_maps", Geometry: "polygon"},
		},
	}
}

// LoadManifest reads a manifest file. An empty path returns the defaults.
func LoadManifest(path string) (*Manifest, error) {
	if path == "" {
		return DefaultManifest(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: read manifest %s", path)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrapf(err, "loader: parse manifest %s", path)
	}
	if len(m.Datasets) == 0 {
		return nil, eris.Errorf("loader: manifest %s lists no datasets", path)
	}
	return &m, nil
}
