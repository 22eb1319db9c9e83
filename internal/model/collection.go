package model

import "github.com/twpayne/go-geom"

// Collection is a named set of features in a single coordinate reference
// system, identified by its EPSG code. It is the unit the dataset store
// saves and loads.
type Collection struct {
	Name     string
	SRID     int
	Features []*Feature
}

// NewCollection creates an empty collection.
func NewCollection(name string, srid int) *Collection {
	return &Collection{Name: name, SRID: srid}
}

// Append adds features to the collection.
func (c *Collection) Append(features ...*Feature) {
	c.Features = append(c.Features, features...)
}

// Len returns the number of features.
func (c *Collection) Len() int {
	return len(c.Features)
}

// FilterBounds returns the features whose bounding box overlaps b.
func (c *Collection) FilterBounds(b *geom.Bounds) []*Feature {
	var out []*Feature
	for _, f := range c.Features {
		fb := f.Bounds()
		if fb == nil {
			continue
		}
		if fb.Overlaps(geom.XY, b) {
			out = append(out, f)
		}
	}
	return out
}

// FilterInt returns the features whose attribute equals the given value.
func (c *Collection) FilterInt(key string, value int) []*Feature {
	var out []*Feature
	for _, f := range c.Features {
		if f.Has(key) && f.Int(key) == value {
			out = append(out, f)
		}
	}
	return out
}
