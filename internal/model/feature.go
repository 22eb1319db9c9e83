// Package model defines the typed feature records shared by the loaders,
// generators, and metric calculators.
package model

import (
	"strconv"

	"github.com/twpayne/go-geom"
)

// Feature is one geospatial record: a geometry plus a flat attribute map.
// Attribute access goes through typed accessors so callers never deal with
// raw interface values.
type Feature struct {
	ID    string         `json:"id,omitempty"`
	Geom  geom.T         `json:"-"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// NewFeature creates a feature with an empty attribute map.
func NewFeature(g geom.T) *Feature {
	return &Feature{Geom: g, Attrs: make(map[string]any)}
}

// Set stores an attribute value.
func (f *Feature) Set(key string, value any) {
	if f.Attrs == nil {
		f.Attrs = make(map[string]any)
	}
	f.Attrs[key] = value
}

// Has reports whether the attribute exists.
func (f *Feature) Has(key string) bool {
	_, ok := f.Attrs[key]
	return ok
}

// String returns the attribute as a string, or "" when absent.
func (f *Feature) String(key string) string {
	switch v := f.Attrs[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return ""
	}
}

// Int returns the attribute as an int, or 0 when absent or not numeric.
func (f *Feature) Int(key string) int {
	switch v := f.Attrs[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// Float returns the attribute as a float64, or 0 when absent or not numeric.
func (f *Feature) Float(key string) float64 {
	switch v := f.Attrs[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// Bounds returns the feature's bounding box, or nil for a nil geometry.
func (f *Feature) Bounds() *geom.Bounds {
	if f.Geom == nil {
		return nil
	}
	return f.Geom.Bounds()
}
