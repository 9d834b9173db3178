// Package validate checks GeoJSON documents and canonical feature collections
// before they are allowed into the layer registry.
package validate

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/geoview/internal/geodata"
)

// ValidationError reports why a document or collection was rejected.
// Feature is the index of the offending feature, or -1 when the problem is
// with the collection as a whole.
type ValidationError struct {
	Feature int
	Reason  string
}

func (e *ValidationError) Error() string {
	if e.Feature >= 0 {
		return fmt.Sprintf("invalid feature %d: %s", e.Feature, e.Reason)
	}
	return fmt.Sprintf("invalid data: %s", e.Reason)
}

func invalid(reason string, args ...any) *ValidationError {
	return &ValidationError{Feature: -1, Reason: fmt.Sprintf(reason, args...)}
}

// Collection checks a canonical collection: at least one feature, at least
// one non-null geometry, and every non-null geometry of a known kind with
// coordinates.
func Collection(fc *geojson.FeatureCollection) error {
	if fc == nil {
		return invalid("no feature collection")
	}
	if len(fc.Features) == 0 {
		return invalid("feature collection has no features")
	}

	geometries := 0
	for i, f := range fc.Features {
		if f == nil {
			return &ValidationError{Feature: i, Reason: "null feature"}
		}
		if f.Geometry == nil {
			continue
		}
		if err := geometry(f.Geometry); err != nil {
			return &ValidationError{Feature: i, Reason: err.Error()}
		}
		geometries++
	}
	if geometries == 0 {
		return invalid("no feature has a geometry")
	}
	return nil
}

func geometry(g orb.Geometry) error {
	kind := geodata.KindOf(g)
	if kind == geodata.KindUnknown {
		return fmt.Errorf("unsupported geometry %T", g)
	}
	if geodata.IsEmpty(g) {
		return fmt.Errorf("%s has no coordinates", kind)
	}
	if c, ok := g.(orb.Collection); ok {
		for _, m := range c {
			if m == nil || geodata.KindOf(m) == geodata.KindUnknown {
				return fmt.Errorf("GeometryCollection holds an unsupported member")
			}
		}
	}
	return nil
}

type document struct {
	Type        string            `json:"type"`
	Features    []json.RawMessage `json:"features"`
	Geometry    json.RawMessage   `json:"geometry"`
	Coordinates json.RawMessage   `json:"coordinates"`
	Geometries  []json.RawMessage `json:"geometries"`
}

// Document checks the outer structure of a GeoJSON text: a
// FeatureCollection with at least one feature, a Feature with a non-null
// geometry, or a bare geometry with coordinates (or members, for a
// GeometryCollection).
func Document(raw []byte) error {
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return invalid("not a GeoJSON object: %v", err)
	}

	switch doc.Type {
	case "FeatureCollection":
		if len(doc.Features) == 0 {
			return invalid("FeatureCollection has no features")
		}
		for i, f := range doc.Features {
			var fd document
			if err := json.Unmarshal(f, &fd); err != nil || fd.Type != "Feature" {
				return &ValidationError{Feature: i, Reason: "not a Feature object"}
			}
		}
		return nil
	case "Feature":
		if isNull(doc.Geometry) {
			return invalid("Feature has no geometry")
		}
		return nil
	case "":
		return invalid("missing type")
	}

	if geodata.ParseKind(doc.Type) == geodata.KindUnknown {
		return invalid("unknown type %q", doc.Type)
	}
	if doc.Type == "GeometryCollection" {
		if len(doc.Geometries) == 0 {
			return invalid("GeometryCollection has no geometries")
		}
		return nil
	}
	if isNull(doc.Coordinates) {
		return invalid("%s has no coordinates", doc.Type)
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
