// Package style resolves partial style input into the complete descriptor a
// render handle is built from.
package style

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Shape is how point features are drawn.
type Shape string

const (
	ShapeCircle Shape = "circle"
	ShapeMarker Shape = "marker"
)

// Descriptor is a fully populated style. Values are taken as given; there is
// no clamping of weight, opacity or radius.
type Descriptor struct {
	Color       string  `json:"color" doc:"Stroke and fill color" example:"#ff6b6b"`
	Weight      float64 `json:"weight" doc:"Stroke width in pixels"`
	FillOpacity float64 `json:"fillOpacity" doc:"Fill opacity"`
	Radius      float64 `json:"radius" doc:"Point radius in pixels"`
	Shape       Shape   `json:"shape" enum:"circle,marker" doc:"Point symbol"`
}

// Default is the style every layer starts from.
var Default = Descriptor{
	Color:       "#ff6b6b",
	Weight:      2,
	FillOpacity: 0.4,
	Radius:      6,
	Shape:       ShapeCircle,
}

// Partial carries the fields a caller provided. A nil field was not
// provided; a non-nil zero value was.
type Partial struct {
	Color       *string
	Weight      *float64
	FillOpacity *float64
	Radius      *float64
	Shape       *Shape
}

// IsZero reports whether no field was provided.
func (p Partial) IsZero() bool {
	return p.Color == nil && p.Weight == nil && p.FillOpacity == nil && p.Radius == nil && p.Shape == nil
}

// Resolve merges p over Default.
func Resolve(p Partial) Descriptor {
	return Merge(Default, p)
}

// Merge overwrites the provided fields of p onto base.
func Merge(base Descriptor, p Partial) Descriptor {
	d := base
	if p.Color != nil {
		d.Color = *p.Color
	}
	if p.Weight != nil {
		d.Weight = *p.Weight
	}
	if p.FillOpacity != nil {
		d.FillOpacity = *p.FillOpacity
	}
	if p.Radius != nil {
		d.Radius = *p.Radius
	}
	if p.Shape != nil {
		d.Shape = *p.Shape
	}
	return d
}

// Of returns a Partial with every field of d provided.
func Of(d Descriptor) Partial {
	return Partial{
		Color:       &d.Color,
		Weight:      &d.Weight,
		FillOpacity: &d.FillOpacity,
		Radius:      &d.Radius,
		Shape:       &d.Shape,
	}
}

// Validate reports the first field of d that Parse would refuse.
func (d Descriptor) Validate() error {
	if strings.TrimSpace(d.Color) == "" {
		return &FieldError{Field: "color", Value: d.Color}
	}
	if d.Shape != ShapeCircle && d.Shape != ShapeMarker {
		return &FieldError{Field: "shape", Value: d.Shape}
	}
	for _, f := range []struct {
		name string
		v    float64
	}{{"weight", d.Weight}, {"fillOpacity", d.FillOpacity}, {"radius", d.Radius}} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return &FieldError{Field: f.name, Value: f.v}
		}
	}
	return nil
}

// FieldError reports a style field whose value could not be used.
type FieldError struct {
	Field string
	Value any
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("style: invalid %s: %v", e.Field, e.Value)
}

// Parse builds a Partial from loosely typed input such as decoded JSON or
// form values. Numeric fields accept numbers or numeric strings. Unknown keys
// are ignored; a present null is treated as not provided.
func Parse(m map[string]any) (Partial, error) {
	var p Partial
	for key, v := range m {
		if v == nil {
			continue
		}
		switch key {
		case "color":
			s, ok := v.(string)
			if !ok || strings.TrimSpace(s) == "" {
				return Partial{}, &FieldError{Field: key, Value: v}
			}
			s = strings.TrimSpace(s)
			p.Color = &s
		case "weight", "fillOpacity", "radius":
			f, err := number(v)
			if err != nil {
				return Partial{}, &FieldError{Field: key, Value: v}
			}
			switch key {
			case "weight":
				p.Weight = &f
			case "fillOpacity":
				p.FillOpacity = &f
			default:
				p.Radius = &f
			}
		case "shape":
			s, _ := v.(string)
			shape := Shape(strings.ToLower(strings.TrimSpace(s)))
			if shape != ShapeCircle && shape != ShapeMarker {
				return Partial{}, &FieldError{Field: key, Value: v}
			}
			p.Shape = &shape
		}
	}
	return p, nil
}

func number(v any) (float64, error) {
	f, err := toFloat(v)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not finite: %v", f)
	}
	return f, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(n), 64)
	}
	return 0, fmt.Errorf("not a number: %T", v)
}

// UnmarshalJSON decodes a JSON object through Parse.
func (p *Partial) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	parsed, err := Parse(m)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// MarshalJSON writes only the provided fields.
func (p Partial) MarshalJSON() ([]byte, error) {
	m := map[string]any{}
	if p.Color != nil {
		m["color"] = *p.Color
	}
	if p.Weight != nil {
		m["weight"] = *p.Weight
	}
	if p.FillOpacity != nil {
		m["fillOpacity"] = *p.FillOpacity
	}
	if p.Radius != nil {
		m["radius"] = *p.Radius
	}
	if p.Shape != nil {
		m["shape"] = *p.Shape
	}
	return json.Marshal(m)
}
