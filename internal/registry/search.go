package registry

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/geoview/internal/geodata"
)

// Match is a feature found by Find or Activate.
type Match struct {
	Layer   string           `json:"layer"`
	Name    string           `json:"name"`
	Index   int              `json:"index"`
	Feature *geojson.Feature `json:"-"`
}

// Find returns the first feature, in display order across visible layers,
// whose property field contains value ignoring case. A feature without the
// property never matches; a null value reads as "null".
func (r *Registry) Find(field, value string) (Match, bool) {
	if field == "" || value == "" {
		return Match{}, false
	}
	needle := strings.ToLower(value)

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.order {
		rec := r.layers[id]
		if !rec.Visible {
			continue
		}
		for i, f := range rec.Data.Features {
			v, ok := f.Properties[field]
			if !ok {
				continue
			}
			if strings.Contains(strings.ToLower(stringify(v)), needle) {
				return Match{Layer: id, Name: rec.Name, Index: i, Feature: f}, true
			}
		}
	}
	return Match{}, false
}

// ZoomTo fits the viewport to a matched feature. Points are shown at
// PointZoom.
func (r *Registry) ZoomTo(m Match) {
	if m.Feature == nil || m.Feature.Geometry == nil || geodata.IsEmpty(m.Feature.Geometry) {
		return
	}
	var v geodata.Viewport
	if p, ok := m.Feature.Geometry.(orb.Point); ok {
		v = geodata.Viewport{Center: geodata.LatLon{Lat: p[1], Lon: p[0]}, Zoom: PointZoom}
	} else {
		r.mu.RLock()
		fit := r.fit
		r.mu.RUnlock()
		v = geodata.Fit(m.Feature.Geometry.Bound(), fit)
	}
	r.SetViewport(v)
}

// PointZoom is the zoom used to show a single point.
const PointZoom = 14

// stringify renders a property value the way a browser's String() would.
func stringify(v any) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return formatNumber(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case json.Number:
		return v.String()
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
