package render

import (
	"strings"

	"github.com/joeblew999/geoview/internal/style"
)

// Fragment is the MapLibre source plus the layers that draw one handle.
type Fragment struct {
	Source Source       `json:"source"`
	Layers []StyleLayer `json:"layers"`
}

// Source is a MapLibre vector source.
type Source struct {
	Type    string      `json:"type"`
	Tiles   []string    `json:"tiles"`
	MinZoom int         `json:"minzoom"`
	MaxZoom int         `json:"maxzoom"`
	Bounds  *[4]float64 `json:"bounds,omitempty"`
}

// StyleLayer is one MapLibre style layer.
type StyleLayer struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Source      string         `json:"source"`
	SourceLayer string         `json:"source-layer"`
	Filter      []any          `json:"filter,omitempty"`
	Layout      map[string]any `json:"layout,omitempty"`
	Paint       map[string]any `json:"paint"`
}

// Fragment describes the handle for a map whose tiles live at tileURL, a
// template containing {z}, {x} and {y}. "{id}" in the template is replaced
// with the layer id.
func (h *Handle) Fragment(tileURL string) Fragment {
	st := h.style
	src := h.id
	frag := Fragment{
		Source: Source{
			Type:    "vector",
			Tiles:   []string{strings.ReplaceAll(tileURL, "{id}", h.id)},
			MinZoom: 0,
			MaxZoom: MaxZoom,
		},
	}
	if h.hasBound {
		frag.Source.Bounds = &[4]float64{h.bound.Min[0], h.bound.Min[1], h.bound.Max[0], h.bound.Max[1]}
	}

	polygons := geometryFilter("Polygon", "MultiPolygon")
	lines := geometryFilter("LineString", "MultiLineString")
	points := geometryFilter("Point", "MultiPoint")

	frag.Layers = []StyleLayer{
		{
			ID: src + "-fill", Type: "fill", Source: src, SourceLayer: SourceLayer,
			Filter: polygons,
			Paint: map[string]any{
				"fill-color":   st.Color,
				"fill-opacity": st.FillOpacity,
			},
		},
		{
			ID: src + "-outline", Type: "line", Source: src, SourceLayer: SourceLayer,
			Filter: polygons,
			Paint: map[string]any{
				"line-color": st.Color,
				"line-width": st.Weight,
			},
		},
		{
			ID: src + "-line", Type: "line", Source: src, SourceLayer: SourceLayer,
			Filter: lines,
			Layout: map[string]any{"line-cap": "round", "line-join": "round"},
			Paint: map[string]any{
				"line-color": st.Color,
				"line-width": st.Weight,
			},
		},
		pointLayer(src, st, points),
	}
	return frag
}

func pointLayer(src string, st style.Descriptor, filter []any) StyleLayer {
	if st.Shape == style.ShapeMarker {
		return StyleLayer{
			ID: src + "-marker", Type: "symbol", Source: src, SourceLayer: SourceLayer,
			Filter: filter,
			Layout: map[string]any{
				"icon-image":         "marker",
				"icon-size":          st.Radius / style.Default.Radius,
				"icon-allow-overlap": true,
				"icon-anchor":        "bottom",
			},
			Paint: map[string]any{"icon-color": st.Color},
		}
	}
	return StyleLayer{
		ID: src + "-circle", Type: "circle", Source: src, SourceLayer: SourceLayer,
		Filter: filter,
		Paint: map[string]any{
			"circle-radius":       st.Radius,
			"circle-color":        st.Color,
			"circle-opacity":      st.FillOpacity,
			"circle-stroke-color": st.Color,
			"circle-stroke-width": st.Weight,
		},
	}
}

func geometryFilter(types ...string) []any {
	return []any{"match", []any{"geometry-type"}, types, true, false}
}
