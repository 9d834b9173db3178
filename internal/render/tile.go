package render

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/simplify"

	"github.com/joeblew999/geoview/internal/metrics"
)

type tileKey struct {
	z    maptile.Zoom
	x, y uint32
}

// Tile returns the gzipped vector tile at z/x/y. A tile the layer does not
// touch is returned as nil with no error.
func (h *Handle) Tile(z, x, y uint32) ([]byte, error) {
	if z > MaxZoom {
		return nil, fmt.Errorf("zoom %d beyond %d", z, MaxZoom)
	}
	if n := uint32(1) << z; x >= n || y >= n {
		return nil, fmt.Errorf("tile %d/%d/%d out of range", z, x, y)
	}
	key := tileKey{maptile.Zoom(z), x, y}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.detached {
		return nil, ErrDetached
	}
	if data, ok := h.tiles[key]; ok {
		return data, nil
	}

	data, err := h.encode(maptile.New(x, y, maptile.Zoom(z)))
	if err != nil {
		return nil, err
	}
	if len(h.tiles) >= h.cacheSize {
		clear(h.tiles)
	}
	h.tiles[key] = data
	metrics.TilesRenderedTotal.Inc()
	return data, nil
}

// encode builds one tile from the features that reach into it.
func (h *Handle) encode(tile maptile.Tile) ([]byte, error) {
	tileBound := tile.Bound()
	fc := geojson.NewFeatureCollection()
	for _, f := range h.data.Features {
		if f == nil || f.Geometry == nil {
			continue
		}
		props := tileProperties(f.Properties)
		for _, g := range flatten(f.Geometry) {
			if !intersects(g, tileBound) {
				continue
			}
			// mvt clips and projects in place.
			tf := geojson.NewFeature(orb.Clone(g))
			tf.Properties = props
			fc.Append(tf)
		}
	}
	if len(fc.Features) == 0 {
		return nil, nil
	}

	layer := mvt.NewLayer(SourceLayer, fc)
	if eps := simplifyEpsilon(tile.Z); eps > 0 {
		layer.Simplify(simplify.DouglasPeucker(eps))
	}
	layer.Clip(tileBound)
	layer.ProjectToTile(tile)
	layer.RemoveEmpty(0.5, 0.5)
	if len(layer.Features) == 0 {
		return nil, nil
	}
	return mvt.MarshalGzipped(mvt.Layers{layer})
}

// flatten splits collections into their members; tiles carry no collections.
func flatten(g orb.Geometry) []orb.Geometry {
	c, ok := g.(orb.Collection)
	if !ok {
		return []orb.Geometry{g}
	}
	var out []orb.Geometry
	for _, m := range c {
		if m != nil {
			out = append(out, flatten(m)...)
		}
	}
	return out
}

// tileProperties keeps the values a tile can carry: nulls are dropped and
// nested values are written as JSON text.
func tileProperties(p geojson.Properties) geojson.Properties {
	out := make(geojson.Properties, len(p))
	for k, v := range p {
		switch v.(type) {
		case nil:
		case string, float64, bool:
			out[k] = v
		default:
			b, err := json.Marshal(v)
			if err == nil {
				out[k] = string(b)
			}
		}
	}
	return out
}

// intersects refines a bounding box test for shapes that are cheap to check
// exactly.
func intersects(g orb.Geometry, tileBound orb.Bound) bool {
	if !g.Bound().Intersects(tileBound) {
		return false
	}
	switch g := g.(type) {
	case orb.Point:
		return tileBound.Contains(g)
	case orb.MultiPoint:
		for _, p := range g {
			if tileBound.Contains(p) {
				return true
			}
		}
		return false
	case orb.Polygon:
		for _, r := range g {
			for _, p := range r {
				if tileBound.Contains(p) {
					return true
				}
			}
		}
		corners := []orb.Point{
			tileBound.Min,
			{tileBound.Max[0], tileBound.Min[1]},
			tileBound.Max,
			{tileBound.Min[0], tileBound.Max[1]},
			tileBound.Center(),
		}
		for _, p := range corners {
			if planar.PolygonContains(g, p) {
				return true
			}
		}
		return false
	case orb.MultiPolygon:
		for _, p := range g {
			if intersects(p, tileBound) {
				return true
			}
		}
		return false
	}
	return true
}

// simplifyEpsilon is the Douglas-Peucker tolerance in degrees for a zoom.
func simplifyEpsilon(z maptile.Zoom) float64 {
	switch {
	case z >= 14:
		return 0
	case z >= 10:
		return 0.00001
	case z >= 6:
		return 0.0001
	case z >= 4:
		return 0.0005
	default:
		return 0.001
	}
}
