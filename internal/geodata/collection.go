package geodata

import (
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// FromGeometry wraps a bare geometry into a one-feature collection.
func FromGeometry(g orb.Geometry) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(g))
	return fc
}

// FromFeature wraps a single feature into a collection.
func FromFeature(f *geojson.Feature) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	if f.Properties == nil {
		f.Properties = geojson.Properties{}
	}
	fc.Append(f)
	return fc
}

// Merge concatenates the features of several collections in order. The
// features are shared, not copied.
func Merge(fcs ...*geojson.FeatureCollection) *geojson.FeatureCollection {
	out := geojson.NewFeatureCollection()
	for _, fc := range fcs {
		if fc == nil {
			continue
		}
		out.Features = append(out.Features, fc.Features...)
	}
	return out
}

// Clone deep-copies a collection so the copy shares no geometry or
// property maps with the source.
func Clone(fc *geojson.FeatureCollection) *geojson.FeatureCollection {
	out := geojson.NewFeatureCollection()
	out.Features = make([]*geojson.Feature, 0, len(fc.Features))
	for _, f := range fc.Features {
		c := &geojson.Feature{
			ID:         f.ID,
			Type:       "Feature",
			Properties: f.Properties.Clone(),
		}
		if f.Geometry != nil {
			c.Geometry = orb.Clone(f.Geometry)
		}
		if c.Properties == nil {
			c.Properties = geojson.Properties{}
		}
		out.Features = append(out.Features, c)
	}
	return out
}

// Bounds returns the union of the bounds of every non-empty geometry. ok is
// false when no feature has coordinates.
func Bounds(fc *geojson.FeatureCollection) (b orb.Bound, ok bool) {
	for _, f := range fc.Features {
		if f == nil || f.Geometry == nil || IsEmpty(f.Geometry) {
			continue
		}
		gb := f.Geometry.Bound()
		if !ok {
			b, ok = gb, true
			continue
		}
		b = b.Union(gb)
	}
	return b, ok
}

// Kinds lists the distinct geometry kinds of the collection in first-seen
// order. Null geometries are skipped.
func Kinds(fc *geojson.FeatureCollection) []Kind {
	var kinds []Kind
	seen := map[Kind]bool{}
	for _, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			continue
		}
		k := KindOf(f.Geometry)
		if !seen[k] {
			seen[k] = true
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// Summary describes the geometry of a collection: the single kind name, or
// "Mixed (A, B)" when the features disagree.
func Summary(fc *geojson.FeatureCollection) string {
	kinds := Kinds(fc)
	switch len(kinds) {
	case 0:
		return "Unknown"
	case 1:
		return kinds[0].String()
	}
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return "Mixed (" + strings.Join(names, ", ") + ")"
}
