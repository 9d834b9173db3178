// Package geodata holds the canonical feature collection shared by the
// normalizers, the registry, the renderer and the exporters.
//
// The canonical form is an orb geojson.FeatureCollection. Geometry values are
// restricted to the seven GeoJSON kinds; KindOf is the only place that maps an
// orb.Geometry onto that closed set.
package geodata

import "github.com/paulmach/orb"

// Kind is the closed set of geometry kinds a stored feature may carry.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindPoint
	KindLineString
	KindPolygon
	KindMultiPoint
	KindMultiLineString
	KindMultiPolygon
	KindGeometryCollection
)

var kindNames = [...]string{
	KindUnknown:            "Unknown",
	KindPoint:              "Point",
	KindLineString:         "LineString",
	KindPolygon:            "Polygon",
	KindMultiPoint:         "MultiPoint",
	KindMultiLineString:    "MultiLineString",
	KindMultiPolygon:       "MultiPolygon",
	KindGeometryCollection: "GeometryCollection",
}

// String returns the GeoJSON type tag of the kind.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return kindNames[KindUnknown]
}

// ParseKind maps a GeoJSON type tag to a Kind.
func ParseKind(tag string) Kind {
	for k, name := range kindNames {
		if k != int(KindUnknown) && name == tag {
			return Kind(k)
		}
	}
	return KindUnknown
}

// KindOf reports the kind of g. Rings and bounds are orb geometries but not
// GeoJSON kinds, so they map to KindUnknown along with nil.
func KindOf(g orb.Geometry) Kind {
	switch g.(type) {
	case orb.Point:
		return KindPoint
	case orb.LineString:
		return KindLineString
	case orb.Polygon:
		return KindPolygon
	case orb.MultiPoint:
		return KindMultiPoint
	case orb.MultiLineString:
		return KindMultiLineString
	case orb.MultiPolygon:
		return KindMultiPolygon
	case orb.Collection:
		return KindGeometryCollection
	default:
		return KindUnknown
	}
}

// IsEmpty reports whether g has no coordinates. A collection is empty when
// every member is empty.
func IsEmpty(g orb.Geometry) bool {
	switch g := g.(type) {
	case orb.Point:
		return false
	case orb.LineString:
		return len(g) == 0
	case orb.Polygon:
		for _, r := range g {
			if len(r) > 0 {
				return false
			}
		}
		return true
	case orb.MultiPoint:
		return len(g) == 0
	case orb.MultiLineString:
		for _, ls := range g {
			if len(ls) > 0 {
				return false
			}
		}
		return true
	case orb.MultiPolygon:
		for _, p := range g {
			if !IsEmpty(p) {
				return false
			}
		}
		return true
	case orb.Collection:
		for _, m := range g {
			if m != nil && !IsEmpty(m) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// Family groups kinds by the Shapefile shape type that can hold them.
type Family uint8

const (
	FamilyNone Family = iota
	FamilyPoint
	FamilyMultiPoint
	FamilyLine
	FamilyPolygon
)

// FamilyOf returns the family of a kind. GeometryCollection has none.
func FamilyOf(k Kind) Family {
	switch k {
	case KindPoint:
		return FamilyPoint
	case KindMultiPoint:
		return FamilyMultiPoint
	case KindLineString, KindMultiLineString:
		return FamilyLine
	case KindPolygon, KindMultiPolygon:
		return FamilyPolygon
	default:
		return FamilyNone
	}
}
