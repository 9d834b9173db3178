package export

import (
	"errors"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/geoview/internal/normalize"
)

func mixedLayer() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	city := geojson.NewFeature(orb.Point{31.2357, 30.0444})
	city.Properties["name"] = "Cairo"
	city.Properties["pop"] = 9500000.0
	city.Properties["capital"] = true
	fc.Append(city)

	town := geojson.NewFeature(orb.Point{29.9187, 31.2001})
	town.Properties["name"] = "Alexandria"
	town.Properties["pop"] = nil
	town.Properties["capital"] = false
	fc.Append(town)

	parcel := geojson.NewFeature(orb.Polygon{
		{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}},
		{{2, 2}, {2, 4}, {4, 4}, {4, 2}, {2, 2}},
	})
	parcel.Properties["area"] = 96.5
	fc.Append(parcel)

	road := geojson.NewFeature(orb.MultiLineString{{{0, 0}, {1, 1}}, {{2, 2}, {3, 3}}})
	fc.Append(road)

	return fc
}

func TestGeoJSONRoundTrip(t *testing.T) {
	f, err := GeoJSON("My Layer", mixedLayer())
	if err != nil {
		t.Fatal(err)
	}
	if f.Name != "My_Layer.geojson" {
		t.Errorf("name=%q", f.Name)
	}
	res, err := normalize.File(f.Name, f.Data, normalize.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if got := len(res.Collection.Features); got != 4 {
		t.Errorf("features=%d, want 4", got)
	}
}

func TestShapefileRoundTrip(t *testing.T) {
	f, err := Shapefile("cities", mixedLayer())
	if err != nil {
		t.Fatal(err)
	}
	if f.Name != "cities.zip" {
		t.Errorf("name=%q", f.Name)
	}

	res, err := normalize.File(f.Name, f.Data, normalize.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Candidates) != 3 {
		t.Fatalf("candidates=%d, want points, lines and polygons", len(res.Candidates))
	}
	byName := map[string]*geojson.FeatureCollection{}
	for _, c := range res.Candidates {
		byName[c.Name] = c.Data
	}

	points := byName["points"]
	if points == nil || len(points.Features) != 2 {
		t.Fatalf("points=%v", points)
	}
	cairo := points.Features[0]
	if !orb.Equal(cairo.Geometry, orb.Point{31.2357, 30.0444}) {
		t.Errorf("geometry=%v", cairo.Geometry)
	}
	if cairo.Properties["name"] != "Cairo" {
		t.Errorf("name=%v", cairo.Properties["name"])
	}
	if cairo.Properties["pop"] != 9500000.0 {
		t.Errorf("pop=%v", cairo.Properties["pop"])
	}
	if cairo.Properties["capital"] != true {
		t.Errorf("capital=%v", cairo.Properties["capital"])
	}
	if alex := points.Features[1]; alex.Properties["pop"] != nil || alex.Properties["capital"] != false {
		t.Errorf("alexandria=%v", alex.Properties)
	}

	polys := byName["polygons"]
	if polys == nil || len(polys.Features) != 1 {
		t.Fatalf("polygons=%v", polys)
	}
	poly, ok := polys.Features[0].Geometry.(orb.Polygon)
	if !ok || len(poly) != 2 {
		t.Fatalf("geometry=%v, want polygon with one hole", polys.Features[0].Geometry)
	}
	if got := poly.Bound(); got != (orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{10, 10}}) {
		t.Errorf("bound=%v", got)
	}
	if polys.Features[0].Properties["area"] != 96.5 {
		t.Errorf("area=%v", polys.Features[0].Properties["area"])
	}

	lines := byName["lines"]
	if lines == nil {
		t.Fatal("no lines sub-layer")
	}
	if _, ok := lines.Features[0].Geometry.(orb.MultiLineString); !ok {
		t.Errorf("geometry=%T, want MultiLineString", lines.Features[0].Geometry)
	}
}

func TestShapefileRejectsUnrepresentable(t *testing.T) {
	tests := []struct {
		name    string
		geom    orb.Geometry
		feature int
	}{
		{"collection", orb.Collection{orb.Point{1, 2}}, 1},
		{"null", nil, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := geojson.NewFeatureCollection()
			fc.Append(geojson.NewFeature(orb.Point{0, 0}))
			fc.Append(&geojson.Feature{Type: "Feature", Geometry: tt.geom, Properties: geojson.Properties{}})

			_, err := Shapefile("bad", fc)
			var ee *ExportError
			if !errors.As(err, &ee) {
				t.Fatalf("got %v, want *ExportError", err)
			}
			if ee.Feature != tt.feature {
				t.Errorf("feature=%d, want %d", ee.Feature, tt.feature)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
		err  bool
	}{
		{"", FormatGeoJSON, false},
		{"GeoJSON", FormatGeoJSON, false},
		{"shp", FormatShapefile, false},
		{"shapefile", FormatShapefile, false},
		{"kml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.err || got != tt.want {
			t.Errorf("ParseFormat(%q)=%q,%v, want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestFieldName(t *testing.T) {
	used := map[string]bool{}
	got := []string{
		fieldName("population_total", used),
		fieldName("population_density", used),
		fieldName("Population", used),
		fieldName("name", used),
	}
	want := []string{"population", "populatio1", "Populatio2", "name"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("fieldName #%d=%q, want %q", i, got[i], want[i])
		}
	}
}

func TestBaseName(t *testing.T) {
	tests := map[string]string{
		"roads":        "roads",
		" My Layer ":   "My_Layer",
		"../../etc":    "etc",
		"":             "layer",
		"a/b:c*d.json": "abcd.json",
	}
	for in, want := range tests {
		if got := baseName(in); got != want {
			t.Errorf("baseName(%q)=%q, want %q", in, got, want)
		}
	}
}
