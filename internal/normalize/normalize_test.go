package normalize

import (
	"errors"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/geoview/internal/validate"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		filename string
		want     Format
		wantErr  bool
	}{
		{"a.geojson", FormatGeoJSON, false},
		{"A.JSON", FormatGeoJSON, false},
		{"parcels.zip", FormatShapefile, false},
		{"doc.kml", FormatKML, false},
		{"doc.kmz", FormatKMZ, false},
		{"run.gpx", FormatGPX, false},
		{"points.csv", FormatCSV, false},
		{"world.topojson", FormatTopoJSON, false},
		{"shapes.wkt", FormatWKT, false},
		{"shapes.txt", FormatWKT, false},
		{"image.png", "", true},
		{"noext", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			got, err := Detect(tt.filename)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Detect() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Detect() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUnsupportedFormatNamesExtension(t *testing.T) {
	_, err := File("photo.PNG", []byte("x"), Options{})
	var ue *UnsupportedFormatError
	if !errors.As(err, &ue) {
		t.Fatalf("expected *UnsupportedFormatError, got %v", err)
	}
	if ue.Ext != ".png" || !strings.Contains(err.Error(), ".png") {
		t.Errorf("error %q does not name .png", err)
	}
}

// Every format decodes a well-formed sample into a collection that passes
// validation.
func TestAllFormatsValidate(t *testing.T) {
	dir := t.TempDir()
	shpData, dbfData := citiesShapefile(t, dir)

	samples := map[string][]byte{
		"a.geojson":  []byte(`{"type":"FeatureCollection","features":[{"type":"Feature","geometry":{"type":"Point","coordinates":[1,2]},"properties":{"a":1}}]}`),
		"b.zip":      zipBytes(t, zipEntry{"cities.shp", shpData}, zipEntry{"cities.dbf", dbfData}),
		"c.kml":      []byte(sampleKML),
		"d.kmz":      zipBytes(t, zipEntry{"doc.kml", []byte(sampleKML)}),
		"e.gpx":      []byte(sampleGPX),
		"f.csv":      []byte("id,latitude,longitude,name\n1,30.05,31.23,Cairo\n"),
		"g.topojson": []byte(sampleTopoJSON),
		"h.wkt":      []byte("POINT (31.2 30.1)\nLINESTRING (0 0, 1 1)\n"),
	}

	for name, data := range samples {
		t.Run(name, func(t *testing.T) {
			res, err := File(name, data, Options{})
			if err != nil {
				t.Fatalf("File() error = %v", err)
			}
			if res.Collection == nil {
				t.Fatal("no collection")
			}
			if err := validate.Collection(res.Collection); err != nil {
				t.Fatalf("validate: %v", err)
			}
			if len(res.Collection.Features) < 1 {
				t.Fatal("no features")
			}
		})
	}
}

func TestGeoJSONWrapsBareInput(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want orb.Geometry
	}{
		{"feature", `{"type":"Feature","geometry":{"type":"Point","coordinates":[3,4]},"properties":{"k":"v"}}`, orb.Point{3, 4}},
		{"geometry", `{"type":"LineString","coordinates":[[0,0],[1,1]]}`, orb.LineString{{0, 0}, {1, 1}}},
		{"feature without properties", `{"type":"Feature","geometry":{"type":"Point","coordinates":[5,6]}}`, orb.Point{5, 6}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Normalize([]byte(tt.raw), FormatGeoJSON, Options{})
			if err != nil {
				t.Fatal(err)
			}
			fc := res.Collection
			if len(fc.Features) != 1 {
				t.Fatalf("features=%d, want 1", len(fc.Features))
			}
			if !orb.Equal(fc.Features[0].Geometry, tt.want) {
				t.Errorf("geometry=%v, want %v", fc.Features[0].Geometry, tt.want)
			}
			if fc.Features[0].Properties == nil {
				t.Error("properties are nil")
			}
		})
	}
}

func TestGeoJSONErrors(t *testing.T) {
	var fe *FormatError
	if _, err := Normalize([]byte(`{"type":`), FormatGeoJSON, Options{}); !errors.As(err, &fe) {
		t.Errorf("truncated JSON: got %v, want *FormatError", err)
	}

	var ve *validate.ValidationError
	if _, err := Normalize([]byte(`{"type":"FeatureCollection","features":[]}`), FormatGeoJSON, Options{}); !errors.As(err, &ve) {
		t.Errorf("empty collection: got %v, want *ValidationError", err)
	}
	if _, err := Normalize([]byte(`{"type":"Feature","geometry":null}`), FormatGeoJSON, Options{}); !errors.As(err, &ve) {
		t.Errorf("null geometry feature: got %v, want *ValidationError", err)
	}
}

func TestJSONTopologyIsDecodedAsTopoJSON(t *testing.T) {
	res, err := File("world.json", []byte(sampleTopoJSON), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Collection.Features) != 3 {
		t.Errorf("features=%d, want 3", len(res.Collection.Features))
	}
}

func TestCSV(t *testing.T) {
	res, err := Normalize([]byte("id,latitude,longitude,name\n1,30.05,31.23,Cairo\n"), FormatCSV, Options{})
	if err != nil {
		t.Fatal(err)
	}
	fc := res.Collection
	if len(fc.Features) != 1 {
		t.Fatalf("features=%d, want 1", len(fc.Features))
	}
	f := fc.Features[0]
	if p, ok := f.Geometry.(orb.Point); !ok || p != (orb.Point{31.23, 30.05}) {
		t.Errorf("geometry=%v, want [31.23 30.05]", f.Geometry)
	}
	if f.Properties["name"] != "Cairo" {
		t.Errorf("name=%v, want Cairo", f.Properties["name"])
	}
	if f.Properties["id"] != 1.0 {
		t.Errorf("id=%v (%T), want number 1", f.Properties["id"], f.Properties["id"])
	}
	if f.Properties["latitude"] != 30.05 {
		t.Errorf("latitude=%v, coordinate columns must stay in properties", f.Properties["latitude"])
	}
}

func TestCSVVariants(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantCount int
		wantErr   bool
	}{
		{"short names", "LAT,LNG\n1,2\n3,4\n", 2, false},
		{"x y", "x;y;label\n10;20;a\n", 1, false},
		{"long column", "Latitude,Long\n1,2\n", 1, false},
		{"bad rows dropped", "lat,lon\n1,2\nabc,3\n4,NaN\n5,6\n", 2, false},
		{"empty cells", "lat,lon,note\n1,2,\n", 1, false},
		{"no coordinate columns", "name,city\na,b\n", 0, true},
		{"only latitude", "lat,name\n1,a\n", 0, true},
		{"all rows invalid", "lat,lon\nx,y\n,\n", 0, true},
		{"empty file", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Normalize([]byte(tt.raw), FormatCSV, Options{})
			if tt.wantErr {
				var se *SchemaError
				if !errors.As(err, &se) {
					t.Fatalf("got %v, want *SchemaError", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if n := len(res.Collection.Features); n != tt.wantCount {
				t.Errorf("features=%d, want %d", n, tt.wantCount)
			}
		})
	}
}

func TestCSVEmptyCellIsNull(t *testing.T) {
	res, err := Normalize([]byte("lat,lon,note\n1,2,\n"), FormatCSV, Options{})
	if err != nil {
		t.Fatal(err)
	}
	v, ok := res.Collection.Features[0].Properties["note"]
	if !ok || v != nil {
		t.Errorf("note=%v present=%v, want null", v, ok)
	}
}

func TestWKT(t *testing.T) {
	res, err := Normalize([]byte("POINT (31.2 30.1)\nGARBAGE\nPOINT (10 10)"), FormatWKT, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if n := len(res.Collection.Features); n != 2 {
		t.Fatalf("features=%d, want 2", n)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "line 2") {
		t.Errorf("warnings=%v, want one for line 2", res.Warnings)
	}
	if got := res.Collection.Features[0].Properties["wkt"]; got != "POINT (31.2 30.1)" {
		t.Errorf("wkt property=%v", got)
	}
}

func TestWKTAllKinds(t *testing.T) {
	raw := strings.Join([]string{
		"POINT (1 2)",
		"LINESTRING (0 0, 1 1)",
		"POLYGON ((0 0, 1 0, 1 1, 0 0))",
		"MULTIPOINT ((0 0), (1 1))",
		"MULTILINESTRING ((0 0, 1 1), (2 2, 3 3))",
		"MULTIPOLYGON (((0 0, 1 0, 1 1, 0 0)))",
		"GEOMETRYCOLLECTION (POINT (1 2), LINESTRING (0 0, 1 1))",
	}, "\r\n")

	res, err := Normalize([]byte(raw), FormatWKT, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if n := len(res.Collection.Features); n != 7 {
		t.Errorf("features=%d, want 7 (warnings %v)", n, res.Warnings)
	}
}

func TestWKTCollectionSpacing(t *testing.T) {
	tests := []struct {
		line string
		want int
	}{
		{"GEOMETRYCOLLECTION(POINT (1 2),LINESTRING (0 0, 1 1))", 2},
		{"GEOMETRYCOLLECTION (POINT (1 2), LINESTRING (0 0, 1 1))", 2},
		{"geometrycollection ( POINT(1 2) ,  POLYGON ((0 0, 1 0, 1 1, 0 0)) )", 2},
		{"GEOMETRYCOLLECTION (POINT (1 2))", 1},
	}
	for _, tt := range tests {
		res, err := Normalize([]byte(tt.line), FormatWKT, Options{})
		if err != nil {
			t.Errorf("%q: %v", tt.line, err)
			continue
		}
		c, ok := res.Collection.Features[0].Geometry.(orb.Collection)
		if !ok {
			t.Errorf("%q: geometry %T, want orb.Collection", tt.line, res.Collection.Features[0].Geometry)
			continue
		}
		if len(c) != tt.want {
			t.Errorf("%q: members=%d, want %d", tt.line, len(c), tt.want)
		}
		if got := res.Collection.Features[0].Properties["wkt"]; got != tt.line {
			t.Errorf("wkt property=%v, want the line as written", got)
		}
	}
}

func TestWKTEnrichment(t *testing.T) {
	opts := Options{WKTProperties: func(line string, g orb.Geometry) geojson.Properties {
		return geojson.Properties{"kind": g.GeoJSONType(), "length": float64(len(line))}
	}}
	res, err := Normalize([]byte("POINT (1 2)"), FormatWKT, opts)
	if err != nil {
		t.Fatal(err)
	}
	props := res.Collection.Features[0].Properties
	if props["kind"] != "Point" || props["length"] != 11.0 {
		t.Errorf("properties=%v", props)
	}
	if _, ok := props["wkt"]; ok {
		t.Error("default wkt property should be replaced")
	}
}

func TestWKTNothingParses(t *testing.T) {
	var se *SchemaError
	if _, err := Normalize([]byte("GARBAGE\n\nNOPE"), FormatWKT, Options{}); !errors.As(err, &se) {
		t.Errorf("got %v, want *SchemaError", err)
	}
}
