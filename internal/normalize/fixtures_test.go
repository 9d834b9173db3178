package normalize

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	shp "github.com/jonas-p/go-shp"
)

type zipEntry struct {
	name string
	data []byte
}

func zipBytes(t *testing.T, entries ...zipEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.Create(e.name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write(e.data); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// writeShapefile writes name.shp/.shx/.dbf into dir and returns the .shp and
// .dbf contents.
func writeShapefile(t *testing.T, dir, name string, typ shp.ShapeType, fields []shp.Field, shapes []shp.Shape, attrs [][]any) (shpData, dbfData []byte) {
	t.Helper()
	base := filepath.Join(dir, name)
	w, err := shp.Create(base+".shp", typ)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.SetFields(fields); err != nil {
		t.Fatal(err)
	}
	for i, s := range shapes {
		row := w.Write(s)
		for j, v := range attrs[i] {
			if err := w.WriteAttribute(int(row), j, v); err != nil {
				t.Fatal(err)
			}
		}
	}
	w.Close()

	// go-shp names the table "<base>dbf".
	if err := os.Rename(base+"dbf", base+".dbf"); err != nil {
		t.Fatal(err)
	}
	if shpData, err = os.ReadFile(base + ".shp"); err != nil {
		t.Fatal(err)
	}
	if dbfData, err = os.ReadFile(base + ".dbf"); err != nil {
		t.Fatal(err)
	}
	return shpData, dbfData
}

func citiesShapefile(t *testing.T, dir string) (shpData, dbfData []byte) {
	t.Helper()
	return writeShapefile(t, dir, "cities", shp.POINT,
		[]shp.Field{shp.StringField("name", 20), shp.NumberField("pop", 10)},
		[]shp.Shape{&shp.Point{X: 31.2357, Y: 30.0444}, &shp.Point{X: 29.9187, Y: 31.2001}},
		[][]any{{"Cairo", 9500000}, {"Alexandria", 5200000}},
	)
}

func parcelsShapefile(t *testing.T, dir string) (shpData, dbfData []byte) {
	t.Helper()
	outer := []shp.Point{{X: 0, Y: 0}, {X: 0, Y: 10}, {X: 10, Y: 10}, {X: 10, Y: 0}, {X: 0, Y: 0}}
	hole := []shp.Point{{X: 2, Y: 2}, {X: 4, Y: 2}, {X: 4, Y: 4}, {X: 2, Y: 4}, {X: 2, Y: 2}}
	poly := shp.Polygon(*shp.NewPolyLine([][]shp.Point{outer, hole}))
	return writeShapefile(t, dir, "parcels", shp.POLYGON,
		[]shp.Field{shp.StringField("code", 8)},
		[]shp.Shape{&poly},
		[][]any{{"P1"}},
	)
}

const sampleKML = `<?xml version="1.0" encoding="UTF-8"?>
<kml xmlns="http://www.opengis.net/kml/2.2" xmlns:gx="http://www.google.com/kml/ext/2.2">
<Document>
  <name>Sample</name>
  <Folder>
    <Placemark>
      <name>Cairo</name>
      <description>Capital</description>
      <ExtendedData><Data name="population"><value>9500000</value></Data></ExtendedData>
      <Point><coordinates>31.2357,30.0444,0</coordinates></Point>
    </Placemark>
    <Placemark>
      <name>Road</name>
      <LineString><coordinates>31.0,30.0 31.5,30.5
        32.0,31.0</coordinates></LineString>
    </Placemark>
  </Folder>
  <Placemark>
    <name>Block</name>
    <Polygon>
      <outerBoundaryIs><LinearRing><coordinates>0,0 10,0 10,10 0,10 0,0</coordinates></LinearRing></outerBoundaryIs>
      <innerBoundaryIs><LinearRing><coordinates>2,2 4,2 4,4 2,4 2,2</coordinates></LinearRing></innerBoundaryIs>
    </Polygon>
  </Placemark>
  <Placemark>
    <name>Pair</name>
    <MultiGeometry>
      <Point><coordinates>1,1</coordinates></Point>
      <Point><coordinates>2,2</coordinates></Point>
    </MultiGeometry>
  </Placemark>
  <Placemark>
    <name>Drive</name>
    <gx:Track>
      <when>2024-01-01T00:00:00Z</when>
      <gx:coord>31.0 30.0 0</gx:coord>
      <when>2024-01-01T00:01:00Z</when>
      <gx:coord>31.1 30.1 0</gx:coord>
    </gx:Track>
  </Placemark>
</Document>
</kml>`

const sampleGPX = `<?xml version="1.0"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
  <wpt lat="30.0444" lon="31.2357"><ele>23</ele><name>Cairo</name></wpt>
  <rte><name>Route</name>
    <rtept lat="30.0" lon="31.0"/><rtept lat="30.5" lon="31.5"/>
  </rte>
  <trk><name>Walk</name>
    <trkseg><trkpt lat="30.0" lon="31.0"><time>2024-01-01T00:00:00Z</time></trkpt><trkpt lat="30.1" lon="31.1"/></trkseg>
    <trkseg><trkpt lat="30.2" lon="31.2"/><trkpt lat="30.3" lon="31.3"/></trkseg>
  </trk>
</gpx>`

// sampleTopoJSON is quantized: arcs are delta encoded and scaled.
const sampleTopoJSON = `{
  "type": "Topology",
  "transform": {"scale": [0.5, 0.5], "translate": [10, 20]},
  "objects": {
    "zones": {"type": "GeometryCollection", "geometries": [
      {"type": "Polygon", "arcs": [[0]], "properties": {"name": "A"}},
      {"type": "LineString", "arcs": [-1], "properties": {"name": "edge"}}
    ]},
    "places": {"type": "Point", "coordinates": [2, 4], "properties": {"name": "P"}}
  },
  "arcs": [[[0, 0], [4, 0], [0, 4], [-4, 0], [0, -4]]]
}`
