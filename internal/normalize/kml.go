package normalize

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

type kmlPlacemark struct {
	Name          string         `xml:"name"`
	Description   string         `xml:"description"`
	ExtendedData  kmlExtended    `xml:"ExtendedData"`
	Point         *kmlPoint      `xml:"Point"`
	LineString    *kmlLine       `xml:"LineString"`
	LinearRing    *kmlLine       `xml:"LinearRing"`
	Polygon       *kmlPolygon    `xml:"Polygon"`
	MultiGeometry *kmlMulti      `xml:"MultiGeometry"`
	Track         *kmlTrack      `xml:"Track"`
	MultiTrack    *kmlMultiTrack `xml:"MultiTrack"`
}

type kmlExtended struct {
	Data []struct {
		Name  string `xml:"name,attr"`
		Value string `xml:"value"`
	} `xml:"Data"`
	SchemaData []struct {
		SimpleData []struct {
			Name  string `xml:"name,attr"`
			Value string `xml:",chardata"`
		} `xml:"SimpleData"`
	} `xml:"SchemaData"`
}

type kmlPoint struct {
	Coordinates string `xml:"coordinates"`
}

type kmlLine struct {
	Coordinates string `xml:"coordinates"`
}

type kmlPolygon struct {
	Outer string   `xml:"outerBoundaryIs>LinearRing>coordinates"`
	Inner []string `xml:"innerBoundaryIs>LinearRing>coordinates"`
}

type kmlTrack struct {
	Coords []string `xml:"coord"`
}

type kmlMultiTrack struct {
	Tracks []kmlTrack `xml:"Track"`
}

type kmlMulti struct {
	Points   []kmlPoint   `xml:"Point"`
	Lines    []kmlLine    `xml:"LineString"`
	Polygons []kmlPolygon `xml:"Polygon"`
	Tracks   []kmlTrack   `xml:"Track"`
	Multi    []kmlMulti   `xml:"MultiGeometry"`
}

// decodeKML walks the document and converts every Placemark, however deeply
// it is nested in Folders or Documents.
func decodeKML(data []byte) (*geojson.FeatureCollection, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	fc := geojson.NewFeatureCollection()
	sawRoot := false

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, formatErr(FormatKML, err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if !sawRoot {
			sawRoot = true
			if se.Name.Local != "kml" {
				return nil, schemaErr(FormatKML, "root element is <%s>, not <kml>", se.Name.Local)
			}
			continue
		}
		if se.Name.Local != "Placemark" {
			continue
		}
		var pm kmlPlacemark
		if err := dec.DecodeElement(&pm, &se); err != nil {
			return nil, formatErr(FormatKML, err)
		}
		f := geojson.NewFeature(pm.geometry())
		f.Properties = pm.properties()
		fc.Append(f)
	}

	if !sawRoot {
		return nil, formatErr(FormatKML, errors.New("empty document"))
	}
	if len(fc.Features) == 0 {
		return nil, schemaErr(FormatKML, "no placemarks")
	}
	return fc, nil
}

// decodeKMZ unwraps the archive and decodes its first .kml entry.
func decodeKMZ(data []byte) (*geojson.FeatureCollection, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, formatErr(FormatKMZ, err)
	}
	for _, f := range zr.File {
		if strings.ToLower(path.Ext(f.Name)) != ".kml" || strings.HasPrefix(f.Name, "__MACOSX/") {
			continue
		}
		content, err := readZipFile(f)
		if err != nil {
			return nil, formatErr(FormatKMZ, err)
		}
		return decodeKML(content)
	}
	return nil, schemaErr(FormatKMZ, "archive holds no .kml file")
}

func (pm *kmlPlacemark) properties() geojson.Properties {
	props := geojson.Properties{}
	if name := strings.TrimSpace(pm.Name); name != "" {
		props["name"] = name
	}
	if desc := strings.TrimSpace(pm.Description); desc != "" {
		props["description"] = desc
	}
	for _, d := range pm.ExtendedData.Data {
		if d.Name != "" {
			props[d.Name] = strings.TrimSpace(d.Value)
		}
	}
	for _, sd := range pm.ExtendedData.SchemaData {
		for _, d := range sd.SimpleData {
			if d.Name != "" {
				props[d.Name] = strings.TrimSpace(d.Value)
			}
		}
	}
	return props
}

func (pm *kmlPlacemark) geometry() orb.Geometry {
	switch {
	case pm.Point != nil:
		return pm.Point.geometry()
	case pm.LineString != nil:
		return pm.LineString.geometry()
	case pm.LinearRing != nil:
		return pm.LinearRing.geometry()
	case pm.Polygon != nil:
		return pm.Polygon.geometry()
	case pm.MultiGeometry != nil:
		return pm.MultiGeometry.geometry()
	case pm.Track != nil:
		return pm.Track.geometry()
	case pm.MultiTrack != nil:
		return (&kmlMulti{Tracks: pm.MultiTrack.Tracks}).geometry()
	}
	return nil
}

func (p kmlPoint) geometry() orb.Geometry {
	pts := parseKMLCoords(p.Coordinates)
	if len(pts) == 0 {
		return nil
	}
	return pts[0]
}

func (l kmlLine) geometry() orb.Geometry {
	pts := parseKMLCoords(l.Coordinates)
	if len(pts) == 0 {
		return nil
	}
	return orb.LineString(pts)
}

func (p kmlPolygon) geometry() orb.Geometry {
	outer := parseKMLCoords(p.Outer)
	if len(outer) == 0 {
		return nil
	}
	poly := orb.Polygon{orb.Ring(outer)}
	for _, in := range p.Inner {
		if ring := parseKMLCoords(in); len(ring) > 0 {
			poly = append(poly, orb.Ring(ring))
		}
	}
	return poly
}

func (t kmlTrack) geometry() orb.Geometry {
	var ls orb.LineString
	for _, c := range t.Coords {
		fields := strings.Fields(c)
		if len(fields) < 2 {
			continue
		}
		lon, err1 := strconv.ParseFloat(fields[0], 64)
		lat, err2 := strconv.ParseFloat(fields[1], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		ls = append(ls, orb.Point{lon, lat})
	}
	if len(ls) == 0 {
		return nil
	}
	return ls
}

// geometry flattens nested MultiGeometry. Homogeneous members become the
// matching Multi kind; mixed members become a GeometryCollection.
func (m *kmlMulti) geometry() orb.Geometry {
	var members []orb.Geometry
	m.collect(&members)

	switch len(members) {
	case 0:
		return nil
	case 1:
		return members[0]
	}

	var (
		mp  orb.MultiPoint
		mls orb.MultiLineString
		mpg orb.MultiPolygon
	)
	for _, g := range members {
		switch g := g.(type) {
		case orb.Point:
			mp = append(mp, g)
		case orb.LineString:
			mls = append(mls, g)
		case orb.Polygon:
			mpg = append(mpg, g)
		}
	}
	switch len(members) {
	case len(mp):
		return mp
	case len(mls):
		return mls
	case len(mpg):
		return mpg
	}
	return orb.Collection(members)
}

func (m *kmlMulti) collect(out *[]orb.Geometry) {
	add := func(g orb.Geometry) {
		if g != nil {
			*out = append(*out, g)
		}
	}
	for _, p := range m.Points {
		add(p.geometry())
	}
	for _, l := range m.Lines {
		add(l.geometry())
	}
	for _, p := range m.Polygons {
		add(p.geometry())
	}
	for _, t := range m.Tracks {
		add(t.geometry())
	}
	for i := range m.Multi {
		m.Multi[i].collect(out)
	}
}

// parseKMLCoords reads whitespace separated "lon,lat[,alt]" tuples. Tuples
// that do not parse are skipped.
func parseKMLCoords(s string) []orb.Point {
	var pts []orb.Point
	for _, tuple := range strings.Fields(s) {
		parts := strings.Split(tuple, ",")
		if len(parts) < 2 {
			continue
		}
		lon, err1 := strconv.ParseFloat(parts[0], 64)
		lat, err2 := strconv.ParseFloat(parts[1], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		pts = append(pts, orb.Point{lon, lat})
	}
	return pts
}
