package normalize

import (
	"bytes"
	"encoding/xml"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

type gpxDoc struct {
	XMLName xml.Name
	Wpts    []gpxPoint `xml:"wpt"`
	Rtes    []gpxRoute `xml:"rte"`
	Trks    []gpxTrack `xml:"trk"`
}

type gpxPoint struct {
	Lat  float64  `xml:"lat,attr"`
	Lon  float64  `xml:"lon,attr"`
	Ele  *float64 `xml:"ele"`
	Time string   `xml:"time"`
	Name string   `xml:"name"`
	Desc string   `xml:"desc"`
	Sym  string   `xml:"sym"`
	Type string   `xml:"type"`
}

type gpxRoute struct {
	Name string     `xml:"name"`
	Desc string     `xml:"desc"`
	Type string     `xml:"type"`
	Pts  []gpxPoint `xml:"rtept"`
}

type gpxTrack struct {
	Name string `xml:"name"`
	Desc string `xml:"desc"`
	Type string `xml:"type"`
	Segs []struct {
		Pts []gpxPoint `xml:"trkpt"`
	} `xml:"trkseg"`
}

// decodeGPX emits waypoints, then routes, then tracks. A track with several
// segments becomes a MultiLineString.
func decodeGPX(data []byte) (*geojson.FeatureCollection, error) {
	var doc gpxDoc
	if err := xml.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil {
		return nil, formatErr(FormatGPX, err)
	}
	if doc.XMLName.Local != "gpx" {
		return nil, schemaErr(FormatGPX, "root element is <%s>, not <gpx>", doc.XMLName.Local)
	}

	fc := geojson.NewFeatureCollection()
	for _, w := range doc.Wpts {
		f := geojson.NewFeature(orb.Point{w.Lon, w.Lat})
		setText(f.Properties, "name", w.Name)
		setText(f.Properties, "desc", w.Desc)
		setText(f.Properties, "sym", w.Sym)
		setText(f.Properties, "type", w.Type)
		setText(f.Properties, "time", w.Time)
		if w.Ele != nil {
			f.Properties["ele"] = *w.Ele
		}
		fc.Append(f)
	}

	for _, r := range doc.Rtes {
		ls := gpxLine(r.Pts)
		if len(ls) == 0 {
			continue
		}
		f := geojson.NewFeature(ls)
		setText(f.Properties, "name", r.Name)
		setText(f.Properties, "desc", r.Desc)
		setText(f.Properties, "type", r.Type)
		fc.Append(f)
	}

	for _, t := range doc.Trks {
		var mls orb.MultiLineString
		for _, s := range t.Segs {
			if ls := gpxLine(s.Pts); len(ls) > 0 {
				mls = append(mls, ls)
			}
		}
		if len(mls) == 0 {
			continue
		}
		var g orb.Geometry = mls
		if len(mls) == 1 {
			g = mls[0]
		}
		f := geojson.NewFeature(g)
		setText(f.Properties, "name", t.Name)
		setText(f.Properties, "desc", t.Desc)
		setText(f.Properties, "type", t.Type)
		if start := gpxStart(t); start != "" {
			f.Properties["time"] = start
		}
		fc.Append(f)
	}

	if len(fc.Features) == 0 {
		return nil, schemaErr(FormatGPX, "no waypoints, routes or tracks")
	}
	return fc, nil
}

func gpxLine(pts []gpxPoint) orb.LineString {
	ls := make(orb.LineString, 0, len(pts))
	for _, p := range pts {
		ls = append(ls, orb.Point{p.Lon, p.Lat})
	}
	return ls
}

// gpxStart returns the timestamp of the first track point.
func gpxStart(t gpxTrack) string {
	for _, s := range t.Segs {
		if len(s.Pts) > 0 {
			return strings.TrimSpace(s.Pts[0].Time)
		}
	}
	return ""
}

func setText(props geojson.Properties, key, value string) {
	if v := strings.TrimSpace(value); v != "" {
		props[key] = v
	}
}
