package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

type topology struct {
	Type      string          `json:"type"`
	Transform *topoTransform  `json:"transform"`
	Arcs      [][][]float64   `json:"arcs"`
	Objects   json.RawMessage `json:"objects"`
}

type topoTransform struct {
	Scale     [2]float64 `json:"scale"`
	Translate [2]float64 `json:"translate"`
}

type topoGeometry struct {
	Type        string          `json:"type"`
	ID          any             `json:"id"`
	Properties  map[string]any  `json:"properties"`
	Arcs        json.RawMessage `json:"arcs"`
	Coordinates json.RawMessage `json:"coordinates"`
	Geometries  []topoGeometry  `json:"geometries"`
}

// decodeTopoJSON converts every named object of the topology and merges the
// features in document order.
func decodeTopoJSON(data []byte) (*geojson.FeatureCollection, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	var topo topology
	if err := json.Unmarshal(data, &topo); err != nil {
		return nil, formatErr(FormatTopoJSON, err)
	}
	if topo.Type != "Topology" {
		return nil, schemaErr(FormatTopoJSON, "type is %q, not Topology", topo.Type)
	}

	names, objects, err := orderedObjects(topo.Objects)
	if err != nil {
		return nil, formatErr(FormatTopoJSON, err)
	}

	d := &topoDecoder{arcs: topo.decodedArcs(), transform: topo.Transform}
	fc := geojson.NewFeatureCollection()
	for _, name := range names {
		var obj topoGeometry
		if err := json.Unmarshal(objects[name], &obj); err != nil {
			return nil, formatErr(FormatTopoJSON, fmt.Errorf("object %q: %w", name, err))
		}
		members := []topoGeometry{obj}
		if obj.Type == "GeometryCollection" {
			members = obj.Geometries
		}
		for _, m := range members {
			g, err := d.geometry(m)
			if err != nil {
				return nil, schemaErr(FormatTopoJSON, "object %q: %v", name, err)
			}
			f := geojson.NewFeature(g)
			f.ID = m.ID
			for k, v := range m.Properties {
				f.Properties[k] = v
			}
			fc.Append(f)
		}
	}

	if len(fc.Features) == 0 {
		return nil, schemaErr(FormatTopoJSON, "topology has no objects")
	}
	return fc, nil
}

// orderedObjects returns the keys of a JSON object in document order.
func orderedObjects(raw json.RawMessage) ([]string, map[string]json.RawMessage, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil, nil, errors.New("objects is not a JSON object")
	}

	var names []string
	objects := map[string]json.RawMessage{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		name, _ := tok.(string)
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, nil, err
		}
		if _, dup := objects[name]; !dup {
			names = append(names, name)
		}
		objects[name] = v
	}
	return names, objects, nil
}

// decodedArcs resolves delta encoding and the quantization transform.
func (t *topology) decodedArcs() [][]orb.Point {
	arcs := make([][]orb.Point, len(t.Arcs))
	for i, arc := range t.Arcs {
		pts := make([]orb.Point, 0, len(arc))
		var x, y float64
		for _, pos := range arc {
			if len(pos) < 2 {
				continue
			}
			if t.Transform == nil {
				pts = append(pts, orb.Point{pos[0], pos[1]})
				continue
			}
			x += pos[0]
			y += pos[1]
			pts = append(pts, orb.Point{
				x*t.Transform.Scale[0] + t.Transform.Translate[0],
				y*t.Transform.Scale[1] + t.Transform.Translate[1],
			})
		}
		arcs[i] = pts
	}
	return arcs
}

type topoDecoder struct {
	arcs      [][]orb.Point
	transform *topoTransform
}

func (d *topoDecoder) position(pos []float64) (orb.Point, error) {
	if len(pos) < 2 {
		return orb.Point{}, errors.New("position needs two numbers")
	}
	if d.transform == nil {
		return orb.Point{pos[0], pos[1]}, nil
	}
	return orb.Point{
		pos[0]*d.transform.Scale[0] + d.transform.Translate[0],
		pos[1]*d.transform.Scale[1] + d.transform.Translate[1],
	}, nil
}

// line stitches arcs together. A negative index ~i walks arc i backwards.
// The first point of every arc after the first repeats the previous end and
// is dropped.
func (d *topoDecoder) line(indexes []int) ([]orb.Point, error) {
	var pts []orb.Point
	for _, idx := range indexes {
		reverse := idx < 0
		if reverse {
			idx = ^idx
		}
		if idx >= len(d.arcs) {
			return nil, fmt.Errorf("arc %d out of range", idx)
		}
		arc := d.arcs[idx]
		if reverse {
			rev := make([]orb.Point, len(arc))
			for i, p := range arc {
				rev[len(arc)-1-i] = p
			}
			arc = rev
		}
		if len(pts) > 0 && len(arc) > 0 {
			arc = arc[1:]
		}
		pts = append(pts, arc...)
	}
	return pts, nil
}

func (d *topoDecoder) polygon(rings [][]int) (orb.Polygon, error) {
	poly := make(orb.Polygon, 0, len(rings))
	for _, r := range rings {
		pts, err := d.line(r)
		if err != nil {
			return nil, err
		}
		poly = append(poly, orb.Ring(pts))
	}
	return poly, nil
}

func (d *topoDecoder) geometry(g topoGeometry) (orb.Geometry, error) {
	switch g.Type {
	case "", "null":
		return nil, nil
	case "Point":
		var pos []float64
		if err := json.Unmarshal(g.Coordinates, &pos); err != nil {
			return nil, err
		}
		return d.position(pos)
	case "MultiPoint":
		var positions [][]float64
		if err := json.Unmarshal(g.Coordinates, &positions); err != nil {
			return nil, err
		}
		mp := make(orb.MultiPoint, 0, len(positions))
		for _, pos := range positions {
			p, err := d.position(pos)
			if err != nil {
				return nil, err
			}
			mp = append(mp, p)
		}
		return mp, nil
	case "LineString":
		var idx []int
		if err := json.Unmarshal(g.Arcs, &idx); err != nil {
			return nil, err
		}
		pts, err := d.line(idx)
		return orb.LineString(pts), err
	case "MultiLineString":
		var idx [][]int
		if err := json.Unmarshal(g.Arcs, &idx); err != nil {
			return nil, err
		}
		mls := make(orb.MultiLineString, 0, len(idx))
		for _, l := range idx {
			pts, err := d.line(l)
			if err != nil {
				return nil, err
			}
			mls = append(mls, pts)
		}
		return mls, nil
	case "Polygon":
		var idx [][]int
		if err := json.Unmarshal(g.Arcs, &idx); err != nil {
			return nil, err
		}
		return d.polygon(idx)
	case "MultiPolygon":
		var idx [][][]int
		if err := json.Unmarshal(g.Arcs, &idx); err != nil {
			return nil, err
		}
		mp := make(orb.MultiPolygon, 0, len(idx))
		for _, rings := range idx {
			poly, err := d.polygon(rings)
			if err != nil {
				return nil, err
			}
			mp = append(mp, poly)
		}
		return mp, nil
	case "GeometryCollection":
		c := make(orb.Collection, 0, len(g.Geometries))
		for _, m := range g.Geometries {
			mg, err := d.geometry(m)
			if err != nil {
				return nil, err
			}
			if mg != nil {
				c = append(c, mg)
			}
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown geometry type %q", g.Type)
	}
}
