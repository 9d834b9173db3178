package export

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	shp "github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// wgs84 is written as the .prj of every sub-layer.
const wgs84 = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`

const maxFieldSize = 254

// subLayer is one shape type of the bundle.
type subLayer struct {
	name     string
	typ      shp.ShapeType
	shapes   []shp.Shape
	features []*geojson.Feature
}

// Shapefile writes fc as a zip holding points, multipoints, lines and
// polygons sub-layers; sub-layers with no features are left out. Features
// whose geometry has no Shapefile shape fail the whole export.
func Shapefile(name string, fc *geojson.FeatureCollection) (*File, error) {
	if fc == nil || len(fc.Features) == 0 {
		return nil, exportErr(FormatShapefile, -1, "layer has no features")
	}

	layers := []*subLayer{
		{name: "points", typ: shp.POINT},
		{name: "multipoints", typ: shp.MULTIPOINT},
		{name: "lines", typ: shp.POLYLINE},
		{name: "polygons", typ: shp.POLYGON},
	}
	for i, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			return nil, exportErr(FormatShapefile, i, "null geometry has no Shapefile representation")
		}
		s, idx, err := toShape(f.Geometry)
		if err != nil {
			return nil, exportErr(FormatShapefile, i, "%v", err)
		}
		layers[idx].shapes = append(layers[idx].shapes, s)
		layers[idx].features = append(layers[idx].features, f)
	}

	dir, err := os.MkdirTemp("", "geoview-shp-")
	if err != nil {
		return nil, exportErr(FormatShapefile, -1, "%v", err)
	}
	defer os.RemoveAll(dir)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, l := range layers {
		if len(l.shapes) == 0 {
			continue
		}
		if err := writeSubLayer(dir, l); err != nil {
			return nil, exportErr(FormatShapefile, -1, "%s: %v", l.name, err)
		}
		for _, ext := range []string{".shp", ".shx", ".dbf", ".prj", ".cpg"} {
			if err := addFile(zw, filepath.Join(dir, l.name+ext), l.name+ext); err != nil {
				return nil, exportErr(FormatShapefile, -1, "%v", err)
			}
		}
	}
	if err := zw.Close(); err != nil {
		return nil, exportErr(FormatShapefile, -1, "%v", err)
	}

	return &File{
		Name:        baseName(name) + ".zip",
		ContentType: "application/zip",
		Data:        buf.Bytes(),
	}, nil
}

// toShape converts g and returns the index of the sub-layer it belongs to.
func toShape(g orb.Geometry) (shp.Shape, int, error) {
	switch g := g.(type) {
	case orb.Point:
		return &shp.Point{X: g[0], Y: g[1]}, 0, nil
	case orb.MultiPoint:
		if len(g) == 0 {
			return nil, 0, fmt.Errorf("empty MultiPoint")
		}
		pts := toPoints(g)
		return &shp.MultiPoint{Box: shp.BBoxFromPoints(pts), NumPoints: int32(len(pts)), Points: pts}, 1, nil
	case orb.LineString:
		return lineShape([]orb.LineString{g})
	case orb.MultiLineString:
		return lineShape(g)
	case orb.Polygon:
		return polygonShape([]orb.Polygon{g})
	case orb.MultiPolygon:
		return polygonShape(g)
	case orb.Collection:
		return nil, 0, fmt.Errorf("GeometryCollection has no Shapefile representation")
	}
	return nil, 0, fmt.Errorf("unsupported geometry %T", g)
}

func lineShape(ls []orb.LineString) (shp.Shape, int, error) {
	var parts [][]shp.Point
	for _, l := range ls {
		if len(l) > 0 {
			parts = append(parts, toPoints(l))
		}
	}
	if len(parts) == 0 {
		return nil, 0, fmt.Errorf("empty line")
	}
	return shp.NewPolyLine(parts), 2, nil
}

// polygonShape writes outer rings clockwise and holes counter-clockwise, the
// orientation readers use to tell them apart.
func polygonShape(ps []orb.Polygon) (shp.Shape, int, error) {
	var parts [][]shp.Point
	for _, p := range ps {
		for i, r := range p {
			if len(r) == 0 {
				continue
			}
			want := orb.CW
			if i > 0 {
				want = orb.CCW
			}
			parts = append(parts, toPoints(orient(r, want)))
		}
	}
	if len(parts) == 0 {
		return nil, 0, fmt.Errorf("empty polygon")
	}
	return (*shp.Polygon)(shp.NewPolyLine(parts)), 3, nil
}

func orient(r orb.Ring, want orb.Orientation) orb.Ring {
	if !r.Closed() {
		r = append(r.Clone(), r[0])
	}
	if r.Orientation() == want || r.Orientation() == 0 {
		return r
	}
	out := r.Clone()
	out.Reverse()
	return out
}

func toPoints[T ~[]orb.Point](pts T) []shp.Point {
	out := make([]shp.Point, len(pts))
	for i, p := range pts {
		out[i] = shp.Point{X: p[0], Y: p[1]}
	}
	return out
}

func writeSubLayer(dir string, l *subLayer) error {
	base := filepath.Join(dir, l.name)
	w, err := shp.Create(base+".shp", l.typ)
	if err != nil {
		return err
	}
	cols := columnsFor(l.features)
	fields := make([]shp.Field, len(cols))
	for i, c := range cols {
		fields[i] = c.field
	}
	if err := w.SetFields(fields); err != nil {
		w.Close()
		return err
	}
	for i, s := range l.shapes {
		row := int(w.Write(s))
		for j, c := range cols {
			v, ok := c.cell(l.features[i].Properties[c.key])
			if !ok {
				continue
			}
			if err := w.WriteAttribute(row, j, v); err != nil {
				w.Close()
				return err
			}
		}
	}
	w.Close()

	// go-shp names the table "<base>dbf".
	if err := os.Rename(base+"dbf", base+".dbf"); err != nil {
		return err
	}
	if err := os.WriteFile(base+".prj", []byte(wgs84), 0o644); err != nil {
		return err
	}
	return os.WriteFile(base+".cpg", []byte("UTF-8"), 0o644)
}

func addFile(zw *zip.Writer, src, name string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

type columnKind int

const (
	colString columnKind = iota
	colNumber
	colBool
)

// column maps one property key to a DBF field.
type column struct {
	key       string
	kind      columnKind
	precision int
	field     shp.Field
}

// columnsFor builds one field per property key used by any feature, sorted
// by key. A key whose values are all numbers becomes a numeric field, all
// booleans a logical field, anything else text.
func columnsFor(features []*geojson.Feature) []column {
	kinds := map[string]map[columnKind]bool{}
	for _, f := range features {
		for k, v := range f.Properties {
			if kinds[k] == nil {
				kinds[k] = map[columnKind]bool{}
			}
			switch v.(type) {
			case nil:
			case float64:
				kinds[k][colNumber] = true
			case bool:
				kinds[k][colBool] = true
			default:
				kinds[k][colString] = true
			}
		}
	}

	keys := make([]string, 0, len(kinds))
	for k := range kinds {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	used := map[string]bool{}
	cols := make([]column, 0, len(keys))
	for _, k := range keys {
		c := column{key: k, kind: colString}
		if len(kinds[k]) == 1 {
			switch {
			case kinds[k][colNumber]:
				c.kind = colNumber
			case kinds[k][colBool]:
				c.kind = colBool
			}
		}
		name := fieldName(k, used)

		switch c.kind {
		case colNumber:
			size := 1
			for _, f := range features {
				if v, ok := f.Properties[k].(float64); ok {
					c.precision = max(c.precision, decimals(v))
				}
			}
			for _, f := range features {
				if v, ok := f.Properties[k].(float64); ok {
					size = max(size, len(strconv.FormatFloat(v, 'f', c.precision, 64)))
				}
			}
			if size > maxFieldSize {
				c.kind = colString
				break
			}
			if c.precision == 0 {
				c.field = shp.NumberField(name, uint8(size))
			} else {
				c.field = shp.FloatField(name, uint8(size), uint8(c.precision))
			}
		case colBool:
			c.field = shp.Field{Fieldtype: 'L', Size: 1}
			copy(c.field.Name[:], name)
		}
		if c.kind == colString {
			size := 1
			for _, f := range features {
				if s, ok := text(f.Properties[k]); ok {
					size = max(size, len(s))
				}
			}
			c.field = shp.StringField(name, uint8(min(size, maxFieldSize)))
		}
		cols = append(cols, c)
	}
	return cols
}

// cell returns the value to write for v, or false to leave the cell blank.
func (c column) cell(v any) (any, bool) {
	if v == nil {
		return nil, false
	}
	switch c.kind {
	case colNumber:
		return v.(float64), true
	case colBool:
		if v.(bool) {
			return "T", true
		}
		return "F", true
	}
	s, ok := text(v)
	if !ok {
		return nil, false
	}
	return truncate(s, int(c.field.Size)), true
}

func text(v any) (string, bool) {
	switch v := v.(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v), true
	}
	return string(b), true
}

// decimals is the number of fraction digits needed to write v exactly,
// capped at 15.
func decimals(v float64) int {
	if math.IsInf(v, 0) || math.IsNaN(v) || v == math.Trunc(v) {
		return 0
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return min(len(s)-i-1, 15)
	}
	return 0
}

// fieldName fits key into the 10 byte DBF name, suffixing duplicates.
func fieldName(key string, used map[string]bool) string {
	name := strings.Map(func(r rune) rune {
		if r < utf8.RuneSelf && r > ' ' {
			return r
		}
		return '_'
	}, key)
	if name == "" {
		name = "field"
	}
	if len(name) > 10 {
		name = name[:10]
	}
	stem := name
	for n := 1; used[strings.ToUpper(name)]; n++ {
		suffix := strconv.Itoa(n)
		name = stem[:min(len(stem), 10-len(suffix))] + suffix
	}
	used[strings.ToUpper(name)] = true
	return name
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
