package normalize

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	shp "github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// shapeBundle is the set of sidecar files sharing one base name.
type shapeBundle struct {
	name string
	shp  []byte
	dbf  []byte
	prj  []byte
}

// decodeShapefileZip turns every .shp in the archive into a layer. A single
// layer becomes the Collection; several are returned as Candidates.
func decodeShapefileZip(data []byte) (*Result, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, formatErr(FormatShapefile, err)
	}

	bundles, err := collectBundles(zr)
	if err != nil {
		return nil, formatErr(FormatShapefile, err)
	}
	if len(bundles) == 0 {
		return nil, schemaErr(FormatShapefile, "archive holds no .shp file")
	}

	res := &Result{}
	for _, b := range bundles {
		fc, err := readShapefile(b.shp, b.dbf)
		if err != nil {
			return nil, formatErr(FormatShapefile, fmt.Errorf("%s: %w", b.name, err))
		}
		if len(fc.Features) == 0 {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: no shapes", b.name))
			continue
		}
		if b.dbf == nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: no .dbf, attributes empty", b.name))
		}
		if len(b.prj) > 0 && !strings.HasPrefix(strings.TrimSpace(string(b.prj)), "GEOGCS") {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: projected coordinate system, coordinates used as-is", b.name))
		}
		res.Candidates = append(res.Candidates, newCandidate(b.name, fc))
	}

	switch len(res.Candidates) {
	case 0:
		return nil, schemaErr(FormatShapefile, "archive holds no shapes")
	case 1:
		res.Collection = res.Candidates[0].Data
		res.Candidates = nil
	}
	return res, nil
}

// collectBundles groups archive entries by path without extension, in
// archive order of their .shp entries.
func collectBundles(zr *zip.Reader) ([]*shapeBundle, error) {
	byBase := map[string]*shapeBundle{}
	var order []string

	for _, f := range zr.File {
		if f.FileInfo().IsDir() || strings.HasPrefix(f.Name, "__MACOSX/") {
			continue
		}
		ext := strings.ToLower(path.Ext(f.Name))
		if ext != ".shp" && ext != ".dbf" && ext != ".prj" {
			continue
		}
		base := strings.ToLower(strings.TrimSuffix(f.Name, path.Ext(f.Name)))
		b, ok := byBase[base]
		if !ok {
			b = &shapeBundle{name: strings.TrimSuffix(path.Base(f.Name), path.Ext(f.Name))}
			byBase[base] = b
		}

		content, err := readZipFile(f)
		if err != nil {
			return nil, err
		}
		switch ext {
		case ".shp":
			b.shp = content
			b.name = strings.TrimSuffix(path.Base(f.Name), path.Ext(f.Name))
			order = append(order, base)
		case ".dbf":
			b.dbf = content
		case ".prj":
			b.prj = content
		}
	}

	bundles := make([]*shapeBundle, 0, len(order))
	for _, base := range order {
		bundles = append(bundles, byBase[base])
	}
	return bundles, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func readShapefile(shpData, dbfData []byte) (fc *geojson.FeatureCollection, err error) {
	var dbf io.Reader
	if dbfData != nil {
		dbf = bytes.NewReader(dbfData)
	} else {
		dbf = emptyDBF()
	}

	sr := shp.SequentialReaderFromExt(io.NopCloser(bytes.NewReader(shpData)), io.NopCloser(dbf))
	defer sr.Close()

	// go-shp slices attribute rows without bounds checks.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("corrupt shapefile: %v", r)
		}
	}()

	fields := sr.Fields()
	fc = geojson.NewFeatureCollection()
	for sr.Next() {
		_, shape := sr.Shape()
		f := geojson.NewFeature(shapeGeometry(shape))
		for i, field := range fields {
			f.Properties[field.String()] = attributeValue(field, sr.Attribute(i))
		}
		fc.Append(f)
	}
	if err := sr.Err(); err != nil {
		return nil, err
	}
	return fc, nil
}

// emptyDBF is a zero-field table whose rows are endless one-byte records
// marked as not deleted. It stands in for a missing .dbf.
func emptyDBF() io.Reader {
	header := make([]byte, 33)
	header[0] = 0x03
	binary.LittleEndian.PutUint16(header[8:], 33)
	binary.LittleEndian.PutUint16(header[10:], 1)
	header[32] = 0x0d
	return io.MultiReader(bytes.NewReader(header), blanks{})
}

type blanks struct{}

func (blanks) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = ' '
	}
	return len(p), nil
}

// attributeValue types a DBF cell. Writers pad cells with spaces or NULs.
func attributeValue(f shp.Field, raw string) any {
	raw = strings.Trim(raw, " \x00")
	switch f.Fieldtype {
	case 'N', 'F':
		if raw == "" {
			return nil
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return raw
		}
		return v
	case 'L':
		switch strings.ToUpper(raw) {
		case "T", "Y":
			return true
		case "F", "N":
			return false
		}
		return nil
	default:
		return raw
	}
}

func shapeGeometry(s shp.Shape) orb.Geometry {
	switch s := s.(type) {
	case *shp.Point:
		return orb.Point{s.X, s.Y}
	case *shp.PointZ:
		return orb.Point{s.X, s.Y}
	case *shp.PointM:
		return orb.Point{s.X, s.Y}
	case *shp.MultiPoint:
		return multiPoint(s.Points)
	case *shp.MultiPointZ:
		return multiPoint(s.Points)
	case *shp.MultiPointM:
		return multiPoint(s.Points)
	case *shp.PolyLine:
		return lines(s.Parts, s.Points)
	case *shp.PolyLineZ:
		return lines(s.Parts, s.Points)
	case *shp.PolyLineM:
		return lines(s.Parts, s.Points)
	case *shp.Polygon:
		return polygons(s.Parts, s.Points)
	case *shp.PolygonZ:
		return polygons(s.Parts, s.Points)
	case *shp.PolygonM:
		return polygons(s.Parts, s.Points)
	default:
		// Null and MultiPatch shapes carry no usable geometry.
		return nil
	}
}

func multiPoint(pts []shp.Point) orb.Geometry {
	mp := make(orb.MultiPoint, len(pts))
	for i, p := range pts {
		mp[i] = orb.Point{p.X, p.Y}
	}
	return mp
}

// splitParts cuts the flat point list at the part offsets.
func splitParts(parts []int32, pts []shp.Point) [][]orb.Point {
	out := make([][]orb.Point, 0, len(parts))
	for i, start := range parts {
		end := int32(len(pts))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start < 0 || end > int32(len(pts)) || start >= end {
			continue
		}
		part := make([]orb.Point, 0, end-start)
		for _, p := range pts[start:end] {
			part = append(part, orb.Point{p.X, p.Y})
		}
		out = append(out, part)
	}
	return out
}

func lines(parts []int32, pts []shp.Point) orb.Geometry {
	split := splitParts(parts, pts)
	if len(split) == 0 {
		return nil
	}
	if len(split) == 1 {
		return orb.LineString(split[0])
	}
	mls := make(orb.MultiLineString, len(split))
	for i, p := range split {
		mls[i] = orb.LineString(p)
	}
	return mls
}

// polygons assembles rings into polygons. Clockwise rings are outer
// boundaries; counter-clockwise rings are holes of the first outer ring that
// contains them. A hole with no container becomes its own polygon.
func polygons(parts []int32, pts []shp.Point) orb.Geometry {
	var polys orb.MultiPolygon
	var holes []orb.Ring

	for _, p := range splitParts(parts, pts) {
		r := orb.Ring(p)
		if r.Orientation() == orb.CCW {
			holes = append(holes, r)
			continue
		}
		polys = append(polys, orb.Polygon{r})
	}

	for _, h := range holes {
		placed := false
		for i, poly := range polys {
			if planar.RingContains(poly[0], h[0]) {
				polys[i] = append(polys[i], h)
				placed = true
				break
			}
		}
		if !placed {
			h.Reverse()
			polys = append(polys, orb.Polygon{h})
		}
	}

	switch len(polys) {
	case 0:
		return nil
	case 1:
		return polys[0]
	default:
		return polys
	}
}
