// Package normalize converts uploaded geodata files into the canonical
// feature collection.
//
// Each format has its own decoder. Decoders never touch the registry; they
// return a Result that the caller validates and stores. A Shapefile archive
// holding several layers yields Candidates instead of a Collection so the
// caller can pick one or merge them.
package normalize

import (
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/geoview/internal/geodata"
)

// Format identifies an input decoder.
type Format string

const (
	FormatGeoJSON   Format = "geojson"
	FormatShapefile Format = "shapefile"
	FormatKML       Format = "kml"
	FormatKMZ       Format = "kmz"
	FormatGPX       Format = "gpx"
	FormatCSV       Format = "csv"
	FormatTopoJSON  Format = "topojson"
	FormatWKT       Format = "wkt"
)

// extToFormat maps lower-case file extensions to decoders.
var extToFormat = map[string]Format{
	".geojson":  FormatGeoJSON,
	".json":     FormatGeoJSON,
	".zip":      FormatShapefile,
	".kml":      FormatKML,
	".kmz":      FormatKMZ,
	".gpx":      FormatGPX,
	".csv":      FormatCSV,
	".topojson": FormatTopoJSON,
	".wkt":      FormatWKT,
	".txt":      FormatWKT,
}

// Extensions lists the accepted file extensions.
func Extensions() []string {
	exts := make([]string, 0, len(extToFormat))
	for ext := range extToFormat {
		exts = append(exts, ext)
	}
	return exts
}

// Detect picks the decoder for a file name by its extension.
func Detect(filename string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	f, ok := extToFormat[ext]
	if !ok {
		return "", &UnsupportedFormatError{Ext: ext}
	}
	return f, nil
}

// Options tunes decoding.
type Options struct {
	// WKTProperties builds the properties of a feature decoded from one WKT
	// line. When nil the properties are {"wkt": line}.
	WKTProperties func(line string, g orb.Geometry) geojson.Properties
}

// Candidate is one layer found in a multi-layer archive.
type Candidate struct {
	Name    string                     `json:"name"`
	Summary string                     `json:"summary"`
	Count   int                        `json:"count"`
	Data    *geojson.FeatureCollection `json:"-"`
}

func newCandidate(name string, fc *geojson.FeatureCollection) Candidate {
	return Candidate{Name: name, Summary: geodata.Summary(fc), Count: len(fc.Features), Data: fc}
}

// Result is the output of a decoder. Exactly one of Collection and
// Candidates is set.
type Result struct {
	Collection *geojson.FeatureCollection
	Candidates []Candidate
	// Warnings lists recoverable problems, such as dropped WKT lines.
	Warnings []string
}

// File detects the format from filename and decodes data.
func File(filename string, data []byte, opts Options) (*Result, error) {
	f, err := Detect(filename)
	if err != nil {
		return nil, err
	}
	return Normalize(data, f, opts)
}

// Normalize decodes data as the given format.
func Normalize(data []byte, format Format, opts Options) (*Result, error) {
	switch format {
	case FormatGeoJSON:
		return single(decodeGeoJSON(data))
	case FormatShapefile:
		return decodeShapefileZip(data)
	case FormatKML:
		return single(decodeKML(data))
	case FormatKMZ:
		return single(decodeKMZ(data))
	case FormatGPX:
		return single(decodeGPX(data))
	case FormatCSV:
		return single(decodeCSV(data))
	case FormatTopoJSON:
		return single(decodeTopoJSON(data))
	case FormatWKT:
		return decodeWKT(data, opts)
	default:
		return nil, &UnsupportedFormatError{Ext: string(format)}
	}
}

func single(fc *geojson.FeatureCollection, err error) (*Result, error) {
	if err != nil {
		return nil, err
	}
	return &Result{Collection: fc}, nil
}

// ensureProperties gives every feature a non-nil property map.
func ensureProperties(fc *geojson.FeatureCollection) *geojson.FeatureCollection {
	for _, f := range fc.Features {
		if f != nil && f.Properties == nil {
			f.Properties = geojson.Properties{}
		}
	}
	return fc
}
