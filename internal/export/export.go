// Package export writes a stored layer back out as a downloadable file.
package export

import (
	"strings"
	"unicode"

	"github.com/paulmach/orb/geojson"
)

// Format names an export target.
type Format string

const (
	FormatGeoJSON   Format = "geojson"
	FormatShapefile Format = "shapefile"
)

// Formats lists the supported targets.
func Formats() []Format {
	return []Format{FormatGeoJSON, FormatShapefile}
}

// ParseFormat accepts a format name, case-insensitively. "shp" and "zip" are
// aliases for the Shapefile bundle.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "geojson", "json":
		return FormatGeoJSON, nil
	case "shapefile", "shp", "zip":
		return FormatShapefile, nil
	}
	return "", exportErr(Format(s), -1, "unknown export format")
}

// File is an export ready to hand to a browser download.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Layer exports fc in the given format under a file name derived from name.
func Layer(name string, fc *geojson.FeatureCollection, f Format) (*File, error) {
	switch f {
	case FormatGeoJSON:
		return GeoJSON(name, fc)
	case FormatShapefile:
		return Shapefile(name, fc)
	}
	return nil, exportErr(f, -1, "unknown export format")
}

// baseName turns a layer name into a safe file stem.
func baseName(name string) string {
	stem := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_', r == '.':
			return r
		case unicode.IsSpace(r):
			return '_'
		}
		return -1
	}, strings.TrimSpace(name))
	stem = strings.Trim(stem, ".")
	if stem == "" {
		return "layer"
	}
	return stem
}
