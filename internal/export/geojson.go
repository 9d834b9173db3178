package export

import (
	"encoding/json"

	"github.com/paulmach/orb/geojson"
)

// GeoJSON serializes fc as "<name>.geojson".
func GeoJSON(name string, fc *geojson.FeatureCollection) (*File, error) {
	if fc == nil || len(fc.Features) == 0 {
		return nil, exportErr(FormatGeoJSON, -1, "layer has no features")
	}
	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return nil, exportErr(FormatGeoJSON, -1, "%v", err)
	}
	return &File{
		Name:        baseName(name) + ".geojson",
		ContentType: "application/geo+json",
		Data:        data,
	}, nil
}
