package normalize

import (
	"bytes"
	"encoding/json"

	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/geoview/internal/geodata"
	"github.com/joeblew999/geoview/internal/validate"
)

type typeTag struct {
	Type string `json:"type"`
}

// decodeGeoJSON accepts a FeatureCollection, a Feature or a bare geometry.
// A .json file holding a TopoJSON topology is handed to the TopoJSON
// decoder.
func decodeGeoJSON(data []byte) (*geojson.FeatureCollection, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	var tag typeTag
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, formatErr(FormatGeoJSON, err)
	}
	if tag.Type == "Topology" {
		return decodeTopoJSON(data)
	}
	if err := validate.Document(data); err != nil {
		return nil, err
	}

	switch tag.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, schemaErr(FormatGeoJSON, "%v", err)
		}
		return ensureProperties(fc), nil
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, schemaErr(FormatGeoJSON, "%v", err)
		}
		return geodata.FromFeature(f), nil
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, schemaErr(FormatGeoJSON, "%v", err)
		}
		return geodata.FromGeometry(g.Geometry()), nil
	}
}
