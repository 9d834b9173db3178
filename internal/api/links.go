package api

import (
	"fmt"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/geoview/internal/humastar"
)

// links maps operation paths to their static Link header values.
var links = map[string][]string{
	"/health": {
		`</api/v1/info>; rel="info"`,
		`</api/v1/layers>; rel="layers"`,
		`</openapi.json>; rel="service-desc"`,
		`</docs>; rel="service-doc"`,
	},
	"/api/v1/info": {
		`</health>; rel="up"`,
	},
	"/api/v1/layers": {
		`</health>; rel="up"`,
		`</api/v1/uploads>; rel="create-form"`,
		`</api/v1/viewport>; rel="viewport"`,
		`</api/v1/events>; rel="events"`,
		`</api/v1/search>; rel="search"`,
	},
	"/api/v1/layers/{id}": {
		`</api/v1/layers>; rel="collection"`,
	},
	"/api/v1/viewport": {
		`</api/v1/layers>; rel="layers"`,
	},
	"/api/v1/session/load": {
		`</api/v1/layers>; rel="layers"`,
	},
}

// LinkTransformer returns the Huma Transformer adding Link headers to API
// responses.
func LinkTransformer() huma.Transformer {
	return humastar.LinkTransformer(links)
}

// Actions lists what can be done with the layer next. Hidden layers offer
// show instead of hide and have no render style.
func (s LayerSummary) Actions() []humastar.Action {
	item := "/api/v1/layers/" + s.ID
	actions := []humastar.Action{
		{Rel: "item", Href: item},
		{Rel: "edit", Href: item + "/style", Method: "PUT", Title: "Restyle layer"},
		{Rel: "delete", Href: item, Method: "DELETE", Title: "Remove layer"},
		{Rel: "export", Href: item + "/export?format=geojson", Title: "Download GeoJSON"},
		{Rel: "export", Href: item + "/export?format=shapefile", Title: "Download Shapefile"},
	}
	if s.Visible {
		actions = append(actions,
			humastar.Action{Rel: "hide", Href: item + "/visibility", Method: "PUT", Title: "Hide layer"},
			humastar.Action{Rel: "render", Href: fmt.Sprintf("/api/v1/render/%s/style", s.ID)},
		)
	} else {
		actions = append(actions, humastar.Action{Rel: "show", Href: item + "/visibility", Method: "PUT", Title: "Show layer"})
	}
	return actions
}
