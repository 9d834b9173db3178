package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/geoview/internal/geodata"
	"github.com/joeblew999/geoview/internal/registry"
)

type SearchInput struct {
	Field string `query:"field" required:"true" doc:"Property name" example:"name"`
	Value string `query:"value" required:"true" doc:"Substring to look for, ignoring case" example:"cai"`
}

type ActivateInput struct {
	Lon       float64 `query:"lon" required:"true" minimum:"-180" maximum:"180"`
	Lat       float64 `query:"lat" required:"true" minimum:"-90" maximum:"90"`
	Tolerance float64 `query:"tolerance" default:"0.0001" minimum:"0" doc:"Hit distance in degrees"`
}

// FeatureHit is a feature found by search or a map click.
type FeatureHit struct {
	registry.Match
	Properties geojson.Properties `json:"properties"`
	Geometry   string             `json:"geometry" doc:"Geometry kind"`
	Viewport   geodata.Viewport   `json:"viewport" doc:"Current view"`
}

func hit(m registry.Match, vp geodata.Viewport) FeatureHit {
	return FeatureHit{
		Match:      m,
		Properties: m.Feature.Properties,
		Geometry:   geodata.KindOf(m.Feature.Geometry).String(),
		Viewport:   vp,
	}
}

// RegisterSearch registers feature lookup routes.
func (h *APIHandler) RegisterSearch(api huma.API) {
	huma.Get(api, "/api/v1/search", h.Search, huma.OperationTags("search"))
	huma.Get(api, "/api/v1/activate", h.Activate, huma.OperationTags("search"))
}

// RegisterViewport registers map view routes.
func (h *APIHandler) RegisterViewport(api huma.API) {
	huma.Get(api, "/api/v1/viewport", h.GetViewport, huma.OperationTags("viewport"))
	huma.Put(api, "/api/v1/viewport", h.PutViewport, huma.OperationTags("viewport"))
}

// Search finds the first matching feature and zooms the view to it.
func (h *APIHandler) Search(ctx context.Context, input *SearchInput) (*struct{ Body FeatureHit }, error) {
	m, ok := h.svc.Registry.Find(input.Field, input.Value)
	if !ok {
		return nil, huma.Error404NotFound("no matching feature")
	}
	h.svc.Registry.ZoomTo(m)
	return &struct{ Body FeatureHit }{Body: hit(m, h.svc.Registry.Viewport())}, nil
}

func (h *APIHandler) Activate(ctx context.Context, input *ActivateInput) (*struct{ Body FeatureHit }, error) {
	m, ok := h.svc.Registry.Activate(orb.Point{input.Lon, input.Lat}, input.Tolerance)
	if !ok {
		return nil, huma.Error404NotFound("no feature at this point")
	}
	return &struct{ Body FeatureHit }{Body: hit(m, h.svc.Registry.Viewport())}, nil
}

func (h *APIHandler) GetViewport(ctx context.Context, input *struct{}) (*struct{ Body geodata.Viewport }, error) {
	return &struct{ Body geodata.Viewport }{Body: h.svc.Registry.Viewport()}, nil
}

func (h *APIHandler) PutViewport(ctx context.Context, input *struct{ Body geodata.Viewport }) (*struct{ Body geodata.Viewport }, error) {
	h.svc.Registry.SetViewport(input.Body)
	return &struct{ Body geodata.Viewport }{Body: h.svc.Registry.Viewport()}, nil
}
