// Package api defines the Huma API routes and handlers.
package api

import (
	"context"
	"encoding/json"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/geoview/internal/geodata"
	"github.com/joeblew999/geoview/internal/ingest"
	"github.com/joeblew999/geoview/internal/normalize"
	"github.com/joeblew999/geoview/internal/registry"
	"github.com/joeblew999/geoview/internal/session"
	"github.com/joeblew999/geoview/internal/style"
)

// Version is reported by /health and /api/v1/info.
const Version = "1.0.0"

// TileURL is the tile template handed to the browser map.
const TileURL = "/api/v1/render/{id}/tiles/{z}/{x}/{y}"

// Services holds the service dependencies for API handlers.
type Services struct {
	Registry *registry.Registry
	Ingest   *ingest.Service
	Session  *session.Codec
}

// Types

type IDInput struct {
	ID string `path:"id" doc:"Layer ID" example:"layer_1_3f2a9c1e"`
}

type MessageBody struct {
	Message string `json:"message" doc:"Result message"`
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"1.0.0"`
}

// LayerSummary is a layer as listed in the layer panel.
type LayerSummary struct {
	ID       string           `json:"id" doc:"Layer ID"`
	Name     string           `json:"name" doc:"Display name"`
	Visible  bool             `json:"visible" doc:"Whether the layer is drawn"`
	Style    style.Descriptor `json:"style"`
	Features int              `json:"features" doc:"Feature count"`
	Geometry string           `json:"geometry" doc:"Geometry summary" example:"Point"`
	Bounds   []float64        `json:"bounds,omitempty" doc:"minLon, minLat, maxLon, maxLat"`
}

// LayerDetail is a layer with its data.
type LayerDetail struct {
	LayerSummary
	Data *geojson.FeatureCollection `json:"data"`
}

type CreateLayerBody struct {
	Name  string         `json:"name" minLength:"1" doc:"Display name"`
	Data  map[string]any `json:"data" doc:"GeoJSON FeatureCollection, Feature or geometry"`
	Style map[string]any `json:"style,omitempty" doc:"Style fields to override"`
}

type CreatedLayerBody struct {
	ID       string           `json:"id" doc:"Generated layer ID"`
	Layer    LayerSummary     `json:"layer"`
	Viewport geodata.Viewport `json:"viewport" doc:"View after fitting to the layer"`
}

type VisibilityBody struct {
	Visible bool `json:"visible" doc:"Show or hide the layer"`
}

func summarize(l registry.Layer) LayerSummary {
	s := LayerSummary{
		ID:       l.ID,
		Name:     l.Name,
		Visible:  l.Visible,
		Style:    l.Style,
		Features: len(l.Data.Features),
		Geometry: geodata.Summary(l.Data),
	}
	if b, ok := geodata.Bounds(l.Data); ok {
		s.Bounds = []float64{b.Min[0], b.Min[1], b.Max[0], b.Max[1]}
	}
	return s
}

func summaries(layers []registry.Layer) []LayerSummary {
	out := make([]LayerSummary, 0, len(layers))
	for _, l := range layers {
		out = append(out, summarize(l))
	}
	return out
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// RegisterRoutes registers every API route on api.
func RegisterRoutes(api huma.API, svc *Services, info InfoBody) {
	huma.AutoRegister(api, NewAPIHandler(svc))
	NewInfoHandler(info).RegisterRoutes(api)
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterLayers registers layer routes.
func (h *APIHandler) RegisterLayers(api huma.API) {
	huma.Get(api, "/api/v1/layers", h.GetLayers, huma.OperationTags("layers"))
	huma.Post(api, "/api/v1/layers", h.CreateLayer, huma.OperationTags("layers"))
	huma.Delete(api, "/api/v1/layers", h.ClearLayers, huma.OperationTags("layers"))
	huma.Get(api, "/api/v1/layers/{id}", h.GetLayer, huma.OperationTags("layers"))
	huma.Put(api, "/api/v1/layers/{id}/visibility", h.PutVisibility, huma.OperationTags("layers"))
	huma.Put(api, "/api/v1/layers/{id}/style", h.PutStyle, huma.OperationTags("layers"))
	huma.Delete(api, "/api/v1/layers/{id}", h.DeleteLayer, huma.OperationTags("layers"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: Version}}, nil
}

func (h *APIHandler) GetLayers(ctx context.Context, input *struct{}) (*struct{ Body []LayerSummary }, error) {
	return &struct{ Body []LayerSummary }{Body: summaries(h.svc.Registry.List())}, nil
}

func (h *APIHandler) CreateLayer(ctx context.Context, input *struct{ Body CreateLayerBody }) (*struct{ Body CreatedLayerBody }, error) {
	raw, err := json.Marshal(input.Body.Data)
	if err != nil {
		return nil, huma.Error400BadRequest("data is not JSON", err)
	}
	res, err := normalize.Normalize(raw, normalize.FormatGeoJSON, normalize.Options{})
	if err != nil {
		return nil, httpError(err)
	}
	st, err := style.Parse(input.Body.Style)
	if err != nil {
		return nil, httpError(err)
	}
	id, err := h.svc.Registry.Add(res.Collection, input.Body.Name, st)
	if err != nil {
		return nil, httpError(err)
	}
	layer, _ := h.svc.Registry.Get(id)
	return &struct{ Body CreatedLayerBody }{Body: CreatedLayerBody{
		ID: id, Layer: summarize(layer), Viewport: h.svc.Registry.Viewport(),
	}}, nil
}

func (h *APIHandler) ClearLayers(ctx context.Context, input *struct{}) (*struct{ Body MessageBody }, error) {
	h.svc.Registry.Clear()
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Layers cleared"}}, nil
}

func (h *APIHandler) GetLayer(ctx context.Context, input *IDInput) (*struct{ Body LayerDetail }, error) {
	layer, ok := h.svc.Registry.Get(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("layer not found")
	}
	return &struct{ Body LayerDetail }{Body: LayerDetail{LayerSummary: summarize(layer), Data: layer.Data}}, nil
}

func (h *APIHandler) PutVisibility(ctx context.Context, input *struct {
	IDInput
	Body VisibilityBody
}) (*struct{ Body LayerSummary }, error) {
	if _, ok := h.svc.Registry.Get(input.ID); !ok {
		return nil, huma.Error404NotFound("layer not found")
	}
	if err := h.svc.Registry.SetVisible(input.ID, input.Body.Visible); err != nil {
		return nil, httpError(err)
	}
	layer, _ := h.svc.Registry.Get(input.ID)
	return &struct{ Body LayerSummary }{Body: summarize(layer)}, nil
}

func (h *APIHandler) PutStyle(ctx context.Context, input *struct {
	IDInput
	Body map[string]any
}) (*struct{ Body LayerSummary }, error) {
	p, err := style.Parse(input.Body)
	if err != nil {
		return nil, httpError(err)
	}
	if _, err := h.svc.Registry.Restyle(input.ID, p); err != nil {
		return nil, httpError(err)
	}
	layer, _ := h.svc.Registry.Get(input.ID)
	return &struct{ Body LayerSummary }{Body: summarize(layer)}, nil
}

func (h *APIHandler) DeleteLayer(ctx context.Context, input *IDInput) (*struct{ Body MessageBody }, error) {
	if _, ok := h.svc.Registry.Get(input.ID); !ok {
		return nil, huma.Error404NotFound("layer not found")
	}
	h.svc.Registry.Remove(input.ID)
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Layer deleted"}}, nil
}
