package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/geoview/internal/export"
	"github.com/joeblew999/geoview/internal/render"
)

type ExportInput struct {
	IDInput
	Format string `query:"format" default:"geojson" enum:"geojson,shapefile,shp,zip" doc:"Export format"`
}

type FileOutput struct {
	ContentType        string `header:"Content-Type"`
	ContentDisposition string `header:"Content-Disposition"`
	Body               []byte
}

type TileInput struct {
	IDInput
	Z int `path:"z" minimum:"0" maximum:"22"`
	X int `path:"x" minimum:"0"`
	Y int `path:"y" minimum:"0"`
}

type TileOutput struct {
	Status          int
	ContentType     string `header:"Content-Type"`
	ContentEncoding string `header:"Content-Encoding"`
	CacheControl    string `header:"Cache-Control"`
	Body            []byte
}

// RegisterExport registers layer download routes.
func (h *APIHandler) RegisterExport(api huma.API) {
	huma.Get(api, "/api/v1/layers/{id}/export", h.Export, huma.OperationTags("layers"))
}

// RegisterRender registers the vector tile routes backing the map.
func (h *APIHandler) RegisterRender(api huma.API) {
	huma.Get(api, "/api/v1/render/{id}/style", h.GetRenderStyle, huma.OperationTags("render"))
	huma.Get(api, "/api/v1/render/{id}/tiles/{z}/{x}/{y}", h.GetTile, huma.OperationTags("render"))
}

func (h *APIHandler) Export(ctx context.Context, input *ExportInput) (*FileOutput, error) {
	layer, ok := h.svc.Registry.Get(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("layer not found")
	}
	format, err := export.ParseFormat(input.Format)
	if err != nil {
		return nil, httpError(err)
	}
	f, err := export.Layer(layer.Name, layer.Data, format)
	if err != nil {
		return nil, httpError(err)
	}
	return &FileOutput{
		ContentType:        f.ContentType,
		ContentDisposition: fmt.Sprintf(`attachment; filename=%q`, f.Name),
		Body:               f.Data,
	}, nil
}

// renderHandle returns the tile handle of a visible layer.
func (h *APIHandler) renderHandle(id string) (*render.Handle, error) {
	if _, ok := h.svc.Registry.Get(id); !ok {
		return nil, huma.Error404NotFound("layer not found")
	}
	hd, ok := h.svc.Registry.Handle(id)
	if !ok {
		return nil, huma.Error409Conflict("layer is hidden")
	}
	rh, ok := hd.(*render.Handle)
	if !ok {
		return nil, huma.Error501NotImplemented("renderer does not serve tiles")
	}
	return rh, nil
}

func (h *APIHandler) GetRenderStyle(ctx context.Context, input *IDInput) (*struct{ Body render.Fragment }, error) {
	rh, err := h.renderHandle(input.ID)
	if err != nil {
		return nil, err
	}
	return &struct{ Body render.Fragment }{Body: rh.Fragment(TileURL)}, nil
}

func (h *APIHandler) GetTile(ctx context.Context, input *TileInput) (*TileOutput, error) {
	rh, err := h.renderHandle(input.ID)
	if err != nil {
		return nil, err
	}
	data, err := rh.Tile(uint32(input.Z), uint32(input.X), uint32(input.Y))
	if err != nil {
		if errors.Is(err, render.ErrDetached) {
			return nil, httpError(err)
		}
		return nil, huma.Error400BadRequest(err.Error())
	}
	if data == nil {
		return &TileOutput{Status: http.StatusNoContent}, nil
	}
	return &TileOutput{
		Status:          http.StatusOK,
		ContentType:     "application/vnd.mapbox-vector-tile",
		ContentEncoding: "gzip",
		CacheControl:    "no-cache",
		Body:            data,
	}, nil
}
