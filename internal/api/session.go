package api

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/geoview/internal/session"
)

type SaveBody struct {
	Key       string    `json:"key" doc:"Store slot"`
	Layers    int       `json:"layers" doc:"Layers written"`
	Timestamp time.Time `json:"timestamp"`
}

// RegisterSession registers session persistence routes.
func (h *APIHandler) RegisterSession(api huma.API) {
	huma.Post(api, "/api/v1/session/save", h.SaveSession, huma.OperationTags("session"))
	huma.Post(api, "/api/v1/session/load", h.LoadSession, huma.OperationTags("session"))
	huma.Delete(api, "/api/v1/session", h.DiscardSession, huma.OperationTags("session"))
}

func (h *APIHandler) SaveSession(ctx context.Context, input *struct{}) (*struct{ Body SaveBody }, error) {
	snap, err := h.svc.Session.Save(ctx)
	if err != nil {
		return nil, httpError(err)
	}
	return &struct{ Body SaveBody }{Body: SaveBody{
		Key: h.svc.Session.Key(), Layers: len(snap.Layers), Timestamp: snap.Timestamp,
	}}, nil
}

func (h *APIHandler) LoadSession(ctx context.Context, input *struct{}) (*struct{ Body session.LoadReport }, error) {
	report, err := h.svc.Session.Load(ctx)
	if err != nil {
		return nil, httpError(err)
	}
	return &struct{ Body session.LoadReport }{Body: report}, nil
}

func (h *APIHandler) DiscardSession(ctx context.Context, input *struct{}) (*struct{ Body MessageBody }, error) {
	if err := h.svc.Session.Discard(ctx); err != nil {
		return nil, httpError(err)
	}
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Session discarded"}}, nil
}
