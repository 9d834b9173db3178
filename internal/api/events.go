package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog/log"

	"github.com/joeblew999/geoview/internal/humastar"
	"github.com/joeblew999/geoview/internal/registry"
)

// RegisterEvents registers the change feed consumed by the browser map.
func (h *APIHandler) RegisterEvents(api huma.API) {
	huma.Get(api, "/api/v1/events", h.Events, huma.OperationTags("events"))
}

// mapSignals is the state patched into the page on every change.
func (h *APIHandler) mapSignals(ev *registry.Event) map[string]any {
	signals := map[string]any{
		"layers":   summaries(h.svc.Registry.List()),
		"viewport": h.svc.Registry.Viewport(),
	}
	if ev != nil {
		signals["lastEvent"] = ev
	}
	return signals
}

// Events streams registry changes as Datastar signal patches. The first
// patch carries the current state.
func (h *APIHandler) Events(ctx context.Context, input *struct{}) (*huma.StreamResponse, error) {
	return humastar.Stream(func(sse humastar.SSE) {
		ch := h.svc.Registry.Events().Subscribe()
		defer h.svc.Registry.Events().Unsubscribe(ch)

		if err := sse.Signals(h.mapSignals(nil)); err != nil {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				if err := sse.Signals(h.mapSignals(&ev)); err != nil {
					log.Debug().Err(err).Msg("Event stream closed")
					return
				}
			}
		}
	}), nil
}
