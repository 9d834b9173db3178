package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/geoview/internal/ingest"
)

type UploadInput struct {
	Filename string `query:"filename" required:"true" doc:"Original file name; its extension selects the decoder" example:"cities.geojson"`
	RawBody  []byte `contentType:"application/octet-stream"`
}

type PickInput struct {
	Token string `path:"token" doc:"Candidate set token"`
	Body  struct {
		Index *int `json:"index,omitempty" minimum:"0" doc:"Candidate to add"`
		Merge bool `json:"merge,omitempty" doc:"Add every candidate as one layer"`
	}
}

type PickBody struct {
	LayerID string `json:"layerId" doc:"Layer added"`
}

// RegisterUploads registers file ingestion routes.
func (h *APIHandler) RegisterUploads(api huma.API) {
	huma.Post(api, "/api/v1/uploads", h.Upload, huma.OperationTags("uploads"), func(o *huma.Operation) {
		o.MaxBodyBytes = h.svc.Ingest.MaxFileSize() + 1
	})
	huma.Post(api, "/api/v1/uploads/{token}/pick", h.Pick, huma.OperationTags("uploads"))
}

func (h *APIHandler) Upload(ctx context.Context, input *UploadInput) (*struct{ Body ingest.FileResult }, error) {
	res := h.svc.Ingest.Ingest(ctx, []ingest.Upload{{Name: input.Filename, Data: input.RawBody}})[0]
	if res.Err != nil {
		return nil, httpError(res.Err)
	}
	return &struct{ Body ingest.FileResult }{Body: res}, nil
}

func (h *APIHandler) Pick(ctx context.Context, input *PickInput) (*struct{ Body PickBody }, error) {
	var (
		id  string
		err error
	)
	switch {
	case input.Body.Merge:
		id, err = h.svc.Ingest.Merge(input.Token)
	case input.Body.Index != nil:
		id, err = h.svc.Ingest.Pick(input.Token, *input.Body.Index)
	default:
		return nil, huma.Error422UnprocessableEntity("pick an index or merge")
	}
	if err != nil {
		return nil, httpError(err)
	}
	return &struct{ Body PickBody }{Body: PickBody{LayerID: id}}, nil
}
