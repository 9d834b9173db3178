package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
)

type InfoHandler struct {
	info InfoBody
}

func NewInfoHandler(info InfoBody) *InfoHandler {
	if info.Name == "" {
		info.Name = "geoview"
	}
	if info.Version == "" {
		info.Version = Version
	}
	return &InfoHandler{info: info}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name           string   `json:"name" doc:"Service name"`
	Version        string   `json:"version" doc:"Service version"`
	DataDir        string   `json:"data_dir" doc:"Data directory path"`
	SessionBackend string   `json:"session_backend" doc:"Where sessions are stored"`
	MaxFileSize    int64    `json:"max_file_size" doc:"Upload limit in bytes"`
	Extensions     []string `json:"extensions" doc:"Accepted upload extensions"`
	ExportFormats  []string `json:"export_formats" doc:"Layer download formats"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	return &struct{ Body InfoBody }{Body: h.info}, nil
}
