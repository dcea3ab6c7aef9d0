package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
)

type InfoHandler struct {
	dataDir  string
	backend  string
	imagery  bool
	features []string
}

func NewInfoHandler(dataDir, backend string, imagery bool) *InfoHandler {
	return &InfoHandler{
		dataDir:  dataDir,
		backend:  backend,
		imagery:  imagery,
		features: []string{"geocode", "draw", "aoi-store", "minimap", "themes"},
	}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name     string   `json:"name" doc:"Service name"`
	Version  string   `json:"version" doc:"Service version"`
	DataDir  string   `json:"data_dir" doc:"Data directory path"`
	Store    string   `json:"store" doc:"Storage backend"`
	Imagery  bool     `json:"imagery" doc:"Whether a WMS imagery overlay is configured"`
	Features []string `json:"features" doc:"Available features"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	return &struct{ Body InfoBody }{Body: InfoBody{
		Name:     "plat-aoi",
		Version:  Version,
		DataDir:  h.dataDir,
		Store:    h.backend,
		Imagery:  h.imagery,
		Features: h.features,
	}}, nil
}
