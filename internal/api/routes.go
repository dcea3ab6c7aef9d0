// Package api defines the Huma API routes and handlers.
package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-aoi/internal/aoi"
	"github.com/joeblew999/plat-aoi/internal/geocode"
	"github.com/joeblew999/plat-aoi/internal/geometry"
	"github.com/joeblew999/plat-aoi/internal/humastar"
	"github.com/joeblew999/plat-aoi/internal/service"
	"github.com/joeblew999/plat-aoi/internal/suggest"
)

// Version is reported by /health and /api/v1/info.
const Version = "0.1.0"

// Services holds the dependencies for API handlers.
type Services struct {
	Store    *aoi.Store
	Geocoder suggest.Geocoder
	Bus      *service.EventBus
}

// Types

type IDInput struct {
	ID string `path:"id" doc:"AOI ID" example:"6f1c2a9e-3b7d-4e0a-9c51-2d8f7e4b1a30"`
}

type PageInput struct {
	Offset int `query:"offset" minimum:"0" default:"0" doc:"Items to skip"`
	Limit  int `query:"limit" minimum:"1" maximum:"200" default:"20" doc:"Page size"`
}

// AOIBody is an AOI with derived display fields.
type AOIBody struct {
	aoi.AOI
	AreaSqm float64 `json:"areaSqm" doc:"Geodesic area in square meters"`
}

// Actions offers the delete link on single-AOI responses.
func (b AOIBody) Actions() []humastar.Action {
	return []humastar.Action{{
		Rel:    "delete",
		Href:   "/api/v1/aois/" + b.ID,
		Method: "DELETE",
		Title:  "Delete area",
	}}
}

type AOIOutput struct {
	Body AOIBody
}

type AOIPageOutput struct {
	Body humastar.PageBody[AOIBody]
}

type GeoJSONOutput struct {
	ContentType string `header:"Content-Type"`
	Body        *geojson.FeatureCollection
}

type GeocodeInput struct {
	Q string `query:"q" required:"true" minLength:"1" doc:"Search text" example:"Köln"`
}

type GeocodeOutput struct {
	Body []geocode.Suggestion
}

type MessageBody struct {
	Message string `json:"message" doc:"Result message"`
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"0.1.0"`
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterAOIs registers AOI routes. There is no create or update: AOIs
// are only made by confirming a drawn area in the viewer.
func (h *APIHandler) RegisterAOIs(api huma.API) {
	huma.Get(api, "/api/v1/aois", h.ListAOIs, huma.OperationTags("aois"))
	huma.Get(api, "/api/v1/aois.geojson", h.ExportAOIs, huma.OperationTags("aois"))
	huma.Get(api, "/api/v1/aois/{id}", h.GetAOI, huma.OperationTags("aois"))
	huma.Delete(api, "/api/v1/aois/{id}", h.DeleteAOI, huma.OperationTags("aois"))
}

// RegisterGeocode registers the suggestion lookup.
func (h *APIHandler) RegisterGeocode(api huma.API) {
	huma.Get(api, "/api/v1/geocode", h.Geocode, huma.OperationTags("geocode"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: Version}}, nil
}

func (h *APIHandler) ListAOIs(ctx context.Context, input *PageInput) (*AOIPageOutput, error) {
	var all []AOIBody
	if h.svc != nil && h.svc.Store != nil {
		for _, a := range h.svc.Store.List() {
			all = append(all, withArea(a))
		}
	}
	return &AOIPageOutput{Body: humastar.Paginate(all, input.Offset, input.Limit)}, nil
}

func (h *APIHandler) ExportAOIs(ctx context.Context, input *struct{}) (*GeoJSONOutput, error) {
	var list []aoi.AOI
	if h.svc != nil && h.svc.Store != nil {
		list = h.svc.Store.List()
	}
	return &GeoJSONOutput{ContentType: "application/geo+json", Body: aoi.FeatureCollection(list)}, nil
}

func (h *APIHandler) GetAOI(ctx context.Context, input *IDInput) (*AOIOutput, error) {
	if h.svc == nil || h.svc.Store == nil {
		return nil, huma.Error404NotFound("store not available")
	}
	a, ok := h.svc.Store.Get(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("aoi not found")
	}
	return &AOIOutput{Body: withArea(a)}, nil
}

func (h *APIHandler) DeleteAOI(ctx context.Context, input *IDInput) (*struct{ Body MessageBody }, error) {
	if h.svc == nil || h.svc.Store == nil {
		return nil, huma.Error400BadRequest("store not available")
	}
	if _, ok := h.svc.Store.Get(input.ID); !ok {
		return nil, huma.Error404NotFound("aoi not found")
	}
	h.svc.Store.Remove(input.ID)
	if h.svc.Bus != nil {
		h.svc.Bus.Publish(service.Event{Resource: service.ResourceAOIs, Action: service.ActionRemoved, ID: input.ID})
	}
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "AOI deleted"}}, nil
}

func (h *APIHandler) Geocode(ctx context.Context, input *GeocodeInput) (*GeocodeOutput, error) {
	if h.svc == nil || h.svc.Geocoder == nil {
		return nil, huma.Error503ServiceUnavailable("geocoder not available")
	}
	results, err := h.svc.Geocoder.Suggest(ctx, input.Q)
	if err != nil {
		return nil, huma.Error502BadGateway("geocode lookup failed", err)
	}
	if results == nil {
		results = []geocode.Suggestion{}
	}
	return &GeocodeOutput{Body: results}, nil
}

func withArea(a aoi.AOI) AOIBody {
	return AOIBody{AOI: a, AreaSqm: geometry.Area(a.Geometry)}
}
