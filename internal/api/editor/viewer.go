// Package editor contains Datastar SSE handlers for the viewer UI.
package editor

import (
	"bytes"
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-aoi/internal/aoi"
	"github.com/joeblew999/plat-aoi/internal/geometry"
	"github.com/joeblew999/plat-aoi/internal/humastar"
	"github.com/joeblew999/plat-aoi/internal/service"
	"github.com/joeblew999/plat-aoi/internal/templates"
	"github.com/joeblew999/plat-aoi/internal/viewer"
)

// ViewerHandler serves viewer actions. Every action runs as one turn on
// the caller's viewer and answers with a fresh snapshot.
type ViewerHandler struct {
	humastar.Handler
	viewers *viewer.Registry
	bus     *service.EventBus
}

// NewViewerHandler creates a new viewer handler.
func NewViewerHandler(viewers *viewer.Registry, bus *service.EventBus, renderer *templates.Renderer) *ViewerHandler {
	return &ViewerHandler{
		Handler: humastar.Handler{Renderer: renderer},
		viewers: viewers,
		bus:     bus,
	}
}

func (h *ViewerHandler) RegisterRoutes(api huma.API) {
	tags := huma.OperationTags(humastar.TagViewer)

	huma.Get(api, "/api/v1/viewer/events", h.Events, tags)
	huma.Post(api, "/api/v1/viewer/search", h.Search, tags)
	huma.Post(api, "/api/v1/viewer/select", h.Select, tags)
	huma.Post(api, "/api/v1/viewer/draw/created", h.DrawCreated, tags)
	huma.Post(api, "/api/v1/viewer/draw/deleted", h.DrawDeleted, tags)
	huma.Post(api, "/api/v1/viewer/draw/tool", h.DrawTool, tags)
	huma.Post(api, "/api/v1/viewer/confirm", h.Confirm, tags)
	huma.Post(api, "/api/v1/viewer/apply-outline", h.ApplyOutline, tags)
	huma.Post(api, "/api/v1/viewer/viewmode", h.ViewMode, tags)
	huma.Post(api, "/api/v1/viewer/theme", h.Theme, tags)
	huma.Post(api, "/api/v1/viewer/viewport", h.Viewport, tags)
	huma.Post(api, "/api/v1/viewer/zoom", h.Zoom, tags)
	huma.Post(api, "/api/v1/viewer/aois/{id}/show", h.ShowAOI, tags)
	huma.Delete(api, "/api/v1/viewer/aois/{id}", h.DeleteAOI, tags)
}

// AOIInput addresses a saved AOI from the viewer.
type AOIInput struct {
	ID       string `path:"id" doc:"AOI ID"`
	Datastar string `query:"datastar" doc:"Datastar signals for bodiless requests"`
	RawBody  []byte
}

func (i *AOIInput) signals() (humastar.Signals, error) {
	body := i.RawBody
	if len(bytes.TrimSpace(body)) == 0 && i.Datastar != "" {
		body = []byte(i.Datastar)
	}
	s, err := humastar.ParseSignals(body)
	if err != nil {
		return nil, huma.Error400BadRequest("Invalid request data: " + err.Error())
	}
	return s, nil
}

// open resolves the viewer named by the sid signal.
func (h *ViewerHandler) open(signals humastar.Signals) (*viewer.Viewer, error) {
	sid := signals.String("sid")
	if sid == "" {
		return nil, huma.Error400BadRequest("sid is required")
	}
	return h.viewers.Open(sid), nil
}

// turn parses signals, runs fn on the viewer and streams the result.
func (h *ViewerHandler) turn(input *humastar.SignalsInput, fn func(v *viewer.Viewer, s humastar.Signals) error) (*huma.StreamResponse, error) {
	return h.report(input, func(v *viewer.Viewer, s humastar.Signals) (string, error) {
		return "", fn(v, s)
	})
}

// report is turn for actions that finish with a success message, sent
// as the success signal ahead of the snapshot.
func (h *ViewerHandler) report(input *humastar.SignalsInput, fn func(v *viewer.Viewer, s humastar.Signals) (string, error)) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	v, err := h.open(signals)
	if err != nil {
		return nil, err
	}
	msg, ferr := fn(v, signals)
	return h.Stream(func(sse humastar.SSE) {
		switch {
		case ferr != nil:
			sse.Error(ferr.Error())
		case msg != "":
			sse.Success(msg)
		}
		h.push(sse, v)
	}), nil
}

// push sends the snapshot signals and re-renders list fragments.
func (h *ViewerHandler) push(sse humastar.SSE, v *viewer.Viewer) {
	snap := v.Snapshot()
	sse.Signals(snap)

	if h.Renderer == nil {
		return
	}
	sse.Patch(h.renderSuggestions(snap.Suggestions), "#suggestions")
	sse.Patch(h.renderAOIs(snap.List), "#aoi-list")
	if len(snap.Toasts) > 0 {
		items := make([]any, len(snap.Toasts))
		for i, t := range snap.Toasts {
			items[i] = t
		}
		sse.Patch(h.RenderList("toast", items, "", ""), "#toasts")
	}
}

// AOIItemData feeds the aoi-item fragment.
type AOIItemData struct {
	ID        string
	Name      string
	CreatedAt string
	AreaSqm   float64
}

func (h *ViewerHandler) renderAOIs(list []aoi.AOI) string {
	items := make([]any, len(list))
	for i, a := range list {
		items[i] = AOIItemData{ID: a.ID, Name: a.Name, CreatedAt: a.CreatedAt, AreaSqm: geometry.Area(a.Geometry)}
	}
	return h.RenderList("aoi-item", items, "No saved areas", "Draw an area or pick a search result, then confirm it")
}

func (h *ViewerHandler) renderSuggestions(list []viewer.SuggestionItem) string {
	if len(list) == 0 {
		return ""
	}
	items := make([]any, len(list))
	for i, s := range list {
		items[i] = s
	}
	return h.RenderList("suggestion-item", items, "", "")
}

// Events streams snapshots whenever the viewer changes.
func (h *ViewerHandler) Events(ctx context.Context, input *EventsInput) (*huma.StreamResponse, error) {
	sid := input.Sid
	if sid == "" && input.Datastar != "" {
		if s, err := humastar.ParseSignals([]byte(input.Datastar)); err == nil {
			sid = s.String("sid")
		}
	}
	if sid == "" {
		return nil, huma.Error400BadRequest("sid is required")
	}
	v := h.viewers.Open(sid)

	return h.Stream(func(sse humastar.SSE) {
		changed, stop := v.Watch()
		defer stop()

		h.push(sse, v)
		for {
			select {
			case <-ctx.Done():
				return
			case <-changed:
				if !v.Alive() {
					return
				}
				h.push(sse, v)
			}
		}
	}), nil
}

// EventsInput names the viewer to stream.
type EventsInput struct {
	Sid      string `query:"sid" doc:"Viewer session id"`
	Datastar string `query:"datastar" doc:"Datastar signals"`
}
