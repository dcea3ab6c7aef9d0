package editor

import (
	"context"
	"errors"
	"fmt"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-aoi/internal/draw"
	"github.com/joeblew999/plat-aoi/internal/geometry"
	"github.com/joeblew999/plat-aoi/internal/humastar"
	"github.com/joeblew999/plat-aoi/internal/mapview"
	"github.com/joeblew999/plat-aoi/internal/service"
	"github.com/joeblew999/plat-aoi/internal/view"
	"github.com/joeblew999/plat-aoi/internal/viewer"
	"github.com/joeblew999/plat-aoi/internal/workflow"
)

var errBadViewport = errors.New("viewport needs center [lon, lat] and zoom")

// Search looks up suggestions for the query signal. The lookup runs
// outside the viewer turn; stale answers are dropped by the session.
func (h *ViewerHandler) Search(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	return h.turn(input, func(v *viewer.Viewer, s humastar.Signals) error {
		v.Query(ctx, s.String("query"))
		return nil
	})
}

// Select applies the suggestion at the pick signal.
func (h *ViewerHandler) Select(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	return h.turn(input, func(v *viewer.Viewer, s humastar.Signals) error {
		var err error
		v.Do(func() { err = v.Search.SelectIndex(s.Int("pick")) })
		return err
	})
}

// DrawCreated records a shape finished in the browser.
func (h *ViewerHandler) DrawCreated(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	return h.turn(input, func(v *viewer.Viewer, s humastar.Signals) error {
		g, err := geometry.Parse(s.Raw("geometry"))
		if err != nil {
			return fmt.Errorf("unreadable shape: %w", err)
		}
		kind := draw.KindPolygon
		if s.String("kind") == string(draw.KindRectangle) {
			kind = draw.KindRectangle
		}
		v.Do(func() { v.Surface.Create(g, kind) })
		return nil
	})
}

// DrawDeleted removes the shapes listed in the ids signal.
func (h *ViewerHandler) DrawDeleted(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	return h.turn(input, func(v *viewer.Viewer, s humastar.Signals) error {
		ids := s.Strings("ids")
		v.Do(func() { v.Surface.Remove(ids...) })
		return nil
	})
}

// DrawTool arms or disarms a toolbar tool named by the drawtool signal.
func (h *ViewerHandler) DrawTool(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	return h.turn(input, func(v *viewer.Viewer, s humastar.Signals) error {
		var err error
		v.Do(func() {
			switch s.String("drawtool") {
			case "polygon":
				v.Surface.StartPolygon()
			case "rectangle":
				v.Surface.StartRectangle()
			case "edit":
				v.Surface.StartEdit()
			case "cancel", "":
				v.Surface.CancelTool()
			case "deleteall":
				v.Surface.DeleteAll()
			case "save":
				err = saveEdits(v, s)
			default:
				err = fmt.Errorf("unknown tool %q", s.String("drawtool"))
			}
		})
		return err
	})
}

// saveEdits reads the edits signal, an object of shape id to geometry.
func saveEdits(v *viewer.Viewer, s humastar.Signals) error {
	raw, _ := s["edits"].(map[string]any)
	edits := make(map[string]orb.Geometry, len(raw))
	for id := range raw {
		g, err := geometry.Parse(humastar.Signals(raw).Raw(id))
		if err != nil {
			return fmt.Errorf("unreadable edit for %s: %w", id, err)
		}
		edits[id] = g
	}
	return v.Surface.SaveEdit(edits)
}

// Confirm saves the active shape as an AOI.
func (h *ViewerHandler) Confirm(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	return h.report(input, func(v *viewer.Viewer, s humastar.Signals) (string, error) {
		var saved bool
		var id string
		v.Do(func() {
			saved = v.Flow.ConfirmAOI()
			if list := v.Flow.AOIs(); saved && len(list) > 0 {
				id = list[len(list)-1].ID
			}
		})
		if !saved {
			return "", nil
		}
		h.publish(service.ActionSaved, id, v.ID)
		return workflow.MsgSaved, nil
	})
}

// ApplyOutline turns the staged outline into the base area.
func (h *ViewerHandler) ApplyOutline(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	return h.report(input, func(v *viewer.Viewer, s humastar.Signals) (string, error) {
		var applied bool
		v.Do(func() { applied = v.Flow.ApplyOutlineAsBase() })
		if !applied {
			return "", nil
		}
		return workflow.MsgApplied, nil
	})
}

// ViewMode switches imagery to the viewmode signal.
func (h *ViewerHandler) ViewMode(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	return h.turn(input, func(v *viewer.Viewer, s humastar.Signals) error {
		mode, err := view.ParseMode(s.String("viewmode"))
		if err != nil {
			return err
		}
		v.Do(func() { v.View.SetViewMode(mode) })
		return nil
	})
}

// Theme switches the basemap to the theme signal.
func (h *ViewerHandler) Theme(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	return h.turn(input, func(v *viewer.Viewer, s humastar.Signals) error {
		theme, err := view.ParseTheme(s.String("theme"))
		if err != nil {
			return err
		}
		v.Do(func() { v.View.SetTheme(theme) })
		return nil
	})
}

// Viewport records a pan or zoom made in the browser.
func (h *ViewerHandler) Viewport(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	return h.turn(input, func(v *viewer.Viewer, s humastar.Signals) error {
		center, ok := s["center"].([]any)
		if !ok || len(center) != 2 || !s.Has("zoom") {
			return errBadViewport
		}
		lon, lok := center[0].(float64)
		lat, aok := center[1].(float64)
		if !lok || !aok {
			return errBadViewport
		}
		v.Do(func() {
			if s.Has("width") && s.Has("height") {
				v.Map.Resize(s.Int("width"), s.Int("height"))
			}
			v.Map.SetView(orb.Point{lon, lat}, s.Float("zoom"), mapview.ViewOptions{Animate: false})
		})
		return nil
	})
}

// Zoom steps the map in or out by the dir signal.
func (h *ViewerHandler) Zoom(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	return h.turn(input, func(v *viewer.Viewer, s humastar.Signals) error {
		switch s.String("dir") {
		case "in":
			v.Do(v.Map.ZoomIn)
		case "out":
			v.Do(v.Map.ZoomOut)
		default:
			return fmt.Errorf("unknown zoom direction %q", s.String("dir"))
		}
		return nil
	})
}

// ShowAOI fits the map to a saved AOI.
func (h *ViewerHandler) ShowAOI(ctx context.Context, input *AOIInput) (*huma.StreamResponse, error) {
	signals, err := input.signals()
	if err != nil {
		return nil, err
	}
	v, err := h.open(signals)
	if err != nil {
		return nil, err
	}
	v.Do(func() { v.Flow.ShowAOI(input.ID) })
	return h.Stream(func(sse humastar.SSE) { h.push(sse, v) }), nil
}

// DeleteAOI removes a saved AOI and tells the other viewers.
func (h *ViewerHandler) DeleteAOI(ctx context.Context, input *AOIInput) (*huma.StreamResponse, error) {
	signals, err := input.signals()
	if err != nil {
		return nil, err
	}
	v, err := h.open(signals)
	if err != nil {
		return nil, err
	}
	v.Do(func() { v.Flow.DeleteAOI(input.ID) })
	h.publish(service.ActionRemoved, input.ID, v.ID)
	return h.Stream(func(sse humastar.SSE) {
		sse.RemoveElementByID("aoi-" + input.ID)
		h.push(sse, v)
	}), nil
}

func (h *ViewerHandler) publish(action, id, origin string) {
	if h.bus == nil {
		return
	}
	h.bus.Publish(service.Event{Resource: service.ResourceAOIs, Action: action, ID: id, Origin: origin})
}
