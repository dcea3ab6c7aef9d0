package viewer

import (
	"encoding/json"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-aoi/internal/aoi"
	"github.com/joeblew999/plat-aoi/internal/draw"
	"github.com/joeblew999/plat-aoi/internal/imagery"
	"github.com/joeblew999/plat-aoi/internal/mapview"
	"github.com/joeblew999/plat-aoi/internal/notify"
)

// Snapshot is everything the browser renders. Field names are the
// Datastar signal names, lowercase because of data-bind.
type Snapshot struct {
	Sid            string                     `json:"sid"`
	Center         [2]float64                 `json:"center"`
	Zoom           float64                    `json:"zoom"`
	Animate        bool                       `json:"animate"`
	MiniCenter     [2]float64                 `json:"minicenter"`
	MiniZoom       float64                    `json:"minizoom"`
	ViewMode       string                     `json:"viewmode"`
	Theme          string                     `json:"theme"`
	Fading         bool                       `json:"fading"`
	Basemap        string                     `json:"basemap"`
	Overlay        *mapview.Overlay           `json:"overlay"`
	Shapes         *geojson.FeatureCollection `json:"shapes"`
	Tool           string                     `json:"tool"`
	Query          string                     `json:"query"`
	Suggestions    []SuggestionItem           `json:"suggestions"`
	Outline        json.RawMessage            `json:"outline"`
	ConfirmEnabled bool                       `json:"confirmenabled"`
	Step           string                     `json:"step"`
	AOIs           *geojson.FeatureCollection `json:"aois"`
	AOICount       int                        `json:"aoicount"`
	Toasts         []notify.Notification      `json:"toasts"`

	List []aoi.AOI `json:"-"`
}

// SuggestionItem is a suggestion as listed in the dropdown.
type SuggestionItem struct {
	Index      int    `json:"index"`
	Label      string `json:"label"`
	HasOutline bool   `json:"hasoutline"`
}

// Snapshot captures the viewer state and drains pending toasts.
func (v *Viewer) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	s := Snapshot{
		Sid:            v.ID,
		Center:         lonLat(v.Map.Center()),
		Zoom:           v.Map.Zoom(),
		Animate:        v.Map.Animated(),
		MiniCenter:     lonLat(v.Minimap.Center()),
		MiniZoom:       v.Minimap.Zoom(),
		ViewMode:       string(v.View.Mode()),
		Theme:          string(v.View.Theme()),
		Fading:         v.fading,
		Basemap:        v.Map.Basemap(),
		Shapes:         shapesCollection(v.Surface.Shapes()),
		Tool:           string(v.Surface.Tool()),
		Query:          v.Search.Text(),
		Outline:        v.Flow.Outline(),
		ConfirmEnabled: v.Flow.ConfirmEnabled(),
		Step:           string(v.Flow.Step()),
		Toasts:         v.toasts.Drain(),
	}
	if o, ok := v.Map.Overlay(imagery.LayerName); ok {
		s.Overlay = &o
	}
	for i, sg := range v.Search.Suggestions() {
		s.Suggestions = append(s.Suggestions, SuggestionItem{
			Index:      i,
			Label:      sg.DisplayName,
			HasOutline: sg.HasOutline(),
		})
	}
	s.List = v.Flow.AOIs()
	s.AOIs = aoi.FeatureCollection(s.List)
	s.AOICount = len(s.List)
	return s
}

func shapesCollection(shapes []draw.Shape) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, sh := range shapes {
		g := sh.Geometry
		if b, ok := g.(orb.Bound); ok {
			g = b.ToPolygon()
		}
		f := geojson.NewFeature(g)
		f.ID = sh.ID
		f.Properties["id"] = sh.ID
		f.Properties["kind"] = string(sh.Kind)
		f.Properties["style"] = sh.Style
		fc.Append(f)
	}
	return fc
}

func lonLat(p orb.Point) [2]float64 { return [2]float64{p[0], p[1]} }
