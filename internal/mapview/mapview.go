// Package mapview is the server-side model of a browser map instance.
// The browser renders whatever center, zoom and layers this model holds
// and reports user pans and zooms back through SetView.
package mapview

import (
	"math"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// Event names fired by a Map.
type Event string

const (
	EventMove Event = "move"
	EventZoom Event = "zoom"
)

// Zoom limits shared by all maps.
const (
	MinZoom = 0
	MaxZoom = 20
)

const tileSize = 256

// earthCircumference is the web mercator world width in meters.
var earthCircumference = 2 * math.Pi * 6378137.0

// ViewOptions control a SetView call.
type ViewOptions struct {
	Animate bool
}

// FitOptions control a FitBounds call.
type FitOptions struct {
	Padding int     // pixels on each side
	MaxZoom float64 // 0 means MaxZoom
	Animate bool
}

// Overlay is an imagery layer installed on top of the basemap.
type Overlay struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Layers      string `json:"layers"`
	CRS         string `json:"crs"`
	Format      string `json:"format"`
	Transparent bool   `json:"transparent"`
}

// Handler is called after the view changes.
type Handler func()

// Map holds one map instance's viewport and layers.
type Map struct {
	mu       sync.Mutex
	center   orb.Point
	zoom     float64
	width    int
	height   int
	animate  bool
	basemap  string
	overlays map[string]Overlay
	handlers map[Event]map[int]Handler
	nextID   int
}

// New creates a map centered on center at zoom with a viewport of
// width×height pixels.
func New(center orb.Point, zoom float64, width, height int) *Map {
	if width <= 0 {
		width = 1024
	}
	if height <= 0 {
		height = 768
	}
	return &Map{
		center:   center,
		zoom:     clampZoom(zoom),
		width:    width,
		height:   height,
		overlays: make(map[string]Overlay),
		handlers: make(map[Event]map[int]Handler),
	}
}

// On registers h for ev and returns a handle for Off.
func (m *Map) On(ev Event, h Handler) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	if m.handlers[ev] == nil {
		m.handlers[ev] = make(map[int]Handler)
	}
	m.handlers[ev][m.nextID] = h
	return m.nextID
}

// Off removes a handler.
func (m *Map) Off(ev Event, id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.handlers[ev], id)
}

// ListenerCount reports registered handlers for ev.
func (m *Map) ListenerCount(ev Event) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handlers[ev])
}

// SetView moves the map. Move handlers fire on any change, zoom
// handlers only when the zoom level changed.
func (m *Map) SetView(center orb.Point, zoom float64, opts ViewOptions) {
	m.mu.Lock()
	zoom = clampZoom(zoom)
	moved := center != m.center
	zoomed := zoom != m.zoom
	m.center = center
	m.zoom = zoom
	m.animate = opts.Animate
	var fire []Handler
	if moved || zoomed {
		fire = append(fire, m.collect(EventMove)...)
	}
	if zoomed {
		fire = append(fire, m.collect(EventZoom)...)
	}
	m.mu.Unlock()

	for _, h := range fire {
		h()
	}
}

// FitBounds centers on b at the largest zoom that shows all of it.
func (m *Map) FitBounds(b orb.Bound, opts FitOptions) {
	m.mu.Lock()
	w, h := m.width-2*opts.Padding, m.height-2*opts.Padding
	m.mu.Unlock()

	maxZoom := opts.MaxZoom
	if maxZoom <= 0 {
		maxZoom = MaxZoom
	}
	z := math.Min(FitZoom(b, w, h), maxZoom)
	m.SetView(b.Center(), z, ViewOptions{Animate: opts.Animate})
}

// ZoomIn zooms one level in.
func (m *Map) ZoomIn() {
	m.SetView(m.Center(), m.Zoom()+1, ViewOptions{Animate: true})
}

// ZoomOut zooms one level out.
func (m *Map) ZoomOut() {
	m.SetView(m.Center(), m.Zoom()-1, ViewOptions{Animate: true})
}

// Center returns the view center as (lon, lat).
func (m *Map) Center() orb.Point {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.center
}

// Zoom returns the zoom level.
func (m *Map) Zoom() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.zoom
}

// Animated reports whether the last view change asked for animation.
func (m *Map) Animated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.animate
}

// Resize records the browser viewport size used by FitBounds.
func (m *Map) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	m.mu.Lock()
	m.width, m.height = width, height
	m.mu.Unlock()
}

// SetBasemap swaps the basemap tile URL template.
func (m *Map) SetBasemap(url string) {
	m.mu.Lock()
	m.basemap = url
	m.mu.Unlock()
}

// Basemap returns the basemap tile URL template.
func (m *Map) Basemap() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.basemap
}

// AddOverlay installs o, replacing any overlay with the same name.
func (m *Map) AddOverlay(o Overlay) {
	m.mu.Lock()
	m.overlays[o.Name] = o
	m.mu.Unlock()
}

// RemoveOverlay removes the named overlay and reports whether it existed.
func (m *Map) RemoveOverlay(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.overlays[name]
	delete(m.overlays, name)
	return ok
}

// Overlay returns the named overlay.
func (m *Map) Overlay(name string) (Overlay, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.overlays[name]
	return o, ok
}

func (m *Map) collect(ev Event) []Handler {
	hs := make([]Handler, 0, len(m.handlers[ev]))
	for id := 1; id <= m.nextID; id++ {
		if h, ok := m.handlers[ev][id]; ok {
			hs = append(hs, h)
		}
	}
	return hs
}

// FitZoom returns the largest integer zoom at which b fits in a
// width×height pixel viewport. Degenerate bounds get MaxZoom.
func FitZoom(b orb.Bound, width, height int) float64 {
	if width <= 0 || height <= 0 {
		return MinZoom
	}
	lo := project.WGS84.ToMercator(b.Min)
	hi := project.WGS84.ToMercator(b.Max)
	dx := math.Abs(hi[0] - lo[0])
	dy := math.Abs(hi[1] - lo[1])
	if dx == 0 && dy == 0 {
		return MaxZoom
	}

	zx, zy := float64(MaxZoom), float64(MaxZoom)
	if dx > 0 {
		zx = math.Log2(float64(width) * earthCircumference / (tileSize * dx))
	}
	if dy > 0 {
		zy = math.Log2(float64(height) * earthCircumference / (tileSize * dy))
	}
	return clampZoom(math.Floor(math.Min(zx, zy)))
}

func clampZoom(z float64) float64 {
	return math.Max(MinZoom, math.Min(MaxZoom, z))
}
