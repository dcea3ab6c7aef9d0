// Package viewport mirrors a primary map's viewport onto a minimap.
package viewport

import (
	"math"
	"sync"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-aoi/internal/mapview"
)

// DefaultOffset is how many zoom levels the minimap sits above the
// primary map.
const DefaultOffset = 4

// Map is the capability the synchronizer needs from either map.
type Map interface {
	Center() orb.Point
	Zoom() float64
	SetView(center orb.Point, zoom float64, opts mapview.ViewOptions)
	On(ev mapview.Event, h mapview.Handler) int
	Off(ev mapview.Event, id int)
}

// Synchronizer keeps the minimap on the primary's center at
// max(MinZoom, zoom-Offset). Either map may attach first; nothing
// happens until both are present. Listeners live only while both are
// attached.
type Synchronizer struct {
	Offset  float64
	MinZoom float64

	mu      sync.Mutex
	primary Map
	minimap Map
	moveID  int
	zoomID  int
}

// New creates a synchronizer with the default offset.
func New() *Synchronizer {
	return &Synchronizer{Offset: DefaultOffset, MinZoom: mapview.MinZoom}
}

// AttachPrimary sets the primary map.
func (s *Synchronizer) AttachPrimary(m Map) {
	s.mu.Lock()
	s.unlisten()
	s.primary = m
	ready := s.listen()
	s.mu.Unlock()
	if ready {
		s.Sync()
	}
}

// AttachMinimap sets the minimap.
func (s *Synchronizer) AttachMinimap(m Map) {
	s.mu.Lock()
	s.unlisten()
	s.minimap = m
	ready := s.listen()
	s.mu.Unlock()
	if ready {
		s.Sync()
	}
}

// DetachPrimary drops the primary map and its listeners.
func (s *Synchronizer) DetachPrimary() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unlisten()
	s.primary = nil
}

// DetachMinimap drops the minimap and the primary listeners.
func (s *Synchronizer) DetachMinimap() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unlisten()
	s.minimap = nil
}

// Close detaches both maps.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unlisten()
	s.primary, s.minimap = nil, nil
}

// Sync copies the primary viewport to the minimap. It is a no-op while
// either map is missing.
func (s *Synchronizer) Sync() {
	s.mu.Lock()
	primary, minimap := s.primary, s.minimap
	s.mu.Unlock()
	if primary == nil || minimap == nil {
		return
	}
	zoom := math.Max(s.MinZoom, primary.Zoom()-s.Offset)
	minimap.SetView(primary.Center(), zoom, mapview.ViewOptions{Animate: false})
}

func (s *Synchronizer) listen() bool {
	if s.primary == nil || s.minimap == nil {
		return false
	}
	s.moveID = s.primary.On(mapview.EventMove, s.Sync)
	s.zoomID = s.primary.On(mapview.EventZoom, s.Sync)
	return true
}

func (s *Synchronizer) unlisten() {
	if s.primary == nil {
		return
	}
	if s.moveID != 0 {
		s.primary.Off(mapview.EventMove, s.moveID)
		s.moveID = 0
	}
	if s.zoomID != 0 {
		s.primary.Off(mapview.EventZoom, s.zoomID)
		s.zoomID = 0
	}
}
