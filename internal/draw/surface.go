// Package draw models the drawing surface: a keyed collection of shapes
// with created/deleted events and the toolbar tool actions.
package draw

import (
	"errors"
	"fmt"
	"sync"

	"github.com/paulmach/orb"
)

// Kind records how a shape came to exist.
type Kind string

const (
	KindPolygon   Kind = "polygon"
	KindRectangle Kind = "rectangle"
	KindOutline   Kind = "outline"
	KindBase      Kind = "base"
)

// Tool is the active drawing tool.
type Tool string

const (
	ToolNone      Tool = ""
	ToolPolygon   Tool = "polygon"
	ToolRectangle Tool = "rectangle"
	ToolEdit      Tool = "edit"
)

// Event names fired by the surface.
type Event string

const (
	EventCreated Event = "created"
	EventDeleted Event = "deleted"
)

// Style is the visual style of a shape.
type Style struct {
	Color       string  `json:"color"`
	Weight      float64 `json:"weight"`
	FillColor   string  `json:"fillColor"`
	FillOpacity float64 `json:"fillOpacity"`
	DashArray   string  `json:"dashArray,omitempty"`
}

// Shape is one drawn or applied geometry.
type Shape struct {
	ID       string
	Kind     Kind
	Geometry orb.Geometry
	Style    Style
}

// Handler receives the shapes an event refers to.
type Handler func(ev Event, shapes []Shape)

var (
	ErrUnknownShape = errors.New("draw: unknown shape")
	ErrNotEditing   = errors.New("draw: edit mode not active")
)

// Surface holds the shapes currently on the map. Handlers run after the
// surface lock is released so they may call back into it.
type Surface struct {
	mu       sync.Mutex
	shapes   map[string]*Shape
	order    []string
	seq      int
	tool     Tool
	handlers map[int]handlerEntry
	nextID   int
}

type handlerEntry struct {
	ev Event
	fn Handler
}

// NewSurface creates an empty surface.
func NewSurface() *Surface {
	return &Surface{
		shapes:   make(map[string]*Shape),
		handlers: make(map[int]handlerEntry),
	}
}

// On registers fn for ev and returns a handle for Off.
func (s *Surface) On(ev Event, fn Handler) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.handlers[s.nextID] = handlerEntry{ev: ev, fn: fn}
	return s.nextID
}

// Off removes a handler registered with On.
func (s *Surface) Off(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.handlers, id)
}

// Create adds a user-drawn shape and fires created. It ends any draw tool.
func (s *Surface) Create(geom orb.Geometry, kind Kind) Shape {
	s.mu.Lock()
	sh := s.put(geom, kind, Style{})
	s.tool = ToolNone
	hs := s.handlersFor(EventCreated)
	s.mu.Unlock()

	for _, h := range hs {
		h(EventCreated, []Shape{sh})
	}
	return sh
}

// Put adds a shape programmatically without firing created.
func (s *Surface) Put(geom orb.Geometry, kind Kind, style Style) Shape {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.put(geom, kind, style)
}

func (s *Surface) put(geom orb.Geometry, kind Kind, style Style) Shape {
	s.seq++
	sh := &Shape{
		ID:       fmt.Sprintf("shape-%d", s.seq),
		Kind:     kind,
		Geometry: geom,
		Style:    style,
	}
	s.shapes[sh.ID] = sh
	s.order = append(s.order, sh.ID)
	return *sh
}

// Remove deletes the given shapes and fires deleted with those that
// existed. Unknown ids are ignored.
func (s *Surface) Remove(ids ...string) []Shape {
	s.mu.Lock()
	var removed []Shape
	for _, id := range ids {
		if sh, ok := s.shapes[id]; ok {
			removed = append(removed, *sh)
			delete(s.shapes, id)
		}
	}
	if len(removed) == 0 {
		s.mu.Unlock()
		return nil
	}
	s.compact()
	hs := s.handlersFor(EventDeleted)
	s.mu.Unlock()

	for _, h := range hs {
		h(EventDeleted, removed)
	}
	return removed
}

// Clear drops every shape without firing events.
func (s *Surface) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shapes = make(map[string]*Shape)
	s.order = nil
}

// Len reports how many shapes are on the surface.
func (s *Surface) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.shapes)
}

// Shapes returns shapes in creation order.
func (s *Surface) Shapes() []Shape {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Shape, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.shapes[id])
	}
	return out
}

// Latest returns the most recently added shape.
func (s *Surface) Latest() (Shape, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.order) == 0 {
		return Shape{}, false
	}
	return *s.shapes[s.order[len(s.order)-1]], true
}

// SetStyle restyles a shape.
func (s *Surface) SetStyle(id string, style Style) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, ok := s.shapes[id]
	if !ok {
		return ErrUnknownShape
	}
	sh.Style = style
	return nil
}

// Tool returns the active tool.
func (s *Surface) Tool() Tool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tool
}

// StartPolygon arms the polygon tool.
func (s *Surface) StartPolygon() { s.setTool(ToolPolygon) }

// StartRectangle arms the rectangle tool.
func (s *Surface) StartRectangle() { s.setTool(ToolRectangle) }

// StartEdit enters vertex edit mode.
func (s *Surface) StartEdit() { s.setTool(ToolEdit) }

// CancelTool disarms whatever tool is active.
func (s *Surface) CancelTool() { s.setTool(ToolNone) }

func (s *Surface) setTool(t Tool) {
	s.mu.Lock()
	s.tool = t
	s.mu.Unlock()
}

// SaveEdit replaces geometries of edited shapes and leaves edit mode.
// Edits to unknown shapes fail the whole save.
func (s *Surface) SaveEdit(edits map[string]orb.Geometry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tool != ToolEdit {
		return ErrNotEditing
	}
	for id := range edits {
		if _, ok := s.shapes[id]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownShape, id)
		}
	}
	for id, g := range edits {
		s.shapes[id].Geometry = g
	}
	s.tool = ToolNone
	return nil
}

// DeleteAll removes every shape through Remove so deleted fires.
func (s *Surface) DeleteAll() []Shape {
	s.mu.Lock()
	ids := append([]string(nil), s.order...)
	s.mu.Unlock()
	return s.Remove(ids...)
}

func (s *Surface) compact() {
	kept := s.order[:0]
	for _, id := range s.order {
		if _, ok := s.shapes[id]; ok {
			kept = append(kept, id)
		}
	}
	s.order = kept
}

func (s *Surface) handlersFor(ev Event) []Handler {
	var out []Handler
	for id := 1; id <= s.nextID; id++ {
		if e, ok := s.handlers[id]; ok && e.ev == ev {
			out = append(out, e.fn)
		}
	}
	return out
}
