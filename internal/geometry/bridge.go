// Package geometry converts between drawing-surface shapes and portable
// GeoJSON, and computes bounds and areas for viewport fitting and display.
package geometry

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/simplify"

	"github.com/joeblew999/plat-aoi/internal/draw"
)

var (
	// ErrNoShape means the surface is empty; callers must check first.
	ErrNoShape = errors.New("geometry: no shape on surface")
	// ErrUnbounded means the geometry is empty or could not be parsed.
	ErrUnbounded = errors.New("geometry: geometry has no bounds")
)

// Surface is what the bridge needs from a drawing surface.
type Surface interface {
	Latest() (draw.Shape, bool)
	Clear()
	Put(geom orb.Geometry, kind draw.Kind, style draw.Style) draw.Shape
}

// Styles used when rendering shapes.
var (
	DrawnStyle   = draw.Style{Color: "#2563eb", Weight: 3, FillColor: "#3b82f6", FillOpacity: 0.2}
	OutlineStyle = draw.Style{Color: "#f59e0b", Weight: 2, FillColor: "#fbbf24", FillOpacity: 0.1, DashArray: "6 4"}
	BaseStyle    = draw.Style{Color: "#16a34a", Weight: 3, FillColor: "#22c55e", FillOpacity: 0.25}
)

// ToGeoJSON returns the GeoJSON geometry of the surface's active shape,
// which is the most recently added one.
func ToGeoJSON(s Surface) (json.RawMessage, error) {
	sh, ok := s.Latest()
	if !ok {
		return nil, ErrNoShape
	}
	return Marshal(sh.Geometry)
}

// Marshal encodes an orb geometry as a GeoJSON geometry object.
func Marshal(g orb.Geometry) (json.RawMessage, error) {
	if b, ok := g.(orb.Bound); ok {
		g = b.ToPolygon()
	}
	data, err := geojson.NewGeometry(g).MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encode geometry: %w", err)
	}
	return data, nil
}

// ApplyGeometry replaces everything on the surface with raw rendered in
// style as an outline shape and returns its bounds.
func ApplyGeometry(s Surface, raw json.RawMessage, style draw.Style) (orb.Bound, error) {
	return Apply(s, raw, draw.KindOutline, style)
}

// Apply is ApplyGeometry with an explicit shape kind.
func Apply(s Surface, raw json.RawMessage, kind draw.Kind, style draw.Style) (orb.Bound, error) {
	g, err := Parse(raw)
	if err != nil {
		return orb.Bound{}, err
	}
	b := g.Bound()
	if b.IsEmpty() {
		return orb.Bound{}, ErrUnbounded
	}
	s.Clear()
	s.Put(g, kind, style)
	return b, nil
}

// Parse decodes a GeoJSON geometry, Feature or FeatureCollection.
func Parse(raw json.RawMessage) (orb.Geometry, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, ErrUnbounded
	}

	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnbounded, err)
	}

	switch probe.Type {
	case "Feature":
		f, err := geojson.UnmarshalFeature(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnbounded, err)
		}
		if f.Geometry == nil {
			return nil, ErrUnbounded
		}
		return f.Geometry, nil
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnbounded, err)
		}
		var c orb.Collection
		for _, f := range fc.Features {
			if f.Geometry != nil {
				c = append(c, f.Geometry)
			}
		}
		if len(c) == 0 {
			return nil, ErrUnbounded
		}
		return c, nil
	default:
		g, err := geojson.UnmarshalGeometry(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnbounded, err)
		}
		if g.Geometry() == nil {
			return nil, ErrUnbounded
		}
		return g.Geometry(), nil
	}
}

// Bounds returns the bounding box of raw GeoJSON.
func Bounds(raw json.RawMessage) (orb.Bound, error) {
	g, err := Parse(raw)
	if err != nil {
		return orb.Bound{}, err
	}
	b := g.Bound()
	if b.IsEmpty() {
		return orb.Bound{}, ErrUnbounded
	}
	return b, nil
}

// Area returns the geodesic area of raw GeoJSON in square meters, or 0
// if it cannot be parsed.
func Area(raw json.RawMessage) float64 {
	g, err := Parse(raw)
	if err != nil {
		return 0
	}
	return geo.Area(g)
}

// Simplify reduces raw with Douglas-Peucker when it has more than
// maxPoints vertices. Smaller geometries are returned unchanged.
func Simplify(raw json.RawMessage, maxPoints int, threshold float64) (json.RawMessage, error) {
	g, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	if maxPoints <= 0 || CountPoints(g) <= maxPoints {
		return raw, nil
	}
	simplified := simplify.DouglasPeucker(threshold).Simplify(orb.Clone(g))
	return Marshal(simplified)
}

// CountPoints returns the number of vertices in g.
func CountPoints(g orb.Geometry) int {
	switch v := g.(type) {
	case orb.Point:
		return 1
	case orb.MultiPoint:
		return len(v)
	case orb.LineString:
		return len(v)
	case orb.MultiLineString:
		n := 0
		for _, ls := range v {
			n += len(ls)
		}
		return n
	case orb.Ring:
		return len(v)
	case orb.Polygon:
		n := 0
		for _, r := range v {
			n += len(r)
		}
		return n
	case orb.MultiPolygon:
		n := 0
		for _, p := range v {
			n += CountPoints(p)
		}
		return n
	case orb.Collection:
		n := 0
		for _, c := range v {
			n += CountPoints(c)
		}
		return n
	case orb.Bound:
		return 4
	}
	return 0
}
