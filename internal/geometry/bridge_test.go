package geometry

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-aoi/internal/draw"
	"github.com/joeblew999/plat-aoi/internal/testutil"
)

func TestToGeoJSON_EmptySurface(t *testing.T) {
	_, err := ToGeoJSON(draw.NewSurface())
	assert.ErrorIs(t, err, ErrNoShape)
}

func TestToGeoJSON_LatestShape(t *testing.T) {
	s := draw.NewSurface()
	s.Create(orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}}, draw.KindPolygon)
	s.Create(orb.Bound{Min: orb.Point{6, 50}, Max: orb.Point{7, 51}}, draw.KindRectangle)

	raw, err := ToGeoJSON(s)
	require.NoError(t, err)

	var g struct {
		Type        string        `json:"type"`
		Coordinates [][][]float64 `json:"coordinates"`
	}
	require.NoError(t, json.Unmarshal(raw, &g))
	assert.Equal(t, "Polygon", g.Type, "rectangles export as polygons")
	require.Len(t, g.Coordinates, 1)
	assert.Len(t, g.Coordinates[0], 5)
}

func TestApplyGeometry_Feature(t *testing.T) {
	s := draw.NewSurface()
	s.Create(orb.Point{1, 1}, draw.KindPolygon)

	feature := fmt.Sprintf(`{"type":"Feature","properties":{},"geometry":%s}`, testutil.CologneOutline)
	b, err := ApplyGeometry(s, json.RawMessage(feature), OutlineStyle)
	require.NoError(t, err)

	assert.InDelta(t, 6.77, b.Min[0], 1e-9)
	assert.InDelta(t, 51.08, b.Max[1], 1e-9)

	shapes := s.Shapes()
	require.Len(t, shapes, 1, "previous shapes are cleared")
	assert.Equal(t, draw.KindOutline, shapes[0].Kind)
	assert.Equal(t, OutlineStyle, shapes[0].Style)
}

func TestApplyGeometry_BareGeometryAndCollection(t *testing.T) {
	s := draw.NewSurface()

	_, err := ApplyGeometry(s, testutil.Square(7, 51, 0.5), DrawnStyle)
	require.NoError(t, err)

	fc := fmt.Sprintf(`{"type":"FeatureCollection","features":[{"type":"Feature","properties":{},"geometry":%s},{"type":"Feature","properties":{},"geometry":%s}]}`,
		testutil.Square(0, 0, 1), testutil.Square(5, 5, 1))
	b, err := ApplyGeometry(s, json.RawMessage(fc), DrawnStyle)
	require.NoError(t, err)
	assert.Equal(t, orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{6, 6}}, b)
	assert.Equal(t, 1, s.Len())
}

func TestApplyGeometry_Invalid(t *testing.T) {
	s := draw.NewSurface()
	s.Create(orb.Point{1, 1}, draw.KindPolygon)

	for _, raw := range []string{
		``, `null`, `{broken`, `{"type":"Feature","properties":{},"geometry":null}`,
		`{"type":"Polygon","coordinates":[]}`,
	} {
		_, err := ApplyGeometry(s, json.RawMessage(raw), OutlineStyle)
		assert.ErrorIs(t, err, ErrUnbounded, "input %q", raw)
	}
	assert.Equal(t, 1, s.Len(), "invalid input leaves the surface untouched")
}

func TestBounds_EmptyPolygon(t *testing.T) {
	_, err := Bounds(json.RawMessage(`{"type":"Polygon","coordinates":[]}`))
	assert.ErrorIs(t, err, ErrUnbounded)
}

func TestBounds_Point(t *testing.T) {
	b, err := Bounds(json.RawMessage(`{"type":"Point","coordinates":[6.96,50.94]}`))
	require.NoError(t, err)
	assert.Equal(t, orb.Point{6.96, 50.94}, b.Center())
}

func TestArea(t *testing.T) {
	// 0.01° square near the equator is roughly 1.11 km on a side.
	a := Area(testutil.Square(0, 0, 0.01))
	assert.InDelta(t, 1.236e6, a, 0.02e6)

	assert.Zero(t, Area(json.RawMessage(`{broken`)))
}

func TestSimplify(t *testing.T) {
	raw := testutil.Jagged(100)

	unchanged, err := Simplify(raw, 1000, 0.001)
	require.NoError(t, err)
	assert.Equal(t, string(raw), string(unchanged))

	out, err := Simplify(raw, 50, 0.001)
	require.NoError(t, err)
	g, err := Parse(out)
	require.NoError(t, err)
	assert.Less(t, CountPoints(g), 50)
	assert.GreaterOrEqual(t, CountPoints(g), 4)
}

func TestCountPoints(t *testing.T) {
	assert.Equal(t, 1, CountPoints(orb.Point{}))
	assert.Equal(t, 4, CountPoints(orb.Bound{}))
	assert.Equal(t, 8, CountPoints(orb.MultiPolygon{
		{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}},
		{{{2, 2}, {3, 2}, {3, 3}, {2, 2}}},
	}))
}
