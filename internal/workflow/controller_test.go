package workflow

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-aoi/internal/aoi"
	"github.com/joeblew999/plat-aoi/internal/draw"
	"github.com/joeblew999/plat-aoi/internal/geometry"
	"github.com/joeblew999/plat-aoi/internal/mapview"
	"github.com/joeblew999/plat-aoi/internal/notify"
	"github.com/joeblew999/plat-aoi/internal/storage"
	"github.com/joeblew999/plat-aoi/internal/testutil"
)

var now = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

type fixture struct {
	c       *Controller
	surface *draw.Surface
	store   *aoi.Store
	m       *mapview.Map
	notes   *notify.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		surface: draw.NewSurface(),
		store:   aoi.NewStore(storage.NewMemory()),
		m:       mapview.New(orb.Point{7, 51}, 6, 1024, 768),
		notes:   &notify.Recorder{},
	}
	f.c = New(Config{
		Surface:  f.surface,
		Store:    f.store,
		Map:      f.m,
		Notifier: f.notes,
		Now:      func() time.Time { return now },
		Fit:      mapview.FitOptions{Padding: 24, MaxZoom: 17},
	})
	f.surface.On(draw.EventCreated, func(_ draw.Event, shapes []draw.Shape) {
		for _, sh := range shapes {
			f.c.OnShapeCreated(sh)
		}
	})
	f.surface.On(draw.EventDeleted, func(draw.Event, []draw.Shape) { f.c.OnShapeDeleted() })
	return f
}

// gated checks that confirm is enabled exactly when the surface has a shape.
func (f *fixture) gated(t *testing.T) {
	t.Helper()
	assert.Equal(t, f.surface.Len() > 0, f.c.ConfirmEnabled(), "confirm gating with %d shapes", f.surface.Len())
}

func (f *fixture) draw(t *testing.T) draw.Shape {
	t.Helper()
	g, err := geometry.Parse(testutil.Square(6.9, 50.9, 0.05))
	require.NoError(t, err)
	return f.surface.Create(g, draw.KindPolygon)
}

func (f *fixture) lastNote(t *testing.T) notify.Notification {
	t.Helper()
	n, ok := f.notes.Last()
	require.True(t, ok)
	return n
}

func TestController_InitialState(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, StepSearch, f.c.Step())
	assert.False(t, f.c.ConfirmEnabled())
	assert.Nil(t, f.c.Outline())
	assert.Empty(t, f.c.AOIs())
}

func TestController_ConfirmGating(t *testing.T) {
	f := newFixture(t)
	f.gated(t)

	sh := f.draw(t)
	f.gated(t)
	assert.Equal(t, StepEdit, f.c.Step())
	assert.Equal(t, geometry.DrawnStyle, f.surface.Shapes()[0].Style)

	_, err := f.c.StageOutline(testutil.CologneOutline)
	require.NoError(t, err)
	f.gated(t)

	f.c.ClearOutline()
	f.gated(t)
	assert.False(t, f.c.ConfirmEnabled(), "staging replaced the drawn shape")

	sh = f.draw(t)
	f.surface.Remove(sh.ID)
	f.gated(t)
	assert.Equal(t, StepSearch, f.c.Step())
}

func TestConfirmAOI_NoShapeWarns(t *testing.T) {
	f := newFixture(t)
	assert.False(t, f.c.ConfirmAOI())

	n := f.lastNote(t)
	assert.Equal(t, notify.Warning, n.Level)
	assert.Equal(t, MsgNoArea, n.Message)
	assert.Empty(t, f.store.List())
}

func TestConfirmAOI_SavesActiveShape(t *testing.T) {
	f := newFixture(t)
	f.draw(t)

	require.True(t, f.c.ConfirmAOI())
	list := f.store.List()
	require.Len(t, list, 1)
	assert.Equal(t, aoi.DefaultName(now), list[0].Name)
	assert.Equal(t, "2026-10-15T09:30:00Z", list[0].CreatedAt)

	b, err := geometry.Bounds(list[0].Geometry)
	require.NoError(t, err)
	assert.InDelta(t, 6.9, b.Min[0], 1e-9)

	assert.Len(t, f.c.AOIs(), 1)
	assert.Equal(t, StepConfirm, f.c.Step())
	assert.Equal(t, 1, f.surface.Len(), "shape stays on the surface")
	f.gated(t)

	n := f.lastNote(t)
	assert.Equal(t, notify.Success, n.Level)
	assert.Equal(t, MsgSaved, n.Message)
}

func TestConfirmAOI_StagedOutline(t *testing.T) {
	f := newFixture(t)
	_, err := f.c.StageOutline(testutil.CologneOutline)
	require.NoError(t, err)

	require.True(t, f.c.ConfirmAOI())
	assert.Nil(t, f.c.Outline())
	assert.JSONEq(t, string(testutil.CologneOutline), string(f.store.List()[0].Geometry))
}

func TestStageOutline(t *testing.T) {
	f := newFixture(t)
	b, err := f.c.StageOutline(testutil.CologneOutline)
	require.NoError(t, err)

	assert.InDelta(t, 7.16, b.Max[0], 1e-9)
	assert.Equal(t, StepEdit, f.c.Step())
	assert.JSONEq(t, string(testutil.CologneOutline), string(f.c.Outline()))
	shapes := f.surface.Shapes()
	require.Len(t, shapes, 1)
	assert.Equal(t, draw.KindOutline, shapes[0].Kind)
}

func TestStageOutline_Invalid(t *testing.T) {
	f := newFixture(t)
	drawn := f.draw(t)
	require.True(t, f.c.ConfirmEnabled())

	_, err := f.c.StageOutline(json.RawMessage(`{"type":"Polygon","coordinates":[]}`))
	assert.ErrorIs(t, err, geometry.ErrUnbounded)
	assert.Nil(t, f.c.Outline())
	f.gated(t)

	// A rejected suggestion clears the outline; the drawn shape stays.
	f.c.ClearOutline()
	shapes := f.surface.Shapes()
	require.Len(t, shapes, 1)
	assert.Equal(t, drawn.ID, shapes[0].ID)
	assert.True(t, f.c.ConfirmEnabled())
	f.gated(t)
}

func TestStageOutline_Simplifies(t *testing.T) {
	f := newFixture(t)
	f.c.cfg.SimplifyAbove = 50
	f.c.cfg.SimplifyThreshold = 0.001

	_, err := f.c.StageOutline(testutil.Jagged(100))
	require.NoError(t, err)
	g, err := geometry.Parse(f.c.Outline())
	require.NoError(t, err)
	assert.Less(t, geometry.CountPoints(g), 50)
}

func TestDrawnShapeSupersedesOutline(t *testing.T) {
	f := newFixture(t)
	_, err := f.c.StageOutline(testutil.CologneOutline)
	require.NoError(t, err)

	f.draw(t)
	assert.Nil(t, f.c.Outline())
	shapes := f.surface.Shapes()
	require.Len(t, shapes, 1)
	assert.Equal(t, draw.KindPolygon, shapes[0].Kind)
	f.gated(t)
}

func TestApplyOutlineAsBase(t *testing.T) {
	f := newFixture(t)
	assert.False(t, f.c.ApplyOutlineAsBase())
	assert.Equal(t, MsgNoOutline, f.lastNote(t).Message)

	_, err := f.c.StageOutline(testutil.CologneOutline)
	require.NoError(t, err)

	require.True(t, f.c.ApplyOutlineAsBase())
	shapes := f.surface.Shapes()
	require.Len(t, shapes, 1)
	assert.Equal(t, draw.KindBase, shapes[0].Kind)
	assert.Equal(t, geometry.BaseStyle, shapes[0].Style)
	assert.Equal(t, 11.0, f.m.Zoom())
	assert.Equal(t, MsgApplied, f.lastNote(t).Message)
	f.gated(t)

	// a later selection without outline keeps the applied base
	f.c.ClearOutline()
	assert.Equal(t, 1, f.surface.Len())
	f.gated(t)
}

func TestShowAOI(t *testing.T) {
	f := newFixture(t)
	a := aoi.New("Park", testutil.Square(6.9, 50.9, 0.05), now)
	f.store.Save(a)
	broken := aoi.New("Broken", json.RawMessage(`{"type":"Polygon","coordinates":[]}`), now)
	f.store.Save(broken)

	require.True(t, f.c.ShowAOI(a.ID))
	assert.InDelta(t, 6.925, f.m.Center()[0], 1e-9)

	assert.False(t, f.c.ShowAOI("missing"))
	assert.Equal(t, MsgUnknownAOI, f.lastNote(t).Message)

	assert.False(t, f.c.ShowAOI(broken.ID))
	assert.Equal(t, MsgUnboundedAOI, f.lastNote(t).Message)
}

func TestDeleteAOI(t *testing.T) {
	f := newFixture(t)
	a := aoi.New("Park", testutil.Square(6.9, 50.9, 0.05), now)
	f.store.Save(a)
	f.c.Refresh()
	require.Len(t, f.c.AOIs(), 1)

	f.c.DeleteAOI(a.ID)
	assert.Empty(t, f.c.AOIs())
	assert.Empty(t, f.store.List())
	n := f.lastNote(t)
	assert.Equal(t, notify.Info, n.Level)
	assert.Equal(t, MsgDeleted, n.Message)
}
