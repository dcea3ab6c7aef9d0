// Package workflow orchestrates the search/draw → edit → confirm flow
// that turns a shape on the drawing surface into a saved AOI.
//
// Confirm is enabled exactly when the surface holds at least one shape.
package workflow

import (
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-aoi/internal/aoi"
	"github.com/joeblew999/plat-aoi/internal/draw"
	"github.com/joeblew999/plat-aoi/internal/geometry"
	"github.com/joeblew999/plat-aoi/internal/mapview"
	"github.com/joeblew999/plat-aoi/internal/notify"
)

// Step is the progress indicator position.
type Step string

const (
	StepSearch  Step = "search"
	StepEdit    Step = "edit"
	StepConfirm Step = "confirm"
)

// User-facing messages.
const (
	MsgNoArea       = "No area drawn. Draw a polygon or rectangle first."
	MsgNoOutline    = "No outline to apply. Pick a search result with an outline."
	MsgSaved        = "Area saved"
	MsgApplied      = "Outline applied as base area"
	MsgDeleted      = "Area deleted"
	MsgUnknownAOI   = "That area no longer exists"
	MsgUnboundedAOI = "That area has no geometry to show"
)

// Surface is the drawing surface as the controller sees it.
type Surface interface {
	geometry.Surface
	Len() int
	Shapes() []draw.Shape
	Remove(ids ...string) []draw.Shape
	SetStyle(id string, style draw.Style) error
}

// Store persists AOIs.
type Store interface {
	List() []aoi.AOI
	Get(id string) (aoi.AOI, bool)
	Save(a aoi.AOI)
	Remove(id string)
}

// Fitter moves the viewport onto a bounding box.
type Fitter interface {
	FitBounds(b orb.Bound, opts mapview.FitOptions)
}

// Config wires a Controller.
type Config struct {
	Surface  Surface
	Store    Store
	Map      Fitter
	Notifier notify.Notifier
	Now      func() time.Time
	Fit      mapview.FitOptions
	// SimplifyAbove and SimplifyThreshold shrink large staged outlines.
	SimplifyAbove     int
	SimplifyThreshold float64
}

// Controller tracks workflow state for one viewer. Callers serialize
// access.
type Controller struct {
	cfg     Config
	log     *slog.Logger
	step    Step
	confirm bool
	outline json.RawMessage
	aois    []aoi.AOI
}

// New creates a controller and loads the saved AOI list.
func New(cfg Config) *Controller {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	c := &Controller{
		cfg:  cfg,
		log:  slog.Default().With("component", "workflow"),
		step: StepSearch,
	}
	c.refresh()
	c.recompute()
	return c
}

// Step returns the progress step.
func (c *Controller) Step() Step { return c.step }

// ConfirmEnabled reports whether confirm may be pressed.
func (c *Controller) ConfirmEnabled() bool { return c.confirm }

// Outline returns the staged outline, or nil.
func (c *Controller) Outline() json.RawMessage { return c.outline }

// AOIs returns the displayed AOI list.
func (c *Controller) AOIs() []aoi.AOI { return c.aois }

// OnShapeCreated handles a user-drawn shape. A hand-drawn shape
// supersedes any staged search outline.
func (c *Controller) OnShapeCreated(sh draw.Shape) {
	if err := c.cfg.Surface.SetStyle(sh.ID, geometry.DrawnStyle); err != nil {
		c.log.Debug("style new shape", "id", sh.ID, "err", err)
	}
	c.ClearOutline()
	c.step = StepEdit
}

// OnShapeDeleted recomputes confirm after shapes were removed.
func (c *Controller) OnShapeDeleted() {
	c.recompute()
	if !c.confirm && c.step == StepEdit {
		c.step = StepSearch
	}
}

// StageOutline renders geometry on the surface as the candidate outline,
// replacing whatever was there, and returns its bounds for fitting.
func (c *Controller) StageOutline(geom json.RawMessage) (orb.Bound, error) {
	if c.cfg.SimplifyAbove > 0 {
		simplified, err := geometry.Simplify(geom, c.cfg.SimplifyAbove, c.cfg.SimplifyThreshold)
		if err != nil {
			return orb.Bound{}, err
		}
		geom = simplified
	}
	bound, err := geometry.ApplyGeometry(c.cfg.Surface, geom, geometry.OutlineStyle)
	c.recompute()
	if err != nil {
		return orb.Bound{}, err
	}
	c.outline = geom
	c.step = StepEdit
	return bound, nil
}

// ClearOutline drops the staged outline and its rendered shape. Drawn
// and base shapes stay, so confirm follows what is left.
func (c *Controller) ClearOutline() {
	c.outline = nil
	var ids []string
	for _, sh := range c.cfg.Surface.Shapes() {
		if sh.Kind == draw.KindOutline {
			ids = append(ids, sh.ID)
		}
	}
	if len(ids) > 0 {
		c.cfg.Surface.Remove(ids...)
	}
	c.recompute()
}

// ConfirmAOI saves the active shape as a new AOI. It reports whether an
// AOI was saved.
func (c *Controller) ConfirmAOI() bool {
	if c.cfg.Surface.Len() == 0 {
		c.notify(notify.Warning, MsgNoArea)
		return false
	}
	geom, err := geometry.ToGeoJSON(c.cfg.Surface)
	if err != nil {
		c.log.Warn("extract geometry", "err", err)
		c.notify(notify.Warning, MsgNoArea)
		return false
	}

	a := aoi.New("", geom, c.cfg.Now())
	c.cfg.Store.Save(a)
	c.refresh()
	c.step = StepConfirm
	c.outline = nil
	c.notify(notify.Success, MsgSaved)
	return true
}

// ApplyOutlineAsBase replaces the surface contents with the staged
// outline in the base style.
func (c *Controller) ApplyOutlineAsBase() bool {
	if len(c.outline) == 0 {
		c.notify(notify.Warning, MsgNoOutline)
		return false
	}
	bound, err := geometry.Apply(c.cfg.Surface, c.outline, draw.KindBase, geometry.BaseStyle)
	c.recompute()
	if err != nil {
		c.log.Warn("apply outline", "err", err)
		c.notify(notify.Warning, MsgNoOutline)
		return false
	}
	c.cfg.Map.FitBounds(bound, c.cfg.Fit)
	c.step = StepEdit
	c.notify(notify.Success, MsgApplied)
	return true
}

// ShowAOI fits the viewport to a saved AOI.
func (c *Controller) ShowAOI(id string) bool {
	a, ok := c.cfg.Store.Get(id)
	if !ok {
		c.notify(notify.Warning, MsgUnknownAOI)
		return false
	}
	bound, err := geometry.Bounds(a.Geometry)
	if err != nil {
		if !errors.Is(err, geometry.ErrUnbounded) {
			c.log.Warn("bound aoi", "id", id, "err", err)
		}
		c.notify(notify.Warning, MsgUnboundedAOI)
		return false
	}
	c.cfg.Map.FitBounds(bound, c.cfg.Fit)
	return true
}

// DeleteAOI removes a saved AOI.
func (c *Controller) DeleteAOI(id string) {
	c.cfg.Store.Remove(id)
	c.refresh()
	c.notify(notify.Info, MsgDeleted)
}

// Refresh reloads the AOI list, e.g. after another tab saved one.
func (c *Controller) Refresh() { c.refresh() }

func (c *Controller) refresh() {
	c.aois = c.cfg.Store.List()
}

func (c *Controller) recompute() {
	c.confirm = c.cfg.Surface.Len() > 0
}

func (c *Controller) notify(level notify.Level, msg string) {
	if c.cfg.Notifier != nil {
		c.cfg.Notifier.Notify(level, msg)
	}
}
