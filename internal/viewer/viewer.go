// Package viewer composes the per-tab viewer: map, minimap, drawing
// surface, view machine, search session and workflow controller, all
// serialized behind one lock so each browser event is a single turn.
package viewer

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-aoi/internal/draw"
	"github.com/joeblew999/plat-aoi/internal/imagery"
	"github.com/joeblew999/plat-aoi/internal/mapview"
	"github.com/joeblew999/plat-aoi/internal/notify"
	"github.com/joeblew999/plat-aoi/internal/sched"
	"github.com/joeblew999/plat-aoi/internal/storage"
	"github.com/joeblew999/plat-aoi/internal/suggest"
	"github.com/joeblew999/plat-aoi/internal/view"
	"github.com/joeblew999/plat-aoi/internal/viewport"
	"github.com/joeblew999/plat-aoi/internal/workflow"
)

// Defaults for a fresh viewer.
var (
	DefaultCenter = orb.Point{7.0, 51.0} // lon, lat; western Germany
	DefaultZoom   = 6.0
	DefaultFit    = mapview.FitOptions{Padding: 24, MaxZoom: 17, Animate: true}
)

// Basemap tile templates.
const (
	DefaultLightTiles = "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"
	DefaultDarkTiles  = "https://{s}.basemaps.cartocdn.com/dark_all/{z}/{x}/{y}{r}.png"
)

// Config is shared by every viewer a registry creates.
type Config struct {
	Store       workflow.Store
	KV          storage.KV
	Geocoder    suggest.Geocoder
	Imagery     *imagery.WMS
	LightTiles  string
	DarkTiles   string
	FadeDelay   time.Duration
	InitialMode view.Mode
	Center      orb.Point
	Zoom        float64
	Fit         mapview.FitOptions

	// Scheduler overrides the timer; tests pass a sched.Manual.
	Scheduler sched.Scheduler
	Now       func() time.Time
}

func (c Config) withDefaults() Config {
	if c.LightTiles == "" {
		c.LightTiles = DefaultLightTiles
	}
	if c.DarkTiles == "" {
		c.DarkTiles = DefaultDarkTiles
	}
	if c.Center == (orb.Point{}) {
		c.Center = DefaultCenter
	}
	if c.Zoom <= 0 {
		c.Zoom = DefaultZoom
	}
	if c.Fit == (mapview.FitOptions{}) {
		c.Fit = DefaultFit
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Viewer is one browser tab's state.
type Viewer struct {
	ID string

	Map     *mapview.Map
	Minimap *mapview.Map
	Surface *draw.Surface
	View    *view.Machine
	Search  *suggest.Session
	Sync    *viewport.Synchronizer
	Flow    *workflow.Controller

	mu       sync.Mutex
	alive    atomic.Bool
	streams  atomic.Int32
	lastSeen time.Time
	fading   bool
	toasts   *notify.Queue
	wmu      sync.Mutex
	watchers map[chan struct{}]struct{}
	now      func() time.Time
	log      *slog.Logger
}

// New builds a viewer with its collaborators wired together.
func New(id string, cfg Config) *Viewer {
	cfg = cfg.withDefaults()

	v := &Viewer{
		ID:       id,
		toasts:   notify.NewQueue(8),
		watchers: make(map[chan struct{}]struct{}),
		now:      cfg.Now,
		log:      slog.Default().With("component", "viewer", "sid", id),
	}
	v.alive.Store(true)
	v.lastSeen = cfg.Now()

	scheduler := cfg.Scheduler
	if scheduler == nil {
		scheduler = sched.Timer{Wrap: v.run}
	}

	v.Map = mapview.New(cfg.Center, cfg.Zoom, 0, 0)
	v.Minimap = mapview.New(cfg.Center, math.Max(mapview.MinZoom, cfg.Zoom-viewport.DefaultOffset), 200, 200)
	v.Surface = draw.NewSurface()

	v.Flow = workflow.New(workflow.Config{
		Surface:  v.Surface,
		Store:    cfg.Store,
		Map:      v.Map,
		Notifier: v.toasts,
		Now:      cfg.Now,
		Fit:      cfg.Fit,
	})
	v.Search = suggest.New(suggest.Config{
		Geocoder:  cfg.Geocoder,
		Map:       v.Map,
		Outliner:  v.Flow,
		Scheduler: scheduler,
		Alive:     v.Alive,
		Fit:       cfg.Fit,
	})
	v.View = view.New(view.Config{
		Layers: &layers{
			v:     v,
			wms:   cfg.Imagery,
			light: cfg.LightTiles,
			dark:  cfg.DarkTiles,
		},
		Fader:     fader{v},
		KV:        cfg.KV,
		Notifier:  v.toasts,
		Scheduler: scheduler,
		Alive:     v.Alive,
		FadeDelay: cfg.FadeDelay,
		Initial:   cfg.InitialMode,
	})

	v.Sync = viewport.New()
	v.Sync.AttachPrimary(v.Map)
	v.Sync.AttachMinimap(v.Minimap)

	v.Surface.On(draw.EventCreated, func(_ draw.Event, shapes []draw.Shape) {
		for _, sh := range shapes {
			v.Flow.OnShapeCreated(sh)
		}
	})
	v.Surface.On(draw.EventDeleted, func(draw.Event, []draw.Shape) {
		v.Flow.OnShapeDeleted()
	})
	return v
}

// Do runs fn as one user event turn.
func (v *Viewer) Do(fn func()) {
	v.mu.Lock()
	v.lastSeen = v.now()
	fn()
	v.mu.Unlock()
	v.poke()
}

// run is the timer entry point; it does not count as user activity.
func (v *Viewer) run(fn func()) {
	v.mu.Lock()
	fn()
	v.mu.Unlock()
	v.poke()
}

// Query runs a search without holding the viewer lock. The session
// decides whether the answer is still current.
func (v *Viewer) Query(ctx context.Context, text string) bool {
	v.mu.Lock()
	v.lastSeen = v.now()
	v.mu.Unlock()

	applied := v.Search.Query(ctx, text)
	if applied {
		v.poke()
	}
	return applied
}

// Alive reports whether the viewer is still open.
func (v *Viewer) Alive() bool { return v.alive.Load() }

// Close tears the viewer down. Pending timers become no-ops.
func (v *Viewer) Close() {
	if !v.alive.CompareAndSwap(true, false) {
		return
	}
	v.Sync.Close()
	v.poke()
}

// Notify queues a toast for the next snapshot.
func (v *Viewer) Notify(level notify.Level, msg string) {
	v.toasts.Notify(level, msg)
	v.poke()
}

// Fading reports whether a cross-fade is in progress.
func (v *Viewer) Fading() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.fading
}

// Watch registers an event stream. Each stream gets its own change
// channel; stop unregisters it. A watched viewer is never reaped.
func (v *Viewer) Watch() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	v.wmu.Lock()
	v.watchers[ch] = struct{}{}
	v.wmu.Unlock()
	v.Attach()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			v.wmu.Lock()
			delete(v.watchers, ch)
			v.wmu.Unlock()
			v.Detach()
		})
	}
}

// Attach and Detach count open event streams; a streamed viewer is
// never reaped.
func (v *Viewer) Attach() { v.streams.Add(1) }
func (v *Viewer) Detach() {
	v.streams.Add(-1)
	v.mu.Lock()
	v.lastSeen = v.now()
	v.mu.Unlock()
}

// Streaming reports whether an event stream is attached.
func (v *Viewer) Streaming() bool { return v.streams.Load() > 0 }

func (v *Viewer) idleSince() (time.Time, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastSeen, v.streams.Load() > 0
}

func (v *Viewer) poke() {
	v.wmu.Lock()
	for ch := range v.watchers {
		signal(ch)
	}
	v.wmu.Unlock()
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

type fader struct{ v *Viewer }

func (f fader) BeginFade() { f.v.fading = true }
func (f fader) EndFade()   { f.v.fading = false }
