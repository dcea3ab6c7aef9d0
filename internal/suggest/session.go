// Package suggest runs the search box: query → suggestion list →
// selection → viewport fit.
//
// Every query takes a sequence number and only the response to the most
// recently issued query is applied. A slow early response cannot
// overwrite a newer list.
package suggest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"strings"
	"sync"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-aoi/internal/geocode"
	"github.com/joeblew999/plat-aoi/internal/mapview"
	"github.com/joeblew999/plat-aoi/internal/metrics"
	"github.com/joeblew999/plat-aoi/internal/sched"
)

// DefaultSelectZoom is the minimum zoom after recentering on a pick.
const DefaultSelectZoom = 13

// ErrNoSuggestion is returned when selecting an index that is not listed.
var ErrNoSuggestion = errors.New("suggest: no such suggestion")

// Geocoder looks up suggestions.
type Geocoder interface {
	Suggest(ctx context.Context, q string) ([]geocode.Suggestion, error)
}

// Map is the viewport the session moves.
type Map interface {
	SetView(center orb.Point, zoom float64, opts mapview.ViewOptions)
	FitBounds(b orb.Bound, opts mapview.FitOptions)
	Zoom() float64
}

// Outliner stages a selected outline. It is the workflow controller.
type Outliner interface {
	StageOutline(geometry json.RawMessage) (orb.Bound, error)
	ClearOutline()
}

// Config wires a Session.
type Config struct {
	Geocoder   Geocoder
	Map        Map
	Outliner   Outliner
	Scheduler  sched.Scheduler
	Alive      func() bool
	SelectZoom float64
	Fit        mapview.FitOptions
}

// Session holds the search text and current suggestions.
type Session struct {
	cfg Config
	log *slog.Logger

	mu          sync.Mutex
	text        string
	suggestions []geocode.Suggestion
	issued      uint64
}

// New creates a session.
func New(cfg Config) *Session {
	if cfg.SelectZoom <= 0 {
		cfg.SelectZoom = DefaultSelectZoom
	}
	return &Session{cfg: cfg, log: slog.Default().With("component", "suggest")}
}

// Query updates the search text and fetches suggestions. Empty text
// clears the list without a lookup. Lookup failures clear the list
// silently. It reports whether this call's result was applied.
func (s *Session) Query(ctx context.Context, text string) bool {
	s.mu.Lock()
	s.text = text
	s.issued++
	seq := s.issued
	if strings.TrimSpace(text) == "" {
		s.suggestions = nil
		s.mu.Unlock()
		return true
	}
	s.mu.Unlock()

	results, err := s.cfg.Geocoder.Suggest(ctx, text)

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.issued {
		metrics.GeocodeStaleTotal.Inc()
		s.log.Debug("dropping stale suggestions", "q", text, "seq", seq, "latest", s.issued)
		return false
	}
	if err != nil {
		s.log.Debug("suggestion lookup failed", "q", text, "err", err)
		s.suggestions = nil
		return true
	}
	s.suggestions = results
	return true
}

// Text returns the search box text.
func (s *Session) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

// Suggestions returns a copy of the current list.
func (s *Session) Suggestions() []geocode.Suggestion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]geocode.Suggestion(nil), s.suggestions...)
}

// SelectIndex selects the i-th listed suggestion.
func (s *Session) SelectIndex(i int) error {
	s.mu.Lock()
	if i < 0 || i >= len(s.suggestions) {
		s.mu.Unlock()
		return ErrNoSuggestion
	}
	picked := s.suggestions[i]
	s.mu.Unlock()

	s.Select(picked)
	return nil
}

// Select applies a suggestion: the list is cleared, the text becomes the
// label, the map recenters on the point, and an outline is staged with
// an asynchronous fit once it is rendered.
func (s *Session) Select(sg geocode.Suggestion) {
	s.mu.Lock()
	s.suggestions = nil
	s.text = sg.DisplayName
	s.issued++ // in-flight lookups are now stale
	s.mu.Unlock()

	if p, ok := sg.Point(); ok {
		zoom := math.Max(s.cfg.Map.Zoom(), s.cfg.SelectZoom)
		s.cfg.Map.SetView(p, zoom, mapview.ViewOptions{Animate: true})
	}

	if !sg.HasOutline() {
		s.cfg.Outliner.ClearOutline()
		return
	}

	bound, err := s.cfg.Outliner.StageOutline(sg.GeoJSON)
	if err != nil {
		s.log.Warn("suggestion outline rejected", "name", sg.DisplayName, "err", err)
		s.cfg.Outliner.ClearOutline()
		return
	}
	fit := s.cfg.Fit
	s.cfg.Scheduler.After(0, sched.Guard(s.cfg.Alive, func() {
		s.cfg.Map.FitBounds(bound, fit)
	}))
}
