// Package testutil holds fixtures and fakes shared by package tests.
package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/joeblew999/plat-aoi/internal/geocode"
)

// Square returns a closed GeoJSON polygon of side size degrees whose
// south-west corner is (lon, lat).
func Square(lon, lat, size float64) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(
		`{"type":"Polygon","coordinates":[[[%[1]g,%[2]g],[%[3]g,%[2]g],[%[3]g,%[4]g],[%[1]g,%[4]g],[%[1]g,%[2]g]]]}`,
		lon, lat, lon+size, lat+size))
}

// Jagged returns a unit square whose bottom edge has n+1 vertices with
// a tiny zigzag, so simplification has something to remove.
func Jagged(n int) json.RawMessage {
	pts := make([]string, 0, n+4)
	for i := 0; i <= n; i++ {
		pts = append(pts, fmt.Sprintf("[%g,%g]", float64(i)/float64(n), 0.00001*float64(i%2)))
	}
	pts = append(pts, "[1,1]", "[0,1]", "[0,0]")
	return json.RawMessage(`{"type":"Polygon","coordinates":[[` + strings.Join(pts, ",") + `]]}`)
}

// CologneOutline is a coarse city outline as a geocoder returns it.
var CologneOutline = json.RawMessage(`{"type":"Polygon","coordinates":[[[6.77,50.83],[7.16,50.83],[7.16,51.08],[6.77,51.08],[6.77,50.83]]]}`)

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Cologne is the suggestion for "Köln" with point and outline.
func Cologne() geocode.Suggestion {
	return geocode.Suggestion{
		DisplayName: "Köln, Nordrhein-Westfalen, Deutschland",
		Lat:         Float(50.9384),
		Lon:         Float(6.9599),
		GeoJSON:     CologneOutline,
	}
}

// FailingKV fails every operation with Err.
type FailingKV struct {
	Err error
}

func (f FailingKV) Get(context.Context, string) (string, error) { return "", f.Err }
func (f FailingKV) Set(context.Context, string, string) error { return f.Err }
func (f FailingKV) Delete(context.Context, string) error { return f.Err }

// Geocoder is a scripted geocoder. Queries listed in Gates block until
// their channel is closed.
type Geocoder struct {
	mu      sync.Mutex
	Results map[string][]geocode.Suggestion
	Err     error
	Gates   map[string]chan struct{}
	calls   []string
}

// Suggest returns the scripted results for q.
func (g *Geocoder) Suggest(ctx context.Context, q string) ([]geocode.Suggestion, error) {
	g.mu.Lock()
	g.calls = append(g.calls, q)
	gate := g.Gates[q]
	g.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return nil, g.Err
	}
	return g.Results[q], nil
}

// Calls returns the queries seen so far.
func (g *Geocoder) Calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}
