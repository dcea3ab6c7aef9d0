// Package geocode queries a Nominatim-compatible search API for location
// suggestions.
package geocode

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-aoi/internal/metrics"
)

// Defaults for the public Nominatim instance.
const (
	DefaultEndpoint     = "https://nominatim.openstreetmap.org"
	DefaultCountryCodes = "de"
	DefaultLimit        = 7
	DefaultUserAgent    = "plat-aoi/0.1 (aoiviewer)"
)

// Suggestion is a candidate location.
type Suggestion struct {
	DisplayName string          `json:"display_name" doc:"Label shown to the user" example:"Cologne, North Rhine-Westphalia, Germany"`
	Lat         *float64        `json:"lat,omitempty" doc:"Latitude"`
	Lon         *float64        `json:"lon,omitempty" doc:"Longitude"`
	GeoJSON     json.RawMessage `json:"geojson,omitempty" doc:"Outline geometry"`
}

// Point returns the suggestion's location as (lon, lat).
func (s Suggestion) Point() (orb.Point, bool) {
	if s.Lat == nil || s.Lon == nil {
		return orb.Point{}, false
	}
	return orb.Point{*s.Lon, *s.Lat}, true
}

// HasOutline reports whether an outline geometry came back.
func (s Suggestion) HasOutline() bool {
	g := bytes.TrimSpace(s.GeoJSON)
	return len(g) > 0 && !bytes.Equal(g, []byte("null"))
}

// Config configures the client.
type Config struct {
	Endpoint     string
	CountryCodes string
	Limit        int
	UserAgent    string
	Timeout      time.Duration
}

// Client calls the search endpoint.
type Client struct {
	cfg  Config
	http *http.Client
	log  *slog.Logger
}

// New creates a client. Zero config fields take the defaults.
func New(cfg Config, client *http.Client) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg, http: client, log: slog.Default().With("component", "geocode")}
}

// Suggest looks up q within the configured country scope.
func (c *Client) Suggest(ctx context.Context, q string) ([]Suggestion, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []Suggestion{}, nil
	}

	params := url.Values{}
	params.Set("q", q)
	params.Set("format", "jsonv2")
	params.Set("limit", strconv.Itoa(c.cfg.Limit))
	params.Set("polygon_geojson", "1")
	if c.cfg.CountryCodes != "" {
		params.Set("countrycodes", c.cfg.CountryCodes)
	}
	u := strings.TrimRight(c.cfg.Endpoint, "/") + "/search?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	t0 := time.Now()
	metrics.GeocodeRequestsTotal.Inc()
	c.log.Debug("geocode_req", "q", q)

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.GeocodeFailTotal.Inc()
		return nil, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.GeocodeFailTotal.Inc()
		return nil, fmt.Errorf("geocode: unexpected status %s", resp.Status)
	}

	var raw []struct {
		DisplayName string          `json:"display_name"`
		Lat         flexFloat       `json:"lat"`
		Lon         flexFloat       `json:"lon"`
		GeoJSON     json.RawMessage `json:"geojson"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		metrics.GeocodeFailTotal.Inc()
		return nil, fmt.Errorf("geocode decode: %w", err)
	}

	out := make([]Suggestion, 0, len(raw))
	for _, r := range raw {
		if len(out) == c.cfg.Limit {
			break
		}
		s := Suggestion{DisplayName: r.DisplayName, Lat: r.Lat.ptr(), Lon: r.Lon.ptr()}
		if g := bytes.TrimSpace(r.GeoJSON); len(g) > 0 && !bytes.Equal(g, []byte("null")) {
			s.GeoJSON = r.GeoJSON
		}
		out = append(out, s)
	}

	dur := time.Since(t0).Milliseconds()
	metrics.GeocodeDurationMs.Observe(float64(dur))
	c.log.Debug("geocode_resp", "q", q, "results", len(out), "duration_ms", dur)
	return out, nil
}

// flexFloat accepts a JSON number or a numeric string. Nominatim sends
// coordinates as strings.
type flexFloat struct {
	v  float64
	ok bool
}

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return errors.New("geocode: coordinate is not a number")
	}
	f.v, f.ok = v, true
	return nil
}

func (f flexFloat) ptr() *float64 {
	if !f.ok {
		return nil
	}
	v := f.v
	return &v
}
