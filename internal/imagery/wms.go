// Package imagery describes the WMS orthophoto overlay and checks that
// its service answers before the overlay is reported as installed.
package imagery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/joeblew999/plat-aoi/internal/mapview"
)

// LayerName keys the overlay on the map.
const LayerName = "base-imagery"

// Config points at a WMS service.
type Config struct {
	URL    string
	Layer  string
	CRS    string
	Format string
}

// WMS probes a WMS endpoint.
type WMS struct {
	cfg    Config
	client *http.Client
}

// New creates a WMS overlay source. A nil client gets a 5s timeout.
func New(cfg Config, client *http.Client) *WMS {
	if cfg.CRS == "" {
		cfg.CRS = "EPSG:3857"
	}
	if cfg.Format == "" {
		cfg.Format = "image/jpeg"
	}
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &WMS{cfg: cfg, client: client}
}

// Overlay is the map layer the browser renders.
func (w *WMS) Overlay() mapview.Overlay {
	return mapview.Overlay{
		Name:   LayerName,
		URL:    w.cfg.URL,
		Layers: w.cfg.Layer,
		CRS:    w.cfg.CRS,
		Format: w.cfg.Format,
	}
}

// Probe issues GetCapabilities and fails on transport errors or non-2xx.
func (w *WMS) Probe(ctx context.Context) error {
	if w.cfg.URL == "" {
		return errors.New("imagery: no WMS url configured")
	}
	u, err := url.Parse(w.cfg.URL)
	if err != nil {
		return fmt.Errorf("imagery: bad WMS url: %w", err)
	}
	q := u.Query()
	q.Set("SERVICE", "WMS")
	q.Set("REQUEST", "GetCapabilities")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("imagery: WMS unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("imagery: WMS returned %s", resp.Status)
	}
	return nil
}
