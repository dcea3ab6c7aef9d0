package viewer

import (
	"context"
	"errors"
	"time"

	"github.com/joeblew999/plat-aoi/internal/imagery"
	"github.com/joeblew999/plat-aoi/internal/metrics"
	"github.com/joeblew999/plat-aoi/internal/view"
)

var errNoImagery = errors.New("viewer: no imagery overlay configured")

const probeTimeout = 5 * time.Second

// layers applies view machine decisions to both maps.
type layers struct {
	v     *Viewer
	wms   *imagery.WMS
	light string
	dark  string
}

// InstallOverlay adds the overlay right away and reports reachability
// once the probe returns. The overlay stays installed either way.
func (l *layers) InstallOverlay(done func(error)) {
	if l.wms == nil {
		metrics.OverlayFailTotal.Inc()
		done(errNoImagery)
		return
	}
	l.v.Map.AddOverlay(l.wms.Overlay())

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
		defer cancel()
		err := l.wms.Probe(ctx)
		if err != nil {
			metrics.OverlayFailTotal.Inc()
		}
		l.v.run(func() { done(err) })
	}()
}

func (l *layers) RemoveOverlay() bool {
	return l.v.Map.RemoveOverlay(imagery.LayerName)
}

func (l *layers) SetBasemap(t view.Theme) {
	url := l.light
	if t == view.ThemeDark {
		url = l.dark
	}
	l.v.Map.SetBasemap(url)
	l.v.Minimap.SetBasemap(url)
}
