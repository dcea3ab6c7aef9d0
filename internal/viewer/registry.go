package viewer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joeblew999/plat-aoi/internal/metrics"
	"github.com/joeblew999/plat-aoi/internal/service"
)

// DefaultTTL is how long an idle viewer without an open stream lives.
const DefaultTTL = 30 * time.Minute

// Registry maps session ids to viewers.
type Registry struct {
	cfg Config
	ttl time.Duration
	log *slog.Logger

	mu      sync.Mutex
	viewers map[string]*Viewer
}

// NewRegistry creates a registry. ttl <= 0 uses DefaultTTL.
func NewRegistry(cfg Config, ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Registry{
		cfg:     cfg.withDefaults(),
		ttl:     ttl,
		log:     slog.Default().With("component", "viewers"),
		viewers: make(map[string]*Viewer),
	}
}

// Open returns the viewer for sid, creating it if needed. An empty sid
// gets a fresh id.
func (r *Registry) Open(sid string) *Viewer {
	if sid == "" {
		sid = uuid.NewString()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.viewers[sid]; ok {
		return v
	}
	v := New(sid, r.cfg)
	r.viewers[sid] = v
	metrics.ViewerSessions.Inc()
	r.log.Debug("viewer opened", "sid", sid)
	return v
}

// Lookup returns an existing viewer.
func (r *Registry) Lookup(sid string) (*Viewer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.viewers[sid]
	return v, ok
}

// Len reports open viewers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.viewers)
}

// Reap closes viewers idle longer than the TTL as of now.
func (r *Registry) Reap(now time.Time) int {
	r.mu.Lock()
	var expired []*Viewer
	for sid, v := range r.viewers {
		last, streaming := v.idleSince()
		if streaming || now.Sub(last) < r.ttl {
			continue
		}
		expired = append(expired, v)
		delete(r.viewers, sid)
	}
	r.mu.Unlock()

	for _, v := range expired {
		v.Close()
		metrics.ViewerSessions.Dec()
		r.log.Debug("viewer expired", "sid", v.ID)
	}
	return len(expired)
}

// Broadcast refreshes the AOI list of every viewer.
func (r *Registry) Broadcast() {
	r.mu.Lock()
	all := make([]*Viewer, 0, len(r.viewers))
	for _, v := range r.viewers {
		all = append(all, v)
	}
	r.mu.Unlock()

	for _, v := range all {
		v.run(v.Flow.Refresh)
	}
}

// Run reaps on an interval and refreshes viewers on AOI changes until
// ctx ends.
func (r *Registry) Run(ctx context.Context, bus *service.EventBus) {
	interval := r.ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var events chan service.Event
	if bus != nil {
		events = bus.Subscribe()
		defer bus.Unsubscribe(events)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := r.Reap(now); n > 0 {
				r.log.Info("reaped idle viewers", "count", n)
			}
		case ev := <-events:
			if ev.Resource == service.ResourceAOIs {
				r.Broadcast()
			}
		}
	}
}

// Close tears down every viewer.
func (r *Registry) Close() {
	r.mu.Lock()
	all := r.viewers
	r.viewers = make(map[string]*Viewer)
	r.mu.Unlock()

	for _, v := range all {
		v.Close()
		metrics.ViewerSessions.Dec()
	}
}
