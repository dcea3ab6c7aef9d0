package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/joeblew999/plat-aoi/internal/aoi"
	"github.com/joeblew999/plat-aoi/internal/api"
	"github.com/joeblew999/plat-aoi/internal/api/editor"
	"github.com/joeblew999/plat-aoi/internal/geocode"
	"github.com/joeblew999/plat-aoi/internal/humastar"
	"github.com/joeblew999/plat-aoi/internal/imagery"
	"github.com/joeblew999/plat-aoi/internal/logging"
	"github.com/joeblew999/plat-aoi/internal/metrics"
	"github.com/joeblew999/plat-aoi/internal/service"
	"github.com/joeblew999/plat-aoi/internal/storage"
	"github.com/joeblew999/plat-aoi/internal/suggest"
	"github.com/joeblew999/plat-aoi/internal/templates"
	"github.com/joeblew999/plat-aoi/internal/view"
	"github.com/joeblew999/plat-aoi/internal/viewer"
)

// Config holds the server configuration.
type Config struct {
	Host    string
	Port    string
	DataDir string
	WebDir  string // optional override for templates/
	Store   string // memory, file or duckdb

	Geocode    geocode.Config
	Imagery    imagery.Config
	LightTiles string
	DarkTiles  string
	FadeDelay  time.Duration
	SessionTTL time.Duration

	// Geocoder replaces the Nominatim client, e.g. with a test fake.
	Geocoder suggest.Geocoder
	// KV replaces the configured backend.
	KV storage.KV
}

// Server is the AOI viewer HTTP server.
type Server struct {
	config   Config
	mux      *http.ServeMux
	handler  http.Handler
	humaAPI  huma.API
	kv       storage.KV
	closeKV  func() error
	store    *aoi.Store
	bus      *service.EventBus
	viewers  *viewer.Registry
	renderer *templates.Renderer
	links    *humastar.Links
	cancel   context.CancelFunc
	log      *slog.Logger
}

// New creates a new AOI viewer server.
func New(cfg Config) (*Server, error) {
	log := slog.Default().With("component", "server")

	kv, closeKV := cfg.KV, func() error { return nil }
	if kv == nil {
		var err error
		kv, closeKV, err = OpenKV(cfg.Store, cfg.DataDir)
		if err != nil {
			return nil, err
		}
	}

	renderer, err := templates.New(cfg.WebDir)
	if err != nil {
		closeKV()
		return nil, fmt.Errorf("load templates: %w", err)
	}

	geocoder := cfg.Geocoder
	if geocoder == nil {
		geocoder = geocode.New(cfg.Geocode, nil)
	}
	var wms *imagery.WMS
	if cfg.Imagery.URL != "" {
		wms = imagery.New(cfg.Imagery, nil)
	}

	mux := http.NewServeMux()
	links := humastar.NewLinks()

	humaConfig := huma.DefaultConfig("plat-aoi API", api.Version)
	humaConfig.Info.Description = "Area-of-Interest viewer: search places, draw areas and keep them."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, links.Transformer())

	humaAPI := humago.New(mux, humaConfig)

	store := aoi.NewStore(kv)
	bus := service.NewEventBus()
	viewers := viewer.NewRegistry(viewer.Config{
		Store:       store,
		KV:          kv,
		Geocoder:    geocoder,
		Imagery:     wms,
		LightTiles:  cfg.LightTiles,
		DarkTiles:   cfg.DarkTiles,
		FadeDelay:   cfg.FadeDelay,
		InitialMode: view.ModeMap,
	}, cfg.SessionTTL)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config:   cfg,
		mux:      mux,
		humaAPI:  humaAPI,
		kv:       kv,
		closeKV:  closeKV,
		store:    store,
		bus:      bus,
		viewers:  viewers,
		renderer: renderer,
		links:    links,
		cancel:   cancel,
		log:      log,
	}
	s.routes(geocoder, wms != nil)
	s.handler = logging.AccessMiddleware(slog.Default(), mux)

	go viewers.Run(ctx, bus)
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// OpenAPI returns the generated OpenAPI document.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Store exposes the AOI store for CLI commands.
func (s *Server) Store() *aoi.Store { return s.store }

// Bus exposes the change bus.
func (s *Server) Bus() *service.EventBus { return s.bus }

// Viewers exposes the session registry.
func (s *Server) Viewers() *viewer.Registry { return s.viewers }

// Close stops background work and closes storage.
func (s *Server) Close() error {
	s.cancel()
	s.viewers.Close()
	return s.closeKV()
}

func (s *Server) routes(geocoder suggest.Geocoder, imageryOn bool) {
	// Register Huma REST API routes (OpenAPI-documented JSON endpoints)
	huma.AutoRegister(s.humaAPI, api.NewAPIHandler(&api.Services{
		Store:    s.store,
		Geocoder: geocoder,
		Bus:      s.bus,
	}))
	api.NewInfoHandler(s.config.DataDir, backendName(s.config), imageryOn).RegisterRoutes(s.humaAPI)
	api.NewStorageHandler(s.kv, backendName(s.config)).RegisterRoutes(s.humaAPI)

	// Viewer SSE routes using Huma + Datastar SDK
	editor.NewViewerHandler(s.viewers, s.bus, s.renderer).RegisterRoutes(s.humaAPI)

	s.links.Discover(s.humaAPI)

	s.mux.Handle("GET /metrics", metrics.Handler())
	s.mux.HandleFunc("GET /viewer", s.handleViewer)
	s.mux.HandleFunc("GET /{$}", s.handleRoot)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	for _, link := range s.links.For("/health") {
		w.Header().Add("Link", link)
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"service": "plat-aoi",
		"status":  "running",
		"viewer":  "/viewer",
	})
}

// viewerPage feeds the viewer-page template.
type viewerPage struct {
	Sid     string
	Signals string
}

func (s *Server) handleViewer(w http.ResponseWriter, r *http.Request) {
	v := s.viewers.Open(r.URL.Query().Get("sid"))
	signals, err := initialSignals(v.Snapshot())
	if err != nil {
		http.Error(w, "could not build viewer state", http.StatusInternalServerError)
		return
	}
	html, err := s.renderer.Render("viewer-page", viewerPage{Sid: v.ID, Signals: signals})
	if err != nil {
		s.log.Error("render viewer page", "err", err)
		http.Error(w, "viewer page unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(html))
}

// initialSignals is the snapshot plus the input-only signals the page
// binds before the first event arrives.
func initialSignals(snap viewer.Snapshot) (string, error) {
	b, err := json.Marshal(snap)
	if err != nil {
		return "", err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return "", err
	}
	for k, v := range map[string]any{"pick": -1, "drawtool": "", "dir": "", "error": "", "success": ""} {
		m[k] = v
	}
	out, err := json.Marshal(m)
	return string(out), err
}

func backendName(cfg Config) string {
	if cfg.KV != nil {
		return "custom"
	}
	b := strings.ToLower(cfg.Store)
	if b == "" {
		return BackendFile
	}
	return b
}
