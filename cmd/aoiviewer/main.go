package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-aoi/internal/geocode"
	"github.com/joeblew999/plat-aoi/internal/imagery"
	"github.com/joeblew999/plat-aoi/internal/logging"
	"github.com/joeblew999/plat-aoi/internal/server"
)

// Options defines all CLI flags and env vars for the viewer server.
// Flags: --host, --port, --data-dir, --store, ...
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_DIR, SERVICE_STORE, ...
type Options struct {
	Host      string `doc:"Host to bind to" default:"0.0.0.0"`
	Port      int    `doc:"Port to listen on" short:"p" default:"8087"`
	DataDir   string `doc:"Directory for stored AOIs and preferences" default:".data"`
	WebDir    string `doc:"Optional web/ directory overriding the built-in templates" default:""`
	Store     string `doc:"Storage backend: memory, file or duckdb" default:"file"`
	LogLevel  string `doc:"Log level: debug, info, warn, error" default:"info"`
	LogFormat string `doc:"Log format: text or json" default:"text"`

	GeocodeURL       string `doc:"Nominatim-compatible search endpoint" default:"https://nominatim.openstreetmap.org"`
	GeocodeCountries string `doc:"Country codes that scope suggestions" default:"de"`
	GeocodeLimit     int    `doc:"Maximum suggestions per query" default:"7"`
	GeocodeUserAgent string `doc:"User-Agent sent to the geocoder" default:"plat-aoi/0.1 (aoiviewer)"`

	WMSURL    string `doc:"WMS endpoint for the orthophoto overlay" default:"https://sg.geodatenzentrum.de/wms_dop40"`
	WMSLayer  string `doc:"WMS layer name" default:"rgb"`
	WMSCRS    string `doc:"WMS coordinate reference system" default:"EPSG:3857"`
	WMSFormat string `doc:"WMS image format" default:"image/jpeg"`

	LightTiles string        `doc:"Light basemap tile URL template" default:"https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"`
	DarkTiles  string        `doc:"Dark basemap tile URL template" default:"https://{s}.basemaps.cartocdn.com/dark_all/{z}/{x}/{y}{r}.png"`
	FadeDelay  time.Duration `doc:"Cross-fade delay for layer swaps" default:"250ms"`
	SessionTTL time.Duration `doc:"Idle time before a viewer session is dropped" default:"30m"`
}

func newServer(opts *Options) (*server.Server, error) {
	logging.Setup(opts.LogLevel, opts.LogFormat)
	return server.New(server.Config{
		Host:    opts.Host,
		Port:    fmt.Sprintf("%d", opts.Port),
		DataDir: opts.DataDir,
		WebDir:  opts.WebDir,
		Store:   opts.Store,
		Geocode: geocode.Config{
			Endpoint:     opts.GeocodeURL,
			CountryCodes: opts.GeocodeCountries,
			Limit:        opts.GeocodeLimit,
			UserAgent:    opts.GeocodeUserAgent,
		},
		Imagery: imagery.Config{
			URL:    opts.WMSURL,
			Layer:  opts.WMSLayer,
			CRS:    opts.WMSCRS,
			Format: opts.WMSFormat,
		},
		LightTiles: opts.LightTiles,
		DarkTiles:  opts.DarkTiles,
		FadeDelay:  opts.FadeDelay,
		SessionTTL: opts.SessionTTL,
	})
}

func mustServer(opts *Options) *server.Server {
	srv, err := newServer(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return srv
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		var httpServer *http.Server

		hooks.OnStart(func() {
			srv := mustServer(opts)
			defer srv.Close()

			addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("plat-aoi viewer starting...\n")
			fmt.Printf("  Server:  %s\n", baseURL)
			fmt.Printf("  Data:    %s (%s)\n", opts.DataDir, opts.Store)
			fmt.Println()
			fmt.Printf("  Viewer:  %s/viewer\n", baseURL)
			fmt.Printf("  Docs:    %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI: %s/openapi.json\n", baseURL)
			fmt.Printf("  Metrics: %s/metrics\n", baseURL)
			fmt.Println()

			httpServer = &http.Server{Addr: addr, Handler: srv, ReadHeaderTimeout: 10 * time.Second}
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("server error", "err", err)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			if httpServer != nil {
				httpServer.Close()
			}
		})
	})

	cli.Root().Use = "aoiviewer"
	cli.Root().Short = "Map viewer for searching, drawing and saving areas of interest"
	cli.Root().Version = "0.1.0"

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			opts.Store = server.BackendMemory
			srv := mustServer(opts)
			defer srv.Close()
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			var err error
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error marshaling spec: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	cli.Root().AddCommand(aoiCommand())

	cli.Run()
}
