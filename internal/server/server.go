// Package server wires the layer registry, ingestion and session services
// behind the Huma API.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/rs/zerolog/log"

	"github.com/joeblew999/geoview/internal/api"
	"github.com/joeblew999/geoview/internal/config"
	"github.com/joeblew999/geoview/internal/export"
	"github.com/joeblew999/geoview/internal/ingest"
	"github.com/joeblew999/geoview/internal/metrics"
	"github.com/joeblew999/geoview/internal/normalize"
	"github.com/joeblew999/geoview/internal/registry"
	"github.com/joeblew999/geoview/internal/render"
	"github.com/joeblew999/geoview/internal/session"
)

// Config holds the server configuration.
type Config struct {
	Host    string
	Port    string
	DataDir string
	// App is the loaded configuration file. Nil means config.Default.
	App *config.Config
	// RestoreSession loads the saved session on start.
	RestoreSession bool
}

// Server is the geoview HTTP server.
type Server struct {
	config   Config
	app      *config.Config
	mux      *http.ServeMux
	handler  http.Handler
	humaAPI  huma.API
	store    session.Store
	services *api.Services
}

// New creates a server. It fails only when the session store cannot be
// opened.
func New(cfg Config) (*Server, error) {
	app := cfg.App
	if app == nil {
		app = config.Default()
	}

	store, err := app.Session.OpenStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	mux := http.NewServeMux()

	humaConfig := huma.DefaultConfig("geoview API", api.Version)
	humaConfig.Info.Description = "Load GIS files as map layers, style them, search them and keep the session."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, api.LinkTransformer())

	humaAPI := humago.New(mux, humaConfig)

	reg := registry.New(
		registry.WithRenderer(render.New()),
		registry.WithFit(app.FitOptions()),
		registry.WithViewport(app.DefaultViewport()),
	)
	services := &api.Services{
		Registry: reg,
		Ingest:   ingest.New(reg, ingest.WithMaxFileSize(app.Ingest.MaxFileSize)),
		Session:  session.NewCodec(reg, store, session.WithKey(app.Session.Key)),
	}

	s := &Server{
		config:   cfg,
		app:      app,
		mux:      mux,
		humaAPI:  humaAPI,
		store:    store,
		services: services,
	}
	s.routes()
	s.handler = RequestLogger(mux)

	if cfg.RestoreSession {
		s.restore()
	}
	return s, nil
}

func (s *Server) routes() {
	api.RegisterRoutes(s.humaAPI, s.services, s.info())

	s.mux.Handle("/metrics", metrics.Handler())
	s.mux.HandleFunc("/", s.handleRoot)
}

func (s *Server) info() api.InfoBody {
	var formats []string
	for _, f := range export.Formats() {
		formats = append(formats, string(f))
	}
	return api.InfoBody{
		DataDir:        s.config.DataDir,
		SessionBackend: s.app.Session.Backend,
		MaxFileSize:    s.app.Ingest.MaxFileSize,
		Extensions:     normalize.Extensions(),
		ExportFormats:  formats,
	}
}

// restore loads the saved session. Failures are logged and leave the
// registry empty.
func (s *Server) restore() {
	report, err := s.services.Session.Load(context.Background())
	if err != nil {
		log.Warn().Err(err).Msg("Saved session not restored")
		return
	}
	if report.Found {
		log.Info().Int("loaded", report.Loaded).Int("skipped", len(report.Skipped)).Msg("Session restored")
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// OpenAPI returns the generated OpenAPI document.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Services returns the services behind the API.
func (s *Server) Services() *api.Services {
	return s.services
}

// Close releases every layer and the session store.
func (s *Server) Close() error {
	s.services.Registry.Close()
	return s.store.Close()
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Add("Link", `</health>; rel="service-meta"`)
	w.Header().Add("Link", `</openapi.json>; rel="service-desc"`)
	http.Redirect(w, r, "/docs", http.StatusFound)
}
