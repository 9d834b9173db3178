package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/geoview/internal/config"
	"github.com/joeblew999/geoview/internal/ingest"
	"github.com/joeblew999/geoview/internal/logger"
	"github.com/joeblew999/geoview/internal/registry"
	"github.com/joeblew999/geoview/internal/server"
	"github.com/joeblew999/geoview/internal/session"
)

// Options defines all CLI flags and env vars for geoview.
// Flags: --host, --port, --data-dir, --config, --log-level, --log-format, --restore
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_DIR, ...
type Options struct {
	Host      string `doc:"Host to bind to" default:"0.0.0.0"`
	Port      int    `doc:"Port to listen on" short:"p" default:"8086"`
	DataDir   string `doc:"Directory for sessions and the DuckDB file" default:".data"`
	Config    string `doc:"Path to the YAML configuration file" short:"c"`
	LogLevel  string `doc:"Log level (trace, debug, info, warn, error)" default:"info"`
	LogFormat string `doc:"Log format (console, json)" default:"console"`
	Restore   bool   `doc:"Restore the saved session on start" default:"true"`
}

// setup configures logging and loads the configuration file.
func setup(opts *Options) *config.Config {
	if err := (logger.Logger{Level: opts.LogLevel, Format: opts.LogFormat}).Setup(); err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring logger: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load(opts.Config)
	if err != nil {
		log.Fatal().Err(err).Str("path", opts.Config).Msg("Failed to load configuration")
	}
	return cfg
}

func newServer(opts *Options, cfg *config.Config, restore bool) *server.Server {
	srv, err := server.New(server.Config{
		Host:           opts.Host,
		Port:           fmt.Sprintf("%d", opts.Port),
		DataDir:        opts.DataDir,
		App:            cfg,
		RestoreSession: restore,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create server")
	}
	return srv
}

func main() {
	_ = godotenv.Load(".env")

	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		var httpServer *http.Server

		hooks.OnStart(func() {
			cfg := setup(opts)
			srv := newServer(opts, cfg, opts.Restore)
			defer srv.Close()

			addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			log.Info().
				Str("url", baseURL).
				Str("data", opts.DataDir).
				Str("session", cfg.Session.Backend).
				Msg("geoview API server starting")
			log.Info().Msgf("Docs: %s/docs, OpenAPI: %s/openapi.json", baseURL, baseURL)

			httpServer = &http.Server{Addr: addr, Handler: srv}
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatal().Err(err).Msg("Server error")
			}
		})

		hooks.OnStop(func() {
			if httpServer == nil {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			httpServer.Shutdown(ctx)
		})
	})

	cli.Root().Use = "geoview"
	cli.Root().Short = "Load GIS files as map layers and keep the session"
	cli.Root().Version = "1.0.0"

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			cfg := setup(opts)
			cfg.Session.Backend = config.BackendMemory
			srv := newServer(opts, cfg, false)
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

	// import subcommand: add files to the saved session without a server
	importCmd := &cobra.Command{
		Use:   "import FILE...",
		Short: "Add GIS files to the saved session",
		Args:  cobra.MinimumNArgs(1),
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			cfg := setup(opts)
			merge, _ := cmd.Flags().GetBool("merge")
			if err := importFiles(cmd.Context(), cfg, opts.DataDir, args, merge); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		}),
	}
	importCmd.Flags().BoolP("merge", "m", false, "Merge multi-layer files into one layer")
	cli.Root().AddCommand(importCmd)

	cli.Run()
}

// importFiles loads the saved session, ingests files into it and saves it
// back. Files holding several layers add each layer, or one merged layer.
func importFiles(ctx context.Context, cfg *config.Config, dataDir string, files []string, merge bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	store, err := cfg.Session.OpenStore(dataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	reg := registry.New(registry.WithFit(cfg.FitOptions()), registry.WithViewport(cfg.DefaultViewport()))
	defer reg.Close()
	codec := session.NewCodec(reg, store, session.WithKey(cfg.Session.Key))
	if _, err := codec.Load(ctx); err != nil {
		return err
	}

	uploads := make([]ingest.Upload, 0, len(files))
	for _, name := range files {
		data, err := os.ReadFile(name)
		if err != nil {
			return err
		}
		uploads = append(uploads, ingest.Upload{Name: name, Data: data})
	}

	svc := ingest.New(reg, ingest.WithMaxFileSize(cfg.Ingest.MaxFileSize))
	for _, res := range svc.Ingest(ctx, uploads) {
		switch res.Status {
		case ingest.StatusCandidates:
			added := addCandidates(svc, res, merge)
			fmt.Printf("%-8s %s: %d layer(s) added\n", res.Status, res.File, added)
		default:
			fmt.Printf("%-8s %s: %s\n", res.Status, res.File, res.Message)
		}
		for _, w := range res.Warnings {
			fmt.Printf("         warning: %s\n", w)
		}
	}

	snap, err := codec.Save(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Saved %d layer(s) to %s session %q\n", len(snap.Layers), cfg.Session.Backend, codec.Key())
	return nil
}

func addCandidates(svc *ingest.Service, res ingest.FileResult, merge bool) int {
	if merge {
		if _, err := svc.Merge(res.Token); err != nil {
			log.Error().Err(err).Str("file", res.File).Msg("Merge failed")
			return 0
		}
		return 1
	}
	defer svc.Discard(res.Token)
	added := 0
	for i := range res.Candidates {
		if _, err := svc.Pick(res.Token, i); err != nil {
			log.Error().Err(err).Str("file", res.File).Int("index", i).Msg("Pick failed")
			continue
		}
		added++
	}
	return added
}
