package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vango-dev/tal/internal/config"
	"github.com/vango-dev/tal/pkg/observe"
	"github.com/vango-dev/tal/pkg/server"
	"github.com/vango-dev/tal/pkg/source"
)

func serveCmd() *cobra.Command {
	var (
		port    int
		host    string
		scripts bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the template as a live page",
		Long: `Serve the configured template as a live page.

Every request renders the template against a fresh copy of the data
model. The browser connects back over WebSocket and model changes made
by tal:listen statements are patched into the page.

Endpoints:
  /              the page
  /_tal/live     WebSocket
  /metrics       Prometheus metrics (if enabled)
  /healthz       health check

Examples:
  tal serve
  tal serve --port=8080
  tal serve --host=0.0.0.0 --scripts`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Server.Port = port
			}
			if host != "" {
				cfg.Server.Host = host
			}
			if scripts {
				cfg.Server.Scripts = true
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to run on (default from tal.yaml)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from tal.yaml)")
	cmd.Flags().BoolVar(&scripts, "scripts", false, "Enable script: expressions")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logger := newLogger(cfg)
	store := openStore(cfg)

	srv := server.New(serverConfig(cfg), pageFunc(cfg, store), server.WithLogger(logger))

	printBanner()
	fmt.Println("  serve")
	fmt.Println()
	info("Template: %s (%s)", cfg.Source.Template, store)
	if cfg.Source.Data != "" {
		info("Data:     %s", cfg.Source.Data)
	}
	success("Listening on %s", cfg.URL())
	fmt.Println()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx)
}

func serverConfig(cfg *config.Config) *server.Config {
	sc := server.DefaultConfig()
	sc.Address = cfg.Address()
	sc.Prefix = cfg.Server.Prefix
	sc.Scripts = cfg.Server.Scripts
	sc.MaxSessions = cfg.Server.MaxSessions
	sc.Metrics = cfg.Metrics
	sc.Tracing = cfg.Tracing
	sc.SessionConfig.AttachTimeout = cfg.AttachTimeout()
	sc.SessionConfig.IdleTimeout = cfg.IdleTimeout()
	return sc
}

// pageFunc loads the template and model for every request; rendering binds
// the tree, so pages never share one.
func pageFunc(cfg *config.Config, store source.Store) server.PageFunc {
	return func(r *http.Request, reg *observe.Registry) (*server.Page, error) {
		tpl, err := source.LoadTemplate(r.Context(), store, cfg.Source.Template)
		if err != nil {
			return nil, err
		}
		model, err := loadModel(r.Context(), store, cfg.Source.Data, reg)
		if err != nil {
			return nil, err
		}
		return &server.Page{Template: tpl, Data: model, Title: cfg.Name}, nil
	}
}
