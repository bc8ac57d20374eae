package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/spf13/cobra"

	"github.com/vango-dev/tal/internal/config"
	"github.com/vango-dev/tal/internal/errors"
	"github.com/vango-dev/tal/pkg/observe"
	"github.com/vango-dev/tal/pkg/source"
	"github.com/vango-dev/tal/pkg/tal"
)

func checkCmd() *cobra.Command {
	var (
		data   string
		strict bool
	)

	cmd := &cobra.Command{
		Use:   "check [templates...]",
		Short: "Check templates against the data model",
		Long: `Render each template against the data model and report problems.

Malformed statements and failing expressions are errors. Paths that do
not resolve are warnings, or errors with --strict.

Examples:
  tal check
  tal check index.html cart.html --data fixtures.yaml --strict`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), args, data, strict)
		},
	}

	cmd.Flags().StringVarP(&data, "data", "d", "", "Data file (default from tal.yaml)")
	cmd.Flags().BoolVar(&strict, "strict", false, "Treat warnings as errors")

	return cmd
}

func runCheck(ctx context.Context, names []string, data string, strict bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		names = []string{cfg.Source.Template}
	}
	if data != "" {
		cfg.Source.Data = data
	}
	store := openStore(cfg)

	failed := 0
	for _, name := range names {
		counter := &warnCounter{Handler: newLogger(cfg).Handler(), n: new(atomic.Int64)}

		err := checkTemplate(ctx, cfg, store, name, slog.New(counter))
		warnings := counter.n.Load()
		switch {
		case err != nil:
			failed++
			errorMsg("%s", name)
			errors.PrintError(err)
		case warnings > 0 && strict:
			failed++
			errorMsg("%s: %d warnings", name, warnings)
		case warnings > 0:
			warn("%s: %d warnings", name, warnings)
		default:
			success("%s", name)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d templates failed", failed, len(names))
	}
	return nil
}

// checkTemplate renders name once. Warnings go to logger.
func checkTemplate(ctx context.Context, cfg *config.Config, store source.Store, name string, logger *slog.Logger) error {
	tpl, err := source.LoadTemplate(ctx, store, name)
	if err != nil {
		return err
	}
	reg := observe.NewRegistry(observe.WithLogger(logger))
	model, err := loadModel(ctx, store, cfg.Source.Data, reg)
	if err != nil {
		return err
	}
	_, err = newEngine(cfg, logger, tal.Hooks{}).Render(tpl, model)
	return err
}

// warnCounter counts records at warn level and above.
type warnCounter struct {
	slog.Handler
	n *atomic.Int64
}

func (c *warnCounter) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelWarn {
		c.n.Add(1)
	}
	return c.Handler.Handle(ctx, r)
}

func (c *warnCounter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &warnCounter{Handler: c.Handler.WithAttrs(attrs), n: c.n}
}

func (c *warnCounter) WithGroup(name string) slog.Handler {
	return &warnCounter{Handler: c.Handler.WithGroup(name), n: c.n}
}
