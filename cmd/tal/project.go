package main

import (
	"context"
	"log/slog"

	"github.com/vango-dev/tal/internal/config"
	"github.com/vango-dev/tal/pkg/observe"
	"github.com/vango-dev/tal/pkg/source"
	"github.com/vango-dev/tal/pkg/tal"
	"github.com/vango-dev/tal/pkg/tales"
)

// openStore returns the S3 store when a bucket is configured and the
// template directory otherwise.
func openStore(cfg *config.Config) source.Store {
	if s3 := cfg.Source.S3; s3.Bucket != "" {
		return source.NewS3Store(source.NewS3Client(s3.Region, s3.Endpoint), s3.Bucket, s3.Prefix)
	}
	return source.NewDirStore(cfg.SourceDir())
}

// loadModel wraps the configured data file, or an empty record.
func loadModel(ctx context.Context, store source.Store, name string, reg *observe.Registry) (*observe.Record, error) {
	if name == "" {
		return reg.NewRecord(nil, nil), nil
	}
	data, err := source.LoadData(ctx, store, name)
	if err != nil {
		return nil, err
	}
	return reg.NewRecord(data, nil), nil
}

func resolverOptions(cfg *config.Config, logger *slog.Logger) []tales.Option {
	opts := []tales.Option{tales.WithLogger(logger)}
	if cfg.Server.Scripts {
		opts = append(opts, tales.WithEvaluator(tales.NewExprEvaluator()))
	}
	return opts
}

func newEngine(cfg *config.Config, logger *slog.Logger, hooks tal.Hooks) *tal.Engine {
	return tal.NewEngine(
		tal.WithLogger(logger),
		tal.WithPrefix(cfg.Server.Prefix),
		tal.WithHooks(hooks),
		tal.WithResolver(tales.NewResolver(resolverOptions(cfg, logger)...)))
}
