package main

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/tal/pkg/observe"
	"github.com/vango-dev/tal/pkg/render"
	"github.com/vango-dev/tal/pkg/source"
	"github.com/vango-dev/tal/pkg/tal"
)

type renderOptions struct {
	data    string
	output  string
	pretty  bool
	page    bool
	title   string
	scripts bool
}

func renderCmd() *cobra.Command {
	var opts renderOptions

	cmd := &cobra.Command{
		Use:   "render [template]",
		Short: "Render a template to static HTML",
		Long: `Render a template against its data model and print the HTML.

The template and data default to source.template and source.data from
tal.yaml. Names are relative to the source directory or S3 prefix.

Examples:
  tal render
  tal render cart.html --data cart.yaml
  tal render --page --title Shop -o dist/index.html`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return runRender(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
			}
			return runRender(cmd.Context(), cmd.OutOrStdout(), "", opts)
		},
	}

	cmd.Flags().StringVarP(&opts.data, "data", "d", "", "Data file (default from tal.yaml)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Write to file instead of stdout")
	cmd.Flags().BoolVar(&opts.pretty, "pretty", false, "Indent the output")
	cmd.Flags().BoolVar(&opts.page, "page", false, "Wrap the output in a complete document")
	cmd.Flags().StringVar(&opts.title, "title", "", "Document title with --page")
	cmd.Flags().BoolVar(&opts.scripts, "scripts", false, "Enable script: expressions")

	return cmd
}

func runRender(ctx context.Context, stdout io.Writer, name string, opts renderOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if name == "" {
		name = cfg.Source.Template
	}
	if opts.data != "" {
		cfg.Source.Data = opts.data
	}
	if opts.scripts {
		cfg.Server.Scripts = true
	}
	logger := newLogger(cfg)

	store := openStore(cfg)
	tpl, err := source.LoadTemplate(ctx, store, name)
	if err != nil {
		return err
	}
	reg := observe.NewRegistry(observe.WithLogger(logger))
	model, err := loadModel(ctx, store, cfg.Source.Data, reg)
	if err != nil {
		return err
	}
	if _, err := newEngine(cfg, logger, tal.Hooks{}).Render(tpl, model); err != nil {
		return err
	}

	w := stdout
	if opts.output != "" {
		f, err := os.Create(opts.output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	r := render.NewRenderer(render.RendererConfig{Pretty: opts.pretty})
	if opts.page {
		err = r.RenderPage(w, render.PageData{Body: tpl, Title: opts.title})
	} else {
		err = r.RenderToWriter(w, tpl)
	}
	if err != nil {
		return err
	}
	if opts.output != "" {
		success("Rendered %s to %s", name, opts.output)
	}
	return nil
}
