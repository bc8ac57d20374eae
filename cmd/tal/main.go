package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/tal/internal/config"
	"github.com/vango-dev/tal/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ╔╦╗╔═╗╦
   ║ ╠═╣║
   ╩ ╩ ╩╩═╝
`

// configPath is the --config flag shared by every command.
var configPath string

func main() {
	if err := rootCmd().Execute(); err != nil {
		errors.PrintError(err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tal",
		Short: "Live HTML templates bound to observable data",
		Long: `tal renders HTML templates whose tal: attributes bind elements to a
data model, and serves them as live pages.

  • content, attributes, condition, repeat and listen statements
  • path, string, not, exists and script expressions
  • YAML or JSON models, from disk or S3
  • model changes patched into the browser over WebSocket`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file or project directory (default: nearest tal.yaml)")

	root.AddCommand(
		renderCmd(),
		serveCmd(),
		checkCmd(),
		versionCmd(),
	)
	return root
}

// loadConfig reads --config, the nearest project config, or the defaults
// when there is none.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	switch {
	case configPath == "":
		cfg, err = config.LoadFromWorkingDir()
		if errors.HasCode(err, errors.CodeConfigNotFound) {
			cfg, err = config.New(), nil
		}
	default:
		fi, statErr := os.Stat(configPath)
		if statErr == nil && fi.IsDir() {
			cfg, err = config.Load(configPath)
		} else {
			cfg, err = config.LoadFile(configPath)
		}
	}
	if err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// newLogger builds the process logger from the log section.
func newLogger(cfg *config.Config) *slog.Logger {
	level, _ := cfg.LogLevel()
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// printBanner prints the ASCII art banner.
func printBanner() {
	fmt.Print(banner)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}

// errorMsg prints an error message.
func errorMsg(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "\033[31m✗\033[0m %s\n", fmt.Sprintf(format, args...))
}
