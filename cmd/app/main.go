package main

import (
	"context"
	"fmt"
	"os"

	"VariantMap/internal/di"
	"VariantMap/pkg/config"
	applogger "VariantMap/pkg/logger"
	"VariantMap/pkg/server"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:           "variantmap",
		Short:         "Session-variant probability map for the NY open",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "config file path")

	root.AddCommand(buildCmd(&configPath))
	root.AddCommand(serveCmd(&configPath))
	return root
}

func buildCmd(configPath *string) *cobra.Command {
	var input, outDir string
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the map once, write every enabled sink and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(*configPath, func(cfg *config.Config) {
				if input != "" {
					cfg.Input.Source = "csv"
					cfg.Input.Path = input
				}
				if outDir != "" {
					cfg.Output.Dir = outDir
				}
			}, func(app *server.App) error {
				return app.RunBatch(cmd.Context())
			})
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "CSV bar file (overrides input.path)")
	cmd.Flags().StringVar(&outDir, "out", "", "output directory (overrides output.dir)")
	return cmd
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Build the map, then serve it over HTTP until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(*configPath, nil, func(app *server.App) error {
				return app.Serve(cmd.Context())
			})
		},
	}
}

// withApp loads config, applies flag overrides, wires the app and runs fn.
func withApp(path string, override func(*config.Config), fn func(*server.App) error) error {
	cfg, err := config.LoadWithEnv(path)
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}
	if override != nil {
		override(cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		return fmt.Errorf("app initialization failed: %w", err)
	}
	defer cleanup()
	defer func() {
		if err := app.Close(); err != nil {
			app.Logger().Error("close error", applogger.Error(err))
		}
	}()

	return fn(app)
}
