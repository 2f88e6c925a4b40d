package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"person-registry/internal/platform/config"
	"person-registry/internal/platform/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFiles []string

	cmd := &cobra.Command{
		Use:           "person-registry",
		Short:         "Person registry HTTP API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load before reading the environment (default .env, .env.local)")

	serve := newServeCmd(&envFiles)
	cmd.RunE = serve.RunE
	cmd.AddCommand(serve, newMigrateCmd(&envFiles))
	return cmd
}

// bootstrap loads configuration and builds the process logger.
func bootstrap(envFiles []string) (config.Config, *slog.Logger, io.Closer, error) {
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return config.Config{}, nil, nil, fmt.Errorf("load config: %w", err)
	}
	log, closer, err := logger.New(cfg.Log, os.Stdout)
	if err != nil {
		return config.Config{}, nil, nil, fmt.Errorf("build logger: %w", err)
	}
	slog.SetDefault(log)
	return cfg, log, closer, nil
}
