package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	amptools "github.com/goliatone/go-amptools"
	"github.com/goliatone/go-amptools/pkg/amp"
	"github.com/goliatone/go-amptools/pkg/config"
)

var (
	configFile string
	logLevel   string
	ampMode    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "amptools",
		Short:         "Resolve and render AMP-aware templates",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", os.Getenv(config.EnvVar),
		"Path to YAML configuration file (defaults to $"+config.EnvVar+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&ampMode, "amp", false,
		"Resolve templates as an AMP request")

	rootCmd.AddCommand(cmdResolve())
	rootCmd.AddCommand(cmdRender())
	rootCmd.AddCommand(cmdServe())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func newLogger() (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", logLevel, err)
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(writer).Level(level).With().Timestamp().Logger(), nil
}

func loadConfig() (config.Config, error) {
	if configFile == "" {
		return config.Default(), nil
	}
	return config.Load(configFile)
}

func setupEnvironment() (*amptools.Environment, zerolog.Logger, error) {
	logger, err := newLogger()
	if err != nil {
		return nil, logger, err
	}
	cfg, err := loadConfig()
	if err != nil {
		return nil, logger, err
	}
	env, err := amptools.New(cfg, amptools.WithLogger(logger))
	if err != nil {
		return nil, logger, err
	}
	return env, logger, nil
}

// requestContext tags ctx the way the detection middleware would for a
// request with or without the AMP parameter.
func requestContext(ctx context.Context, settings amp.Settings, isAMP bool) context.Context {
	if isAMP {
		return amp.WithTag(ctx, settings.Folder)
	}
	return amp.WithTag(ctx, settings.DefaultTag)
}
