package main

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/recommerce/asset/config"
	"github.com/recommerce/asset/core"
	assetlog "github.com/recommerce/asset/core/log"
	"github.com/recommerce/asset/factory"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

// newRootCmd builds the assetctl command tree.
func newRootCmd() *cobra.Command {
	var configFilePath string

	rootCmd := &cobra.Command{
		Use:           "assetctl",
		Short:         "assetctl - uniform access to asset storage backends",
		Long:          "assetctl puts, gets, lists, moves and removes assets on the configured filesystem, FTP, SFTP, SCP or S3 backend.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configFilePath, "config", "c", "", "Path to configuration file")

	configPath := func() string { return configFilePath }

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management commands",
	}
	configCmd.AddCommand(newValidateCmd(configPath))

	rootCmd.AddCommand(
		newPutCmd(configPath),
		newGetCmd(configPath),
		newListCmd(configPath),
		newMoveCmd(configPath),
		newRemoveCmd(configPath),
		newExistsCmd(configPath),
		newURLCmd(configPath),
		newServeCmd(configPath),
		configCmd,
	)

	return rootCmd
}

// app is what every command needs once the configuration is loaded.
type app struct {
	cfg    config.AppConfig
	logger *zap.Logger
}

func setup(configFilePath string) (*app, error) {
	cfg, err := config.LoadConfigFromFile(configFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := initializeLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return &app{cfg: cfg, logger: logger}, nil
}

// withClient loads the configuration, creates the configured client, runs fn
// and closes the client again.
func withClient(ctx context.Context, configFilePath string, fn func(*app, *core.Client) error) error {
	rt, err := setup(configFilePath)
	if err != nil {
		return err
	}
	defer func() {
		// stderr sync fails on some terminals
		_ = rt.logger.Sync()
	}()

	client, err := factory.New(rt.logger).Create(ctx, rt.cfg.Asset)
	if err != nil {
		return fmt.Errorf("failed to create asset client: %w", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			rt.logger.Warn("Failed to close asset client", zap.Error(err))
		}
	}()

	return fn(rt, client)
}

// initializeLogger creates a zap logger based on configuration
func initializeLogger(logCfg config.LogConfig) (*zap.Logger, error) {
	var cfg zap.Config

	if logCfg.Format == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}

	switch logCfg.Level {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	if logCfg.Mode != "" {
		assetlog.SetMode(assetlog.ParseMode(logCfg.Mode))
	}

	return cfg.Build()
}
