// Package cli holds the aroma command tree.
package cli

import (
	"context"
	"fmt"

	"aroma-order-service/internal/config"
	"aroma-order-service/internal/logger"
	"aroma-order-service/internal/restaurant"
	"aroma-order-service/internal/store"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var envFile string

// NewRootCommand builds the command tree. Running it without a subcommand
// serves the API.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "aroma",
		Short:         "AROMA restaurant ordering backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	root.AddCommand(newServeCommand())
	root.AddCommand(newMigrateCommand())
	root.AddCommand(newResetCommand())
	return root
}

// Execute runs the command tree against os.Args.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

// bootstrap loads configuration and builds the logger shared by every
// command. A missing env file is not an error.
func bootstrap() (config.Config, *zap.Logger, error) {
	if envFile != "" {
		_ = godotenv.Load(envFile)
	}
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.Env)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}

// openSeeded opens the configured store and installs the default catalog
// when it is empty.
func openSeeded(ctx context.Context, cfg config.Config, log *zap.Logger) (restaurant.Store, error) {
	s, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", store.Describe(cfg), err)
	}
	seeded, err := restaurant.Seed(ctx, s)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("seed store: %w", err)
	}
	log.Info("store ready", zap.String("backend", store.Describe(cfg)), zap.Bool("seeded", seeded))
	return s, nil
}
