package cli

import (
	"errors"
	"fmt"

	"aroma-order-service/internal/restaurant"

	"github.com/spf13/cobra"
)

func newResetCommand() *cobra.Command {
	var confirm bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all orders, tables and catalog data and re-seed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !confirm {
				return errors.New("reset deletes every order; pass --yes to confirm")
			}
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync()
			if cfg.Env == "production" {
				return errors.New("reset is disabled in production")
			}

			ctx := cmd.Context()
			s, err := openSeeded(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := restaurant.ResetAndSeed(ctx, s); err != nil {
				return fmt.Errorf("reset store: %w", err)
			}
			log.Info("store reset")
			fmt.Fprintln(cmd.OutOrStdout(), "database reset and re-seeded")
			return nil
		},
	}
	cmd.Flags().BoolVar(&confirm, "yes", false, "confirm that all data may be deleted")
	return cmd
}
