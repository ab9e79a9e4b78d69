package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var errNoAdRewarded = errors.New("no ad was rewarded")

func newAdsCmd(app *app) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "ads",
		Short: "Watch one batch of reward ads and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if count <= 0 {
				return fmt.Errorf("--count must be positive, got %d", count)
			}

			ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := app.wireRuntime(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			succeeded, runErr := rt.bot.RunBatch(ctx, count)
			if err := app.printSummary(cmd.OutOrStdout(), rt.bot.Summary(), "White Bunny Ad Batch"); err != nil {
				return err
			}
			if runErr != nil {
				return fmt.Errorf("run ad batch: %w", runErr)
			}
			if succeeded == 0 {
				return errNoAdRewarded
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&count, "count", 10, "Number of ads to watch")

	return cmd
}
