package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newRunCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the bot until interrupted",
		Long:  "Connect to the game server, tap continuously and watch reward ads in cycles until SIGINT or SIGTERM.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := app.wireRuntime(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			runErr := rt.bot.Run(ctx)
			if err := app.printSummary(cmd.OutOrStdout(), rt.bot.Summary(), ""); err != nil {
				return err
			}
			if runErr != nil {
				return fmt.Errorf("run bot: %w", runErr)
			}
			return nil
		},
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
