package cmd

import (
	"fmt"

	filestore "github.com/bnema/whitebunny-cli/internal/adapters/secrets/file"
	"github.com/spf13/cobra"
)

func newAuthCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the stored game token",
	}

	cmd.AddCommand(newAuthSetTokenCmd(app), newAuthClearTokenCmd(app))

	return cmd
}

func newAuthSetTokenCmd(app *app) *cobra.Command {
	var value string

	cmd := &cobra.Command{
		Use:   "set-token",
		Short: "Store the bearer token used when the config has no TOKEN",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.secretStore.Put(commandContext(cmd), filestore.TokenKey, value); err != nil {
				return fmt.Errorf("store token: %w", err)
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "token stored")
			return err
		},
	}

	cmd.Flags().StringVar(&value, "value", "", "Bearer token value")
	_ = cmd.MarkFlagRequired("value")

	return cmd
}

func newAuthClearTokenCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-token",
		Short: "Remove the stored bearer token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.secretStore.Delete(commandContext(cmd), filestore.TokenKey); err != nil {
				return fmt.Errorf("clear token: %w", err)
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "token cleared")
			return err
		},
	}
}
