package cmd

import (
	"github.com/bnema/whitebunny-cli/internal/adapters/config"
	"github.com/spf13/cobra"
)

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "wb",
		Short:         "White Bunny bot (wb): auto-tap and watch reward ads",
		Long:          "wb keeps a White Bunny game session open, taps continuously and watches rewarded ads, claiming each reward over the realtime channel.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.PersistentFlags().StringVar(&app.configPath, "config", config.DefaultPath, "Path to the key=value (or .toml) config file")
	rootCmd.PersistentFlags().StringVar(&app.logLevel, "log-level", "info", "Log level: debug, info, warn or error")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(app),
		newAdsCmd(app),
		newProbeCmd(app),
		newConfigCmd(app),
		newAuthCmd(app),
	)

	return rootCmd
}
