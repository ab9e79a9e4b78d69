package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newProbeCmd(app *app) *cobra.Command {
	var server string

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Open one game session and report its id",
		Long:  "Perform the handshake, websocket upgrade and probe against one server, print the session id and disconnect.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := commandContext(cmd)

			logger, err := app.newLogger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			cfg, err := app.loadConfig(ctx)
			if err != nil {
				return err
			}
			if server == "" {
				server = cfg.Servers[0]
			}
			client, err := app.newHTTPClient(cfg)
			if err != nil {
				return err
			}
			transport := app.newTransport(cfg, client, logger, nil, nil)
			defer transport.Close()

			session, err := openSession(ctx, cmd.ErrOrStderr(), transport, server)
			if err != nil {
				return fmt.Errorf("probe %s: %w", server, err)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "connected to %s (session %s)\n", session.Endpoint, session.ID)
			return err
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "Server host to probe (defaults to the first configured server)")

	return cmd
}
