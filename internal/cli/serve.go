package cli

import (
	"github.com/spf13/cobra"

	"github.com/yungbote/identity-backend/internal/platform/shutdown"
)

func (c *cli) serveCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				c.cfg.HTTP.Addr = addr
			}
			ctx, stop := shutdown.NotifyContext(cmd.Context())
			defer stop()

			a, err := c.newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides http.addr)")
	return cmd
}
