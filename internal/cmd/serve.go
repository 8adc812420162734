package cmd

import (
	"inkwell/internal/dialog"

	"github.com/spf13/cobra"
)

func newServeCmd(opts *options) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the editor UI without a desktop window",
		Long: `Serve the gateway for an editor UI running elsewhere on this machine.
File dialogs are shown in this terminal.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				opts.cfg.Gateway.Addr = addr
				if err := opts.cfg.Validate(); err != nil {
					return err
				}
			}
			return runHeadless(cmd.Context(), opts.cfg, dialog.NewTerminal())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides gateway.addr)")
	return cmd
}
