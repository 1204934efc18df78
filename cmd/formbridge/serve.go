package main

import (
	"github.com/goliatone/go-formbridge/core"
	"github.com/spf13/cobra"
)

func (a *app) serveCommand() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook receiver and the scheduled sweep",
		RunE: func(cmd *cobra.Command, _ []string) error {
			bridge, err := a.bridge(cmd, core.Config{Server: core.ServerConfig{Port: port}})
			if err != nil {
				return err
			}
			return bridge.ListenAndRun(cmd.Context())
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "HTTP port (overrides PORT)")
	return cmd
}
