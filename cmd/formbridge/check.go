package main

import (
	"github.com/goliatone/go-formbridge/adapters/gocommand"
	"github.com/goliatone/go-formbridge/core"
	"github.com/spf13/cobra"
)

func (a *app) checkCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "List webhook registrations for every form",
		RunE: func(cmd *cobra.Command, _ []string) error {
			bridge, err := a.bridge(cmd, core.Config{})
			if err != nil {
				return err
			}
			reconciler := bridge.Reconciler()
			if reconciler == nil {
				return core.NotConfiguredError("auditor", "forms.api_key", "reconcile.canonical_url")
			}
			bus, err := gocommand.NewBus(reconciler, reconciler)
			if err != nil {
				return err
			}
			defer bus.Close()

			report, err := bus.Audit(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(a.out, report)
			}
			return writeAuditReport(a.out, report)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	return cmd
}
