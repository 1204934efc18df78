package main

import (
	"github.com/goliatone/go-formbridge/adapters/gocommand"
	"github.com/goliatone/go-formbridge/core"
	"github.com/spf13/cobra"
)

func (a *app) syncCommand() *cobra.Command {
	var (
		policy string
		dryRun bool
		force  bool
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one webhook reconciliation sweep",
		Long: `Run one webhook reconciliation sweep across every form.

Policies:
  additive        add the bridge webhook where it is missing
  keep_canonical  remove every other webhook and keep exactly one bridge webhook
  reset           delete all webhooks and register the bridge webhook again`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := core.SweepRequest{Trigger: core.SweepTriggerCLI, DryRun: dryRun, Force: force}
			if policy != "" {
				parsed, err := core.ParsePolicy(policy)
				if err != nil {
					return err
				}
				req.Policy = parsed
			}
			bridge, err := a.bridge(cmd, core.Config{})
			if err != nil {
				return err
			}
			reconciler := bridge.Reconciler()
			if reconciler == nil {
				return core.NotConfiguredError("sweeper", "forms.api_key", "reconcile.canonical_url")
			}
			bus, err := gocommand.NewBus(reconciler, reconciler)
			if err != nil {
				return err
			}
			defer bus.Close()

			report, err := bus.Sweep(cmd.Context(), req)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(a.out, report)
			}
			return writeSweepReport(a.out, report)
		},
	}
	cmd.Flags().StringVar(&policy, "policy", "", "Reconcile policy (defaults to reconcile.policy)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Plan changes without applying them")
	cmd.Flags().BoolVar(&force, "force", false, "With reset, rebuild forms that are already converged")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full report as JSON")
	return cmd
}
