package main

import (
	"io"

	"github.com/gin-gonic/gin"
	formbridge "github.com/goliatone/go-formbridge"
	"github.com/goliatone/go-formbridge/core"
	"github.com/spf13/cobra"
)

type app struct {
	out        io.Writer
	envFiles   []string
	logLevel   string
	logJSON    bool
	bridgeOpts []formbridge.Option
}

func newRootCommand(out io.Writer, opts ...formbridge.Option) *cobra.Command {
	a := &app{out: out, bridgeOpts: opts}
	root := &cobra.Command{
		Use:           "formbridge",
		Short:         "Bridge Jotform submissions to the CRM router",
		Long:          "formbridge receives Jotform webhooks, normalizes them into canonical CRM records and keeps every form's webhook registrations pointed at the bridge.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringSliceVar(&a.envFiles, "env-file", []string{".env"}, "Env files to load before reading the environment")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&a.logJSON, "log-json", false, "Emit JSON logs")

	root.AddCommand(a.serveCommand(), a.syncCommand(), a.checkCommand())
	return root
}

// bridge loads configuration with runtime overrides and assembles a Bridge.
func (a *app) bridge(cmd *cobra.Command, runtime core.Config) (*formbridge.Bridge, error) {
	runtime.Log.Level = a.logLevel
	runtime.Log.JSON = a.logJSON
	cfg, err := formbridge.LoadConfig(cmd.Context(), a.envFiles, runtime)
	if err != nil {
		return nil, err
	}
	gin.SetMode(gin.ReleaseMode)
	return formbridge.New(cfg, a.bridgeOpts...)
}
