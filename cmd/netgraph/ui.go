package main

import (
	"github.com/spf13/cobra"

	"github.com/user/netgraph/internal/engine"
	"github.com/user/netgraph/internal/probe"
	"github.com/user/netgraph/internal/tui"
)

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Launch the live terminal dashboard",
	Long: `Launch an interactive terminal dashboard showing live connections.

The dashboard shows:
- a radial map of remote endpoints around this host
- a rolling activity sparkline
- the raw connection list with process owners

Use arrow keys to select a connection, 'p' to focus its process,
'+'/'-' and '['/']' to adjust refresh speeds, 'q' to quit.`,
	RunE: runUI,
}

func runUI(cmd *cobra.Command, args []string) error {
	var opts []engine.Option
	if cfg.ProbeLatency {
		sampler := probe.NewSampler(0, 0, 0)
		defer sampler.Close()
		opts = append(opts, engine.WithLatencySampler(sampler.Sample))
	}

	eng := engine.New(cfg, rules, opts...)
	app := tui.NewApp(eng, cfg)
	return app.Run()
}
