package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/user/netgraph/internal/classify"
	"github.com/user/netgraph/internal/graph"
	"github.com/user/netgraph/internal/probe"
	"github.com/user/netgraph/internal/procmap"
	"github.com/user/netgraph/internal/scanner"
)

var snapshotJSON bool

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Print one scan of the connection graph and exit",
	Long: `Run the scan pipeline once - scan, correlate, classify, aggregate -
and print the resulting endpoint table without entering the dashboard.

Useful for scripting; --json emits the full graph as JSON.`,
	RunE: runSnapshot,
}

func init() {
	snapshotCmd.Flags().BoolVar(&snapshotJSON, "json", false, "emit the graph as JSON")
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	conns := scanner.Scan()
	procmap.Correlate(conns)

	var sampleMS func(addr string) (uint64, bool)
	if cfg.ProbeLatency {
		sampler := probe.NewSampler(0, 0, 0)
		defer sampler.Close()

		seen := make(map[string]bool)
		var addrs []string
		for _, c := range conns {
			if !seen[c.RemoteAddr] {
				seen[c.RemoteAddr] = true
				addrs = append(addrs, c.RemoteAddr)
			}
		}
		sampler.Prime(addrs)
		sampleMS = sampler.Sample
	}

	hostname, _ := os.Hostname()
	g := graph.Aggregate(conns, graph.Options{
		Center:     hostname,
		MaxVisible: cfg.MaxListEndpoints,
		Rules:      rules,
		Latency:    classify.LatencyConfig{LowMS: cfg.LatencyLowMS, HighMS: cfg.LatencyHighMS},
		SampleMS:   sampleMS,
	})

	if snapshotJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(g)
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("99"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("86"))

	alertStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("196")).
		Bold(true)

	fmt.Println(titleStyle.Render(fmt.Sprintf("Connections of %s", g.Center)))
	fmt.Printf("%s %s   %s %s   %s %s\n",
		labelStyle.Render("total:"),
		valueStyle.Render(fmt.Sprintf("%d", g.Summary.TotalConns)),
		labelStyle.Render("suspicious:"),
		valueStyle.Render(fmt.Sprintf("%d", g.Summary.Suspicious)),
		labelStyle.Render("endpoints:"),
		valueStyle.Render(fmt.Sprintf("%d", len(g.Endpoints))))
	fmt.Println()

	fmt.Printf("%-18s %6s %-12s %-12s %-8s %s\n",
		"ENDPOINT", "CONNS", "STATE", "LOCALITY", "LATENCY", "TAGS")
	for _, ep := range g.Endpoints {
		tags := ""
		if len(ep.Tags) > 0 {
			tags = alertStyle.Render(fmt.Sprintf("%v [%s]", ep.Tags, ep.MaxSeverity))
		}
		marker := " "
		if ep.HeavyTalker {
			marker = "*"
		}
		fmt.Printf("%-18s %5d%s %-12s %-12s %-8s %s\n",
			ep.Label, ep.ConnCount, marker, ep.State, ep.Locality, ep.Latency, tags)
	}
	if g.Dropped > 0 {
		fmt.Println(labelStyle.Render(fmt.Sprintf("... and %d more endpoints", g.Dropped)))
	}
	return nil
}
