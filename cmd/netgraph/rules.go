package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/user/netgraph/internal/classify"
)

var rulesCmd = &cobra.Command{
	Use:   "rules [file]",
	Short: "Validate and list the suspicion rule set",
	Long: `Load the suspicion rules and print them, reporting parse problems.

Without an argument the configured rules file is used; with no configured
file the built-in default set is shown.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRules,
}

func runRules(cmd *cobra.Command, args []string) error {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("99"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	errStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("196")).
		Bold(true)

	set := rules
	source := "built-in defaults"
	path := cfg.RulesFile
	if len(args) == 1 {
		path = args[0]
	}
	if path != "" {
		loaded, err := classify.LoadRules(path)
		if err != nil {
			fmt.Println(errStyle.Render(fmt.Sprintf("rules file invalid: %v", err)))
			fmt.Println(labelStyle.Render("the dashboard would fall back to the built-in defaults"))
			return nil
		}
		set = loaded
		source = path
	}
	if set == nil {
		set = classify.DefaultRules()
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("Suspicion rules (%s)", source)))
	fmt.Println()

	if len(set.Rules) == 0 {
		fmt.Println(labelStyle.Render("no rules - nothing will be flagged"))
		return nil
	}

	for i := range set.Rules {
		r := &set.Rules[i]
		fmt.Printf("%-20s %-8s %s\n", r.ID, r.Sev(), r.Name)
		if r.Description != "" {
			fmt.Println(labelStyle.Render("  " + r.Description))
		}
		if len(r.Tags) > 0 {
			fmt.Println(labelStyle.Render("  tags: " + strings.Join(r.Tags, ", ")))
		}
	}
	fmt.Println()
	fmt.Printf("%d rules loaded\n", len(set.Rules))
	return nil
}
