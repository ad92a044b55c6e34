package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/user/netgraph/internal/classify"
	"github.com/user/netgraph/internal/util"
)

var (
	cfgFile   string
	rulesFile string
	cfg       *util.Config
	rules     *classify.RuleSet
)

// rootCmd represents the base command. Running it bare launches the
// dashboard, same as the ui subcommand.
var rootCmd = &cobra.Command{
	Use:   "netgraph",
	Short: "Live process-aware network connection monitor",
	Long: `NetGraph visualizes the connections of this host as a live radial map:
- TCP/UDP sockets scanned from the kernel tables
- each socket correlated to its owning process
- remote endpoints classified by locality, latency and suspicion rules
- a center node (host or focused process) with endpoints on latency rings

It needs no elevated privileges for its own sockets; seeing other users'
processes requires running as root.`,
	RunE: runUI,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is $HOME/.netgraph/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&rulesFile, "rules", "",
		"suspicion rules file (YAML); overrides the configured path")

	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	// Add subcommands
	rootCmd.AddCommand(uiCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(versionCmd)

	// Add shell completion
	rootCmd.AddCommand(completionCmd)
}

func initConfig() {
	var err error
	cfg, err = util.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	util.InitLogger(cfg.LogLevel, cfg.LogFile)

	// Load suspicion rules. A bad or missing file degrades to the built-in
	// defaults rather than refusing to start.
	path := cfg.RulesFile
	if rulesFile != "" {
		path = rulesFile
	}
	if path == "" {
		rules = classify.DefaultRules()
		return
	}
	rules, err = classify.LoadRules(path)
	if err != nil {
		util.Warn("rules file %s unusable, falling back to defaults: %v", path, err)
		rules = classify.DefaultRules()
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("netgraph version 1.0.0")
	},
}

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion script for netgraph.

To load completions:

Bash:
  $ source <(netgraph completion bash)

Zsh:
  $ source <(netgraph completion zsh)

Fish:
  $ netgraph completion fish | source

PowerShell:
  PS> netgraph completion powershell | Out-String | Invoke-Expression
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	Run: func(cmd *cobra.Command, args []string) {
		switch args[0] {
		case "bash":
			cmd.Root().GenBashCompletion(os.Stdout)
		case "zsh":
			cmd.Root().GenZshCompletion(os.Stdout)
		case "fish":
			cmd.Root().GenFishCompletion(os.Stdout, true)
		case "powershell":
			cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
		}
	},
}
