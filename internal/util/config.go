// Package util provides common utilities for netgraph.
package util

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	DataDir  string `mapstructure:"data_dir"`
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`

	// Refresh cadence
	UIIntervalMS   int `mapstructure:"ui_interval_ms"`
	DataIntervalMS int `mapstructure:"data_interval_ms"`

	// Latency ring thresholds
	LatencyLowMS  uint64 `mapstructure:"latency_low_ms"`
	LatencyHighMS uint64 `mapstructure:"latency_high_ms"`

	// Endpoint ceilings: the dense map view and the wider list view
	MaxVisibleEndpoints int `mapstructure:"max_visible_endpoints"`
	MaxListEndpoints    int `mapstructure:"max_list_endpoints"`

	// Suspicion rule set; empty means the built-in defaults
	RulesFile string `mapstructure:"rules_file"`

	// Active RTT probing of remote endpoints for ring placement. Off by
	// default: the monitor is passive unless asked, and without samples
	// every endpoint sits on the medium ring.
	ProbeLatency bool `mapstructure:"probe_latency"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".netgraph")

	return &Config{
		DataDir:  dataDir,
		LogLevel: "info",
		LogFile:  filepath.Join(dataDir, "netgraph.log"),

		UIIntervalMS:   100,
		DataIntervalMS: 1000,

		LatencyLowMS:  50,
		LatencyHighMS: 200,

		MaxVisibleEndpoints: 12,
		MaxListEndpoints:    64,

		RulesFile: "",

		ProbeLatency: false,
	}
}

// LoadConfig loads configuration from file and environment.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(cfg.DataDir)
	viper.AddConfigPath(".")

	viper.SetDefault("data_dir", cfg.DataDir)
	viper.SetDefault("log_level", cfg.LogLevel)
	viper.SetDefault("log_file", cfg.LogFile)
	viper.SetDefault("ui_interval_ms", cfg.UIIntervalMS)
	viper.SetDefault("data_interval_ms", cfg.DataIntervalMS)
	viper.SetDefault("latency_low_ms", cfg.LatencyLowMS)
	viper.SetDefault("latency_high_ms", cfg.LatencyHighMS)
	viper.SetDefault("max_visible_endpoints", cfg.MaxVisibleEndpoints)
	viper.SetDefault("max_list_endpoints", cfg.MaxListEndpoints)
	viper.SetDefault("rules_file", cfg.RulesFile)
	viper.SetDefault("probe_latency", cfg.ProbeLatency)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// EnsureDir ensures a directory exists.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return !info.IsDir()
}
