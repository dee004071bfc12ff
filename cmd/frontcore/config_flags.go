package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"frontcore/internal/config"
)

// loadConfig reads --config, or the nearest frontcore.toml, and applies the
// global flag overrides on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	pf := cmd.Root().PersistentFlags()
	path, err := pf.GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	var cfg *config.Config
	if path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.Discover(".")
	}
	if err != nil {
		return nil, err
	}

	maxDiagnostics, err := pf.GetInt("max-diagnostics")
	if err != nil {
		return nil, fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	if maxDiagnostics > 0 {
		cfg.Session.MaxDiagnostics = maxDiagnostics
	}
	for flag, dst := range map[string]*string{
		"trace":       &cfg.Trace.Output,
		"trace-level": &cfg.Trace.Level,
		"trace-mode":  &cfg.Trace.Mode,
	} {
		v, err := pf.GetString(flag)
		if err != nil {
			return nil, fmt.Errorf("failed to get %s flag: %w", flag, err)
		}
		if v != "" {
			*dst = v
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
