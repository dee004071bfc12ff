package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"frontcore/internal/config"
	"frontcore/internal/observ"
	"frontcore/internal/version"
)

var rootCmd = &cobra.Command{
	Use:           "frontcore",
	Short:         "Semantic analysis of declaration sources",
	Long:          `frontcore resolves declarations, checks bodies and reads or writes binary descriptor metadata`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := applyColor(cmd); err != nil {
			return err
		}
		if err := setupProfiling(cmd); err != nil {
			return err
		}
		if cmd.Name() == versionCmd.Name() {
			return nil
		}
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		activeConfig = cfg
		done, err := setupTracing(cmd, cfg)
		if err != nil {
			return err
		}
		traceCleanup = done
		return nil
	},
}

var (
	activeConfig *config.Config
	traceCleanup func()
	profiler     *observ.Profiler
)

// cleanup runs after every command, failed ones included.
func cleanup() {
	if traceCleanup != nil {
		traceCleanup()
	}
	if profiler != nil {
		if err := profiler.Stop(); err != nil {
			fmt.Fprintln(os.Stderr, "profile:", err)
		}
	}
}

func setupProfiling(cmd *cobra.Command) error {
	pf := cmd.Root().PersistentFlags()
	var cfg observ.ProfileConfig
	for flag, dst := range map[string]*string{
		"cpu-profile":   &cfg.CPU,
		"mem-profile":   &cfg.Heap,
		"runtime-trace": &cfg.RuntimeTrace,
	} {
		v, err := pf.GetString(flag)
		if err != nil {
			return fmt.Errorf("failed to get %s flag: %w", flag, err)
		}
		*dst = v
	}
	if !cfg.Enabled() {
		return nil
	}
	p, err := observ.StartProfiler(cfg)
	if err != nil {
		return err
	}
	profiler = p
	return nil
}

// exitError carries a process exit code out of a command without printing
// anything more.
type exitError struct{ code int }

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(serializeCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(versionCmd)

	pf := rootCmd.PersistentFlags()
	pf.String("color", "auto", "colorize output (auto|on|off)")
	pf.Bool("quiet", false, "suppress non-essential output")
	pf.Bool("timings", false, "show timing information")
	pf.Int("max-diagnostics", 0, "maximum number of diagnostics to keep (0 = from config)")
	pf.String("config", "", "path to frontcore.toml (default: nearest one above the working directory)")
	pf.String("trace", "", "trace output file (\"-\" for stderr)")
	pf.String("trace-level", "", "trace level (off|error|phase|detail|debug), overrides config")
	pf.String("trace-mode", "", "trace mode (stream|ring|both), overrides config")
	pf.Int("trace-ring-size", 4096, "ring buffer size for --trace-mode ring")
	pf.Duration("trace-heartbeat", 0, "emit a trace heartbeat at this interval (0 = off)")
	pf.String("cpu-profile", "", "write a CPU profile to this file")
	pf.String("mem-profile", "", "write a heap profile to this file")
	pf.String("runtime-trace", "", "write a Go runtime trace to this file")

	err := rootCmd.Execute()
	cleanup()
	if err == nil {
		return
	}
	if ee, ok := err.(exitError); ok {
		os.Exit(ee.code)
	}
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}

func applyColor(cmd *cobra.Command) error {
	mode, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return fmt.Errorf("failed to get color flag: %w", err)
	}
	switch strings.ToLower(mode) {
	case "auto", "":
		color.NoColor = !isTerminal(os.Stdout)
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	default:
		return fmt.Errorf("invalid --color value %q (expected auto|on|off)", mode)
	}
	return nil
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
