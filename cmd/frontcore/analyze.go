package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"frontcore/internal/binclass"
	"frontcore/internal/diag"
	"frontcore/internal/diagfmt"
	"frontcore/internal/driver"
	"frontcore/internal/metadata"
	"frontcore/internal/observ"
	"frontcore/internal/resolve"
	"frontcore/internal/store"
	"frontcore/internal/version"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [flags] <file.fc.yaml|directory>...",
	Short: "Resolve and check declaration sources",
	Long: `Resolve every declaration of the given sources against the configured
libraries, check all bodies and report the diagnostics`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.String("format", "pretty", "output format (pretty|short|json|sarif)")
	f.Bool("with-notes", false, "include diagnostic notes in short and json output")
	f.String("paths", "auto", "file paths in json and sarif output (auto|absolute|relative|basename)")
	f.Bool("fullpath", false, "shorthand for --paths=absolute")
	f.StringP("output", "o", "", "write the module's library to this file")
	f.String("class-dir", "", "write class files of the module to this directory")
	f.String("db", "", "export declarations, calls and diagnostics to this SQLite database")
	f.String("ui", "auto", "progress view (auto|on|off)")
	addRunFlags(f)
}

// addRunFlags registers the flags runConfig reads.
func addRunFlags(f *pflag.FlagSet) {
	f.String("module", "", "module name (default from config)")
	f.Int("jobs", 0, "parallel resolution workers (0 = from config)")
	f.StringSlice("lib", nil, "additional library files")
	f.StringSlice("class-path", nil, "additional directories with class files")
	f.Bool("no-cache", false, "disable the result cache")
}

type analyzeOptions struct {
	format    string
	withNotes bool
	paths     diagfmt.Paths
	output    string
	classDir  string
	db        string
	ui        uiMode
	quiet     bool
	timings   bool
}

func readAnalyzeOptions(cmd *cobra.Command) (analyzeOptions, error) {
	var (
		opts analyzeOptions
		err  error
	)
	f := cmd.Flags()
	if opts.format, err = f.GetString("format"); err != nil {
		return opts, fmt.Errorf("failed to get format flag: %w", err)
	}
	opts.format = strings.ToLower(opts.format)
	switch opts.format {
	case "pretty", "short", "json", "sarif":
	default:
		return opts, fmt.Errorf("unknown format %q (expected pretty|short|json|sarif)", opts.format)
	}
	if opts.withNotes, err = f.GetBool("with-notes"); err != nil {
		return opts, fmt.Errorf("failed to get with-notes flag: %w", err)
	}
	pathsValue, err := f.GetString("paths")
	if err != nil {
		return opts, fmt.Errorf("failed to get paths flag: %w", err)
	}
	if opts.paths.Mode, err = diagfmt.ParsePathMode(pathsValue); err != nil {
		return opts, err
	}
	fullPath, err := f.GetBool("fullpath")
	if err != nil {
		return opts, fmt.Errorf("failed to get fullpath flag: %w", err)
	}
	if fullPath {
		opts.paths.Mode = diagfmt.PathModeAbsolute
	}
	if opts.paths.Mode == diagfmt.PathModeRelative {
		if opts.paths.Base, err = os.Getwd(); err != nil {
			return opts, fmt.Errorf("working directory: %w", err)
		}
	}
	if opts.output, err = f.GetString("output"); err != nil {
		return opts, fmt.Errorf("failed to get output flag: %w", err)
	}
	if opts.classDir, err = f.GetString("class-dir"); err != nil {
		return opts, fmt.Errorf("failed to get class-dir flag: %w", err)
	}
	if opts.db, err = f.GetString("db"); err != nil {
		return opts, fmt.Errorf("failed to get db flag: %w", err)
	}
	uiValue, err := f.GetString("ui")
	if err != nil {
		return opts, fmt.Errorf("failed to get ui flag: %w", err)
	}
	if opts.ui, err = readUIMode(uiValue); err != nil {
		return opts, err
	}
	if opts.quiet, err = cmd.Root().PersistentFlags().GetBool("quiet"); err != nil {
		return opts, fmt.Errorf("failed to get quiet flag: %w", err)
	}
	if opts.timings, err = cmd.Root().PersistentFlags().GetBool("timings"); err != nil {
		return opts, fmt.Errorf("failed to get timings flag: %w", err)
	}
	return opts, nil
}

// runConfig maps the active config and the command flags onto a driver
// configuration.
func runConfig(cmd *cobra.Command) (driver.Config, error) {
	cfg, err := driver.FromConfig(activeConfig)
	if err != nil {
		return cfg, err
	}
	f := cmd.Flags()
	if module, err := f.GetString("module"); err != nil {
		return cfg, fmt.Errorf("failed to get module flag: %w", err)
	} else if module != "" {
		cfg.Module = module
	}
	if jobs, err := f.GetInt("jobs"); err != nil {
		return cfg, fmt.Errorf("failed to get jobs flag: %w", err)
	} else if jobs > 0 {
		cfg.Jobs = jobs
	}
	libs, err := f.GetStringSlice("lib")
	if err != nil {
		return cfg, fmt.Errorf("failed to get lib flag: %w", err)
	}
	cfg.Libraries = append(cfg.Libraries, libs...)
	classPath, err := f.GetStringSlice("class-path")
	if err != nil {
		return cfg, fmt.Errorf("failed to get class-path flag: %w", err)
	}
	cfg.ClassDirs = append(cfg.ClassDirs, classPath...)
	if noCache, err := f.GetBool("no-cache"); err != nil {
		return cfg, fmt.Errorf("failed to get no-cache flag: %w", err)
	} else if noCache {
		cfg.Cache = nil
	}
	return cfg, nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	opts, err := readAnalyzeOptions(cmd)
	if err != nil {
		return err
	}
	cfg, err := runConfig(cmd)
	if err != nil {
		return err
	}
	inputs, err := collectInputs(args)
	if err != nil {
		return err
	}
	cfg.Emit = opts.output != ""
	// class files and database facts need the live session
	cfg.KeepSession = opts.classDir != "" || opts.db != ""
	if opts.timings {
		cfg.Timer = observ.NewTimer()
	}

	var res *driver.Result
	if showProgress(opts, len(inputs), isTerminal(os.Stdout)) {
		res, err = analyzeWithUI(cmd.Context(), "analyze "+cfg.Module, cfg, inputs)
	} else {
		res, err = driver.Analyze(cmd.Context(), cfg, inputs)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if err := writeDiagnostics(out, res, opts, args); err != nil {
		return err
	}
	if !res.HasErrors() {
		if err := writeArtifacts(res, opts); err != nil {
			return err
		}
	}
	if opts.db != "" {
		if err := exportFacts(cmd, opts.db, cfg.Module, res); err != nil {
			return err
		}
	}
	if !opts.quiet && opts.format == "pretty" {
		printSummary(cmd.ErrOrStderr(), res)
	}
	if opts.timings {
		printTimings(cmd.ErrOrStderr(), cfg.Timer, res)
	}
	if res.HasErrors() {
		return exitError{code: 1}
	}
	return nil
}

func writeDiagnostics(out io.Writer, res *driver.Result, opts analyzeOptions, args []string) error {
	switch opts.format {
	case "short":
		if text := diag.FormatShort(res.Diagnostics, res.Files, opts.withNotes); text != "" {
			_, err := fmt.Fprintln(out, text)
			return err
		}
		return nil
	case "json":
		return diagfmt.JSON(out, res.Diagnostics, res.Files, diagfmt.JSONOpts{
			IncludePositions: true,
			Paths:            opts.paths,
			IncludeNotes:     opts.withNotes,
		})
	case "sarif":
		return diagfmt.Sarif(out, res.Diagnostics, res.Files, diagfmt.SarifRunMeta{
			ToolName:       "frontcore",
			ToolVersion:    version.Current().Version,
			InvocationArgs: append([]string{"analyze"}, args...),
			Paths:          opts.paths,
		})
	default:
		return diag.Pretty(out, res.Diagnostics, res.Files)
	}
}

func writeArtifacts(res *driver.Result, opts analyzeOptions) error {
	if opts.output != "" && res.Library != nil {
		if err := metadata.WriteLibraryFile(opts.output, res.Library); err != nil {
			return fmt.Errorf("write library: %w", err)
		}
	}
	if opts.classDir != "" && res.Session != nil {
		if err := writeClassFiles(res.Session, opts.classDir); err != nil {
			return fmt.Errorf("write class files: %w", err)
		}
	}
	return nil
}

func writeClassFiles(sess *resolve.Session, dir string) error {
	loc := binclass.DirLocator{Root: dir}
	for _, fq := range sess.Packages() {
		pkg := sess.ResolvePackage(fq)
		if pkg == nil {
			continue
		}
		for _, f := range metadata.ClassFiles(pkg) {
			if err := loc.Write(f); err != nil {
				return err
			}
		}
	}
	return nil
}

func exportFacts(cmd *cobra.Command, path, module string, res *driver.Result) error {
	db, err := store.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return err
	}
	runID, err := db.Export(cmd.Context(), store.Snapshot{
		Module:      module,
		Files:       res.Files,
		Session:     res.Session,
		Diagnostics: res.Diagnostics,
	})
	if err != nil {
		return fmt.Errorf("export to %s: %w", path, err)
	}
	if quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet"); !quiet {
		fmt.Fprintf(cmd.ErrOrStderr(), "exported run %d to %s\n", runID, path)
	}
	return nil
}

func printSummary(out io.Writer, res *driver.Result) {
	var errs, warns int
	for _, d := range res.Diagnostics {
		switch d.Severity {
		case diag.SevError:
			errs++
		case diag.SevWarning:
			warns++
		}
	}
	state := "analyzed"
	if res.Cached {
		state = "analyzed (cached)"
	}
	fmt.Fprintf(out, "%s %d package(s): %d error(s), %d warning(s)\n", state, len(res.Packages), errs, warns)
}

