package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"frontcore/internal/diag"
	"frontcore/internal/driver"
	"frontcore/internal/metadata"
)

var dumpCmd = &cobra.Command{
	Use:   "dump [flags] <library.fclib>",
	Short: "Print the declarations stored in a library file",
	Args:  cobra.ExactArgs(1),
	RunE:  runDump,
}

func init() {
	dumpCmd.Flags().String("format", "text", "output format (text|json)")
	dumpCmd.Flags().StringSlice("class-path", nil, "directories with class files for annotations")
}

type dumpPayload struct {
	Module   string        `json:"module"`
	Version  uint16        `json:"version"`
	Packages []dumpPackage `json:"packages"`
	Problems []string      `json:"problems,omitempty"`
}

type dumpPackage struct {
	Name         string   `json:"name"`
	Declarations []string `json:"declarations"`
}

func runDump(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	format = strings.ToLower(format)
	if format != "text" && format != "json" {
		return fmt.Errorf("unknown format %q (expected text|json)", format)
	}
	classPath, err := cmd.Flags().GetStringSlice("class-path")
	if err != nil {
		return fmt.Errorf("failed to get class-path flag: %w", err)
	}
	if activeConfig != nil {
		classPath = append(classPath, activeConfig.Libraries.ClassDirs...)
	}

	lib, err := metadata.ReadLibraryFile(args[0])
	if err != nil {
		return err
	}
	listings, diags, err := driver.Describe(cmd.Context(), lib, classPath)
	if err != nil {
		return err
	}

	payload := dumpPayload{Module: lib.Header.Module, Version: lib.Header.Version}
	for _, l := range listings {
		payload.Packages = append(payload.Packages, dumpPackage{Name: l.Package, Declarations: l.Lines})
	}
	if text := diag.FormatShort(diags, nil, false); text != "" {
		payload.Problems = strings.Split(text, "\n")
	}

	out := cmd.OutOrStdout()
	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	}
	fmt.Fprintf(out, "library %s (format %d)\n", payload.Module, payload.Version)
	for _, p := range payload.Packages {
		fmt.Fprintf(out, "\npackage %s\n", p.Name)
		for _, line := range p.Declarations {
			fmt.Fprintf(out, "  %s\n", line)
		}
	}
	for _, p := range payload.Problems {
		fmt.Fprintln(cmd.ErrOrStderr(), p)
	}
	return nil
}
