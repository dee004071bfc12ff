package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"frontcore/internal/diag"
	"frontcore/internal/driver"
	"frontcore/internal/metadata"
)

var serializeCmd = &cobra.Command{
	Use:   "serialize [flags] -o <out.fclib> <file.fc.yaml|directory>...",
	Short: "Write the binary metadata of a module",
	Long: `Analyze the given sources and, when they are free of errors, write the
descriptors of every package as one library file`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSerialize,
}

func init() {
	serializeCmd.Flags().StringP("output", "o", "", "library file to write")
	_ = serializeCmd.MarkFlagRequired("output")
	addRunFlags(serializeCmd.Flags())
}

func runSerialize(cmd *cobra.Command, args []string) error {
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return fmt.Errorf("failed to get output flag: %w", err)
	}
	cfg, err := runConfig(cmd)
	if err != nil {
		return err
	}
	inputs, err := collectInputs(args)
	if err != nil {
		return err
	}
	cfg.Emit = true
	res, err := driver.Analyze(cmd.Context(), cfg, inputs)
	if err != nil {
		return err
	}
	if text := diag.FormatShort(res.Diagnostics, res.Files, false); text != "" {
		fmt.Fprintln(cmd.ErrOrStderr(), text)
	}
	if res.HasErrors() || res.Library == nil {
		return exitError{code: 1}
	}

	if err := metadata.WriteLibraryFile(output, res.Library); err != nil {
		return fmt.Errorf("write library: %w", err)
	}
	if quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet"); !quiet {
		var size int64
		if info, err := os.Stat(output); err == nil {
			size = info.Size()
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s: module %s, %d package(s), %d bytes\n",
			output, res.Library.Header.Module, len(res.Library.Fragments), size)
	}
	return nil
}
