// Command rar2hash extracts password-hash records from encrypted RAR
// archives for offline password-recovery tools. See the root package for
// the extraction logic; this file only wires flags, exit codes, and output.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/javi11/rar2hash"
	"github.com/javi11/rar2hash/internal/diag"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(64)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool
	var jobs int

	cmd := &cobra.Command{
		Use:           "rar2hash [flags] <archive> [<archive> ...]",
		Short:         "Extract password-hash records from encrypted RAR archives",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			sink := diag.New(cmd.ErrOrStderr(), verbose)
			results := rar2hash.ProcessArchives(rar2hash.DefaultFS, args, jobs, sink)
			out := cmd.OutOrStdout()
			for _, r := range results {
				if r.Err != nil {
					sink.Error(r.Err.Error(), "archive", r.Path)
					continue
				}
				for _, line := range r.Lines {
					fmt.Fprintln(out, line)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log skip and informational diagnostics to stderr")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 1, "number of archives to process concurrently")
	return cmd
}
