package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/concordkit/concord/internal/syncdef"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Dir string
}

// ValidateResult summarizes a validation run for JSON output.
type ValidateResult struct {
	Dir       string   `json:"dir"`
	FileCount int      `json:"file_count"`
	SyncCount int      `json:"sync_count"`
	Syncs     []string `json:"syncs,omitempty"`
	Errors    []string `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate CUE sync definitions",
		Long: `Compile every sync definition in a directory and report authoring errors.

All errors are collected, not just the first, so one run shows everything
that needs fixing.

Exit codes:
  0 - all definitions compile
  1 - one or more definitions are invalid
  2 - command error (directory missing, no CUE files)

Examples:
  concord validate --dir ./syncs
  concord validate --dir ./syncs --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Dir, "dir", "", "directory of CUE sync definitions (required)")
	_ = cmd.MarkFlagRequired("dir")

	return cmd
}

func runValidate(opts *ValidateOptions, cmd *cobra.Command) error {
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	result, errs := syncdef.LoadDir(opts.Dir, syncdef.CollectAll)
	if result == nil {
		// The directory itself was unusable.
		err := errs[0]
		_ = out.Error(err.Error(), nil)
		return WrapExitError(ExitCommandError, "loading definitions", err)
	}

	res := ValidateResult{
		Dir:       opts.Dir,
		FileCount: result.FileCount,
		SyncCount: len(result.Syncs),
	}
	for _, s := range result.Syncs {
		res.Syncs = append(res.Syncs, s.Name)
	}
	for _, err := range errs {
		res.Errors = append(res.Errors, err.Error())
	}

	if len(errs) > 0 {
		if opts.Format == "json" {
			_ = out.Error("sync definitions are invalid", res)
		} else {
			for _, e := range res.Errors {
				fmt.Fprintln(cmd.OutOrStdout(), e)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d error(s) in %d file(s)\n", len(errs), result.FileCount)
		}
		return NewExitError(ExitFailure, fmt.Sprintf("%d invalid sync definition(s)", len(errs)))
	}

	if opts.Format == "json" {
		return out.Success(res)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d sync(s) in %d file(s): OK\n", res.SyncCount, res.FileCount)
	return nil
}
