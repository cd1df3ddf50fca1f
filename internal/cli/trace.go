package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/concordkit/concord/internal/ir"
	"github.com/concordkit/concord/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Journal  string
	CausalID string
}

// TraceRecord is one record in JSON trace output.
type TraceRecord struct {
	ID       int64  `json:"id"`
	CausalID string `json:"causal_id"`
	Action   string `json:"action"`
	Input    string `json:"input"`
	Case     string `json:"case"`
	Output   string `json:"output"`
}

// TraceResult is the trace command's JSON payload.
type TraceResult struct {
	Journal  string        `json:"journal"`
	CausalID string        `json:"causal_id,omitempty"`
	Records  []TraceRecord `json:"records"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Dump action records from a journal",
		Long: `Print the action records of a journal, whole or one causal chain.

Records print in append order. Inputs and outputs render as canonical
JSON, so two journals with equal traces print byte-identically.

Examples:
  concord trace --journal ./concord.db
  concord trace --journal ./concord.db --chain 0190f3a2-...
  concord trace --journal ./concord.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("journal")
	cmd.Flags().StringVar(&opts.CausalID, "chain", "", "dump one causal chain only")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := store.Open(opts.Journal)
	if err != nil {
		return WrapExitError(ExitCommandError, "opening journal", err)
	}
	defer st.Close()

	var records []*ir.ActionRecord
	if opts.CausalID != "" {
		records, err = st.Chain(ctx, opts.CausalID)
	} else {
		records, err = st.Records(ctx)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "reading journal", err)
	}

	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	result := TraceResult{Journal: opts.Journal, CausalID: opts.CausalID}
	for _, rec := range records {
		input, err := ir.MarshalCanonical(rec.Input)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("record %d input", rec.ID), err)
		}
		output, err := ir.MarshalCanonical(rec.Output.Fields)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("record %d output", rec.ID), err)
		}
		result.Records = append(result.Records, TraceRecord{
			ID:       rec.ID,
			CausalID: rec.CausalID,
			Action:   rec.Ref().String(),
			Input:    string(input),
			Case:     rec.Output.Case,
			Output:   string(output),
		})
	}

	if opts.Format == "json" {
		return out.Success(result)
	}
	for _, r := range result.Records {
		fmt.Fprintf(cmd.OutOrStdout(), "%6d  %s  %s  %s  %s -> %s\n",
			r.ID, r.CausalID, r.Action, r.Case, r.Input, r.Output)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d record(s)\n", len(result.Records))
	return nil
}
