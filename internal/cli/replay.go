package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/concordkit/concord/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Journal  string
	CausalID string // optional, verify one chain only
}

// ReplayChainResult holds the verification result for one causal chain.
type ReplayChainResult struct {
	CausalID string `json:"causal_id"`
	Records  int    `json:"records"`
	Digest   string `json:"digest"`
}

// ReplayResult holds the overall verification result.
type ReplayResult struct {
	Journal     string              `json:"journal"`
	Chains      []ReplayChainResult `json:"chains"`
	TotalChains int                 `json:"total_chains"`
	TraceDigest string              `json:"trace_digest,omitempty"`
	Verified    bool                `json:"verified"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Verify journal record digests",
		Long: `Recompute the canonical digest of every record and compare against the
digests stored at append time. A mismatch means the journal bytes no
longer reproduce the recorded history.

Exit codes:
  0 - every chain verifies
  1 - digest mismatch detected
  2 - command error (journal not found, etc.)

Examples:
  concord replay --journal ./concord.db
  concord replay --journal ./concord.db --chain 0190f3a2-...
  concord replay --journal ./concord.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("journal")
	cmd.Flags().StringVar(&opts.CausalID, "chain", "", "verify one causal chain only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := store.Open(opts.Journal)
	if err != nil {
		return WrapExitError(ExitCommandError, "opening journal", err)
	}
	defer st.Close()

	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	var causalIDs []string
	if opts.CausalID != "" {
		causalIDs = []string{opts.CausalID}
	} else {
		causalIDs, err = st.CausalIDs(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "listing chains", err)
		}
	}

	result := ReplayResult{Journal: opts.Journal, TotalChains: len(causalIDs)}
	for _, id := range causalIDs {
		records, err := st.Chain(ctx, id)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("reading chain %s", id), err)
		}
		digest, err := st.ChainDigest(ctx, id)
		if err != nil {
			_ = out.Error(fmt.Sprintf("chain %s: %v", id, err), nil)
			return NewExitError(ExitFailure, "digest verification failed")
		}
		result.Chains = append(result.Chains, ReplayChainResult{
			CausalID: id,
			Records:  len(records),
			Digest:   digest,
		})
		out.VerboseLog("chain %s: %d record(s), %s", id, len(records), digest)
	}

	if opts.CausalID == "" {
		result.TraceDigest, err = st.TraceDigest(ctx)
		if err != nil {
			_ = out.Error(err.Error(), nil)
			return NewExitError(ExitFailure, "digest verification failed")
		}
	}
	result.Verified = true

	if opts.Format == "json" {
		return out.Success(result)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d chain(s) verified\n", result.TotalChains)
	if result.TraceDigest != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "trace digest: %s\n", result.TraceDigest)
	}
	return nil
}
