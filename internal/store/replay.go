package store

import (
	"context"
	"fmt"

	"github.com/concordkit/concord/internal/ir"
)

// ChainDigest recomputes the trace digest of one causal chain from its
// journaled records and cross-checks each stored row digest on the way.
// A mismatch means the journal was tampered with or written by a different
// record encoding - either way the chain is not replayable as-is.
func (s *Store) ChainDigest(ctx context.Context, causalID string) (string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, causal_id, concept, op, input, output_case, output, digest
		FROM action_records
		WHERE causal_id = ?
		ORDER BY id ASC
	`, causalID)
	if err != nil {
		return "", fmt.Errorf("chain digest: %w", err)
	}
	defer rows.Close()

	var digests []string
	for rows.Next() {
		var (
			rec        ir.ActionRecord
			inputJSON  string
			outputCase string
			outputJSON string
			stored     string
		)
		if err := rows.Scan(&rec.ID, &rec.CausalID, &rec.Concept, &rec.Op, &inputJSON, &outputCase, &outputJSON, &stored); err != nil {
			return "", fmt.Errorf("chain digest: scan: %w", err)
		}

		input, err := ir.UnmarshalObject([]byte(inputJSON))
		if err != nil {
			return "", fmt.Errorf("chain digest: record %d input: %w", rec.ID, err)
		}
		fields, err := ir.UnmarshalObject([]byte(outputJSON))
		if err != nil {
			return "", fmt.Errorf("chain digest: record %d output: %w", rec.ID, err)
		}
		rec.Input = input
		rec.Output = ir.Output{Case: outputCase, Fields: fields}

		recomputed, err := ir.RecordDigest(&rec)
		if err != nil {
			return "", fmt.Errorf("chain digest: record %d: %w", rec.ID, err)
		}
		if recomputed != stored {
			return "", fmt.Errorf("chain digest: record %d digest mismatch: stored %s, recomputed %s", rec.ID, stored, recomputed)
		}
		digests = append(digests, recomputed)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("chain digest: iterate: %w", err)
	}

	return ir.TraceDigest(digests), nil
}

// TraceDigest recomputes the digest of the entire journal.
func (s *Store) TraceDigest(ctx context.Context) (string, error) {
	records, err := s.Records(ctx)
	if err != nil {
		return "", err
	}
	digests := make([]string, 0, len(records))
	for _, rec := range records {
		d, err := ir.RecordDigest(rec)
		if err != nil {
			return "", fmt.Errorf("trace digest: record %d: %w", rec.ID, err)
		}
		digests = append(digests, d)
	}
	return ir.TraceDigest(digests), nil
}
