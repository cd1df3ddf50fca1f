package store

import (
	"context"
	"fmt"

	"github.com/concordkit/concord/internal/ir"
)

// Append inserts an action record into the journal.
// Input and output are serialized to canonical JSON so a journal read
// reproduces the exact bytes that fed the record's digest.
// ON CONFLICT(id) DO NOTHING makes re-appending during recovery idempotent.
func (s *Store) Append(ctx context.Context, rec *ir.ActionRecord) error {
	inputJSON, err := ir.MarshalCanonical(rec.Input)
	if err != nil {
		return fmt.Errorf("journal append: marshal input: %w", err)
	}
	outputJSON, err := ir.MarshalCanonical(rec.Output.Fields)
	if err != nil {
		return fmt.Errorf("journal append: marshal output: %w", err)
	}
	digest, err := ir.RecordDigest(rec)
	if err != nil {
		return fmt.Errorf("journal append: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO action_records
		(id, causal_id, concept, op, input, output_case, output, digest)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		rec.ID,
		rec.CausalID,
		rec.Concept,
		rec.Op,
		string(inputJSON),
		rec.Output.Case,
		string(outputJSON),
		digest,
	)
	if err != nil {
		return fmt.Errorf("journal append: %w", err)
	}
	return nil
}
