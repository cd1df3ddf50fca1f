package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/concordkit/concord/internal/ir"
)

// Chain returns one causal chain's records in append order.
// All journal reads order by id ASC - deterministic regardless of insert
// interleaving across chains.
func (s *Store) Chain(ctx context.Context, causalID string) ([]*ir.ActionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, causal_id, concept, op, input, output_case, output
		FROM action_records
		WHERE causal_id = ?
		ORDER BY id ASC
	`, causalID)
	if err != nil {
		return nil, fmt.Errorf("read chain: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Records returns every journal record in append order.
func (s *Store) Records(ctx context.Context) ([]*ir.ActionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, causal_id, concept, op, input, output_case, output
		FROM action_records
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// CausalIDs lists the distinct causal chains in first-seen order.
func (s *Store) CausalIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT causal_id
		FROM action_records
		GROUP BY causal_id
		ORDER BY MIN(id) ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list causal ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan causal id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate causal ids: %w", err)
	}
	return ids, nil
}

func scanRecords(rows *sql.Rows) ([]*ir.ActionRecord, error) {
	var records []*ir.ActionRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

func scanRecord(rows *sql.Rows) (*ir.ActionRecord, error) {
	var (
		rec        ir.ActionRecord
		inputJSON  string
		outputCase string
		outputJSON string
	)
	if err := rows.Scan(&rec.ID, &rec.CausalID, &rec.Concept, &rec.Op, &inputJSON, &outputCase, &outputJSON); err != nil {
		return nil, fmt.Errorf("scan record: %w", err)
	}

	input, err := ir.UnmarshalObject([]byte(inputJSON))
	if err != nil {
		return nil, fmt.Errorf("record %d: decode input: %w", rec.ID, err)
	}
	fields, err := ir.UnmarshalObject([]byte(outputJSON))
	if err != nil {
		return nil, fmt.Errorf("record %d: decode output: %w", rec.ID, err)
	}

	rec.Input = input
	rec.Output = ir.Output{Case: outputCase, Fields: fields}
	return &rec, nil
}
