package engine

import (
	"github.com/concordkit/concord/internal/frame"
	"github.com/concordkit/concord/internal/ir"
)

// candidateSource answers which records in a causal chain can satisfy a
// when pattern. maxID bounds the search to records at or before the
// triggering record, so a sync never sees into its own future.
type candidateSource interface {
	Candidates(causalID, concept, op string, maxID int64) []*ir.ActionRecord
}

// match evaluates a sync's when clause against a freshly appended record.
//
// The record must satisfy the head pattern; every subsequent pattern is
// joined against earlier records of the same chain. Repeated variables
// across patterns are join keys under strict equality, so the result is
// an inner join: a frame exists only when every pattern matched with
// consistent bindings. Frames that fail to join are dropped, never
// null-padded.
//
// Anchoring the head at the new record (rather than re-running the whole
// join on every append) is what makes firing exactly-once: each record
// can be the head match at most once, and older records can only appear
// in the non-head positions.
func match(s *Sync, rec *ir.ActionRecord, src candidateSource) frame.Set {
	frames := frame.Seed(s.When[0], rec)
	if len(frames) == 0 {
		return nil
	}
	for _, p := range s.When[1:] {
		cands := src.Candidates(rec.CausalID, p.Concept, p.Op, rec.ID)
		frames = frame.Extend(frames, p, cands)
		if len(frames) == 0 {
			return nil
		}
	}
	return frames
}
