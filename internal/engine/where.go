package engine

import (
	"context"
	"sync"

	"github.com/concordkit/concord/internal/frame"
	"github.com/concordkit/concord/internal/ir"
)

// querier is the slice of the concept registry the evaluator needs.
type querier interface {
	Query(ctx context.Context, ref ir.Ref, input ir.Object) (ir.Output, error)
}

// evalWhere runs a sync's where pipeline over a frame set.
//
// Steps compose sequentially: each step sees the full output of the one
// before it. Within a Query step the per-frame invocations fan out
// concurrently and the step barriers until every query has settled, so
// parallelism never reorders the pipeline. Results are collected into an
// index-ordered slice, which keeps the surviving frames in their
// original insertion order regardless of goroutine scheduling.
//
// Dropping a frame is ordinary data flow, not a fault: a query answering
// with the other output variant, or a shape that fails to match or join,
// removes that one frame and leaves its siblings alone. Only a Go error
// from the query aborts evaluation, because that signals a broken
// collaborator rather than an empty result.
func evalWhere(ctx context.Context, s *Sync, frames frame.Set, q querier, observe dropObserver) (frame.Set, error) {
	for _, st := range s.Where {
		if len(frames) == 0 {
			return frames, nil
		}
		var err error
		switch step := st.(type) {
		case Query:
			frames, err = evalQueryStep(ctx, s.Name, step, frames, q, observe)
		case Filter:
			kept := frame.Filter(frames, step.Keep)
			if observe != nil {
				for i := len(kept); i < len(frames); i++ {
					observe(s.Name, "filter")
				}
			}
			frames = kept
		case Map:
			frames = frame.Map(frames, step.Apply)
		}
		if err != nil {
			return nil, err
		}
	}
	return frames, nil
}

// dropObserver reports one dropped frame per call, labeled by stage.
type dropObserver func(sync, stage string)

func evalQueryStep(ctx context.Context, syncName string, q Query, frames frame.Set, reg querier, observe dropObserver) (frame.Set, error) {
	type result struct {
		fr  frame.Frame
		ok  bool
		err error
	}
	results := make([]result, len(frames))

	var wg sync.WaitGroup
	for i, fr := range frames {
		wg.Add(1)
		go func(i int, fr frame.Frame) {
			defer wg.Done()
			next, ok, err := runQuery(ctx, q, fr, reg)
			results[i] = result{fr: next, ok: ok, err: err}
		}(i, fr)
	}
	wg.Wait()

	var out frame.Set
	for _, r := range results {
		if r.err != nil {
			return nil, r.err
		}
		if r.ok {
			out = append(out, r.fr)
			continue
		}
		if observe != nil {
			observe(syncName, "query_miss")
		}
	}
	return out, nil
}

func runQuery(ctx context.Context, q Query, fr frame.Frame, reg querier) (frame.Frame, bool, error) {
	input, err := ir.ResolveTemplate(q.Input, fr.Bindings)
	if err != nil {
		return frame.Frame{}, false, err
	}
	out, err := reg.Query(ctx, ir.Ref{Concept: q.Concept, Op: q.Op}, input)
	if err != nil {
		return frame.Frame{}, false, err
	}
	// The other output variant is an ordinary miss for this frame.
	if out.Case != ir.CaseOK {
		return frame.Frame{}, false, nil
	}
	next, ok := fr.MatchOutput(q.Output, out.Fields)
	if !ok {
		return frame.Frame{}, false, nil
	}
	return next, true, nil
}
