// Package log implements the append-only action log.
//
// The log is the only shared mutable structure in the system. Appends are
// serialized by a single mutex; reads return copies. A subscriber (the
// engine's matcher) is notified synchronously after each append, before
// Append returns to its caller - synchronization is a re-entrant cascade,
// not a deferred queue, so the subscriber runs outside the lock to allow
// the cascade it triggers to append further records.
//
// Records are immutable once appended and are never deleted.
package log

import (
	"context"
	"fmt"
	"sync"

	"github.com/concordkit/concord/internal/ir"
)

// Subscriber receives each appended record, synchronously, before the
// append call returns. It runs on the appending goroutine.
type Subscriber func(rec *ir.ActionRecord)

// Journal persists appended records. Appends to the journal happen inside
// Append; a journal failure fails the append.
type Journal interface {
	Append(ctx context.Context, rec *ir.ActionRecord) error
}

// opKey indexes chain records by (concept, op) for O(1) candidate lookup
// on non-leading when clauses.
type opKey struct {
	concept string
	op      string
}

// chainIndex holds the per-causal-chain view of the log.
type chainIndex struct {
	records []*ir.ActionRecord
	byOp    map[opKey][]*ir.ActionRecord
}

// Log is the append-only, causally ordered record store.
type Log struct {
	mu         sync.Mutex
	clock      *Clock
	records    []*ir.ActionRecord
	chains     map[string]*chainIndex
	subscriber Subscriber
	journal    Journal
}

// Option configures a Log.
type Option func(*Log)

// WithJournal attaches a durable journal; every append is persisted before
// the subscriber is notified.
func WithJournal(j Journal) Option {
	return func(l *Log) { l.journal = j }
}

// WithClock substitutes the logical clock (used when rehydrating).
func WithClock(c *Clock) Option {
	return func(l *Log) { l.clock = c }
}

// New creates an empty log.
func New(opts ...Option) *Log {
	l := &Log{
		clock:  NewClock(),
		chains: make(map[string]*chainIndex),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Subscribe sets the synchronous append subscriber.
// Must be called before the first append; there is exactly one subscriber.
func (l *Log) Subscribe(s Subscriber) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.subscriber = s
}

// Append assigns the next sequence number to rec, stores it, persists it to
// the journal when one is attached, and then notifies the subscriber before
// returning. The record must carry a causal ID; its ID field is assigned
// here.
//
// The subscriber runs outside the log lock: the matching cascade it drives
// re-enters Append for dispatched actions.
func (l *Log) Append(ctx context.Context, rec *ir.ActionRecord) (int64, error) {
	if rec.CausalID == "" {
		return 0, fmt.Errorf("append: record has no causal id")
	}
	if err := rec.Output.Validate(); err != nil {
		return 0, fmt.Errorf("append %s.%s: %w", rec.Concept, rec.Op, err)
	}

	l.mu.Lock()
	rec.ID = l.clock.Next()
	l.records = append(l.records, rec)

	chain, ok := l.chains[rec.CausalID]
	if !ok {
		chain = &chainIndex{byOp: make(map[opKey][]*ir.ActionRecord)}
		l.chains[rec.CausalID] = chain
	}
	chain.records = append(chain.records, rec)
	k := opKey{concept: rec.Concept, op: rec.Op}
	chain.byOp[k] = append(chain.byOp[k], rec)

	journal := l.journal
	subscriber := l.subscriber
	l.mu.Unlock()

	if journal != nil {
		if err := journal.Append(ctx, rec); err != nil {
			return rec.ID, fmt.Errorf("journal append: %w", err)
		}
	}

	if subscriber != nil {
		subscriber(rec)
	}

	return rec.ID, nil
}

// Chain returns the records of one causal chain in append order.
func (l *Log) Chain(causalID string) []*ir.ActionRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	chain, ok := l.chains[causalID]
	if !ok {
		return nil
	}
	return append([]*ir.ActionRecord(nil), chain.records...)
}

// Candidates returns the chain's records for (concept, op) with ID at most
// maxID, in append order. Matching for non-leading clauses passes the
// triggering record's ID so a clause never sees records appended after the
// record being processed.
func (l *Log) Candidates(causalID, concept, op string, maxID int64) []*ir.ActionRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	chain, ok := l.chains[causalID]
	if !ok {
		return nil
	}
	var out []*ir.ActionRecord
	for _, rec := range chain.byOp[opKey{concept: concept, op: op}] {
		if rec.ID <= maxID {
			out = append(out, rec)
		}
	}
	return out
}

// RecordsSince returns a chain's records with ID greater than afterID.
func (l *Log) RecordsSince(causalID string, afterID int64) []*ir.ActionRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	chain, ok := l.chains[causalID]
	if !ok {
		return nil
	}
	var out []*ir.ActionRecord
	for _, rec := range chain.records {
		if rec.ID > afterID {
			out = append(out, rec)
		}
	}
	return out
}

// Records returns a snapshot of the whole log in append order.
func (l *Log) Records() []*ir.ActionRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*ir.ActionRecord(nil), l.records...)
}

// Len returns the number of records appended so far.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Clock returns the log's logical clock.
func (l *Log) Clock() *Clock {
	return l.clock
}
