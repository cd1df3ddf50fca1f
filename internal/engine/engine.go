package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/concordkit/concord/internal/concept"
	"github.com/concordkit/concord/internal/frame"
	"github.com/concordkit/concord/internal/ir"
	"github.com/concordkit/concord/internal/log"
	"github.com/concordkit/concord/internal/metrics"
)

// DefaultMaxSteps bounds how many action invocations one causal chain
// may perform before the depth guard aborts it.
const DefaultMaxSteps = 256

// Engine wires the action log, the concept registry, and the registered
// syncs into a running synchronization kernel.
//
// Thread-safety: Trigger may be called concurrently; each call drives
// exactly one causal chain and independent chains share nothing but the
// log. Register is not safe to call concurrently with Trigger; register
// everything first, then serve.
type Engine struct {
	log      *log.Log
	concepts *concept.Registry
	gen      CausalIDGenerator
	maxSteps int
	metrics  *metrics.Metrics
	logger   *slog.Logger

	syncs  []*Sync
	byHead map[string][]*Sync

	mu       sync.Mutex
	cascades map[string]*cascade
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxSteps overrides the cascade depth guard limit.
func WithMaxSteps(n int) Option {
	return func(e *Engine) { e.maxSteps = n }
}

// WithMetrics attaches prometheus counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithLogger overrides the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithGenerator overrides the causal id generator. Tests use
// FixedGenerator for reproducible chains.
func WithGenerator(g CausalIDGenerator) Option {
	return func(e *Engine) { e.gen = g }
}

// New creates an engine over a log and a concept registry and subscribes
// to the log's append notifications.
func New(l *log.Log, concepts *concept.Registry, opts ...Option) *Engine {
	e := &Engine{
		log:      l,
		concepts: concepts,
		gen:      UUIDGenerator{},
		maxSteps: DefaultMaxSteps,
		logger:   slog.Default(),
		byHead:   map[string][]*Sync{},
		cascades: map[string]*cascade{},
	}
	for _, opt := range opts {
		opt(e)
	}
	l.Subscribe(e.react)
	return e
}

// Register validates and installs a sync. Syncs fire in registration
// order, which keeps the log deterministic when several syncs share a
// head pattern.
func (e *Engine) Register(s *Sync) error {
	if err := s.validate(e.concepts); err != nil {
		return err
	}
	for _, existing := range e.syncs {
		if existing.Name == s.Name {
			return &RegistrationError{Sync: s.Name, Reason: "duplicate sync name"}
		}
	}
	e.syncs = append(e.syncs, s)
	head := s.When[0].Ref().String()
	e.byHead[head] = append(e.byHead[head], s)
	e.metrics.ObserveSync(s.Name)
	e.logger.Debug("sync registered", "sync", s.Name, "head", head)
	return nil
}

// Syncs returns the registered syncs in registration order.
func (e *Engine) Syncs() []*Sync {
	return append([]*Sync(nil), e.syncs...)
}

// Trigger starts a new causal chain by invoking one action, then drives
// every dispatch the chain cascades into until the queue drains.
//
// The returned record is the trigger's own; its output carries the
// action's tagged result. A non-nil error means the chain was aborted
// (OverflowError or FaultError) and the log holds the partial chain up
// to the abort.
func (e *Engine) Trigger(ctx context.Context, conceptName, op string, input ir.Object) (*ir.ActionRecord, error) {
	causalID := e.gen.NewCausalID()
	c := &cascade{causalID: causalID, ctx: ctx}
	c.enqueue(invocation{Concept: conceptName, Op: op, Input: input})

	e.mu.Lock()
	e.cascades[causalID] = c
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		delete(e.cascades, causalID)
		e.mu.Unlock()
	}()

	e.logger.Debug("chain started", "causal_id", causalID, "concept", conceptName, "op", op)

	var first *ir.ActionRecord
	for {
		inv, ok := c.pop()
		if !ok {
			break
		}
		c.steps++
		if c.steps > e.maxSteps {
			e.metrics.ChainOverflow()
			err := &OverflowError{CausalID: causalID, Steps: c.steps, Limit: e.maxSteps}
			e.logger.Error("chain aborted", "causal_id", causalID, "error", err)
			return first, err
		}

		rec, err := e.invoke(ctx, causalID, inv)
		if err != nil {
			e.metrics.ChainFault()
			e.logger.Error("chain aborted", "causal_id", causalID, "error", err)
			return first, err
		}
		if first == nil {
			first = rec
		}
		// react ran synchronously inside Append; it records faults on
		// the cascade instead of returning through the log.
		if c.fault != nil {
			e.metrics.ChainFault()
			e.logger.Error("chain aborted", "causal_id", causalID, "error", c.fault)
			return first, c.fault
		}
	}

	e.logger.Debug("chain settled", "causal_id", causalID, "records", c.steps)
	return first, nil
}

// invoke runs one action and appends its record. The Append call
// notifies react before returning, which is where cascaded dispatch
// enters the queue.
func (e *Engine) invoke(ctx context.Context, causalID string, inv invocation) (*ir.ActionRecord, error) {
	ref := ir.Ref{Concept: inv.Concept, Op: inv.Op}
	out, err := e.concepts.Action(ctx, ref, inv.Input)
	if err != nil {
		return nil, &FaultError{CausalID: causalID, Concept: inv.Concept, Op: inv.Op, Err: err}
	}
	rec := &ir.ActionRecord{
		CausalID: causalID,
		Concept:  inv.Concept,
		Op:       inv.Op,
		Input:    inv.Input,
		Output:   out,
	}
	if _, err := e.log.Append(ctx, rec); err != nil {
		return nil, &FaultError{CausalID: causalID, Concept: inv.Concept, Op: inv.Op, Err: err}
	}
	e.metrics.RecordAppended()
	return rec, nil
}

// react is the log subscriber. It runs synchronously inside Append, on
// the chain's own driver goroutine, so everything here is single-chain
// single-threaded apart from the fan-out inside evalWhere.
func (e *Engine) react(rec *ir.ActionRecord) {
	e.mu.Lock()
	c := e.cascades[rec.CausalID]
	e.mu.Unlock()
	if c == nil || c.fault != nil {
		return
	}

	head := rec.Ref().String()
	for _, s := range e.byHead[head] {
		frames := match(s, rec, e.log)
		if len(frames) == 0 {
			continue
		}
		frames, err := evalWhere(c.ctx, s, frames, e.concepts, e.observeDrop)
		if err != nil {
			c.fault = &FaultError{CausalID: rec.CausalID, Concept: rec.Concept, Op: rec.Op, Err: fmt.Errorf("sync %s where: %w", s.Name, err)}
			return
		}
		frames = frame.Project(frames, thenVars(s))
		for _, fr := range frames {
			e.metrics.SyncFired(s.Name)
			for _, t := range s.Then {
				input, err := t.Resolve(fr.Bindings)
				if err != nil {
					c.fault = &FaultError{CausalID: rec.CausalID, Concept: t.Concept, Op: t.Op, Err: fmt.Errorf("sync %s then: %w", s.Name, err)}
					return
				}
				c.enqueue(invocation{Concept: t.Concept, Op: t.Op, Input: input, Sync: s.Name})
			}
			e.logger.Debug("sync fired", "sync", s.Name, "causal_id", rec.CausalID, "record", rec.ID)
		}
	}
}

func (e *Engine) observeDrop(sync, stage string) {
	e.metrics.FrameDropped(sync, stage)
	e.logger.Debug("frame dropped", "sync", sync, "stage", stage)
}

// thenVars lists every variable a sync's then templates consume, for
// projecting frames down before dispatch.
func thenVars(s *Sync) []string {
	var vars []string
	seen := map[string]bool{}
	for _, t := range s.Then {
		for _, v := range t.Input.Vars() {
			if !seen[v] {
				seen[v] = true
				vars = append(vars, v)
			}
		}
	}
	return vars
}
