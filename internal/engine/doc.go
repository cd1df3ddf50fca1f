// Package engine is the synchronization kernel: it matches freshly
// appended action records against registered syncs and drives the
// cascaded dispatch those matches produce.
//
// The moving parts, in the order a record meets them:
//
//   - Trigger opens a causal chain, mints its causal id, and runs the
//     trampoline loop that pops pending invocations.
//   - invoke calls the concept action and appends the resulting record.
//   - react, subscribed to the log, matches the record against every
//     sync whose head pattern names the record's operation, evaluates
//     the surviving frames through the where pipeline, and enqueues
//     one invocation per frame per then clause.
//
// CRITICAL: react runs synchronously inside Append, but it only ever
// enqueues work; the actual invocations happen back in the Trigger
// loop. Keeping dispatch on the trampoline instead of recursing through
// Append bounds the stack and lets the depth guard count invocations
// with a plain integer. A chain that exceeds the limit aborts with
// OverflowError; the records appended before the abort stay in the log.
//
// Two kinds of failure, never conflated: a concept reporting an expected
// failure puts it in its output's error variant, which is recorded like
// any other completion and can itself be matched by syncs. A concept
// (or the journal) returning a Go error is a fault; the chain aborts
// with FaultError and no further dispatch happens for that chain.
// Sibling chains are unaffected either way.
package engine
