package engine

import (
	"fmt"

	"github.com/google/uuid"
)

// CausalIDGenerator mints the causal identifier for each external trigger.
// Every record transitively caused by one trigger carries that same id.
type CausalIDGenerator interface {
	NewCausalID() string
}

// UUIDGenerator mints time-ordered UUIDv7 causal ids. Time-ordered ids
// keep chain listings in roughly trigger order without consulting the log.
type UUIDGenerator struct{}

func (UUIDGenerator) NewCausalID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator mints a deterministic sequence ("prefix-1", "prefix-2", ...)
// for tests and replay harnesses.
type FixedGenerator struct {
	Prefix string
	n      int
}

func (g *FixedGenerator) NewCausalID() string {
	g.n++
	return fmt.Sprintf("%s-%d", g.Prefix, g.n)
}
