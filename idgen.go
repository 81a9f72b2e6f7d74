package blockdraft

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator mints unique identifiers for templates and blocks. The
// editor takes one by injection so tests and fixtures can use stable,
// deterministic ids instead of the process-wide random source.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator mints random UUID identifiers. This is the production
// generator.
type UUIDGenerator struct{}

// NewID returns a fresh UUID string.
func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}

// SequenceGenerator mints "prefix-1", "prefix-2", ... identifiers.
// Safe for concurrent use.
type SequenceGenerator struct {
	prefix string
	n      atomic.Int64
}

// NewSequenceGenerator returns a generator counting up from prefix-1.
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	return &SequenceGenerator{prefix: prefix}
}

// NewID returns the next identifier in the sequence.
func (g *SequenceGenerator) NewID() string {
	return fmt.Sprintf("%s-%d", g.prefix, g.n.Add(1))
}
