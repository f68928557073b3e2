// Package idgen provides instance ID generators.
package idgen

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/artpar/modeltype/ports"
)

// UUID generates random (version 4) UUIDs.
type UUID struct{}

// New returns a new random UUID.
func (UUID) New() string {
	return uuid.NewString()
}

// Ordered generates time-ordered (version 7) UUIDs, so instance IDs sort by
// creation time.
type Ordered struct{}

// New returns a new time-ordered UUID. It falls back to a random UUID if
// the clock sequence cannot be read.
func (Ordered) New() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Sequential generates prefixed sequential IDs, mostly for tests.
type Sequential struct {
	prefix  string
	counter atomic.Uint64
}

// NewSequential creates a sequential generator. The first ID is prefix+"1".
func NewSequential(prefix string) *Sequential {
	return &Sequential{prefix: prefix}
}

// New returns the next ID.
func (s *Sequential) New() string {
	return s.prefix + strconv.FormatUint(s.counter.Add(1), 10)
}

// Reset restarts the sequence.
func (s *Sequential) Reset() {
	s.counter.Store(0)
}

// ForFormat returns the generator for a configured ID format: "uuid"
// (or empty) and "ordered" are recognised.
func ForFormat(format string) (ports.IDGenerator, bool) {
	switch format {
	case "", "uuid":
		return UUID{}, true
	case "ordered":
		return Ordered{}, true
	}
	return nil, false
}

var (
	_ ports.IDGenerator = UUID{}
	_ ports.IDGenerator = Ordered{}
	_ ports.IDGenerator = (*Sequential)(nil)
)
