// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"time"
)

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates instance identifiers.
type IDGenerator interface {
	New() string
}

// -----------------------------------------------------------------------------
// Observability Ports
// -----------------------------------------------------------------------------

// Metrics records engine activity. Implementations must be safe for
// concurrent use.
type Metrics interface {
	// ModelDefined is called after a model is defined.
	ModelDefined(model string)

	// ModelUndefined is called after a model is removed.
	ModelUndefined(model string)

	// InstanceCreated is called for every constructed instance, nested
	// instances included.
	InstanceCreated(model string)

	// Validated records a type validation and its outcome.
	Validated(typeName string, err error)

	// Imported is called after a JSON import into an instance.
	Imported(model string, err error)

	// Exported is called after an instance is exported to JSON.
	Exported(model string)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) ModelDefined(string) {}
func (NopMetrics) ModelUndefined(string) {}
func (NopMetrics) InstanceCreated(string) {}
func (NopMetrics) Validated(string, error) {}
func (NopMetrics) Imported(string, error) {}
func (NopMetrics) Exported(string) {}

// Ensure interface compliance.
var _ Metrics = NopMetrics{}
