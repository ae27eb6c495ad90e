package params

import (
	"path/filepath"
	"time"
)

// RegistryConfig configures the generator registry.
type RegistryConfig struct {
	// PrepareWorkers is the fixed size of the prepare worker pool.
	PrepareWorkers int
	// ResourceUpdatePeriod is the reconciliation tick interval; 0
	// disables timed polling but still honors on-demand signals.
	ResourceUpdatePeriod time.Duration
	// PendingDebounce collapses repeated prepare-enqueues of the same
	// resource.ID within this window into one Prepare call.
	PendingDebounce time.Duration
	// StateDBPath is the bbolt database used to persist the pending-
	// prepare queue across restarts.
	StateDBPath string
	// BackendLoadBackoff is the delay after a failed catalogue load
	// before the reconciler retries.
	BackendLoadBackoff time.Duration
}

func DefaultRegistryConfig() *RegistryConfig {
	return &RegistryConfig{
		PrepareWorkers:       5,
		ResourceUpdatePeriod: 60 * time.Second,
		PendingDebounce:      10 * time.Second,
		StateDBPath:          filepath.Join(DatadirRoot, "registry", "state.db"),
		BackendLoadBackoff:   5 * time.Second,
	}
}
