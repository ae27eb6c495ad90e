package registry

import (
	"context"
	"log/slog"
	"time"

	"github.com/rotblauer/vtsproxy/backend"
	"github.com/rotblauer/vtsproxy/metatile"
	"github.com/rotblauer/vtsproxy/params"
	"github.com/rotblauer/vtsproxy/refframe"
	"github.com/rotblauer/vtsproxy/resource"
)

// New builds a registry bound to b, frames, and factory, but does not
// start preparing or reconciling until Start is called.
func New(cfg *params.RegistryConfig, b backend.Backend, frames *refframe.Registry, arsenal metatile.Arsenal, factory FactoryLookup, freezes FreezeFunc, logger *slog.Logger) (*Registry, error) {
	r := newRegistry()
	p, err := newPool(r, b, arsenal, cfg.PrepareWorkers, cfg.PendingDebounce, cfg.StateDBPath, logger)
	if err != nil {
		return nil, err
	}
	r.pool = p
	r.reconciler = newReconciler(r, p, b, frames, factory, freezes, cfg, logger)
	r.frames = frames
	r.factory = factory
	r.arsenal = arsenal
	r.logger = logger
	return r, nil
}

// Start registers every system generator synchronously, then launches
// the prepare worker pool and the reconciliation loop. It returns once
// system generators are in place; reconciliation and preparation of
// catalogue resources continue in the background until Stop.
func (r *Registry) Start(ctx context.Context) error {
	if err := registerSystemGenerators(ctx, r, r.frames, r.factory, r.arsenal, r.logger); err != nil {
		return err
	}
	if ids, err := r.pool.recoverPendingIDs(); err != nil {
		r.logger.Error("recovering pending prepare queue", "error", err)
	} else if len(ids) > 0 {
		r.logger.Info("pending prepares recovered, will re-add via reconciliation", "count", len(ids))
	}

	r.pool.start(ctx)
	go r.reconciler.run(ctx)
	return nil
}

// Stop halts the reconciliation loop and closes the prepare pool's
// persisted state, leaving the in-memory collection intact.
func (r *Registry) Stop() {
	r.reconciler.stop()
	r.pool.close()
}

// OnPrepared registers a hook invoked after every prepare attempt,
// successful or not, primarily so metricsx can export a
// prepareDurationMs point without this package importing metricsx.
func (r *Registry) OnPrepared(fn func(id resource.ID, generatorType, group string, revision int, elapsed time.Duration, preparing int64)) {
	r.pool.onPrepared = fn
}

// RequestUpdate asks for a reconciliation cycle as soon as possible,
// rather than waiting for the next tick.
func (r *Registry) RequestUpdate() {
	r.reconciler.requestUpdate()
}
