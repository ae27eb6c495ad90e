package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/golang/groupcache/lru"
	"github.com/mitchellh/hashstructure/v2"

	"github.com/rotblauer/vtsproxy/backend"
	"github.com/rotblauer/vtsproxy/calipers"
	"github.com/rotblauer/vtsproxy/geo"
	"github.com/rotblauer/vtsproxy/metatile"
	"github.com/rotblauer/vtsproxy/params"
	"github.com/rotblauer/vtsproxy/refframe"
	"github.com/rotblauer/vtsproxy/resource"
	"github.com/rotblauer/vtsproxy/vtserror"
)

// reconciler drives the registry's catalogue-vs-live-set merge-walk,
// grounded on daemon/tiled/daemon.go's own reconcile-and-retry loop
// (its periodic db sweep for stale tiling requests) applied to
// resource.Resource reconciliation instead.
type reconciler struct {
	r        *Registry
	pool     *pool
	backend  backend.Backend
	frames   *refframe.Registry
	factory  FactoryLookup
	freezes  FreezeFunc
	cfg      *params.RegistryConfig
	logger   *slog.Logger
	signal   chan struct{}
	shutdown chan struct{}
	done     chan struct{}
}

func newReconciler(r *Registry, p *pool, b backend.Backend, frames *refframe.Registry, factory FactoryLookup, freezes FreezeFunc, cfg *params.RegistryConfig, logger *slog.Logger) *reconciler {
	if freezes == nil {
		freezes = NeverFreeze
	}
	return &reconciler{
		r:        r,
		pool:     p,
		backend:  b,
		frames:   frames,
		factory:  factory,
		freezes:  freezes,
		cfg:      cfg,
		logger:   logger,
		signal:   make(chan struct{}, 1),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// requestUpdate asks for a reconciliation cycle soon, coalescing with
// any already-pending request.
func (rc *reconciler) requestUpdate() {
	select {
	case rc.signal <- struct{}{}:
	default:
	}
}

func (rc *reconciler) stop() {
	close(rc.shutdown)
	<-rc.done
}

// run is the reconciliation loop: tick on ResourceUpdatePeriod, or on
// an on-demand signal, running one cycle at a time and backing off
// BackendLoadBackoff on a failed catalogue load.
func (rc *reconciler) run(ctx context.Context) {
	defer close(rc.done)

	var tick <-chan time.Time
	if rc.cfg.ResourceUpdatePeriod > 0 {
		ticker := time.NewTicker(rc.cfg.ResourceUpdatePeriod)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		if err := rc.cycle(ctx); err != nil {
			rc.logger.Error("reconciliation cycle failed", "error", err)
			select {
			case <-time.After(rc.cfg.BackendLoadBackoff):
			case <-rc.shutdown:
				return
			case <-ctx.Done():
				return
			}
			continue
		}

		// Poll the preparing count briefly before declaring the cycle
		// complete, so a burst of enqueued prepares from this cycle
		// has a chance to settle before the next tick.
		for rc.r.Preparing() > 0 {
			select {
			case <-time.After(100 * time.Millisecond):
			case <-rc.shutdown:
				return
			case <-ctx.Done():
				return
			}
		}
		rc.r.lastUpdate.Store(time.Now().UnixMicro())
		rc.r.ready.Store(true)

		select {
		case <-tick:
		case <-rc.signal:
		case <-rc.shutdown:
			return
		case <-ctx.Done():
			return
		}
	}
}

// cycle performs one merge-walk between the live, non-system entries
// and a freshly loaded catalogue, ordered by resource.ID.
func (rc *reconciler) cycle(ctx context.Context) error {
	next, err := rc.backend.LoadCatalogue(ctx)
	if err != nil {
		return err
	}
	next = dedupeCatalogue(next, rc.logger)
	sort.Slice(next, func(i, j int) bool { return next[i].ID.Less(next[j].ID) })
	rc.logger.Info("catalogue loaded", "resources", humanize.Comma(int64(len(next))))

	current := rc.liveNonSystem()
	sort.Slice(current, func(i, j int) bool { return current[i].id.Less(current[j].id) })

	i, j := 0, 0
	for i < len(current) || j < len(next) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		select {
		case <-rc.shutdown:
			return vtserror.ErrAborted
		default:
		}
		switch {
		case i >= len(current):
			rc.add(next[j])
			j++
		case j >= len(next):
			rc.remove(current[i])
			i++
		case current[i].id == next[j].ID:
			rc.merge(current[i], next[j])
			i++
			j++
		case current[i].id.Less(next[j].ID):
			rc.remove(current[i])
			i++
		default:
			rc.add(next[j])
			j++
		}
	}
	return nil
}

// dedupeCatalogue drops any resource whose ID repeats within a single
// catalogue load, keeping the first occurrence. A backend returning
// the same ID twice (a concurrent write straddling an S3 snapshot
// fetch, a symlinked FS tree) would otherwise break the merge-walk's
// sorted two-pointer invariant. Mirrors catdb/cache.PopulateDedupeCache's
// hash-keyed LRU dedupe, scoped to one pass rather than kept across
// cycles.
func dedupeCatalogue(in []resource.Resource, logger *slog.Logger) []resource.Resource {
	seen := lru.New(len(in) + 1)
	out := make([]resource.Resource, 0, len(in))
	for _, res := range in {
		hash, err := hashstructure.Hash(res.ID, hashstructure.FormatV2, nil)
		if err != nil {
			out = append(out, res)
			continue
		}
		key := fmt.Sprintf("%d", hash)
		if _, ok := seen.Get(key); ok {
			logger.Warn("dropping duplicate catalogue entry", "id", res.ID)
			continue
		}
		seen.Add(key, true)
		out = append(out, res)
	}
	return out
}

func (rc *reconciler) liveNonSystem() []*entry {
	rc.r.mu.Lock()
	defer rc.r.mu.Unlock()
	out := make([]*entry, 0, len(rc.r.byID))
	for _, e := range rc.r.byID {
		if !e.system {
			out = append(out, e)
		}
	}
	return out
}

func (rc *reconciler) add(res resource.Resource) {
	factory, ok := rc.factory.Factory(res.Generator)
	if !ok {
		rc.logger.Error("no factory registered for generator kind", "kind", res.Generator, "id", res.ID)
		return
	}
	gen, err := factory(res)
	if err != nil {
		rc.logger.Error("constructing generator", "id", res.ID, "error", err)
		return
	}
	rc.pool.request(prepareTask{id: res.ID, gen: gen, res: res, replaces: false})
}

// remove erases a live entry that no longer appears in the catalogue.
// System entries are filtered out before cycle ever sees them, so
// every call here is eligible.
func (rc *reconciler) remove(e *entry) {
	rc.r.mu.Lock()
	rc.r.eraseLocked(e)
	rc.r.mu.Unlock()
	rc.r.events.Publish(Event{Kind: EventRemoved, ID: e.id})
}

// merge classifies how a live entry's definition differs from the
// catalogue's current one and applies the freeze rules:
//
//	Changed::no               -> noop
//	Changed::yes              -> replace only when not frozen,
//	                             bumping revision; frozen keeps the
//	                             saved definition but still adopts
//	                             incoming FileClassSettings
//	Changed::safely           -> replace unconditionally, same revision
//	Changed::withRevisionBump -> replace unconditionally, revision+1
func (rc *reconciler) merge(e *entry, next resource.Resource) {
	changed := e.gen.Changed(next.Definition)

	switch changed {
	case resource.ChangedNo:
		return

	case resource.ChangedYes:
		if rc.freezes(e.generatorType) {
			rc.restoreFrozen(e, next)
			return
		}
		rc.replace(e, next, e.savedResource.Revision+1)

	case resource.ChangedSafely:
		rc.replace(e, next, e.savedResource.Revision)

	case resource.ChangedWithRevisionBump:
		rc.replace(e, next, e.savedResource.Revision+1)
	}
}

// restoreFrozen keeps e's saved definition in force but always adopts
// the catalogue's current FileClassSettings, which are serving
// metadata rather than content and so are never subject to freezing.
func (rc *reconciler) restoreFrozen(e *entry, next resource.Resource) {
	rc.r.mu.Lock()
	e.savedResource.FileClassSettings = next.FileClassSettings
	rc.r.mu.Unlock()
}

func (rc *reconciler) replace(e *entry, next resource.Resource, revision int) {
	factory, ok := rc.factory.Factory(next.Generator)
	if !ok {
		rc.logger.Error("no factory registered for generator kind", "kind", next.Generator, "id", next.ID)
		return
	}
	next.Revision = revision
	gen, err := factory(next)
	if err != nil {
		rc.logger.Error("constructing replacement generator", "id", next.ID, "error", err)
		return
	}
	rc.pool.request(prepareTask{id: next.ID, gen: gen, res: next, replaces: true})
}

// systemResource synthesizes the resource a system-instance factory is
// bound to at startup: group=SystemGroup(), lodRange=[0,22],
// tileRange=(0,0,0,0), comment "autoregistered resource".
func systemResource(rf *refframe.ReferenceFrame, generatorType string) resource.Resource {
	return resource.Resource{
		ID: resource.ID{
			ReferenceFrame: rf.ID,
			Group:          SystemGroup(),
			ID:             generatorType,
		},
		Generator:      generatorType,
		Definition:     resource.NewDefinition(nil),
		ReferenceFrame: rf,
		LodRange:       calipers.LodRange{Min: 0, Max: 22},
		TileRange:      geo.TileRange{Lod: 0, MinX: 0, MinY: 0, MaxX: 0, MaxY: 0},
		Comment:        "autoregistered resource",
	}
}

// registerSystemGenerators instantiates and synchronously prepares one
// generator per reference frame for every systemInstance-flagged
// factory, inserting each directly rather than through the pool:
// system generators must exist before the registry is ever considered
// ready.
func registerSystemGenerators(ctx context.Context, r *Registry, frames *refframe.Registry, factory FactoryLookup, arsenal metatile.Arsenal, logger *slog.Logger) error {
	for _, sf := range factory.SystemFactories() {
		for _, rfID := range frames.IDs() {
			rf, err := frames.Get(rfID)
			if err != nil {
				return err
			}
			res := systemResource(rf, sf.GeneratorType)
			gen, err := sf.Factory(res)
			if err != nil {
				return err
			}
			if err := gen.Prepare(ctx, arsenal); err != nil {
				return err
			}
			e := &entry{
				id:             res.ID,
				generatorType:  res.Generator,
				group:          res.ID.Group,
				referenceFrame: res.ID.ReferenceFrame,
				gen:            gen,
				savedResource:  res,
				state:          stateReady,
				system:         true,
			}
			r.mu.Lock()
			r.insertLocked(e)
			r.mu.Unlock()
			logger.Info("registered system generator", "id", res.ID)
		}
	}
	return nil
}
