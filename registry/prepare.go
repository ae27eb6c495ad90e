package registry

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"go.etcd.io/bbolt"

	"github.com/rotblauer/vtsproxy/backend"
	"github.com/rotblauer/vtsproxy/metatile"
	"github.com/rotblauer/vtsproxy/resource"
)

var pendingBucket = []byte("pending")

// prepareTask is one unit of work for the prepare pool: prepare gen
// for resource r, then either insert it fresh or swap it in for
// replaces.
type prepareTask struct {
	id       resource.ID
	gen      Generator
	res      resource.Resource
	replaces bool
	system   bool
}

// pendingRecord is prepareTask's bbolt-persisted shape (gen/Generator
// is not serializable; it is reconstructed by re-deriving the task
// from the catalogue on recover, matching TileDaemon.recover's
// contract of re-enqueuing by id, not by resuming in-flight state).
type pendingRecord struct {
	ID resource.ID `json:"id"`
}

// pool is the fixed-size prepare worker pool plus its persisted
// pending queue and debounce layer, grounded on
// daemon/tiled/daemon.go's TileDaemon (db *bbolt.DB,
// pendingTTLCache *ttlcache.Cache[...]) applied to generator
// preparation instead of tippecanoe tiling requests.
type pool struct {
	r *Registry

	workers int
	tasks   chan prepareTask

	db      *bbolt.DB
	pending *ttlcache.Cache[resource.ID, prepareTask]

	backend backend.Backend
	arsenal metatile.Arsenal
	logger  *slog.Logger

	// onPrepared is an optional hook called after every prepare
	// attempt, successful or not, so a caller (metricsx) can export a
	// duration metric without this package importing metricsx --
	// metricsx imports registry for registry.Event, so the dependency
	// can only run this direction.
	onPrepared func(id resource.ID, generatorType, group string, revision int, elapsed time.Duration, preparing int64)
}

func newPool(r *Registry, b backend.Backend, arsenal metatile.Arsenal, workers int, debounce time.Duration, dbPath string, logger *slog.Logger) (*pool, error) {
	db, err := bbolt.Open(dbPath, 0660, nil)
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(pendingBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}

	p := &pool{
		r:       r,
		workers: workers,
		tasks:   make(chan prepareTask, 4096),
		db:      db,
		pending: ttlcache.New[resource.ID, prepareTask](ttlcache.WithTTL[resource.ID, prepareTask](debounce)),
		backend: b,
		arsenal: arsenal,
		logger:  logger,
	}
	p.pending.OnEviction(func(ctx context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[resource.ID, prepareTask]) {
		p.enqueue(item.Value())
	})
	go p.pending.Start()
	return p, nil
}

func (p *pool) close() {
	p.pending.Stop()
	_ = p.db.Close()
}

// start launches the fixed-size worker pool.
func (p *pool) start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		go p.work(ctx)
	}
}

// request debounces a prepare request: repeated requests for the
// same resource.ID within the debounce window collapse into one
// Prepare call. preparing is incremented here, at request time, not
// at enqueue/eviction time -- a resource with a task sitting in the
// debounce window is just as "not yet ready" as one already running,
// and Registry.Ready must not flip true while either is outstanding.
// A repeated request for an id already pending only replaces the
// ttlcache value, which is not an eviction, so it does not double
// count.
func (p *pool) request(task prepareTask) {
	p.persist(task)
	if !p.pending.Has(task.id) {
		p.r.preparing.Add(1)
	}
	p.pending.Set(task.id, task, ttlcache.DefaultTTL)
}

func (p *pool) enqueue(task prepareTask) {
	p.tasks <- task
}

func (p *pool) persist(task prepareTask) {
	rec := pendingRecord{ID: task.id}
	raw, err := json.Marshal(rec)
	if err != nil {
		p.logger.Error("marshaling pending prepare record", "error", err)
		return
	}
	if err := p.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(pendingBucket).Put([]byte(task.id.String()), raw)
	}); err != nil {
		p.logger.Error("persisting pending prepare record", "error", err)
	}
}

func (p *pool) unpersist(id resource.ID) {
	if err := p.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(pendingBucket).Delete([]byte(id.String()))
	}); err != nil {
		p.logger.Error("unpersisting pending prepare record", "error", err)
	}
}

// recoverPendingIDs reloads pending generator ids from the pending bucket after
// a crash mid-prepare, grounded on TileDaemon.recover.
// Reconstructing a full prepareTask needs the catalogue; recoverPendingIDs only
// returns ids, leaving re-derivation of gen/res to the next
// reconciliation cycle, which will naturally re-enqueue them as adds.
func (p *pool) recoverPendingIDs() ([]resource.ID, error) {
	var ids []resource.ID
	err := p.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(pendingBucket).ForEach(func(k, v []byte) error {
			var rec pendingRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			ids = append(ids, rec.ID)
			return nil
		})
	})
	return ids, err
}

func (p *pool) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-p.tasks:
			if !ok {
				return
			}
			p.run(ctx, task)
			p.r.preparing.Add(-1)
		}
	}
}

func (p *pool) run(ctx context.Context, task prepareTask) {
	defer p.unpersist(task.id)

	start := time.Now()
	err := task.gen.Prepare(ctx, p.arsenal)
	elapsed := time.Since(start)

	if p.onPrepared != nil {
		p.onPrepared(task.id, task.res.Generator, task.id.Group, task.res.Revision, elapsed, p.r.Preparing())
	}

	if err != nil {
		p.logger.Error("prepare failed", "id", task.id, "error", err, "elapsed", elapsed)
		if rerr := p.backend.ReportPrepareError(ctx, task.id, err); rerr != nil {
			p.logger.Error("reporting prepare error to backend", "id", task.id, "error", rerr)
		}
		p.r.mu.Lock()
		if e, ok := p.r.byID[task.id]; ok && e.state != stateReady {
			p.r.eraseLocked(e)
		}
		p.r.mu.Unlock()
		p.r.events.Publish(Event{Kind: EventPrepareFailed, ID: task.id, Error: err.Error()})
		return
	}

	e := &entry{
		id:             task.id,
		generatorType:  task.res.Generator,
		group:          task.id.Group,
		referenceFrame: task.id.ReferenceFrame,
		gen:            task.gen,
		savedResource:  task.res,
		state:          stateReady,
		system:         task.system,
	}

	p.r.mu.Lock()
	if old, ok := p.r.byID[task.id]; ok {
		p.r.eraseLocked(old)
	}
	p.r.insertLocked(e)
	p.r.mu.Unlock()

	kind := EventAdded
	if task.replaces {
		kind = EventReplaced
	}
	p.r.events.Publish(Event{Kind: kind, ID: task.id})
	p.logger.Info("prepared generator", "id", task.id, "elapsed", elapsed, "replaced", task.replaces)
}
