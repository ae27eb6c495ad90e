package registry

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rotblauer/vtsproxy/metatile"
	"github.com/rotblauer/vtsproxy/refframe"
	"github.com/rotblauer/vtsproxy/resource"
	"github.com/rotblauer/vtsproxy/vtserror"
)

// state is a generator entry's lifecycle stage.
type state int

const (
	stateFresh state = iota
	stateStale
	stateReady
	stateRemoved
)

func (s state) String() string {
	switch s {
	case stateFresh:
		return "fresh"
	case stateStale:
		return "stale"
	case stateReady:
		return "ready"
	case stateRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// entry is one generator's registry-held bookkeeping. savedResource
// is the resource gen was last prepared with; a replacement preparing
// in the background is not reflected here until it is swapped in.
type entry struct {
	id             resource.ID
	generatorType  string
	group          string
	referenceFrame string

	gen           Generator
	savedResource resource.Resource
	state         state
	system        bool
}

func (e *entry) snapshot() Snapshot {
	return Snapshot{
		ID:            e.id,
		GeneratorType: e.generatorType,
		Group:         e.group,
		State:         e.state.String(),
		Revision:      e.savedResource.Revision,
		System:        e.system,
	}
}

// Snapshot is the read-only, introspection-safe view of one entry
// (adminserver's GET /generators listing).
type Snapshot struct {
	ID            resource.ID
	GeneratorType string
	Group         string
	State         string
	Revision      int
	System        bool
}

type rfTypeKey struct{ rf, typ string }
type rfTypeGroupKey struct{ rf, typ, group string }

// Registry is the single mutex-guarded multi-indexed collection of
// live generators: one primary map keyed by
// resource.ID plus three secondary indexes, never split across locks.
type Registry struct {
	mu sync.Mutex

	byID        map[resource.ID]*entry
	byRFType    map[rfTypeKey]map[resource.ID]*entry
	byRFTypeGrp map[rfTypeGroupKey]map[resource.ID]*entry
	byRF        map[string]map[resource.ID]*entry

	ready      atomic.Bool
	preparing  atomic.Int64
	lastUpdate atomic.Int64 // unix microseconds

	events *Events

	pool       *pool
	reconciler *reconciler
	frames     *refframe.Registry
	factory    FactoryLookup
	arsenal    metatile.Arsenal
	logger     *slog.Logger
}

func newRegistry() *Registry {
	return &Registry{
		byID:        map[resource.ID]*entry{},
		byRFType:    map[rfTypeKey]map[resource.ID]*entry{},
		byRFTypeGrp: map[rfTypeGroupKey]map[resource.ID]*entry{},
		byRF:        map[string]map[resource.ID]*entry{},
		events:      NewEvents(),
	}
}

// Ready reports whether the first reconciliation cycle has completed.
func (r *Registry) Ready() bool { return r.ready.Load() }

// Preparing is the number of prepare tasks currently in flight.
func (r *Registry) Preparing() int64 { return r.preparing.Load() }

// LastUpdate is the timestamp of the most recently completed
// reconciliation cycle.
func (r *Registry) LastUpdate() time.Time {
	us := r.lastUpdate.Load()
	if us == 0 {
		return time.Time{}
	}
	return time.UnixMicro(us)
}

// Events returns the feed adminserver subscribes to for live
// generator lifecycle notifications.
func (r *Registry) Events() *Events { return r.events }

func (r *Registry) insertLocked(e *entry) {
	r.byID[e.id] = e

	rtk := rfTypeKey{e.referenceFrame, e.generatorType}
	if r.byRFType[rtk] == nil {
		r.byRFType[rtk] = map[resource.ID]*entry{}
	}
	r.byRFType[rtk][e.id] = e

	rtgk := rfTypeGroupKey{e.referenceFrame, e.generatorType, e.group}
	if r.byRFTypeGrp[rtgk] == nil {
		r.byRFTypeGrp[rtgk] = map[resource.ID]*entry{}
	}
	r.byRFTypeGrp[rtgk][e.id] = e

	if r.byRF[e.referenceFrame] == nil {
		r.byRF[e.referenceFrame] = map[resource.ID]*entry{}
	}
	r.byRF[e.referenceFrame][e.id] = e
}

func (r *Registry) eraseLocked(e *entry) {
	delete(r.byID, e.id)
	delete(r.byRFType[rfTypeKey{e.referenceFrame, e.generatorType}], e.id)
	delete(r.byRFTypeGrp[rfTypeGroupKey{e.referenceFrame, e.generatorType, e.group}], e.id)
	delete(r.byRF[e.referenceFrame], e.id)
}

// Generator looks up a ready generator by type and id, returning the
// entry only if its stored generator-type matches. Implements Finder.
func (r *Registry) Generator(generatorType string, id resource.ID) (Generator, error) {
	if !r.Ready() {
		return nil, fmt.Errorf("%w: registry", vtserror.ErrUnavailable)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[id]
	if !ok || e.state == stateRemoved || e.generatorType != generatorType {
		return nil, fmt.Errorf("%w: %s (%s)", vtserror.ErrUnknownGenerator, id, generatorType)
	}
	return e.gen, nil
}

// ByReferenceFrameAndType lists every ready generator of one kind
// within a reference frame.
func (r *Registry) ByReferenceFrameAndType(rf, generatorType string) ([]Snapshot, error) {
	if !r.Ready() {
		return nil, fmt.Errorf("%w: registry", vtserror.ErrUnavailable)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Snapshot, 0)
	for _, e := range r.byRFType[rfTypeKey{rf, generatorType}] {
		out = append(out, e.snapshot())
	}
	return out, nil
}

// ByReferenceFrameTypeGroup lists every ready generator of one kind
// and group within a reference frame.
func (r *Registry) ByReferenceFrameTypeGroup(rf, generatorType, group string) ([]Snapshot, error) {
	if !r.Ready() {
		return nil, fmt.Errorf("%w: registry", vtserror.ErrUnavailable)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Snapshot, 0)
	for _, e := range r.byRFTypeGrp[rfTypeGroupKey{rf, generatorType, group}] {
		out = append(out, e.snapshot())
	}
	return out, nil
}

// ByReferenceFrame lists every ready generator within a reference
// frame, regardless of kind.
func (r *Registry) ByReferenceFrame(rf string) ([]Snapshot, error) {
	if !r.Ready() {
		return nil, fmt.Errorf("%w: registry", vtserror.ErrUnavailable)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Snapshot, 0)
	for _, e := range r.byRF[rf] {
		out = append(out, e.snapshot())
	}
	return out, nil
}

// All lists every generator in the collection whether or not the
// registry is Ready, for adminserver's GET /generators. A generator
// still preparing for the first time is not in the collection yet and
// is not listed.
func (r *Registry) All() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Snapshot, 0, len(r.byID))
	for _, e := range r.byID {
		out = append(out, e.snapshot())
	}
	return out
}

// Get returns a single entry's snapshot and its resource, regardless
// of readiness (adminserver's GET /generators/{rf}/{group}/{id}).
func (r *Registry) Get(id resource.ID) (Snapshot, resource.Resource, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[id]
	if !ok {
		return Snapshot{}, resource.Resource{}, false
	}
	return e.snapshot(), e.savedResource, true
}
