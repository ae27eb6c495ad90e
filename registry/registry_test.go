package registry

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotblauer/vtsproxy/geo"
	"github.com/rotblauer/vtsproxy/metatile"
	"github.com/rotblauer/vtsproxy/params"
	"github.com/rotblauer/vtsproxy/refframe"
	"github.com/rotblauer/vtsproxy/resource"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeGenerator treats its Definition's "value" field as the only
// thing that can change; any difference in "value" classifies as
// resource.ChangedYes, matching a destructive change for test
// purposes.
type fakeGenerator struct {
	res resource.Resource
}

func (g *fakeGenerator) Prepare(ctx context.Context, arsenal metatile.Arsenal) error { return nil }

func (g *fakeGenerator) GenerateFile(info FileInfo, sink metatile.Sink) (Task, error) {
	return Task{}, nil
}

func (g *fakeGenerator) MapConfig(root ResourceRoot) (MapConfig, error) {
	return MapConfig{}, nil
}

func (g *fakeGenerator) Changed(next resource.Definition) resource.Changed {
	if g.res.Definition.String("value") == next.String("value") {
		return resource.ChangedNo
	}
	return resource.ChangedYes
}

type fakeFactoryLookup struct {
	generatorType string
}

func (f fakeFactoryLookup) Factory(generatorType string) (Factory, bool) {
	if generatorType != f.generatorType {
		return nil, false
	}
	return func(r resource.Resource) (Generator, error) {
		return &fakeGenerator{res: r}, nil
	}, true
}

func (f fakeFactoryLookup) SystemFactories() []SystemFactory { return nil }

// fakeBackend serves whatever catalogue is currently set, ignoring
// prepare-error reports.
type fakeBackend struct {
	catalogue []resource.Resource
}

func (b *fakeBackend) LoadCatalogue(ctx context.Context) ([]resource.Resource, error) {
	return b.catalogue, nil
}

func (b *fakeBackend) ReportPrepareError(ctx context.Context, id resource.ID, cause error) error {
	return nil
}

func testFrames(t *testing.T) *refframe.Registry {
	t.Helper()
	root := &refframe.Node{
		ID:         geo.NodeID{ReferenceFrame: "rf", Lod: 0, X: 0, Y: 0},
		SRS:        "srs",
		Extents:    geo.Extents{LL: geo.Point2{X: 0, Y: 0}, UR: geo.Point2{X: 1, Y: 1}},
		Productive: true,
	}
	rf := refframe.NewReferenceFrame("rf", "srs", root)
	reg := refframe.NewRegistry()
	reg.Register(rf)
	return reg
}

func newTestRegistry(t *testing.T, freezes FreezeFunc) (*Registry, *fakeBackend) {
	t.Helper()
	frames := testFrames(t)
	b := &fakeBackend{}
	cfg := &params.RegistryConfig{
		PrepareWorkers:       2,
		ResourceUpdatePeriod: time.Hour, // no timed ticks during the test
		PendingDebounce:      5 * time.Millisecond,
		StateDBPath:          filepath.Join(t.TempDir(), "state.db"),
		BackendLoadBackoff:   10 * time.Millisecond,
	}
	r, err := New(cfg, b, frames, nil, fakeFactoryLookup{generatorType: "dem"}, freezes, discardLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r, b
}

func waitFor(t *testing.T, deadline time.Duration, cond func() bool) {
	t.Helper()
	until := time.Now().Add(deadline)
	for time.Now().Before(until) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not satisfied within %s", deadline)
}

func demResource(value string) resource.Resource {
	return resource.Resource{
		ID:         resource.ID{ReferenceFrame: "rf", Group: "surface", ID: "dem"},
		Generator:  "dem",
		Definition: resource.NewDefinition(map[string]any{"value": value}),
	}
}

// TestRegistryFreeze covers scenario S5: a frozen-kind resource's
// served definition survives a destructive catalogue change.
func TestRegistryFreeze(t *testing.T) {
	r, b := newTestRegistry(t, func(kind string) bool { return kind == "dem" })
	b.catalogue = []resource.Resource{demResource("A")}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer r.Stop()

	id := resource.ID{ReferenceFrame: "rf", Group: "surface", ID: "dem"}
	waitFor(t, time.Second, func() bool {
		_, res, ok := r.Get(id)
		return ok && res.Definition.String("value") == "A"
	})

	b.catalogue = []resource.Resource{demResource("B")}
	r.RequestUpdate()

	// Give the reconciler ample time to run a cycle against the
	// changed catalogue and confirm the frozen definition held.
	time.Sleep(50 * time.Millisecond)
	snap, res, ok := r.Get(id)
	if !ok {
		t.Fatal("expected entry to still exist")
	}
	if res.Definition.String("value") != "A" {
		t.Errorf("frozen definition value = %v, want A", res.Definition.String("value"))
	}
	if snap.Revision != 0 {
		t.Errorf("frozen revision = %d, want 0", snap.Revision)
	}
}

// TestRegistryReplace covers scenario S6: a non-frozen kind replaces
// its definition and bumps revision on a destructive catalogue
// change, and every concurrent Generator lookup during the swap
// succeeds with either the old or the new generator, never neither
// (property 10, "Atomic replace").
func TestRegistryReplace(t *testing.T) {
	r, b := newTestRegistry(t, NeverFreeze)
	b.catalogue = []resource.Resource{demResource("A")}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer r.Stop()

	id := resource.ID{ReferenceFrame: "rf", Group: "surface", ID: "dem"}
	waitFor(t, time.Second, func() bool {
		_, res, ok := r.Get(id)
		return r.Ready() && ok && res.Definition.String("value") == "A"
	})

	stop := make(chan struct{})
	errs := make(chan error, 1)
	go func() {
		for {
			select {
			case <-stop:
				errs <- nil
				return
			default:
			}
			if _, err := r.Generator("dem", id); err != nil {
				errs <- err
				return
			}
		}
	}()

	b.catalogue = []resource.Resource{demResource("B")}
	r.RequestUpdate()

	waitFor(t, time.Second, func() bool {
		_, res, ok := r.Get(id)
		return ok && res.Definition.String("value") == "B"
	})
	close(stop)
	if err := <-errs; err != nil {
		t.Errorf("Generator lookup failed during swap: %v", err)
	}

	snap, res, ok := r.Get(id)
	if !ok {
		t.Fatal("expected entry to still exist")
	}
	if res.Definition.String("value") != "B" {
		t.Errorf("definition value = %v, want B", res.Definition.String("value"))
	}
	if snap.Revision != 1 {
		t.Errorf("revision = %d, want 1", snap.Revision)
	}
}
