// Package registry owns the live set of generators: a multi-indexed
// in-memory collection reconciled against a resource backend, served
// through a fixed prepare worker pool.
package registry

import (
	"context"

	"github.com/rotblauer/vtsproxy/geo"
	"github.com/rotblauer/vtsproxy/metatile"
	"github.com/rotblauer/vtsproxy/resource"
)

// Generator is a concrete generator kind's implementation, bound to
// one resource.Resource.
type Generator interface {
	// Prepare loads whatever a generator needs before it can serve
	// (descriptors, calipers ranges); failure removes the generator
	// from the registry under lock.
	Prepare(ctx context.Context, arsenal metatile.Arsenal) error

	// GenerateFile produces one served file. The returned Task is the
	// out-of-scope tile-serving path's concern; the registry never
	// calls this itself.
	GenerateFile(info FileInfo, sink metatile.Sink) (Task, error)

	// MapConfig describes this generator's served layer for a
	// tileset.conf-equivalent summary.
	MapConfig(root ResourceRoot) (MapConfig, error)

	// Changed classifies how next differs from the definition this
	// generator was last Prepare'd with; it does not mutate the generator.
	Changed(next resource.Definition) resource.Changed
}

// FileInfo identifies one file within a generator's served layer.
type FileInfo struct {
	Tile  geo.Tile
	Class string
}

// Task represents a deferred file-generation result. Its consumption
// (waiting, streaming bytes to a client) is entirely the tile-serving
// surface's concern, explicitly out of scope here; the registry only
// ever calls GenerateFile indirectly through a Generator under test.
type Task struct {
	Done chan struct{}
	Err  error
	Data []byte
}

// ResourceRoot is the on-disk root a generator's MapConfig is relative
// to.
type ResourceRoot struct {
	Path     string
	Resource resource.Resource
}

// MapConfig is a generator's tileset.conf-equivalent summary.
type MapConfig struct {
	Name      string
	Driver    string
	LodRange  [2]int
	TileRange geo.TileRange
	Extra     map[string]any
}

// MetatileGenerator is the surface-kind extension for generators that
// serve 3D meshes. A Generator implements zero or
// more of these; callers type-assert for the ones they need.
type MetatileGenerator interface {
	GenerateMetatile(ctx context.Context, tile geo.Tile, sink metatile.Sink, arsenal metatile.Arsenal) (*metatile.MetaTile, error)
}

type MeshGenerator interface {
	GenerateMesh(ctx context.Context, tile geo.Tile, sink metatile.Sink) ([]byte, error)
}

type NavtileGenerator interface {
	GenerateNavtile(ctx context.Context, tile geo.Tile, sink metatile.Sink) ([]byte, error)
}

type TwoDMaskGenerator interface {
	GenerateTwoDMask(ctx context.Context, tile geo.Tile, sink metatile.Sink) ([]byte, error)
}

type TwoDMetatileGenerator interface {
	GenerateTwoDMetatile(ctx context.Context, tile geo.Tile, sink metatile.Sink) ([]byte, error)
}

type CreditsGenerator interface {
	GenerateCredits(ctx context.Context, tile geo.Tile) ([]string, error)
}

type DebugNodeGenerator interface {
	GenerateDebugNode(ctx context.Context, tile geo.Tile) (map[string]any, error)
}

// Finder resolves sibling generators by resource.ID. Generators that
// need to look up another generator must go through a Finder rather
// than hold a pointer to it, preventing generator<->generator
// ownership cycles. *Registry implements Finder.
type Finder interface {
	Generator(generatorType string, id resource.ID) (Generator, error)
}

// Factory constructs a fresh Generator for a resource, bound by
// genfactory.Registry to a resource.Generator key.
type Factory func(resource.Resource) (Generator, error)

// SystemFactory is a Factory flagged systemInstance: the registry
// instantiates exactly one generator per reference frame from it at
// startup, never removable by reconciliation.
type SystemFactory struct {
	GeneratorType string
	Factory       Factory
}

// FactoryLookup is the subset of genfactory.Registry's surface the
// registry package needs. Defined here rather than importing
// genfactory directly, since genfactory imports registry for Factory/
// SystemFactory -- genfactory.Registry satisfies this interface
// structurally.
type FactoryLookup interface {
	Factory(generatorType string) (Factory, bool)
	SystemFactories() []SystemFactory
}

// SystemGroup is the fixed group every system-instance generator is
// registered under.
func SystemGroup() string { return "system" }

// FreezeFunc answers whether a destructive definition change for this
// generator kind is ignored (stored definition wins) rather than
// effected.
type FreezeFunc func(generatorType string) bool

// NeverFreeze is the default FreezeFunc: every kind accepts
// destructive changes.
func NeverFreeze(string) bool { return false }
