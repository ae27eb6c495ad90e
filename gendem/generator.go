// Package gendem is the dem generator kind: it prepares a DEM
// dataset's descriptor and serves metatile content assembled by
// metatile.Builder from warps of that dataset, grounded on
// generator::SurfaceDem's prepare/generateMetatile split.
package gendem

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rotblauer/vtsproxy/geo"
	"github.com/rotblauer/vtsproxy/geodataset"
	"github.com/rotblauer/vtsproxy/metatile"
	"github.com/rotblauer/vtsproxy/registry"
	"github.com/rotblauer/vtsproxy/resource"
)

// GeneratorType is the resource.Resource.Generator value that selects
// this kind.
const GeneratorType = "dem"

// Generator serves one DEM resource's metatile content.
type Generator struct {
	mu sync.RWMutex

	res        resource.Resource
	def        definition
	descriptor geodataset.Descriptor
	mask       *metatile.MaskTree

	builder *metatile.Builder
	logger  *slog.Logger
}

// NewFactory binds GeneratorType to freshly constructed Generators,
// for registration against genfactory.Default.
func NewFactory(logger *slog.Logger) registry.Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return func(res resource.Resource) (registry.Generator, error) {
		return &Generator{
			res:     res,
			def:     parseDefinition(res.Definition),
			builder: metatile.NewBuilder(),
			logger:  logger,
		}, nil
	}
}

// Prepare loads the DEM dataset's descriptor sidecar and builds the
// optional bounding mask. A generator whose dataset descriptor cannot
// be loaded is removed from the registry by the prepare pool, per
// Generator.Prepare's documented contract.
func (g *Generator) Prepare(ctx context.Context, arsenal metatile.Arsenal) error {
	if g.def.dataset == "" {
		return fmt.Errorf("gendem: resource %s has no dataset path", g.res.ID)
	}
	desc, err := geodataset.LoadDescriptor(g.def.dataset + ".json")
	if err != nil {
		return fmt.Errorf("gendem: loading descriptor for %s: %w", g.res.ID, err)
	}

	var mask *metatile.MaskTree
	if g.def.maskExtents != nil {
		extents := *g.def.maskExtents
		mask = metatile.NewMaskTree(extents.Contains)
	}

	g.mu.Lock()
	g.descriptor = desc
	g.mask = mask
	g.mu.Unlock()

	g.logger.Info("dem generator prepared", "id", g.res.ID, "dataset", g.def.dataset)
	return nil
}

// Changed classifies a new Definition against the one this generator
// was last Prepare'd with.
func (g *Generator) Changed(next resource.Definition) resource.Changed {
	g.mu.RLock()
	cur := g.res.Definition
	g.mu.RUnlock()
	return resource.Diff(cur, next)
}

// GenerateMetatile builds one metatile block rooted at tile, warping
// this resource's dataset (and geoid, if configured) through arsenal.
func (g *Generator) GenerateMetatile(ctx context.Context, tile geo.Tile, sink metatile.Sink, arsenal metatile.Arsenal) (*metatile.MetaTile, error) {
	g.mu.RLock()
	res := g.res
	def := g.def
	mask := g.mask
	g.mu.RUnlock()

	node := res.ReferenceFrame.Root()
	idx := newTileIndex(res)

	return g.builder.Build(ctx, node, tile, geo.Size{Width: 1, Height: 1}, &res, idx, def.dataset, def.geoidDataset, mask, nil, sink, arsenal)
}

// FileClassConfig is the one file class GenerateFile serves directly:
// this resource's MapConfig, JSON-encoded. GenerateMetatile needs a
// context and an Arsenal, neither of which GenerateFile's signature
// carries, so metatile/mesh/navtile bytes are produced through the
// corresponding registry.*Generator extension interface instead, not
// through GenerateFile.
const FileClassConfig = "config"

// GenerateFile implements registry.Generator's generic surface.
func (g *Generator) GenerateFile(info registry.FileInfo, sink metatile.Sink) (registry.Task, error) {
	if info.Class != FileClassConfig {
		return registry.Task{}, fmt.Errorf("gendem: file class %q is served through GenerateMetatile, not GenerateFile", info.Class)
	}
	mc, err := g.MapConfig(registry.ResourceRoot{Resource: g.res})
	if err != nil {
		return registry.Task{}, err
	}
	data, err := json.Marshal(mc)
	if err != nil {
		return registry.Task{}, fmt.Errorf("gendem: encoding map config: %w", err)
	}
	done := make(chan struct{})
	close(done)
	return registry.Task{Done: done, Data: data}, nil
}

// MapConfig describes this DEM resource's served layer.
func (g *Generator) MapConfig(root registry.ResourceRoot) (registry.MapConfig, error) {
	g.mu.RLock()
	res := g.res
	desc := g.descriptor
	g.mu.RUnlock()

	return registry.MapConfig{
		Name:      res.ID.String(),
		Driver:    "surface-dem",
		LodRange:  [2]int{res.LodRange.Min, res.LodRange.Max},
		TileRange: res.TileRange,
		Extra: map[string]any{
			"dataset": g.def.dataset,
			"srs":     string(desc.SRS),
			"credits": res.Credits,
		},
	}, nil
}
