// Package calipers computes, for each reference-frame subtree node, the
// level of detail and tile range at which a source dataset's pixels
// produce roughly one texel per tile pixel.
package calipers

import (
	"fmt"
	"runtime"

	"github.com/rotblauer/vtsproxy/geo"
	"github.com/rotblauer/vtsproxy/geodataset"
	"github.com/rotblauer/vtsproxy/refframe"
)

// Options tunes the per-node algorithm.
type Options struct {
	// InvGsdScale is >= 1; 1 for ophoto, e.g. 3 for DEM to account for
	// an orthophoto that may be draped at higher resolution.
	InvGsdScale float64
	// TileFractionLimit is >= 1, the inverse fraction of a tile at
	// which partial-coverage border refinement terminates.
	TileFractionLimit float64
	// TileSize is the bound layer's tile pixel edge length (both
	// dimensions are assumed square, as for XYZ/WMTS-style tiling).
	TileSize float64
	// DeterministicTieBreak switches the best-LOD pick (step 2) to a
	// lexicographic (distance, i, j) order instead of the documented
	// strict-less, iteration-order-sensitive default. Additive: the
	// default (false) preserves the original literal tie-break rule.
	DeterministicTieBreak bool
	// Converters resolves a point converter between two SRS. The core
	// algorithm is SRS-agnostic by design (raw GDAL warping is out of
	// this module's scope); a real deployment backs this with GDAL OSR or
	// the warper service's own SRS machinery, tests back it with
	// synthetic converters. A nil Converters is only valid when every
	// node shares D's SRS (Converters falls back to geo.Identity).
	Converters SRSConverterFactory
}

// SRSConverterFactory resolves a fallible Converter between two SRS,
// constructed once per (from, to) pair and reused across every grid
// point for that node.
type SRSConverterFactory func(from, to geo.SrsID) (geo.Converter, error)

func (o Options) converterFor(from, to geo.SrsID) (geo.Converter, error) {
	if from == to {
		return geo.Identity, nil
	}
	if o.Converters == nil {
		return nil, fmt.Errorf("no SRS converter configured for %s -> %s", from, to)
	}
	return o.Converters(from, to)
}

// DefaultOptions matches the calipers CLI's documented defaults.
func DefaultOptions() Options {
	return Options{
		InvGsdScale:       3.0,
		TileFractionLimit: 32.0,
		TileSize:          256,
	}
}

// LodRange is the inclusive LOD span at which a node produces content.
type LodRange struct {
	Min, Max int
}

// Ranges is the per-node output of the calipers engine: a LodRange plus the tile range at one LOD, tagged with
// which end of the range it is expressed at.
type Ranges struct {
	LodRange   LodRange
	TileRange  geo.TileRange
	FromBottom bool
}

// Run computes Ranges for every productive node of rf that D touches,
// plus D's informational global GSD. Missing/unproductive nodes are
// simply absent from the result map.
func Run(d geodataset.Descriptor, rf *refframe.ReferenceFrame, kind geodataset.Kind, opts Options) (map[geo.NodeID]Ranges, float64, error) {
	gsd, err := GroundSampleDistance(d, rf.NavigationSRS)
	if err != nil {
		return nil, 0, fmt.Errorf("computing ground sample distance: %w", err)
	}

	nodes, err := rf.NodesCovering(d)
	if err != nil {
		return nil, 0, fmt.Errorf("finding nodes covering dataset: %w", err)
	}

	results := computeParallel(d, nodes, kind, opts)

	out := make(map[geo.NodeID]Ranges, len(results))
	for _, r := range results {
		if r.ok {
			out[r.node.ID()] = r.ranges
		}
	}
	return out, gsd, nil
}

type nodeResult struct {
	node   refframe.NodeInfo
	ranges Ranges
	ok     bool
}

// computeParallel runs perNode across nodes on a fixed worker pool
// draining a work channel, mirroring daemon/tiled.go's
// awaitPendingTileRequests channel-of-work fan-out rather than a
// bare sync.WaitGroup — nodes are independent so this is purely a
// scheduling choice.
func computeParallel(d geodataset.Descriptor, nodes []refframe.NodeInfo, kind geodataset.Kind, opts Options) []nodeResult {
	workers := runtime.GOMAXPROCS(0)
	if workers > len(nodes) {
		workers = len(nodes)
	}
	if workers < 1 {
		workers = 1
	}

	work := make(chan refframe.NodeInfo, len(nodes))
	for _, n := range nodes {
		work <- n
	}
	close(work)

	results := make(chan nodeResult, len(nodes))
	done := make(chan struct{})
	for i := 0; i < workers; i++ {
		go func() {
			for n := range work {
				ranges, ok := perNode(d, n, kind, opts)
				results <- nodeResult{node: n, ranges: ranges, ok: ok}
			}
			done <- struct{}{}
		}()
	}

	go func() {
		for i := 0; i < workers; i++ {
			<-done
		}
		close(results)
	}()

	out := make([]nodeResult, 0, len(nodes))
	for r := range results {
		out = append(out, r)
	}
	return out
}
