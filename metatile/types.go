// Package metatile builds a MetaTile — the per-node aggregate geometry
// and flags that back a single generator's tile range — from a DEM
// dataset warped through the node's subtree SRS.
package metatile

import (
	"github.com/rotblauer/vtsproxy/geo"
	"github.com/rotblauer/vtsproxy/warper"
)

// TileIndexSnapshot answers the builder's questions about which tiles
// already carry content, without exposing the registry's own locking
// or storage. Both a real backend-fed snapshot and an in-memory fake
// (for tests) implement it.
type TileIndexSnapshot interface {
	// MeshPresent reports whether t's surface mesh already exists.
	MeshPresent(t geo.Tile) bool
	// NavtilePresent reports whether t's navigation tile already exists.
	NavtilePresent(t geo.Tile) bool
	// ValidSubtree reports whether t is inside a subtree the reference
	// frame still considers productive.
	ValidSubtree(t geo.Tile) bool
}

// MaskTree is an optional per-pixel validity mask over the DEM's
// source extents: pixels outside the mask are
// treated exactly like missing/nodata DEM pixels. A nil *MaskTree
// means "no mask", i.e. every pixel passes.
type MaskTree struct {
	contains func(geo.Point2) bool
}

// NewMaskTree wraps a containment predicate, typically backed by a
// rasterized footprint polygon loaded alongside the DEM dataset.
func NewMaskTree(contains func(geo.Point2) bool) *MaskTree {
	return &MaskTree{contains: contains}
}

func (m *MaskTree) allows(p geo.Point2) bool {
	if m == nil || m.contains == nil {
		return true
	}
	return m.contains(p)
}

// Sink receives abort/error signals from a Build in progress. Builder
// checks Aborted() at the start of each Build and after every warp so a
// caller can cancel a long block without waiting for it to run to
// completion.
type Sink interface {
	Aborted() bool
	Error(err error)
}

// Arsenal is the builder's access to the out-of-process warping
// service; production code backs it with warper.RPCClient, tests with
// a synthetic warper.Client.
type Arsenal interface {
	Warper() warper.Client
}

// gridSample is one vertex of a block's (bSize*K+1)x(bSize*K+1)
// supergrid: its position in the node's SRS, and the DEM value/min/max
// triple sampled there. A sample with !valid stands in for nodata
// after the 3x3-neighborhood substitution pass.
type gridSample struct {
	valid      bool
	pos        geo.Point2
	value, lo, hi float64
}

// MetaNode is one tile's worth of aggregated metatile content.
type MetaNode struct {
	Tile geo.Tile

	GeometryPresent bool
	NavtilePresent  bool

	// AllChildren is the initial, unconditional "this node has four
	// children" flag set by ti2metaFlags before ChildrenValid narrows
	// it per-child against the tile index and reference frame; kept
	// distinct from ChildrenValid so a serialized MetaNode preserves
	// both the raw tileindex shape and the recomputed validity.
	AllChildren   bool
	ChildrenValid [4]bool

	// Extents3 is the tile's sampled 3D geometry extents, normalized
	// into [-1,+1] against the tile's own nominal spatial footprint
	// (an Open Question decision recorded in DESIGN.md).
	Extents3 geo.Extents3

	// HeightRange is [floor(min), ceil(max)] of navigation-space
	// height across the tile's valid samples.
	HeightRange [2]float64

	// GeomExtents is the tile's 2D footprint reprojected into a
	// reference spatial-data-set SRS distinct from the node's own,
	// for cross-SRS catalogue queries.
	GeomExtents geo.Extents

	// Surrogate is the mean surrogate height across valid samples,
	// the node's sum/count aggregate collapsed to its mean.
	Surrogate float64

	// TriangleCount and QuadArea are the per-vertex aggregates the
	// mesh quantizer and texelSize derivation need.
	TriangleCount int
	QuadArea      float64

	// TexelSize is the average ground distance one mesh texel
	// represents, derived from QuadArea and the sampling grid's pixel
	// count.
	TexelSize float64
}

// Valid reports whether this node carries any sampled geometry at
// all; a MetaNode with TriangleCount == 0 collapses to flags-only
//.
func (m *MetaNode) Valid() bool { return m != nil && m.TriangleCount > 0 }

// MetaTile is the complete output of one Builder.Build call: one
// MetaNode per tile in the requested block.
type MetaTile struct {
	Root    geo.Tile
	Nodes   map[geo.Tile]*MetaNode
	Credits []string
}
