package metatile

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/mitchellh/hashstructure/v2"

	"github.com/rotblauer/vtsproxy/geo"
	"github.com/rotblauer/vtsproxy/refframe"
	"github.com/rotblauer/vtsproxy/resource"
	"github.com/rotblauer/vtsproxy/warper"
)

// K is the number of metatile samples per tile edge: a fixed
// compile-time constant. Changing it invalidates every
// already-published metatile, so it is never made configurable.
const K = 8

// nodataSentinel is the minimum value a DEM sample must reach to be
// considered present.
const nodataSentinel = -1e6

// Builder turns a warped DEM supergrid into a MetaTile, per the
// per-node aggregation algorithm below.
type Builder struct {
	// ReferenceConverter projects a node-SRS point into the "reference"
	// spatial dataset SRS used for geomExtents' cross-SRS extents. Nil
	// means identity (no reprojection available).
	ReferenceConverter geo.Converter
}

func NewBuilder() *Builder {
	return &Builder{ReferenceConverter: geo.Identity}
}

// Build produces a MetaTile for one block of bSize.Width x bSize.Height
// adjacent tiles at blockRoot.Lod, all within node's subtree — the
// split across subtrees itself is the caller's responsibility: it
// calls Build once per subtree-homogeneous block.
func (b *Builder) Build(
	ctx context.Context,
	node refframe.NodeInfo,
	blockRoot geo.Tile,
	bSize geo.Size, // in whole tiles
	res *resource.Resource,
	idx TileIndexSnapshot,
	demDataset string,
	geoidDataset string,
	mask *MaskTree,
	displaySize *geo.Size,
	sink Sink,
	arsenal Arsenal,
) (*MetaTile, error) {
	bw, bh := int(bSize.Width), int(bSize.Height)
	if bw <= 0 || bh <= 0 {
		return nil, fmt.Errorf("metatile: invalid block size %v", bSize)
	}
	if sink.Aborted() {
		return nil, nil
	}

	if !node.Productive() || !idx.ValidSubtree(blockRoot) {
		return b.unproductiveBlock(node, blockRoot, bw, bh, idx), nil
	}

	grid, warpExtents, _, err := b.sample(ctx, node, blockRoot, bw, bh, demDataset, mask, sink, arsenal)
	if err != nil {
		return nil, err
	}
	if sink.Aborted() {
		return nil, nil
	}

	if geoidDataset != "" {
		if err := b.applyGeoid(ctx, node, warpExtents, bw, bh, geoidDataset, grid, sink, arsenal); err != nil {
			return nil, err
		}
		if sink.Aborted() {
			return nil, nil
		}
	}

	substituteNodata(grid, bw*K+1, bh*K+1)

	mt := &MetaTile{Root: blockRoot, Nodes: map[geo.Tile]*MetaNode{}}
	tileSpatial := tileSpatialFunc(node, blockRoot)

	for tj := 0; tj < bh; tj++ {
		for ti := 0; ti < bw; ti++ {
			tile := geo.Tile{Lod: blockRoot.Lod, X: blockRoot.X + int64(ti), Y: blockRoot.Y + int64(tj)}
			mn := b.aggregateTile(node, tile, ti, tj, bw*K+1, grid, idx, tileSpatial(ti, tj), displaySize)
			mt.Nodes[tile] = mn
			if mn.Valid() {
				mt.Credits = res.Credits
			}
		}
	}

	logDeterminismDigest(mt)
	return mt, nil
}

// unproductiveBlock produces metanodes with only tileindex-derived
// flags and child-validity for an unproductive block — no geometry.
func (b *Builder) unproductiveBlock(node refframe.NodeInfo, blockRoot geo.Tile, bw, bh int, idx TileIndexSnapshot) *MetaTile {
	mt := &MetaTile{Root: blockRoot, Nodes: map[geo.Tile]*MetaNode{}}
	for tj := 0; tj < bh; tj++ {
		for ti := 0; ti < bw; ti++ {
			tile := geo.Tile{Lod: blockRoot.Lod, X: blockRoot.X + int64(ti), Y: blockRoot.Y + int64(tj)}
			mn := &MetaNode{Tile: tile}
			ti2metaFlags(mn, tile, idx)
			mn.ChildrenValid = childrenValid(node, tile, idx)
			mt.Nodes[tile] = mn
		}
	}
	return mt
}

// sample warps the DEM into the block's SRS at (bw*K+1, bh*K+1)
// resolution, extents inflated by half a sample cell.
func (b *Builder) sample(
	ctx context.Context,
	node refframe.NodeInfo,
	blockRoot geo.Tile,
	bw, bh int,
	demDataset string,
	mask *MaskTree,
	sink Sink,
	arsenal Arsenal,
) (grid []gridSample, warpExtents geo.Extents, cellSize geo.Size, err error) {
	blockExtents := blockSpatialExtents(node, blockRoot, bw, bh)
	cellSize = geo.Size{
		Width:  blockExtents.Size().Width / float64(bw*K),
		Height: blockExtents.Size().Height / float64(bh*K),
	}
	warpExtents = geo.Extents{
		LL: geo.Point2{X: blockExtents.LL.X - cellSize.Width/2, Y: blockExtents.LL.Y - cellSize.Height/2},
		UR: geo.Point2{X: blockExtents.UR.X + cellSize.Width/2, Y: blockExtents.UR.Y + cellSize.Height/2},
	}
	gridW, gridH := bw*K+1, bh*K+1

	resp, err := arsenal.Warper().Warp(ctx, warper.Request{
		Operation:  warper.OpValueMinMax,
		Dataset:    demDataset,
		SRS:        node.SRS(),
		Extents:    warpExtents,
		Size:       geo.Size{Width: float64(gridW), Height: float64(gridH)},
		Resampling: "average",
	})
	if err != nil {
		sink.Error(err)
		return nil, geo.Extents{}, geo.Size{}, err
	}
	if sink.Aborted() {
		return nil, geo.Extents{}, geo.Size{}, nil
	}

	grid = make([]gridSample, gridW*gridH)
	for j := 0; j < gridH; j++ {
		for i := 0; i < gridW; i++ {
			idx := j*gridW + i
			pos := geo.Point2{
				X: warpExtents.LL.X + cellSize.Width*(float64(i)+0.5),
				Y: warpExtents.UR.Y - cellSize.Height*(float64(j)+0.5),
			}
			bands, ok := resp.At(idx)
			gs := gridSample{pos: pos}
			if ok && len(bands) >= 3 && bands[0] >= nodataSentinel && mask.allows(pos) {
				gs.valid = true
				gs.value, gs.lo, gs.hi = bands[0], bands[1], bands[2]
			}
			grid[idx] = gs
		}
	}
	return grid, warpExtents, cellSize, nil
}

// applyGeoid adds a geoid offset sampled on the same supergrid to each
// valid sample's scalar channels, converting DEM elevation into
// navigation-space height.
func (b *Builder) applyGeoid(ctx context.Context, node refframe.NodeInfo, warpExtents geo.Extents, bw, bh int, geoidDataset string, grid []gridSample, sink Sink, arsenal Arsenal) error {
	gridW, gridH := bw*K+1, bh*K+1
	resp, err := arsenal.Warper().Warp(ctx, warper.Request{
		Operation:  warper.OpValueMinMax,
		Dataset:    geoidDataset,
		SRS:        node.SRS(),
		Extents:    warpExtents,
		Size:       geo.Size{Width: float64(gridW), Height: float64(gridH)},
		Resampling: "average",
	})
	if err != nil {
		sink.Error(err)
		return err
	}
	if sink.Aborted() {
		return nil
	}
	for i := range grid {
		if !grid[i].valid {
			continue
		}
		bands, ok := resp.At(i)
		if !ok || len(bands) == 0 {
			continue
		}
		grid[i].value += bands[0]
		grid[i].lo += bands[0]
		grid[i].hi += bands[0]
	}
	return nil
}

// substituteNodata runs a 3x3-neighborhood substitution: invalid
// samples are replaced in place by the mean of their valid neighbors,
// or dropped if none are valid.
func substituteNodata(grid []gridSample, gridW, gridH int) {
	orig := make([]gridSample, len(grid))
	copy(orig, grid)

	for j := 0; j < gridH; j++ {
		for i := 0; i < gridW; i++ {
			idx := j*gridW + i
			if orig[idx].valid {
				continue
			}
			var sumValue, minLo, maxHi float64
			var count int
			haveLo, haveHi := false, false
			for dj := -1; dj <= 1; dj++ {
				for di := -1; di <= 1; di++ {
					if di == 0 && dj == 0 {
						continue
					}
					ni, nj := i+di, j+dj
					if ni < 0 || ni >= gridW || nj < 0 || nj >= gridH {
						continue
					}
					ns := orig[nj*gridW+ni]
					if !ns.valid {
						continue
					}
					sumValue += ns.value
					count++
					if !haveLo || ns.lo < minLo {
						minLo, haveLo = ns.lo, true
					}
					if !haveHi || ns.hi > maxHi {
						maxHi, haveHi = ns.hi, true
					}
				}
			}
			if count == 0 {
				grid[idx].valid = false
				continue
			}
			grid[idx] = gridSample{
				valid: true,
				pos:   orig[idx].pos,
				value: sumValue / float64(count),
				lo:    minLo,
				hi:    maxHi,
			}
		}
	}
}

// blockSpatialExtents returns the 2D extents, in node's SRS, covered
// by a bw x bh block of tiles rooted at blockRoot.
func blockSpatialExtents(node refframe.NodeInfo, blockRoot geo.Tile, bw, bh int) geo.Extents {
	pane := node.Extents().Size()
	scale := math.Pow(2, float64(blockRoot.Lod))
	ts := geo.Size{Width: pane.Width / scale, Height: pane.Height / scale}
	origin := node.Extents().UpperLeft()

	x0 := origin.X + ts.Width*float64(blockRoot.X)
	x1 := x0 + ts.Width*float64(bw)
	yTop := origin.Y - ts.Height*float64(blockRoot.Y)
	yBot := yTop - ts.Height*float64(bh)
	return geo.Extents{LL: geo.Point2{X: x0, Y: yBot}, UR: geo.Point2{X: x1, Y: yTop}}
}

// tileSpatialFunc returns a function giving a single tile's own
// nominal 2D extents within the block, used as the normalization
// bounds for its 3D extents.
func tileSpatialFunc(node refframe.NodeInfo, blockRoot geo.Tile) func(ti, tj int) geo.Extents {
	pane := node.Extents().Size()
	scale := math.Pow(2, float64(blockRoot.Lod))
	ts := geo.Size{Width: pane.Width / scale, Height: pane.Height / scale}
	origin := node.Extents().UpperLeft()
	x0 := origin.X + ts.Width*float64(blockRoot.X)
	yTop := origin.Y - ts.Height*float64(blockRoot.Y)

	return func(ti, tj int) geo.Extents {
		return geo.Extents{
			LL: geo.Point2{X: x0 + ts.Width*float64(ti), Y: yTop - ts.Height*float64(tj+1)},
			UR: geo.Point2{X: x0 + ts.Width*float64(ti+1), Y: yTop - ts.Height*float64(tj)},
		}
	}
}

// aggregateTile computes the per-node aggregation and derived flags
// for a single tile.
func (b *Builder) aggregateTile(
	node refframe.NodeInfo,
	tile geo.Tile,
	ti, tj, gridW int,
	grid []gridSample,
	idx TileIndexSnapshot,
	tileExtents geo.Extents,
	displaySize *geo.Size,
) *MetaNode {
	mn := &MetaNode{Tile: tile}
	ti2metaFlags(mn, tile, idx)
	mn.ChildrenValid = childrenValid(node, tile, idx)

	var extents3 geo.Extents3
	var geomExtents geo.Extents
	haveGeomExtents := false
	var surrogateSum float64
	var surrogateCount int
	haveHeightRange := false
	var hmin, hmax float64
	var totalArea float64
	var totalTriangles int

	refConv := b.ReferenceConverter
	if refConv == nil {
		refConv = geo.Identity
	}

	at := func(ii, jj int) gridSample { return grid[(tj*K+jj)*gridW+(ti*K+ii)] }

	for jj := 0; jj <= K; jj++ {
		for ii := 0; ii <= K; ii++ {
			gs := at(ii, jj)
			if !gs.valid {
				continue
			}
			extents3 = extents3.Extend(geo.Point3{X: gs.pos.X, Y: gs.pos.Y, Z: gs.lo})
			extents3 = extents3.Extend(geo.Point3{X: gs.pos.X, Y: gs.pos.Y, Z: gs.hi})

			if p, ok := refConv.Convert(gs.pos); ok {
				if !haveGeomExtents {
					geomExtents = geo.NewExtents(p)
					haveGeomExtents = true
				} else {
					geomExtents = geomExtents.Extend(p)
				}
			}

			surrogateSum += gs.value
			surrogateCount++

			if !haveHeightRange || gs.lo < hmin {
				hmin = gs.lo
			}
			if !haveHeightRange || gs.hi > hmax {
				hmax = gs.hi
			}
			haveHeightRange = true

			if ii > 0 && jj > 0 {
				corners := [4]geo.OptionalPoint2{
					optionalPos(at(ii, jj)),
					optionalPos(at(ii-1, jj)),
					optionalPos(at(ii-1, jj-1)),
					optionalPos(at(ii, jj-1)),
				}
				area, tris := geo.QuadArea(corners)
				totalArea += area
				totalTriangles += tris
			}
		}
	}

	mn.TriangleCount = totalTriangles
	mn.QuadArea = totalArea

	if totalTriangles == 0 {
		// Empty-content collapse.
		mn.GeometryPresent = false
		mn.NavtilePresent = false
		mn.HeightRange = [2]float64{}
		mn.GeomExtents = geo.Extents{}
		mn.Extents3 = geo.Extents3{}
		return mn
	}

	mn.HeightRange = [2]float64{math.Floor(hmin), math.Ceil(hmax)}
	mn.GeomExtents = geomExtents
	mn.Extents3 = extents3.NormalizeTo(extents3ForTile(tileExtents, mn.HeightRange))

	tileSize := tileExtents.Size()
	tileArea := tileSize.Width * tileSize.Height
	textureArea := (float64(totalTriangles) * tileArea) / (2 * K * K)
	switch {
	case displaySize != nil && displaySize.Width > 0 && displaySize.Height > 0:
		mn.TexelSize = math.Sqrt(totalArea / (displaySize.Width * displaySize.Height))
	case textureArea > 0:
		mn.TexelSize = math.Sqrt(totalArea / textureArea)
	}

	if surrogateCount > 0 {
		mn.Surrogate = surrogateSum / float64(surrogateCount)
	}

	return mn
}

func optionalPos(gs gridSample) geo.OptionalPoint2 {
	if !gs.valid {
		return geo.None()
	}
	return geo.Some(gs.pos)
}

// extents3ForTile builds the normalization bounds for a tile's 3D
// extents: its own nominal 2D footprint, and its computed (already
// floor/ceil-rounded) height range for Z (see DESIGN.md's Open
// Question decision on normalization reference bounds) -- a fixed
// per-tile cube is the natural choice for a quantized mesh format.
func extents3ForTile(tileExtents geo.Extents, heightRange [2]float64) geo.Extents3 {
	return geo.Extents3{}.
		Extend(geo.Point3{X: tileExtents.LL.X, Y: tileExtents.LL.Y, Z: heightRange[0]}).
		Extend(geo.Point3{X: tileExtents.UR.X, Y: tileExtents.UR.Y, Z: heightRange[1]})
}

// ti2metaFlags initializes flags from the tile index. AllChildren is
// always set going in; childrenValid narrows it per-child afterward,
// so the two fields can disagree and both are kept.
func ti2metaFlags(mn *MetaNode, tile geo.Tile, idx TileIndexSnapshot) {
	mn.GeometryPresent = idx.MeshPresent(tile)
	mn.NavtilePresent = idx.NavtilePresent(tile)
	mn.AllChildren = true
}

// childrenValid applies the child-validity rule: valid iff the tile
// index considers the child subtree valid and the reference frame can
// actually produce content there (the same
// LowestChild/CompatibleWith test calipers uses at step 3).
func childrenValid(node refframe.NodeInfo, tile geo.Tile, idx TileIndexSnapshot) [4]bool {
	var out [4]bool
	for k, child := range tile.Children() {
		if !idx.ValidSubtree(child) {
			continue
		}
		localLod := child.Lod
		lowest := node.LowestChild(localLod)
		out[k] = lowest.CompatibleWith(node, localLod)
	}
	return out
}

// logDeterminismDigest hashes the produced MetaTile and logs the hash
// at debug level, so repeated builds of the same inputs can be checked
// for determinism by comparing log lines.
func logDeterminismDigest(mt *MetaTile) uint64 {
	h, err := hashstructure.Hash(mt, hashstructure.FormatV2, nil)
	if err != nil {
		return 0
	}
	slog.Debug("metatile built", "root", mt.Root, "digest", h)
	return h
}
