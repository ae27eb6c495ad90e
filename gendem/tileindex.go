package gendem

import (
	"github.com/rotblauer/vtsproxy/geo"
	"github.com/rotblauer/vtsproxy/resource"
)

// tileIndex answers metatile.TileIndexSnapshot for one resource's
// productive range, scaling its single-LOD geo.TileRange up or down
// to any LOD within the resource's LodRange by the usual quadtree
// doubling/halving. The dem generator persists no tile index of its
// own, so MeshPresent/NavtilePresent are always false -- nothing has
// been built yet when a freshly prepared generator is asked to build
// a metatile.
type tileIndex struct {
	res resource.Resource
}

func newTileIndex(res resource.Resource) tileIndex { return tileIndex{res: res} }

func (ti tileIndex) MeshPresent(geo.Tile) bool    { return false }
func (ti tileIndex) NavtilePresent(geo.Tile) bool { return false }

func (ti tileIndex) ValidSubtree(t geo.Tile) bool {
	if t.Lod < ti.res.LodRange.Min || t.Lod > ti.res.LodRange.Max {
		return false
	}
	base := ti.res.TileRange
	switch {
	case t.Lod == base.Lod:
		return base.Contains(t)
	case t.Lod > base.Lod:
		shift := uint(t.Lod - base.Lod)
		return t.X>>shift >= base.MinX && t.X>>shift <= base.MaxX &&
			t.Y>>shift >= base.MinY && t.Y>>shift <= base.MaxY
	default:
		shift := uint(base.Lod - t.Lod)
		return t.X >= base.MinX>>shift && t.X <= base.MaxX>>shift &&
			t.Y >= base.MinY>>shift && t.Y <= base.MaxY>>shift
	}
}
