package geo

import "fmt"

// NodeID identifies a reference-frame node uniquely: its subtree and
// the (lod,x,y) tile coordinate within that subtree's local grid.
type NodeID struct {
	ReferenceFrame string
	Lod            int
	X, Y           int64
}

func (n NodeID) String() string {
	return fmt.Sprintf("%s/%d-%d,%d", n.ReferenceFrame, n.Lod, n.X, n.Y)
}

// Tile identifies a tile within a single subtree's local grid, the
// unit calipers and the metatile builder both address.
type Tile struct {
	Lod  int
	X, Y int64
}

// Children returns the 4 tiles one LOD below this one: each LOD step
// halves linear tile extent, so every tile has exactly 4 children.
func (t Tile) Children() [4]Tile {
	return [4]Tile{
		{Lod: t.Lod + 1, X: t.X * 2, Y: t.Y * 2},
		{Lod: t.Lod + 1, X: t.X*2 + 1, Y: t.Y * 2},
		{Lod: t.Lod + 1, X: t.X * 2, Y: t.Y*2 + 1},
		{Lod: t.Lod + 1, X: t.X*2 + 1, Y: t.Y*2 + 1},
	}
}

func (t Tile) Parent() Tile {
	return Tile{Lod: t.Lod - 1, X: t.X / 2, Y: t.Y / 2}
}

// TileRange is an inclusive, axis-aligned range of tile coordinates at
// a single LOD.
type TileRange struct {
	Lod            int
	MinX, MinY     int64
	MaxX, MaxY     int64
}

// Empty reports whether the range contains no tiles.
func (r TileRange) Empty() bool {
	return r.MaxX < r.MinX || r.MaxY < r.MinY
}

// Contains reports whether t lies within r (t.Lod must match r.Lod).
func (r TileRange) Contains(t Tile) bool {
	return t.Lod == r.Lod && t.X >= r.MinX && t.X <= r.MaxX && t.Y >= r.MinY && t.Y <= r.MaxY
}

// Union returns the smallest range (at the same LOD) containing both.
func (r TileRange) Union(o TileRange) TileRange {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	return TileRange{
		Lod:  r.Lod,
		MinX: min64(r.MinX, o.MinX), MinY: min64(r.MinY, o.MinY),
		MaxX: max64(r.MaxX, o.MaxX), MaxY: max64(r.MaxY, o.MaxY),
	}
}

func (r TileRange) String() string {
	return fmt.Sprintf("%d,%d-%d,%d", r.MinX, r.MinY, r.MaxX, r.MaxY)
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
