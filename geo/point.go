// Package geo provides the immutable value types shared by every other
// package in vtsproxy: 2D points and extents, reference-frame node
// identity, SRS identifiers, a fallible coordinate converter, and tile
// identity. Nothing here owns I/O or mutable state.
package geo

import "math"

// Point2 is a 2D point in some SRS, unspecified by the type itself.
type Point2 struct {
	X, Y float64
}

func (p Point2) Add(o Point2) Point2 { return Point2{p.X + o.X, p.Y + o.Y} }
func (p Point2) Sub(o Point2) Point2 { return Point2{p.X - o.X, p.Y - o.Y} }

func (p Point2) Distance(o Point2) float64 {
	dx, dy := p.X-o.X, p.Y-o.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Size is a width/height pair, unitless (pixels, SRS units, tiles...).
type Size struct {
	Width, Height float64
}

// Extents is an axis-aligned bounding box with LL (lower-left) and UR
// (upper-right) corners, in some SRS.
type Extents struct {
	LL, UR Point2
}

// NewExtents returns the extents bounding the given points. Panics on
// an empty slice; callers are expected to seed with at least one point.
func NewExtents(pts ...Point2) Extents {
	e := Extents{LL: pts[0], UR: pts[0]}
	for _, p := range pts[1:] {
		e = e.Extend(p)
	}
	return e
}

// Extend returns the extents that additionally cover p.
func (e Extents) Extend(p Point2) Extents {
	return Extents{
		LL: Point2{X: math.Min(e.LL.X, p.X), Y: math.Min(e.LL.Y, p.Y)},
		UR: Point2{X: math.Max(e.UR.X, p.X), Y: math.Max(e.UR.Y, p.Y)},
	}
}

// Union returns the smallest extents containing both e and o.
func (e Extents) Union(o Extents) Extents {
	return e.Extend(o.LL).Extend(o.UR)
}

func (e Extents) Size() Size {
	return Size{Width: e.UR.X - e.LL.X, Height: e.UR.Y - e.LL.Y}
}

func (e Extents) Center() Point2 {
	return Point2{X: (e.LL.X + e.UR.X) / 2, Y: (e.LL.Y + e.UR.Y) / 2}
}

// Contains reports whether p lies within e, inclusive of the boundary.
func (e Extents) Contains(p Point2) bool {
	return p.X >= e.LL.X && p.X <= e.UR.X && p.Y >= e.LL.Y && p.Y <= e.UR.Y
}

// Empty reports whether e has zero or negative area in either dimension.
func (e Extents) Empty() bool {
	return e.UR.X <= e.LL.X || e.UR.Y <= e.LL.Y
}

// UpperLeft returns the (minX, maxY) corner, the conventional raster origin.
func (e Extents) UpperLeft() Point2 {
	return Point2{X: e.LL.X, Y: e.UR.Y}
}
