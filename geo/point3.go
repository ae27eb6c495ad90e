package geo

// Point3 is a 3D point: a horizontal position plus an elevation,
// carried by the metatile builder's DEM samples.
type Point3 struct {
	X, Y, Z float64
}

// Extents3 is an axis-aligned 3D bounding box.
type Extents3 struct {
	LL, UR Point3
	valid  bool
}

func (e Extents3) Valid() bool { return e.valid }

// Extend returns the extents additionally covering p.
func (e Extents3) Extend(p Point3) Extents3 {
	if !e.valid {
		return Extents3{LL: p, UR: p, valid: true}
	}
	return Extents3{
		LL:    Point3{X: minF(e.LL.X, p.X), Y: minF(e.LL.Y, p.Y), Z: minF(e.LL.Z, p.Z)},
		UR:    Point3{X: maxF(e.UR.X, p.X), Y: maxF(e.UR.Y, p.Y), Z: maxF(e.UR.Z, p.Z)},
		valid: true,
	}
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// NormalizeTo normalizes e into [-1,+1] along each axis relative to
// bounds, the reference frame's node-space convention.
func (e Extents3) NormalizeTo(bounds Extents3) Extents3 {
	if !e.valid || !bounds.valid {
		return Extents3{}
	}
	norm := func(v, lo, hi float64) float64 {
		if hi <= lo {
			return 0
		}
		return 2*(v-lo)/(hi-lo) - 1
	}
	return Extents3{
		valid: true,
		LL: Point3{
			X: norm(e.LL.X, bounds.LL.X, bounds.UR.X),
			Y: norm(e.LL.Y, bounds.LL.Y, bounds.UR.Y),
			Z: norm(e.LL.Z, bounds.LL.Z, bounds.UR.Z),
		},
		UR: Point3{
			X: norm(e.UR.X, bounds.LL.X, bounds.UR.X),
			Y: norm(e.UR.Y, bounds.LL.Y, bounds.UR.Y),
			Z: norm(e.UR.Z, bounds.LL.Z, bounds.UR.Z),
		},
	}
}
