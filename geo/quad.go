package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Quad is four corners of a small (typically one source-pixel-wide)
// quadrilateral, ordered around its perimeter.
type Quad [4]Point2

// Area is the sum of the two triangle areas formed by the quad's
// diagonal.
func (q Quad) Area() float64 {
	return triangleArea(q[0], q[1], q[2]) + triangleArea(q[0], q[2], q[3])
}

// triangleArea uses orb's planar.Area over a closed orb.Ring so the
// same primitive backs both calipers quad math and the metatile
// builder's per-vertex quadArea.
func triangleArea(a, b, c Point2) float64 {
	ring := orb.Ring{
		orb.Point{a.X, a.Y},
		orb.Point{b.X, b.Y},
		orb.Point{c.X, c.Y},
		orb.Point{a.X, a.Y},
	}
	return math.Abs(planar.Area(ring))
}

// QuadArea computes the area and triangle count of a 4-corner patch
// where not every corner need be valid: corners is the current vertex
// plus its three already-visited neighbors (left, up-left, up), each
// tagged present/absent. triangleCount is in {0,1,2}: 2 when all four
// corners are present (split into two triangles by the diagonal), 1
// when exactly three are present (a single triangle survives), 0
// otherwise.
func QuadArea(corners [4]OptionalPoint2) (area float64, triangleCount int) {
	present := 0
	var pts [4]Point2
	for i, c := range corners {
		if c.Present {
			present++
			pts[i] = c.Value
		}
	}
	switch present {
	case 4:
		q := Quad{pts[0], pts[1], pts[2], pts[3]}
		return q.Area(), 2
	case 3:
		// Find the single missing corner and use the other three.
		var tri []Point2
		for _, c := range corners {
			if c.Present {
				tri = append(tri, c.Value)
			}
		}
		return triangleArea(tri[0], tri[1], tri[2]), 1
	default:
		return 0, 0
	}
}

// OptionalPoint2 models "present or absent" as a tagged
// {present, value} | absent pair, avoiding a sentinel zero value that
// could be mistaken for a real coordinate.
type OptionalPoint2 struct {
	Present bool
	Value   Point2
}

func Some(p Point2) OptionalPoint2 { return OptionalPoint2{Present: true, Value: p} }
func None() OptionalPoint2         { return OptionalPoint2{} }
