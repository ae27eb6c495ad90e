package geo

import "testing"

func TestExtentsExtend(t *testing.T) {
	e := NewExtents(Point2{0, 0})
	e = e.Extend(Point2{10, 5})
	e = e.Extend(Point2{-2, 8})
	if e.LL != (Point2{-2, 0}) {
		t.Fatalf("LL = %v, want {-2 0}", e.LL)
	}
	if e.UR != (Point2{10, 8}) {
		t.Fatalf("UR = %v, want {10 8}", e.UR)
	}
}

func TestExtentsContains(t *testing.T) {
	e := Extents{LL: Point2{0, 0}, UR: Point2{10, 10}}
	if !e.Contains(Point2{5, 5}) {
		t.Fatal("expected interior point to be contained")
	}
	if e.Contains(Point2{11, 5}) {
		t.Fatal("expected exterior point to be excluded")
	}
}

func TestQuadAreaUnitSquare(t *testing.T) {
	q := Quad{{0, 0}, {1, 0}, {1, 1}, {0, 1}}
	if got := q.Area(); got != 1 {
		t.Fatalf("Area() = %v, want 1", got)
	}
}

func TestQuadAreaPartialCoverage(t *testing.T) {
	full := [4]OptionalPoint2{Some(Point2{0, 0}), Some(Point2{1, 0}), Some(Point2{1, 1}), Some(Point2{0, 1})}
	area, tris := QuadArea(full)
	if tris != 2 || area != 1 {
		t.Fatalf("full quad: area=%v tris=%v, want 1,2", area, tris)
	}

	threeCorners := [4]OptionalPoint2{Some(Point2{0, 0}), Some(Point2{1, 0}), Some(Point2{1, 1}), None()}
	area, tris = QuadArea(threeCorners)
	if tris != 1 || area <= 0 {
		t.Fatalf("three corners: area=%v tris=%v, want >0,1", area, tris)
	}

	oneCorner := [4]OptionalPoint2{Some(Point2{0, 0}), None(), None(), None()}
	area, tris = QuadArea(oneCorner)
	if tris != 0 || area != 0 {
		t.Fatalf("one corner: area=%v tris=%v, want 0,0", area, tris)
	}
}

func TestTileChildren(t *testing.T) {
	parent := Tile{Lod: 3, X: 2, Y: 5}
	children := parent.Children()
	for _, c := range children {
		if c.Lod != parent.Lod+1 {
			t.Fatalf("child lod = %d, want %d", c.Lod, parent.Lod+1)
		}
		if c.Parent() != parent {
			t.Fatalf("child.Parent() = %v, want %v", c.Parent(), parent)
		}
	}
}

func TestTileRangeUnion(t *testing.T) {
	a := TileRange{Lod: 2, MinX: 0, MinY: 0, MaxX: 2, MaxY: 2}
	b := TileRange{Lod: 2, MinX: 1, MinY: -1, MaxX: 4, MaxY: 1}
	u := a.Union(b)
	want := TileRange{Lod: 2, MinX: 0, MinY: -1, MaxX: 4, MaxY: 2}
	if u != want {
		t.Fatalf("Union() = %v, want %v", u, want)
	}
}

func TestTangentPlaneProjectOrigin(t *testing.T) {
	tp := NewTangentPlane(WGS84, 0, 0)
	p := tp.Project(0, 0)
	if p.X != 0 || p.Y != 0 {
		t.Fatalf("Project(0,0) = %v, want origin", p)
	}
}
