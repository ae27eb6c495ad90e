package metatile

import (
	"context"
	"testing"

	"github.com/rotblauer/vtsproxy/geo"
	"github.com/rotblauer/vtsproxy/refframe"
	"github.com/rotblauer/vtsproxy/resource"
	"github.com/rotblauer/vtsproxy/warper"
)

type constantWarper struct {
	value, lo, hi float64
	nodata        bool
}

func (w constantWarper) Warp(_ context.Context, req warper.Request) (*warper.Response, error) {
	n := int(req.Size.Width) * int(req.Size.Height)
	data := make([]float64, 0, n*3)
	for i := 0; i < n; i++ {
		if w.nodata {
			data = append(data, nodataSentinel-1, nodataSentinel-1, nodataSentinel-1)
		} else {
			data = append(data, w.value, w.lo, w.hi)
		}
	}
	return &warper.Response{Bands: 3, Data: data}, nil
}

type fakeArsenal struct{ client warper.Client }

func (a fakeArsenal) Warper() warper.Client { return a.client }

type fakeSink struct {
	errs []error
}

func (s *fakeSink) Aborted() bool   { return false }
func (s *fakeSink) Error(err error) { s.errs = append(s.errs, err) }

type fakeTileIndex struct{}

func (fakeTileIndex) MeshPresent(geo.Tile) bool    { return true }
func (fakeTileIndex) NavtilePresent(geo.Tile) bool { return true }
func (fakeTileIndex) ValidSubtree(geo.Tile) bool   { return true }

func testNode(t *testing.T) refframe.NodeInfo {
	t.Helper()
	root := &refframe.Node{
		ID:         geo.NodeID{ReferenceFrame: "test", Lod: 0, X: 0, Y: 0},
		SRS:        "test-srs",
		Extents:    geo.Extents{LL: geo.Point2{X: 0, Y: 0}, UR: geo.Point2{X: 1000, Y: 1000}},
		Productive: true,
		Children: []*refframe.Node{
			{
				ID:         geo.NodeID{ReferenceFrame: "test", Lod: 2, X: 0, Y: 0},
				SRS:        "test-srs",
				Extents:    geo.Extents{LL: geo.Point2{X: 0, Y: 0}, UR: geo.Point2{X: 500, Y: 500}},
				Productive: true,
			},
		},
	}
	rf := refframe.NewReferenceFrame("test", "test-nav", root)
	return rf.Root()
}

func testResource() *resource.Resource {
	return &resource.Resource{
		ID:       resource.ID{ReferenceFrame: "test", Group: "dem", ID: "surface"},
		Credits:  []string{"acme-surveys"},
	}
}

func TestBuildWatertightBlock(t *testing.T) {
	node := testNode(t)
	b := NewBuilder()
	mt, err := b.Build(context.Background(), node, geo.Tile{Lod: 0, X: 0, Y: 0}, geo.Size{Width: 2, Height: 2},
		testResource(), fakeTileIndex{}, "dem.tif", "", nil, nil,
		&fakeSink{}, fakeArsenal{client: constantWarper{value: 100, lo: 95, hi: 105}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(mt.Nodes) != 4 {
		t.Fatalf("expected 4 metanodes, got %d", len(mt.Nodes))
	}
	for tile, mn := range mt.Nodes {
		if mn.TriangleCount != 2*K*K {
			t.Errorf("tile %v: triangleCount = %d, want %d", tile, mn.TriangleCount, 2*K*K)
		}
		if !mn.Valid() {
			t.Errorf("tile %v: expected valid geometry", tile)
		}
		if mn.HeightRange[0] > 95 || mn.HeightRange[1] < 105 {
			t.Errorf("tile %v: heightRange = %v, want to cover [95,105]", tile, mn.HeightRange)
		}
		if mn.Surrogate != 100 {
			t.Errorf("tile %v: surrogate = %v, want 100", tile, mn.Surrogate)
		}
	}
	if len(mt.Credits) == 0 {
		t.Error("expected credits to be attached to a productive metatile")
	}
}

func TestBuildMostlyNodataCollapses(t *testing.T) {
	node := testNode(t)
	b := NewBuilder()
	mt, err := b.Build(context.Background(), node, geo.Tile{Lod: 0, X: 0, Y: 0}, geo.Size{Width: 1, Height: 1},
		testResource(), fakeTileIndex{}, "dem.tif", "", nil, nil,
		&fakeSink{}, fakeArsenal{client: constantWarper{nodata: true}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for tile, mn := range mt.Nodes {
		if mn.Valid() {
			t.Errorf("tile %v: expected collapsed (no geometry), got triangleCount=%d", tile, mn.TriangleCount)
		}
		if mn.GeometryPresent || mn.NavtilePresent {
			t.Errorf("tile %v: expected geometry/navtile flags cleared on collapse", tile)
		}
		if mn.HeightRange != [2]float64{} {
			t.Errorf("tile %v: expected empty heightRange on collapse, got %v", tile, mn.HeightRange)
		}
	}
}

func TestBuildUnproductiveNodeFlagsOnly(t *testing.T) {
	root := &refframe.Node{
		ID:         geo.NodeID{ReferenceFrame: "test", Lod: 0, X: 0, Y: 0},
		SRS:        "test-srs",
		Extents:    geo.Extents{LL: geo.Point2{X: 0, Y: 0}, UR: geo.Point2{X: 1000, Y: 1000}},
		Productive: false,
	}
	rf := refframe.NewReferenceFrame("test", "test-nav", root)
	node := rf.Root()

	b := NewBuilder()
	mt, err := b.Build(context.Background(), node, geo.Tile{Lod: 0, X: 0, Y: 0}, geo.Size{Width: 1, Height: 1},
		testResource(), fakeTileIndex{}, "dem.tif", "", nil, nil,
		&fakeSink{}, fakeArsenal{client: constantWarper{value: 1, lo: 1, hi: 1}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for tile, mn := range mt.Nodes {
		if mn.TriangleCount != 0 || mn.QuadArea != 0 {
			t.Errorf("tile %v: unproductive block should carry no geometry, got %+v", tile, mn)
		}
		if !mn.GeometryPresent {
			t.Errorf("tile %v: expected tileindex-derived geometryPresent flag to survive", tile)
		}
	}
}

func TestTexelSizeFormula(t *testing.T) {
	node := testNode(t)
	b := NewBuilder()
	mt, err := b.Build(context.Background(), node, geo.Tile{Lod: 0, X: 0, Y: 0}, geo.Size{Width: 1, Height: 1},
		testResource(), fakeTileIndex{}, "dem.tif", "", nil, nil,
		&fakeSink{}, fakeArsenal{client: constantWarper{value: 10, lo: 10, hi: 10}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for tile, mn := range mt.Nodes {
		tileArea := 1000.0 * 1000.0
		textureArea := (float64(mn.TriangleCount) * tileArea) / (2 * K * K)
		got := mn.TexelSize * mn.TexelSize * textureArea
		want := mn.QuadArea
		if diff := got - want; diff > 1e-6 || diff < -1e-6 {
			t.Errorf("tile %v: texelSize^2*textureArea = %v, want area %v", tile, got, want)
		}
	}
}
