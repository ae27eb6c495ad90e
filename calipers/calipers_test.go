package calipers

import (
	"testing"

	"github.com/rotblauer/vtsproxy/geo"
	"github.com/rotblauer/vtsproxy/geodataset"
	"github.com/rotblauer/vtsproxy/refframe"
)

func squareFrame(t *testing.T, lo, hi float64) *refframe.ReferenceFrame {
	t.Helper()
	root := &refframe.Node{
		ID:         geo.NodeID{ReferenceFrame: "test", Lod: 0, X: 0, Y: 0},
		SRS:        "test",
		Extents:    geo.Extents{LL: geo.Point2{X: lo, Y: lo}, UR: geo.Point2{X: hi, Y: hi}},
		Productive: true,
	}
	reg := refframe.NewRegistry()
	rf := refframe.NewReferenceFrame("test", "test", root)
	reg.Register(rf)
	return rf
}

func squareDataset(lo, hi float64, pixels float64) geodataset.Descriptor {
	return geodataset.Descriptor{
		SRS:     "test",
		Extents: geo.Extents{LL: geo.Point2{X: lo, Y: lo}, UR: geo.Point2{X: hi, Y: hi}},
		Size:    geo.Size{Width: pixels, Height: pixels},
		Bands:   1,
		Type:    geodataset.Float32,
	}
}

func runOpts(invGsdScale float64) Options {
	o := DefaultOptions()
	o.InvGsdScale = invGsdScale
	o.TileSize = 256
	return o
}

func TestPerNodeProducesRanges(t *testing.T) {
	rf := squareFrame(t, 0, 300)
	d := squareDataset(10, 290, 256)

	out, gsd, err := Run(d, rf, geodataset.KindDEM, runOpts(1))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if gsd <= 0 {
		t.Fatalf("expected positive GSD, got %v", gsd)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 node result, got %d", len(out))
	}
	for id, r := range out {
		if r.LodRange.Min > r.LodRange.Max {
			t.Errorf("node %v: minLod %d > lod %d", id, r.LodRange.Min, r.LodRange.Max)
		}
		if r.TileRange.Empty() {
			t.Errorf("node %v: empty tile range", id)
		}
		if !r.FromBottom {
			t.Errorf("node %v: expected FromBottom=true", id)
		}
	}
}

func TestNoResultOutsideNode(t *testing.T) {
	rf := squareFrame(t, 1000, 1300)
	d := squareDataset(0, 300, 256)

	out, _, err := Run(d, rf, geodataset.KindDEM, runOpts(1))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected no results for a non-overlapping dataset, got %d", len(out))
	}
}

func TestCalipersMonotonicity(t *testing.T) {
	rf := squareFrame(t, 0, 300)
	d := squareDataset(10, 290, 256)

	low, _, err := Run(d, rf, geodataset.KindDEM, runOpts(1))
	if err != nil {
		t.Fatalf("Run(scale=1): %v", err)
	}
	high, _, err := Run(d, rf, geodataset.KindDEM, runOpts(4))
	if err != nil {
		t.Fatalf("Run(scale=4): %v", err)
	}
	for id, rLow := range low {
		rHigh, ok := high[id]
		if !ok {
			t.Fatalf("node %v missing from scale=4 result", id)
		}
		if rHigh.LodRange.Max < rLow.LodRange.Max {
			t.Errorf("node %v: lod decreased as invGsdScale increased: %d -> %d", id, rLow.LodRange.Max, rHigh.LodRange.Max)
		}
	}
}

func TestTileRangeContainment(t *testing.T) {
	rf := squareFrame(t, 0, 300)
	d := squareDataset(10, 290, 256)

	out, _, err := Run(d, rf, geodataset.KindDEM, runOpts(1))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for id, r := range out {
		bottom := r.TileRange
		if bottom.MinX > bottom.MaxX || bottom.MinY > bottom.MaxY {
			t.Errorf("node %v: malformed tile range %v", id, bottom)
		}
	}
}

func TestExpandTileRanges(t *testing.T) {
	r := Ranges{
		LodRange:   LodRange{Min: 0, Max: 2},
		TileRange:  geo.TileRange{Lod: 2, MinX: 4, MinY: 8, MaxX: 6, MaxY: 10},
		FromBottom: true,
	}
	expanded := ExpandTileRanges(r)
	if len(expanded) != 3 {
		t.Fatalf("expected 3 ranges, got %d", len(expanded))
	}
	if expanded[2] != r.TileRange {
		t.Errorf("bottom-of-range entry should equal the reported tile range, got %v", expanded[2])
	}
	if expanded[1].MinX != 2 || expanded[1].MaxX != 3 {
		t.Errorf("lod 1 range not halved correctly: %v", expanded[1])
	}
	if expanded[0].MinX != 1 || expanded[0].MaxX != 1 {
		t.Errorf("lod 0 range not halved correctly: %v", expanded[0])
	}
}

func TestFormatFloatDeterministic(t *testing.T) {
	a := FormatFloat(1.0 / 3.0)
	b := FormatFloat(1.0 / 3.0)
	if a != b {
		t.Fatalf("FormatFloat not deterministic: %q vs %q", a, b)
	}
}

func TestDeterministicTieBreakAgreesWithDefault(t *testing.T) {
	rf := squareFrame(t, 0, 300)
	d := squareDataset(10, 290, 256)

	opts := runOpts(1)
	deterministic := opts
	deterministic.DeterministicTieBreak = true

	a, _, err := Run(d, rf, geodataset.KindDEM, opts)
	if err != nil {
		t.Fatalf("Run(default tie-break): %v", err)
	}
	b, _, err := Run(d, rf, geodataset.KindDEM, deterministic)
	if err != nil {
		t.Fatalf("Run(deterministic tie-break): %v", err)
	}
	if len(a) != len(b) {
		t.Fatalf("result sets differ in size: %d vs %d", len(a), len(b))
	}
	for id, ra := range a {
		rb, ok := b[id]
		if !ok {
			t.Fatalf("node %v missing from deterministic result", id)
		}
		if ra.LodRange != rb.LodRange {
			t.Errorf("node %v: lod ranges differ between tie-break modes: %+v vs %+v", id, ra.LodRange, rb.LodRange)
		}
	}
}
