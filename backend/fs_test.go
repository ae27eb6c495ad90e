package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rotblauer/vtsproxy/geo"
	"github.com/rotblauer/vtsproxy/refframe"
	"github.com/rotblauer/vtsproxy/resource"
)

func testFrames(t *testing.T) *refframe.Registry {
	t.Helper()
	root := &refframe.Node{
		ID:         geo.NodeID{ReferenceFrame: "rf", Lod: 0, X: 0, Y: 0},
		SRS:        "srs",
		Extents:    geo.Extents{LL: geo.Point2{X: 0, Y: 0}, UR: geo.Point2{X: 1, Y: 1}},
		Productive: true,
	}
	rf := refframe.NewReferenceFrame("rf", "srs", root)
	reg := refframe.NewRegistry()
	reg.Register(rf)
	return reg
}

func TestFSBackendSaveAndLoadCatalogue(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "resources")
	frames := testFrames(t)
	b, err := NewFSBackend(dir, frames)
	if err != nil {
		t.Fatalf("NewFSBackend: %v", err)
	}

	rf, err := frames.Get("rf")
	if err != nil {
		t.Fatal(err)
	}
	r := resource.Resource{
		ID:             resource.ID{ReferenceFrame: "rf", Group: "dem", ID: "surface"},
		Generator:      "dem",
		Definition:     resource.NewDefinition(map[string]any{"path": "/data/dem.tif"}),
		ReferenceFrame: rf,
		Revision:       1,
		Credits:        []string{"acme-surveys"},
	}
	if err := b.SaveResource(r); err != nil {
		t.Fatalf("SaveResource: %v", err)
	}

	got, err := b.LoadCatalogue(context.Background())
	if err != nil {
		t.Fatalf("LoadCatalogue: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 resource, got %d", len(got))
	}
	if got[0].ID != r.ID {
		t.Errorf("ID = %v, want %v", got[0].ID, r.ID)
	}
	if got[0].Definition.String("path") != "/data/dem.tif" {
		t.Errorf("Definition.path = %q", got[0].Definition.String("path"))
	}
	if got[0].ReferenceFrame == nil || got[0].ReferenceFrame.ID != "rf" {
		t.Errorf("ReferenceFrame not resolved: %+v", got[0].ReferenceFrame)
	}

	// Second load should hit the mtime cache and still return the same value.
	got2, err := b.LoadCatalogue(context.Background())
	if err != nil {
		t.Fatalf("LoadCatalogue (cached): %v", err)
	}
	if len(got2) != 1 || got2[0].ID != r.ID {
		t.Fatalf("cached load mismatch: %+v", got2)
	}
}

func TestFSBackendLoadCatalogueEmptyWhenMissing(t *testing.T) {
	b, err := NewFSBackend(filepath.Join(t.TempDir(), "absent"), testFrames(t))
	if err != nil {
		t.Fatal(err)
	}
	got, err := b.LoadCatalogue(context.Background())
	if err != nil {
		t.Fatalf("LoadCatalogue: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty catalogue, got %d", len(got))
	}
}

func TestFSBackendReportPrepareError(t *testing.T) {
	dir := t.TempDir()
	b, err := NewFSBackend(dir, testFrames(t))
	if err != nil {
		t.Fatal(err)
	}
	id := resource.ID{ReferenceFrame: "rf", Group: "dem", ID: "surface"}
	if err := b.ReportPrepareError(context.Background(), id, os.ErrInvalid); err != nil {
		t.Fatalf("ReportPrepareError: %v", err)
	}
	errPath := filepath.Join(dir, "rf", "dem", "surface", "error.json")
	if _, err := os.Stat(errPath); err != nil {
		t.Fatalf("expected error.json at %s: %v", errPath, err)
	}
}
