package resource

import "testing"

func TestDiffNoChange(t *testing.T) {
	a := NewDefinition(map[string]any{"path": "/data/dem.tif", "comment": "v1"})
	b := NewDefinition(map[string]any{"path": "/data/dem.tif", "comment": "v1"})
	if got := Diff(a, b); got != ChangedNo {
		t.Fatalf("expected ChangedNo, got %v", got)
	}
}

func TestDiffSafelyOnCosmeticChange(t *testing.T) {
	a := NewDefinition(map[string]any{"path": "/data/dem.tif", "comment": "v1"})
	b := NewDefinition(map[string]any{"path": "/data/dem.tif", "comment": "v2"})
	if got := Diff(a, b); got != ChangedSafely {
		t.Fatalf("expected ChangedSafely, got %v", got)
	}
}

func TestDiffWithRevisionBumpOnFileClassSettings(t *testing.T) {
	a := NewDefinition(map[string]any{"path": "/data/dem.tif", "fileClassSettings": "a"})
	b := NewDefinition(map[string]any{"path": "/data/dem.tif", "fileClassSettings": "b"})
	if got := Diff(a, b); got != ChangedWithRevisionBump {
		t.Fatalf("expected ChangedWithRevisionBump, got %v", got)
	}
}

func TestDiffYesOnDestructiveChange(t *testing.T) {
	a := NewDefinition(map[string]any{"path": "/data/dem.tif"})
	b := NewDefinition(map[string]any{"path": "/data/other.tif"})
	if got := Diff(a, b); got != ChangedYes {
		t.Fatalf("expected ChangedYes, got %v", got)
	}
}

func TestChangedOrdering(t *testing.T) {
	if ChangedNo.Compare(ChangedSafely) >= 0 {
		t.Fatal("ChangedNo should be less than ChangedSafely")
	}
	if ChangedSafely.Compare(ChangedWithRevisionBump) >= 0 {
		t.Fatal("ChangedSafely should be less than ChangedWithRevisionBump")
	}
	if ChangedWithRevisionBump.Compare(ChangedYes) >= 0 {
		t.Fatal("ChangedWithRevisionBump should be less than ChangedYes")
	}
	if Max(ChangedNo, ChangedYes) != ChangedYes {
		t.Fatal("Max should return the more consequential classification")
	}
}

func TestIDLess(t *testing.T) {
	a := ID{ReferenceFrame: "rf", Group: "g", ID: "a"}
	b := ID{ReferenceFrame: "rf", Group: "g", ID: "b"}
	if !a.Less(b) {
		t.Fatal("expected a < b")
	}
	if b.Less(a) {
		t.Fatal("expected b not< a")
	}
}

func TestParseDefinition(t *testing.T) {
	raw := []byte(`{"id":"x","definition":{"path":"/data/dem.tif","comment":"hi"}}`)
	d := ParseDefinition(raw)
	if d.String("path") != "/data/dem.tif" {
		t.Fatalf("expected path to decode, got %q", d.String("path"))
	}
	if d.String("comment") != "hi" {
		t.Fatalf("expected comment to decode, got %q", d.String("comment"))
	}
}
