package refframe

import (
	"github.com/golang/geo/s2"

	"github.com/rotblauer/vtsproxy/geo"
	"github.com/rotblauer/vtsproxy/geodataset"
)

// spatialIndex buckets nodes by covering S2 cell, mirroring
// CellIDForTrackLevel's bucketing (s2/cell_indexer.go) but keyed on
// reference-frame nodes instead of cat tracks. It is a pure
// performance optimization over ReferenceFrame.Walk: it must never be
// relied on for exactness, only for pruning.
type spatialIndex struct {
	level  int
	bucket map[s2.CellID][]NodeInfo
}

const spatialIndexLevel = 4 // coarse: a few hundred km per cell at the equator

// buildSpatialIndex constructs an index over every node of rf, keyed
// by the node's extents treated as geographic (lon,lat) degrees. If
// any node's extents are not plausibly geographic (outside
// [-180,180]x[-90,90]), the index is not built at all and callers
// fall back to a full walk: a failed/ambiguous coordinate operation
// is never fatal.
func buildSpatialIndex(rf *ReferenceFrame) *spatialIndex {
	idx := &spatialIndex{level: spatialIndexLevel, bucket: map[s2.CellID][]NodeInfo{}}
	ok := true
	rf.Walk(func(ni NodeInfo) {
		if !ok {
			return
		}
		cells, valid := coveringCells(ni.Extents(), spatialIndexLevel)
		if !valid {
			ok = false
			return
		}
		for _, c := range cells {
			idx.bucket[c] = append(idx.bucket[c], ni)
		}
	})
	if !ok {
		return nil
	}
	return idx
}

func coveringCells(e geo.Extents, level int) ([]s2.CellID, bool) {
	if !plausiblyGeographic(e) {
		return nil, false
	}
	corners := []geo.Point2{e.LL, {X: e.UR.X, Y: e.LL.Y}, e.UR, {X: e.LL.X, Y: e.UR.Y}}
	seen := map[s2.CellID]bool{}
	var out []s2.CellID
	for _, c := range corners {
		cellID := s2.CellIDFromLatLng(s2.LatLngFromDegrees(c.Y, c.X)).Parent(level)
		if !seen[cellID] {
			seen[cellID] = true
			out = append(out, cellID)
		}
	}
	return out, true
}

func plausiblyGeographic(e geo.Extents) bool {
	return e.LL.X >= -180 && e.UR.X <= 180 && e.LL.Y >= -90 && e.UR.Y <= 90
}

// candidates returns every NodeInfo whose covering cells intersect
// the dataset's extents' covering cells.
func (idx *spatialIndex) candidates(d geodataset.Descriptor) []NodeInfo {
	cells, valid := coveringCells(d.Extents, idx.level)
	if !valid {
		return nil
	}
	seen := map[geo.NodeID]bool{}
	var out []NodeInfo
	for _, c := range cells {
		for _, ni := range idx.bucket[c] {
			if !seen[ni.ID()] {
				seen[ni.ID()] = true
				out = append(out, ni)
			}
		}
	}
	return out
}
