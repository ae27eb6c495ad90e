package refframe

import (
	"fmt"

	"github.com/rotblauer/vtsproxy/geo"
	"github.com/rotblauer/vtsproxy/geodataset"
)

// ReferenceFrame is an identified tiling scheme: a navigation SRS and
// a tree of subtree nodes, immutable once loaded.
type ReferenceFrame struct {
	ID            string
	NavigationSRS geo.SrsID
	root          *Node

	index *spatialIndex
}

// NewReferenceFrame constructs a reference frame from an already-built
// node tree, primarily for tests and for Registry.Load's JSON-backed
// construction. The spatial index is not built here; Registry.Load and
// Registry.Register build it when they add the frame.
func NewReferenceFrame(id string, navSRS geo.SrsID, root *Node) *ReferenceFrame {
	return &ReferenceFrame{ID: id, NavigationSRS: navSRS, root: root}
}

// Root returns the frame's top-level subtree node.
func (rf *ReferenceFrame) Root() NodeInfo {
	return NodeInfo{node: rf.root, rf: rf}
}

// Walk visits every node in the subtree tree, including root.
func (rf *ReferenceFrame) Walk(fn func(NodeInfo)) {
	var walk func(*Node)
	walk = func(n *Node) {
		fn(NodeInfo{node: n, rf: rf})
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(rf.root)
}

// NodesCovering returns every subtree node whose extents the
// dataset's bound can possibly intersect. When a usable spatial index
// is available it is consulted as a pre-filter; otherwise every node
// is walked. Either path must return a superset of the true
// intersection — calipers' own per-node sampling does the exact test.
func (rf *ReferenceFrame) NodesCovering(d geodataset.Descriptor) ([]NodeInfo, error) {
	if rf.root == nil {
		return nil, fmt.Errorf("reference frame %q has no root node", rf.ID)
	}
	var candidates []NodeInfo
	if rf.index != nil {
		candidates = rf.index.candidates(d)
	} else {
		rf.Walk(func(ni NodeInfo) { candidates = append(candidates, ni) })
	}
	out := make([]NodeInfo, 0, len(candidates))
	for _, ni := range candidates {
		if ni.Productive() {
			out = append(out, ni)
		}
	}
	return out, nil
}
