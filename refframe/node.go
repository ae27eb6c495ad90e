package refframe

import "github.com/rotblauer/vtsproxy/geo"

// Node is one node of a reference frame's subtree tree: a fixed SRS,
// the extents that SRS covers, and whether it ever produces content
// (some nodes, e.g. polar caps, never produce content).
//
// Unlike a tile, a Node is not one of the 4^lod tiles at its LOD: it
// is a subtree root. Reference frames nest subtrees to switch SRS at
// depth (e.g. a global frame splitting into per-region projections);
// Children holds those nested subtree roots, each starting at a
// strictly greater LOD than its parent.
type Node struct {
	ID         geo.NodeID
	SRS        geo.SrsID
	Extents    geo.Extents
	Productive bool

	// MaxLod bounds how deep this node's subtree can productively
	// extend; 0 means unbounded. Exceeding it without a child
	// subtree taking over makes a requested depth incompatible.
	MaxLod int

	Children []*Node
}

// Inside reports whether p (in Node's SRS) lies within the node's
// extents.
func (n *Node) Inside(p geo.Point2) bool {
	return n.Extents.Contains(p)
}
