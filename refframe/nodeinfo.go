package refframe

import "github.com/rotblauer/vtsproxy/geo"

// NodeInfo embeds a Node in its owning ReferenceFrame: it is what
// calipers and the metatile builder actually operate on.
type NodeInfo struct {
	node *Node
	rf   *ReferenceFrame
}

func (ni NodeInfo) Valid() bool { return ni.node != nil }

func (ni NodeInfo) ID() geo.NodeID { return ni.node.ID }

func (ni NodeInfo) SRS() geo.SrsID { return ni.node.SRS }

func (ni NodeInfo) Extents() geo.Extents { return ni.node.Extents }

func (ni NodeInfo) Productive() bool { return ni.node.Productive }

func (ni NodeInfo) ReferenceFrame() *ReferenceFrame { return ni.rf }

// Children returns this node's nested subtree roots.
func (ni NodeInfo) Children() []NodeInfo {
	out := make([]NodeInfo, 0, len(ni.node.Children))
	for _, c := range ni.node.Children {
		out = append(out, NodeInfo{node: c, rf: ni.rf})
	}
	return out
}

// LowestChild returns the deepest subtree descendant of ni whose
// (absolute) LOD is no greater than ni's LOD plus localLod. It is
// always ni itself or a true descendant — it never returns an
// invalid NodeInfo.
func (ni NodeInfo) LowestChild(localLod int) NodeInfo {
	target := ni.node.ID.Lod + localLod
	cur := ni.node
	for {
		var next *Node
		for _, c := range cur.Children {
			if c.ID.Lod <= target {
				if next == nil || c.ID.Lod > next.ID.Lod {
					next = c
				}
			}
		}
		if next == nil {
			return NodeInfo{node: cur, rf: ni.rf}
		}
		cur = next
	}
}

// CompatibleWith is the compatibility predicate between a descendant
// (ni, typically the result of LowestChild) and its ancestor: it
// fails when the resolved
// descendant's bounded MaxLod cannot actually reach the target depth
// the ancestor asked for — meaning the subtree cannot produce tiles
// there at all (e.g. the node terminates before a deeper child
// subtree would have taken over).
func (ni NodeInfo) CompatibleWith(ancestor NodeInfo, localLod int) bool {
	target := ancestor.node.ID.Lod + localLod
	if ni.node.MaxLod > 0 && target > ni.node.MaxLod {
		return false
	}
	return true
}
