package refframe

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/rotblauer/vtsproxy/geo"
)

// Registry is a read-only catalogue of reference frames, loaded once
// from disk and never mutated afterward.
type Registry struct {
	mu     sync.RWMutex
	frames map[string]*ReferenceFrame
}

func NewRegistry() *Registry {
	return &Registry{frames: map[string]*ReferenceFrame{}}
}

// nodeDoc is the on-disk shape of a reference frame's node tree.
type nodeDoc struct {
	Lod        int       `json:"lod"`
	X          int64     `json:"x"`
	Y          int64     `json:"y"`
	SRS        string    `json:"srs"`
	LL         [2]float64 `json:"ll"`
	UR         [2]float64 `json:"ur"`
	Productive bool      `json:"productive"`
	MaxLod     int       `json:"maxLod"`
	Children   []nodeDoc `json:"children"`
}

type referenceFrameDoc struct {
	ID            string  `json:"id"`
	NavigationSRS string  `json:"navigationSrs"`
	Root          nodeDoc `json:"root"`
}

func (d nodeDoc) toNode(rfID string) *Node {
	n := &Node{
		ID:         geo.NodeID{ReferenceFrame: rfID, Lod: d.Lod, X: d.X, Y: d.Y},
		SRS:        geo.SrsID(d.SRS),
		Extents:    geo.Extents{LL: geo.Point2{X: d.LL[0], Y: d.LL[1]}, UR: geo.Point2{X: d.UR[0], Y: d.UR[1]}},
		Productive: d.Productive,
		MaxLod:     d.MaxLod,
	}
	for _, c := range d.Children {
		n.Children = append(n.Children, c.toNode(rfID))
	}
	return n
}

// Load reads a reference frame description from a JSON file at path
// and registers it. Loading is one-shot: the returned *ReferenceFrame
// is immutable thereafter.
func (r *Registry) Load(path string) (*ReferenceFrame, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading reference frame %q: %w", path, err)
	}
	var doc referenceFrameDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing reference frame %q: %w", path, err)
	}
	rf := NewReferenceFrame(doc.ID, geo.SrsID(doc.NavigationSRS), doc.Root.toNode(doc.ID))
	rf.index = buildSpatialIndex(rf)

	r.mu.Lock()
	r.frames[rf.ID] = rf
	r.mu.Unlock()
	return rf, nil
}

// Register adds an already-constructed reference frame, primarily for
// tests that build nodes in-process rather than from a JSON file.
func (r *Registry) Register(rf *ReferenceFrame) {
	if rf.index == nil {
		rf.index = buildSpatialIndex(rf)
	}
	r.mu.Lock()
	r.frames[rf.ID] = rf
	r.mu.Unlock()
}

func (r *Registry) Get(id string) (*ReferenceFrame, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rf, ok := r.frames[id]
	if !ok {
		return nil, fmt.Errorf("unknown reference frame %q", id)
	}
	return rf, nil
}

func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.frames))
	for id := range r.frames {
		ids = append(ids, id)
	}
	return ids
}
