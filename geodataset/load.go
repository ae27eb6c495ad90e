package geodataset

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotblauer/vtsproxy/geo"
)

// descriptorDoc is the on-disk shape of a dataset descriptor. Raw
// raster introspection (GDAL's job, out of this module's scope) is
// expected to have already produced this sidecar; LoadDescriptor only
// decodes it.
type descriptorDoc struct {
	SRS     string  `json:"srs"`
	LL      [2]float64 `json:"ll"`
	UR      [2]float64 `json:"ur"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Bands   int     `json:"bands"`
	Type    string  `json:"type"`
}

// LoadDescriptor reads a dataset descriptor from a JSON sidecar at
// path, the calipers CLI's stand-in for GDAL raster introspection.
func LoadDescriptor(path string) (Descriptor, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Descriptor{}, fmt.Errorf("reading dataset descriptor %q: %w", path, err)
	}
	var doc descriptorDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Descriptor{}, fmt.Errorf("parsing dataset descriptor %q: %w", path, err)
	}
	return Descriptor{
		SRS:     geo.SrsID(doc.SRS),
		Extents: geo.Extents{LL: geo.Point2{X: doc.LL[0], Y: doc.LL[1]}, UR: geo.Point2{X: doc.UR[0], Y: doc.UR[1]}},
		Size:    geo.Size{Width: doc.Width, Height: doc.Height},
		Bands:   doc.Bands,
		Type:    DataType(doc.Type),
	}, nil
}
