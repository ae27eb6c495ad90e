package gendem

import (
	"github.com/rotblauer/vtsproxy/geo"
	"github.com/rotblauer/vtsproxy/resource"
)

// definition is the dem generator kind's view of a resource's
// resource.Definition: the dataset it warps, an optional geoid grid
// to shift elevation into navigation height, and an optional bounding
// mask.
type definition struct {
	dataset      string
	geoidDataset string
	maskExtents  *geo.Extents
}

func parseDefinition(d resource.Definition) definition {
	out := definition{
		dataset:      d.String("path"),
		geoidDataset: d.String("geoid"),
	}
	if raw, ok := d.Get("maskExtents"); ok {
		if pts, ok := raw.([]any); ok && len(pts) == 4 {
			ll := geo.Point2{X: asFloat(pts[0]), Y: asFloat(pts[1])}
			ur := geo.Point2{X: asFloat(pts[2]), Y: asFloat(pts[3])}
			e := geo.Extents{LL: ll, UR: ur}
			out.maskExtents = &e
		}
	}
	return out
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}
