package calipers

import (
	"fmt"
	"math"

	"github.com/rotblauer/vtsproxy/geo"
	"github.com/rotblauer/vtsproxy/geodataset"
)

// GroundSampleDistance computes the dataset's global GSD: project D's
// center pixel as a quadrilateral into a transverse-Mercator plane
// centered on D's geographic center, and
// return sqrt(area). It is informational only and never feeds into
// the per-node LOD arithmetic.
//
// This module carries no GDAL/PROJ bindings, so D's extents are
// assumed already expressed in geographic (longitude, latitude)
// degrees — true for the DEM sources calipers is normally run
// against. A dataset in a projected SRS should be reprojected to
// geographic degrees upstream of this call.
func GroundSampleDistance(d geodataset.Descriptor, navSRS geo.SrsID) (float64, error) {
	center := d.CenterPixel()
	tp := geo.NewTangentPlane(geo.WGS84, center.X, center.Y)

	px := d.PixelSize()
	half := geo.Size{Width: px.Width / 2, Height: px.Height / 2}

	corners := [4]geo.Point2{
		{X: center.X - half.Width, Y: center.Y - half.Height},
		{X: center.X + half.Width, Y: center.Y - half.Height},
		{X: center.X + half.Width, Y: center.Y + half.Height},
		{X: center.X - half.Width, Y: center.Y + half.Height},
	}

	var q geo.Quad
	for i, c := range corners {
		p, ok := tp.Convert(c)
		if !ok {
			return 0, fmt.Errorf("projecting dataset center pixel for GSD: out of tangent-plane domain")
		}
		q[i] = p
	}

	area := q.Area()
	return math.Sqrt(area), nil
}
