package geo

import "math"

// Datum is the subset of a geographic datum calipers needs: the
// reference ellipsoid's semi-major axis and flattening.
type Datum struct {
	SemiMajorAxis float64
	Flattening    float64
}

// WGS84 is the datum assumed for every navigation SRS calipers
// encounters; arbitrary-datum support is delegated to the external
// warping/reprojection service.
var WGS84 = Datum{SemiMajorAxis: 6378137.0, Flattening: 1.0 / 298.257223563}

// TangentPlane is a transverse-Mercator projection centered on a
// chosen geographic longitude/latitude, used only to compute an
// approximate, informational global ground sample distance. It is
// not a general-purpose SRS
// converter: real dataset/reference-frame conversions go through
// whatever Converter the caller supplies (ultimately backed by the
// external warping service's reprojection).
type TangentPlane struct {
	datum            Datum
	lon0Rad, lat0Rad float64
	k0               float64
}

// NewTangentPlane builds a transverse-Mercator projection centered on
// the given geographic center (degrees).
func NewTangentPlane(datum Datum, centerLonDeg, centerLatDeg float64) *TangentPlane {
	return &TangentPlane{
		datum:   datum,
		lon0Rad: centerLonDeg * math.Pi / 180,
		lat0Rad: centerLatDeg * math.Pi / 180,
		k0:      1.0,
	}
}

// Project converts a geographic point (degrees) into the tangent
// plane, in meters, using the spherical transverse-Mercator
// approximation (adequate at the scale of a single dataset's center
// pixel, which is all calipers' GSD estimate needs).
func (t *TangentPlane) Project(lonDeg, latDeg float64) Point2 {
	a := t.datum.SemiMajorAxis
	lon := lonDeg * math.Pi / 180
	lat := latDeg * math.Pi / 180

	dLon := lon - t.lon0Rad
	b := math.Cos(lat) * math.Sin(dLon)
	x := 0.5 * a * t.k0 * math.Log((1+b)/(1-b))
	y := a * t.k0 * (math.Atan2(math.Tan(lat), math.Cos(dLon)) - t.lat0Rad)
	return Point2{X: x, Y: y}
}

// Convert implements Converter over geographic (lon,lat)-degree input.
func (t *TangentPlane) Convert(p Point2) (Point2, bool) {
	return t.Project(p.X, p.Y), true
}
