// Package geodataset describes a raw GDAL-backed source dataset as a
// plain snapshot value: no I/O, no GDAL handle — just the facts
// calipers and the metatile builder need to reason about it.
package geodataset

import (
	"fmt"

	"github.com/rotblauer/vtsproxy/geo"
	"github.com/rotblauer/vtsproxy/vtserror"
)

// DataType is the pixel/band data type of a raster band.
type DataType string

const (
	Byte    DataType = "byte"
	Int16   DataType = "int16"
	UInt16  DataType = "uint16"
	Int32   DataType = "int32"
	UInt32  DataType = "uint32"
	Float32 DataType = "float32"
	Float64 DataType = "float64"
)

// Descriptor is a snapshot of a source dataset: SRS, pixel extents,
// raster size, band count, and pixel data type.
type Descriptor struct {
	SRS     geo.SrsID
	Extents geo.Extents
	Size    geo.Size // Width/Height in pixels
	Bands   int
	Type    DataType
}

// PixelSize returns the size, in D's SRS units, of one source pixel.
func (d Descriptor) PixelSize() geo.Size {
	sz := d.Extents.Size()
	if d.Size.Width == 0 || d.Size.Height == 0 {
		return geo.Size{}
	}
	return geo.Size{Width: sz.Width / d.Size.Width, Height: sz.Height / d.Size.Height}
}

// CenterPixel returns the SRS-space center point of the dataset, used
// by calipers as both the GSD sample point and the "closest to
// center" anchor for best-LOD selection.
func (d Descriptor) CenterPixel() geo.Point2 {
	return d.Extents.Center()
}

// Kind is the dataset's content kind, as determined by calipers'
// autodetection rule or forced by the caller.
type Kind string

const (
	KindDEM    Kind = "dem"
	KindOphoto Kind = "ophoto"
)

// DetectKind implements the calipers type-autodetection rule exactly:
// bands >= 3 => ophoto; a single byte band => ophoto; a single
// non-byte band => dem; anything else is UnsupportedDataset. A
// non-empty forced kind bypasses detection entirely.
func DetectKind(d Descriptor, forced Kind) (Kind, error) {
	if forced != "" {
		return forced, nil
	}
	switch {
	case d.Bands >= 3:
		return KindOphoto, nil
	case d.Bands == 1 && d.Type == Byte:
		return KindOphoto, nil
	case d.Bands == 1 && d.Type != Byte:
		return KindDEM, nil
	default:
		return "", fmt.Errorf("%w: bands=%d type=%s", vtserror.ErrUnsupportedDataset, d.Bands, d.Type)
	}
}
