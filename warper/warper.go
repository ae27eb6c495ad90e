// Package warper is the core's client contract for the external dataset
// warping service. The core never assumes in-process
// execution: a Client may be backed by a subprocess pool, a remote RPC
// service, or (in tests) an in-memory fake.
package warper

import (
	"context"

	"github.com/rotblauer/vtsproxy/geo"
)

// Operation names a warp kind; the set is open-ended.
type Operation string

const (
	OpValueMinMax Operation = "valueMinMax"
	OpImage       Operation = "image"
	OpMask        Operation = "mask"
)

// MaskRef identifies an optional spatial mask to apply during a warp.
type MaskRef struct {
	Path string
}

// Request describes one warp call.
type Request struct {
	Operation  Operation
	Dataset    string
	SRS        geo.SrsID
	Extents    geo.Extents
	Size       geo.Size // output raster size, in samples
	Resampling string
	Mask       *MaskRef
}

// Response is a dense, channel-interleaved raster. For a valueMinMax
// DEM warp this is 3 channels per sample: value, min, max.
type Response struct {
	Bands int
	Data  []float64
}

// At returns the per-band values for sample index i (0-based, row-
// major), or false if out of range.
func (r *Response) At(i int) ([]float64, bool) {
	start := i * r.Bands
	if start < 0 || start+r.Bands > len(r.Data) {
		return nil, false
	}
	return r.Data[start : start+r.Bands], true
}

// Client performs warp requests. Implementations must treat ctx
// cancellation as cooperative abort.
type Client interface {
	Warp(ctx context.Context, req Request) (*Response, error)
}
