package warper

import (
	"context"
	"errors"
)

// ErrNoBackend is returned by NullClient, the warperd default when no
// real warping backend has been wired in. Actual GDAL-backed warping
// is out of this module's scope; a production warperd replaces
// NullClient with a real Client implementation at startup.
var ErrNoBackend = errors.New("warper: no warp backend configured")

// NullClient is a Client that always fails, used as warperd's
// placeholder backend until a real warp implementation is wired in.
type NullClient struct{}

func (NullClient) Warp(_ context.Context, _ Request) (*Response, error) {
	return nil, ErrNoBackend
}
