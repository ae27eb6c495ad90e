// Package vtserror collects the sentinel errors shared across
// vtsproxy: typed sentinels checked with errors.Is rather than a
// bespoke error type hierarchy, the same shape as a tiling daemon's
// ErrNotReady/ErrEmptyFile/ErrNoFiles.
package vtserror

import "errors"

var (
	// ErrNotFound covers no tile, no resource, no file variant.
	ErrNotFound = errors.New("not found")

	// ErrUnavailable marks the registry or a generator as not yet
	// ready; callers should treat this as transient.
	ErrUnavailable = errors.New("unavailable")

	// ErrEmptyDebugMask is the debug-variant NotFound for mask endpoints.
	ErrEmptyDebugMask = errors.New("empty debug mask")

	// ErrInternal marks a programmer error: unknown file class, an
	// impossible branch reached.
	ErrInternal = errors.New("internal error")

	// ErrInvalidConfiguration marks a resource definition that does not
	// match its declared generator kind.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrUnknownGenerator marks a lookup of an absent resource.ID.
	ErrUnknownGenerator = errors.New("unknown generator")

	// ErrUnsupportedDataset marks a calipers type-autodetection failure.
	ErrUnsupportedDataset = errors.New("unsupported dataset")

	// ErrAborted marks cooperative cancellation during reconciliation
	// or a metatile build.
	ErrAborted = errors.New("aborted")
)
