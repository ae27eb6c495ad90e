// Package backend loads and persists the resource catalogue: the set
// of resource.Resource records a registry reconciles against.
package backend

import (
	"context"

	"github.com/rotblauer/vtsproxy/resource"
)

// Backend is the catalogue's storage abstraction. A registry never
// touches disk or S3 directly; it only ever talks to a Backend.
type Backend interface {
	// LoadCatalogue returns every resource the backend currently
	// holds. Order is unspecified; callers sort by resource.ID
	// themselves (resource.ID.Less) for the reconciliation merge-walk.
	LoadCatalogue(ctx context.Context) ([]resource.Resource, error)

	// ReportPrepareError records that id failed to prepare, for
	// operator visibility. It never affects LoadCatalogue's result;
	// a failed generator is erased from the registry by the caller,
	// not the backend.
	ReportPrepareError(ctx context.Context, id resource.ID, cause error) error
}
