package resource

import (
	"github.com/rotblauer/vtsproxy/calipers"
	"github.com/rotblauer/vtsproxy/geo"
	"github.com/rotblauer/vtsproxy/refframe"
)

// Ranges is the range data a Resource serves at, the same shape
// calipers produces per node.
type Ranges = calipers.Ranges

// FileClassSetting overrides serving behavior for one file class (e.g.
// cache headers); its exact field set is generator-kind-agnostic.
type FileClassSetting struct {
	MaxAgeSeconds int
}

// Resource is the persisted, generator-agnostic description of one
// served entity.
type Resource struct {
	ID                ID
	Generator         string
	Definition        Definition
	ReferenceFrame    *refframe.ReferenceFrame
	Revision          int
	Credits           []string
	LodRange          calipers.LodRange
	TileRange         geo.TileRange
	FileClassSettings map[string]FileClassSetting
	Comment           string
}
