package backend

import (
	"encoding/json"
	"fmt"

	"github.com/rotblauer/vtsproxy/calipers"
	"github.com/rotblauer/vtsproxy/geo"
	"github.com/rotblauer/vtsproxy/refframe"
	"github.com/rotblauer/vtsproxy/resource"
)

// resourceDoc is the on-disk/on-S3 shape of one resource.json, the
// generator-agnostic description persisted per resource.ID.
// ReferenceFrame is stored by ID and resolved against a
// refframe.Registry at load time, since resource.Resource holds a
// live *refframe.ReferenceFrame rather than its name.
type resourceDoc struct {
	ID                resource.ID                          `json:"id"`
	Generator         string                               `json:"generator"`
	Definition        map[string]any                       `json:"definition"`
	ReferenceFrame    string                                `json:"referenceFrame"`
	Revision          int                                  `json:"revision"`
	Credits           []string                             `json:"credits,omitempty"`
	LodRange          calipers.LodRange                     `json:"lodRange"`
	TileRange         geo.TileRange                         `json:"tileRange"`
	FileClassSettings map[string]resource.FileClassSetting  `json:"fileClassSettings,omitempty"`
	Comment           string                                `json:"comment,omitempty"`
}

func docFromResource(r resource.Resource) resourceDoc {
	rfID := ""
	if r.ReferenceFrame != nil {
		rfID = r.ReferenceFrame.ID
	}
	return resourceDoc{
		ID:                r.ID,
		Generator:         r.Generator,
		Definition:        r.Definition.Raw(),
		ReferenceFrame:    rfID,
		Revision:          r.Revision,
		Credits:           r.Credits,
		LodRange:          r.LodRange,
		TileRange:         r.TileRange,
		FileClassSettings: r.FileClassSettings,
		Comment:           r.Comment,
	}
}

// parseDefinition re-derives the Definition field by walking the raw
// document with gjson rather than trusting encoding/json's decode of
// the definition object, mirroring resource.ParseDefinition's tolerant
// handling of generator-kind-specific shapes.
func parseDefinition(raw []byte) resource.Definition {
	return resource.ParseDefinition(raw)
}

func (d resourceDoc) toResource(frames *refframe.Registry, definition resource.Definition) (resource.Resource, error) {
	rf, err := frames.Get(d.ReferenceFrame)
	if err != nil {
		return resource.Resource{}, fmt.Errorf("resource %s: %w", d.ID, err)
	}
	return resource.Resource{
		ID:                d.ID,
		Generator:         d.Generator,
		Definition:        definition,
		ReferenceFrame:    rf,
		Revision:          d.Revision,
		Credits:           d.Credits,
		LodRange:          d.LodRange,
		TileRange:         d.TileRange,
		FileClassSettings: d.FileClassSettings,
		Comment:           d.Comment,
	}, nil
}

func marshalResource(r resource.Resource) ([]byte, error) {
	return json.MarshalIndent(docFromResource(r), "", "  ")
}

func unmarshalResource(raw []byte, frames *refframe.Registry) (resource.Resource, error) {
	var d resourceDoc
	if err := json.Unmarshal(raw, &d); err != nil {
		return resource.Resource{}, fmt.Errorf("parsing resource document: %w", err)
	}
	return d.toResource(frames, parseDefinition(raw))
}
