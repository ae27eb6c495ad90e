// Package resource defines the persisted, generator-facing data model:
// resource identity, the ranges a generator serves, change
// classification between two definitions, and the definition payload
// itself.
package resource

import "fmt"

// ID identifies a resource within a reference frame and group.
type ID struct {
	ReferenceFrame string
	Group          string
	ID             string
}

func (id ID) String() string {
	return fmt.Sprintf("%s/%s/%s", id.ReferenceFrame, id.Group, id.ID)
}

// Less orders IDs for the reconciliation merge-walk.
func (id ID) Less(other ID) bool {
	if id.ReferenceFrame != other.ReferenceFrame {
		return id.ReferenceFrame < other.ReferenceFrame
	}
	if id.Group != other.Group {
		return id.Group < other.Group
	}
	return id.ID < other.ID
}
