package resource

import (
	"github.com/mitchellh/hashstructure/v2"
	"github.com/tidwall/gjson"
)

// Definition is a resource's generator-kind-specific configuration: an
// opaque-but-comparable payload. It is stored as a plain
// map so the registry and backends never need a per-generator-kind
// schema, with typed accessors for generator code that does know its
// own shape.
type Definition struct {
	values map[string]any
}

// NewDefinition wraps an already-decoded map.
func NewDefinition(values map[string]any) Definition {
	if values == nil {
		values = map[string]any{}
	}
	return Definition{values: values}
}

// ParseDefinition tolerantly decodes a resource.json document's
// definition object, walking it with gjson rather than requiring a
// fully-typed schema per generator kind (mirrors types/decode.go's
// gjson-based tolerant decoding of heterogeneous input documents).
func ParseDefinition(raw []byte) Definition {
	values := map[string]any{}
	gjson.ParseBytes(raw).Get("definition").ForEach(func(key, value gjson.Result) bool {
		values[key.String()] = value.Value()
		return true
	})
	return NewDefinition(values)
}

func (d Definition) Get(key string) (any, bool) {
	v, ok := d.values[key]
	return v, ok
}

// Raw exposes the underlying value map, for backends that persist a
// Definition verbatim rather than through its typed accessors.
func (d Definition) Raw() map[string]any {
	return d.values
}

func (d Definition) String(key string) string {
	v, _ := d.values[key].(string)
	return v
}

func (d Definition) Float(key string) float64 {
	switch v := d.values[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}

func (d Definition) Bool(key string) bool {
	v, _ := d.values[key].(bool)
	return v
}

// nonDestructiveKeys never affect generated content: changing only
// these classifies as ChangedSafely.
var nonDestructiveKeys = map[string]bool{
	"comment": true,
	"credits": true,
}

// revisionBumpKeys affect generated content but are always applied
// with an unconditional revision bump, even under a freezing kind
//.
var revisionBumpKeys = map[string]bool{
	"fileClassSettings": true,
}

func (d Definition) subset(keys map[string]bool, want bool) map[string]any {
	out := map[string]any{}
	for k, v := range d.values {
		if keys[k] == want {
			out[k] = v
		}
	}
	return out
}

func hashOf(v any) uint64 {
	h, err := hashstructure.Hash(v, hashstructure.FormatV2, nil)
	if err != nil {
		return 0
	}
	return h
}

// Diff classifies how next differs from prior, computed by
// structurally hashing each definition's destructive field subset
// (github.com/mitchellh/hashstructure/v2) rather than a field-by-field
// switch — growing the destructive-field set later is a one-line
// change to nonDestructiveKeys/revisionBumpKeys, the same
// hash-based-equality idiom catdb/cache's DedupePassLRU used, over
// bespoke deep-equal code.
func Diff(prior, next Definition) Changed {
	excluded := func(k string) bool { return nonDestructiveKeys[k] || revisionBumpKeys[k] }
	priorCore := map[string]any{}
	nextCore := map[string]any{}
	for k, v := range prior.values {
		if !excluded(k) {
			priorCore[k] = v
		}
	}
	for k, v := range next.values {
		if !excluded(k) {
			nextCore[k] = v
		}
	}
	if hashOf(priorCore) != hashOf(nextCore) {
		return ChangedYes
	}

	priorBump := prior.subset(revisionBumpKeys, true)
	nextBump := next.subset(revisionBumpKeys, true)
	if hashOf(priorBump) != hashOf(nextBump) {
		return ChangedWithRevisionBump
	}

	if hashOf(prior.values) != hashOf(next.values) {
		return ChangedSafely
	}
	return ChangedNo
}
