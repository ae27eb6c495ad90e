package geo

// SrsID identifies a spatial reference system, typically an
// "EPSG:<code>" or a PROJ string; opaque to this package.
type SrsID string

// Converter converts a Point2 from one fixed SRS to another. A failed
// conversion (out of projection domain, singular transform, ...) is
// reported via the bool return, never via panic or error value:
// coordinate-conversion failure is a routine "outside" signal, not an
// exceptional condition.
type Converter interface {
	Convert(p Point2) (Point2, bool)
}

// ConverterFunc adapts a plain function to Converter.
type ConverterFunc func(Point2) (Point2, bool)

func (f ConverterFunc) Convert(p Point2) (Point2, bool) { return f(p) }

// Identity is a Converter that never fails and returns its input
// unchanged; useful when source and target SRS coincide.
var Identity Converter = ConverterFunc(func(p Point2) (Point2, bool) { return p, true })

// Chain composes converters left to right, failing as soon as any
// stage fails.
func Chain(cs ...Converter) Converter {
	return ConverterFunc(func(p Point2) (Point2, bool) {
		cur := p
		for _, c := range cs {
			next, ok := c.Convert(cur)
			if !ok {
				return Point2{}, false
			}
			cur = next
		}
		return cur, true
	})
}
