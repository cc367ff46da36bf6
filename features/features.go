// Package features turns upstream response bodies into a lazy stream of
// (geometry, attributes) pairs. Two encodings are supported: GeoJSON
// feature collections and the compact binary row-stream format.
package features

import (
	"github.com/paulmach/orb"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Attributes is a feature's property map, preserving upstream document order.
type Attributes = *orderedmap.OrderedMap[string, any]

func NewAttributes() Attributes {
	return orderedmap.New[string, any]()
}

// Feature pairs a geometry with its attributes.
type Feature struct {
	Geometry   orb.Geometry
	Attributes Attributes
}

// Iterator is a single-pass, forward-only stream of features. It is not
// restartable: it may consume an underlying byte stream. Close must be
// called on every exit path; closing before exhaustion is allowed.
//
//	for it.Next() {
//		f := it.Feature()
//		...
//	}
//	err := it.Err()
type Iterator interface {
	// Next advances to the next feature. It returns false at the end of the
	// stream or on the first error, which is then available via Err.
	Next() bool
	// Feature returns the current feature. Only valid after a true Next.
	Feature() Feature
	Err() error
	Close() error
}
