// Package rollup bins point features into a tile's pixel grid and counts
// the points that land on the same pixel with the same attributes.
package rollup

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/pdok/pointtiles/features"
	"github.com/pdok/pointtiles/geomhelp"
	"github.com/pdok/pointtiles/mapslicehelp"
	"github.com/pdok/pointtiles/tileaddr"
)

// Aggregate is one output bin: a tile-local pixel position, the attributes
// shared by the points in the bin, and how many points landed there.
type Aggregate struct {
	Pixel      tileaddr.Pixel
	Count      int
	Attributes features.Attributes
}

type groupKey struct {
	pixel tileaddr.Pixel
	attrs string
}

// Rollup consumes the feature stream in a single pass. Each feature is
// reduced to its representative coordinate, projected into the tile, and
// dropped when it falls outside. Surviving points are grouped by
// (pixel, attributes); attribute insertion order does not split groups.
// The result has set semantics: at most one Aggregate per distinct group,
// in no particular order.
//
// Peak memory is bounded by the number of distinct bins, not the row count.
func Rollup(addr tileaddr.Address, it features.Iterator) ([]Aggregate, error) {
	groups := make(map[groupKey]int) // group key -> index into out
	var out []Aggregate
	for it.Next() {
		feature := it.Feature()
		coord, ok := geomhelp.RepresentativeCoord(feature.Geometry)
		if !ok {
			continue
		}
		pixel, ok := addr.Project(coord.Lon(), coord.Lat())
		if !ok {
			continue
		}
		key := groupKey{pixel: pixel, attrs: fingerprint(feature.Attributes)}
		if i, seen := groups[key]; seen {
			out[i].Count++
			continue
		}
		groups[key] = len(out)
		out = append(out, Aggregate{Pixel: pixel, Count: 1, Attributes: feature.Attributes})
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// fingerprint canonicalizes an attribute map for grouping: key order in the
// document must not matter, so pairs are serialized sorted by key.
func fingerprint(attrs features.Attributes) string {
	if attrs == nil || attrs.Len() == 0 {
		return ""
	}
	keys := mapslicehelp.OrderedMapKeys(attrs)
	sort.Strings(keys)
	var b strings.Builder
	for _, key := range keys {
		value, _ := attrs.Get(key)
		valueJSON, err := json.Marshal(value)
		if err != nil {
			// unmarshalled JSON values always remarshal; anything else
			// falls back to its string form
			valueJSON = []byte(fmt.Sprintf("%q", fmt.Sprint(value)))
		}
		b.WriteString(fmt.Sprintf("%q:%s,", key, valueJSON))
	}
	return b.String()
}
