package tileenc

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb/encoding/wkb"
	"github.com/umpc/go-sortedmap"

	"github.com/pdok/pointtiles/geomhelp"
	"github.com/pdok/pointtiles/rollup"
)

const describeWidth = 120

// sortKey orders aggregates by layer, then pixel row/column, then attributes.
func sortKey(agg rollup.Aggregate) string {
	return fmt.Sprintf("%s|%03d|%03d|%s",
		LayerName(pixelGeometry(agg)), agg.Pixel.Y(), agg.Pixel.X(), attrsJSON(agg))
}

// sortAggs orders aggregates deterministically so debug output is stable no
// matter the rollup order. The comparison func receives the stored values.
func sortAggs(aggs []rollup.Aggregate) []rollup.Aggregate {
	sorted := sortedmap.New(len(aggs), func(x, y interface{}) bool {
		return sortKey(x.(rollup.Aggregate)) < sortKey(y.(rollup.Aggregate))
	})
	for _, agg := range aggs {
		sorted.Insert(sortKey(agg), agg)
	}
	out := make([]rollup.Aggregate, 0, len(aggs))
	byKey := sorted.Map()
	for _, key := range sorted.Keys() {
		out = append(out, byKey[key].(rollup.Aggregate))
	}
	return out
}

// encodeText renders one line per feature, for humans staring at tiles.
func (e *Encoder) encodeText(aggs []rollup.Aggregate) ([]byte, error) {
	var buf bytes.Buffer
	for _, agg := range sortAggs(aggs) {
		point := pixelGeometry(agg)
		fmt.Fprintf(&buf, "layer=%s geom=%s attrs=%s\n",
			LayerName(point), geomhelp.Describe(point, describeWidth), attrsJSON(agg))
	}
	return buf.Bytes(), nil
}

// BundleFeature is one feature of the WKB debug bundle.
type BundleFeature struct {
	WKB        string `json:"wkb"`
	Attributes string `json:"attributes"`
}

// encodeWKBBundle renders a JSON object keyed by layer name, each feature
// reduced to base64 WKB plus base64 JSON attributes.
func (e *Encoder) encodeWKBBundle(aggs []rollup.Aggregate) ([]byte, error) {
	bundle := make(map[string][]BundleFeature)
	for _, agg := range sortAggs(aggs) {
		point := pixelGeometry(agg)
		geometry, err := wkb.Marshal(point)
		if err != nil {
			e.logger.Warn("skipping feature that fails wkb encoding",
				"layer", LayerName(point), "pixel", agg.Pixel, "error", err)
			continue
		}
		name := LayerName(point)
		bundle[name] = append(bundle[name], BundleFeature{
			WKB:        base64.StdEncoding.EncodeToString(geometry),
			Attributes: base64.StdEncoding.EncodeToString(attrsJSON(agg)),
		})
	}
	return json.Marshal(bundle)
}
