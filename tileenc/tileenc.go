// Package tileenc serializes an aggregated feature set into a Mapbox Vector
// Tile or one of the debug representations, selected by file extension.
package tileenc

import (
	"encoding/json"
	"log/slog"
	"math"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/pdok/pointtiles/mercator"
	"github.com/pdok/pointtiles/rollup"
)

const (
	// PixelResolution is the number of internal vector-tile units per tile
	// pixel: geometries are encoded at a higher resolution than the 0..255
	// pixel grid.
	PixelResolution = 16
	// Extent is the vector-tile coordinate extent.
	Extent = PixelResolution * mercator.TileSize

	layerVersion = 2

	// PointLayerName is the layer that point features are grouped into.
	PointLayerName = "main"

	// CountKey is the attribute carrying the number of collapsed points.
	CountKey = "count"
)

// Format is one of the supported output encodings. The zero value is not
// usable; obtain a Format via Lookup.
type Format struct {
	Extension   string
	ContentType string
	encode      func(e *Encoder, aggs []rollup.Aggregate) ([]byte, error)
}

var formats = map[string]Format{
	"pbf":  {Extension: "pbf", ContentType: "application/vnd.mapbox-vector-tile", encode: (*Encoder).encodeMVT},
	"bpbf": {Extension: "bpbf", ContentType: "text/plain", encode: (*Encoder).encodeBase64MVT},
	"txt":  {Extension: "txt", ContentType: "text/plain", encode: (*Encoder).encodeText},
	"wkb":  {Extension: "wkb", ContentType: "application/json", encode: (*Encoder).encodeWKBBundle},
}

// Lookup resolves a request extension to its Format. The mapping is total
// over the closed set of supported extensions; anything else is rejected
// with ok == false.
func Lookup(extension string) (Format, bool) {
	format, ok := formats[extension]
	return format, ok
}

// Encoder serializes aggregated feature sets. Features that fail validation
// are skipped with a warning on the given logger; a single bad feature never
// fails the whole tile.
type Encoder struct {
	logger *slog.Logger
}

func NewEncoder(logger *slog.Logger) *Encoder {
	return &Encoder{logger: logger}
}

// Encode serializes aggs in the given format. An empty input yields a valid,
// zero-feature payload of that format.
func (e *Encoder) Encode(format Format, aggs []rollup.Aggregate) ([]byte, error) {
	return format.encode(e, aggs)
}

// LayerName groups features into named layers: points share the "main"
// layer, any other geometry type gets its lowercased type name.
func LayerName(g orb.Geometry) string {
	if _, ok := g.(orb.Point); ok {
		return PointLayerName
	}
	return strings.ToLower(g.GeoJSONType())
}

// pixelGeometry is the aggregate's output geometry: a point at its
// tile-local pixel position.
func pixelGeometry(agg rollup.Aggregate) orb.Point {
	return orb.Point{float64(agg.Pixel.X()), float64(agg.Pixel.Y())}
}

// tags flattens an aggregate into the attribute map that gets encoded:
// the original properties plus the occurrence count.
func tags(agg rollup.Aggregate) geojson.Properties {
	properties := make(geojson.Properties, agg.Attributes.Len()+1)
	for pair := agg.Attributes.Oldest(); pair != nil; pair = pair.Next() {
		properties[pair.Key] = pair.Value
	}
	properties[CountKey] = agg.Count
	return properties
}

func validGeometry(g orb.Geometry) bool {
	if g == nil {
		return false
	}
	bound := g.Bound()
	for _, value := range []float64{bound.Min[0], bound.Min[1], bound.Max[0], bound.Max[1]} {
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return false
		}
	}
	return true
}

func attrsJSON(agg rollup.Aggregate) []byte {
	// a plain map marshals with sorted keys, which keeps debug output
	// deterministic
	data, err := json.Marshal(map[string]any(tags(agg)))
	if err != nil {
		data = []byte("{}")
	}
	return data
}
