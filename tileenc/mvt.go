package tileenc

import (
	"encoding/base64"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"

	"github.com/pdok/pointtiles/rollup"
)

// encodeMVT serializes the aggregates as a Mapbox Vector Tile. Pixel
// positions are scaled to the internal extent so sub-pixel precision
// survives later processing of the tile.
func (e *Encoder) encodeMVT(aggs []rollup.Aggregate) ([]byte, error) {
	layerByName := make(map[string]*mvt.Layer)
	var layers mvt.Layers
	for _, agg := range aggs {
		point := pixelGeometry(agg)
		scaled := orb.Point{point[0] * PixelResolution, point[1] * PixelResolution}
		if !validGeometry(scaled) {
			e.logger.Warn("skipping feature that fails vector tile validation",
				"layer", LayerName(point), "pixel", agg.Pixel)
			continue
		}
		name := LayerName(point)
		layer, ok := layerByName[name]
		if !ok {
			layer = &mvt.Layer{Name: name, Version: layerVersion, Extent: Extent}
			layerByName[name] = layer
			layers = append(layers, layer)
		}
		feature := geojson.NewFeature(scaled)
		feature.Properties = tags(agg)
		layer.Features = append(layer.Features, feature)
	}
	return mvt.Marshal(layers)
}

func (e *Encoder) encodeBase64MVT(aggs []rollup.Aggregate) ([]byte, error) {
	data, err := e.encodeMVT(aggs)
	if err != nil {
		return nil, err
	}
	return []byte(base64.StdEncoding.EncodeToString(data)), nil
}
