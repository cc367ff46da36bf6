package features

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb/geojson"
)

var jsonNull = []byte("null")

// NewGeoJSONIterator decodes body as a GeoJSON feature or feature collection
// and yields its features in document order. The individual features are
// decoded one at a time, as the iterator is advanced.
func NewGeoJSONIterator(body []byte) Iterator {
	var envelope struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return &geoJSONIterator{err: &InvalidGeoJSONError{Raw: body, Reason: err.Error()}}
	}
	switch envelope.Type {
	case "FeatureCollection":
		return &geoJSONIterator{pending: envelope.Features}
	case "Feature":
		return &geoJSONIterator{pending: []json.RawMessage{body}}
	default:
		return &geoJSONIterator{err: &InvalidGeoJSONError{
			Raw:    body,
			Reason: fmt.Sprintf("expected a Feature or FeatureCollection, got type %q", envelope.Type),
		}}
	}
}

type geoJSONIterator struct {
	pending []json.RawMessage
	cur     Feature
	err     error
}

func (it *geoJSONIterator) Next() bool {
	if it.err != nil || len(it.pending) == 0 {
		return false
	}
	raw := it.pending[0]
	it.pending = it.pending[1:]
	feature, err := decodeFeature(raw)
	if err != nil {
		it.err = err
		return false
	}
	it.cur = feature
	return true
}

func (it *geoJSONIterator) Feature() Feature { return it.cur }

func (it *geoJSONIterator) Err() error { return it.err }

func (it *geoJSONIterator) Close() error { return nil }

func decodeFeature(raw json.RawMessage) (Feature, error) {
	var doc struct {
		Type       string          `json:"type"`
		Geometry   json.RawMessage `json:"geometry"`
		Properties json.RawMessage `json:"properties"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Feature{}, &InvalidGeoJSONError{Raw: raw, Reason: err.Error()}
	}
	if doc.Type != "Feature" {
		return Feature{}, &InvalidGeoJSONError{Raw: raw, Reason: fmt.Sprintf("expected a Feature, got type %q", doc.Type)}
	}
	if len(doc.Geometry) == 0 || bytes.Equal(doc.Geometry, jsonNull) {
		return Feature{}, &InvalidGeoJSONError{Raw: raw, Reason: "feature has no geometry"}
	}
	geometry, err := geojson.UnmarshalGeometry(doc.Geometry)
	if err != nil {
		return Feature{}, &InvalidGeoJSONError{Raw: raw, Reason: err.Error()}
	}
	attributes := NewAttributes()
	if len(doc.Properties) > 0 && !bytes.Equal(doc.Properties, jsonNull) {
		// the ordered map keeps the document key order
		if err := json.Unmarshal(doc.Properties, attributes); err != nil {
			return Feature{}, &InvalidGeoJSONError{Raw: raw, Reason: err.Error()}
		}
	}
	return Feature{Geometry: geometry.Geometry(), Attributes: attributes}, nil
}
