package features

import (
	"encoding/json"
	"fmt"
)

// InvalidGeoJSONError means the upstream body did not decode as a GeoJSON
// feature or feature collection. Raw carries the offending JSON.
type InvalidGeoJSONError struct {
	Raw    json.RawMessage
	Reason string
}

func (e *InvalidGeoJSONError) Error() string {
	return fmt.Sprintf("invalid geojson: %s", e.Reason)
}

// InvalidRowStreamError means the row-stream header is missing or does not
// contain a usable geometry_index. Header carries the decoded header, when
// one could be decoded at all.
type InvalidRowStreamError struct {
	Header map[string]any
	Reason string
}

func (e *InvalidRowStreamError) Error() string {
	return fmt.Sprintf("invalid row stream: %s", e.Reason)
}

// GeometryDecodeError means a row carried geometry bytes that are not
// well-known binary.
type GeometryDecodeError struct {
	Row int
	Err error
}

func (e *GeometryDecodeError) Error() string {
	return fmt.Sprintf("row %d: cannot decode geometry: %v", e.Row, e.Err)
}

func (e *GeometryDecodeError) Unwrap() error {
	return e.Err
}
