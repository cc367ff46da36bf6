package service

import "encoding/json"

// InternalFailure is the JSON body for requests this service could not
// handle itself, both client errors (400) and pipeline failures (500).
// InvalidJSON carries the offending upstream payload when the failure was a
// GeoJSON decode error.
type InternalFailure struct {
	Message     string          `json:"message"`
	Cause       string          `json:"cause,omitempty"`
	InvalidJSON json.RawMessage `json:"invalidJson,omitempty"`
}

// UnderlyingResponse echoes an upstream result that was neither success nor
// not-modified, so callers can see what the data service answered.
type UnderlyingResponse struct {
	ResultCode int    `json:"resultCode"`
	Body       string `json:"body"`
}

// EchoPayload wraps an UnderlyingResponse in the response body.
type EchoPayload struct {
	Underlying UnderlyingResponse `json:"underlying"`
}
