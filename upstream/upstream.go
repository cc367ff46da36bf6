// Package upstream queries the data service that holds the point datasets.
// A dataset is queried with a SQL SELECT whose WHERE clause restricts the
// result to one tile's pixel window.
package upstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/pdok/pointtiles/mapslicehelp"
)

// RowStreamContentType marks an upstream response body as the binary
// length-prefixed row format instead of GeoJSON.
const RowStreamContentType = "application/x-rowstream"

const headerXRequestID = "X-Request-ID"

// QueryRequest is one upstream query. Headers holds client headers already
// filtered down to the configured forwarding whitelist.
type QueryRequest struct {
	Dataset   string
	Query     string
	Headers   map[string]string
	RequestID string
}

// QueryResponse is the raw upstream answer. The caller owns Body and must
// close it on every path, also for non-2xx result codes.
type QueryResponse struct {
	StatusCode  int
	ContentType string
	Body        io.ReadCloser
}

// Client queries the upstream data service.
type Client interface {
	Query(ctx context.Context, req QueryRequest) (*QueryResponse, error)
}

// HTTPClient posts queries to the upstream data service over HTTP.
type HTTPClient struct {
	baseURL string
	timeout time.Duration
	client  *fasthttp.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		timeout: timeout,
		client: &fasthttp.Client{
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
		},
	}
}

// Query posts the query text to <baseURL>/<dataset> and returns the raw
// response. The response body is buffered so the fasthttp response can be
// released before returning.
func (c *HTTPClient) Query(_ context.Context, queryReq QueryRequest) (*QueryResponse, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	c.buildRequest(req, queryReq)

	if err := c.client.DoTimeout(req, resp, c.timeout); err != nil {
		return nil, fmt.Errorf("upstream query for dataset %s: %w", queryReq.Dataset, err)
	}

	body, err := resp.BodyUncompressed()
	if err != nil {
		return nil, fmt.Errorf("upstream body for dataset %s: %w", queryReq.Dataset, err)
	}
	return &QueryResponse{
		StatusCode:  resp.StatusCode(),
		ContentType: string(resp.Header.ContentType()),
		Body:        io.NopCloser(bytes.NewReader(append([]byte(nil), body...))),
	}, nil
}

func (c *HTTPClient) buildRequest(req *fasthttp.Request, queryReq QueryRequest) {
	req.SetRequestURI(c.baseURL + "/" + queryReq.Dataset)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("text/plain")
	for name, value := range queryReq.Headers {
		req.Header.Set(name, value)
	}
	if queryReq.RequestID != "" {
		req.Header.Set(headerXRequestID, queryReq.RequestID)
	}
	req.SetBodyString(queryReq.Query)
}

// SelectQuery builds the SELECT that fetches one tile's worth of rows.
func SelectQuery(column, dataset, whereClause string) string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s", column, dataset, whereClause)
}

// FilterHeaders keeps only the headers whose names appear in the forwarding
// whitelist. Matching is exact.
func FilterHeaders(headers map[string]string, allowed []string) map[string]string {
	allowedSet := mapslicehelp.AsKeys(allowed)
	filtered := make(map[string]string)
	for name, value := range headers {
		if _, ok := allowedSet[name]; ok {
			filtered[name] = value
		}
	}
	return filtered
}
