package upstream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/valyala/fasthttp"
)

func TestHTTPClient_buildRequest(t *testing.T) {
	client := NewHTTPClient("http://data.internal", 5*time.Second)
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)

	client.buildRequest(req, QueryRequest{
		Dataset:   "trees",
		Query:     "SELECT location FROM trees WHERE 1=1",
		Headers:   map[string]string{"Authorization": "Bearer x"},
		RequestID: "req-1",
	})

	assert.Equal(t, "http://data.internal/trees", req.URI().String())
	assert.Equal(t, fasthttp.MethodPost, string(req.Header.Method()))
	assert.Equal(t, "req-1", string(req.Header.Peek("X-Request-ID")))
	assert.Equal(t, "Bearer x", string(req.Header.Peek("Authorization")))
	assert.Equal(t, "SELECT location FROM trees WHERE 1=1", string(req.Body()))
}

func TestHTTPClient_buildRequestWithoutRequestID(t *testing.T) {
	client := NewHTTPClient("http://data.internal", 5*time.Second)
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)

	client.buildRequest(req, QueryRequest{Dataset: "trees", Query: "SELECT 1"})

	assert.Empty(t, req.Header.Peek("X-Request-ID"))
}

func TestSelectQuery(t *testing.T) {
	query := SelectQuery("location", "trees", "(location[0] >= 0) AND (location[0] < 256)")
	assert.Equal(t, "SELECT location FROM trees WHERE (location[0] >= 0) AND (location[0] < 256)", query)
}

func TestFilterHeaders(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		allowed []string
		want    map[string]string
	}{
		{
			name:    "keeps whitelisted",
			headers: map[string]string{"Authorization": "Bearer x", "Cookie": "session=1"},
			allowed: []string{"Authorization"},
			want:    map[string]string{"Authorization": "Bearer x"},
		},
		{
			name:    "empty whitelist forwards nothing",
			headers: map[string]string{"Authorization": "Bearer x"},
			allowed: nil,
			want:    map[string]string{},
		},
		{
			name:    "matching is exact",
			headers: map[string]string{"authorization": "Bearer x"},
			allowed: []string{"Authorization"},
			want:    map[string]string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterHeaders(tt.headers, tt.allowed))
		})
	}
}
