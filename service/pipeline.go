package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/pdok/pointtiles/features"
	"github.com/pdok/pointtiles/metrics"
	"github.com/pdok/pointtiles/rollup"
	"github.com/pdok/pointtiles/tileaddr"
	"github.com/pdok/pointtiles/tileenc"
	"github.com/pdok/pointtiles/upstream"
)

// RenderRequest is one fully parsed and validated tile request.
type RenderRequest struct {
	Dataset   string
	Column    string
	Address   tileaddr.Address
	Format    tileenc.Format
	Headers   map[string]string
	RequestID string
}

// RenderResult is the response to send: already the right body and content
// type for whatever branch the upstream answer selected.
type RenderResult struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Pipeline turns a tile request into a response: query upstream, decode the
// body, fold the features into pixel aggregates, encode the tile.
type Pipeline struct {
	upstream upstream.Client
	encoder  *tileenc.Encoder
	logger   *slog.Logger
}

func NewPipeline(client upstream.Client, encoder *tileenc.Encoder, logger *slog.Logger) *Pipeline {
	return &Pipeline{upstream: client, encoder: encoder, logger: logger}
}

// Render runs the pipeline. A non-nil error means this service failed; an
// upstream non-success answer is not an error but an echo RenderResult.
func (p *Pipeline) Render(ctx context.Context, req RenderRequest) (*RenderResult, error) {
	query := upstream.SelectQuery(req.Column, req.Dataset, req.Address.WithinBoxClause(req.Column))
	resp, err := p.upstream.Query(ctx, upstream.QueryRequest{
		Dataset:   req.Dataset,
		Query:     query,
		Headers:   req.Headers,
		RequestID: req.RequestID,
	})
	if err != nil {
		return nil, fmt.Errorf("querying upstream: %w", err)
	}
	defer resp.Body.Close()
	metrics.UpstreamResponses.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return p.renderTile(req, resp)
	case resp.StatusCode == fiber.StatusNotModified:
		// upstream says nothing changed, answer with an empty tile
		body, err := p.encoder.Encode(req.Format, nil)
		if err != nil {
			return nil, fmt.Errorf("encoding empty tile: %w", err)
		}
		return &RenderResult{StatusCode: fiber.StatusOK, ContentType: req.Format.ContentType, Body: body}, nil
	default:
		return p.echo(resp)
	}
}

func (p *Pipeline) renderTile(req RenderRequest, resp *upstream.QueryResponse) (*RenderResult, error) {
	it, err := p.newIterator(resp)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	aggs, err := rollup.Rollup(req.Address, it)
	if err != nil {
		return nil, fmt.Errorf("aggregating features: %w", err)
	}
	for _, agg := range aggs {
		metrics.FeaturesAggregated.Add(float64(agg.Count))
	}

	body, err := p.encoder.Encode(req.Format, aggs)
	if err != nil {
		return nil, fmt.Errorf("encoding tile: %w", err)
	}
	metrics.TilesRendered.WithLabelValues(req.Format.Extension).Inc()
	p.logger.Debug("rendered tile",
		"dataset", req.Dataset, "zoom", req.Address.Zoom, "x", req.Address.X, "y", req.Address.Y,
		"format", req.Format.Extension, "aggregates", len(aggs))
	return &RenderResult{StatusCode: fiber.StatusOK, ContentType: req.Format.ContentType, Body: body}, nil
}

// newIterator picks the decoder for the upstream content type. GeoJSON is
// the default; only the row-stream type selects the binary decoder.
func (p *Pipeline) newIterator(resp *upstream.QueryResponse) (features.Iterator, error) {
	if strings.HasPrefix(resp.ContentType, upstream.RowStreamContentType) {
		return features.NewRowStreamIterator(resp.Body), nil
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading upstream body: %w", err)
	}
	return features.NewGeoJSONIterator(body), nil
}

func (p *Pipeline) echo(resp *upstream.QueryResponse) (*RenderResult, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading upstream body: %w", err)
	}
	payload, err := json.Marshal(EchoPayload{
		Underlying: UnderlyingResponse{ResultCode: resp.StatusCode, Body: string(body)},
	})
	if err != nil {
		return nil, err
	}
	p.logger.Warn("echoing upstream response", "resultCode", resp.StatusCode)
	return &RenderResult{StatusCode: fiber.StatusOK, ContentType: fiber.MIMEApplicationJSON, Body: payload}, nil
}
