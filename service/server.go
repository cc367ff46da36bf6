// Package service is the HTTP face of the tile server: routing, request
// parsing, response envelopes, and the render pipeline behind them.
package service

import (
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/carlmjohnson/versioninfo"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/pdok/pointtiles/features"
	"github.com/pdok/pointtiles/metrics"
	"github.com/pdok/pointtiles/tileaddr"
	"github.com/pdok/pointtiles/tileenc"
	"github.com/pdok/pointtiles/upstream"
)

// New builds the fiber app with all routes registered.
func New(config *Config, client upstream.Client, logger *slog.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "pointtiles",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(cors.New())
	app.Use(metrics.Middleware())

	pipeline := NewPipeline(client, tileenc.NewEncoder(logger), logger)

	app.Get("/health", healthHandler())
	app.Get("/version", func(c *fiber.Ctx) error {
		return c.SendString(versioninfo.Short())
	})
	app.Get("/metrics", metrics.Handler())
	app.Get("/tiles/:dataset/:column/:z/:x/:file", tileHandler(pipeline, config, logger))

	return app
}

func healthHandler() fiber.Handler {
	startedAt := time.Now()
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"uptime":  time.Since(startedAt).String(),
			"version": versioninfo.Short(),
		})
	}
}

// tileHandler parses /tiles/:dataset/:column/:z/:x/:file with file being
// "<y>.<extension>", validates the address, and hands off to the pipeline.
func tileHandler(pipeline *Pipeline, config *Config, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		zoom, err := strconv.ParseUint(c.Params("z"), 10, 32)
		if err != nil {
			return badRequest(c, "invalid zoom level", err)
		}
		x, err := strconv.Atoi(c.Params("x"))
		if err != nil || x < 0 {
			return badRequest(c, "invalid tile column", err)
		}
		rawY, extension, found := strings.Cut(c.Params("file"), ".")
		if !found {
			return badRequest(c, "missing tile extension", nil)
		}
		y, err := strconv.Atoi(rawY)
		if err != nil || y < 0 {
			return badRequest(c, "invalid tile row", err)
		}
		format, known := tileenc.Lookup(extension)
		if !known {
			return badRequest(c, "unsupported tile extension: "+extension, nil)
		}

		requestID, _ := c.Locals("requestid").(string)
		result, err := pipeline.Render(c.Context(), RenderRequest{
			Dataset:   c.Params("dataset"),
			Column:    c.Params("column"),
			Address:   tileaddr.New(uint(zoom), x, y),
			Format:    format,
			Headers:   upstream.FilterHeaders(requestHeaders(c), config.ForwardHeaders),
			RequestID: requestID,
		})
		if err != nil {
			logger.Error("tile render failed", "path", c.Path(), "requestid", requestID, "error", err)
			return internalError(c, err)
		}
		c.Set(fiber.HeaderContentType, result.ContentType)
		return c.Status(result.StatusCode).Send(result.Body)
	}
}

func requestHeaders(c *fiber.Ctx) map[string]string {
	headers := make(map[string]string)
	for name, values := range c.GetReqHeaders() {
		if len(values) > 0 {
			headers[name] = values[0]
		}
	}
	return headers
}

func badRequest(c *fiber.Ctx, message string, err error) error {
	failure := InternalFailure{Message: message}
	if err != nil {
		failure.Cause = err.Error()
	}
	return c.Status(fiber.StatusBadRequest).JSON(failure)
}

func internalError(c *fiber.Ctx, err error) error {
	failure := InternalFailure{Message: "failed to render tile", Cause: err.Error()}
	var invalidGeoJSON *features.InvalidGeoJSONError
	if errors.As(err, &invalidGeoJSON) {
		failure.InvalidJSON = invalidGeoJSON.Raw
		if !json.Valid(failure.InvalidJSON) {
			// the offending body itself may be malformed JSON; embed it as
			// a string so the envelope still serializes
			failure.InvalidJSON, _ = json.Marshal(string(invalidGeoJSON.Raw))
		}
	}
	return c.Status(fiber.StatusInternalServerError).JSON(failure)
}
