package v1

import (
	"bytes"
	_ "embed"
	"text/template"

	"github.com/gofiber/fiber/v2"
	"log/slog"

	"github.com/karloscodes/cartridge"
)

//go:embed collector.js
var collectorTemplate string

// GetCollectorAction serves the browser collector script, rendered with the
// relay's base URL and cached via strong ETags.
func GetCollectorAction(ctx *cartridge.Context) error {
	tmpl, err := template.New("./api/v1/collector.js").Parse(collectorTemplate)
	if err != nil {
		ctx.Logger.Error("Failed to parse collector template", slog.Any("error", err))
		return ctx.Status(fiber.StatusInternalServerError).SendString("Internal Server Error")
	}

	var buf bytes.Buffer
	data := map[string]string{
		"BaseURL": ctx.BaseURL(),
	}
	if err := tmpl.Execute(&buf, data); err != nil {
		ctx.Logger.Error("Failed to render collector template", slog.Any("error", err))
		return ctx.Status(fiber.StatusInternalServerError).SendString("Internal Server Error")
	}

	content := buf.Bytes()
	etag := generateETag(content)

	ifNoneMatch := ctx.Get("If-None-Match")
	if ifNoneMatch == etag {
		ctx.Logger.Debug("ETag match, returning 304",
			slog.String("etag", etag),
			slog.String("path", ctx.Path()))
		return ctx.Status(fiber.StatusNotModified).Send(nil) // No body for 304
	}

	ctx.Set("Content-Type", "application/javascript")
	ctx.Set("Cache-Control", "public, max-age=3600") // 1 hour
	ctx.Set("ETag", etag)
	ctx.Set("Cross-Origin-Resource-Policy", "cross-origin") // Allow cross-origin requests
	ctx.Logger.Debug("Serving collector with new ETag",
		slog.String("etag", etag),
		slog.String("path", ctx.Path()))
	return ctx.Send(content)
}
