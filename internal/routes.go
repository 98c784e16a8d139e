package internal

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/karloscodes/cartridge"
	cartridgemiddleware "github.com/karloscodes/cartridge/middleware"

	v1 "machhrelay/api/v1"
	"machhrelay/internal/config"
	"machhrelay/internal/forms"
	"machhrelay/internal/relay"
	"machhrelay/internal/settings"
)

// publicCORSConfig returns the standard CORS configuration for public endpoints.
// All public endpoints share this permissive CORS setup for cross-origin access.
var publicCORSConfig = &cors.Config{
	AllowOrigins: "*",
	AllowMethods: "POST,GET,OPTIONS",
	AllowHeaders: "Origin, Content-Type, Accept, Referrer, User-Agent, X-MACHH-PAGE-URL",
}

// MountAppRoutes mounts all application routes using cartridge's route API
func MountAppRoutes(srv *cartridge.Server) {
	cfg := config.GetConfig()
	logger := srv.GetLogger()
	db := srv.GetDBManager().GetConnection()

	// The client key is resolved on every forward so a key rotation via the
	// CLI takes effect without a restart.
	relayClient := relay.NewClient(
		cfg.IngestBaseURL,
		cfg.RelayTimeout(),
		func() string { return settings.GetClientKey(db) },
		logger,
	)
	formManager := forms.NewManager()

	// Helper to conditionally apply rate limiting (only in production)
	// In development/test, rate limiting would interfere with testing
	conditionalRateLimiter := func(limiter fiber.Handler) fiber.Handler {
		return func(c *fiber.Ctx) error {
			if cfg.IsProduction() {
				return limiter(c)
			}
			return c.Next()
		}
	}

	// Rate limiter for the public collect API (70 requests per minute per IP)
	publicRateLimiter := conditionalRateLimiter(cartridgemiddleware.RateLimiter(
		cartridgemiddleware.WithMax(70),
		cartridgemiddleware.WithDuration(time.Minute),
	))

	// Public API config (event collection)
	// Rate limiting + CORS; CORS runs first ensuring 403 responses have CORS headers
	publicAPIConfig := &cartridge.RouteConfig{
		EnableCORS:       true,
		WriteConcurrency: false,
		CustomMiddleware: []fiber.Handler{publicRateLimiter},
		CORSConfig:       publicCORSConfig,
	}

	// Collector script delivery config
	// Rate limiting + CORS (no Sec-Fetch-Site needed for GET-only)
	collectorConfig := &cartridge.RouteConfig{
		EnableCORS:         true,
		CustomMiddleware:   []fiber.Handler{publicRateLimiter},
		CORSConfig:         publicCORSConfig,
		EnableSecFetchSite: cartridge.Bool(false),
	}

	// === ROOT ROUTES ===
	srv.Get("/_health", func(ctx *cartridge.Context) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	// === PUBLIC API ROUTES ===
	srv.Post("/x/api/v1/collect", v1.CollectHandler(relayClient), publicAPIConfig)
	srv.Options("/x/api/v1/collect", func(ctx *cartridge.Context) error {
		return ctx.SendStatus(fiber.StatusNoContent)
	}, publicAPIConfig)

	srv.Post("/x/api/v1/forms/:provider", v1.FormSubmissionHandler(formManager, relayClient), publicAPIConfig)
	srv.Options("/x/api/v1/forms/:provider", func(ctx *cartridge.Context) error {
		return ctx.SendStatus(fiber.StatusNoContent)
	}, publicAPIConfig)

	// === COLLECTOR SCRIPT ===
	srv.Get("/y/api/v1/collector.js", v1.GetCollectorAction, collectorConfig)
}
