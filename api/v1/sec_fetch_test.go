package v1

import (
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	cartridgemiddleware "github.com/karloscodes/cartridge/middleware"
	"github.com/stretchr/testify/assert"
)

// newSecFetchApp wires the same Sec-Fetch-Site protection the collect
// endpoint runs behind in production: browser requests pass, bare
// server-to-server requests are blocked.
func newSecFetchApp() *fiber.App {
	app := fiber.New()

	strictSecFetchCheck := func(c *fiber.Ctx) error {
		if c.Method() == "POST" && c.Get("Sec-Fetch-Site") == "" {
			return c.SendStatus(fiber.StatusForbidden)
		}
		return c.Next()
	}

	secFetchForCollect := cartridgemiddleware.SecFetchSiteMiddleware(cartridgemiddleware.SecFetchSiteConfig{
		AllowedValues: []string{"cross-site", "same-site", "same-origin", "none"},
		Methods:       []string{"POST"},
	})

	app.Post("/x/api/v1/collect", strictSecFetchCheck, secFetchForCollect, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	return app
}

func collectForm() string {
	return url.Values{
		"action":   {ActionPageview},
		"url":      {"https://example.com/page"},
		"referrer": {"https://google.com"},
	}.Encode()
}

// TestSecFetchSiteProtection verifies that the Sec-Fetch-Site middleware
// blocks server-to-server requests while allowing legitimate browser requests
func TestSecFetchSiteProtection(t *testing.T) {
	app := newSecFetchApp()

	tests := []struct {
		name               string
		secFetchSiteHeader string
		expectedStatus     int
		description        string
	}{
		{
			name:               "Allow cross-site browser request",
			secFetchSiteHeader: "cross-site",
			expectedStatus:     fiber.StatusOK,
			description:        "Legitimate browser request from a tracked site",
		},
		{
			name:               "Allow same-site browser request",
			secFetchSiteHeader: "same-site",
			expectedStatus:     fiber.StatusOK,
			description:        "Browser request from same site (subdomain)",
		},
		{
			name:               "Allow same-origin browser request",
			secFetchSiteHeader: "same-origin",
			expectedStatus:     fiber.StatusOK,
			description:        "Browser request from same origin",
		},
		{
			name:               "Allow none (direct navigation)",
			secFetchSiteHeader: "none",
			expectedStatus:     fiber.StatusOK,
			description:        "Direct navigation (rare for POST but valid)",
		},
		{
			name:               "Block request without Sec-Fetch-Site (server-to-server)",
			secFetchSiteHeader: "",
			expectedStatus:     fiber.StatusForbidden,
			description:        "Server-to-server request (curl, Postman, scripts) - BLOCKED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/x/api/v1/collect", strings.NewReader(collectForm()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			req.Header.Set("User-Agent", "Mozilla/5.0 (Test Browser)")
			req.Header.Set("Origin", "https://example.com")

			if tt.secFetchSiteHeader != "" {
				req.Header.Set("Sec-Fetch-Site", tt.secFetchSiteHeader)
			}

			resp, err := app.Test(req, -1)
			assert.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode, tt.description)
		})
	}
}

// TestServerToServerBlocking demonstrates that common spoofing attempts are blocked
func TestServerToServerBlocking(t *testing.T) {
	app := newSecFetchApp()

	spoofingAttempts := []struct {
		name        string
		userAgent   string
		description string
	}{
		{
			name:        "curl request",
			userAgent:   "curl/7.68.0",
			description: "curl command with spoofed Origin header",
		},
		{
			name:        "Postman request",
			userAgent:   "PostmanRuntime/7.29.0",
			description: "Postman API client",
		},
		{
			name:        "Python requests",
			userAgent:   "python-requests/2.28.1",
			description: "Python script using requests library",
		},
		{
			name:        "Node.js fetch",
			userAgent:   "node-fetch/1.0",
			description: "Node.js server-side fetch",
		},
		{
			name:        "wget request",
			userAgent:   "Wget/1.20.3",
			description: "wget command",
		},
	}

	for _, attempt := range spoofingAttempts {
		t.Run(attempt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/x/api/v1/collect", strings.NewReader(collectForm()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			req.Header.Set("User-Agent", attempt.userAgent)
			req.Header.Set("Origin", "https://example.com")

			// Sec-Fetch-Site is NOT set; server-side clients cannot send it

			resp, err := app.Test(req, -1)
			assert.NoError(t, err)
			assert.Equal(t, fiber.StatusForbidden, resp.StatusCode,
				"Should block %s", attempt.description)
		})
	}
}
