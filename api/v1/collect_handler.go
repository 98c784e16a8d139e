package v1

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"machhrelay/internal/devices"
	"machhrelay/internal/normalize"
	"machhrelay/internal/patterns"
	"machhrelay/internal/relay"
	"machhrelay/internal/settings"
	"machhrelay/internal/sites"
)

// Form actions accepted by the collect endpoint.
const (
	ActionPageview = "machh_pageview"
	ActionClick    = "machh_click"
)

const (
	errTrackingDisabled = "Tracking disabled"
	errMissingURL       = "Missing url"
	errInvalidClickType = "Invalid click_type"
	errUnknownAction    = "Unknown action"
)

// Page paths never worth forwarding: CMS internals and crawler targets.
var ignoredPathPrefixes = []string{
	"/wp-admin",
	"/wp-json",
	"/wp-login.php",
	"/wp-cron.php",
}

var ignoredPaths = map[string]bool{
	"/sitemap.xml": true,
	"/robots.txt":  true,
	"/favicon.ico": true,
}

// CollectHandler receives browser-collector events as form-encoded POSTs
// and forwards them to the ingestion API. Dispatch is on the "action" field.
func CollectHandler(relayClient *relay.Client) func(*cartridge.Context) error {
	return func(ctx *cartridge.Context) error {
		action := formValue(ctx.Ctx, "action")
		ctx.Logger.Debug("Received collect request",
			slog.String("action", action),
			slog.String("path", ctx.Path()))

		db := ctx.DBManager.GetConnection()
		if !settings.IsTrackingEnabled(db) {
			return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"data":    fiber.Map{"message": errTrackingDisabled},
			})
		}

		pageURL := formValue(ctx.Ctx, "url")
		if pageURL == "" {
			return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"data":    fiber.Map{"message": errMissingURL},
			})
		}

		if isIgnoredPage(pageURL) {
			ctx.Logger.Debug("Skipping ignored page", slog.String("url", pageURL))
			return ctx.Status(http.StatusOK).JSON(fiber.Map{
				"success": true,
				"data":    fiber.Map{"skipped": true},
			})
		}

		if err := validateSiteOrigin(ctx, pageURL); err != nil {
			return handleError(ctx.Ctx, err)
		}

		env := buildEnvelope(ctx, pageURL)

		switch action {
		case ActionPageview:
			res, err := relayClient.SendPageview(normalize.Pageview(env))
			return forwardResult(ctx, res, err)

		case ActionClick:
			clickType := formValue(ctx.Ctx, "click_type")
			if !patterns.ValidClickType(clickType) {
				return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
					"success": false,
					"data":    fiber.Map{"message": errInvalidClickType},
				})
			}
			payload := normalize.Click(env,
				clickType,
				formValue(ctx.Ctx, "click_label"),
				formValue(ctx.Ctx, "click_url"),
				formValue(ctx.Ctx, "click_element"))
			res, err := relayClient.SendClick(payload)
			return forwardResult(ctx, res, err)

		default:
			return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"data":    fiber.Map{"message": errUnknownAction},
			})
		}
	}
}

// buildEnvelope assembles the shared event context from the request: identity
// cookies, attribution from the page URL, transport metadata.
func buildEnvelope(ctx *cartridge.Context, pageURL string) normalize.Envelope {
	userAgent := ctx.Get("User-Agent")
	if forwardedUA := ctx.Get("X-Forwarded-User-Agent"); forwardedUA != "" {
		userAgent = forwardedUA
	}

	return normalize.Envelope{
		DeviceID:   devices.ResolveID(ctx.Ctx.Cookies(devices.DeviceIDCookie)),
		URL:        pageURL,
		Referrer:   formValue(ctx.Ctx, "referrer"),
		SiteDomain: siteDomainFromURL(pageURL),
		UTM:        firstTouchOrCurrent(ctx, pageURL),
		UserAgent:  userAgent,
		IP:         getClientIP(ctx.Ctx),
		TS:         normalize.NowTS(),
	}
}

// firstTouchOrCurrent prefers the first-touch attribution cookie; when the
// visitor carries none, attribution falls back to the current page URL's
// campaign parameters.
func firstTouchOrCurrent(ctx *cartridge.Context, pageURL string) map[string]string {
	if utm := devices.FirstTouchUTM(ctx.Ctx.Cookies(devices.UTMCookie)); utm != nil {
		return utm
	}
	return normalize.ExtractUTM(pageURL)
}

// forwardResult maps the relay outcome onto the collect response. Transport
// failures degrade softly: the caller still gets a success body so the
// browser never retries or surfaces an error to the visitor.
func forwardResult(ctx *cartridge.Context, result *relay.Result, err error) error {
	if err != nil {
		ctx.Logger.Warn("Forward failed", slog.Any("error", err))
		return ctx.Status(http.StatusOK).JSON(fiber.Map{
			"success": true,
			"data":    fiber.Map{"ok": false},
		})
	}

	return ctx.Status(http.StatusOK).JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"ok":     result.StatusCode >= 200 && result.StatusCode < 300,
			"status": result.StatusCode,
		},
	})
}

func formValue(c *fiber.Ctx, key string) string {
	return strings.TrimSpace(c.FormValue(key))
}

func siteDomainFromURL(pageURL string) string {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	return normalize.SiteDomain(parsed.Hostname())
}

func isIgnoredPage(pageURL string) bool {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return false
	}
	path := parsed.Path
	if ignoredPaths[path] {
		return true
	}
	for _, prefix := range ignoredPathPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func handleError(c *fiber.Ctx, err error) error {
	if fiberErr, ok := err.(*fiber.Error); ok {
		return c.Status(fiberErr.Code).JSON(fiber.Map{
			"success": false,
			"data":    fiber.Map{"message": fiberErr.Message},
		})
	}

	return c.Status(http.StatusUnprocessableEntity).JSON(fiber.Map{
		"success": false,
		"data":    fiber.Map{"message": "Invalid request"},
	})
}

// validateSiteOrigin checks the event's page URL against the registered
// sites. Unregistered domains are rejected before anything is forwarded.
func validateSiteOrigin(ctx *cartridge.Context, pageURL string) error {
	parsed, err := url.Parse(pageURL)
	if err != nil || parsed.Hostname() == "" {
		return fiber.NewError(http.StatusBadRequest, errMissingURL)
	}

	baseDomain := sites.BaseDomainForHost(parsed.Hostname())
	db := ctx.DBManager.GetConnection()
	if _, err := sites.GetSiteByDomain(db, baseDomain); err != nil {
		ctx.Logger.Debug("Event domain not registered",
			slog.String("url", pageURL),
			slog.String("baseDomain", baseDomain))
		return fiber.NewError(http.StatusForbidden, "Unregistered site")
	}
	return nil
}
