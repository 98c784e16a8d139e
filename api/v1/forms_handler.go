package v1

import (
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"machhrelay/internal/forms"
	"machhrelay/internal/normalize"
	"machhrelay/internal/relay"
	"machhrelay/internal/settings"
)

// FormSubmissionHandler receives provider-shaped form payloads from the host
// integration and forwards the mapped submission to the ingestion API.
// Submissions are best-effort: an ill-formed payload is logged and skipped
// rather than bounced, so a misbehaving form plugin never breaks the site.
func FormSubmissionHandler(manager *forms.Manager, relayClient *relay.Client) func(*cartridge.Context) error {
	return func(ctx *cartridge.Context) error {
		providerName := ctx.Ctx.Params("provider")
		provider := manager.Get(providerName)
		if provider == nil {
			ctx.Logger.Warn("Unknown form provider", slog.String("provider", providerName))
			return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"data":    fiber.Map{"message": "Unknown provider"},
			})
		}

		db := ctx.DBManager.GetConnection()
		if !settings.IsTrackingEnabled(db) {
			return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"data":    fiber.Map{"message": errTrackingDisabled},
			})
		}

		pageURL := ctx.Get("X-MACHH-PAGE-URL")
		if pageURL != "" {
			if err := validateSiteOrigin(ctx, pageURL); err != nil {
				return handleError(ctx.Ctx, err)
			}
		}

		submission, err := provider.Parse(ctx.Body())
		if err != nil {
			ctx.Logger.Warn("Skipping ill-formed form submission",
				slog.String("provider", provider.Name()),
				slog.Any("error", err))
			return ctx.Status(http.StatusOK).JSON(fiber.Map{
				"success": true,
				"data":    fiber.Map{"skipped": true},
			})
		}

		env := buildEnvelope(ctx, pageURL)
		payload := normalize.Form(env,
			submission.FormID,
			submission.FormName,
			submission.Fields.Email,
			submission.Fields.Name,
			submission.Fields.Phone,
			submission.Fields.Message,
			submission.Raw)

		ctx.Logger.Info("Forwarding form submission",
			slog.String("provider", provider.Name()),
			slog.String("formId", submission.FormID))

		res, err := relayClient.SendFormSubmitted(payload)
		return forwardResult(ctx, res, err)
	}
}
