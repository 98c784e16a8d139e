package forms

import (
	"encoding/json"
	"fmt"
	"strings"
)

// metformPayload is the native MetForm after-store callback shape. The
// attributes block can carry the declared email field name(s).
type metformPayload struct {
	FormID     json.Number    `json:"form_id"`
	FormName   string         `json:"form_name"`
	FormData   map[string]any `json:"form_data"`
	Attributes struct {
		EmailFieldName any `json:"email_field_name"`
	} `json:"attributes"`
}

// MetFormProvider maps MetForm submissions: a flat map whose field keys carry
// an "mf-" prefix that is stripped for the raw field map.
type MetFormProvider struct {
	excludedKeys     map[string]bool
	excludedPrefixes []string
	candidates       map[string][]string
}

// NewMetFormProvider builds the MetForm mapper.
func NewMetFormProvider() *MetFormProvider {
	return &MetFormProvider{
		excludedKeys: setOf(
			"id",
			"form_nonce",
			"action",
			"g-recaptcha-response",
			"g-recaptcha-response-v3",
			"mf-captcha-challenge",
			"hidden-fields",
			"mf-hcaptcha-response",
			"mf-turnstile-response",
		),
		excludedPrefixes: []string{"mf-recaptcha", "mf-hcaptcha", "mf-turnstile", "mf-captcha"},
		candidates: map[string][]string{
			"email":   {"email", "e-mail", "mail", "courriel", "mf-email"},
			"name":    {"name", "nom", "full-name", "fullname", "your-name", "mf-name", "mf-first-name", "mf-last-name"},
			"phone":   {"phone", "tel", "telephone", "mobile", "cell", "mf-phone", "mf-mobile"},
			"message": {"message", "msg", "comment", "comments", "your-message", "mf-textarea", "mf-message"},
		},
	}
}

func (p *MetFormProvider) Name() string { return "metform" }

// Parse implements Provider.
func (p *MetFormProvider) Parse(body []byte) (*Submission, error) {
	var payload metformPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("metform: invalid payload: %w", err)
	}
	if len(payload.FormData) == 0 {
		return nil, fmt.Errorf("metform: no form data available")
	}

	fields := CanonicalFields{
		Email:   p.emailFromAttributes(payload),
		Name:    findByCandidates(payload.FormData, p.candidates["name"]),
		Phone:   findByCandidates(payload.FormData, p.candidates["phone"]),
		Message: findByCandidates(payload.FormData, p.candidates["message"]),
	}
	if fields.Email == "" {
		fields.Email = findByCandidates(payload.FormData, p.candidates["email"])
	}

	return &Submission{
		FormID:   payload.FormID.String(),
		FormName: payload.FormName,
		Fields:   fields,
		Raw:      p.rawFields(payload.FormData),
	}, nil
}

// emailFromAttributes resolves the email via the declared email field name(s)
// before any candidate-key heuristics run.
func (p *MetFormProvider) emailFromAttributes(payload metformPayload) string {
	var keys []string
	switch declared := payload.Attributes.EmailFieldName.(type) {
	case string:
		if declared != "" {
			keys = []string{declared}
		}
	case []any:
		for _, item := range declared {
			if s, ok := item.(string); ok && s != "" {
				keys = append(keys, s)
			}
		}
	}
	for _, key := range keys {
		if v, ok := payload.FormData[key]; ok {
			if s := joinValue(v); s != "" {
				return sanitizeText(s)
			}
		}
	}
	return ""
}

func (p *MetFormProvider) rawFields(formData map[string]any) map[string]string {
	raw := make(map[string]string, len(formData))
	for key, v := range formData {
		if p.isExcluded(key) {
			continue
		}
		value := joinValue(v)
		if value == "" {
			continue
		}
		raw[strings.TrimPrefix(key, "mf-")] = sanitizeText(value)
	}
	return raw
}

func (p *MetFormProvider) isExcluded(key string) bool {
	if p.excludedKeys[key] {
		return true
	}
	for _, prefix := range p.excludedPrefixes {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}
