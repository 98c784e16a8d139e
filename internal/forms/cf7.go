package forms

import (
	"encoding/json"
	"fmt"
	"strings"
)

// cf7Payload is the native Contact Form 7 submission callback shape.
type cf7Payload struct {
	FormID     json.Number    `json:"form_id"`
	FormName   string         `json:"form_name"`
	PostedData map[string]any `json:"posted_data"`
}

// CF7Provider maps Contact Form 7 submissions: a flat posted-data map whose
// internal fields carry a "_wpcf7" prefix.
type CF7Provider struct {
	excludedKeys   map[string]bool
	internalPrefix string
	candidates     map[string][]string
}

// NewCF7Provider builds the Contact Form 7 mapper.
func NewCF7Provider() *CF7Provider {
	return &CF7Provider{
		excludedKeys: setOf(
			"_wpcf7",
			"_wpcf7_version",
			"_wpcf7_locale",
			"_wpcf7_unit_tag",
			"_wpcf7_container_post",
			"_wpcf7_posted_data_hash",
			"_wpcf7_recaptcha_response",
			"g-recaptcha-response",
			"captcha",
			"_wpnonce",
		),
		internalPrefix: "_wpcf7",
		candidates: map[string][]string{
			"email":   {"email", "your-email", "e-mail", "mail", "user-email", "contact-email"},
			"name":    {"name", "your-name", "nom", "full-name", "fullname", "user-name"},
			"phone":   {"phone", "tel", "your-tel", "telephone", "your-phone", "mobile"},
			"message": {"message", "your-message", "msg", "textarea", "comment", "your-comment"},
		},
	}
}

func (p *CF7Provider) Name() string { return "cf7" }

// Parse implements Provider.
func (p *CF7Provider) Parse(body []byte) (*Submission, error) {
	var payload cf7Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("cf7: invalid payload: %w", err)
	}
	if len(payload.PostedData) == 0 {
		return nil, fmt.Errorf("cf7: no posted data available")
	}

	return &Submission{
		FormID:   payload.FormID.String(),
		FormName: payload.FormName,
		Fields: CanonicalFields{
			Email:   p.findValue(payload.PostedData, p.candidates["email"]),
			Name:    p.findValue(payload.PostedData, p.candidates["name"]),
			Phone:   p.findValue(payload.PostedData, p.candidates["phone"]),
			Message: p.findValue(payload.PostedData, p.candidates["message"]),
		},
		Raw: p.rawFields(payload.PostedData),
	}, nil
}

// findValue checks candidate keys in order; CF7 field names are exact
// conventions ("your-email"), so only exact key matches are consulted.
func (p *CF7Provider) findValue(posted map[string]any, candidates []string) string {
	for _, key := range candidates {
		if v, ok := posted[key]; ok {
			if s := joinValue(v); s != "" {
				return sanitizeText(s)
			}
		}
	}
	return ""
}

func (p *CF7Provider) rawFields(posted map[string]any) map[string]string {
	raw := make(map[string]string, len(posted))
	for key, v := range posted {
		if p.isExcluded(key) {
			continue
		}
		value := joinValue(v)
		if value == "" {
			continue
		}
		raw[key] = sanitizeText(value)
	}
	return raw
}

func (p *CF7Provider) isExcluded(key string) bool {
	return p.excludedKeys[key] || strings.HasPrefix(key, p.internalPrefix)
}

func setOf(keys ...string) map[string]bool {
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set
}
