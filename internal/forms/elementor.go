package forms

import (
	"encoding/json"
	"fmt"
	"strings"
)

// elementorField is one entry of the Elementor Pro form record's fields map.
type elementorField struct {
	Type  string `json:"type"`
	Title string `json:"title"`
	Value any    `json:"value"`
}

// elementorPayload is the native Elementor Pro new-record callback shape.
type elementorPayload struct {
	FormSettings struct {
		ID       string `json:"id"`
		FormName string `json:"form_name"`
	} `json:"form_settings"`
	Fields map[string]elementorField `json:"fields"`
}

// ElementorProvider maps Elementor Pro form widget submissions. Elementor
// declares a type per field, so typed matching runs before the key/title
// fallback.
type ElementorProvider struct {
	excludedTypes  map[string]bool
	typeCandidates map[string][]string
	nameCandidates map[string][]string
}

// NewElementorProvider builds the Elementor Pro mapper.
func NewElementorProvider() *ElementorProvider {
	return &ElementorProvider{
		excludedTypes: setOf("recaptcha", "recaptcha_v3", "honeypot", "hcaptcha", "hidden", "step"),
		typeCandidates: map[string][]string{
			"email":   {"email"},
			"phone":   {"tel"},
			"message": {"textarea"},
		},
		nameCandidates: map[string][]string{
			"email":   {"email", "e-mail", "mail", "courriel"},
			"name":    {"name", "nom", "full-name", "fullname", "your-name", "first-name", "last-name", "prenom", "prénom"},
			"phone":   {"phone", "tel", "telephone", "téléphone", "mobile", "cell"},
			"message": {"message", "msg", "comment", "comments", "your-message", "textarea"},
		},
	}
}

func (p *ElementorProvider) Name() string { return "elementor" }

// Parse implements Provider.
func (p *ElementorProvider) Parse(body []byte) (*Submission, error) {
	var payload elementorPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("elementor: invalid payload: %w", err)
	}
	if len(payload.Fields) == 0 {
		return nil, fmt.Errorf("elementor: no fields data available")
	}

	return &Submission{
		FormID:   payload.FormSettings.ID,
		FormName: payload.FormSettings.FormName,
		Fields: CanonicalFields{
			Email:   p.findValue(payload.Fields, "email"),
			Name:    p.findValue(payload.Fields, "name"),
			Phone:   p.findValue(payload.Fields, "phone"),
			Message: p.findValue(payload.Fields, "message"),
		},
		Raw: p.rawFields(payload.Fields),
	}, nil
}

// findValue resolves a canonical field: declared field type first, then a
// substring match against the field id and title.
func (p *ElementorProvider) findValue(fields map[string]elementorField, role string) string {
	if types, ok := p.typeCandidates[role]; ok {
		for _, field := range fields {
			if !containsString(types, strings.ToLower(field.Type)) {
				continue
			}
			if s := joinValue(field.Value); s != "" {
				return sanitizeText(s)
			}
		}
	}

	for id, field := range fields {
		s := joinValue(field.Value)
		if s == "" {
			continue
		}
		idLower := strings.ToLower(id)
		titleLower := strings.ToLower(field.Title)
		for _, candidate := range p.nameCandidates[role] {
			if strings.Contains(idLower, candidate) || strings.Contains(titleLower, candidate) {
				return sanitizeText(s)
			}
		}
	}
	return ""
}

func (p *ElementorProvider) rawFields(fields map[string]elementorField) map[string]string {
	raw := make(map[string]string, len(fields))
	for id, field := range fields {
		if p.excludedTypes[strings.ToLower(field.Type)] {
			continue
		}
		value := joinValue(field.Value)
		if value == "" {
			continue
		}
		key := slugify(field.Title)
		if key == "" {
			key = id
		}
		raw[key] = sanitizeText(value)
	}
	return raw
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
