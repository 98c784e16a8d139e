package forms

import (
	"encoding/json"
	"fmt"
	"strings"
)

// wpformsField is one sanitized entry field of a WPForms submission.
type wpformsField struct {
	ID       json.Number `json:"id"`
	Type     string      `json:"type"`
	Name     string      `json:"name"`
	Value    any         `json:"value"`
	ValueRaw any         `json:"value_raw"`
}

// wpformsPayload is the native WPForms process-complete callback shape.
type wpformsPayload struct {
	FormData struct {
		ID       json.Number `json:"id"`
		Settings struct {
			FormTitle string `json:"form_title"`
		} `json:"settings"`
	} `json:"form_data"`
	Fields []wpformsField `json:"fields"`
}

// WPFormsProvider maps WPForms submissions: a list of typed fields where the
// raw value preserves original formatting when present.
type WPFormsProvider struct {
	excludedTypes  map[string]bool
	typeCandidates map[string][]string
	nameCandidates map[string][]string
}

// NewWPFormsProvider builds the WPForms mapper.
func NewWPFormsProvider() *WPFormsProvider {
	return &WPFormsProvider{
		excludedTypes: setOf("captcha", "hcaptcha", "turnstile", "divider", "html", "pagebreak", "hidden"),
		typeCandidates: map[string][]string{
			"email":   {"email"},
			"name":    {"name"},
			"phone":   {"phone"},
			"message": {"textarea"},
		},
		nameCandidates: map[string][]string{
			"email":   {"email", "e-mail", "mail", "courriel"},
			"name":    {"name", "nom", "full-name", "fullname", "your-name"},
			"phone":   {"phone", "tel", "telephone", "mobile", "cell"},
			"message": {"message", "msg", "comment", "comments", "your-message"},
		},
	}
}

func (p *WPFormsProvider) Name() string { return "wpforms" }

// Parse implements Provider.
func (p *WPFormsProvider) Parse(body []byte) (*Submission, error) {
	var payload wpformsPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("wpforms: invalid payload: %w", err)
	}
	if len(payload.Fields) == 0 {
		return nil, fmt.Errorf("wpforms: no fields data available")
	}

	return &Submission{
		FormID:   payload.FormData.ID.String(),
		FormName: payload.FormData.Settings.FormTitle,
		Fields: CanonicalFields{
			Email:   p.findValue(payload.Fields, "email"),
			Name:    p.findValue(payload.Fields, "name"),
			Phone:   p.findValue(payload.Fields, "phone"),
			Message: p.findValue(payload.Fields, "message"),
		},
		Raw: p.rawFields(payload.Fields),
	}, nil
}

// fieldValue prefers value_raw over value; both flatten through joinValue.
func fieldValue(field wpformsField) string {
	if s := joinValue(field.ValueRaw); s != "" {
		return s
	}
	return joinValue(field.Value)
}

// findValue resolves a canonical field by declared WPForms field type first,
// then falls back to a substring match on the field name.
func (p *WPFormsProvider) findValue(fields []wpformsField, role string) string {
	if types, ok := p.typeCandidates[role]; ok {
		for _, field := range fields {
			if !containsString(types, strings.ToLower(field.Type)) {
				continue
			}
			if s := fieldValue(field); s != "" {
				return sanitizeText(s)
			}
		}
	}

	for _, field := range fields {
		if field.Name == "" {
			continue
		}
		s := fieldValue(field)
		if s == "" {
			continue
		}
		nameLower := strings.ToLower(field.Name)
		for _, candidate := range p.nameCandidates[role] {
			if strings.Contains(nameLower, candidate) {
				return sanitizeText(s)
			}
		}
	}
	return ""
}

func (p *WPFormsProvider) rawFields(fields []wpformsField) map[string]string {
	raw := make(map[string]string, len(fields))
	for _, field := range fields {
		if field.Type == "" || field.Name == "" && field.ID.String() == "" {
			continue
		}
		if p.excludedTypes[strings.ToLower(field.Type)] {
			continue
		}
		value := fieldValue(field)
		if value == "" {
			continue
		}
		key := slugify(field.Name)
		if key == "" {
			key = "field_" + field.ID.String()
		}
		raw[key] = sanitizeText(value)
	}
	return raw
}
