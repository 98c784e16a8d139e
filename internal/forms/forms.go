// Package forms maps heterogeneous form-plugin submissions into one canonical
// shape. Each supported plugin gets a Provider that knows how to discover the
// submitted field collection in that plugin's native callback payload; the
// mapping rules (exclusion lists, candidate key tables, emptiness handling)
// are shared.
package forms

import (
	"fmt"
	"strconv"
	"strings"
)

// CanonicalFields is the role-field quad every form submission is reduced to.
// A field the mapper cannot resolve stays an empty string; absence is not an
// error.
type CanonicalFields struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// Submission is the provider-independent result of mapping one form
// submission. Raw keeps every sanitized non-internal field, including the
// ones already mapped into Fields: forms legitimately carry custom fields
// beyond the role quad, so the duplication is intentional.
type Submission struct {
	FormID   string
	FormName string
	Fields   CanonicalFields
	Raw      map[string]string
}

// Provider parses one plugin family's native submission payload.
type Provider interface {
	// Name is the provider identifier used in the webhook path.
	Name() string
	// Parse maps the native payload to a Submission. It returns an error
	// when the field collection is absent or not a well-formed collection;
	// the caller logs and skips relay transmission in that case.
	Parse(body []byte) (*Submission, error)
}

// Manager is the provider registry.
type Manager struct {
	providers []Provider
}

// NewManager builds a registry with the default provider set.
func NewManager() *Manager {
	m := &Manager{}
	m.Add(NewCF7Provider())
	m.Add(NewElementorProvider())
	m.Add(NewWPFormsProvider())
	m.Add(NewMetFormProvider())
	return m
}

// Add appends a provider to the registry.
func (m *Manager) Add(p Provider) {
	m.providers = append(m.providers, p)
}

// Get returns the provider registered under name, or nil.
func (m *Manager) Get(name string) Provider {
	for _, p := range m.providers {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// Names lists the registered provider identifiers in registration order.
func (m *Manager) Names() []string {
	names := make([]string, 0, len(m.providers))
	for _, p := range m.providers {
		names = append(names, p.Name())
	}
	return names
}

// joinValue flattens a decoded JSON value to a string. Arrays are joined with
// ", " after dropping empty elements; note that "0" is a real value and is
// kept everywhere.
func joinValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			if s := joinValue(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprintf("%v", val)
	}
}

// sanitizeText strips control characters and collapses whitespace, the
// equivalent of the host platform's text-field sanitizer.
func sanitizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// slugify turns a human field title into a key ("Votre Email" -> "votre-email").
func slugify(s string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteRune('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// findByCandidates resolves a canonical field from a flat key/value
// collection using an ordered candidate list: exact key matches first, then
// case-insensitive substring matches against the keys. The first candidate
// that yields a non-empty value wins.
func findByCandidates(data map[string]any, candidates []string) string {
	for _, key := range candidates {
		if v, ok := data[key]; ok {
			if s := joinValue(v); s != "" {
				return sanitizeText(s)
			}
		}
	}
	for fieldKey, v := range data {
		s := joinValue(v)
		if s == "" {
			continue
		}
		lower := strings.ToLower(fieldKey)
		for _, candidate := range candidates {
			if strings.Contains(lower, candidate) {
				return sanitizeText(s)
			}
		}
	}
	return ""
}
