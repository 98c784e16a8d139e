package patterns

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidClickType(t *testing.T) {
	for _, valid := range []string{
		"phone_call", "email_click", "sms", "whatsapp",
		"directions", "booking", "cta_click", "custom",
	} {
		assert.True(t, ValidClickType(valid), valid)
	}

	for _, invalid := range []string{"", "pageview", "click", "PHONE_CALL", "phone call"} {
		assert.False(t, ValidClickType(invalid), invalid)
	}
}

func TestMatchProtocol(t *testing.T) {
	registry := Default()

	tests := []struct {
		name   string
		target string
		want   ClickType
		ok     bool
	}{
		{name: "tel link", target: "tel:+33612345678", want: ClickTypePhoneCall, ok: true},
		{name: "tel uppercase", target: "TEL:+33612345678", want: ClickTypePhoneCall, ok: true},
		{name: "mailto", target: "mailto:hello@example.com", want: ClickTypeEmailClick, ok: true},
		{name: "sms", target: "sms:+33612345678", want: ClickTypeSMS, ok: true},
		{name: "whatsapp scheme", target: "whatsapp://send?phone=336", want: ClickTypeWhatsApp, ok: true},
		{name: "https is not a protocol rule", target: "https://example.com", ok: false},
		{name: "protocol mid-string does not match", target: "https://example.com/tel:123", ok: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, ok := registry.MatchProtocol(tc.target)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestMatchDomain(t *testing.T) {
	registry := Default()

	tests := []struct {
		name   string
		target string
		want   ClickType
		ok     bool
	}{
		{name: "google maps", target: "https://www.google.com/maps/place/Paris", want: ClickTypeDirections, ok: true},
		{name: "maps google subdomain", target: "https://maps.google.fr/?q=paris", want: ClickTypeDirections, ok: true},
		{name: "apple maps", target: "https://maps.apple.com/?q=paris", want: ClickTypeDirections, ok: true},
		{name: "wa.me short link", target: "https://wa.me/33612345678", want: ClickTypeWhatsApp, ok: true},
		{name: "calendly", target: "https://calendly.com/acme/30min", want: ClickTypeBooking, ok: true},
		{name: "doctolib fr tld", target: "https://www.doctolib.fr/dentiste/paris", want: ClickTypeBooking, ok: true},
		{name: "case insensitive", target: "https://CALENDLY.COM/acme", want: ClickTypeBooking, ok: true},
		{name: "unrelated domain", target: "https://example.com/about", ok: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, ok := registry.MatchDomain(tc.target)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestMatchDomainOrderFirstWins(t *testing.T) {
	registry := &Registry{
		Domains: []DomainRule{
			{Substring: "example.com/book", Type: ClickTypeBooking},
			{Substring: "example.com", Type: ClickTypeDirections},
		},
	}

	got, ok := registry.MatchDomain("https://example.com/booking")
	assert.True(t, ok)
	assert.Equal(t, ClickTypeBooking, got)
}

func TestMatchKeyword(t *testing.T) {
	registry := Default()

	tests := []struct {
		name  string
		label string
		want  bool
	}{
		{name: "exact english", label: "contact us", want: true},
		{name: "keyword inside label", label: "click here to book now today", want: true},
		{name: "french devis", label: "demander un devis", want: true},
		{name: "label inside keyword", label: "rendez", want: true},
		{name: "too short", label: "ok", want: false},
		{name: "three chars not contained", label: "xyz", want: false},
		{name: "unrelated", label: "read the documentation changelog", want: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, registry.MatchKeyword(tc.label))
		})
	}
}

func TestMatchKeywordReverseNeedsFourChars(t *testing.T) {
	registry := &Registry{Keywords: []string{"subscribe"}}

	// "sub" is contained in "subscribe" but is only 3 chars, the reverse
	// direction requires at least 4
	assert.False(t, registry.MatchKeyword("sub"))
	assert.True(t, registry.MatchKeyword("subs"))
}
