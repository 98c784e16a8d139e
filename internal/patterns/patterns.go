// Package patterns holds the static classification tables used to decide
// whether a click is conversion-relevant. The tables are immutable and are
// injected into the classifier at construction time.
package patterns

import "strings"

// ClickType tags a conversion-relevant click.
type ClickType string

const (
	ClickTypePhoneCall  ClickType = "phone_call"
	ClickTypeEmailClick ClickType = "email_click"
	ClickTypeSMS        ClickType = "sms"
	ClickTypeWhatsApp   ClickType = "whatsapp"
	ClickTypeDirections ClickType = "directions"
	ClickTypeBooking    ClickType = "booking"
	ClickTypeCTA        ClickType = "cta_click"
	ClickTypeCustom     ClickType = "custom"
)

// allowedClickTypes is the closed set accepted at the relay boundary.
var allowedClickTypes = map[ClickType]bool{
	ClickTypePhoneCall:  true,
	ClickTypeEmailClick: true,
	ClickTypeSMS:        true,
	ClickTypeWhatsApp:   true,
	ClickTypeDirections: true,
	ClickTypeBooking:    true,
	ClickTypeCTA:        true,
	ClickTypeCustom:     true,
}

// ValidClickType reports whether s is one of the whitelisted click types.
func ValidClickType(s string) bool {
	return allowedClickTypes[ClickType(s)]
}

// ProtocolRule maps an exact URL scheme prefix to a click type.
type ProtocolRule struct {
	Prefix string
	Type   ClickType
}

// DomainRule maps a domain substring to a click type. Rules are evaluated in
// registration order and the first containment match wins.
type DomainRule struct {
	Substring string
	Type      ClickType
}

// Registry bundles the protocol, domain and CTA keyword tables.
type Registry struct {
	Protocols []ProtocolRule
	Domains   []DomainRule
	Keywords  []string
}

// MatchProtocol returns the click type for a target starting with a registered
// protocol prefix (case-insensitive), or "" when no prefix matches.
func (r *Registry) MatchProtocol(target string) (ClickType, bool) {
	lower := strings.ToLower(target)
	for _, rule := range r.Protocols {
		if strings.HasPrefix(lower, rule.Prefix) {
			return rule.Type, true
		}
	}
	return "", false
}

// MatchDomain returns the click type for the first domain rule whose substring
// appears in the target (case-insensitive).
func (r *Registry) MatchDomain(target string) (ClickType, bool) {
	lower := strings.ToLower(target)
	for _, rule := range r.Domains {
		if strings.Contains(lower, rule.Substring) {
			return rule.Type, true
		}
	}
	return "", false
}

// MatchKeyword reports whether the normalized label matches any CTA keyword.
// The containment check is symmetric: either the label contains the keyword,
// or (for labels of at least 4 characters) a keyword contains the whole label.
// The reverse direction covers abbreviated button texts; it can over-match very
// short ambiguous labels, which matches the behavior this table was built for.
func (r *Registry) MatchKeyword(normalizedLabel string) bool {
	if len(normalizedLabel) < 3 {
		return false
	}
	for _, kw := range r.Keywords {
		if strings.Contains(normalizedLabel, kw) {
			return true
		}
		if len(normalizedLabel) >= 4 && strings.Contains(kw, normalizedLabel) {
			return true
		}
	}
	return false
}

// Default returns the built-in classification tables.
func Default() *Registry {
	return &Registry{
		Protocols: []ProtocolRule{
			{Prefix: "tel:", Type: ClickTypePhoneCall},
			{Prefix: "mailto:", Type: ClickTypeEmailClick},
			{Prefix: "sms:", Type: ClickTypeSMS},
			{Prefix: "whatsapp:", Type: ClickTypeWhatsApp},
		},
		Domains: []DomainRule{
			{Substring: "google.com/maps", Type: ClickTypeDirections},
			{Substring: "maps.google.", Type: ClickTypeDirections},
			{Substring: "goo.gl/maps", Type: ClickTypeDirections},
			{Substring: "maps.apple.com", Type: ClickTypeDirections},
			{Substring: "waze.com", Type: ClickTypeDirections},
			{Substring: "wa.me", Type: ClickTypeWhatsApp},
			{Substring: "api.whatsapp.com", Type: ClickTypeWhatsApp},
			{Substring: "calendly.com", Type: ClickTypeBooking},
			{Substring: "cal.com", Type: ClickTypeBooking},
			{Substring: "doctolib.", Type: ClickTypeBooking},
			{Substring: "planity.com", Type: ClickTypeBooking},
			{Substring: "treatwell.", Type: ClickTypeBooking},
			{Substring: "booking.com", Type: ClickTypeBooking},
			{Substring: "resy.com", Type: ClickTypeBooking},
			{Substring: "opentable.", Type: ClickTypeBooking},
			{Substring: "thefork.", Type: ClickTypeBooking},
			{Substring: "zenchef.", Type: ClickTypeBooking},
			{Substring: "acuityscheduling.com", Type: ClickTypeBooking},
		},
		Keywords: defaultKeywords,
	}
}

// defaultKeywords are lowercase CTA phrases, French first then English,
// matching the normalized (diacritics stripped) label form.
var defaultKeywords = []string{
	// French
	"contactez-nous",
	"contactez nous",
	"nous contacter",
	"contacter",
	"prendre rendez-vous",
	"prendre rdv",
	"rendez-vous",
	"reserver",
	"reservez",
	"reservation",
	"demander un devis",
	"demandez un devis",
	"devis gratuit",
	"obtenir un devis",
	"devis",
	"appelez-nous",
	"appeler",
	"nous appeler",
	"telephoner",
	"envoyer un message",
	"envoyer",
	"s'inscrire",
	"inscrivez-vous",
	"inscription",
	"acheter",
	"ajouter au panier",
	"commander",
	"commandez",
	"essai gratuit",
	"en savoir plus",
	"je m'inscris",
	"souscrire",
	// English
	"contact us",
	"contact",
	"get in touch",
	"book now",
	"book a call",
	"book an appointment",
	"schedule a call",
	"schedule",
	"make an appointment",
	"get a quote",
	"request a quote",
	"free quote",
	"quote",
	"call us",
	"call now",
	"send message",
	"send a message",
	"sign up",
	"signup",
	"subscribe",
	"register",
	"buy now",
	"add to cart",
	"order now",
	"checkout",
	"get started",
	"free trial",
	"learn more",
}
