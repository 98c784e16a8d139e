// Package classify decides whether a clicked element represents a conversion
// and which kind. Classification is a pure function of element state; rules
// are evaluated in a fixed order and the first match wins.
package classify

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"machhrelay/internal/patterns"
)

// maxLabelLength caps click labels in the outgoing payload.
const maxLabelLength = 100

// ClassifiedClick is the immutable result of classifying a click.
type ClassifiedClick struct {
	Type    patterns.ClickType
	Label   string
	URL     string
	Element string
}

// Classifier applies the registry tables to elements.
type Classifier struct {
	registry *patterns.Registry
}

// NewClassifier builds a classifier around the given tables.
func NewClassifier(registry *patterns.Registry) *Classifier {
	return &Classifier{registry: registry}
}

// Classify returns the classification for an element, or nil when the click
// is not conversion-relevant. Rule order: opt-out veto, explicit opt-in,
// protocol prefix, domain substring, CTA keyword.
func (c *Classifier) Classify(el *Element) *ClassifiedClick {
	if el == nil {
		return nil
	}

	if el.HasAttr(AttrIgnore) {
		return nil
	}

	if el.HasAttr(AttrTrack) {
		clickType := patterns.ClickTypeCustom
		if explicit := el.Attr(AttrTrackType); explicit != "" && patterns.ValidClickType(explicit) {
			clickType = patterns.ClickType(explicit)
		}
		return c.build(el, clickType)
	}

	if el.Href != "" {
		if clickType, ok := c.registry.MatchProtocol(el.Href); ok {
			return c.build(el, clickType)
		}
		if clickType, ok := c.registry.MatchDomain(el.Href); ok {
			return c.build(el, clickType)
		}
	}

	if c.registry.MatchKeyword(NormalizeLabel(c.label(el))) {
		return c.build(el, patterns.ClickTypeCTA)
	}

	return nil
}

func (c *Classifier) build(el *Element, clickType patterns.ClickType) *ClassifiedClick {
	return &ClassifiedClick{
		Type:    clickType,
		Label:   truncate(collapseWhitespace(c.label(el)), maxLabelLength),
		URL:     el.Href,
		Element: strings.ToLower(el.Tag),
	}
}

// label extracts the element's visible text with the fixed precedence:
// explicit label attribute, accessibility label, rendered text content.
func (c *Classifier) label(el *Element) string {
	if v := el.Attr(AttrLabel); v != "" {
		return v
	}
	if v := el.Attr(AttrAriaLabel); v != "" {
		return v
	}
	return el.Text
}

// NormalizeLabel lowercases, strips combining diacritical marks and trims the
// label for keyword matching ("Réservez" -> "reservez").
func NormalizeLabel(s string) string {
	lower := strings.ToLower(strings.TrimSpace(s))
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, lower)
	if err != nil {
		return collapseWhitespace(lower)
	}
	return collapseWhitespace(stripped)
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
