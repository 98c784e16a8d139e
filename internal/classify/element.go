package classify

import "strings"

// Attribute names the tracker recognizes on elements.
const (
	AttrIgnore    = "data-machh-ignore"
	AttrTrack     = "data-machh-track"
	AttrTrackType = "data-machh-type"
	AttrLabel     = "data-machh-label"
	AttrAriaLabel = "aria-label"
	AttrRole      = "role"
)

// maxAncestorWalk bounds the climb from a click target to the nearest
// trackable element.
const maxAncestorWalk = 10

// Element is a DOM-like view of a clicked UI element. It only carries the
// state the classifier inspects: identity, target, visible text and the
// opt-in/opt-out attributes.
type Element struct {
	Tag    string
	Href   string
	Text   string
	Attrs  map[string]string
	Parent *Element
}

// Attr returns the value of an attribute, or "".
func (e *Element) Attr(name string) string {
	if e.Attrs == nil {
		return ""
	}
	return e.Attrs[name]
}

// HasAttr reports whether the attribute is present, regardless of value.
func (e *Element) HasAttr(name string) bool {
	if e.Attrs == nil {
		return false
	}
	_, ok := e.Attrs[name]
	return ok
}

// interactiveRoles are ARIA roles considered clickable.
var interactiveRoles = map[string]bool{
	"button": true,
	"link":   true,
}

// isTrackable reports whether the element itself is an interactive element
// worth classifying: a link, a button, an interactive role, or an explicit
// opt-in marker.
func (e *Element) isTrackable() bool {
	switch strings.ToLower(e.Tag) {
	case "a", "button":
		return true
	}
	if interactiveRoles[strings.ToLower(e.Attr(AttrRole))] {
		return true
	}
	return e.HasAttr(AttrTrack)
}

// FindTrackable walks up from the click target looking for the nearest
// trackable element, climbing at most ten levels. It returns nil when no
// ancestor qualifies, in which case classification is skipped entirely.
func FindTrackable(target *Element) *Element {
	el := target
	for depth := 0; el != nil && depth <= maxAncestorWalk; depth++ {
		if el.isTrackable() {
			return el
		}
		el = el.Parent
	}
	return nil
}
