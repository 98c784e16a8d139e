// Package devices handles the persistent client-side identity the relay
// reads: the device id cookie and the first-touch attribution cookie.
package devices

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
)

// Cookie names set by the host integration on the visitor's browser.
const (
	DeviceIDCookie = "machh_did"
	UTMCookie      = "machh_utm"
)

// ResolveID returns the device id from the cookie value, generating a fresh
// random identifier when the cookie is absent. A generated id cannot be
// linked across sessions; that one event degrades gracefully instead of
// being dropped.
func ResolveID(cookieValue string) string {
	if cookieValue != "" {
		return cookieValue
	}
	return NewID()
}

// NewID generates a random 16-byte identifier, hex encoded.
func NewID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		return ""
	}
	return hex.EncodeToString(buf)
}

// FirstTouchUTM decodes the first-touch attribution cookie, a JSON object of
// whitelisted campaign parameters captured on the visitor's first landing.
// Returns nil for an absent or malformed cookie.
func FirstTouchUTM(cookieValue string) map[string]string {
	if cookieValue == "" {
		return nil
	}
	var data map[string]string
	if err := json.Unmarshal([]byte(cookieValue), &data); err != nil {
		return nil
	}
	if len(data) == 0 {
		return nil
	}
	return data
}
