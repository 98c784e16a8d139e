// Package normalize assembles the canonical event payloads the relay
// forwards to the ingestion API. The shared envelope (device id, url,
// referrer, site domain, attribution, user agent, ip, timestamp) is identical
// across event kinds; event-specific fields are layered on top.
package normalize

import (
	"strings"
	"time"
)

// Envelope is the context common to every emitted event.
type Envelope struct {
	DeviceID   string
	URL        string
	Referrer   string
	SiteDomain string
	UTM        map[string]string
	UserAgent  string
	IP         string
	TS         int64
}

// PageviewPayload is the ingest body for a page load.
type PageviewPayload struct {
	DeviceID   string            `json:"device_id"`
	URL        string            `json:"url"`
	Referrer   string            `json:"referrer"`
	SiteDomain string            `json:"site_domain"`
	UTM        map[string]string `json:"utm"`
	UserAgent  string            `json:"user_agent"`
	IP         string            `json:"ip"`
	TS         int64             `json:"ts"`
}

// ClickPayload is the ingest body for a classified click.
type ClickPayload struct {
	PageviewPayload
	ClickType    string `json:"click_type"`
	ClickLabel   string `json:"click_label"`
	ClickURL     string `json:"click_url"`
	ClickElement string `json:"click_element"`
}

// FormPayload is the ingest body for a mapped form submission.
type FormPayload struct {
	DeviceID   string            `json:"device_id"`
	URL        string            `json:"url"`
	Referrer   string            `json:"referrer"`
	SiteDomain string            `json:"site_domain"`
	FormID     string            `json:"form_id"`
	FormName   string            `json:"form_name"`
	Email      string            `json:"email"`
	Name       string            `json:"name"`
	Phone      string            `json:"phone"`
	Message    string            `json:"message"`
	UTM        map[string]string `json:"utm"`
	UserAgent  string            `json:"user_agent"`
	IP         string            `json:"ip"`
	TS         int64             `json:"ts"`
	RawFields  map[string]string `json:"raw_fields"`
}

// Pageview builds the pageview payload from the shared envelope.
func Pageview(env Envelope) PageviewPayload {
	return PageviewPayload{
		DeviceID:   env.DeviceID,
		URL:        env.URL,
		Referrer:   env.Referrer,
		SiteDomain: env.SiteDomain,
		UTM:        env.UTM,
		UserAgent:  env.UserAgent,
		IP:         env.IP,
		TS:         env.TS,
	}
}

// Click layers the classification fields over the shared envelope.
func Click(env Envelope, clickType, label, url, element string) ClickPayload {
	return ClickPayload{
		PageviewPayload: Pageview(env),
		ClickType:       clickType,
		ClickLabel:      label,
		ClickURL:        url,
		ClickElement:    element,
	}
}

// Form layers the mapped form fields over the shared envelope.
func Form(env Envelope, formID, formName string, email, name, phone, message string, raw map[string]string) FormPayload {
	return FormPayload{
		DeviceID:   env.DeviceID,
		URL:        env.URL,
		Referrer:   env.Referrer,
		SiteDomain: env.SiteDomain,
		FormID:     formID,
		FormName:   formName,
		Email:      email,
		Name:       name,
		Phone:      phone,
		Message:    message,
		UTM:        env.UTM,
		UserAgent:  env.UserAgent,
		IP:         env.IP,
		TS:         env.TS,
		RawFields:  raw,
	}
}

// SiteDomain strips a leading "www." from a host name.
func SiteDomain(host string) string {
	return strings.TrimPrefix(host, "www.")
}

// NowTS is the event timestamp in unix seconds, taken at normalization time.
// Asynchronous form callbacks can arrive later than the original action; the
// skew is accepted.
func NowTS() int64 {
	return time.Now().Unix()
}
