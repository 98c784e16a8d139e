package normalize

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEnvelope() Envelope {
	return Envelope{
		DeviceID:   "abc123",
		URL:        "https://example.com/pricing",
		Referrer:   "https://google.com",
		SiteDomain: "example.com",
		UTM:        map[string]string{"utm_source": "google"},
		UserAgent:  "Mozilla/5.0",
		IP:         "203.0.113.9",
		TS:         1700000000,
	}
}

func TestPageviewCarriesEnvelope(t *testing.T) {
	p := Pageview(testEnvelope())

	assert.Equal(t, "abc123", p.DeviceID)
	assert.Equal(t, "https://example.com/pricing", p.URL)
	assert.Equal(t, "https://google.com", p.Referrer)
	assert.Equal(t, "example.com", p.SiteDomain)
	assert.Equal(t, map[string]string{"utm_source": "google"}, p.UTM)
	assert.Equal(t, int64(1700000000), p.TS)
}

func TestClickLayersClassificationOverEnvelope(t *testing.T) {
	c := Click(testEnvelope(), "phone_call", "Appelez-nous", "tel:+33612345678", "a")

	assert.Equal(t, "abc123", c.DeviceID)
	assert.Equal(t, "phone_call", c.ClickType)
	assert.Equal(t, "Appelez-nous", c.ClickLabel)
	assert.Equal(t, "tel:+33612345678", c.ClickURL)
	assert.Equal(t, "a", c.ClickElement)

	// Wire names are stable
	data, err := json.Marshal(c)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Contains(t, decoded, "click_type")
	assert.Contains(t, decoded, "device_id")
	assert.Contains(t, decoded, "site_domain")
}

func TestFormCarriesMappedAndRawFields(t *testing.T) {
	raw := map[string]string{"your-email": "a@example.com", "extra": "1"}
	f := Form(testEnvelope(), "42", "Contact", "a@example.com", "Alice", "", "Hello", raw)

	assert.Equal(t, "42", f.FormID)
	assert.Equal(t, "Contact", f.FormName)
	assert.Equal(t, "a@example.com", f.Email)
	assert.Equal(t, "Alice", f.Name)
	assert.Equal(t, "", f.Phone)
	assert.Equal(t, "Hello", f.Message)
	assert.Equal(t, raw, f.RawFields)
}

func TestSiteDomain(t *testing.T) {
	assert.Equal(t, "example.com", SiteDomain("www.example.com"))
	assert.Equal(t, "example.com", SiteDomain("example.com"))
	assert.Equal(t, "blog.example.com", SiteDomain("blog.example.com"))
}

func TestExtractUTM(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want map[string]string
	}{
		{
			name: "campaign params",
			url:  "https://example.com/?utm_source=google&utm_medium=cpc&utm_campaign=spring",
			want: map[string]string{"utm_source": "google", "utm_medium": "cpc", "utm_campaign": "spring"},
		},
		{
			name: "ad click ids",
			url:  "https://example.com/?gclid=g1&fbclid=f1",
			want: map[string]string{"gclid": "g1", "fbclid": "f1"},
		},
		{
			name: "non-whitelisted params ignored",
			url:  "https://example.com/?utm_source=x&page=2&ref=abc",
			want: map[string]string{"utm_source": "x"},
		},
		{name: "no query", url: "https://example.com/pricing", want: nil},
		{name: "query without campaign params", url: "https://example.com/?page=2", want: nil},
		{name: "unparseable", url: "://bad", want: nil},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractUTM(tc.url))
		})
	}
}
