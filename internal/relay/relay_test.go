package relay

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"machhrelay/internal/normalize"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func staticKey(key string) func() string {
	return func() string { return key }
}

func TestSendPageviewForwardsPayloadAndKey(t *testing.T) {
	var gotPath, gotKey, gotContentType string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get(KeyHeader)
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"accepted":true}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, staticKey("secret-key"), testLogger())

	result, err := client.SendPageview(normalize.PageviewPayload{
		DeviceID:   "abc",
		URL:        "https://example.com/",
		SiteDomain: "example.com",
		TS:         1700000000,
	})
	require.NoError(t, err)

	assert.Equal(t, "/ingest/pageview", gotPath)
	assert.Equal(t, "secret-key", gotKey)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, http.StatusAccepted, result.StatusCode)
	assert.Equal(t, `{"accepted":true}`, result.Body)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(gotBody, &decoded))
	assert.Equal(t, "abc", decoded["device_id"])
	assert.Equal(t, "example.com", decoded["site_domain"])
}

func TestSendClickWrapsInEnvelope(t *testing.T) {
	var gotPath string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, staticKey("k"), testLogger())

	_, err := client.SendClick(normalize.ClickPayload{
		PageviewPayload: normalize.PageviewPayload{DeviceID: "abc"},
		ClickType:       "phone_call",
	})
	require.NoError(t, err)

	assert.Equal(t, "/ingest", gotPath)

	var envelope map[string]any
	require.NoError(t, json.Unmarshal(gotBody, &envelope))
	assert.Equal(t, "machh-plugin", envelope["source"])
	assert.Equal(t, "button_clicked", envelope["event_type"])

	payload, ok := envelope["payload"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "phone_call", payload["click_type"])
}

func TestSendFormSubmittedPath(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, staticKey("k"), testLogger())

	_, err := client.SendFormSubmitted(normalize.FormPayload{FormID: "42"})
	require.NoError(t, err)
	assert.Equal(t, "/ingest/form-submitted", gotPath)
}

func TestSendRefusesWithoutKey(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, staticKey(""), testLogger())

	_, err := client.SendPageview(normalize.PageviewPayload{})
	require.ErrorIs(t, err, ErrMissingClientKey)
	assert.False(t, called, "no network call without a key")
}

func TestSendReturnsNonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("bad key"))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, staticKey("wrong"), testLogger())

	result, err := client.SendPageview(normalize.PageviewPayload{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, result.StatusCode)
	assert.Equal(t, "bad key", result.Body)
}

func TestSendTransportErrorIsReturned(t *testing.T) {
	// Closed server, the connection is refused
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(server.URL, time.Second, staticKey("k"), testLogger())

	_, err := client.SendPageview(normalize.PageviewPayload{})
	assert.Error(t, err)
}

func TestIsLocalHost(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{url: "https://ingest.machh.test", want: true},
		{url: "https://api.machh.local", want: true},
		{url: "https://machh.localhost", want: true},
		{url: "https://ingest.machh.dev", want: true},
		{url: "http://localhost:3100", want: true},
		{url: "http://127.0.0.1:3100", want: true},
		{url: "https://ingest.machh.com", want: false},
		{url: "https://example.org", want: false},
		{url: "", want: false},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, IsLocalHost(tc.url), tc.url)
	}
}
