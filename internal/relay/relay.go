// Package relay forwards normalized payloads to the Machh ingestion API. It
// owns serialization and transport only: payload contents are never inspected
// or altered here.
package relay

import (
	"bytes"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"machhrelay/internal/normalize"
)

// DefaultTimeout is the fixed deadline for one forward. Ingestion is
// best-effort; a slow upstream must not hold the original request hostage.
const DefaultTimeout = 2 * time.Second

// KeyHeader carries the pre-shared client credential.
const KeyHeader = "X-MACHH-KEY"

// ErrMissingClientKey is reported when no credential is configured. The
// client refuses to send in that case; no network call is attempted.
var ErrMissingClientKey = errors.New("relay: client API key not configured")

// Result is the upstream outcome of one forward.
type Result struct {
	StatusCode int
	Body       string
}

// clickEnvelope wraps click payloads for the unified ingest endpoint.
type clickEnvelope struct {
	Source    string                 `json:"source"`
	EventType string                 `json:"event_type"`
	Payload   normalize.ClickPayload `json:"payload"`
}

// Client posts JSON payloads to the ingestion API.
type Client struct {
	baseURL  string
	keyFn    func() string
	logger   *slog.Logger
	http     *http.Client
	insecure *http.Client
}

// NewClient builds a relay client. keyFn resolves the current client
// credential on every send so key rotation takes effect without a restart.
func NewClient(baseURL string, timeout time.Duration, keyFn func() string, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		keyFn:   keyFn,
		logger:  logger,
		http:    &http.Client{Timeout: timeout},
		insecure: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				// Local development ingest hosts run on self-signed certs.
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
	}
}

// SendPageview forwards a pageview payload.
func (c *Client) SendPageview(payload normalize.PageviewPayload) (*Result, error) {
	return c.send("/ingest/pageview", payload)
}

// SendFormSubmitted forwards a form submission payload.
func (c *Client) SendFormSubmitted(payload normalize.FormPayload) (*Result, error) {
	return c.send("/ingest/form-submitted", payload)
}

// SendClick forwards a click payload through the unified ingest endpoint.
func (c *Client) SendClick(payload normalize.ClickPayload) (*Result, error) {
	return c.send("/ingest", clickEnvelope{
		Source:    "machh-plugin",
		EventType: "button_clicked",
		Payload:   payload,
	})
}

func (c *Client) send(endpoint string, payload any) (*Result, error) {
	key := c.keyFn()
	if key == "" {
		c.logger.Error("Client API key not configured")
		return nil, ErrMissingClientKey
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("relay: marshal payload: %w", err)
	}

	target := c.baseURL + endpoint
	req, err := http.NewRequest(http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("relay: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(KeyHeader, key)

	c.logger.Debug("Forwarding payload",
		slog.String("url", target),
		slog.Int("bytes", len(body)))

	resp, err := c.client().Do(req)
	if err != nil {
		c.logger.Error("Ingestion request failed",
			slog.String("endpoint", endpoint),
			slog.Any("error", err))
		return nil, fmt.Errorf("relay: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("relay: read response: %w", err)
	}

	c.logger.Debug("Ingestion response",
		slog.String("endpoint", endpoint),
		slog.Int("status", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("Ingestion API returned non-success status",
			slog.String("endpoint", endpoint),
			slog.Int("status", resp.StatusCode))
	}

	return &Result{StatusCode: resp.StatusCode, Body: string(respBody)}, nil
}

// client picks the TLS-relaxed transport for recognized local-development
// hosts and the verifying one for everything else.
func (c *Client) client() *http.Client {
	if IsLocalHost(c.baseURL) {
		return c.insecure
	}
	return c.http
}

// IsLocalHost reports whether the URL points at a local development host
// (.test/.local/.localhost/.dev TLDs, localhost, or 127.0.0.1).
func IsLocalHost(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := parsed.Hostname()
	if host == "" {
		return false
	}

	for _, tld := range []string{".test", ".local", ".localhost", ".dev"} {
		if strings.HasSuffix(host, tld) {
			return true
		}
	}
	return host == "localhost" || strings.HasPrefix(host, "127.0.0.1")
}
