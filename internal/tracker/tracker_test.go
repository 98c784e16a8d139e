package tracker

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"machhrelay/internal/classify"
	"machhrelay/internal/patterns"
	"machhrelay/internal/throttle"
)

type collectRecorder struct {
	mu       sync.Mutex
	received []map[string]string
}

func (r *collectRecorder) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := req.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		fields := make(map[string]string, len(req.PostForm))
		for key := range req.PostForm {
			fields[key] = req.PostForm.Get(key)
		}
		r.mu.Lock()
		r.received = append(r.received, fields)
		r.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}
}

func (r *collectRecorder) snapshot() []map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]map[string]string, len(r.received))
	copy(out, r.received)
	return out
}

func newTestTracker(endpoint string) *Tracker {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(endpoint,
		classify.NewClassifier(patterns.Default()),
		throttle.NewGuard(5*time.Second),
		logger)
}

func TestTrackPageviewReportsOnce(t *testing.T) {
	recorder := &collectRecorder{}
	server := httptest.NewServer(recorder.handler())
	defer server.Close()

	tr := newTestTracker(server.URL)
	tr.TrackPageview("https://example.com/", "https://google.com")
	tr.TrackPageview("https://example.com/", "https://google.com")
	tr.Flush()

	received := recorder.snapshot()
	require.Len(t, received, 1)
	assert.Equal(t, ActionPageview, received[0]["action"])
	assert.Equal(t, "https://example.com/", received[0]["url"])
	assert.Equal(t, "https://google.com", received[0]["referrer"])
}

func TestTrackClickClassifiesAndReports(t *testing.T) {
	recorder := &collectRecorder{}
	server := httptest.NewServer(recorder.handler())
	defer server.Close()

	tr := newTestTracker(server.URL)

	target := &classify.Element{
		Tag:    "span",
		Text:   "Appelez-nous",
		Parent: &classify.Element{Tag: "a", Href: "tel:+33612345678", Text: "Appelez-nous"},
	}

	click := tr.TrackClick(target, "https://example.com/contact", "")
	require.NotNil(t, click)
	assert.Equal(t, patterns.ClickTypePhoneCall, click.Type)

	tr.Flush()
	received := recorder.snapshot()
	require.Len(t, received, 1)
	assert.Equal(t, ActionClick, received[0]["action"])
	assert.Equal(t, "phone_call", received[0]["click_type"])
	assert.Equal(t, "Appelez-nous", received[0]["click_label"])
	assert.Equal(t, "tel:+33612345678", received[0]["click_url"])
	assert.Equal(t, "a", received[0]["click_element"])
}

func TestTrackClickThrottlesDuplicates(t *testing.T) {
	recorder := &collectRecorder{}
	server := httptest.NewServer(recorder.handler())
	defer server.Close()

	tr := newTestTracker(server.URL)
	el := &classify.Element{Tag: "a", Href: "tel:+33612345678", Text: "Appelez-nous"}

	first := tr.TrackClick(el, "https://example.com/", "")
	second := tr.TrackClick(el, "https://example.com/", "")

	// Both calls classify, only the first transmits
	require.NotNil(t, first)
	require.NotNil(t, second)

	tr.Flush()
	assert.Len(t, recorder.snapshot(), 1)
}

func TestTrackClickSkipsNonTrackableTargets(t *testing.T) {
	recorder := &collectRecorder{}
	server := httptest.NewServer(recorder.handler())
	defer server.Close()

	tr := newTestTracker(server.URL)

	assert.Nil(t, tr.TrackClick(&classify.Element{Tag: "p", Text: "paragraph"}, "https://example.com/", ""))
	assert.Nil(t, tr.TrackClick(&classify.Element{
		Tag: "a", Href: "https://example.com/blog", Text: "Read more articles here",
	}, "https://example.com/", ""))

	tr.Flush()
	assert.Empty(t, recorder.snapshot())
}

func TestDispatchSurvivesEndpointFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	tr := newTestTracker(server.URL)
	tr.TrackPageview("https://example.com/", "")
	tr.Flush()
}
