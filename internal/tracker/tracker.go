// Package tracker is the collector side of the relay: it classifies clicks,
// throttles duplicates and reports pageviews and clicks to the collect
// endpoint. Transmission is fire-and-forget; a report is dispatched and never
// awaited, so it can outlive the action that triggered it.
package tracker

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"machhrelay/internal/classify"
	"machhrelay/internal/throttle"
)

// Collector action names understood by the collect endpoint.
const (
	ActionPageview = "machh_pageview"
	ActionClick    = "machh_click"
)

// Tracker observes page activity and reports it to a collect endpoint.
type Tracker struct {
	endpoint   string
	classifier *classify.Classifier
	guard      *throttle.Guard
	logger     *slog.Logger
	http       *http.Client

	mu       sync.Mutex
	pageSeen bool

	// pending lets tests wait for in-flight dispatches.
	pending sync.WaitGroup
}

// New builds a tracker posting to the given collect endpoint URL.
func New(endpoint string, classifier *classify.Classifier, guard *throttle.Guard, logger *slog.Logger) *Tracker {
	return &Tracker{
		endpoint:   endpoint,
		classifier: classifier,
		guard:      guard,
		logger:     logger,
		http:       &http.Client{Timeout: 10 * time.Second},
	}
}

// TrackPageview reports a page load. Only the first call per tracker
// instance transmits; a tracker's lifetime is one page view.
func (t *Tracker) TrackPageview(pageURL, referrer string) {
	t.mu.Lock()
	if t.pageSeen {
		t.mu.Unlock()
		return
	}
	t.pageSeen = true
	t.mu.Unlock()

	t.dispatch(url.Values{
		"action":   {ActionPageview},
		"url":      {pageURL},
		"referrer": {referrer},
	})
}

// TrackClick walks up from the click target to the nearest trackable element,
// classifies it and, unless the (type, url) pair fired within the throttle
// window, dispatches a click report. It returns the classification so callers
// can observe what was (or was not) reported.
func (t *Tracker) TrackClick(target *classify.Element, pageURL, referrer string) *classify.ClassifiedClick {
	el := classify.FindTrackable(target)
	if el == nil {
		return nil
	}

	click := t.classifier.Classify(el)
	if click == nil {
		return nil
	}

	if t.guard.ShouldSuppress(string(click.Type), click.URL) {
		t.logger.Debug("Click suppressed by throttle",
			slog.String("click_type", string(click.Type)),
			slog.String("click_url", click.URL))
		return click
	}

	t.dispatch(url.Values{
		"action":        {ActionClick},
		"url":           {pageURL},
		"referrer":      {referrer},
		"click_type":    {string(click.Type)},
		"click_label":   {click.Label},
		"click_url":     {click.URL},
		"click_element": {click.Element},
	})

	return click
}

// dispatch sends the form-encoded report in a goroutine. The caller never
// waits and never learns the outcome; failures are visible in logs only.
func (t *Tracker) dispatch(form url.Values) {
	t.pending.Add(1)
	go func() {
		defer t.pending.Done()

		resp, err := t.http.Post(t.endpoint, "application/x-www-form-urlencoded",
			strings.NewReader(form.Encode()))
		if err != nil {
			t.logger.Warn("Tracking report failed",
				slog.String("action", form.Get("action")),
				slog.Any("error", err))
			return
		}
		resp.Body.Close()

		t.logger.Debug("Tracking report sent",
			slog.String("action", form.Get("action")),
			slog.Int("status", resp.StatusCode))
	}()
}

// Flush blocks until all dispatched reports finished. Intended for tests and
// orderly shutdown; normal callers never wait.
func (t *Tracker) Flush() {
	t.pending.Wait()
}
