package v1_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"machhrelay/internal/testsupport"
)

func TestGetCollectorAction(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	app := testsupport.CreateMinimalTestApp(t, db)

	req := httptest.NewRequest("GET", "/y/api/v1/collector.js", nil)
	resp, err := app.Test(req, 30000)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/javascript", resp.Header.Get("Content-Type"))
	assert.Equal(t, "public, max-age=3600", resp.Header.Get("Cache-Control"))
	assert.Equal(t, "cross-origin", resp.Header.Get("Cross-Origin-Resource-Policy"))

	etag := resp.Header.Get("ETag")
	require.NotEmpty(t, etag)
	assert.True(t, strings.HasPrefix(etag, `"`))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	script := string(body)

	// The template placeholder must be rendered, not served verbatim
	assert.NotContains(t, script, "{{.BaseURL}}")
	assert.Contains(t, script, "/x/api/v1/collect")
	assert.Contains(t, script, "machh_did")
	assert.Contains(t, script, "machh_utm")
}

func TestGetCollectorActionRespectsETag(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	app := testsupport.CreateMinimalTestApp(t, db)

	first, err := app.Test(httptest.NewRequest("GET", "/y/api/v1/collector.js", nil), 30000)
	require.NoError(t, err)
	etag := first.Header.Get("ETag")
	first.Body.Close()
	require.NotEmpty(t, etag)

	req := httptest.NewRequest("GET", "/y/api/v1/collector.js", nil)
	req.Header.Set("If-None-Match", etag)
	second, err := app.Test(req, 30000)
	require.NoError(t, err)
	defer second.Body.Close()

	assert.Equal(t, http.StatusNotModified, second.StatusCode)
	body, err := io.ReadAll(second.Body)
	require.NoError(t, err)
	assert.Empty(t, body)
}
