package catalog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validCatalog = `
cron_triggers:
  - name: hourly-report
    schedule: "0 * * * *"
    webhook:
      url: https://example.com/report
    payload:
      report: daily
      depth: 3
    retry_conf:
      num_retries: 3
      interval_sec: 60
      timeout_sec: 30
      tolerance_sec: 3600
    headers:
      - name: X-Token
        value_from_env: REPORT_TOKEN
    comment: hourly usage report
  - name: cleanup
    schedule: "*/5 * * * *"
    webhook:
      from_env: CLEANUP_WEBHOOK
`

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "triggers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestOpen_Valid(t *testing.T) {
	c, err := Open(writeCatalog(t, validCatalog))
	require.NoError(t, err)

	triggers, err := c.Snapshot()
	require.NoError(t, err)
	require.Len(t, triggers, 2)

	hourly := triggers["hourly-report"]
	assert.Equal(t, "0 * * * *", hourly.Schedule)
	assert.Equal(t, "https://example.com/report", hourly.Webhook.URL)
	assert.JSONEq(t, `{"report":"daily","depth":3}`, string(hourly.PayloadJSON()))
	assert.Equal(t, 3, hourly.Retry.NumRetries)
	require.Len(t, hourly.Headers, 1)
	assert.Equal(t, "X-Token", hourly.Headers[0].Name)
	require.NotNil(t, hourly.Comment)

	cleanup := triggers["cleanup"]
	assert.Equal(t, "CLEANUP_WEBHOOK", cleanup.Webhook.FromEnv)
	assert.Nil(t, cleanup.PayloadJSON())
	// Omitted retry conf falls back to defaults.
	assert.Equal(t, 21600, cleanup.Retry.ToleranceSeconds)
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestOpen_BadSchedule(t *testing.T) {
	_, err := Open(writeCatalog(t, `
cron_triggers:
  - name: broken
    schedule: "not cron"
    webhook:
      url: https://example.com
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `trigger "broken"`)
}

func TestOpen_MissingWebhook(t *testing.T) {
	_, err := Open(writeCatalog(t, `
cron_triggers:
  - name: nowhere
    schedule: "* * * * *"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "webhook must set url or from_env")
}

func TestOpen_DuplicateTrigger(t *testing.T) {
	_, err := Open(writeCatalog(t, `
cron_triggers:
  - name: twice
    schedule: "* * * * *"
    webhook: {url: https://example.com}
  - name: twice
    schedule: "0 * * * *"
    webhook: {url: https://example.com}
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate definition")
}

func TestSnapshot_ReloadsOnChange(t *testing.T) {
	path := writeCatalog(t, validCatalog)
	c, err := Open(path)
	require.NoError(t, err)

	updated := `
cron_triggers:
  - name: only-one
    schedule: "0 0 * * *"
    webhook: {url: https://example.com/new}
`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0644))
	// mtime granularity can swallow a same-instant rewrite.
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, future, future))

	triggers, err := c.Snapshot()
	require.NoError(t, err)
	require.Len(t, triggers, 1)
	assert.Contains(t, triggers, "only-one")
}

func TestSnapshot_KeepsLastGoodOnBrokenReload(t *testing.T) {
	path := writeCatalog(t, validCatalog)
	c, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("cron_triggers: ["), 0644))
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, future, future))

	triggers, err := c.Snapshot()
	require.Error(t, err)
	require.Len(t, triggers, 2)
}
