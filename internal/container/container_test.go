package container

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/0xPuncker/cronwatch/internal/config"
	"github.com/0xPuncker/cronwatch/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.Jobs.File = filepath.Join(dir, "urls.yaml")
	cfg.Crontab.Mode = config.CrontabModeFile
	cfg.Crontab.File = filepath.Join(dir, "crontab")
	cfg.Crontab.LockFile = filepath.Join(dir, "crontab.lock")
	return cfg
}

func TestNewWiresServices(t *testing.T) {
	c, err := New(testConfig(t), testutil.NewLogger())
	require.NoError(t, err)

	require.NotNil(t, c.Jobs())
	require.NotNil(t, c.Schedules())
	require.NotNil(t, c.Scheduler())
	require.NotNil(t, c.Router())
	require.NotNil(t, c.Poller())
	require.NotNil(t, c.Calendar())
	assert.False(t, c.Notifier().Enabled())

	_, err = c.Jobs().Add("https://a.example", "A")
	require.NoError(t, err)
	_, err = c.Schedules().Add(context.Background(), "1", "60")
	require.NoError(t, err)

	// The schedule registry sees the same jobs file as the job service.
	_, err = c.Schedules().Add(context.Background(), "2", "60")
	assert.Error(t, err)

	require.NoError(t, c.Scheduler().LoadTasks(config.DefaultConfig().Tasks.Predefined))
	assert.Len(t, c.Scheduler().ListTasks(), 1)

	report, err := c.Auditor().Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Checked)
	assert.Empty(t, report.Orphans)
}

func TestRouterServesHealth(t *testing.T) {
	c, err := New(testConfig(t), testutil.NewLogger())
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	c.Router().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}
