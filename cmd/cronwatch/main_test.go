package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/0xPuncker/cronwatch/internal/testutil"
	"github.com/0xPuncker/cronwatch/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cli struct {
	dir    string
	config string
}

func newCLI(t *testing.T) *cli {
	t.Helper()

	dir := t.TempDir()
	config := testutil.WriteFile(t, dir, "cronwatch.yaml", `
log_level: debug
jobs:
  file: `+filepath.Join(dir, "urls.yaml")+`
crontab:
  mode: file
  file: `+filepath.Join(dir, "crontab")+`
`)
	return &cli{dir: dir, config: config}
}

func (c *cli) run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", c.config}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (c *cli) mustRun(t *testing.T, args ...string) string {
	t.Helper()

	out, err := c.run(t, args...)
	require.NoError(t, err, "cronwatch %v", args)
	return out
}

func TestJobCommands(t *testing.T) {
	c := newCLI(t)

	assert.Contains(t, c.mustRun(t, "view"), "No jobs configured")

	out := c.mustRun(t, "add", "https://example.com/pricing", "Pricing", "page")
	assert.Contains(t, out, "Added job 1: Pricing page")
	assert.Contains(t, out, "cronwatch crontab add 1 <minutes>")

	c.mustRun(t, "add", "example.org")
	out = c.mustRun(t, "editfilter", "2", "css:div.price", "html2text")
	assert.Equal(t, "Updated filters of job 2: css:div.price, html2text\n", out)

	out = c.mustRun(t, "editprop", "2", "timeout:30")
	assert.Equal(t, "Updated job 2: timeout\nProperties of job 2:\n  timeout: 30\n", out)

	out = c.mustRun(t, "view")
	assert.Equal(t, "1. Pricing page\n"+
		"   url: https://example.com/pricing\n"+
		"2. https://example.org\n"+
		"   url: https://example.org\n"+
		"   filter: css:div.price, html2text\n"+
		"   properties: timeout=30\n", out)

	out = c.mustRun(t, "edit", "1", "https://example.com/plans", "Plans")
	assert.Equal(t, "Updated job 1: Pricing page -> Plans\n", out)

	out = c.mustRun(t, "delete", "1")
	assert.Equal(t, "Deleted job 1: Plans\n", out)
	assert.Contains(t, testutil.ReadFile(t, filepath.Join(c.dir, "urls.yaml")), "https://example.org")
}

func TestJobCommandErrors(t *testing.T) {
	c := newCLI(t)

	_, err := c.run(t, "delete", "1")
	assert.True(t, types.IsKind(err, types.NotFound))

	_, err = c.run(t, "add", "ftp://example.com")
	assert.True(t, types.IsKind(err, types.InvalidInput))

	_, err = c.run(t, "edit", "1")
	assert.Error(t, err)
}

func TestCrontabCommands(t *testing.T) {
	c := newCLI(t)
	c.mustRun(t, "add", "https://example.com")

	assert.Contains(t, c.mustRun(t, "crontab", "view"), "No scheduled jobs")

	out := c.mustRun(t, "crontab", "add", "1", "15")
	assert.Equal(t, "Added schedule 1: job 1 runs every 15 minutes (*/15 * * * *)\n", out)
	assert.Equal(t, "*/15 * * * * urlwatch --jobs 1 # cronwatch-bot-1\n",
		testutil.ReadFile(t, filepath.Join(c.dir, "crontab")))

	out = c.mustRun(t, "crontab", "edit", "1", "120")
	assert.Equal(t, "Updated schedule 1: job 1 runs every 2 hour(s) (0 */2 * * *)\n", out)

	out = c.mustRun(t, "crontab", "view")
	assert.Contains(t, out, "0 */2 * * *")
	assert.Contains(t, out, "urlwatch --jobs 1")

	out = c.mustRun(t, "crontab", "next", "1", "--count", "2")
	assert.Contains(t, out, "Schedule 1 (0 */2 * * *) runs job 1 next at:")
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 3)

	_, err := c.run(t, "crontab", "next", "1", "--count", "0")
	assert.True(t, types.IsKind(err, types.InvalidInput))

	_, err = c.run(t, "crontab", "add", "1", "90")
	assert.True(t, types.IsKind(err, types.UnsupportedInterval))

	_, err = c.run(t, "crontab", "add", "2", "15")
	assert.True(t, types.IsKind(err, types.NotFound))

	out = c.mustRun(t, "crontab", "delete", "1")
	assert.Equal(t, "Deleted schedule 1 (0 */2 * * *)\n", out)
	assert.Empty(t, testutil.ReadFile(t, filepath.Join(c.dir, "crontab")))
}

func TestAuditCommand(t *testing.T) {
	c := newCLI(t)
	c.mustRun(t, "add", "https://a.example")
	c.mustRun(t, "add", "https://b.example")
	c.mustRun(t, "crontab", "add", "2", "30")

	assert.Equal(t, "All 1 schedule(s) point at existing jobs (2 job(s)).\n", c.mustRun(t, "audit"))

	c.mustRun(t, "delete", "1")
	out := c.mustRun(t, "audit")
	assert.Contains(t, out, "1 of 1 schedule(s) point at missing jobs (1 job(s) configured):")
	assert.Contains(t, out, "cronwatch-bot-2")
}
