package cron

import (
	"context"
	"testing"

	"github.com/0xPuncker/cronwatch/internal/testutil"
	"github.com/0xPuncker/cronwatch/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	reports []AuditReport
}

func (o *recordingObserver) ObserveAudit(_ context.Context, report AuditReport) {
	o.reports = append(o.reports, report)
}

func TestAuditorReportsOrphans(t *testing.T) {
	content := foreignLines +
		"*/15 * * * * urlwatch --jobs 1 # cronwatch-bot-1\n" +
		"0 */2 * * * urlwatch --jobs 3 # cronwatch-bot-3\n" +
		"0 0 */1 * * urlwatch # cronwatch-bot-x\n"
	reg, _ := newTestRegistry(t, content, nil)
	observer := &recordingObserver{}

	auditor := NewAuditor(reg, staticCounter(2), testutil.NewLogger(), observer)
	report, err := auditor.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, report.Checked)
	assert.Equal(t, 2, report.JobCount)
	require.Len(t, report.Orphans, 2)
	assert.Equal(t, 3, report.Orphans[0].JobIndex)
	assert.Equal(t, "cronwatch-bot-x", report.Orphans[1].Annotation)

	require.Len(t, observer.reports, 1)
	assert.Len(t, observer.reports[0].Orphans, 2)
}

func TestAuditorCleanTable(t *testing.T) {
	reg, _ := newTestRegistry(t, "*/15 * * * * urlwatch --jobs 1 # cronwatch-bot-1\n", nil)

	report, err := NewAuditor(reg, staticCounter(1), testutil.NewLogger()).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Orphans)
}

func TestAuditorTableFailure(t *testing.T) {
	reg := NewRegistry(failingTable{}, Options{}, testutil.NewLogger())
	err := NewAuditor(reg, staticCounter(1), testutil.NewLogger()).Task(context.Background())
	assert.True(t, types.IsKind(err, types.IOFailure))
}
