package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/0xPuncker/cronwatch/internal/cron"
	"github.com/0xPuncker/cronwatch/internal/jobs"
	"github.com/0xPuncker/cronwatch/pkg/utils"
	"github.com/sirupsen/logrus"
	"github.com/slack-go/slack"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	ActionAdded   = "added"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// NotificationService turns registry and schedule events into Slack
// messages. With no SlackService configured every call is a no-op.
type NotificationService struct {
	slack  *SlackService
	logger *logrus.Logger
	now    func() time.Time
}

func NewNotificationService(slackService *SlackService, logger *logrus.Logger) *NotificationService {
	return &NotificationService{
		slack:  slackService,
		logger: logger,
		now:    time.Now,
	}
}

func (s *NotificationService) Enabled() bool {
	return s != nil && s.slack != nil
}

func (s *NotificationService) JobChanged(ctx context.Context, action string, job jobs.Listing) {
	if !s.Enabled() {
		return
	}
	fields := []slack.AttachmentField{
		{Title: "Index", Value: strconv.Itoa(job.Index), Short: true},
		{Title: "Name", Value: job.Name, Short: true},
		{Title: "URL", Value: job.URL, Short: false},
	}
	if len(job.Filter) > 0 {
		filters := make([]string, len(job.Filter))
		for i, f := range job.Filter {
			filters[i] = f.String()
		}
		fields = append(fields, slack.AttachmentField{Title: "Filter", Value: strings.Join(filters, ", "), Short: false})
	}

	s.send(ctx, s.format("job "+action, actionColor(action), fields))
}

func (s *NotificationService) ScheduleChanged(ctx context.Context, action string, schedule cron.Schedule) {
	if !s.Enabled() {
		return
	}
	fields := []slack.AttachmentField{
		{Title: "Job", Value: strconv.Itoa(schedule.JobIndex), Short: true},
		{Title: "Expression", Value: schedule.Expression, Short: true},
		{Title: "Command", Value: schedule.Command, Short: false},
	}
	if schedule.Description != "" {
		fields = append(fields, slack.AttachmentField{Title: "Runs", Value: schedule.Description, Short: true})
	}
	if schedule.NextRun != nil && action != ActionDeleted {
		fields = append(fields, slack.AttachmentField{
			Title: "Next Run",
			Value: utils.FormatDuration(schedule.NextRun.Sub(s.now())),
			Short: true,
		})
	}

	s.send(ctx, s.format("schedule "+action, actionColor(action), fields))
}

// ObserveAudit reports orphaned schedules. Clean audits are not sent.
func (s *NotificationService) ObserveAudit(ctx context.Context, report cron.AuditReport) {
	if !s.Enabled() || len(report.Orphans) == 0 {
		return
	}

	lines := make([]string, len(report.Orphans))
	for i, o := range report.Orphans {
		lines[i] = fmt.Sprintf("#%d `%s` %s (%s)", o.Position, o.Expression, o.Command, o.Annotation)
	}

	message := s.format("orphaned schedules", "danger", []slack.AttachmentField{
		{Title: "Jobs", Value: strconv.Itoa(report.JobCount), Short: true},
		{Title: "Orphans", Value: strconv.Itoa(len(report.Orphans)), Short: true},
		{Title: "Schedules", Value: strings.Join(lines, "\n"), Short: false},
	})
	s.send(ctx, message)
}

func (s *NotificationService) format(event, color string, fields []slack.AttachmentField) *slack.WebhookMessage {
	now := s.now()
	return &slack.WebhookMessage{
		Text: fmt.Sprintf("cronwatch: %s", cases.Title(language.English).String(event)),
		Attachments: []slack.Attachment{
			{
				Color:  color,
				Fields: fields,
				Footer: fmt.Sprintf("cronwatch | %s", now.Format("Mon, 02 Jan 2006 15:04:05 MST")),
				Ts:     json.Number(strconv.FormatInt(now.Unix(), 10)),
			},
		},
	}
}

func (s *NotificationService) send(ctx context.Context, message *slack.WebhookMessage) {
	if err := s.slack.SendSlackMessage(ctx, message); err != nil {
		s.logger.WithFields(logrus.Fields{
			"event": message.Text,
			"error": err.Error(),
		}).Warn("Failed to send Slack notification")
	}
}

func actionColor(action string) string {
	switch action {
	case ActionAdded:
		return "good"
	case ActionDeleted:
		return "danger"
	default:
		return "warning"
	}
}
