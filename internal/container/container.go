// Package container wires cronwatch services using go.uber.org/dig.
package container

import (
	"fmt"
	"time"

	"github.com/0xPuncker/cronwatch/internal/api"
	"github.com/0xPuncker/cronwatch/internal/config"
	"github.com/0xPuncker/cronwatch/internal/cron"
	"github.com/0xPuncker/cronwatch/internal/jobs"
	"github.com/0xPuncker/cronwatch/internal/metrics"
	"github.com/0xPuncker/cronwatch/internal/notifications"
	"github.com/0xPuncker/cronwatch/internal/poller"
	"github.com/0xPuncker/cronwatch/pkg/calendar"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.uber.org/dig"
)

// Container holds the resolved service singletons.
type Container struct {
	jobs      *jobs.Service
	schedules *cron.Registry
	auditor   *cron.Auditor
	scheduler *cron.Scheduler
	notifier  *notifications.NotificationService
	calendar  *calendar.CalendarService
	metrics   *metrics.Metrics
	poller    *poller.Poller
	router    *mux.Router
}

func (c *Container) Jobs() *jobs.Service                          { return c.jobs }
func (c *Container) Schedules() *cron.Registry                    { return c.schedules }
func (c *Container) Auditor() *cron.Auditor                       { return c.auditor }
func (c *Container) Scheduler() *cron.Scheduler                   { return c.scheduler }
func (c *Container) Notifier() *notifications.NotificationService { return c.notifier }
func (c *Container) Calendar() *calendar.CalendarService          { return c.calendar }
func (c *Container) Metrics() *metrics.Metrics                    { return c.metrics }
func (c *Container) Poller() *poller.Poller                       { return c.poller }
func (c *Container) Router() *mux.Router                          { return c.router }

// New builds and wires all services from cfg.
func New(cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	d := dig.New()

	providers := []interface{}{
		func() *config.Config { return cfg },
		func() *logrus.Logger { return logger },
		newJobStore,
		jobs.NewService,
		newTable,
		newScheduleRegistry,
		metrics.New,
		newNotifier,
		newAuditor,
		newScheduler,
		calendar.NewCalendarService,
		newPoller,
		api.NewHandler,
		newAuthGuard,
		api.NewRouter,
	}
	for _, p := range providers {
		if err := d.Provide(p); err != nil {
			return nil, fmt.Errorf("failed to register provider: %w", err)
		}
	}

	var result *Container
	err := d.Invoke(func(
		jobService *jobs.Service,
		schedules *cron.Registry,
		auditor *cron.Auditor,
		scheduler *cron.Scheduler,
		notifier *notifications.NotificationService,
		cal *calendar.CalendarService,
		m *metrics.Metrics,
		p *poller.Poller,
		router *mux.Router,
	) {
		result = &Container{
			jobs:      jobService,
			schedules: schedules,
			auditor:   auditor,
			scheduler: scheduler,
			notifier:  notifier,
			calendar:  cal,
			metrics:   m,
			poller:    p,
			router:    router,
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build container: %w", err)
	}
	return result, nil
}

func newJobStore(cfg *config.Config, logger *logrus.Logger) *jobs.Store {
	return jobs.NewStore(cfg.Jobs.File, logger)
}

func newTable(cfg *config.Config) cron.Table {
	if cfg.Crontab.Mode == config.CrontabModeFile {
		return cron.NewFileTable(cfg.Crontab.File, cfg.Crontab.User)
	}
	return cron.NewSystemTable(cfg.Crontab.Binary, cfg.Crontab.User)
}

func newScheduleRegistry(cfg *config.Config, table cron.Table, jobService *jobs.Service, logger *logrus.Logger) *cron.Registry {
	return cron.NewRegistry(table, cron.Options{
		Prefix:          cfg.Crontab.Prefix,
		CommandTemplate: cfg.Crontab.CommandTemplate,
		LockPath:        cfg.Crontab.LockFile,
		Counter:         jobService,
	}, logger)
}

func newNotifier(cfg *config.Config, logger *logrus.Logger) *notifications.NotificationService {
	if cfg.Slack.WebhookURL == "" {
		logger.Debug("Slack notifications disabled")
		return notifications.NewNotificationService(nil, logger)
	}

	slack, err := notifications.NewSlackService(cfg.Slack.WebhookURL, cfg.Slack.Channel, logger)
	if err != nil {
		logger.Warnf("Failed to initialize Slack service: %v", err)
	}
	return notifications.NewNotificationService(slack, logger)
}

func newAuditor(
	schedules *cron.Registry,
	jobService *jobs.Service,
	notifier *notifications.NotificationService,
	m *metrics.Metrics,
	logger *logrus.Logger,
) *cron.Auditor {
	return cron.NewAuditor(schedules, jobService, logger, m, notifier)
}

func newScheduler(cfg *config.Config, auditor *cron.Auditor, logger *logrus.Logger) *cron.Scheduler {
	scheduler := cron.NewScheduler(logger, cfg.Tasks)
	scheduler.RegisterHandler(cron.AuditHandler, auditor.Task)
	return scheduler
}

func newPoller(cfg *config.Config, jobService *jobs.Service, schedules *cron.Registry, m *metrics.Metrics, logger *logrus.Logger) *poller.Poller {
	return poller.New(jobService, schedules, m, logger, config.Duration(cfg.Metrics.PollInterval, time.Minute))
}

func newAuthGuard(cfg *config.Config, m *metrics.Metrics, logger *logrus.Logger) *api.AuthGuard {
	return api.NewAuthGuard(
		cfg.Server.AuthTokens,
		cfg.Server.MaxAuthFailures,
		config.Duration(cfg.Server.AuthBanDuration, 15*time.Minute),
		m,
		logger,
	)
}
