package poller

import (
	"context"
	"sync"
	"time"

	"github.com/0xPuncker/cronwatch/internal/cron"
	"github.com/sirupsen/logrus"
)

type JobSource interface {
	Count() int
}

type ScheduleSource interface {
	List(ctx context.Context) ([]cron.Schedule, error)
}

type Gauges interface {
	SetJobs(n int)
	SetSchedules(n int)
}

// Poller refreshes the job and schedule gauges so that edits made outside
// the server, from the CLI or by hand, show up in metrics.
type Poller struct {
	jobs      JobSource
	schedules ScheduleSource
	gauges    Gauges
	logger    *logrus.Logger
	interval  time.Duration
	stop      chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

const defaultInterval = time.Minute

func New(jobs JobSource, schedules ScheduleSource, gauges Gauges, logger *logrus.Logger, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Poller{
		jobs:      jobs,
		schedules: schedules,
		gauges:    gauges,
		logger:    logger,
		interval:  interval,
		stop:      make(chan struct{}),
	}
}

// Start updates once and then on every tick until ctx is done or Stop is
// called. It blocks.
func (p *Poller) Start(ctx context.Context) {
	p.wg.Add(1)
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.update(ctx)
	for {
		select {
		case <-ticker.C:
			p.update(ctx)
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		}
	}
}

func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
	p.wg.Wait()
}

func (p *Poller) update(ctx context.Context) {
	p.logger.Debug("Starting poller update cycle")

	jobCount := p.jobs.Count()
	p.gauges.SetJobs(jobCount)

	schedules, err := p.schedules.List(ctx)
	if err != nil {
		p.logger.Errorf("Failed to list schedules: %v", err)
		return
	}
	p.gauges.SetSchedules(len(schedules))

	p.logger.WithFields(logrus.Fields{
		"jobs":      jobCount,
		"schedules": len(schedules),
	}).Debug("Completed poller update cycle")
}
