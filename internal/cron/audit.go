package cron

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

const AuditHandler = "audit-schedules"

// AuditReport is the outcome of one audit run. Orphans are owned schedules
// whose job index no longer points into the jobs list.
type AuditReport struct {
	Checked  int        `json:"checked"`
	JobCount int        `json:"job_count"`
	Orphans  []Schedule `json:"orphans"`
}

type AuditObserver interface {
	ObserveAudit(ctx context.Context, report AuditReport)
}

// Auditor compares the owned schedules against the jobs list. Schedules
// reference jobs by position, so deleting a job can leave a schedule running
// a different job or none at all.
type Auditor struct {
	schedules *Registry
	jobs      JobCounter
	observers []AuditObserver
	logger    *logrus.Logger
}

func NewAuditor(schedules *Registry, jobs JobCounter, logger *logrus.Logger, observers ...AuditObserver) *Auditor {
	return &Auditor{
		schedules: schedules,
		jobs:      jobs,
		observers: observers,
		logger:    logger,
	}
}

func (a *Auditor) Run(ctx context.Context) (*AuditReport, error) {
	schedules, err := a.schedules.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}

	report := AuditReport{
		Checked:  len(schedules),
		JobCount: a.jobs.Count(),
		Orphans:  []Schedule{},
	}
	for _, s := range schedules {
		if s.JobIndex == 0 || s.JobIndex > report.JobCount {
			report.Orphans = append(report.Orphans, s)
			a.logger.WithFields(logrus.Fields{
				"position":   s.Position,
				"job_index":  s.JobIndex,
				"annotation": s.Annotation,
				"job_count":  report.JobCount,
			}).Warn("Schedule points at a job that does not exist")
		}
	}

	for _, o := range a.observers {
		o.ObserveAudit(ctx, report)
	}

	a.logger.WithFields(logrus.Fields{
		"checked": report.Checked,
		"orphans": len(report.Orphans),
	}).Info("Schedule audit finished")
	return &report, nil
}

// Task adapts Run to the scheduler's TaskFunc.
func (a *Auditor) Task(ctx context.Context) error {
	_, err := a.Run(ctx)
	return err
}
