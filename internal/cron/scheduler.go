package cron

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/0xPuncker/cronwatch/pkg/types"
	"github.com/0xPuncker/cronwatch/pkg/utils"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// TaskFunc is a unit of background work registered under a handler name.
type TaskFunc func(ctx context.Context) error

type scheduledTask struct {
	id   cron.EntryID
	task types.Task
}

// Scheduler runs cronwatch's own background tasks, such as the schedule
// audit. It never runs watch jobs.
type Scheduler struct {
	cron          *cron.Cron
	logger        *logrus.Logger
	tasks         map[string]scheduledTask
	handlers      map[string]TaskFunc
	mu            sync.RWMutex
	started       bool
	maxConcurrent int
	active        int
	activeMu      sync.Mutex
	ctx           context.Context
	cancel        context.CancelFunc
}

func NewScheduler(logger *logrus.Logger, config types.TaskConfig) *Scheduler {
	maxConcurrent := config.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:          cron.New(cron.WithSeconds()),
		logger:        logger,
		tasks:         make(map[string]scheduledTask),
		handlers:      make(map[string]TaskFunc),
		maxConcurrent: maxConcurrent,
		ctx:           ctx,
		cancel:        cancel,
	}
}

func (s *Scheduler) RegisterHandler(name string, fn TaskFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[name] = fn
}

// LoadTasks replaces all scheduled tasks with the enabled ones from tasks.
func (s *Scheduler) LoadTasks(tasks []types.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, t := range s.tasks {
		s.cron.Remove(t.id)
		delete(s.tasks, name)
	}

	for _, task := range tasks {
		if !task.Enabled {
			s.logger.Infof("Skipping disabled task: %s", task.Name)
			continue
		}

		fn, exists := s.handlers[task.Handler]
		if !exists {
			return fmt.Errorf("handler %s not registered", task.Handler)
		}

		id, err := s.cron.AddFunc(task.Schedule, s.wrap(task, fn))
		if err != nil {
			return fmt.Errorf("failed to schedule task %s: %w", task.Name, err)
		}
		s.tasks[task.Name] = scheduledTask{id: id, task: task}

		s.logger.WithFields(logrus.Fields{
			"task":        task.Name,
			"schedule":    task.Schedule,
			"handler":     task.Handler,
			"description": task.Description,
		}).Info("Task scheduled successfully")
	}

	return nil
}

func (s *Scheduler) wrap(task types.Task, fn TaskFunc) func() {
	return func() {
		s.activeMu.Lock()
		if s.active >= s.maxConcurrent {
			s.activeMu.Unlock()
			s.logger.Warnf("Max concurrent tasks reached, skipping task: %s", task.Name)
			return
		}
		s.active++
		active := s.active
		s.activeMu.Unlock()

		defer func() {
			s.activeMu.Lock()
			s.active--
			s.activeMu.Unlock()
		}()

		s.logger.WithFields(logrus.Fields{
			"task":         task.Name,
			"handler":      task.Handler,
			"active_tasks": active,
		}).Debug("Starting task execution")

		start := time.Now()
		if err := fn(s.ctx); err != nil {
			s.logger.WithFields(logrus.Fields{
				"task":     task.Name,
				"error":    err.Error(),
				"duration": utils.FormatElapsed(time.Since(start)),
			}).Error("Task execution failed")
			return
		}
		s.logger.WithFields(logrus.Fields{
			"task":     task.Name,
			"duration": utils.FormatElapsed(time.Since(start)),
		}).Info("Task execution completed successfully")
	}
}

// RunNow executes a registered handler synchronously.
func (s *Scheduler) RunNow(ctx context.Context, handler string) error {
	s.mu.RLock()
	fn, exists := s.handlers[handler]
	s.mu.RUnlock()
	if !exists {
		return fmt.Errorf("handler %s not registered", handler)
	}
	return fn(ctx)
}

func (s *Scheduler) ListTasks() []types.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := make([]types.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, t.task)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].Name < tasks[j].Name })
	return tasks
}

// NextRun reports when the named task fires next.
func (s *Scheduler) NextRun(name string) (time.Time, bool) {
	s.mu.RLock()
	t, exists := s.tasks[name]
	s.mu.RUnlock()
	if !exists {
		return time.Time{}, false
	}
	return s.cron.Entry(t.id).Next, true
}

func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("scheduler already started")
	}

	s.cron.Start()
	s.started = true
	s.logger.Info("Scheduler started...")

	return nil
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.cancel()
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.started = false
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}
