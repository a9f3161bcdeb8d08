package cron

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/0xPuncker/cronwatch/pkg/types"
	"github.com/gofrs/flock"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const (
	DefaultPrefix          = "cronwatch-bot"
	DefaultCommandTemplate = "urlwatch --jobs {index}"
)

// Schedule is an owned crontab entry as presented to front ends.
type Schedule struct {
	Position    int        `json:"position"`
	JobIndex    int        `json:"job_index"`
	Expression  string     `json:"expression"`
	Command     string     `json:"command"`
	Annotation  string     `json:"annotation"`
	Description string     `json:"description,omitempty"`
	NextRun     *time.Time `json:"next_run,omitempty"`
}

// JobCounter reports how many watch jobs exist.
type JobCounter interface {
	Count() int
}

type Options struct {
	Prefix          string
	CommandTemplate string
	// LockPath enables cross-process locking of the table when set.
	LockPath string
	Counter  JobCounter
}

// Registry manages the crontab entries annotated with the ownership prefix.
// Foreign entries are never modified.
type Registry struct {
	table   Table
	prefix  string
	command string
	counter JobCounter
	lock    *flock.Flock
	logger  *logrus.Logger
	mu      sync.Mutex
	now     func() time.Time
}

func NewRegistry(table Table, opts Options, logger *logrus.Logger) *Registry {
	r := &Registry{
		table:   table,
		prefix:  opts.Prefix,
		command: opts.CommandTemplate,
		counter: opts.Counter,
		logger:  logger,
		now:     time.Now,
	}
	if r.prefix == "" {
		r.prefix = DefaultPrefix
	}
	if r.command == "" {
		r.command = DefaultCommandTemplate
	}
	if opts.LockPath != "" {
		r.lock = flock.New(opts.LockPath)
	}
	return r
}

func (r *Registry) Prefix() string {
	return r.prefix
}

func (r *Registry) List(ctx context.Context) ([]Schedule, error) {
	tab, err := r.table.Read(ctx)
	if err != nil {
		return nil, types.WrapError(types.IOFailure, "list_schedules", err, "failed to read scheduler table")
	}

	owned := r.owned(tab)
	schedules := make([]Schedule, 0, len(owned))
	for i, entry := range owned {
		schedules = append(schedules, r.schedule(i+1, entry))
	}
	return schedules, nil
}

func (r *Registry) Get(ctx context.Context, position string) (*Schedule, error) {
	tab, err := r.table.Read(ctx)
	if err != nil {
		return nil, types.WrapError(types.IOFailure, "get_schedule", err, "failed to read scheduler table")
	}

	owned := r.owned(tab)
	offset, err := resolvePosition("get_schedule", position, len(owned))
	if err != nil {
		return nil, err
	}
	s := r.schedule(offset+1, owned[offset])
	return &s, nil
}

func (r *Registry) Add(ctx context.Context, jobIndex, minutes string) (*Schedule, error) {
	index, err := parsePositive("add_schedule", "job index", jobIndex)
	if err != nil {
		return nil, err
	}
	if r.counter != nil {
		if count := r.counter.Count(); index > count {
			return nil, types.NewError(types.NotFound, "add_schedule",
				"job %d does not exist, the list has %d job(s)", index, count)
		}
	}
	interval, err := r.translate("add_schedule", minutes)
	if err != nil {
		return nil, err
	}

	var added Schedule
	err = r.update(ctx, "add_schedule", func(tab *Crontab) error {
		entry := Entry{
			Schedule: interval.Expression,
			Command:  r.renderCommand(index),
			Comment:  r.annotation(index),
		}
		tab.Append(entry)
		added = r.schedule(len(r.owned(tab)), entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	added.Description = interval.Description

	r.logger.WithFields(logrus.Fields{
		"job_index":  index,
		"expression": added.Expression,
		"runs":       interval.Description,
	}).Info("Schedule added")
	return &added, nil
}

// Edit re-translates the entry at position, keeping the job it runs.
func (r *Registry) Edit(ctx context.Context, position, minutes string) (*Schedule, error) {
	var updated Schedule
	var interval Interval
	err := r.update(ctx, "edit_schedule", func(tab *Crontab) error {
		owned := r.owned(tab)
		offset, err := resolvePosition("edit_schedule", position, len(owned))
		if err != nil {
			return err
		}
		if interval, err = r.translate("edit_schedule", minutes); err != nil {
			return err
		}

		old := owned[offset]
		entry := Entry{Schedule: interval.Expression, Command: old.Command, Comment: old.Comment}
		if index := r.jobIndex(old); index > 0 {
			entry.Command = r.renderCommand(index)
			entry.Comment = r.annotation(index)
		}
		tab.Replace(old, entry)
		updated = r.schedule(offset+1, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	updated.Description = interval.Description

	r.logger.WithFields(logrus.Fields{
		"position":   updated.Position,
		"job_index":  updated.JobIndex,
		"expression": updated.Expression,
	}).Info("Schedule updated")
	return &updated, nil
}

func (r *Registry) Delete(ctx context.Context, position string) (*Schedule, error) {
	var removed Schedule
	err := r.update(ctx, "delete_schedule", func(tab *Crontab) error {
		owned := r.owned(tab)
		offset, err := resolvePosition("delete_schedule", position, len(owned))
		if err != nil {
			return err
		}
		removed = r.schedule(offset+1, owned[offset])
		tab.Remove(owned[offset])
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.WithFields(logrus.Fields{
		"position":  removed.Position,
		"job_index": removed.JobIndex,
	}).Info("Schedule deleted")
	return &removed, nil
}

func (r *Registry) update(ctx context.Context, op string, fn func(*Crontab) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.lock != nil {
		if err := os.MkdirAll(filepath.Dir(r.lock.Path()), 0o755); err != nil {
			return types.WrapError(types.IOFailure, op, err, "failed to create lock directory")
		}
		if err := r.lock.Lock(); err != nil {
			return types.WrapError(types.IOFailure, op, err, "failed to lock scheduler table")
		}
		defer r.lock.Unlock()
	}

	tab, err := r.table.Read(ctx)
	if err != nil {
		return types.WrapError(types.IOFailure, op, err, "failed to read scheduler table")
	}
	if err := fn(tab); err != nil {
		return err
	}
	if err := r.table.Write(ctx, tab); err != nil {
		return types.WrapError(types.IOFailure, op, err, "failed to write scheduler table")
	}
	return nil
}

func (r *Registry) owned(tab *Crontab) []Entry {
	var owned []Entry
	for _, entry := range tab.Entries() {
		if strings.HasPrefix(entry.Comment, r.prefix+"-") {
			owned = append(owned, entry)
		}
	}
	return owned
}

func (r *Registry) schedule(position int, entry Entry) Schedule {
	s := Schedule{
		Position:   position,
		JobIndex:   r.jobIndex(entry),
		Expression: entry.Schedule,
		Command:    entry.Command,
		Annotation: entry.Comment,
	}
	if sched, err := cron.ParseStandard(entry.Schedule); err == nil {
		next := sched.Next(r.now())
		if !next.IsZero() {
			s.NextRun = &next
		}
	}
	return s
}

// jobIndex extracts the index from an annotation, or 0 when it has none.
func (r *Registry) jobIndex(entry Entry) int {
	n, err := strconv.Atoi(strings.TrimPrefix(entry.Comment, r.prefix+"-"))
	if err != nil || n <= 0 {
		return 0
	}
	return n
}

func (r *Registry) annotation(index int) string {
	return r.prefix + "-" + strconv.Itoa(index)
}

func (r *Registry) renderCommand(index int) string {
	return strings.ReplaceAll(r.command, "{index}", strconv.Itoa(index))
}

func (r *Registry) translate(op, minutes string) (Interval, error) {
	n, err := strconv.Atoi(strings.TrimSpace(minutes))
	if err != nil {
		return Interval{}, types.NewError(types.InvalidInput, op, "minutes must be a number, got %q", minutes)
	}
	return Translate(n)
}

func parsePositive(op, what, value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n <= 0 {
		return 0, types.NewError(types.InvalidInput, op, "%s must be a positive integer, got %q", what, value)
	}
	return n, nil
}

func resolvePosition(op, position string, count int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(position))
	if err != nil {
		return 0, types.NewError(types.InvalidInput, op, "position must be a number, got %q", position)
	}
	if count == 0 {
		return 0, types.NewError(types.NotFound, op, "no schedules configured")
	}
	if n < 1 || n > count {
		return 0, types.NewError(types.NotFound, op, "invalid position %d, use 1-%d", n, count)
	}
	return n - 1, nil
}
