package calendar

import (
	"fmt"
	"net/url"
	"time"

	"github.com/0xPuncker/cronwatch/pkg/types"
	"github.com/robfig/cron/v3"
)

const (
	DefaultRuns = 5
	MaxRuns     = 100

	eventLength = 5 * time.Minute
)

type CalendarService struct {
	now func() time.Time
}

func NewCalendarService() *CalendarService {
	return &CalendarService{now: time.Now}
}

// Upcoming returns the next count activation times of a five-field
// expression, starting after the current time.
func (s *CalendarService) Upcoming(expression string, count int) ([]time.Time, error) {
	if count < 1 || count > MaxRuns {
		return nil, types.NewError(types.InvalidInput, "upcoming_runs",
			"count must be between 1 and %d, got %d", MaxRuns, count)
	}

	schedule, err := cron.ParseStandard(expression)
	if err != nil {
		return nil, types.WrapError(types.InvalidInput, "upcoming_runs", err,
			"cannot parse expression %q", expression)
	}

	runs := make([]time.Time, 0, count)
	next := s.now()
	for len(runs) < count {
		next = schedule.Next(next)
		if next.IsZero() {
			break
		}
		runs = append(runs, next)
	}
	return runs, nil
}

func (s *CalendarService) CreateEventURL(title, description string, startTime, endTime time.Time) (string, error) {
	if title == "" {
		return "", fmt.Errorf("title cannot be empty")
	}

	if endTime.Before(startTime) {
		return "", fmt.Errorf("end time cannot be before start time")
	}

	if startTime.Equal(endTime) {
		return "", fmt.Errorf("start time and end time cannot be the same")
	}

	start := startTime.UTC().Format("20060102T150405Z")
	end := endTime.UTC().Format("20060102T150405Z")

	u := url.URL{
		Scheme: "https",
		Host:   "calendar.google.com",
		Path:   "calendar/render",
	}

	params := url.Values{}
	params.Add("action", "TEMPLATE")
	params.Add("text", title)
	params.Add("details", description)
	params.Add("dates", fmt.Sprintf("%s/%s", start, end))

	u.RawQuery = params.Encode()

	return u.String(), nil
}

// CreateRunEvent links a calendar event for one run of a scheduled job.
func (s *CalendarService) CreateRunEvent(jobIndex int, expression string, at time.Time) (string, error) {
	if jobIndex <= 0 {
		return "", fmt.Errorf("job index must be positive")
	}

	title := fmt.Sprintf("urlwatch job %d", jobIndex)
	description := fmt.Sprintf("Job: %d\nSchedule: %s", jobIndex, expression)
	return s.CreateEventURL(title, description, at, at.Add(eventLength))
}
