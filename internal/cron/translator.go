package cron

import (
	"fmt"

	"github.com/0xPuncker/cronwatch/pkg/types"
	"github.com/robfig/cron/v3"
)

const (
	minutesPerHour = 60
	minutesPerDay  = 24 * minutesPerHour
)

// Interval is a crontab expression together with a human description of it.
type Interval struct {
	Expression  string `json:"expression"`
	Description string `json:"description"`
}

// Translate converts a positive interval in minutes into a five-field
// expression. Only intervals below an hour, hour counts dividing a day and
// whole days are representable.
func Translate(minutes int) (Interval, error) {
	if minutes <= 0 {
		return Interval{}, types.NewError(types.InvalidInput, "translate",
			"interval must be a positive number of minutes, got %d", minutes)
	}

	var interval Interval
	switch {
	case minutes < minutesPerHour:
		interval = Interval{
			Expression:  fmt.Sprintf("*/%d * * * *", minutes),
			Description: fmt.Sprintf("every %d minutes", minutes),
		}
	case minutes%minutesPerHour == 0 && dividesDay(minutes/minutesPerHour):
		hours := minutes / minutesPerHour
		interval = Interval{
			Expression:  fmt.Sprintf("0 */%d * * *", hours),
			Description: fmt.Sprintf("every %d hour(s)", hours),
		}
	case minutes%minutesPerDay == 0:
		days := minutes / minutesPerDay
		interval = Interval{
			Expression:  fmt.Sprintf("0 0 */%d * *", days),
			Description: fmt.Sprintf("every %d day(s)", days),
		}
	default:
		return Interval{}, types.NewError(types.UnsupportedInterval, "translate",
			"cannot schedule every %d minutes: use 1-59 minutes, whole hours dividing 24 (60, 120, 180, 240, 360, 480, 720) or whole days (multiples of 1440)",
			minutes)
	}

	if _, err := cron.ParseStandard(interval.Expression); err != nil {
		return Interval{}, types.WrapError(types.UnsupportedInterval, "translate", err,
			"expression %q rejected", interval.Expression)
	}
	return interval, nil
}

func dividesDay(hours int) bool {
	return hours < 24 && 24%hours == 0
}
