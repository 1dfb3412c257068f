package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// CronSchedule is a Schedule backed by a standard 5-field cron expression.
// Descriptors such as "@hourly" and "@every 15m" are accepted as well.
// Examples:
//   - "*/5 * * * *"  - every 5 minutes
//   - "0 */1 * * *"  - every hour
//   - "0 3 * * *"    - every day at 03:00
type CronSchedule struct {
	raw   string
	sched cron.Schedule
}

// ParseCron parses expr with the standard cron parser.
func ParseCron(expr string) (*CronSchedule, error) {
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return &CronSchedule{raw: expr, sched: sched}, nil
}

// MustParseCron is ParseCron for expressions known at compile time.
func MustParseCron(expr string) *CronSchedule {
	s, err := ParseCron(expr)
	if err != nil {
		panic(err)
	}
	return s
}

// Next returns the next activation time after t.
func (c *CronSchedule) Next(t time.Time) time.Time {
	return c.sched.Next(t)
}

// String returns the original expression.
func (c *CronSchedule) String() string {
	return c.raw
}

// Every returns a fixed-interval schedule.
func Every(d time.Duration) *CronSchedule {
	return &CronSchedule{
		raw:   "@every " + d.String(),
		sched: cron.Every(d),
	}
}
