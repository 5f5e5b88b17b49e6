package daemon

import (
	"time"

	"github.com/robfig/cron/v3"
)

// cronGate tracks the next time a CronSeeded module's build step is
// allowed to run, layered on top of (not replacing) the module's own
// Schedule.BuildingDelay: a build attempt still only fires once
// BuildingDelay has elapsed, and even then only if the cron expression
// is also due.
type cronGate struct {
	schedule cron.Schedule
	next     time.Time
}

func newCronGate(spec string) (*cronGate, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, err
	}
	return &cronGate{schedule: schedule, next: schedule.Next(time.Now())}, nil
}

// ready reports whether now has reached the gate's next fire time,
// advancing it if so.
func (g *cronGate) ready(now time.Time) bool {
	if now.Before(g.next) {
		return false
	}
	g.next = g.schedule.Next(now)
	return true
}
