// Package schedule computes future occurrences of cron expressions.
package schedule

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// standard 5-field cron: minute, hour, day-of-month, month, day-of-week.
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Parse validates a cron expression.
func Parse(expr string) (cron.Schedule, error) {
	sched, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("parse cron expression %q: %w", expr, err)
	}
	return sched, nil
}

// Upcoming returns up to n instants strictly after from, each matching expr,
// in ascending order. The sequence is shorter than n only when the expression
// has no further matches.
func Upcoming(from time.Time, n int, expr string) ([]time.Time, error) {
	sched, err := Parse(expr)
	if err != nil {
		return nil, err
	}

	out := make([]time.Time, 0, n)
	next := from
	for i := 0; i < n; i++ {
		next = sched.Next(next)
		if next.IsZero() {
			break
		}
		out = append(out, next)
	}
	return out, nil
}
