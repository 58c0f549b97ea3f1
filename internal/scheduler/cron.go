package scheduler

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Maintenance schedules use the @-prefixed subset of cron: named
// expressions (@hourly, @daily, @weekly, @monthly, @yearly) and
// "@every <duration>" with an extra "d" suffix for days. Full 5-field
// cron would need a real cron library and nothing here needs it.

var fiveFieldCron = regexp.MustCompile(`^(((\d+,)+\d+|(\d+(\/|-)\d+)|\d+|\*) ?){5,7}$`)

// ParseCronExpression returns the next run time after base for expr.
func ParseCronExpression(expr string, base time.Time) (time.Time, error) {
	expr = strings.TrimSpace(expr)

	switch expr {
	case "@yearly", "@annually":
		return time.Date(base.Year()+1, 1, 1, 0, 0, 0, 0, base.Location()), nil
	case "@monthly":
		return startOfNextMonth(base), nil
	case "@weekly":
		return startOfNextWeek(base), nil
	case "@daily":
		return time.Date(base.Year(), base.Month(), base.Day()+1, 0, 0, 0, 0, base.Location()), nil
	case "@hourly":
		return base.Add(time.Hour).Truncate(time.Hour), nil
	}

	if raw, ok := strings.CutPrefix(expr, "@every "); ok {
		d, err := parseDurationWithDays(raw)
		if err != nil {
			return time.Time{}, err
		}
		return base.Add(d), nil
	}

	if fiveFieldCron.MatchString(expr) {
		return time.Time{}, fmt.Errorf("standard cron expressions are not supported, use @every or a named expression")
	}
	return time.Time{}, fmt.Errorf("unsupported cron expression: %s", expr)
}

// ValidateCronExpression reports whether expr is a schedule this
// scheduler can run.
func ValidateCronExpression(expr string) error {
	_, err := ParseCronExpression(expr, time.Now())
	return err
}

// parseDurationWithDays parses durations like "30m", "6h" or "7d".
// time.ParseDuration has no day unit so that case is handled here.
func parseDurationWithDays(raw string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(raw, "d"); ok {
		n, err := strconv.Atoi(days)
		if err == nil {
			return time.Duration(n) * 24 * time.Hour, nil
		}
		// fall through: "1md" and friends still fail below
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid duration: %s", raw)
	}
	return d, nil
}

func startOfNextMonth(t time.Time) time.Time {
	year, month := t.Year(), t.Month()+1
	if month > 12 {
		month = 1
		year++
	}
	return time.Date(year, month, 1, 0, 0, 0, 0, t.Location())
}

// startOfNextWeek returns midnight of the next Sunday strictly after t.
func startOfNextWeek(t time.Time) time.Time {
	days := (7 - int(t.Weekday())) % 7
	if days == 0 {
		days = 7
	}
	return time.Date(t.Year(), t.Month(), t.Day()+days, 0, 0, 0, 0, t.Location())
}
