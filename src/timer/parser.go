/*
This file is part of the AtomBPMN (R) project.
Copyright (c) 2025 Matreska Market LLC (ООО «Matreska Market»).
Authors: Matreska Team.

This project is dual-licensed under AGPL-3.0 and AtomBPMN Commercial License.
*/

// Package timer is the Timer Scheduler: a min-heap scheduler over durable
// TimerRecord state, with crash recovery and idempotent firing via CAS.
package timer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

var iso8601DurationRegex = regexp.MustCompile(`^P(?:(\d+)Y)?(?:(\d+)M)?(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)

var cronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ParseDuration parses an ISO-8601 duration string like "PT30S", "P1DT2H".
// Months/years are approximated as 30/365 days, matching calendar-agnostic
// BPMN timer semantics.
func ParseDuration(durationStr string) (time.Duration, error) {
	if durationStr == "" {
		return 0, fmt.Errorf("empty duration string")
	}

	durationStr = strings.ToUpper(durationStr)
	matches := iso8601DurationRegex.FindStringSubmatch(durationStr)
	if matches == nil {
		return 0, fmt.Errorf("invalid ISO8601 duration format: %s", durationStr)
	}

	var total time.Duration
	if matches[1] != "" {
		years, _ := strconv.Atoi(matches[1])
		total += time.Duration(years) * 365 * 24 * time.Hour
	}
	if matches[2] != "" {
		months, _ := strconv.Atoi(matches[2])
		total += time.Duration(months) * 30 * 24 * time.Hour
	}
	if matches[3] != "" {
		days, _ := strconv.Atoi(matches[3])
		total += time.Duration(days) * 24 * time.Hour
	}
	if matches[4] != "" {
		hours, _ := strconv.Atoi(matches[4])
		total += time.Duration(hours) * time.Hour
	}
	if matches[5] != "" {
		minutes, _ := strconv.Atoi(matches[5])
		total += time.Duration(minutes) * time.Minute
	}
	if matches[6] != "" {
		seconds, _ := strconv.ParseFloat(matches[6], 64)
		total += time.Duration(seconds * float64(time.Second))
	}
	return total, nil
}

// ParseRepeatingInterval parses BPMN's repeating timeCycle form, e.g.
// "R3/PT20S" (fire 3 more times every 20s) or "R/PT1H" (repeat
// indefinitely).
func ParseRepeatingInterval(intervalStr string) (repeatCount int, interval time.Duration, err error) {
	if intervalStr == "" {
		return 0, 0, fmt.Errorf("empty interval string")
	}

	intervalStr = strings.ToUpper(intervalStr)
	if !strings.HasPrefix(intervalStr, "R") {
		return 0, 0, fmt.Errorf("repeating interval must start with 'R': %s", intervalStr)
	}

	parts := strings.SplitN(intervalStr, "/", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid repeating interval format: %s", intervalStr)
	}

	repeatStr := strings.TrimPrefix(parts[0], "R")
	if repeatStr == "" {
		repeatCount = -1
	} else {
		repeatCount, err = strconv.Atoi(repeatStr)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid repeat count: %s", repeatStr)
		}
	}

	interval, err = ParseDuration(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid duration in repeating interval: %w", err)
	}
	return repeatCount, interval, nil
}

// ParseDate parses an ISO-8601 timestamp, the `timeDate` BPMN form.
func ParseDate(dateStr string) (time.Time, error) {
	if dateStr == "" {
		return time.Time{}, fmt.Errorf("empty date string")
	}

	formats := []string{
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02T15:04:05Z",
		"2006-01-02T15:04:05",
		"2006-01-02",
	}
	for _, format := range formats {
		if t, err := time.Parse(format, dateStr); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date format: %s", dateStr)
}

// IsCronExpression reports whether def looks like a cron expression (five
// or more space-separated fields, not starting with P or R) rather than an
// ISO-8601 duration/date/repeating-interval. NextCronFire accepts only the
// six-field form with seconds.
func IsCronExpression(def string) bool {
	return len(def) > 0 && def[0] != 'P' && def[0] != 'R' && strings.Count(def, " ") >= 4
}

// NextCronFire computes the next fire time at or after from for a cron
// timeCycle definition, an additional timer-definition shape beyond
// ISO-8601 duration/repeating-interval.
func NextCronFire(def string, from time.Time) (time.Time, error) {
	schedule, err := cronParser.Parse(def)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cron expression %q: %w", def, err)
	}
	return schedule.Next(from), nil
}

// NextFireTime resolves any of the timer definition shapes (duration,
// repeating interval, date, cron) to a concrete next fire time relative
// to from.
func NextFireTime(def string, from time.Time) (time.Time, error) {
	switch {
	case IsCronExpression(def):
		return NextCronFire(def, from)
	case strings.HasPrefix(strings.ToUpper(def), "R"):
		_, interval, err := ParseRepeatingInterval(def)
		if err != nil {
			return time.Time{}, err
		}
		return from.Add(interval), nil
	case strings.HasPrefix(strings.ToUpper(def), "P"):
		d, err := ParseDuration(def)
		if err != nil {
			return time.Time{}, err
		}
		return from.Add(d), nil
	default:
		return ParseDate(def)
	}
}
