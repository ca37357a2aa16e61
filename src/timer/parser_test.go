/*
This file is part of the AtomBPMN (R) project.
Copyright (c) 2025 Matreska Market LLC (ООО «Matreska Market»).
Authors: Matreska Team.

This project is dual-licensed under AGPL-3.0 and AtomBPMN Commercial License.
*/

package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"PT30S", 30 * time.Second},
		{"PT1H", time.Hour},
		{"P1D", 24 * time.Hour},
		{"P1DT2H", 26 * time.Hour},
		{"PT1M30S", 90 * time.Second},
		{"pt30s", 30 * time.Second},
	}
	for _, c := range cases {
		got, err := ParseDuration(c.in)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, got, c.in)
	}
}

func TestParseDuration_Empty(t *testing.T) {
	_, err := ParseDuration("")
	assert.Error(t, err)
}

func TestParseDuration_Invalid(t *testing.T) {
	_, err := ParseDuration("bogus")
	assert.Error(t, err)
}

func TestParseRepeatingInterval_FiniteCount(t *testing.T) {
	count, interval, err := ParseRepeatingInterval("R3/PT20S")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Equal(t, 20*time.Second, interval)
}

func TestParseRepeatingInterval_Indefinite(t *testing.T) {
	count, interval, err := ParseRepeatingInterval("R/PT1H")
	require.NoError(t, err)
	assert.Equal(t, -1, count)
	assert.Equal(t, time.Hour, interval)
}

func TestParseRepeatingInterval_MissingPrefix(t *testing.T) {
	_, _, err := ParseRepeatingInterval("3/PT20S")
	assert.Error(t, err)
}

func TestParseRepeatingInterval_MissingSlash(t *testing.T) {
	_, _, err := ParseRepeatingInterval("R3PT20S")
	assert.Error(t, err)
}

func TestParseDate_RFC3339(t *testing.T) {
	ts, err := ParseDate("2026-03-05T10:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, 2026, ts.Year())
	assert.Equal(t, time.Month(3), ts.Month())
}

func TestParseDate_DateOnly(t *testing.T) {
	ts, err := ParseDate("2026-03-05")
	require.NoError(t, err)
	assert.Equal(t, 5, ts.Day())
}

func TestParseDate_Invalid(t *testing.T) {
	_, err := ParseDate("not-a-date")
	assert.Error(t, err)
}

func TestIsCronExpression(t *testing.T) {
	assert.True(t, IsCronExpression("0 0 12 * * *"))
	assert.False(t, IsCronExpression("PT30S"))
	assert.False(t, IsCronExpression("R3/PT20S"))
	assert.False(t, IsCronExpression(""))
}

func TestNextCronFire(t *testing.T) {
	from := time.Date(2026, 3, 5, 11, 0, 0, 0, time.UTC)
	next, err := NextCronFire("0 0 12 * * *", from)
	require.NoError(t, err)
	assert.Equal(t, 12, next.Hour())
	assert.Equal(t, 5, next.Day())
}

func TestNextCronFire_InvalidExpression(t *testing.T) {
	_, err := NextCronFire("not a cron", time.Now())
	assert.Error(t, err)
}

func TestNextFireTime_Duration(t *testing.T) {
	from := time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)
	next, err := NextFireTime("PT30S", from)
	require.NoError(t, err)
	assert.Equal(t, from.Add(30*time.Second), next)
}

func TestNextFireTime_RepeatingInterval(t *testing.T) {
	from := time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)
	next, err := NextFireTime("R3/PT20S", from)
	require.NoError(t, err)
	assert.Equal(t, from.Add(20*time.Second), next)
}

func TestNextFireTime_CronExpression(t *testing.T) {
	from := time.Date(2026, 3, 5, 11, 0, 0, 0, time.UTC)
	next, err := NextFireTime("0 0 12 * * *", from)
	require.NoError(t, err)
	assert.Equal(t, 12, next.Hour())
}

func TestNextFireTime_DateFallback(t *testing.T) {
	from := time.Now()
	next, err := NextFireTime("2026-03-05", from)
	require.NoError(t, err)
	assert.Equal(t, 2026, next.Year())
}

func TestNextFireTime_InvalidDurationPropagatesError(t *testing.T) {
	_, err := NextFireTime("PTbogus", time.Now())
	assert.Error(t, err)
}
