package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/agenda-api/internal/models"
	"github.com/noah-isme/agenda-api/pkg/caldate"
)

func TestWeekRangeEveryWeekday(t *testing.T) {
	monday := caldate.MustParse("2024-05-06")
	for i := 0; i < 7; i++ {
		anchor := monday.AddDays(i)
		start, end := WeekRange(anchor)
		assert.Equal(t, monday, start, anchor.String())
		assert.Equal(t, time.Monday, start.Weekday())
		assert.Equal(t, caldate.MustParse("2024-05-12"), end, anchor.String())
		assert.Equal(t, 6, end.DaysSince(start))
	}
}

func TestWeekRangeSundayGoesBackSixDays(t *testing.T) {
	start, end := WeekRange(caldate.MustParse("2024-03-03"))
	assert.Equal(t, "2024-02-26", start.String())
	assert.Equal(t, "2024-03-03", end.String())
}

func TestNavigateRoundTrips(t *testing.T) {
	week := models.ViewWindow{AnchorDate: caldate.MustParse("2024-12-30"), Granularity: models.GranularityWeek}
	assert.Equal(t, week, Navigate(Navigate(week, 7), -7))
	assert.Equal(t, "2025-01-06", Navigate(week, 7).AnchorDate.String())

	day := models.ViewWindow{AnchorDate: caldate.MustParse("2024-03-01"), Granularity: models.GranularityDay}
	assert.Equal(t, day, Navigate(Navigate(day, 1), -1))
	assert.Equal(t, "2024-02-29", Navigate(day, -1).AnchorDate.String())
}

func TestStepUsesGranularitySpan(t *testing.T) {
	week := models.ViewWindow{AnchorDate: caldate.MustParse("2024-05-08"), Granularity: models.GranularityWeek}
	assert.Equal(t, "2024-05-15", Step(week, 1).AnchorDate.String())
	day := models.ViewWindow{AnchorDate: caldate.MustParse("2024-05-08"), Granularity: models.GranularityDay}
	assert.Equal(t, "2024-05-06", Step(day, -2).AnchorDate.String())
}

func TestWindowDaysAndDescribe(t *testing.T) {
	week := models.ViewWindow{AnchorDate: caldate.MustParse("2024-05-08"), Granularity: models.GranularityWeek}
	days := WindowDays(week)
	assert.Len(t, days, 7)
	assert.Equal(t, "2024-05-06", days[0].String())

	day := models.ViewWindow{AnchorDate: caldate.MustParse("2024-05-08"), Granularity: models.GranularityDay}
	assert.Len(t, WindowDays(day), 1)
	assert.True(t, InWindow(day, caldate.MustParse("2024-05-08")))
	assert.False(t, InWindow(day, caldate.MustParse("2024-05-09")))

	info := DescribeWindow(week)
	assert.Equal(t, "2024-05-01", info.Previous.String())
	assert.Equal(t, "2024-05-15", info.Next.String())
	assert.Equal(t, "Mon 06/05", DayLabel(info.RangeStart))
}
