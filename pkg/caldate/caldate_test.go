package caldate

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateAddDaysAcrossMonthAndYear(t *testing.T) {
	assert.Equal(t, "2024-03-01", MustParse("2024-02-28").AddDays(2).String())
	assert.Equal(t, "2025-01-02", MustParse("2024-12-30").AddDays(3).String())
	assert.Equal(t, "2024-02-29", MustParse("2024-03-06").AddDays(-6).String())
}

func TestDateParseUsesLiteralDatePart(t *testing.T) {
	d, err := Parse("2024-05-06T23:30:00-07:00")
	require.NoError(t, err)
	assert.Equal(t, New(2024, time.May, 6), d)

	_, err = Parse("06/05/2024")
	require.Error(t, err)
}

func TestDateCompareAndWithin(t *testing.T) {
	a := MustParse("2024-05-06")
	b := MustParse("2024-05-12")
	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.Equal(t, 0, a.Compare(New(2024, time.May, 6)))
	assert.True(t, MustParse("2024-05-12").Within(a, b))
	assert.False(t, MustParse("2024-05-13").Within(a, b))
	assert.Equal(t, 6, b.DaysSince(a))
}

func TestDateJSONAndScan(t *testing.T) {
	payload, err := json.Marshal(struct {
		Date Date `json:"date"`
	}{Date: MustParse("2024-05-06")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2024-05-06"}`, string(payload))

	var d Date
	require.NoError(t, d.Scan(time.Date(2024, time.May, 6, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024-05-06", d.String())
	require.NoError(t, d.Scan([]byte("2024-06-01")))
	assert.Equal(t, "2024-06-01", d.String())
}

func TestParseClockForms(t *testing.T) {
	cases := map[string]string{
		"9:00":                 "09:00",
		"09:30":                "09:30",
		"17:45:59":             "17:45",
		"0000-01-01T08:15:00Z": "08:15",
	}
	for raw, want := range cases {
		got, err := ParseClock(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got.String(), raw)
	}

	for _, bad := range []string{"", "24:00", "10:7", "noon"} {
		_, err := ParseClock(bad)
		assert.Error(t, err, bad)
	}
}

func TestClockScanAndValue(t *testing.T) {
	var c Clock
	require.NoError(t, c.Scan([]byte("10:30:00")))
	assert.Equal(t, 630, c.Minutes())

	v, err := c.Value()
	require.NoError(t, err)
	assert.Equal(t, "10:30:00", v)

	at := c.On(MustParse("2024-05-06"), time.UTC)
	assert.Equal(t, time.Date(2024, time.May, 6, 10, 30, 0, 0, time.UTC), at)
}
