package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestWeeksInEpiYear(t *testing.T) {
	assert.Equal(t, 52, WeeksInEpiYear(2010))
	assert.Equal(t, 52, WeeksInEpiYear(2013))
	assert.Equal(t, 53, WeeksInEpiYear(2014))
	assert.Equal(t, 52, WeeksInEpiYear(2015))
	assert.Equal(t, 52, WeeksInEpiYear(2020))
}

func TestMondayOfEpiWeek(t *testing.T) {
	tests := []struct {
		name            string
		week            int
		seasonStartYear int
		want            time.Time
	}{
		{name: "season start week", week: 30, seasonStartYear: 2010, want: date(2010, time.July, 26)},
		{name: "late season week", week: 52, seasonStartYear: 2010, want: date(2010, time.December, 27)},
		{name: "week before season start is next year", week: 1, seasonStartYear: 2010, want: date(2011, time.January, 3)},
		{name: "week 1 of 2011 season", week: 1, seasonStartYear: 2011, want: date(2012, time.January, 2)},
		{name: "week 50 mid season", week: 50, seasonStartYear: 2020, want: date(2020, time.December, 7)},
		{name: "week 0 wraps to last week of start year", week: 0, seasonStartYear: 2010, want: date(2010, time.December, 27)},
		{name: "week past year count wraps to week 1", week: 53, seasonStartYear: 2010, want: date(2011, time.January, 3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MondayOfEpiWeek(tt.week, tt.seasonStartYear)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, time.Monday, got.Weekday())
		})
	}
}

func TestExpectedTargetEndDate(t *testing.T) {
	monday := date(2020, time.April, 13)
	tuesday := date(2020, time.April, 14)
	sunday := date(2020, time.April, 12)

	tests := []struct {
		name         string
		forecastDate time.Time
		horizon      int
		unit         HorizonUnit
		want         time.Time
	}{
		{name: "day ahead", forecastDate: monday, horizon: 2, unit: HorizonDay, want: date(2020, time.April, 15)},
		{name: "zero day ahead", forecastDate: monday, horizon: 0, unit: HorizonDay, want: monday},
		{name: "1 wk ahead from Monday ends coming Saturday", forecastDate: monday, horizon: 1, unit: HorizonWeek, want: date(2020, time.April, 18)},
		{name: "1 wk ahead from Sunday ends coming Saturday", forecastDate: sunday, horizon: 1, unit: HorizonWeek, want: date(2020, time.April, 18)},
		{name: "1 wk ahead from Tuesday skips to next Saturday", forecastDate: tuesday, horizon: 1, unit: HorizonWeek, want: date(2020, time.April, 25)},
		{name: "2 wk ahead from Monday", forecastDate: monday, horizon: 2, unit: HorizonWeek, want: date(2020, time.April, 25)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpectedTargetEndDate(tt.forecastDate, tt.horizon, tt.unit)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("unknown unit", func(t *testing.T) {
		_, err := ExpectedTargetEndDate(monday, 1, HorizonUnit("month"))
		assert.Error(t, err)
	})
}

func TestIsSaturday(t *testing.T) {
	assert.True(t, IsSaturday(date(2020, time.April, 18)))
	assert.False(t, IsSaturday(date(2020, time.April, 19)))
}
