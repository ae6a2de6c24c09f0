package domain

import (
	"fmt"
	"time"
)

// SeasonStartWeek anchors flu seasons: epi weeks >= 30 belong to the season
// start year, weeks < 30 to the following calendar year.
const SeasonStartWeek = 30

// HorizonUnit is the step size of an N-ahead target.
type HorizonUnit string

const (
	HorizonDay  HorizonUnit = "day"
	HorizonWeek HorizonUnit = "week"
)

// epiWeekStart returns the Sunday starting MMWR epi week `week` of calendar
// year `year`. Week 1 is the week containing January 4th; weeks start Sunday.
func epiWeekStart(year, week int) time.Time {
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	week1 := jan4.AddDate(0, 0, -int(jan4.Weekday())) // Sunday on or before Jan 4
	return week1.AddDate(0, 0, 7*(week-1))
}

// WeeksInEpiYear returns 52 or 53, the number of MMWR weeks in a calendar year.
func WeeksInEpiYear(year int) int {
	if epiWeekStart(year+1, 1).Sub(epiWeekStart(year, 1)) > 52*7*24*time.Hour {
		return 53
	}
	return 52
}

// MondayOfEpiWeek returns the Monday of the given epi week within the season
// starting in seasonStartYear. The MMWR week itself starts on Sunday; hub
// convention reports the Monday, one day later.
//
// Week numbers outside [1, weeks-in-year] wrap to the adjacent season: a
// rounded week below 1 lands in the last week of the season start year, and
// a week past the season year's count lands in week 1 of the following year.
func MondayOfEpiWeek(week, seasonStartYear int) time.Time {
	year := seasonStartYear
	if week < 1 {
		week += WeeksInEpiYear(seasonStartYear)
	} else if week < SeasonStartWeek {
		year = seasonStartYear + 1
	}
	if week > WeeksInEpiYear(year) {
		week -= WeeksInEpiYear(year)
		year++
	}
	return epiWeekStart(year, week).AddDate(0, 0, 1)
}

// sundayBasedWeekday numbers weekdays Sun=1 .. Sat=7, the numbering the
// hub's alignment rules are written in.
func sundayBasedWeekday(t time.Time) int {
	return int(t.Weekday()) + 1
}

// ExpectedTargetEndDate computes the target end date a well-aligned
// submission must carry for an N-ahead target relative to forecastDate.
//
// Day-ahead targets end exactly horizon days after the forecast date.
// Week-ahead targets end on Saturdays: when the forecast date falls on
// Sunday or Monday the 1-week-ahead target ends the coming Saturday;
// Tuesday through Saturday it ends the Saturday after next. Each additional
// horizon step adds 7 days.
func ExpectedTargetEndDate(forecastDate time.Time, horizon int, unit HorizonUnit) (time.Time, error) {
	switch unit {
	case HorizonDay:
		return forecastDate.AddDate(0, 0, horizon), nil
	case HorizonWeek:
		daysToSaturday := 7 - sundayBasedWeekday(forecastDate)
		if sundayBasedWeekday(forecastDate) <= 2 { // Sunday or Monday
			return forecastDate.AddDate(0, 0, daysToSaturday+7*(horizon-1)), nil
		}
		return forecastDate.AddDate(0, 0, daysToSaturday+7*horizon), nil
	default:
		return time.Time{}, fmt.Errorf("unknown horizon unit %q", unit)
	}
}

// IsSaturday reports whether t falls on a Saturday.
func IsSaturday(t time.Time) bool {
	return t.Weekday() == time.Saturday
}
