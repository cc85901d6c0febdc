// Package period computes the comparison date ranges an edition covers.
package period

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the calendar-date form used for reporting queries.
const DateLayout = "2006-01-02"

// Cadence is the reporting frequency of a publication.
type Cadence string

const (
	Daily  Cadence = "daily"
	Weekly Cadence = "weekly"
)

// ErrInvalidCadence means the cadence selector was not one of the
// supported values.
var ErrInvalidCadence = errors.New("invalid cadence")

// ErrNotDeliveryDay is the expected short-circuit for weekly cadence
// when the as-of date's weekday is not the configured delivery day.
// Callers respond with an empty edition instead of querying.
var ErrNotDeliveryDay = errors.New("not a delivery day")

// ParseCadence validates a cadence selector from the URL path.
func ParseCadence(s string) (Cadence, error) {
	switch Cadence(s) {
	case Daily, Weekly:
		return Cadence(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCadence, s)
}

// Period is an inclusive calendar-date range. Start and End are UTC
// midnights.
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Compute returns the [current, prior] periods for one delivery.
//
// Daily: current is yesterday, prior is the same weekday one week
// earlier, so day-of-week traffic shape stays comparable.
//
// Weekly: periods are the two most recent complete Sunday-to-Saturday
// weeks before the as-of date. The week boundary is fixed even though
// the delivery weekday (1=Monday..7=Sunday) is configurable; if the
// as-of weekday is not the delivery day, ErrNotDeliveryDay is returned
// before anything else happens.
func Compute(cadence Cadence, asOf time.Time, weeklyDeliveryDay int) ([2]Period, error) {
	day := truncate(asOf)

	switch cadence {
	case Daily:
		yesterday := day.AddDate(0, 0, -1)
		weekEarlier := day.AddDate(0, 0, -8)
		return [2]Period{
			{Start: yesterday, End: yesterday},
			{Start: weekEarlier, End: weekEarlier},
		}, nil

	case Weekly:
		if weeklyDeliveryDay < 1 || weeklyDeliveryDay > 7 {
			return [2]Period{}, fmt.Errorf("weekly delivery day %d out of range 1..7", weeklyDeliveryDay)
		}
		if day.Weekday() != time.Weekday(weeklyDeliveryDay%7) {
			return [2]Period{}, ErrNotDeliveryDay
		}

		// Walk back from yesterday to the most recent Saturday, which
		// closes the latest complete Sunday-to-Saturday week.
		yesterday := day.AddDate(0, 0, -1)
		toSaturday := (int(yesterday.Weekday()) + 1) % 7
		currentEnd := yesterday.AddDate(0, 0, -toSaturday)
		return [2]Period{
			{Start: currentEnd.AddDate(0, 0, -6), End: currentEnd},
			{Start: currentEnd.AddDate(0, 0, -13), End: currentEnd.AddDate(0, 0, -7)},
		}, nil
	}

	return [2]Period{}, fmt.Errorf("%w: %q", ErrInvalidCadence, cadence)
}

// FormatRange renders a period for display on the printed edition:
// "28 Apr 2013" for a single day, "21–27 Apr 2013" within one month,
// "28 Apr to 4 May 2013" within one year, "29 Dec 2013 to 4 Jan 2014"
// across years.
func FormatRange(p Period) string {
	switch {
	case p.Start.Equal(p.End):
		return fmt.Sprintf("%d %s %d", p.End.Day(), p.End.Format("Jan"), p.End.Year())
	case p.Start.Year() == p.End.Year() && p.Start.Month() == p.End.Month():
		return fmt.Sprintf("%d–%d %s %d",
			p.Start.Day(), p.End.Day(), p.End.Format("Jan"), p.End.Year())
	case p.Start.Year() == p.End.Year():
		return fmt.Sprintf("%d %s to %d %s %d",
			p.Start.Day(), p.Start.Format("Jan"),
			p.End.Day(), p.End.Format("Jan"), p.End.Year())
	default:
		return fmt.Sprintf("%d %s %d to %d %s %d",
			p.Start.Day(), p.Start.Format("Jan"), p.Start.Year(),
			p.End.Day(), p.End.Format("Jan"), p.End.Year())
	}
}

func truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
