package edition

import (
	"fmt"
	"time"

	"gazette/internal/period"
)

// Sample produces the canned edition shown to prospective subscribers
// before they authenticate. The numbers are deterministic so the sample
// page is stable within a day.
func Sample(cadence period.Cadence, asOf time.Time) *Edition {
	// Align the delivery day with asOf so weekly samples never hit the
	// not-a-delivery-day short-circuit.
	deliveryDay := ((int(asOf.Weekday()) + 6) % 7) + 1
	periods, err := period.Compute(cadence, asOf, deliveryDay)
	if err != nil {
		// Only reachable with an invalid cadence; give the caller an
		// empty edition rather than a panic.
		return &Edition{Cadence: cadence}
	}

	profile := &ProfileReport{Name: "Example Site"}
	profile.Periods[0] = samplePeriod(cadence, periods[0], 347)
	profile.Periods[1] = samplePeriod(cadence, periods[1], 291)

	return &Edition{Cadence: cadence, Profiles: []*ProfileReport{profile}}
}

func samplePeriod(cadence period.Cadence, p period.Period, seed int64) *PeriodReport {
	report := &PeriodReport{
		Period: p,
		Range:  period.FormatRange(p),
	}

	if cadence == period.Daily {
		for hour := 0; hour < 24; hour++ {
			count := seed/24 + int64((hour*31)%97)
			report.Series = append(report.Series, MetricPoint{
				Label: fmt.Sprintf("%02d", hour),
				Count: count,
			})
			report.TotalVisits += count
		}
	} else {
		for day := p.Start; !day.After(p.End); day = day.AddDate(0, 0, 1) {
			count := seed + int64((day.Day()*53)%211)
			report.Series = append(report.Series, MetricPoint{
				Label: day.Format(period.DateLayout),
				Count: count,
			})
			report.TotalVisits += count
		}
	}

	report.TotalUniqueVisitors = report.TotalVisits * 3 / 4
	report.TotalPageviews = report.TotalVisits * 5 / 2
	return report
}
