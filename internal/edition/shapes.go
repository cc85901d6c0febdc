package edition

import (
	"gazette/internal/ga"
	"gazette/internal/period"
)

// Metric names in the provider's reporting vocabulary. "visitors" is
// the provider's name for unique visitors.
const (
	metricVisits    = "ga:visits"
	metricVisitors  = "ga:visitors"
	metricPageviews = "ga:pageviews"

	dimensionHour = "ga:hour"
	dimensionDate = "ga:date"
)

// seriesQuery shapes the time-series query for one profile and period.
// The dimension set follows the cadence — hours within a single day,
// dates within a week — and the sort keys follow the dimension set.
func seriesQuery(cadence period.Cadence, profileID string, p period.Period) ga.Query {
	dimension := dimensionHour
	if cadence == period.Weekly {
		dimension = dimensionDate
	}
	return ga.Query{
		ProfileID:  profileID,
		StartDate:  p.Start.Format(period.DateLayout),
		EndDate:    p.End.Format(period.DateLayout),
		Metrics:    []string{metricVisits},
		Dimensions: []string{dimension},
		Sort:       []string{dimension},
	}
}

// totalQuery shapes one dimensionless scalar aggregate query.
func totalQuery(metric, profileID string, p period.Period) ga.Query {
	return ga.Query{
		ProfileID: profileID,
		StartDate: p.Start.Format(period.DateLayout),
		EndDate:   p.End.Format(period.DateLayout),
		Metrics:   []string{metric},
	}
}
