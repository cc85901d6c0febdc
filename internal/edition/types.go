// Package edition assembles the per-delivery traffic report: the
// multi-profile, multi-period query fan-out, its aggregation into the
// report structure, and the cache fingerprint for the response.
package edition

import (
	"crypto/sha256"
	"fmt"
	"time"

	"gazette/internal/period"
)

// SampleToken is the fingerprint input for the sample edition, which
// has no subscriber credential.
const SampleToken = "sample"

// MetricPoint is one point of the visits time series. Label is an hour
// ("00".."23") for daily cadence or a calendar date for weekly.
type MetricPoint struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// PeriodReport is the aggregate for one profile over one period.
type PeriodReport struct {
	Period              period.Period `json:"period"`
	Range               string        `json:"range"`
	Series              []MetricPoint `json:"series"`
	TotalVisits         int64         `json:"total_visits"`
	TotalUniqueVisitors int64         `json:"total_unique_visitors"`
	TotalPageviews      int64         `json:"total_pageviews"`
}

// ProfileReport holds exactly two period reports. Index 0 is always the
// current period and index 1 the prior one; rendering relies on the
// positions, not on labels.
type ProfileReport struct {
	Name    string           `json:"name"`
	Periods [2]*PeriodReport `json:"periods"`
}

// Edition is the complete report for one delivery, one entry per
// requested profile in the order the provider listed them.
type Edition struct {
	Cadence  period.Cadence   `json:"cadence"`
	Profiles []*ProfileReport `json:"profiles"`
}

// Fingerprint computes the cache-validation token for a delivery:
// stable across repeat requests for the same subscriber on the same
// calendar day, different on any other day or for any other
// subscriber. It is computed whether or not the fan-out ran.
func Fingerprint(token string, day time.Time) string {
	sum := sha256.Sum256([]byte(token + ":" + day.Format(period.DateLayout)))
	return fmt.Sprintf("%x", sum)
}
