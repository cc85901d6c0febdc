package edition

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"gazette/internal/ga"
	"gazette/internal/period"
)

// Reporter is the slice of the reporting client the builder needs.
type Reporter interface {
	Run(ctx context.Context, q ga.Query) (*ga.Result, error)
}

// Builder runs the query fan-out and assembles editions.
type Builder struct {
	reporter Reporter
}

// NewBuilder creates a builder on top of a reporting client.
func NewBuilder(reporter Reporter) *Builder {
	return &Builder{reporter: reporter}
}

// Build produces the edition for one delivery. profiles is the
// provider's full listing; only those whose ids appear in requestedIDs
// survive, in provider order. For each surviving profile and each of
// the two periods, four independent queries run concurrently: the
// visits time series plus the three scalar totals. If any single query
// fails the whole edition fails; there is no partial rendering.
func (b *Builder) Build(ctx context.Context, profiles []ga.Profile, requestedIDs []string, cadence period.Cadence, periods [2]period.Period) (*Edition, error) {
	requested := make(map[string]bool, len(requestedIDs))
	for _, id := range requestedIDs {
		requested[id] = true
	}

	var selected []ga.Profile
	for _, profile := range profiles {
		if requested[profile.ID] {
			selected = append(selected, profile)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	reports := make([]*ProfileReport, len(selected))
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
		mu.Unlock()
	}

	for i, profile := range selected {
		reports[i] = &ProfileReport{Name: profile.Name}
		for j, p := range periods {
			wg.Add(1)
			go func(report *ProfileReport, slot int, profileID string, p period.Period) {
				defer wg.Done()
				periodReport, err := b.periodReport(ctx, cadence, profileID, p)
				if err != nil {
					fail(err)
					return
				}
				report.Periods[slot] = periodReport
			}(reports[i], j, profile.ID, p)
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	return &Edition{Cadence: cadence, Profiles: reports}, nil
}

// periodReport runs the four queries for one (profile, period) pair
// and waits for all of them before assembling the result.
func (b *Builder) periodReport(ctx context.Context, cadence period.Cadence, profileID string, p period.Period) (*PeriodReport, error) {
	report := &PeriodReport{
		Period: p,
		Range:  period.FormatRange(p),
	}

	steps := []func() error{
		func() error {
			result, err := b.reporter.Run(ctx, seriesQuery(cadence, profileID, p))
			if err != nil {
				return err
			}
			report.Series, err = parseSeries(result)
			return err
		},
		func() error {
			total, err := b.total(ctx, metricVisits, profileID, p)
			report.TotalVisits = total
			return err
		},
		func() error {
			total, err := b.total(ctx, metricVisitors, profileID, p)
			report.TotalUniqueVisitors = total
			return err
		},
		func() error {
			total, err := b.total(ctx, metricPageviews, profileID, p)
			report.TotalPageviews = total
			return err
		},
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for _, step := range steps {
		wg.Add(1)
		go func(step func() error) {
			defer wg.Done()
			if err := step(); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}(step)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return report, nil
}

func (b *Builder) total(ctx context.Context, metric, profileID string, p period.Period) (int64, error) {
	result, err := b.reporter.Run(ctx, totalQuery(metric, profileID, p))
	if err != nil {
		return 0, err
	}
	return parseTotal(result, metric)
}

// parseSeries converts reporting rows into metric points. Each row is
// [dimension value, count].
func parseSeries(result *ga.Result) ([]MetricPoint, error) {
	series := make([]MetricPoint, 0, len(result.Rows))
	for _, row := range result.Rows {
		if len(row) < 2 {
			return nil, fmt.Errorf("%w: series row has %d columns, want 2", ga.ErrQueryFailed, len(row))
		}
		count, err := parseCount(row[1])
		if err != nil {
			return nil, fmt.Errorf("%w: series count %q: %v", ga.ErrQueryFailed, row[1], err)
		}
		series = append(series, MetricPoint{Label: row[0], Count: count})
	}
	return series, nil
}

// parseTotal reads a scalar aggregate. The provider-computed total is
// authoritative; a single result row is the fallback.
func parseTotal(result *ga.Result, metric string) (int64, error) {
	if value, ok := result.Totals[metric]; ok {
		return parseCount(value)
	}
	if len(result.Rows) > 0 && len(result.Rows[0]) > 0 {
		return parseCount(result.Rows[0][0])
	}
	return 0, fmt.Errorf("%w: no total for %s in response", ga.ErrQueryFailed, metric)
}

func parseCount(s string) (int64, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	// The provider occasionally renders integer metrics as floats.
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}
