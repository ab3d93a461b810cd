// Package quality runs post-load sanity checks against the warehouse and
// raises an alert when a scheduled collection silently degrades.
package quality

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"webtoon-pipeline/lib/timezone"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("services/quality")

// Thresholds bounds what counts as a healthy collection day.
type Thresholds struct {
	// MinChartRows is the fewest chart fact rows a day may have. A full
	// weekday chart carries several hundred.
	MinChartRows int `json:"min_chart_rows"`
	// MaxStalenessHours bounds the age of the newest stats row.
	MaxStalenessHours int `json:"max_staleness_hours"`
}

var DefaultThresholds = Thresholds{
	MinChartRows:      100,
	MaxStalenessHours: 36,
}

// Result is one day's verdict.
type Result struct {
	Date          string
	ChartRows     int
	DistinctItems int
	StatsRows     int
	NewestStatsAt time.Time
	Problems      []string
}

func (r Result) Passed() bool {
	return len(r.Problems) == 0
}

// Check inspects one collection day in the warehouse.
func Check(ctx context.Context, db *sql.DB, date string, thresholds Thresholds) (Result, error) {
	ctx, span := tracer.Start(ctx, "Check")
	defer span.End()

	if thresholds == (Thresholds{}) {
		thresholds = DefaultThresholds
	}
	result := Result{Date: date}

	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT title_id)
		FROM fact_weekly_chart WHERE chart_date = ?`, date,
	).Scan(&result.ChartRows, &result.DistinctItems)
	if err != nil {
		return result, fmt.Errorf("count chart facts: %w", err)
	}

	var newest sql.NullString
	err = db.QueryRowContext(ctx, `
		SELECT COUNT(*), MAX(collected_at)
		FROM fact_title_stats`,
	).Scan(&result.StatsRows, &newest)
	if err != nil {
		return result, fmt.Errorf("count stats facts: %w", err)
	}
	if newest.Valid {
		at, err := time.Parse(time.RFC3339Nano, newest.String)
		if err != nil {
			return result, fmt.Errorf("parse newest collected_at %q: %w", newest.String, err)
		}
		result.NewestStatsAt = at.In(timezone.Location)
	}

	if result.ChartRows < thresholds.MinChartRows {
		result.Problems = append(result.Problems, fmt.Sprintf(
			"chart has %d rows for %s, expected at least %d",
			result.ChartRows, date, thresholds.MinChartRows))
	}
	if result.NewestStatsAt.IsZero() {
		result.Problems = append(result.Problems, "no stats facts in the warehouse")
	} else if staleness := timezone.Now().Sub(result.NewestStatsAt); staleness > time.Duration(thresholds.MaxStalenessHours)*time.Hour {
		result.Problems = append(result.Problems, fmt.Sprintf(
			"newest stats row is %.0f hours old, threshold is %d",
			staleness.Hours(), thresholds.MaxStalenessHours))
	}
	return result, nil
}
