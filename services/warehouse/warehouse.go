// Package warehouse pushes processed records into a relational warehouse.
// Loads are idempotent: dimension rows upsert on title_id, fact rows insert
// only when their identity key is new.
package warehouse

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"webtoon-pipeline/lib/timezone"
	"webtoon-pipeline/services/chart/records"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("services/warehouse")

const Schema = `
CREATE TABLE IF NOT EXISTS dim_title (
	title_id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	author TEXT,
	genre TEXT,
	tags TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS fact_weekly_chart (
	chart_date TEXT NOT NULL,
	title_id TEXT NOT NULL,
	rank INTEGER NOT NULL,
	collected_at TEXT NOT NULL,
	weekday TEXT NOT NULL DEFAULT '',
	year INTEGER NOT NULL,
	month INTEGER NOT NULL,
	week INTEGER NOT NULL,
	view_count INTEGER,
	UNIQUE (chart_date, title_id, weekday)
);

CREATE TABLE IF NOT EXISTS fact_title_stats (
	title_id TEXT NOT NULL,
	collected_at TEXT NOT NULL,
	favorite_count INTEGER,
	favorite_count_source TEXT,
	finished INTEGER,
	on_hiatus INTEGER,
	total_episode_count INTEGER,
	year INTEGER NOT NULL,
	month INTEGER NOT NULL,
	week INTEGER NOT NULL,
	UNIQUE (title_id, collected_at)
);
`

// Loader is what the load step needs from a warehouse.
type Loader interface {
	LoadTitles(ctx context.Context, rows []records.TitleRecord) error
	LoadChartFacts(ctx context.Context, rows []records.WeeklyChartRecord) error
	LoadStatsFacts(ctx context.Context, rows []records.StatsRecord) error
	// DeleteChartFacts clears every chart row of a date so a corrected
	// re-collection can load fresh rows in its place.
	DeleteChartFacts(ctx context.Context, chartDate string) error
}

// SQLLoader loads into any database/sql warehouse that understands the
// Schema, a local sqlite file or a libsql url in practice.
type SQLLoader struct {
	db *sql.DB
}

var _ Loader = SQLLoader{}

func NewLoader(db *sql.DB) SQLLoader {
	return SQLLoader{db: db}
}

func timestamp(t time.Time) string {
	return t.In(timezone.Location).Format(time.RFC3339Nano)
}

// LoadTitles upserts dimension rows. created_at is written once and never
// overwritten by later loads.
func (l SQLLoader) LoadTitles(ctx context.Context, rows []records.TitleRecord) error {
	ctx, span := tracer.Start(ctx, "LoadTitles")
	defer span.End()

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin title load: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO dim_title (title_id, title, author, genre, tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (title_id) DO UPDATE SET
			title = excluded.title,
			author = excluded.author,
			genre = excluded.genre,
			tags = excluded.tags,
			updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("prepare title upsert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		tags, err := json.Marshal(records.NormalizeTags(row.Tags))
		if err != nil {
			return fmt.Errorf("encode tags for %s: %w", row.TitleID, err)
		}
		_, err = stmt.ExecContext(ctx,
			row.TitleID, row.Title, row.Author, row.Genre, string(tags),
			timestamp(row.CreatedAt), timestamp(row.UpdatedAt))
		if err != nil {
			return fmt.Errorf("upsert title %s: %w", row.TitleID, err)
		}
	}
	return tx.Commit()
}

// LoadChartFacts inserts chart facts, silently skipping rows whose identity
// key already exists.
func (l SQLLoader) LoadChartFacts(ctx context.Context, rows []records.WeeklyChartRecord) error {
	ctx, span := tracer.Start(ctx, "LoadChartFacts")
	defer span.End()

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin chart load: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO fact_weekly_chart
			(chart_date, title_id, rank, collected_at, weekday, year, month, week, view_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (chart_date, title_id, weekday) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("prepare chart insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		_, err = stmt.ExecContext(ctx,
			row.ChartDate.String(), row.TitleID, row.Rank, timestamp(row.CollectedAt),
			row.Weekday, row.Year, row.Month, row.WeekOfMonth, row.ViewCount)
		if err != nil {
			return fmt.Errorf("insert chart fact %s: %w", row.IdentityKey(), err)
		}
	}
	return tx.Commit()
}

// DeleteChartFacts removes every chart row of a date. The DO NOTHING
// conflict clause would otherwise keep stale rows alive forever when a day
// is re-collected with corrected data.
func (l SQLLoader) DeleteChartFacts(ctx context.Context, chartDate string) error {
	ctx, span := tracer.Start(ctx, "DeleteChartFacts")
	defer span.End()

	_, err := l.db.ExecContext(ctx, `DELETE FROM fact_weekly_chart WHERE chart_date = ?`, chartDate)
	if err != nil {
		return fmt.Errorf("delete chart facts for %s: %w", chartDate, err)
	}
	return nil
}

// LoadStatsFacts inserts stats facts, silently skipping rows whose identity
// key already exists.
func (l SQLLoader) LoadStatsFacts(ctx context.Context, rows []records.StatsRecord) error {
	ctx, span := tracer.Start(ctx, "LoadStatsFacts")
	defer span.End()

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin stats load: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO fact_title_stats
			(title_id, collected_at, favorite_count, favorite_count_source,
			 finished, on_hiatus, total_episode_count, year, month, week)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (title_id, collected_at) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("prepare stats insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		_, err = stmt.ExecContext(ctx,
			row.TitleID, timestamp(row.CollectedAt), row.FavoriteCount,
			row.FavoriteCountSource, row.Finished, row.OnHiatus,
			row.TotalEpisodeCount, row.Year, row.Month, row.WeekOfMonth)
		if err != nil {
			return fmt.Errorf("insert stats fact %s: %w", row.IdentityKey(), err)
		}
	}
	return tx.Commit()
}
