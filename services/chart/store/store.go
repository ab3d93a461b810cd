// Package store persists warehouse records as newline-delimited json under
// a processed/ directory. One file per dimension or fact partition; a
// missing file reads back as an empty table.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"webtoon-pipeline/services/chart/records"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("services/chart/store")

// Config locates the store on disk. Nothing here is read from the
// environment; the caller decides where data lives.
type Config struct {
	// DataDir is the pipeline data root; processed records go under
	// <DataDir>/processed.
	DataDir string `json:"data_dir"`
}

type Store struct {
	dir string
}

func New(config Config) Store {
	return Store{dir: filepath.Join(config.DataDir, "processed")}
}

func (s Store) titlesPath() string {
	return filepath.Join(s.dir, "dim_title.jsonl")
}

// chartPath partitions chart facts by date, and by sort axis when one is
// given, so concurrent axis runs never clobber each other.
func (s Store) chartPath(date records.Date, axis string) string {
	name := "fact_weekly_chart_" + date.String()
	if axis != "" {
		name += "_" + axis
	}
	return filepath.Join(s.dir, name+".jsonl")
}

func (s Store) statsPath() string {
	return filepath.Join(s.dir, "fact_title_stats.jsonl")
}

func (s Store) LoadTitles(ctx context.Context) ([]records.TitleRecord, error) {
	return loadRecords[records.TitleRecord](ctx, s.titlesPath())
}

func (s Store) SaveTitles(ctx context.Context, rows []records.TitleRecord) error {
	return saveRecords(ctx, s.titlesPath(), rows)
}

func (s Store) LoadChartFacts(ctx context.Context, date records.Date, axis string) ([]records.WeeklyChartRecord, error) {
	return loadRecords[records.WeeklyChartRecord](ctx, s.chartPath(date, axis))
}

func (s Store) SaveChartFacts(ctx context.Context, date records.Date, axis string, rows []records.WeeklyChartRecord) error {
	return saveRecords(ctx, s.chartPath(date, axis), rows)
}

func (s Store) LoadStatsFacts(ctx context.Context) ([]records.StatsRecord, error) {
	return loadRecords[records.StatsRecord](ctx, s.statsPath())
}

func (s Store) SaveStatsFacts(ctx context.Context, rows []records.StatsRecord) error {
	return saveRecords(ctx, s.statsPath(), rows)
}

// ChartPartitions lists the (date, axis) chart partitions present on disk
// for a given date, axis "" included.
func (s Store) ChartPartitions(date records.Date) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "fact_weekly_chart_"+date.String()+"*.jsonl"))
	if err != nil {
		return nil, err
	}
	axes := make([]string, 0, len(matches))
	for _, match := range matches {
		name := filepath.Base(match)
		name = name[:len(name)-len(".jsonl")]
		rest := name[len("fact_weekly_chart_"+date.String()):]
		if rest == "" {
			axes = append(axes, "")
			continue
		}
		axes = append(axes, rest[1:])
	}
	return axes, nil
}

// DeleteChartFacts removes every chart partition of a date, all axes
// included. Re-collecting a date starts from a clean slate.
func (s Store) DeleteChartFacts(ctx context.Context, date records.Date) error {
	_, span := tracer.Start(ctx, "DeleteChartFacts")
	defer span.End()

	matches, err := filepath.Glob(filepath.Join(s.dir, "fact_weekly_chart_"+date.String()+"*.jsonl"))
	if err != nil {
		return err
	}
	for _, match := range matches {
		if err := os.Remove(match); err != nil {
			return fmt.Errorf("delete %s: %w", match, err)
		}
	}
	return nil
}

func loadRecords[T any](ctx context.Context, path string) ([]T, error) {
	_, span := tracer.Start(ctx, "loadRecords")
	defer span.End()

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var rows []T
	for i, line := range bytes.Split(raw, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var row T
		if err := json.Unmarshal(line, &row); err != nil {
			// one corrupt line must not take the whole partition down
			slog.Warn("skipping corrupt record line", "path", path, "line", i+1, "err", err)
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func saveRecords[T any](ctx context.Context, path string, rows []T) error {
	_, span := tracer.Start(ctx, "saveRecords")
	defer span.End()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}

	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	for _, row := range rows {
		if err := encoder.Encode(row); err != nil {
			return fmt.Errorf("encode record for %s: %w", path, err)
		}
	}

	// write then rename so a crash never leaves a half-written partition
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buffer.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
