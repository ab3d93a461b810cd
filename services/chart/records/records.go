// Package records defines the rows of the chart warehouse: one title
// dimension and two append-only fact tables. Constructors validate what a
// row must never lack; Validate* functions re-check rows read back from
// storage before they are trusted.
package records

import (
	"fmt"
	"strings"
	"time"

	"webtoon-pipeline/lib/timezone"
)

// Date is a calendar day, serialized as "2006-01-02".
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, timezone.Location)}
}

// DateOf truncates t to its calendar day in the collection timezone.
func DateOf(t time.Time) Date {
	local := t.In(timezone.Location)
	return NewDate(local.Year(), local.Month(), local.Day())
}

func ParseDate(s string) (Date, error) {
	t, err := time.ParseInLocation(dateLayout, s, timezone.Location)
	if err != nil {
		return Date{}, fmt.Errorf("%w: chart date %q: %v", ErrInvalidArgument, s, err)
	}
	return Date{t}, nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	parsed, err := ParseDate(strings.Trim(string(data), `"`))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ErrInvalidArgument wraps every constructor rejection.
var ErrInvalidArgument = fmt.Errorf("invalid argument")

// TitleRecord is one row of the title dimension.
type TitleRecord struct {
	TitleID   string    `json:"title_id"`
	Title     string    `json:"title"`
	Author    string    `json:"author,omitempty"`
	Genre     string    `json:"genre,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TitleParams carries the inputs of NewTitle. Zero timestamps mean "now".
type TitleParams struct {
	TitleID string
	Title   string
	Author  string
	Genre   string
	Tags    []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewTitle(p TitleParams) (TitleRecord, error) {
	if p.TitleID == "" {
		return TitleRecord{}, fmt.Errorf("%w: title record needs a title_id", ErrInvalidArgument)
	}
	if p.Title == "" {
		return TitleRecord{}, fmt.Errorf("%w: title record %s needs a title", ErrInvalidArgument, p.TitleID)
	}

	now := timezone.Now()
	record := TitleRecord{
		TitleID:   p.TitleID,
		Title:     p.Title,
		Author:    p.Author,
		Genre:     p.Genre,
		Tags:      NormalizeTags(p.Tags),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = now
	}
	return record, nil
}

// NormalizeTags dedupes tags preserving first-seen order and dropping
// empties.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// WeeklyChartRecord is one row of the weekly chart fact table. Identity is
// (chart_date, title_id, weekday); weekday stays empty for flat charts.
type WeeklyChartRecord struct {
	ChartDate   Date      `json:"chart_date"`
	TitleID     string    `json:"title_id"`
	Rank        int       `json:"rank"`
	CollectedAt time.Time `json:"collected_at"`
	Weekday     string    `json:"weekday,omitempty"`
	Year        int       `json:"year"`
	Month       int       `json:"month"`
	WeekOfMonth int       `json:"week"`
	ViewCount   *int64    `json:"view_count,omitempty"`
}

type WeeklyChartParams struct {
	ChartDate Date
	TitleID   string
	Rank      int
	Weekday   string
	ViewCount *int64

	CollectedAt time.Time
}

func NewWeeklyChart(p WeeklyChartParams) (WeeklyChartRecord, error) {
	if p.ChartDate.IsZero() {
		return WeeklyChartRecord{}, fmt.Errorf("%w: chart fact needs a chart_date", ErrInvalidArgument)
	}
	if p.TitleID == "" {
		return WeeklyChartRecord{}, fmt.Errorf("%w: chart fact needs a title_id", ErrInvalidArgument)
	}
	if p.Rank < 1 {
		return WeeklyChartRecord{}, fmt.Errorf(
			"%w: chart fact for %s has rank %d, ranks start at 1", ErrInvalidArgument, p.TitleID, p.Rank)
	}

	collectedAt := p.CollectedAt
	if collectedAt.IsZero() {
		collectedAt = timezone.Now()
	}
	// temporal partitions follow when the row was collected, not the date
	// label on the chart
	local := collectedAt.In(timezone.Location)
	return WeeklyChartRecord{
		ChartDate:   p.ChartDate,
		TitleID:     p.TitleID,
		Rank:        p.Rank,
		CollectedAt: collectedAt,
		Weekday:     p.Weekday,
		Year:        local.Year(),
		Month:       int(local.Month()),
		WeekOfMonth: timezone.WeekOfMonth(local),
		ViewCount:   p.ViewCount,
	}, nil
}

// IdentityKey is the append-only dedupe key of a chart fact.
func (r WeeklyChartRecord) IdentityKey() string {
	return r.ChartDate.String() + "|" + r.TitleID + "|" + r.Weekday
}

// StatsRecord is one row of the per-title stats fact table. Identity is
// (title_id, collected_at).
type StatsRecord struct {
	TitleID             string    `json:"title_id"`
	CollectedAt         time.Time `json:"collected_at"`
	FavoriteCount       *int64    `json:"favorite_count,omitempty"`
	FavoriteCountSource string    `json:"favorite_count_source,omitempty"`
	Finished            *bool     `json:"finished,omitempty"`
	OnHiatus            *bool     `json:"on_hiatus,omitempty"`
	TotalEpisodeCount   *int64    `json:"total_episode_count,omitempty"`
	Year                int       `json:"year"`
	Month               int       `json:"month"`
	WeekOfMonth         int       `json:"week"`
}

type StatsParams struct {
	TitleID             string
	FavoriteCount       *int64
	FavoriteCountSource string
	Finished            *bool
	OnHiatus            *bool
	TotalEpisodeCount   *int64

	CollectedAt time.Time
}

func NewStats(p StatsParams) (StatsRecord, error) {
	if p.TitleID == "" {
		return StatsRecord{}, fmt.Errorf("%w: stats fact needs a title_id", ErrInvalidArgument)
	}
	if p.FavoriteCount != nil && p.FavoriteCountSource == "" {
		return StatsRecord{}, fmt.Errorf(
			"%w: stats fact for %s has a favorite_count with no source", ErrInvalidArgument, p.TitleID)
	}

	collectedAt := p.CollectedAt
	if collectedAt.IsZero() {
		collectedAt = timezone.Now()
	}
	local := collectedAt.In(timezone.Location)
	return StatsRecord{
		TitleID:             p.TitleID,
		CollectedAt:         collectedAt,
		FavoriteCount:       p.FavoriteCount,
		FavoriteCountSource: p.FavoriteCountSource,
		Finished:            p.Finished,
		OnHiatus:            p.OnHiatus,
		TotalEpisodeCount:   p.TotalEpisodeCount,
		Year:                local.Year(),
		Month:               int(local.Month()),
		WeekOfMonth:         timezone.WeekOfMonth(local),
	}, nil
}

// IdentityKey is the append-only dedupe key of a stats fact.
func (r StatsRecord) IdentityKey() string {
	return r.TitleID + "|" + r.CollectedAt.In(timezone.Location).Format(time.RFC3339Nano)
}
