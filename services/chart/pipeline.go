package chart

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"webtoon-pipeline/lib/scrapers/webtoon"
	"webtoon-pipeline/lib/timezone"
	"webtoon-pipeline/services/chart/records"
	"webtoon-pipeline/services/objstore"
)

// Status summarizes how a pipeline run went.
type Status string

const (
	// StatusSuccess means every axis and every detail batch landed.
	StatusSuccess Status = "success"
	// StatusPartialFailure means some work landed and some did not.
	StatusPartialFailure Status = "partial_failure"
	// StatusError means the run failed before persisting anything.
	StatusError Status = "error"
)

// PacingPolicy controls the politeness delays of the detail pass.
type PacingPolicy struct {
	// TitleDelay is slept between consecutive title fetches.
	TitleDelay time.Duration
	// BurstEvery inserts BurstDelay after that many titles.
	BurstEvery int
	BurstDelay time.Duration
}

// DefaultPacing matches what the site tolerates without throttling.
var DefaultPacing = PacingPolicy{
	TitleDelay: 1500 * time.Millisecond,
	BurstEvery: 10,
	BurstDelay: 10 * time.Second,
}

// Options configures one pipeline run. The zero value collects every known
// axis for today with default pacing.
type Options struct {
	// Axes to collect, defaults to webtoon.KnownAxes.
	Axes []webtoon.SortAxis
	// Date labels the collected charts, defaults to today.
	Date records.Date
	// TitleLimit caps the detail pass, 0 means every known title.
	TitleLimit int
	// FlushEvery bounds how many details accumulate before a transform
	// flush, default 100.
	FlushEvery int
	Pacing     PacingPolicy
	// DeleteExisting drops the date's chart partitions and raw chart
	// artifacts before collecting, so a corrected run replaces the
	// day's rows instead of merging around them.
	DeleteExisting bool
}

// Result reports what a run did.
type Result struct {
	Status         Status
	Date           records.Date
	FailedAxes     []string
	TitlesVisited  int
	DetailFailures int
}

// Pipeline wires the scraping client, the transform engine and the raw
// artifact store into the scheduled collection run.
type Pipeline struct {
	client  *webtoon.Client
	engine  Engine
	objects objstore.Store
	pacer   webtoon.Pacer
}

func NewPipeline(client *webtoon.Client, engine Engine, objects objstore.Store, pacer webtoon.Pacer) *Pipeline {
	if pacer == nil {
		pacer = webtoon.SleepPacer
	}
	return &Pipeline{client: client, engine: engine, objects: objects, pacer: pacer}
}

// Run executes one full collection: every requested chart axis, then a
// paced detail pass over the known titles. Axis and per-title failures are
// tolerated and reflected in the result status; only failing before any
// work lands is an error.
func (p *Pipeline) Run(ctx context.Context, opts Options) Result {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()

	if len(opts.Axes) == 0 {
		opts.Axes = webtoon.KnownAxes
	}
	if opts.Date.IsZero() {
		opts.Date = records.DateOf(timezone.Now())
	}
	if opts.FlushEvery == 0 {
		opts.FlushEvery = 100
	}
	if opts.Pacing == (PacingPolicy{}) {
		opts.Pacing = DefaultPacing
	}

	result := Result{Status: StatusSuccess, Date: opts.Date}

	if opts.DeleteExisting {
		if err := p.deleteExisting(ctx, opts); err != nil {
			slog.ErrorContext(ctx, "could not clear existing data", "date", opts.Date.String(), "err", err)
			result.Status = StatusError
			return result
		}
	}

	for _, axis := range opts.Axes {
		if err := p.collectAxis(ctx, axis, opts.Date); err != nil {
			slog.WarnContext(ctx, "chart axis failed", "axis", axis, "err", err)
			result.FailedAxes = append(result.FailedAxes, string(axis))
		}
	}

	ids, err := p.engine.KnownTitleIDs(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "could not list known titles", "err", err)
		if len(result.FailedAxes) == len(opts.Axes) {
			result.Status = StatusError
			return result
		}
		result.Status = StatusPartialFailure
		return result
	}
	if opts.TitleLimit > 0 && len(ids) > opts.TitleLimit {
		ids = ids[:opts.TitleLimit]
	}

	detailsFailed := p.collectDetails(ctx, ids, opts)
	result.TitlesVisited = len(ids)
	result.DetailFailures = detailsFailed

	if len(result.FailedAxes) > 0 || detailsFailed > 0 {
		result.Status = StatusPartialFailure
	}
	if len(result.FailedAxes) == len(opts.Axes) && len(ids) == 0 {
		// nothing fetched and nothing known to enrich
		result.Status = StatusError
	}

	slog.InfoContext(ctx, "pipeline run finished",
		"status", result.Status, "date", result.Date.String(),
		"failedAxes", result.FailedAxes, "titles", result.TitlesVisited,
		"detailFailures", result.DetailFailures)
	return result
}

// deleteExisting clears the date's processed chart partitions and the raw
// chart artifacts of every requested axis.
func (p *Pipeline) deleteExisting(ctx context.Context, opts Options) error {
	ctx, span := tracer.Start(ctx, "deleteExisting")
	defer span.End()

	if err := p.engine.Store().DeleteChartFacts(ctx, opts.Date); err != nil {
		return err
	}
	if p.objects == nil {
		return nil
	}
	for _, axis := range opts.Axes {
		key := objstore.Key{Date: opts.Date.String(), Name: "chart_" + string(axis)}
		if err := p.objects.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) collectAxis(ctx context.Context, axis webtoon.SortAxis, date records.Date) error {
	ctx, span := tracer.Start(ctx, "collectAxis")
	defer span.End()

	doc := p.client.FetchChartDocument(ctx, axis)
	if doc == nil {
		return errAxisFetchFailed
	}

	// raw artifact first, so a parse bug never loses the evidence
	if p.objects != nil {
		err := p.objects.Put(ctx, objstore.Key{
			Date:        date.String(),
			Name:        "chart_" + string(axis),
			ContentType: doc.ContentType,
		}, doc.Raw)
		if err != nil {
			slog.WarnContext(ctx, "raw chart artifact not stored", "axis", axis, "err", err)
		}
	}

	entries := webtoon.ParseDocument(doc.Body)
	if len(entries) == 0 {
		return errAxisParseFailed
	}
	return p.engine.TransformChart(ctx, entries, date, axis)
}

func (p *Pipeline) collectDetails(ctx context.Context, ids []string, opts Options) int {
	ctx, span := tracer.Start(ctx, "collectDetails")
	defer span.End()

	failed := 0
	batch := make([]*webtoon.TitleDetail, 0, opts.FlushEvery)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := p.engine.TransformStats(ctx, batch); err != nil {
			slog.ErrorContext(ctx, "stats batch lost", "size", len(batch), "err", err)
			failed += len(batch)
		}
		batch = batch[:0]
	}

	for i, id := range ids {
		if ctx.Err() != nil {
			break
		}
		detail := p.client.FetchTitleDetail(ctx, id, true)
		if detail == nil {
			failed++
		} else {
			batch = append(batch, detail)
		}
		if len(batch) >= opts.FlushEvery {
			flush()
		}

		if i == len(ids)-1 {
			break
		}
		p.pacer.Wait(ctx, opts.Pacing.TitleDelay)
		if opts.Pacing.BurstEvery > 0 && (i+1)%opts.Pacing.BurstEvery == 0 {
			p.pacer.Wait(ctx, opts.Pacing.BurstDelay)
		}
	}
	flush()
	return failed
}

var (
	errAxisFetchFailed = errors.New("every fetch strategy failed")
	errAxisParseFailed = errors.New("document parsed to no entries")
)
