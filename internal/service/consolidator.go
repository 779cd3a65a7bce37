package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fcjbispo/fbpyutils-finance-sub001/internal/domain"
	"github.com/fcjbispo/fbpyutils-finance-sub001/internal/filename"
	"github.com/fcjbispo/fbpyutils-finance-sub001/internal/infra/cache"
	"github.com/fcjbispo/fbpyutils-finance-sub001/internal/infra/observability"
	"github.com/fcjbispo/fbpyutils-finance-sub001/internal/infra/resilience"
	"github.com/fcjbispo/fbpyutils-finance-sub001/internal/infra/workbook"
	"github.com/fcjbispo/fbpyutils-finance-sub001/internal/port"
	"github.com/fcjbispo/fbpyutils-finance-sub001/internal/schema"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("service/consolidator")

// Options configures a Consolidator.
type Options struct {
	// FailOnUnreadable aborts a consolidation on the first unreadable
	// workbook instead of skipping it.
	FailOnUnreadable bool
	// MaxConcurrency bounds how many kinds ConsolidateAll runs at once.
	MaxConcurrency int
	// SheetCacheTTL is how long ConsolidateAll keeps a loaded sheet for
	// the other kinds reading the same workbook.
	SheetCacheTTL time.Duration
}

// Consolidator runs the per-kind processors over statement files.
type Consolidator struct {
	opener   port.WorkbookOpener
	opts     Options
	bulkhead *resilience.Bulkhead
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewConsolidator creates the consolidation service with all dependencies injected.
func NewConsolidator(
	opener port.WorkbookOpener,
	opts Options,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Consolidator {
	if opts.SheetCacheTTL <= 0 {
		opts.SheetCacheTTL = 5 * time.Minute
	}
	return &Consolidator{
		opener:   opener,
		opts:     opts,
		bulkhead: resilience.NewBulkhead(opts.MaxConcurrency),
		metrics:  metrics,
		logger:   logger,
	}
}

// WithOpener returns a consolidator reading through opener. It shares the
// bulkhead and metrics of c, so uploads of concurrent requests are bounded
// together.
func (c *Consolidator) WithOpener(opener port.WorkbookOpener) *Consolidator {
	cp := *c
	cp.opener = opener
	return &cp
}

type runIDKey struct{}

// WithRunID tags ctx with the id carried by consolidation logs.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunID returns the run id of ctx, or a fresh one when ctx has none.
func RunID(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}

// Consolidate runs the processor of kind over files, in order. Files of
// other report kinds are ignored. The returned table always carries the
// canonical columns of kind, even when no file contributed rows.
func (c *Consolidator) Consolidate(ctx context.Context, kind domain.Kind, files []string) (*domain.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "Consolidator.Consolidate")
	defer span.End()
	span.SetAttributes(
		attribute.String("cei.kind", string(kind)),
		attribute.Int("cei.files", len(files)),
	)

	table, err := c.run(ctx, kind, c.opener, files)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return table, nil
}

// ConsolidateAll routes files to the kinds their report prefix feeds and
// runs those kinds concurrently. Every kind is present in the result;
// kinds without input get an empty table. Sheets are loaded once per call
// and shared between the kinds reading the same workbook.
func (c *Consolidator) ConsolidateAll(ctx context.Context, files []string) (map[domain.Kind]*domain.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "Consolidator.ConsolidateAll")
	defer span.End()
	span.SetAttributes(attribute.Int("cei.files", len(files)))

	if _, ok := ctx.Value(runIDKey{}).(string); !ok {
		ctx = WithRunID(ctx, RunID(ctx))
	}

	routed := c.route(ctx, files)

	sheets := cache.New[any](c.opts.SheetCacheTTL)
	defer sheets.Stop()
	opener := workbook.NewCached(c.opener, sheets)

	tables := make([]*domain.Table, len(domain.Kinds))
	g, gCtx := errgroup.WithContext(ctx)
	for i, kind := range domain.Kinds {
		g.Go(func() error {
			if err := c.bulkhead.Acquire(gCtx); err != nil {
				return err
			}
			defer c.bulkhead.Release()

			t, err := c.run(gCtx, kind, opener, routed[kind])
			if err != nil {
				return err
			}
			tables[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	out := make(map[domain.Kind]*domain.Table, len(tables))
	for i, kind := range domain.Kinds {
		out[kind] = tables[i]
	}
	return out, nil
}

// route groups files by the kinds their report prefix feeds, keeping
// input order. Undecodable names are logged and dropped.
func (c *Consolidator) route(ctx context.Context, files []string) map[domain.Kind][]string {
	routed := make(map[domain.Kind][]string)
	for _, f := range files {
		decoded, err := filename.Decode(f)
		if err != nil {
			c.logger.Warn("file skipped",
				zap.String("run_id", RunID(ctx)),
				zap.String("file", f),
				zap.String("reason", schema.ReasonInvalidFilename),
				zap.Error(err),
			)
			continue
		}
		kinds := schema.KindsForPrefix(decoded.Kind)
		if len(kinds) == 0 {
			c.logger.Warn("file skipped",
				zap.String("run_id", RunID(ctx)),
				zap.String("file", f),
				zap.String("reason", schema.ReasonOtherKind),
			)
			continue
		}
		for _, k := range kinds {
			routed[k] = append(routed[k], f)
		}
	}
	return routed
}

func (c *Consolidator) run(ctx context.Context, kind domain.Kind, opener port.WorkbookOpener, files []string) (*domain.Table, error) {
	runID := RunID(ctx)
	logger := c.logger.With(zap.String("run_id", runID))

	p, err := schema.NewProcessor(kind, opener, schema.Options{FailOnUnreadable: c.opts.FailOnUnreadable}, logger)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	table, stats, err := p.Process(ctx, files)
	elapsed := time.Since(start)
	c.record(kind, table, stats, elapsed)

	if err != nil {
		var unreadable *domain.ErrWorkbookUnreadable
		if errors.As(err, &unreadable) {
			logger.Error("consolidation aborted",
				zap.String("kind", string(kind)),
				zap.String("file", unreadable.File),
				zap.Error(err),
			)
		}
		return nil, fmt.Errorf("consolidate %s: %w", kind, err)
	}

	logger.Info("consolidation finished",
		zap.String("kind", string(kind)),
		zap.Int("files", len(files)),
		zap.Int("files_processed", stats.FilesProcessed),
		zap.Int("files_skipped", skippedFiles(stats)),
		zap.Int("rows", table.Len()),
		zap.Duration("duration", elapsed),
	)
	return table, nil
}

func (c *Consolidator) record(kind domain.Kind, table *domain.Table, stats schema.Stats, elapsed time.Duration) {
	c.metrics.RecordDuration(kind, elapsed)
	c.metrics.AddFiles(kind, observability.OutcomeProcessed, stats.FilesProcessed)
	c.metrics.AddFiles(kind, observability.OutcomeSkipped, skippedFiles(stats))
	for reason, n := range stats.SheetsSkipped {
		c.metrics.AddSheetsSkipped(kind, reason, n)
	}
	c.metrics.AddRows(kind, table.Len())
}

// skippedFiles counts skipped files of this kind; files routed to
// another kind are not failures.
func skippedFiles(stats schema.Stats) int {
	n := 0
	for reason, count := range stats.FilesSkipped {
		if reason != schema.ReasonOtherKind {
			n += count
		}
	}
	return n
}
