package ingestion

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pricelens-lab/pricelens/internal/core/storage"
	"github.com/pricelens-lab/pricelens/internal/keepa"
)

const (
	defaultBatchSize = 20
	defaultWorkers   = 1
)

// ErrNoExternalIDs is returned when a run is started with an empty id list.
// This is the one input problem that fails a run outright.
var ErrNoExternalIDs = errors.New("no external ids to sync")

// Fetcher obtains one batch of vendor product records. The runner does not
// retry it; a failed fetch skips that batch and the run continues.
type Fetcher interface {
	FetchProducts(ctx context.Context, asins []string, stats, buybox int) ([]keepa.Product, error)
}

// Options controls batching and concurrency for a sync run.
type Options struct {
	PlatformName string
	BatchSize    int
	Workers      int
	Stats        int
	Buybox       int
}

func (o Options) normalized() Options {
	n := o
	if n.BatchSize <= 0 {
		n.BatchSize = defaultBatchSize
	}
	if n.Workers <= 0 {
		n.Workers = defaultWorkers
	}
	return n
}

// Summary aggregates counters across all batches and products of one run.
type Summary struct {
	ProductsOK     int64
	ProductsFailed int64
	PricesAdded    int64
	RatingsAdded   int64
	RanksAdded     int64
}

// runCounters is the shared accumulator. Batches may complete concurrently,
// so every field is incremented atomically.
type runCounters struct {
	productsOK     atomic.Int64
	productsFailed atomic.Int64
	pricesAdded    atomic.Int64
	ratingsAdded   atomic.Int64
	ranksAdded     atomic.Int64
}

func (c *runCounters) summary() Summary {
	return Summary{
		ProductsOK:     c.productsOK.Load(),
		ProductsFailed: c.productsFailed.Load(),
		PricesAdded:    c.pricesAdded.Load(),
		RatingsAdded:   c.ratingsAdded.Load(),
		RanksAdded:     c.ranksAdded.Load(),
	}
}

// Runner drives a sync run: it partitions the input id list into batches,
// fetches each batch from the vendor and funnels every product record
// through the extract-then-persist pipeline.
//
// Batches are independent; with Workers > 1 they run concurrently. Each
// product's persistence stays a single transaction regardless of worker
// count, and re-running the same input is safe because the store dedups on
// natural keys.
type Runner struct {
	fetcher Fetcher
	store   storage.SyncStore
	opts    Options

	// now is swappable for tests; the synthetic rating point is stamped
	// with wall-clock time.
	now func() time.Time
}

// NewRunner creates a sync runner.
func NewRunner(fetcher Fetcher, store storage.SyncStore, opts Options) *Runner {
	if fetcher == nil {
		panic("ingestion: fetcher must not be nil")
	}
	if store == nil {
		panic("ingestion: store must not be nil")
	}
	return &Runner{
		fetcher: fetcher,
		store:   store,
		opts:    opts.normalized(),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Run executes one sync over the given external ids and returns the merged
// summary. Individual batch and product failures are logged and counted but
// never abort the run; only an empty input list or context cancellation
// ends it early. All per-product transactions completed before a
// cancellation remain durable.
func (r *Runner) Run(ctx context.Context, asins []string) (Summary, error) {
	if len(asins) == 0 {
		return Summary{}, ErrNoExternalIDs
	}

	runID := uuid.New().String()
	groups := chunk(asins, r.opts.BatchSize)

	slog.Info("[SyncRun] Starting",
		"run_id", runID,
		"platform", r.opts.PlatformName,
		"ids", len(asins),
		"groups", len(groups),
		"batch_size", r.opts.BatchSize,
		"workers", r.opts.Workers)

	var counters runCounters

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)
	for _, group := range groups {
		g.Go(func() error {
			// Stop scheduling work once the run is cancelled; completed
			// batches stay durable.
			if err := groupCtx.Err(); err != nil {
				return err
			}
			r.processGroup(groupCtx, runID, group, &counters)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return counters.summary(), err
	}

	summary := counters.summary()
	slog.Info("[SyncRun] Complete",
		"run_id", runID,
		"products_ok", summary.ProductsOK,
		"products_failed", summary.ProductsFailed,
		"prices_added", summary.PricesAdded,
		"ratings_added", summary.RatingsAdded,
		"ranks_added", summary.RanksAdded)
	return summary, nil
}

func (r *Runner) processGroup(ctx context.Context, runID string, group []string, counters *runCounters) {
	records, err := r.fetcher.FetchProducts(ctx, group, r.opts.Stats, r.opts.Buybox)
	if err != nil {
		slog.Error("[SyncRun] Batch fetch failed, skipping batch",
			"run_id", runID,
			"batch_size", len(group),
			"error", err)
		return
	}

	for _, rec := range records {
		if rec.ASIN == "" {
			// Not counted as success or failure: there is no key to
			// persist under.
			slog.Warn("[SyncRun] Skipping record without external id", "run_id", runID)
			continue
		}

		snap := keepa.ExtractSnapshot(rec)
		prices := keepa.ExtractPricePoints(rec)
		ranks := keepa.ExtractRankPoints(rec)
		rating := keepa.ExtractRatingPoint(rec, r.now())

		res, err := r.store.Persist(ctx, r.opts.PlatformName, snap, prices, ranks, rating)
		if err != nil {
			slog.Error("[SyncRun] Persist failed, continuing run",
				"run_id", runID,
				"asin", rec.ASIN,
				"error", err)
			counters.productsFailed.Add(1)
			continue
		}

		counters.productsOK.Add(1)
		counters.pricesAdded.Add(int64(res.PricesAdded))
		counters.ratingsAdded.Add(int64(res.RatingsAdded))
		counters.ranksAdded.Add(int64(res.RanksAdded))
	}
}

// chunk partitions ids into consecutive groups of size; the last group may
// be shorter.
func chunk(ids []string, size int) [][]string {
	var out [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		out = append(out, ids[start:end])
	}
	return out
}
