package job

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/openwebdata/watlinks/internal/dataset"
	"github.com/openwebdata/watlinks/internal/extract"
	"github.com/openwebdata/watlinks/internal/logging"
	"github.com/openwebdata/watlinks/internal/metrics"
	"github.com/openwebdata/watlinks/internal/storage"
)

// Processor fans a batch of shard paths out across a bounded worker pool
// and collects the extracted candidate rows. Each shard is self-contained
// and idempotent: re-running it yields the same candidate set, since
// extraction is a pure function of the archive bytes.
type Processor struct {
	archive   *storage.Store
	extractor *extract.Extractor
	workers   int
	log       *slog.Logger
}

// NewProcessor creates a processor reading shards from the archive bucket.
func NewProcessor(archive *storage.Store, workers int) *Processor {
	if workers < 1 {
		workers = 1
	}
	return &Processor{
		archive:   archive,
		extractor: extract.NewExtractor(),
		workers:   workers,
		log:       logging.Component("processor"),
	}
}

// Process runs the Archive Extractor over every shard in the batch and
// returns the concatenated candidate rows. Results merge by unordered
// append; no ordering is guaranteed between shards. The only error is
// context cancellation.
func (p *Processor) Process(ctx context.Context, shards []string) ([]dataset.LinkRow, error) {
	p.log.Info("processing shard batch", "shards", len(shards), "workers", p.workers)

	tasks := make(chan ShardTask)
	results := make(chan ShardResult, p.workers)

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for task := range tasks {
				results <- p.processShard(ctx, workerID, task)
			}
		}(i)
	}

	// Dispatcher
	go func() {
		defer close(tasks)
		for i, path := range shards {
			select {
			case tasks <- ShardTask{Path: path, Index: i}:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Close results when workers finish
	go func() {
		wg.Wait()
		close(results)
	}()

	var rows []dataset.LinkRow
	for res := range results {
		rows = append(rows, res.Rows...)
	}

	return rows, ctx.Err()
}

// processShard extracts one shard. An unreachable shard contributes an
// empty result; a shard that fails mid-iteration contributes whatever was
// extracted before the fault. Neither fails the batch.
func (p *Processor) processShard(ctx context.Context, workerID int, task ShardTask) ShardResult {
	log := logging.WorkerLogger(workerID).With("shard", task.Path)

	if m := metrics.Get(); m != nil {
		m.ShardsInFlight.Inc()
		defer m.ShardsInFlight.Dec()
	}

	start := time.Now()

	r, err := p.archive.Reader(ctx, task.Path)
	if err != nil {
		log.Warn("shard unreachable, contributing empty result", "error", err)
		if m := metrics.Get(); m != nil {
			m.ShardsFailed.Inc()
		}
		return ShardResult{Task: task}
	}
	defer r.Close()

	cands, extractErr := p.extractor.Extract(ctx, r)

	rows := make([]dataset.LinkRow, len(cands))
	for i, c := range cands {
		rows[i] = dataset.LinkRow{ID: c.ID, URL: c.URL, Alt: c.Alt}
	}

	elapsed := time.Since(start)
	if m := metrics.Get(); m != nil {
		// A degraded shard counts as failed, not processed; its partial
		// rows are still kept.
		if extractErr != nil {
			m.ShardsFailed.Inc()
		} else {
			m.ShardsProcessed.Inc()
		}
		m.ShardExtractDuration.Observe(elapsed.Seconds())
	}
	if extractErr != nil {
		log.Warn("shard degraded, keeping partial result", "error", extractErr)
	}
	log.Debug("shard extracted",
		"candidates", len(rows),
		"duration_ms", elapsed.Milliseconds(),
	)

	return ShardResult{Task: task, Rows: rows}
}
