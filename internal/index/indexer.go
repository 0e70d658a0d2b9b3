// Package index discovers archive shard paths from per-crawl manifest
// files (gzip-compressed path lists, one per crawl snapshot).
package index

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/sync/errgroup"

	"github.com/openwebdata/watlinks/internal/logging"
	"github.com/openwebdata/watlinks/internal/storage"
)

// ErrNoManifests is returned when no manifest files match the configured
// prefix and suffix.
var ErrNoManifests = errors.New("no index manifests found")

// Indexer lists and reads crawl index manifests from a source bucket.
type Indexer struct {
	store   *storage.Store
	prefix  string
	suffix  string
	workers int
	rng     *rand.Rand
	log     *slog.Logger
}

// New creates an indexer over the given source bucket. workers bounds the
// parallel manifest reads.
func New(store *storage.Store, prefix, suffix string, workers int) *Indexer {
	if workers < 1 {
		workers = 1
	}
	return &Indexer{
		store:   store,
		prefix:  prefix,
		suffix:  suffix,
		workers: workers,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		log:     logging.Component("index"),
	}
}

// WithRand replaces the sampling source. Tests use this for determinism.
func (ix *Indexer) WithRand(rng *rand.Rand) *Indexer {
	ix.rng = rng
	return ix
}

// Manifests returns the manifest keys in lexical order. Crawl snapshot
// names sort by date, so the tail of the list is the most recent crawls.
func (ix *Indexer) Manifests(ctx context.Context) ([]string, error) {
	keys, err := ix.store.List(ctx, ix.prefix, ix.suffix)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: %s*%s", ErrNoManifests, ix.prefix, ix.suffix)
	}
	return keys, nil
}

// readManifest reads one gzip-compressed manifest into its list of shard
// paths.
func (ix *Indexer) readManifest(ctx context.Context, key string) ([]string, error) {
	r, err := ix.store.Reader(ctx, key)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("decompress manifest %s: %w", key, err)
	}
	defer gz.Close()

	var paths []string
	sc := bufio.NewScanner(gz)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if line := sc.Text(); line != "" {
			paths = append(paths, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan manifest %s: %w", key, err)
	}
	return paths, nil
}

// Shards concatenates the shard paths of the most recent indexCount
// manifests (0 = all). Manifest reads run in a bounded pool and are
// merged by unordered append. Any single manifest failure fails the
// whole indexing step: without a complete shard list no work is possible.
//
// When sampleCount > 0 the result is a uniform random sample of that many
// paths drawn WITH replacement, so the same shard may appear more than
// once in one job.
func (ix *Indexer) Shards(ctx context.Context, indexCount, sampleCount int) ([]string, error) {
	manifests, err := ix.Manifests(ctx)
	if err != nil {
		return nil, err
	}
	if indexCount > 0 && indexCount < len(manifests) {
		manifests = manifests[len(manifests)-indexCount:]
	}

	ix.log.Info("reading index manifests", "manifests", len(manifests))

	var (
		mu  sync.Mutex
		all []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.workers)
	for _, key := range manifests {
		g.Go(func() error {
			paths, err := ix.readManifest(gctx, key)
			if err != nil {
				return err
			}
			mu.Lock()
			all = append(all, paths...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ix.log.Info("index read complete", "shards", len(all))

	if sampleCount > 0 && len(all) > 0 {
		sampled := make([]string, sampleCount)
		for i := range sampled {
			sampled[i] = all[ix.rng.Intn(len(all))]
		}
		return sampled, nil
	}

	return all, nil
}
