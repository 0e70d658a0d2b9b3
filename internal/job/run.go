// Package job orchestrates one end-to-end extraction run: shard
// discovery, parallel extraction, deduplication, and persistence.
package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/openwebdata/watlinks/internal/checkpoint"
	"github.com/openwebdata/watlinks/internal/config"
	"github.com/openwebdata/watlinks/internal/dataset"
	"github.com/openwebdata/watlinks/internal/index"
	"github.com/openwebdata/watlinks/internal/logging"
	"github.com/openwebdata/watlinks/internal/metrics"
	"github.com/openwebdata/watlinks/internal/storage"
)

// Job owns one run. It carries its dependencies explicitly; there is no
// global session handle. Output goes under {output}/{job_id}/, a fresh
// namespace per run, so aborting never touches previously completed
// output.
type Job struct {
	cfg        config.Config
	indexer    *index.Indexer
	processor  *Processor
	output     *storage.Store
	checkpoint checkpoint.Manager
	jobID      string
	log        *slog.Logger
}

// New assembles a job from its collaborators. source is the crawl bucket
// holding manifests and archive files; output is the dataset bucket.
func New(cfg config.Config, source, output *storage.Store) (*Job, error) {
	cpMgr, err := checkpoint.NewManager(checkpoint.Config{
		Enabled: cfg.Checkpoint.Enabled,
		Dir:     cfg.Checkpoint.Dir,
	})
	if err != nil {
		return nil, fmt.Errorf("create checkpoint manager: %w", err)
	}

	jobID := cfg.Job.JobID
	if jobID == "" {
		jobID = uuid.New().String()
	}

	return &Job{
		cfg:        cfg,
		indexer:    index.New(source, cfg.Source.IndexPrefix, cfg.Source.IndexSuffix, cfg.Source.IndexWorkers),
		processor:  NewProcessor(source, cfg.Job.Workers),
		output:     output,
		checkpoint: cpMgr,
		jobID:      jobID,
		log:        logging.JobLogger(jobID),
	}, nil
}

// ID returns the job identifier used as the output namespace.
func (j *Job) ID() string {
	return j.jobID
}

// Run executes the job to completion. A nil return means the final
// dataset is persisted and confirmed.
func (j *Job) Run(ctx context.Context) error {
	shards, err := j.indexer.Shards(ctx, j.cfg.Job.WatIndexCount, j.cfg.Job.WatCount)
	if err != nil {
		return fmt.Errorf("index shards: %w", err)
	}

	base := j.jobID + "/"
	j.log.Info("job starting",
		"shards", len(shards),
		"multipart", j.cfg.Job.Multipart,
		"workers", j.cfg.Job.Workers,
		"output", j.output.URI(base),
	)

	if j.cfg.Job.Multipart == 0 {
		if err := j.runOnePart(ctx, base, shards); err != nil {
			return err
		}
	} else {
		if err := j.runMultiPart(ctx, base, shards, j.cfg.Job.Multipart); err != nil {
			return err
		}
	}

	j.log.Info("job complete", "output", j.output.URI(base))
	return nil
}

// runOnePart extracts a shard batch and dedup-merges it into one prefix.
func (j *Job) runOnePart(ctx context.Context, prefix string, shards []string) error {
	rows, err := j.processor.Process(ctx, shards)
	if err != nil {
		return err
	}
	return j.dedupMerge(ctx, prefix, rows, len(shards))
}

// runMultiPart splits the shard list into multipart contiguous slices,
// processes and dedup-merges each into {prefix}part_{i}/, then merges all
// parts with a final global dedup. Per-part dedup only shrinks
// intermediate data; global uniqueness comes from the final pass.
func (j *Job) runMultiPart(ctx context.Context, prefix string, shards []string, multipart int) error {
	cp, err := j.checkpoint.Load(ctx, j.jobID)
	if errors.Is(err, checkpoint.ErrNoCheckpoint) {
		cp = &checkpoint.Checkpoint{
			JobID:      j.jobID,
			ShardCount: len(shards),
			Multipart:  multipart,
		}
	} else if err != nil {
		return fmt.Errorf("load checkpoint: %w", err)
	} else if cp.ShardCount != len(shards) || cp.Multipart != multipart {
		// Shard list changed since the checkpoint; stale part outputs
		// cannot be trusted.
		j.log.Info("checkpoint does not match job parameters, starting fresh")
		cp = &checkpoint.Checkpoint{
			JobID:      j.jobID,
			ShardCount: len(shards),
			Multipart:  multipart,
		}
	}

	slices := Slices(len(shards), multipart)
	partPrefixes := make([]string, 0, len(slices))

	for _, s := range slices {
		partPrefix := fmt.Sprintf("%spart_%d/", prefix, s.Index)
		partPrefixes = append(partPrefixes, partPrefix)

		log := logging.PartLogger(j.jobID, s.Index)
		if cp.PartDone(s.Index) {
			// Trust the checkpoint only if the part output is actually
			// there.
			ok, err := dataset.Exists(ctx, j.output, partPrefix)
			if err != nil {
				return fmt.Errorf("check part %d output: %w", s.Index, err)
			}
			if ok {
				log.Info("part already complete, skipping")
				continue
			}
			log.Info("checkpoint marks part done but output is missing, reprocessing")
		}

		log.Info("processing part", "from", s.Start, "to", s.End)
		if err := j.runOnePart(ctx, partPrefix, shards[s.Start:s.End]); err != nil {
			return fmt.Errorf("part %d: %w", s.Index, err)
		}

		cp.MarkDone(s.Index)
		if err := j.checkpoint.Save(ctx, cp); err != nil {
			j.log.Warn("failed to save checkpoint", "error", err)
		}
	}

	j.log.Info("merging parts", "parts", len(partPrefixes))

	var all []dataset.LinkRow
	for _, partPrefix := range partPrefixes {
		rows, err := dataset.Read(ctx, j.output, partPrefix)
		if err != nil {
			return fmt.Errorf("read back part %s: %w", partPrefix, err)
		}
		all = append(all, rows...)
	}

	return j.dedupMerge(ctx, prefix, all, len(shards))
}

// dedupMerge is the reduction phase: keep-first dedup by ID, repartition
// by target size, persist, and read back to confirm the row count.
// Extraction workers never communicate, so this post-hoc global pass is
// what establishes the uniqueness invariant.
func (j *Job) dedupMerge(ctx context.Context, prefix string, rows []dataset.LinkRow, shardCount int) error {
	start := time.Now()

	before := len(rows)
	rows = dataset.Dedup(rows)
	dropped := before - len(rows)

	written, parts, err := dataset.Write(ctx, j.output, prefix, rows, dataset.TargetPartitions(shardCount))
	if err != nil {
		return fmt.Errorf("persist dataset: %w", err)
	}

	// Sanity confirmation: the write is only trusted once it reads back.
	back, err := dataset.Read(ctx, j.output, prefix)
	if err != nil {
		return fmt.Errorf("confirm dataset: %w", err)
	}

	elapsed := time.Since(start)
	if m := metrics.Get(); m != nil {
		m.RowsWritten.Add(float64(written))
		m.RowsDeduplicated.Add(float64(dropped))
		m.DedupMergeDuration.Observe(elapsed.Seconds())
	}

	j.log.Info("dataset persisted",
		"prefix", j.output.URI(prefix),
		"rows", len(back),
		"duplicates_dropped", dropped,
		"parts", parts,
		"duration", elapsed.String(),
	)

	manifest := &dataset.Manifest{
		JobID:      j.jobID,
		RowCount:   int64(len(back)),
		PartCount:  parts,
		ShardCount: shardCount,
		Producer: dataset.ProducerInfo{
			Name:    "watlinks",
			Version: Version,
			GitSHA:  GitSHA,
		},
		CreatedAt: time.Now().UTC(),
	}
	if err := dataset.WriteManifest(ctx, j.output, prefix, manifest); err != nil {
		return fmt.Errorf("write dataset manifest: %w", err)
	}

	return nil
}
