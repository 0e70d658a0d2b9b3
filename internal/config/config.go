// Package config loads pipeline configuration from a YAML file with
// environment-variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the full configuration for one extraction job.
type Config struct {
	Job        JobConfig        `yaml:"job"`
	Source     SourceConfig     `yaml:"source"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Checkpoint CheckpointConfig `yaml:"checkpoint"`
}

// JobConfig describes one end-to-end run.
type JobConfig struct {
	// OutputPath is a bucket URL the dataset is written under,
	// e.g. "file:///data/out" or "s3://my-bucket?region=us-east-1".
	OutputPath string `yaml:"output_path"`

	// JobID namespaces the output location. A fresh UUID is generated
	// when empty; set it explicitly to resume a multipart run.
	JobID string `yaml:"job_id"`

	// WatIndexCount keeps only the most recent N crawl manifests.
	// 0 means all.
	WatIndexCount int `yaml:"wat_index_count"`

	// WatCount, when set, samples that many shard paths (uniform, with
	// replacement) from the concatenated manifest list.
	WatCount int `yaml:"wat_count"`

	// Multipart splits the shard list into that many sequential slices.
	// 0 means a single pass.
	Multipart int `yaml:"multipart"`

	// Workers bounds the parallel shard extraction fan-out.
	Workers int `yaml:"workers"`
}

// SourceConfig locates the crawl archive and its index manifests.
type SourceConfig struct {
	// BucketURL is the crawl bucket, e.g. "s3://commoncrawl?region=us-east-1".
	// Manifest and archive paths are keys within this bucket.
	BucketURL string `yaml:"bucket_url"`

	// IndexPrefix and IndexSuffix select per-crawl manifest files:
	// one "<IndexPrefix><crawl>/<IndexSuffix>" per crawl snapshot.
	IndexPrefix string `yaml:"index_prefix"`
	IndexSuffix string `yaml:"index_suffix"`

	// IndexWorkers bounds the parallel manifest reads.
	IndexWorkers int `yaml:"index_workers"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	Format string `yaml:"format"` // "json" | "text"
	Level  string `yaml:"level"`  // "debug" | "info" | "warn" | "error"
}

// MetricsConfig configures Prometheus exposition.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// CheckpointConfig configures multipart resume state.
type CheckpointConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// ErrMissingOutputPath is returned when no output location is configured.
var ErrMissingOutputPath = errors.New("job.output_path is required")

// Default returns the configuration defaults for the public Common Crawl
// bucket layout.
func Default() Config {
	return Config{
		Job: JobConfig{
			WatIndexCount: 1,
			WatCount:      100,
			Workers:       16,
		},
		Source: SourceConfig{
			BucketURL:    "s3://commoncrawl?region=us-east-1",
			IndexPrefix:  "crawl-data/",
			IndexSuffix:  "/wat.paths.gz",
			IndexWorkers: 16,
		},
		Logging: LoggingConfig{
			Format: "text",
			Level:  "info",
		},
		Checkpoint: CheckpointConfig{
			Dir: "./checkpoints",
		},
	}
}

// Load reads configuration from the given YAML file (optional), applies
// environment overrides, and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if cfg.Job.OutputPath == "" {
		return cfg, ErrMissingOutputPath
	}
	if cfg.Job.Workers < 1 {
		cfg.Job.Workers = 1
	}
	if cfg.Source.IndexWorkers < 1 {
		cfg.Source.IndexWorkers = 1
	}
	if cfg.Job.Multipart < 0 {
		return cfg, fmt.Errorf("job.multipart must be >= 0, got %d", cfg.Job.Multipart)
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Job.OutputPath = getenvDefault("WATLINKS_OUTPUT_PATH", cfg.Job.OutputPath)
	cfg.Job.JobID = getenvDefault("WATLINKS_JOB_ID", cfg.Job.JobID)
	cfg.Source.BucketURL = getenvDefault("WATLINKS_SOURCE_BUCKET", cfg.Source.BucketURL)
	cfg.Logging.Level = getenvDefault("WATLINKS_LOG_LEVEL", cfg.Logging.Level)

	cfg.Job.WatIndexCount = getenvInt("WATLINKS_WAT_INDEX_COUNT", cfg.Job.WatIndexCount)
	cfg.Job.WatCount = getenvInt("WATLINKS_WAT_COUNT", cfg.Job.WatCount)
	cfg.Job.Multipart = getenvInt("WATLINKS_MULTIPART", cfg.Job.Multipart)
	cfg.Job.Workers = getenvInt("WATLINKS_WORKERS", cfg.Job.Workers)
}

func getenvDefault(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getenvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}
