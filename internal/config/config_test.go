package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRequiresOutputPath(t *testing.T) {
	if _, err := Load(""); !errors.Is(err, ErrMissingOutputPath) {
		t.Errorf("expected ErrMissingOutputPath, got %v", err)
	}
}

func TestLoadFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
job:
  output_path: file:///data/out
  wat_index_count: 2
  wat_count: 500
  multipart: 4
  workers: 8
source:
  bucket_url: file:///data/crawl
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Job.OutputPath != "file:///data/out" {
		t.Errorf("output path not loaded: %q", cfg.Job.OutputPath)
	}
	if cfg.Job.WatIndexCount != 2 || cfg.Job.WatCount != 500 || cfg.Job.Multipart != 4 {
		t.Errorf("job parameters not loaded: %+v", cfg.Job)
	}
	if cfg.Source.BucketURL != "file:///data/crawl" {
		t.Errorf("source bucket not loaded: %q", cfg.Source.BucketURL)
	}
	// Defaults survive a partial file.
	if cfg.Source.IndexPrefix != "crawl-data/" {
		t.Errorf("default index prefix lost: %q", cfg.Source.IndexPrefix)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("WATLINKS_OUTPUT_PATH", "s3://bucket/out")
	t.Setenv("WATLINKS_MULTIPART", "3")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Job.OutputPath != "s3://bucket/out" {
		t.Errorf("env output path not applied: %q", cfg.Job.OutputPath)
	}
	if cfg.Job.Multipart != 3 {
		t.Errorf("env multipart not applied: %d", cfg.Job.Multipart)
	}
}

func TestNegativeMultipartRejected(t *testing.T) {
	t.Setenv("WATLINKS_OUTPUT_PATH", "file:///out")
	t.Setenv("WATLINKS_MULTIPART", "-1")

	if _, err := Load(""); err == nil {
		t.Error("expected error for negative multipart")
	}
}
