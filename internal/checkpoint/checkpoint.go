// Package checkpoint persists multipart progress so a resumed job can
// skip slices it already finished.
package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrNoCheckpoint is returned when no checkpoint exists for a job.
var ErrNoCheckpoint = errors.New("no checkpoint found")

// Checkpoint records which multipart slices of a job are already written
// and deduplicated. The final merge pass always re-runs.
type Checkpoint struct {
	JobID          string    `json:"job_id"`
	ShardCount     int       `json:"shard_count"`
	Multipart      int       `json:"multipart"`
	CompletedParts []int     `json:"completed_parts"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// PartDone reports whether the given slice index is recorded as complete.
func (cp *Checkpoint) PartDone(part int) bool {
	for _, p := range cp.CompletedParts {
		if p == part {
			return true
		}
	}
	return false
}

// MarkDone records a slice index as complete (idempotent).
func (cp *Checkpoint) MarkDone(part int) {
	if !cp.PartDone(part) {
		cp.CompletedParts = append(cp.CompletedParts, part)
	}
	cp.UpdatedAt = time.Now().UTC()
}

// Manager handles checkpoint persistence and retrieval.
type Manager interface {
	// Load reads the checkpoint for a job ID.
	Load(ctx context.Context, jobID string) (*Checkpoint, error)

	// Save persists the checkpoint.
	Save(ctx context.Context, cp *Checkpoint) error
}

// Config configures checkpoint management.
type Config struct {
	Enabled bool
	Dir     string
}

// NewManager creates a checkpoint manager. Returns a no-op manager when
// checkpointing is disabled.
func NewManager(cfg Config) (Manager, error) {
	if !cfg.Enabled {
		return &noopManager{}, nil
	}
	if cfg.Dir == "" {
		return nil, errors.New("checkpoint dir required when enabled")
	}
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create checkpoint dir: %w", err)
	}
	return &fileManager{dir: cfg.Dir}, nil
}

// fileManager stores one JSON checkpoint file per job ID.
type fileManager struct {
	dir string
}

func (m *fileManager) path(jobID string) string {
	return filepath.Join(m.dir, fmt.Sprintf("checkpoint_%s.json", jobID))
}

func (m *fileManager) Load(ctx context.Context, jobID string) (*Checkpoint, error) {
	data, err := os.ReadFile(m.path(jobID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoCheckpoint
		}
		return nil, fmt.Errorf("read checkpoint file: %w", err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("parse checkpoint file: %w", err)
	}
	return &cp, nil
}

func (m *fileManager) Save(ctx context.Context, cp *Checkpoint) error {
	path := m.path(cp.JobID)

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	// Write atomically
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("write checkpoint temp file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("rename checkpoint file: %w", err)
	}
	return nil
}

// noopManager is used when checkpointing is disabled.
type noopManager struct{}

func (m *noopManager) Load(ctx context.Context, jobID string) (*Checkpoint, error) {
	return nil, ErrNoCheckpoint
}

func (m *noopManager) Save(ctx context.Context, cp *Checkpoint) error {
	return nil
}
