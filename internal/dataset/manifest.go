package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/openwebdata/watlinks/internal/storage"
)

// manifestName is written next to the part files of a finished dataset.
const manifestName = "_manifest.json"

// Manifest describes a persisted dataset prefix.
type Manifest struct {
	JobID      string       `json:"job_id"`
	RowCount   int64        `json:"row_count"`
	PartCount  int          `json:"part_count"`
	ShardCount int          `json:"shard_count"`
	Producer   ProducerInfo `json:"producer"`
	CreatedAt  time.Time    `json:"created_at"`
}

// ProducerInfo describes the software that produced the dataset.
type ProducerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	GitSHA  string `json:"git_sha,omitempty"`
}

// WriteManifest persists the dataset manifest under prefix.
func WriteManifest(ctx context.Context, store *storage.Store, prefix string, m *Manifest) error {
	if !strings.HasSuffix(prefix, "/") && prefix != "" {
		prefix += "/"
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return store.WriteAll(ctx, prefix+manifestName, data)
}

// ReadManifest loads the dataset manifest under prefix.
func ReadManifest(ctx context.Context, store *storage.Store, prefix string) (*Manifest, error) {
	if !strings.HasSuffix(prefix, "/") && prefix != "" {
		prefix += "/"
	}

	data, err := store.ReadAll(ctx, prefix+manifestName)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}
