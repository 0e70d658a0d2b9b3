// Package dataset persists link candidates as a partitioned parquet
// file set and implements identity-key deduplication.
package dataset

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/openwebdata/watlinks/internal/storage"
)

// LinkRow is one row of the output dataset. ID is the content hash of
// (alt, url) and the sole dedup key.
type LinkRow struct {
	ID  string `parquet:"id"`
	URL string `parquet:"url"`
	Alt string `parquet:"alt"`
}

// minPartitions is the floor of the output repartitioning heuristic.
const minPartitions = 256

// TargetPartitions sizes the output file set from the input shard count:
// max(256, shardCount/100). A balance between per-file size and
// parallelism, not a correctness requirement.
func TargetPartitions(shardCount int) int {
	if n := shardCount / 100; n > minPartitions {
		return n
	}
	return minPartitions
}

// Dedup drops every row whose ID duplicates an earlier row (keep-first).
// The input order among duplicates carries no meaning, so which copy
// survives is unspecified. The input slice is left untouched.
func Dedup(rows []LinkRow) []LinkRow {
	seen := make(map[string]struct{}, len(rows))
	out := make([]LinkRow, 0, len(rows))
	for _, row := range rows {
		if _, ok := seen[row.ID]; ok {
			continue
		}
		seen[row.ID] = struct{}{}
		out = append(out, row)
	}
	return out
}

// partKey names one parquet part file under a dataset prefix.
func partKey(prefix string, i int) string {
	return fmt.Sprintf("%spart-%05d.parquet", prefix, i)
}

// clearParts deletes the part files directly under prefix. The part count
// of a dataset depends on its row count, so rewriting a prefix that
// already holds parts from an earlier run must remove them first or a
// smaller rewrite leaves stale rows behind.
func clearParts(ctx context.Context, store *storage.Store, prefix string) error {
	keys, err := store.List(ctx, prefix, ".parquet")
	if err != nil {
		return err
	}
	for _, key := range keys {
		if strings.Contains(strings.TrimPrefix(key, prefix), "/") {
			continue
		}
		if err := store.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// Exists reports whether a dataset was written under prefix: every write,
// including an empty one, produces at least the first part file.
func Exists(ctx context.Context, store *storage.Store, prefix string) (bool, error) {
	if !strings.HasSuffix(prefix, "/") && prefix != "" {
		prefix += "/"
	}
	return store.Exists(ctx, partKey(prefix, 0))
}

// Write splits rows into parts contiguous chunks and writes each
// non-empty chunk as one parquet file under prefix. Returns the number
// of rows and part files written.
func Write(ctx context.Context, store *storage.Store, prefix string, rows []LinkRow, parts int) (int64, int, error) {
	if parts < 1 {
		parts = 1
	}
	if !strings.HasSuffix(prefix, "/") && prefix != "" {
		prefix += "/"
	}

	if err := clearParts(ctx, store, prefix); err != nil {
		return 0, 0, err
	}

	// An empty dataset still gets one part file so the prefix is
	// readable and the write is confirmable.
	if len(rows) == 0 {
		var buf bytes.Buffer
		if err := parquet.Write(&buf, []LinkRow{}); err != nil {
			return 0, 0, fmt.Errorf("encode empty parquet: %w", err)
		}
		if err := store.WriteAll(ctx, partKey(prefix, 0), buf.Bytes()); err != nil {
			return 0, 0, err
		}
		return 0, 1, nil
	}

	chunk := (len(rows) + parts - 1) / parts
	if chunk < 1 {
		chunk = 1
	}

	written := int64(0)
	part := 0
	for start := 0; start < len(rows); start += chunk {
		end := start + chunk
		if end > len(rows) {
			end = len(rows)
		}

		var buf bytes.Buffer
		if err := parquet.Write(&buf, rows[start:end]); err != nil {
			return written, part, fmt.Errorf("encode parquet part %d: %w", part, err)
		}
		if err := store.WriteAll(ctx, partKey(prefix, part), buf.Bytes()); err != nil {
			return written, part, err
		}
		written += int64(end - start)
		part++
	}

	return written, part, nil
}

// Read loads every parquet part under prefix back into memory. Row order
// across parts is the lexical part order; consumers treat the dataset as
// an unordered set keyed by ID.
func Read(ctx context.Context, store *storage.Store, prefix string) ([]LinkRow, error) {
	if !strings.HasSuffix(prefix, "/") && prefix != "" {
		prefix += "/"
	}

	keys, err := store.List(ctx, prefix, ".parquet")
	if err != nil {
		return nil, err
	}

	var all []LinkRow
	for _, key := range keys {
		// Only direct children: a multipart job keeps intermediate
		// part_{i}/ datasets nested under the final prefix.
		if strings.Contains(strings.TrimPrefix(key, prefix), "/") {
			continue
		}
		data, err := store.ReadAll(ctx, key)
		if err != nil {
			return nil, err
		}
		rows, err := parquet.Read[LinkRow](bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return nil, fmt.Errorf("decode parquet %s: %w", key, err)
		}
		all = append(all, rows...)
	}

	return all, nil
}
