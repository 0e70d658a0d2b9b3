package job

import (
	"github.com/openwebdata/watlinks/internal/dataset"
)

// Version information (set via ldflags)
var (
	Version = "v0.1.0"
	GitSHA  = "unknown"
)

// ShardTask is one unit of parallel work: a single archive file.
type ShardTask struct {
	Path  string
	Index int
}

// ShardResult is one shard's candidate batch. A failed shard carries an
// empty Rows slice, never an error: one bad file must not fail the job.
type ShardResult struct {
	Task ShardTask
	Rows []dataset.LinkRow
}

// Slice is a contiguous block of the shard list processed as one
// multipart part.
type Slice struct {
	Index int
	Start int
	End   int // exclusive
}

// Slices partitions the index range [0, shardCount) into multipart
// contiguous blocks of size ceil(shardCount/multipart). Every shard index
// appears in exactly one slice; trailing slices may be empty when
// multipart exceeds the shard count.
func Slices(shardCount, multipart int) []Slice {
	if multipart < 1 {
		multipart = 1
	}
	per := (shardCount + multipart - 1) / multipart

	out := make([]Slice, 0, multipart)
	for i := 0; i < multipart; i++ {
		start := i * per
		end := start + per
		if start > shardCount {
			start = shardCount
		}
		if end > shardCount {
			end = shardCount
		}
		out = append(out, Slice{Index: i, Start: start, End: end})
	}
	return out
}
