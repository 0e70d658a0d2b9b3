// Package storage provides URI-addressed blob access for manifests,
// archive files, and dataset output. Backends (local filesystem, GCS, S3
// and S3-compatible stores) are selected by the bucket URL scheme.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // file:// driver
	_ "gocloud.dev/blob/gcsblob"  // gs:// driver
	_ "gocloud.dev/blob/s3blob"   // s3:// driver
)

// Store wraps one bucket. Keys are slash-separated paths within it.
type Store struct {
	bucket *blob.Bucket
	url    string
}

// Open opens a bucket by URL, e.g. "file:///data/out",
// "s3://commoncrawl?region=us-east-1" or "gs://my-bucket".
func Open(ctx context.Context, urlstr string) (*Store, error) {
	bucket, err := blob.OpenBucket(ctx, urlstr)
	if err != nil {
		return nil, fmt.Errorf("open bucket %s: %w", urlstr, err)
	}
	return &Store{bucket: bucket, url: urlstr}, nil
}

// Reader opens a streaming reader for one object.
func (s *Store) Reader(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := s.bucket.NewReader(ctx, key, nil)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.URI(key), err)
	}
	return r, nil
}

// ReadAll reads one object fully into memory.
func (s *Store) ReadAll(ctx context.Context, key string) ([]byte, error) {
	data, err := s.bucket.ReadAll(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.URI(key), err)
	}
	return data, nil
}

// WriteAll writes one object. Blob writers are atomic at close: a failed
// or aborted write never leaves a partial object at the key.
func (s *Store) WriteAll(ctx context.Context, key string, data []byte) error {
	if err := s.bucket.WriteAll(ctx, key, data, nil); err != nil {
		return fmt.Errorf("write %s: %w", s.URI(key), err)
	}
	return nil
}

// Exists checks whether an object is present.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	return s.bucket.Exists(ctx, key)
}

// Delete removes one object.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.bucket.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete %s: %w", s.URI(key), err)
	}
	return nil
}

// List returns all keys under prefix, optionally filtered by suffix,
// in lexical order.
func (s *Store) List(ctx context.Context, prefix, suffix string) ([]string, error) {
	var keys []string

	iter := s.bucket.List(&blob.ListOptions{Prefix: prefix})
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", s.URI(prefix), err)
		}
		if obj.IsDir {
			continue
		}
		if suffix != "" && !strings.HasSuffix(obj.Key, suffix) {
			continue
		}
		keys = append(keys, obj.Key)
	}

	return keys, nil
}

// URI returns the canonical URI for the given key.
func (s *Store) URI(key string) string {
	base := s.url
	if i := strings.IndexByte(base, '?'); i >= 0 {
		base = base[:i]
	}
	return strings.TrimRight(base, "/") + "/" + key
}

// Close releases the bucket connection.
func (s *Store) Close() error {
	if s.bucket != nil {
		return s.bucket.Close()
	}
	return nil
}
