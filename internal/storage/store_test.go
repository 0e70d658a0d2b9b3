package storage

import (
	"context"
	"io"
	"reflect"
	"strings"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	store, err := Open(context.Background(), "file://"+dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestWriteReadRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	data := []byte("hello blob")
	if err := store.WriteAll(ctx, "dir/key.txt", data); err != nil {
		t.Fatalf("WriteAll failed: %v", err)
	}

	got, err := store.ReadAll(ctx, "dir/key.txt")
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if string(got) != "hello blob" {
		t.Errorf("round trip mismatch: %q", got)
	}
}

func TestReaderStreams(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.WriteAll(ctx, "obj", []byte("streamed")); err != nil {
		t.Fatalf("WriteAll failed: %v", err)
	}

	r, err := store.Reader(ctx, "obj")
	if err != nil {
		t.Fatalf("Reader failed: %v", err)
	}
	defer r.Close()

	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read stream: %v", err)
	}
	if string(got) != "streamed" {
		t.Errorf("unexpected content: %q", got)
	}
}

func TestReaderMissingKey(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.Reader(context.Background(), "does/not/exist"); err == nil {
		t.Error("expected error for missing key")
	}
}

func TestExists(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	ok, err := store.Exists(ctx, "missing")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if ok {
		t.Error("missing key reported as existing")
	}

	store.WriteAll(ctx, "present", []byte("x"))
	ok, err = store.Exists(ctx, "present")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !ok {
		t.Error("present key reported as missing")
	}
}

func TestListPrefixAndSuffix(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	store.WriteAll(ctx, "a/one.parquet", []byte("1"))
	store.WriteAll(ctx, "a/two.parquet", []byte("2"))
	store.WriteAll(ctx, "a/_manifest.json", []byte("{}"))
	store.WriteAll(ctx, "b/three.parquet", []byte("3"))

	keys, err := store.List(ctx, "a/", ".parquet")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	want := []string{"a/one.parquet", "a/two.parquet"}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("got %v, want %v", keys, want)
	}
}

func TestURIStripsQuery(t *testing.T) {
	store := openTestStore(t)
	uri := store.URI("some/key")
	if !strings.HasPrefix(uri, "file://") || !strings.HasSuffix(uri, "/some/key") {
		t.Errorf("unexpected URI: %s", uri)
	}
	if strings.Contains(uri, "?") {
		t.Errorf("URI should not contain query parameters: %s", uri)
	}
}
