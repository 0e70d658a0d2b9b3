package checkpoint

import (
	"context"
	"errors"
	"testing"
)

func TestFileManagerSaveLoad(t *testing.T) {
	mgr, err := NewManager(Config{Enabled: true, Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	ctx := context.Background()

	if _, err := mgr.Load(ctx, "job-x"); !errors.Is(err, ErrNoCheckpoint) {
		t.Errorf("expected ErrNoCheckpoint, got %v", err)
	}

	cp := &Checkpoint{JobID: "job-x", ShardCount: 100, Multipart: 4}
	cp.MarkDone(0)
	cp.MarkDone(2)
	if err := mgr.Save(ctx, cp); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := mgr.Load(ctx, "job-x")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !loaded.PartDone(0) || !loaded.PartDone(2) {
		t.Errorf("completed parts lost: %+v", loaded)
	}
	if loaded.PartDone(1) {
		t.Error("part 1 should not be done")
	}
	if loaded.ShardCount != 100 || loaded.Multipart != 4 {
		t.Errorf("job parameters lost: %+v", loaded)
	}
}

func TestMarkDoneIdempotent(t *testing.T) {
	cp := &Checkpoint{JobID: "j"}
	cp.MarkDone(3)
	cp.MarkDone(3)
	if len(cp.CompletedParts) != 1 {
		t.Errorf("expected 1 completed part, got %v", cp.CompletedParts)
	}
}

func TestDisabledManagerIsNoop(t *testing.T) {
	mgr, err := NewManager(Config{Enabled: false})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	ctx := context.Background()

	if err := mgr.Save(ctx, &Checkpoint{JobID: "j"}); err != nil {
		t.Errorf("noop Save returned error: %v", err)
	}
	if _, err := mgr.Load(ctx, "j"); !errors.Is(err, ErrNoCheckpoint) {
		t.Errorf("noop Load should report no checkpoint, got %v", err)
	}
}
