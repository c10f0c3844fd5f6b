package storage

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huolto/huolto/internal/errors"
	"github.com/huolto/huolto/pkg/types"
)

func asEngineError(err error, target **errors.Error) bool {
	return stderrors.As(err, target)
}

func testSnapshot(id, deploymentID string, ts time.Time) *types.Snapshot {
	return &types.Snapshot{
		SnapshotID:   id,
		DeploymentID: deploymentID,
		Timestamp:    ts,
		Serial:       1,
		Resources: []types.Resource{
			{
				Type: "aws_instance",
				Name: "web",
				Mode: types.ModeManaged,
				Instances: []types.Instance{
					{Attributes: map[string]interface{}{"instance_type": "t3.micro"}},
				},
			},
		},
		Metadata: types.SnapshotMetadata{Provider: "aws", Environment: "production"},
	}
}

func TestLocalStore_SaveAndResolve(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ts := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	ref, err := store.Save(testSnapshot("snap-20260314103000-aaaa1111", "prod", ts))
	if err != nil {
		t.Fatalf("failed to save snapshot: %v", err)
	}

	if filepath.Base(ref.FilePath) != "deployment-snapshot-prod-20260314-103000.json" {
		t.Errorf("unexpected filename: %s", filepath.Base(ref.FilePath))
	}
	if ref.ResourceCount != 1 {
		t.Errorf("expected resource count 1, got %d", ref.ResourceCount)
	}

	// Resolve by full ID.
	loaded, err := store.Resolve("snap-20260314103000-aaaa1111")
	if err != nil {
		t.Fatalf("failed to resolve snapshot: %v", err)
	}
	if loaded.DeploymentID != "prod" {
		t.Errorf("expected deployment prod, got %s", loaded.DeploymentID)
	}

	// Resolve by literal path.
	loaded, err = store.Resolve(ref.FilePath)
	if err != nil {
		t.Fatalf("failed to resolve by path: %v", err)
	}
	if loaded.SnapshotID != "snap-20260314103000-aaaa1111" {
		t.Errorf("unexpected snapshot ID: %s", loaded.SnapshotID)
	}
}

func TestLocalStore_SaveDuplicate(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ts := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	if _, err := store.Save(testSnapshot("snap-a", "prod", ts)); err != nil {
		t.Fatalf("failed to save snapshot: %v", err)
	}

	// Same deployment and timestamp maps to the same file; snapshots are
	// immutable, so the second save is rejected.
	_, err = store.Save(testSnapshot("snap-b", "prod", ts))
	if !errors.IsConflict(err) {
		t.Errorf("expected Conflict error, got %v", err)
	}
}

func TestLocalStore_ResolveNotFound(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	_, err = store.Resolve("nothing-here")
	if !errors.IsNotFound(err) {
		t.Errorf("expected NotFound error, got %v", err)
	}
}

func TestLocalStore_ResolveAmbiguous(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	// Two snapshots whose IDs share the fragment "deadbeef".
	if _, err := store.Save(testSnapshot("snap-deadbeef-1", "prod", time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC))); err != nil {
		t.Fatalf("failed to save snapshot: %v", err)
	}
	if _, err := store.Save(testSnapshot("snap-deadbeef-2", "prod", time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC))); err != nil {
		t.Fatalf("failed to save snapshot: %v", err)
	}

	_, err = store.Resolve("deadbeef")
	if !errors.IsConflict(err) {
		t.Fatalf("expected Conflict error, got %v", err)
	}

	var typed *errors.Error
	if !asEngineError(err, &typed) || len(typed.Candidates) != 2 {
		t.Errorf("expected 2 candidates in conflict error, got %v", err)
	}
}

func TestLocalStore_List(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	older := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC)
	if _, err := store.Save(testSnapshot("snap-old", "prod", older)); err != nil {
		t.Fatalf("failed to save snapshot: %v", err)
	}
	if _, err := store.Save(testSnapshot("snap-new", "prod", newer)); err != nil {
		t.Fatalf("failed to save snapshot: %v", err)
	}
	if _, err := store.Save(testSnapshot("snap-other", "staging", older)); err != nil {
		t.Fatalf("failed to save snapshot: %v", err)
	}

	refs, err := store.List("prod")
	if err != nil {
		t.Fatalf("failed to list snapshots: %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("expected 2 snapshots for prod, got %d", len(refs))
	}
	if refs[0].SnapshotID != "snap-new" {
		t.Errorf("expected newest first, got %s", refs[0].SnapshotID)
	}

	all, err := store.List("")
	if err != nil {
		t.Fatalf("failed to list all snapshots: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 snapshots total, got %d", len(all))
	}
}

func TestLocalStore_Prune(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		snap := testSnapshot("snap-"+string(rune('a'+i)), "prod", base.Add(time.Duration(i)*time.Hour))
		if _, err := store.Save(snap); err != nil {
			t.Fatalf("failed to save snapshot %d: %v", i, err)
		}
	}

	removed, err := store.Prune("prod", 2)
	if err != nil {
		t.Fatalf("failed to prune: %v", err)
	}
	if removed != 3 {
		t.Errorf("expected 3 removed, got %d", removed)
	}

	refs, err := store.List("prod")
	if err != nil {
		t.Fatalf("failed to list snapshots: %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("expected 2 remaining, got %d", len(refs))
	}
	// The newest two survive.
	if refs[0].SnapshotID != "snap-e" || refs[1].SnapshotID != "snap-d" {
		t.Errorf("unexpected survivors: %s, %s", refs[0].SnapshotID, refs[1].SnapshotID)
	}
}

func TestLocalStore_Delete(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ref, err := store.Save(testSnapshot("snap-x", "prod", time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)))
	if err != nil {
		t.Fatalf("failed to save snapshot: %v", err)
	}

	if err := store.Delete("snap-x"); err != nil {
		t.Fatalf("failed to delete snapshot: %v", err)
	}
	if _, err := os.Stat(ref.FilePath); !os.IsNotExist(err) {
		t.Error("expected snapshot file to be gone")
	}

	if err := store.Delete("snap-x"); !errors.IsNotFound(err) {
		t.Errorf("expected NotFound on second delete, got %v", err)
	}
}
