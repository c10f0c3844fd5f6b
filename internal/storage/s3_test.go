package storage

import (
	"bytes"
	"context"
	"io"
	"sort"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/huolto/huolto/internal/errors"
)

// fakeS3 keeps objects in memory.
type fakeS3 struct {
	objects map[string][]byte
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(params.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, params *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	var keys []string
	for k := range f.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := &s3.ListObjectsV2Output{}
	for _, k := range keys {
		out.Contents = append(out.Contents, s3types.Object{
			Key:  aws.String(k),
			Size: aws.Int64(int64(len(f.objects[k]))),
		})
	}
	return out, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, params *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, aws.ToString(params.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Store_SaveAndResolve(t *testing.T) {
	store := NewS3StoreWithClient(newFakeS3(), "snapshots-bucket", "huolto")

	ts := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	ref, err := store.Save(testSnapshot("snap-s3-1", "prod", ts))
	if err != nil {
		t.Fatalf("failed to save snapshot: %v", err)
	}
	if ref.FilePath != "s3://snapshots-bucket/huolto/deployment-snapshot-prod-20260314-103000.json" {
		t.Errorf("unexpected object path: %s", ref.FilePath)
	}

	loaded, err := store.Resolve("snap-s3-1")
	if err != nil {
		t.Fatalf("failed to resolve snapshot: %v", err)
	}
	if loaded.DeploymentID != "prod" {
		t.Errorf("expected deployment prod, got %s", loaded.DeploymentID)
	}
}

func TestS3Store_ResolveAmbiguous(t *testing.T) {
	store := NewS3StoreWithClient(newFakeS3(), "snapshots-bucket", "")

	if _, err := store.Save(testSnapshot("snap-cafe-1", "prod", time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC))); err != nil {
		t.Fatalf("failed to save snapshot: %v", err)
	}
	if _, err := store.Save(testSnapshot("snap-cafe-2", "prod", time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC))); err != nil {
		t.Fatalf("failed to save snapshot: %v", err)
	}

	if _, err := store.Resolve("cafe"); !errors.IsConflict(err) {
		t.Errorf("expected Conflict error, got %v", err)
	}
	if _, err := store.Resolve("missing"); !errors.IsNotFound(err) {
		t.Errorf("expected NotFound error, got %v", err)
	}
}

func TestS3Store_ListAndPrune(t *testing.T) {
	store := NewS3StoreWithClient(newFakeS3(), "snapshots-bucket", "huolto")

	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		snap := testSnapshot("snap-"+string(rune('a'+i)), "prod", base.Add(time.Duration(i)*time.Hour))
		if _, err := store.Save(snap); err != nil {
			t.Fatalf("failed to save snapshot %d: %v", i, err)
		}
	}

	refs, err := store.List("prod")
	if err != nil {
		t.Fatalf("failed to list snapshots: %v", err)
	}
	if len(refs) != 4 {
		t.Fatalf("expected 4 snapshots, got %d", len(refs))
	}
	if refs[0].SnapshotID != "snap-d" {
		t.Errorf("expected newest first, got %s", refs[0].SnapshotID)
	}

	removed, err := store.Prune("prod", 1)
	if err != nil {
		t.Fatalf("failed to prune: %v", err)
	}
	if removed != 3 {
		t.Errorf("expected 3 removed, got %d", removed)
	}

	refs, err = store.List("prod")
	if err != nil {
		t.Fatalf("failed to list after prune: %v", err)
	}
	if len(refs) != 1 || refs[0].SnapshotID != "snap-d" {
		t.Errorf("expected only snap-d to survive, got %v", refs)
	}
}
