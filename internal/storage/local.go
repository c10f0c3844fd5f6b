package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/huolto/huolto/internal/errors"
	"github.com/huolto/huolto/pkg/types"
)

// LocalStore implements Store using the local filesystem. Snapshots live as
// JSON files under {baseDir}/snapshots.
type LocalStore struct {
	baseDir   string
	snapshots string
	writer    *atomicWriter
}

// NewLocalStore creates a local snapshot store rooted at baseDir, creating
// the snapshot directory if needed.
func NewLocalStore(baseDir string) (*LocalStore, error) {
	store := &LocalStore{
		baseDir:   baseDir,
		snapshots: filepath.Join(baseDir, "snapshots"),
		writer:    newAtomicWriter(),
	}

	if err := os.MkdirAll(store.snapshots, 0o755); err != nil {
		return nil, errors.Storage("failed to create snapshot directory", err)
	}

	return store, nil
}

// Save persists a snapshot under the deterministic filename and returns its
// reference. Snapshots are immutable; an existing file for the same snapshot
// is an error.
func (s *LocalStore) Save(snapshot *types.Snapshot) (*types.SnapshotRef, error) {
	if err := snapshot.Validate(); err != nil {
		return nil, errors.Validation("invalid snapshot: %v", err)
	}

	filename := SnapshotFilename(snapshot.DeploymentID, snapshot.Timestamp)
	path := filepath.Join(s.snapshots, filename)

	if _, err := os.Stat(path); err == nil {
		return nil, errors.Conflict("snapshot", "snapshot file already exists: "+filename, []string{path})
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, errors.Storage("failed to encode snapshot", err)
	}

	if err := s.writer.WriteFile(path, data, 0o644); err != nil {
		return nil, errors.Storage("failed to write snapshot file", err)
	}

	return &types.SnapshotRef{
		SnapshotID:    snapshot.SnapshotID,
		DeploymentID:  snapshot.DeploymentID,
		Timestamp:     snapshot.Timestamp,
		ResourceCount: snapshot.ResourceCount(),
		FilePath:      path,
		Size:          int64(len(data)),
	}, nil
}

// Resolve loads a snapshot by literal path or by fragment match against
// stored filenames and snapshot IDs.
func (s *LocalStore) Resolve(identifier string) (*types.Snapshot, error) {
	if identifier == "" {
		return nil, errors.Validation("snapshot identifier is required")
	}

	// A literal path wins over fragment matching.
	if stat, err := os.Stat(identifier); err == nil && !stat.IsDir() {
		return s.loadSnapshot(identifier)
	}

	refs, err := s.List("")
	if err != nil {
		return nil, err
	}

	var candidates []types.SnapshotRef
	for _, ref := range refs {
		if strings.Contains(filepath.Base(ref.FilePath), identifier) || strings.Contains(ref.SnapshotID, identifier) {
			candidates = append(candidates, ref)
		}
	}

	switch len(candidates) {
	case 0:
		return nil, errors.NotFound("snapshot", "no snapshot matches %q", identifier)
	case 1:
		return s.loadSnapshot(candidates[0].FilePath)
	default:
		paths := make([]string, len(candidates))
		for i, c := range candidates {
			paths[i] = filepath.Base(c.FilePath)
		}
		return nil, errors.Conflict("snapshot", "identifier "+identifier+" is ambiguous", paths)
	}
}

// List returns references for all stored snapshots, newest first. An empty
// deploymentID lists every deployment.
func (s *LocalStore) List(deploymentID string) ([]types.SnapshotRef, error) {
	files, err := os.ReadDir(s.snapshots)
	if err != nil {
		return nil, errors.Storage("failed to read snapshot directory", err)
	}

	var refs []types.SnapshotRef
	for _, file := range files {
		if !strings.HasSuffix(file.Name(), ".json") {
			continue
		}

		path := filepath.Join(s.snapshots, file.Name())
		snapshot, err := s.loadSnapshot(path)
		if err != nil {
			// Unreadable entries are skipped, not fatal to listing.
			continue
		}

		if deploymentID != "" && snapshot.DeploymentID != deploymentID {
			continue
		}

		stat, err := file.Info()
		if err != nil {
			continue
		}

		refs = append(refs, types.SnapshotRef{
			SnapshotID:    snapshot.SnapshotID,
			DeploymentID:  snapshot.DeploymentID,
			Timestamp:     snapshot.Timestamp,
			ResourceCount: snapshot.ResourceCount(),
			FilePath:      path,
			Size:          stat.Size(),
		})
	}

	sort.Slice(refs, func(i, j int) bool {
		return refs[i].Timestamp.After(refs[j].Timestamp)
	})

	return refs, nil
}

// Delete removes the snapshot with the given ID.
func (s *LocalStore) Delete(snapshotID string) error {
	refs, err := s.List("")
	if err != nil {
		return err
	}

	for _, ref := range refs {
		if ref.SnapshotID == snapshotID {
			if err := os.Remove(ref.FilePath); err != nil {
				return errors.Storage("failed to delete snapshot file", err)
			}
			return nil
		}
	}

	return errors.NotFound("snapshot", "snapshot not found: %s", snapshotID)
}

// Prune removes the deployment's oldest snapshots beyond keep and returns
// the number removed.
func (s *LocalStore) Prune(deploymentID string, keep int) (int, error) {
	if keep < 0 {
		return 0, errors.Validation("retention count cannot be negative")
	}

	refs, err := s.List(deploymentID)
	if err != nil {
		return 0, err
	}

	if len(refs) <= keep {
		return 0, nil
	}

	removed := 0
	for _, ref := range refs[keep:] {
		if err := os.Remove(ref.FilePath); err != nil {
			return removed, errors.Storage("failed to prune snapshot file", err)
		}
		removed++
	}

	return removed, nil
}

func (s *LocalStore) loadSnapshot(path string) (*types.Snapshot, error) {
	data, err := s.writer.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound("snapshot", "snapshot file not found: %s", path)
		}
		return nil, errors.Storage("failed to read snapshot file "+path, err)
	}

	var snapshot types.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, errors.Corrupt("failed to parse snapshot file "+path, err)
	}

	return &snapshot, nil
}
