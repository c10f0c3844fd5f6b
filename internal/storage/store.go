// Package storage persists snapshots durably and resolves snapshot
// identifiers. It performs no capture or diffing logic.
package storage

import (
	"fmt"
	"time"

	"github.com/huolto/huolto/pkg/types"
)

// Store is the persistence interface for snapshots.
//
// Resolve accepts a literal filesystem path (loaded directly) or a fragment
// matched against stored snapshot filenames and IDs. Zero matches is a
// NotFound error; more than one is a Conflict error and the caller must
// disambiguate.
type Store interface {
	Save(snapshot *types.Snapshot) (*types.SnapshotRef, error)
	Resolve(identifier string) (*types.Snapshot, error)
	List(deploymentID string) ([]types.SnapshotRef, error)
	Delete(snapshotID string) error
	Prune(deploymentID string, keep int) (int, error)
}

// SnapshotFilename returns the deterministic filename for a snapshot.
func SnapshotFilename(deploymentID string, timestamp time.Time) string {
	return fmt.Sprintf("deployment-snapshot-%s-%s.json", deploymentID, timestamp.Format("20060102-150405"))
}
