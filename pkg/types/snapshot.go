package types

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Snapshot represents a point-in-time capture of a deployment's provisioned
// state. Snapshots are immutable once written; they are only ever created by
// the capturer and removed by retention policy.
type Snapshot struct {
	SnapshotID   string            `json:"snapshotId"`
	DeploymentID string            `json:"deploymentId"`
	Timestamp    time.Time         `json:"timestamp"`
	Serial       int               `json:"serial"`
	Resources    []Resource        `json:"resources"`
	Outputs      map[string]Output `json:"outputs"`
	Metadata     SnapshotMetadata  `json:"metadata"`
}

// SnapshotMetadata carries deployment-level context copied from the
// deployment registry at capture time.
type SnapshotMetadata struct {
	Provider    string            `json:"provider"`
	Environment string            `json:"environment"`
	Tags        map[string]string `json:"tags,omitempty"`
}

// Output is a single named output from the provisioning tool's state.
type Output struct {
	Value     interface{} `json:"value"`
	Type      string      `json:"type,omitempty"`
	Sensitive bool        `json:"sensitive"`
}

// SnapshotRef is a lightweight handle to a stored snapshot.
type SnapshotRef struct {
	SnapshotID    string    `json:"snapshotId"`
	DeploymentID  string    `json:"deploymentId"`
	Timestamp     time.Time `json:"timestamp"`
	ResourceCount int       `json:"resourceCount"`
	FilePath      string    `json:"filePath"`
	Size          int64     `json:"size"`
}

// Validate checks if the Snapshot has all required fields and that resource
// keys are unique within the snapshot.
func (s *Snapshot) Validate() error {
	if strings.TrimSpace(s.SnapshotID) == "" {
		return errors.New("snapshot ID is required")
	}
	if strings.TrimSpace(s.DeploymentID) == "" {
		return errors.New("snapshot deployment ID is required")
	}
	if s.Timestamp.IsZero() {
		return errors.New("snapshot timestamp is required")
	}
	if s.Resources == nil {
		return errors.New("snapshot resources cannot be nil")
	}

	seen := make(map[string]struct{}, len(s.Resources))
	for i := range s.Resources {
		r := &s.Resources[i]
		if err := r.Validate(); err != nil {
			return fmt.Errorf("resource at index %d is invalid: %w", i, err)
		}
		key := r.Key()
		if _, dup := seen[key]; dup {
			return fmt.Errorf("duplicate resource key %s in snapshot", key)
		}
		seen[key] = struct{}{}
	}

	return nil
}

// ResourceCount returns the number of resources in the snapshot.
func (s *Snapshot) ResourceCount() int {
	return len(s.Resources)
}

// ResourceKeys returns the set of resource keys present in the snapshot.
func (s *Snapshot) ResourceKeys() []string {
	keys := make([]string, 0, len(s.Resources))
	for i := range s.Resources {
		keys = append(keys, s.Resources[i].Key())
	}
	return keys
}

// GetResource returns the resource with the given key, or nil if not found.
func (s *Snapshot) GetResource(key string) *Resource {
	for i := range s.Resources {
		if s.Resources[i].Key() == key {
			return &s.Resources[i]
		}
	}
	return nil
}

// Clone creates a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	clone := &Snapshot{
		SnapshotID:   s.SnapshotID,
		DeploymentID: s.DeploymentID,
		Timestamp:    s.Timestamp,
		Serial:       s.Serial,
		Metadata: SnapshotMetadata{
			Provider:    s.Metadata.Provider,
			Environment: s.Metadata.Environment,
		},
	}

	if s.Metadata.Tags != nil {
		clone.Metadata.Tags = make(map[string]string, len(s.Metadata.Tags))
		for k, v := range s.Metadata.Tags {
			clone.Metadata.Tags[k] = v
		}
	}

	if s.Resources != nil {
		clone.Resources = make([]Resource, len(s.Resources))
		for i := range s.Resources {
			clone.Resources[i] = *s.Resources[i].Clone()
		}
	}

	if s.Outputs != nil {
		clone.Outputs = make(map[string]Output, len(s.Outputs))
		for k, v := range s.Outputs {
			clone.Outputs[k] = v
		}
	}

	return clone
}

// String returns a string representation of the snapshot.
func (s *Snapshot) String() string {
	return s.DeploymentID + " snapshot " + s.SnapshotID + " (" + s.Timestamp.Format(time.RFC3339) + ")"
}
