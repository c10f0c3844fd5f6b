package types

import "time"

// ChangeKind classifies a resource-level change between two snapshots.
type ChangeKind string

const (
	ChangeAdded     ChangeKind = "added"
	ChangeRemoved   ChangeKind = "removed"
	ChangeModified  ChangeKind = "modified"
	ChangeUnchanged ChangeKind = "unchanged"
)

// IsValid checks if the ChangeKind is one of the closed set.
func (ck ChangeKind) IsValid() bool {
	switch ck {
	case ChangeAdded, ChangeRemoved, ChangeModified, ChangeUnchanged:
		return true
	default:
		return false
	}
}

func (ck ChangeKind) String() string {
	return string(ck)
}

// ResourceRef identifies a resource within a comparison.
type ResourceRef struct {
	Key  string `json:"key"`
	Type string `json:"type"`
	Name string `json:"name"`
}

// FieldChange records one differing attribute between the reference and
// difference snapshots.
type FieldChange struct {
	Property string      `json:"property"`
	OldValue interface{} `json:"oldValue"`
	NewValue interface{} `json:"newValue"`
}

// ModifiedResource is a resource present in both snapshots whose first
// instance differs.
type ModifiedResource struct {
	ResourceRef
	FieldChanges []FieldChange `json:"fieldChanges"`
}

// ComparisonSummary holds per-kind change counts.
type ComparisonSummary struct {
	Added     int `json:"added"`
	Removed   int `json:"removed"`
	Modified  int `json:"modified"`
	Unchanged int `json:"unchanged"`
}

// Total returns the number of classified resources in the summary.
func (s ComparisonSummary) Total() int {
	return s.Added + s.Removed + s.Modified + s.Unchanged
}

// HasDrift reports whether the comparison found any difference.
func (s ComparisonSummary) HasDrift() bool {
	return s.Added+s.Removed+s.Modified > 0
}

// ComparisonChanges groups per-resource changes by kind.
type ComparisonChanges struct {
	Added     []ResourceRef      `json:"added"`
	Removed   []ResourceRef      `json:"removed"`
	Modified  []ModifiedResource `json:"modified"`
	Unchanged []ResourceRef      `json:"unchanged,omitempty"`
}

// ComparisonResult is the structured diff between two snapshots. The caller's
// reference/difference ordering is authoritative; the differ never reorders
// by recency.
type ComparisonResult struct {
	ReferenceID    string            `json:"referenceId"`
	DifferenceID   string            `json:"differenceId"`
	ReferenceTime  time.Time         `json:"referenceTime"`
	DifferenceTime time.Time         `json:"differenceTime"`
	Summary        ComparisonSummary `json:"summary"`
	Changes        ComparisonChanges `json:"changes"`
}
