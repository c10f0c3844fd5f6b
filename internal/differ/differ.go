// Package differ computes structural comparisons between two stored
// snapshots.
package differ

import (
	"fmt"
	"sort"

	"github.com/huolto/huolto/internal/storage"
	"github.com/huolto/huolto/pkg/types"
)

// Options control a single comparison.
type Options struct {
	// IncludeUnchanged lists resources with no differences in the result.
	IncludeUnchanged bool
}

// Differ compares snapshots resolved through a store.
type Differ struct {
	store storage.Store
}

// New creates a differ over the given store.
func New(store storage.Store) *Differ {
	return &Differ{store: store}
}

// Compare resolves both snapshot identifiers and classifies every resource
// key across them as added, removed, modified or unchanged. The caller's
// reference/difference ordering is authoritative.
func (d *Differ) Compare(referenceID, differenceID string, opts Options) (*types.ComparisonResult, error) {
	reference, err := d.store.Resolve(referenceID)
	if err != nil {
		return nil, err
	}
	difference, err := d.store.Resolve(differenceID)
	if err != nil {
		return nil, err
	}

	return CompareSnapshots(reference, difference, opts), nil
}

// CompareSnapshots classifies changes between two already-loaded snapshots.
func CompareSnapshots(reference, difference *types.Snapshot, opts Options) *types.ComparisonResult {
	result := &types.ComparisonResult{
		ReferenceID:    reference.SnapshotID,
		DifferenceID:   difference.SnapshotID,
		ReferenceTime:  reference.Timestamp,
		DifferenceTime: difference.Timestamp,
	}

	refMap := resourceMap(reference)
	diffMap := resourceMap(difference)

	for key, refResource := range refMap {
		if _, exists := diffMap[key]; exists {
			continue
		}
		result.Changes.Removed = append(result.Changes.Removed, newRef(key, refResource))
		result.Summary.Removed++
	}

	for key, diffResource := range diffMap {
		refResource, exists := refMap[key]
		if !exists {
			result.Changes.Added = append(result.Changes.Added, newRef(key, diffResource))
			result.Summary.Added++
			continue
		}

		fieldChanges := compareResource(refResource, diffResource)
		if len(fieldChanges) > 0 {
			result.Changes.Modified = append(result.Changes.Modified, types.ModifiedResource{
				ResourceRef:  newRef(key, diffResource),
				FieldChanges: fieldChanges,
			})
			result.Summary.Modified++
		} else if opts.IncludeUnchanged {
			result.Changes.Unchanged = append(result.Changes.Unchanged, newRef(key, diffResource))
			result.Summary.Unchanged++
		}
	}

	sortRefs(result.Changes.Added)
	sortRefs(result.Changes.Removed)
	sortRefs(result.Changes.Unchanged)
	sort.Slice(result.Changes.Modified, func(i, j int) bool {
		return result.Changes.Modified[i].Key < result.Changes.Modified[j].Key
	})

	return result
}

func resourceMap(s *types.Snapshot) map[string]*types.Resource {
	m := make(map[string]*types.Resource, len(s.Resources))
	for i := range s.Resources {
		m[s.Resources[i].Key()] = &s.Resources[i]
	}
	return m
}

func newRef(key string, r *types.Resource) types.ResourceRef {
	return types.ResourceRef{Key: key, Type: r.Type, Name: r.Name}
}

// compareResource diffs two resources sharing a key. Instance count is a
// field change of its own; attribute comparison covers the first instance
// only, which bounds cost for large fan-out resources.
func compareResource(reference, difference *types.Resource) []types.FieldChange {
	var changes []types.FieldChange

	if len(reference.Instances) != len(difference.Instances) {
		changes = append(changes, types.FieldChange{
			Property: "InstanceCount",
			OldValue: len(reference.Instances),
			NewValue: len(difference.Instances),
		})
	}

	refInstance := reference.FirstInstance()
	diffInstance := difference.FirstInstance()
	if refInstance == nil || diffInstance == nil {
		return changes
	}

	changes = append(changes, compareAttributes(refInstance.Attributes, diffInstance.Attributes)...)
	return changes
}

// compareAttributes diffs the union of keys from both attribute sets, one
// field change per differing key, sorted by property name.
func compareAttributes(reference, difference map[string]interface{}) []types.FieldChange {
	keys := make(map[string]struct{}, len(reference)+len(difference))
	for k := range reference {
		keys[k] = struct{}{}
	}
	for k := range difference {
		keys[k] = struct{}{}
	}

	var changes []types.FieldChange
	for key := range keys {
		oldValue, inRef := reference[key]
		newValue, inDiff := difference[key]

		if inRef && inDiff && valuesEqual(oldValue, newValue) {
			continue
		}

		changes = append(changes, types.FieldChange{
			Property: key,
			OldValue: oldValue,
			NewValue: newValue,
		})
	}

	sort.Slice(changes, func(i, j int) bool {
		return changes[i].Property < changes[j].Property
	})

	return changes
}

func valuesEqual(a, b interface{}) bool {
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func sortRefs(refs []types.ResourceRef) {
	sort.Slice(refs, func(i, j int) bool {
		return refs[i].Key < refs[j].Key
	})
}
