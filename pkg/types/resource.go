package types

import (
	"errors"
	"strings"
)

// ResourceMode distinguishes managed resources from read-only data sources.
type ResourceMode string

const (
	ModeManaged ResourceMode = "managed"
	ModeData    ResourceMode = "data"
)

// Resource represents one declared infrastructure object within a snapshot.
// A resource may carry multiple instances when declared as a count/for-each
// collection.
type Resource struct {
	Type      string       `json:"type"`
	Name      string       `json:"name"`
	Provider  string       `json:"provider"`
	Mode      ResourceMode `json:"mode"`
	Instances []Instance   `json:"instances"`
}

// Instance is one realized copy of a resource.
type Instance struct {
	IndexKey      interface{}            `json:"indexKey,omitempty"`
	SchemaVersion int                    `json:"schemaVersion"`
	Attributes    map[string]interface{} `json:"attributes"`
	Dependencies  []string               `json:"dependencies,omitempty"`
}

// Key returns the resource key, unique within a snapshot.
func (r *Resource) Key() string {
	return r.Type + "." + r.Name
}

// Validate checks if the Resource has all required fields.
func (r *Resource) Validate() error {
	if strings.TrimSpace(r.Type) == "" {
		return errors.New("resource type is required")
	}
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("resource name is required")
	}
	if r.Mode != ModeManaged && r.Mode != ModeData {
		return errors.New("resource mode must be managed or data")
	}
	return nil
}

// FirstInstance returns the first instance of the resource, or nil when the
// resource has no instances.
func (r *Resource) FirstInstance() *Instance {
	if len(r.Instances) == 0 {
		return nil
	}
	return &r.Instances[0]
}

// Clone creates a deep copy of the resource.
func (r *Resource) Clone() *Resource {
	clone := &Resource{
		Type:     r.Type,
		Name:     r.Name,
		Provider: r.Provider,
		Mode:     r.Mode,
	}
	if r.Instances != nil {
		clone.Instances = make([]Instance, len(r.Instances))
		for i := range r.Instances {
			clone.Instances[i] = *r.Instances[i].Clone()
		}
	}
	return clone
}

// Clone creates a deep copy of the instance. Attribute values are copied
// recursively for maps and slices; scalar values are shared.
func (in *Instance) Clone() *Instance {
	clone := &Instance{
		IndexKey:      in.IndexKey,
		SchemaVersion: in.SchemaVersion,
	}
	if in.Attributes != nil {
		clone.Attributes = cloneValue(in.Attributes).(map[string]interface{})
	}
	if in.Dependencies != nil {
		clone.Dependencies = append([]string(nil), in.Dependencies...)
	}
	return clone
}

func cloneValue(v interface{}) interface{} {
	switch tv := v.(type) {
	case map[string]interface{}:
		m := make(map[string]interface{}, len(tv))
		for k, val := range tv {
			m[k] = cloneValue(val)
		}
		return m
	case []interface{}:
		s := make([]interface{}, len(tv))
		for i, val := range tv {
			s[i] = cloneValue(val)
		}
		return s
	default:
		return v
	}
}

// ResourceGraph is the engine's view of a deployment's live state as read
// from the provisioning tool.
type ResourceGraph struct {
	Resources []Resource        `json:"resources"`
	Outputs   map[string]Output `json:"outputs"`
	Serial    int               `json:"serial"`
	Version   int               `json:"version"`
}
