// Package state adapts the provisioning tool's on-disk state representation
// into the engine's resource graph. The state file is read-only; the engine
// never writes it.
package state

import (
	"encoding/json"
	"os"
	"sort"

	"github.com/huolto/huolto/internal/errors"
	"github.com/huolto/huolto/pkg/types"
)

// StateDocument mirrors the provisioning tool's state file structure.
type StateDocument struct {
	Version   int                       `json:"version"`
	Serial    int                       `json:"serial"`
	Lineage   string                    `json:"lineage"`
	Outputs   map[string]OutputDocument `json:"outputs"`
	Resources []ResourceDocument        `json:"resources"`
}

// ResourceDocument represents a resource entry in the state file.
type ResourceDocument struct {
	Mode      string             `json:"mode"`
	Type      string             `json:"type"`
	Name      string             `json:"name"`
	Provider  string             `json:"provider"`
	Instances []InstanceDocument `json:"instances"`
}

// InstanceDocument represents a resource instance in the state file.
type InstanceDocument struct {
	IndexKey      interface{}            `json:"index_key,omitempty"`
	SchemaVersion int                    `json:"schema_version"`
	Attributes    map[string]interface{} `json:"attributes"`
	Dependencies  []string               `json:"dependencies,omitempty"`
}

// OutputDocument represents an output entry in the state file.
type OutputDocument struct {
	Value     interface{} `json:"value"`
	Type      interface{} `json:"type,omitempty"`
	Sensitive bool        `json:"sensitive,omitempty"`
}

// Parser parses provisioning-tool state files.
type Parser struct{}

// NewParser creates a new state parser.
func NewParser() *Parser {
	return &Parser{}
}

// ParseFile reads and parses a state file. An empty file parses as an empty
// version-4 document.
func (p *Parser) ParseFile(path string) (*StateDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound("state", "state file not found: %s", path)
		}
		return nil, errors.Storage("failed to read state file", err)
	}

	if len(data) == 0 {
		return &StateDocument{
			Version:   4,
			Resources: []ResourceDocument{},
		}, nil
	}

	var doc StateDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Corrupt("failed to parse state file "+path, err)
	}

	return &doc, nil
}

// Graph converts a parsed state document into the engine's resource graph.
// Resources are ordered by key so graphs built from the same state compare
// equal regardless of on-disk ordering.
func (doc *StateDocument) Graph() *types.ResourceGraph {
	graph := &types.ResourceGraph{
		Serial:    doc.Serial,
		Version:   doc.Version,
		Resources: make([]types.Resource, 0, len(doc.Resources)),
		Outputs:   make(map[string]types.Output, len(doc.Outputs)),
	}

	for _, rd := range doc.Resources {
		resource := types.Resource{
			Type:     rd.Type,
			Name:     rd.Name,
			Provider: rd.Provider,
			Mode:     types.ResourceMode(rd.Mode),
		}
		if resource.Mode == "" {
			resource.Mode = types.ModeManaged
		}

		resource.Instances = make([]types.Instance, 0, len(rd.Instances))
		for _, id := range rd.Instances {
			resource.Instances = append(resource.Instances, types.Instance{
				IndexKey:      id.IndexKey,
				SchemaVersion: id.SchemaVersion,
				Attributes:    id.Attributes,
				Dependencies:  id.Dependencies,
			})
		}

		graph.Resources = append(graph.Resources, resource)
	}

	sort.Slice(graph.Resources, func(i, j int) bool {
		return graph.Resources[i].Key() < graph.Resources[j].Key()
	})

	for name, od := range doc.Outputs {
		out := types.Output{
			Value:     od.Value,
			Sensitive: od.Sensitive,
		}
		if s, ok := od.Type.(string); ok {
			out.Type = s
		}
		graph.Outputs[name] = out
	}

	return graph
}
