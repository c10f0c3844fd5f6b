// Package deployment resolves deployment identifiers to their working
// directories and metadata. The registry file is the engine's only knowledge
// of which deployments exist; provisioning them is an external concern.
package deployment

import (
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/huolto/huolto/internal/errors"
)

// Deployment describes one registered deployment.
type Deployment struct {
	ID          string            `yaml:"id" json:"id"`
	WorkingDir  string            `yaml:"working_dir" json:"workingDir"`
	Provider    string            `yaml:"provider" json:"provider"`
	Environment string            `yaml:"environment" json:"environment"`
	Tags        map[string]string `yaml:"tags,omitempty" json:"tags,omitempty"`
}

// Registry resolves deployment identifiers.
type Registry interface {
	Resolve(id string) (*Deployment, error)
	List() ([]Deployment, error)
}

// FileRegistry is a Registry backed by a YAML file.
type FileRegistry struct {
	path string
}

type registryFile struct {
	Deployments []Deployment `yaml:"deployments"`
}

// NewFileRegistry creates a registry reading from deployments.yaml under the
// given base directory.
func NewFileRegistry(baseDir string) *FileRegistry {
	return &FileRegistry{path: filepath.Join(baseDir, "deployments.yaml")}
}

// NewFileRegistryFromPath creates a registry reading from an explicit file.
func NewFileRegistryFromPath(path string) *FileRegistry {
	return &FileRegistry{path: path}
}

func (r *FileRegistry) load() (*registryFile, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &registryFile{}, nil
		}
		return nil, errors.Storage("failed to read deployment registry", err)
	}

	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.Corrupt("failed to parse deployment registry", err)
	}
	return &file, nil
}

// Resolve returns the deployment with the given identifier.
func (r *FileRegistry) Resolve(id string) (*Deployment, error) {
	file, err := r.load()
	if err != nil {
		return nil, err
	}

	for i := range file.Deployments {
		if file.Deployments[i].ID == id {
			d := file.Deployments[i]
			return &d, nil
		}
	}

	return nil, errors.Validation("unknown deployment: %s", id)
}

// List returns all registered deployments sorted by identifier.
func (r *FileRegistry) List() ([]Deployment, error) {
	file, err := r.load()
	if err != nil {
		return nil, err
	}

	deployments := append([]Deployment(nil), file.Deployments...)
	sort.Slice(deployments, func(i, j int) bool {
		return deployments[i].ID < deployments[j].ID
	})
	return deployments, nil
}
