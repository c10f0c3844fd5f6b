package state

import (
	"os"
	"path/filepath"

	"github.com/huolto/huolto/internal/deployment"
	"github.com/huolto/huolto/internal/errors"
	"github.com/huolto/huolto/pkg/types"
)

// StateFileName is the provisioning tool's canonical state file name within
// a deployment's working directory.
const StateFileName = "terraform.tfstate"

// Reader reads a deployment's live state through the deployment registry.
type Reader struct {
	registry deployment.Registry
	parser   *Parser
}

// NewReader creates a state reader over the given registry.
func NewReader(registry deployment.Registry) *Reader {
	return &Reader{
		registry: registry,
		parser:   NewParser(),
	}
}

// ReadState resolves the deployment's working directory and returns its
// current resource graph.
func (r *Reader) ReadState(deploymentID string) (*types.ResourceGraph, error) {
	dep, err := r.registry.Resolve(deploymentID)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(dep.WorkingDir); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound("state", "working directory not found for deployment %s: %s", deploymentID, dep.WorkingDir)
		}
		return nil, errors.Storage("failed to access working directory "+dep.WorkingDir, err)
	}

	doc, err := r.parser.ParseFile(filepath.Join(dep.WorkingDir, StateFileName))
	if err != nil {
		return nil, err
	}

	return doc.Graph(), nil
}
