// Package automation manages per-deployment recurring workflows: their
// durable configuration, schedule computation and task pipelines.
package automation

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/huolto/huolto/internal/errors"
	"github.com/huolto/huolto/pkg/types"
)

// ConfigFileName is the active config file within a deployment's automation
// directory.
const ConfigFileName = "automation-config.json"

// ListFilter narrows List results.
type ListFilter struct {
	DeploymentID      string
	Statuses          []types.AutomationStatus
	IncludeHistorical bool
}

// Registry is the durable store of automation configs. One active config per
// deployment; disabled configs move to a per-deployment history archive when
// replaced.
type Registry struct {
	baseDir string
}

// NewRegistry creates a registry rooted at {baseDir}/automation.
func NewRegistry(baseDir string) (*Registry, error) {
	dir := filepath.Join(baseDir, "automation")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Storage("failed to create automation directory", err)
	}
	return &Registry{baseDir: dir}, nil
}

func (r *Registry) deploymentDir(deploymentID string) string {
	return filepath.Join(r.baseDir, deploymentID)
}

func (r *Registry) activePath(deploymentID string) string {
	return filepath.Join(r.deploymentDir(deploymentID), ConfigFileName)
}

func (r *Registry) archiveDir(deploymentID string) string {
	return filepath.Join(r.deploymentDir(deploymentID), "history")
}

// Create persists a new active config for its deployment. A deployment with
// an existing Active config of a different type is rejected; a Disabled
// config is archived first.
func (r *Registry) Create(config *types.AutomationConfig) (string, error) {
	if err := config.Validate(); err != nil {
		return "", errors.Validation("invalid automation config: %v", err)
	}

	existing, err := r.loadActive(config.DeploymentID)
	if err != nil && !errors.IsNotFound(err) {
		return "", err
	}

	if existing != nil {
		if existing.Status == types.StatusActive && existing.Type != config.Type {
			return "", errors.Conflict("automation",
				"deployment "+config.DeploymentID+" already has an active "+existing.Type.String()+" automation",
				[]string{existing.AutomationID})
		}
		if existing.Status == types.StatusDisabled {
			if err := r.archive(existing); err != nil {
				return "", err
			}
		}
	}

	if err := r.write(r.activePath(config.DeploymentID), config); err != nil {
		return "", err
	}

	return config.AutomationID, nil
}

// Update rewrites an existing active config in place.
func (r *Registry) Update(config *types.AutomationConfig) error {
	if err := config.Validate(); err != nil {
		return errors.Validation("invalid automation config: %v", err)
	}
	return r.write(r.activePath(config.DeploymentID), config)
}

// Get returns the config with the given ID, searching active configs first
// and then the historical archive. Archived results carry IsHistorical.
func (r *Registry) Get(automationID string) (*types.AutomationConfig, error) {
	deployments, err := r.deploymentDirs()
	if err != nil {
		return nil, err
	}

	for _, dep := range deployments {
		config, err := r.loadActive(dep)
		if err != nil {
			continue
		}
		if config.AutomationID == automationID {
			return config, nil
		}
	}

	for _, dep := range deployments {
		path := filepath.Join(r.archiveDir(dep), automationID+".json")
		config, err := r.load(path)
		if err != nil {
			continue
		}
		config.IsHistorical = true
		return config, nil
	}

	return nil, errors.NotFound("automation", "automation not found: %s", automationID)
}

// List returns summaries of stored automation configs matching the filter,
// sorted by creation time descending.
func (r *Registry) List(filter ListFilter) ([]types.AutomationSummary, error) {
	deployments, err := r.deploymentDirs()
	if err != nil {
		return nil, err
	}

	var summaries []types.AutomationSummary
	for _, dep := range deployments {
		if filter.DeploymentID != "" && dep != filter.DeploymentID {
			continue
		}

		if config, err := r.loadActive(dep); err == nil {
			if matchesStatus(config.Status, filter.Statuses) {
				summaries = append(summaries, summarize(config))
			}
		}

		if filter.IncludeHistorical {
			archived, err := r.loadArchive(dep)
			if err != nil {
				continue
			}
			for _, config := range archived {
				if matchesStatus(config.Status, filter.Statuses) {
					summaries = append(summaries, summarize(config))
				}
			}
		}
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})

	return summaries, nil
}

// Disable marks the config Disabled. With removeConfigFiles the deployment's
// automation directory is deleted entirely instead of rewritten.
func (r *Registry) Disable(automationID string, removeConfigFiles bool) error {
	deployments, err := r.deploymentDirs()
	if err != nil {
		return err
	}

	for _, dep := range deployments {
		config, err := r.loadActive(dep)
		if err != nil {
			continue
		}
		if config.AutomationID != automationID {
			continue
		}

		if removeConfigFiles {
			if err := os.RemoveAll(r.deploymentDir(dep)); err != nil {
				return errors.Storage("failed to remove automation directory", err)
			}
			return nil
		}

		config.Status = types.StatusDisabled
		config.Enabled = false
		config.LastModified = time.Now().UTC()
		return r.write(r.activePath(dep), config)
	}

	return errors.NotFound("automation", "automation not found: %s", automationID)
}

// AppendHistory appends an execution record to the config's history and
// rewrites it.
func (r *Registry) AppendHistory(automationID string, record types.ExecutionRecord) error {
	config, err := r.Get(automationID)
	if err != nil {
		return err
	}
	if config.IsHistorical {
		return errors.Validation("cannot append history to archived automation %s", automationID)
	}

	config.History = append(config.History, record)
	config.LastModified = time.Now().UTC()
	return r.Update(config)
}

func (r *Registry) archive(config *types.AutomationConfig) error {
	dir := r.archiveDir(config.DeploymentID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Storage("failed to create automation archive directory", err)
	}
	path := filepath.Join(dir, config.AutomationID+".json")
	if err := r.write(path, config); err != nil {
		return err
	}
	return os.Remove(r.activePath(config.DeploymentID))
}

func (r *Registry) deploymentDirs() ([]string, error) {
	entries, err := os.ReadDir(r.baseDir)
	if err != nil {
		return nil, errors.Storage("failed to read automation directory", err)
	}

	var dirs []string
	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, entry.Name())
		}
	}
	return dirs, nil
}

func (r *Registry) loadActive(deploymentID string) (*types.AutomationConfig, error) {
	return r.load(r.activePath(deploymentID))
}

func (r *Registry) loadArchive(deploymentID string) ([]*types.AutomationConfig, error) {
	entries, err := os.ReadDir(r.archiveDir(deploymentID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Storage("failed to read automation archive", err)
	}

	var configs []*types.AutomationConfig
	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		config, err := r.load(filepath.Join(r.archiveDir(deploymentID), entry.Name()))
		if err != nil {
			continue
		}
		config.IsHistorical = true
		configs = append(configs, config)
	}
	return configs, nil
}

func (r *Registry) load(path string) (*types.AutomationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound("automation", "no automation config at %s", path)
		}
		return nil, errors.Storage("failed to read automation config", err)
	}

	var config types.AutomationConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, errors.Corrupt("failed to parse automation config "+path, err)
	}
	return &config, nil
}

func (r *Registry) write(path string, config *types.AutomationConfig) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return errors.Storage("failed to encode automation config", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Storage("failed to create automation directory", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Storage("failed to write automation config", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.Storage("failed to rename automation config", err)
	}
	return nil
}

func matchesStatus(status types.AutomationStatus, statuses []types.AutomationStatus) bool {
	if len(statuses) == 0 {
		return true
	}
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func summarize(config *types.AutomationConfig) types.AutomationSummary {
	return types.AutomationSummary{
		AutomationID: config.AutomationID,
		DeploymentID: config.DeploymentID,
		Type:         config.Type,
		Status:       config.Status,
		NextRun:      config.Schedule.NextRun,
		CreatedAt:    config.CreatedAt,
		IsHistorical: config.IsHistorical,
	}
}
