package automation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/huolto/huolto/internal/deployment"
	"github.com/huolto/huolto/internal/differ"
	"github.com/huolto/huolto/internal/logger"
	"github.com/huolto/huolto/internal/snapshot"
	"github.com/huolto/huolto/internal/storage"
	"github.com/huolto/huolto/pkg/types"
)

// Task actions understood by the runner.
const (
	ActionBackup          = "backup"
	ActionBackupRotation  = "backup-rotation"
	ActionDeploy          = "deploy"
	ActionDriftCheck      = "drift-check"
	ActionRepositorySync  = "repository-sync"
	ActionValidateConfig  = "validate-config"
	ActionHealthCheck     = "health-check"
	ActionUpdateCheck     = "update-check"
	ActionAlertProcessing = "alert-processing"
)

const defaultBackupRetention = 10

// Provisioner applies configuration in a deployment's working directory.
// The concrete implementation shells out to the provisioning tool.
type Provisioner interface {
	Apply(ctx context.Context, workingDir string) error
}

// Runner executes automation task pipelines. Tasks within one pipeline run
// strictly in declared order; pipelines for different deployments may run
// concurrently, serialized per deployment by the shared lock set.
type Runner struct {
	registry    *Registry
	deployments deployment.Registry
	capturer    *snapshot.Capturer
	store       storage.Store
	provisioner Provisioner
	locks       *DeploymentLocks
	log         logger.Logger
	now         func() time.Time
}

// NewRunner creates a task pipeline runner.
func NewRunner(registry *Registry, deployments deployment.Registry, capturer *snapshot.Capturer, store storage.Store, provisioner Provisioner, locks *DeploymentLocks, log logger.Logger) *Runner {
	return &Runner{
		registry:    registry,
		deployments: deployments,
		capturer:    capturer,
		store:       store,
		provisioner: provisioner,
		locks:       locks,
		log:         log,
		now:         time.Now,
	}
}

// WithClock overrides the runner's clock. Used in tests.
func (r *Runner) WithClock(now func() time.Time) *Runner {
	r.now = now
	return r
}

// RunDue executes every active automation whose next run is at or before
// now, advances its schedule and records the outcome to history. In-flight
// pipelines always run to completion; a cancelled context only stops further
// pipelines from starting.
func (r *Runner) RunDue(ctx context.Context, now time.Time) (int, error) {
	summaries, err := r.registry.List(ListFilter{Statuses: []types.AutomationStatus{types.StatusActive}})
	if err != nil {
		return 0, err
	}

	ran := 0
	for _, summary := range summaries {
		if summary.NextRun.After(now) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return ran, err
		}

		config, err := r.registry.Get(summary.AutomationID)
		if err != nil {
			r.log.Error("failed to load due automation "+summary.AutomationID, err)
			continue
		}
		if !config.Enabled {
			continue
		}

		r.Run(ctx, config)
		ran++
	}

	return ran, nil
}

// Run executes one automation's pipeline under the deployment lock and
// persists the execution record and next run time. The record is written
// even when tasks fail.
func (r *Runner) Run(ctx context.Context, config *types.AutomationConfig) types.ExecutionRecord {
	unlock := r.locks.Lock(config.DeploymentID)
	defer unlock()

	started := r.now().UTC()
	record := types.ExecutionRecord{StartedAt: started, Result: "success"}

	var details []string
	for _, task := range config.Tasks {
		if !task.Enabled {
			continue
		}

		if err := r.runTask(ctx, config, task); err != nil {
			record.Result = "failure"
			details = append(details, task.Name+": "+err.Error())
			r.log.WithFields(map[string]interface{}{
				"automation": config.AutomationID,
				"task":       task.Name,
			}).Error("automation task failed", err)
			break
		}
		details = append(details, task.Name+": ok")
	}

	record.FinishedAt = r.now().UTC()
	record.Detail = strings.Join(details, "; ")

	config.History = append(config.History, record)
	config.Schedule.NextRun = nextRunFor(config.Schedule, r.now())
	config.LastModified = r.now().UTC()
	if err := r.registry.Update(config); err != nil {
		r.log.Error("failed to persist automation run for "+config.AutomationID, err)
	}

	return record
}

func (r *Runner) runTask(ctx context.Context, config *types.AutomationConfig, task types.Task) error {
	switch task.Action {
	case ActionBackup:
		_, err := r.capturer.Capture(ctx, config.DeploymentID, snapshot.Options{})
		if err != nil {
			return err
		}
		return r.rotateBackups(config)

	case ActionBackupRotation:
		return r.rotateBackups(config)

	case ActionDriftCheck:
		return r.driftCheck(ctx, config)

	case ActionDeploy:
		dep, err := r.deployments.Resolve(config.DeploymentID)
		if err != nil {
			return err
		}
		return r.provisioner.Apply(ctx, dep.WorkingDir)

	case ActionHealthCheck:
		// A readable, parsable state file is the engine's health signal.
		_, err := r.deployments.Resolve(config.DeploymentID)
		return err

	case ActionRepositorySync, ActionValidateConfig, ActionUpdateCheck, ActionAlertProcessing:
		// Delegated to external collaborators; recorded but not executed here.
		r.log.WithFields(map[string]interface{}{
			"automation": config.AutomationID,
			"action":     task.Action,
		}).Debug("delegated task acknowledged")
		return nil

	default:
		return fmt.Errorf("unknown task action: %s", task.Action)
	}
}

func (r *Runner) rotateBackups(config *types.AutomationConfig) error {
	retention := config.Features.AutoBackup.RetentionCount
	if retention <= 0 {
		retention = defaultBackupRetention
	}

	removed, err := r.store.Prune(config.DeploymentID, retention)
	if err != nil {
		// Retention is best-effort; the backup itself already succeeded.
		r.log.Error("snapshot pruning failed for "+config.DeploymentID, err)
		return nil
	}
	if removed > 0 {
		r.log.WithFields(map[string]interface{}{
			"deployment": config.DeploymentID,
			"removed":    removed,
		}).Info("rotated old snapshots")
	}
	return nil
}

// driftCheck captures a fresh snapshot and compares it against the most
// recent prior snapshot of the deployment.
func (r *Runner) driftCheck(ctx context.Context, config *types.AutomationConfig) error {
	before, err := r.store.List(config.DeploymentID)
	if err != nil {
		return err
	}

	ref, err := r.capturer.Capture(ctx, config.DeploymentID, snapshot.Options{})
	if err != nil {
		return err
	}

	if len(before) == 0 {
		r.log.WithField("deployment", config.DeploymentID).Info("no baseline snapshot; drift check recorded initial state")
		return nil
	}

	current, err := r.store.Resolve(ref.SnapshotID)
	if err != nil {
		return err
	}
	baseline, err := r.store.Resolve(before[0].SnapshotID)
	if err != nil {
		return err
	}

	result := differ.CompareSnapshots(baseline, current, differ.Options{})
	if result.Summary.HasDrift() {
		r.log.WithFields(map[string]interface{}{
			"deployment": config.DeploymentID,
			"added":      result.Summary.Added,
			"removed":    result.Summary.Removed,
			"modified":   result.Summary.Modified,
		}).Warn("drift detected")
	}
	return nil
}
