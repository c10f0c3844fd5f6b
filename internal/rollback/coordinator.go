// Package rollback plans and audits convergence of a deployment back to a
// stored snapshot. The coordinator never mutates infrastructure itself; the
// apply step belongs to the external provisioning tool.
package rollback

import (
	"context"

	"github.com/huolto/huolto/internal/automation"
	"github.com/huolto/huolto/internal/deployment"
	"github.com/huolto/huolto/internal/differ"
	"github.com/huolto/huolto/internal/errors"
	"github.com/huolto/huolto/internal/logger"
	"github.com/huolto/huolto/internal/snapshot"
	"github.com/huolto/huolto/internal/storage"
	"github.com/huolto/huolto/pkg/types"
)

// Coordinator resolves a target snapshot and drives the provisioner to
// converge the deployment toward it.
type Coordinator struct {
	registry    deployment.Registry
	store       storage.Store
	capturer    *snapshot.Capturer
	provisioner automation.Provisioner
	locks       *automation.DeploymentLocks
	log         logger.Logger
}

// NewCoordinator creates a rollback coordinator.
func NewCoordinator(registry deployment.Registry, store storage.Store, capturer *snapshot.Capturer, provisioner automation.Provisioner, locks *automation.DeploymentLocks, log logger.Logger) *Coordinator {
	return &Coordinator{
		registry:    registry,
		store:       store,
		capturer:    capturer,
		provisioner: provisioner,
		locks:       locks,
		log:         log,
	}
}

// Rollback captures the deployment's current state, computes the comparison
// from current to target, then delegates convergence to the provisioner
// under the deployment lock. The pre-rollback comparison is returned even
// when the apply step fails, so callers can always audit what the rollback
// attempted to change.
func (c *Coordinator) Rollback(ctx context.Context, deploymentID, targetSnapshotID string) (*types.ComparisonResult, error) {
	dep, err := c.registry.Resolve(deploymentID)
	if err != nil {
		return nil, err
	}

	target, err := c.store.Resolve(targetSnapshotID)
	if err != nil {
		return nil, err
	}
	if target.DeploymentID != deploymentID {
		return nil, errors.Validation("snapshot %s belongs to deployment %s, not %s",
			target.SnapshotID, target.DeploymentID, deploymentID)
	}

	currentRef, err := c.capturer.Capture(ctx, deploymentID, snapshot.Options{})
	if err != nil {
		return nil, err
	}
	current, err := c.store.Resolve(currentRef.SnapshotID)
	if err != nil {
		return nil, err
	}

	result := differ.CompareSnapshots(current, target, differ.Options{})

	c.log.WithFields(map[string]interface{}{
		"deployment": deploymentID,
		"target":     target.SnapshotID,
		"added":      result.Summary.Added,
		"removed":    result.Summary.Removed,
		"modified":   result.Summary.Modified,
	}).Info("rollback plan computed")

	if !result.Summary.HasDrift() {
		return result, nil
	}

	unlock := c.locks.Lock(deploymentID)
	defer unlock()

	if err := c.provisioner.Apply(ctx, dep.WorkingDir); err != nil {
		return result, errors.Provisioning("rollback apply failed for deployment "+deploymentID, err)
	}

	c.log.WithField("deployment", deploymentID).Info("rollback applied")
	return result, nil
}
