package automation

import "sync"

// DeploymentLocks provides per-deployment mutual exclusion. Automation task
// pipelines and rollbacks for the same deployment must never apply
// conflicting changes simultaneously; pipelines for different deployments
// run concurrently.
type DeploymentLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewDeploymentLocks creates an empty lock set.
func NewDeploymentLocks() *DeploymentLocks {
	return &DeploymentLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the deployment's lock and returns the unlock function.
func (d *DeploymentLocks) Lock(deploymentID string) func() {
	d.mu.Lock()
	lock, ok := d.locks[deploymentID]
	if !ok {
		lock = &sync.Mutex{}
		d.locks[deploymentID] = lock
	}
	d.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
