// Package snapshot builds durable snapshots of a deployment's provisioned
// state.
package snapshot

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/huolto/huolto/internal/deployment"
	"github.com/huolto/huolto/internal/logger"
	"github.com/huolto/huolto/internal/redact"
	"github.com/huolto/huolto/internal/storage"
	"github.com/huolto/huolto/pkg/types"
)

// Options control a single capture.
type Options struct {
	// IncludeSecrets skips redaction entirely. Off by default.
	IncludeSecrets bool
}

// StateReader provides the deployment's current resource graph.
type StateReader interface {
	ReadState(deploymentID string) (*types.ResourceGraph, error)
}

// Capturer orchestrates the state reader, redactor and store to produce
// snapshots.
type Capturer struct {
	registry deployment.Registry
	reader   StateReader
	redactor *redact.Redactor
	store    storage.Store
	log      logger.Logger
	now      func() time.Time
}

// NewCapturer creates a capturer over the given collaborators.
func NewCapturer(registry deployment.Registry, reader StateReader, redactor *redact.Redactor, store storage.Store, log logger.Logger) *Capturer {
	return &Capturer{
		registry: registry,
		reader:   reader,
		redactor: redactor,
		store:    store,
		log:      log,
		now:      time.Now,
	}
}

// WithClock overrides the capturer's clock. Used in tests.
func (c *Capturer) WithClock(now func() time.Time) *Capturer {
	c.now = now
	return c
}

// NewSnapshotID generates a time-ordered snapshot identifier with a random
// suffix.
func NewSnapshotID(t time.Time) string {
	suffix := strings.Split(uuid.NewString(), "-")[0]
	return "snap-" + t.UTC().Format("20060102150405") + "-" + suffix
}

// Capture reads the deployment's live state, redacts sensitive attributes
// unless secrets are requested, and persists the assembled snapshot.
func (c *Capturer) Capture(ctx context.Context, deploymentID string, opts Options) (*types.SnapshotRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dep, err := c.registry.Resolve(deploymentID)
	if err != nil {
		return nil, err
	}

	graph, err := c.reader.ReadState(deploymentID)
	if err != nil {
		return nil, err
	}

	now := c.now().UTC().Truncate(time.Second)
	snapshot := &types.Snapshot{
		SnapshotID:   NewSnapshotID(now),
		DeploymentID: deploymentID,
		Timestamp:    now,
		Serial:       graph.Serial,
		Resources:    make([]types.Resource, 0, len(graph.Resources)),
		Outputs:      make(map[string]types.Output, len(graph.Outputs)),
		Metadata: types.SnapshotMetadata{
			Provider:    dep.Provider,
			Environment: dep.Environment,
			Tags:        dep.Tags,
		},
	}

	for i := range graph.Resources {
		resource := *graph.Resources[i].Clone()
		if !opts.IncludeSecrets {
			for j := range resource.Instances {
				resource.Instances[j].Attributes = c.redactor.Redact(resource.Instances[j].Attributes)
			}
		}
		snapshot.Resources = append(snapshot.Resources, resource)
	}

	for name, out := range graph.Outputs {
		if out.Sensitive && !opts.IncludeSecrets {
			out.Value = redact.Sentinel
		}
		snapshot.Outputs[name] = out
	}

	ref, err := c.store.Save(snapshot)
	if err != nil {
		return nil, err
	}

	c.log.WithFields(map[string]interface{}{
		"deployment": deploymentID,
		"snapshot":   ref.SnapshotID,
		"resources":  ref.ResourceCount,
	}).Info("snapshot captured")

	return ref, nil
}
