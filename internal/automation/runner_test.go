package automation

import (
	"context"
	stderrs "errors"
	"strings"
	"testing"
	"time"

	"github.com/huolto/huolto/internal/deployment"
	"github.com/huolto/huolto/internal/logger"
	"github.com/huolto/huolto/internal/redact"
	"github.com/huolto/huolto/internal/snapshot"
	"github.com/huolto/huolto/internal/storage"
	"github.com/huolto/huolto/pkg/types"
)

type fakeReader struct {
	graph *types.ResourceGraph
}

func (f *fakeReader) ReadState(string) (*types.ResourceGraph, error) {
	return f.graph, nil
}

type fakeProvisioner struct {
	applied []string
	err     error
}

func (f *fakeProvisioner) Apply(_ context.Context, workingDir string) error {
	f.applied = append(f.applied, workingDir)
	return f.err
}

type runnerFixture struct {
	runner      *Runner
	registry    *Registry
	store       storage.Store
	provisioner *fakeProvisioner
	reader      *fakeReader
}

func newRunnerFixture(t *testing.T) *runnerFixture {
	t.Helper()

	store, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	registry, err := NewRegistry(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create registry: %v", err)
	}

	deployments := &fakeDeployments{known: map[string]*deployment.Deployment{
		"prod": {ID: "prod", WorkingDir: "/srv/prod", Provider: "aws", Environment: "production"},
	}}

	reader := &fakeReader{graph: &types.ResourceGraph{
		Serial: 1,
		Resources: []types.Resource{
			{
				Type: "aws_instance",
				Name: "web",
				Mode: types.ModeManaged,
				Instances: []types.Instance{
					{Attributes: map[string]interface{}{"instance_type": "t3.micro"}},
				},
			},
		},
	}}

	// Advance the clock a minute per call so repeated captures within one
	// run never collide on the same snapshot filename.
	clock := time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC)
	tick := func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	capturer := snapshot.NewCapturer(deployments, reader, redact.New(nil), store, logger.NewNop()).WithClock(tick)
	provisioner := &fakeProvisioner{}
	runner := NewRunner(registry, deployments, capturer, store, provisioner, NewDeploymentLocks(), logger.NewNop()).WithClock(tick)

	return &runnerFixture{
		runner:      runner,
		registry:    registry,
		store:       store,
		provisioner: provisioner,
		reader:      reader,
	}
}

func activeMaintenanceConfig(t *testing.T, registry *Registry, features types.AutomationFeatures) *types.AutomationConfig {
	t.Helper()

	config := testConfig("auto-maint", "prod", types.AutomationMaintenance, time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC))
	config.Features = features
	config.Tasks = BuildTaskPipeline(types.AutomationMaintenance, features)
	if _, err := registry.Create(config); err != nil {
		t.Fatalf("failed to create config: %v", err)
	}
	return config
}

func TestRunner_Run(t *testing.T) {
	f := newRunnerFixture(t)
	config := activeMaintenanceConfig(t, f.registry, types.AutomationFeatures{
		DriftDetection: types.DriftDetectionFeature{Enabled: true},
		AutoBackup:     types.AutoBackupFeature{Enabled: true, RetentionCount: 5},
	})
	previousNextRun := config.Schedule.NextRun

	record := f.runner.Run(context.Background(), config)

	if record.Result != "success" {
		t.Fatalf("expected success, got %s (%s)", record.Result, record.Detail)
	}
	if !record.FinishedAt.After(record.StartedAt) {
		t.Error("expected finish time after start time")
	}
	for _, task := range []string{"DriftDetection", "BackupRotation", "HealthCheck", "UpdateCheck"} {
		if !strings.Contains(record.Detail, task+": ok") {
			t.Errorf("expected %s in detail, got %q", task, record.Detail)
		}
	}

	stored, err := f.registry.Get(config.AutomationID)
	if err != nil {
		t.Fatalf("failed to reload config: %v", err)
	}
	if len(stored.History) != 1 {
		t.Fatalf("expected 1 history record, got %d", len(stored.History))
	}
	if !stored.Schedule.NextRun.After(previousNextRun) {
		t.Errorf("expected next run advanced past %s, got %s", previousNextRun, stored.Schedule.NextRun)
	}
	if len(f.provisioner.applied) != 0 {
		t.Errorf("maintenance pipeline must not deploy, applied %v", f.provisioner.applied)
	}

	// The drift check captured a snapshot.
	refs, err := f.store.List("prod")
	if err != nil {
		t.Fatalf("failed to list snapshots: %v", err)
	}
	if len(refs) == 0 {
		t.Error("expected drift check to capture a snapshot")
	}
}

func TestRunner_Run_Deploy(t *testing.T) {
	f := newRunnerFixture(t)

	config := testConfig("auto-sched", "prod", types.AutomationScheduled, time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC))
	config.Features = types.AutomationFeatures{AutoBackup: types.AutoBackupFeature{Enabled: true}}
	config.Tasks = BuildTaskPipeline(config.Type, config.Features)
	if _, err := f.registry.Create(config); err != nil {
		t.Fatalf("failed to create config: %v", err)
	}

	record := f.runner.Run(context.Background(), config)

	if record.Result != "success" {
		t.Fatalf("expected success, got %s (%s)", record.Result, record.Detail)
	}
	if len(f.provisioner.applied) != 1 || f.provisioner.applied[0] != "/srv/prod" {
		t.Errorf("expected deploy in /srv/prod, got %v", f.provisioner.applied)
	}
}

func TestRunner_Run_TaskFailureStopsPipeline(t *testing.T) {
	f := newRunnerFixture(t)
	f.provisioner.err = stderrs.New("terraform apply exploded")

	config := testConfig("auto-sched", "prod", types.AutomationScheduled, time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC))
	config.Tasks = BuildTaskPipeline(config.Type, config.Features)
	if _, err := f.registry.Create(config); err != nil {
		t.Fatalf("failed to create config: %v", err)
	}

	record := f.runner.Run(context.Background(), config)

	if record.Result != "failure" {
		t.Fatalf("expected failure, got %s", record.Result)
	}
	if !strings.Contains(record.Detail, "DeploymentExecution: terraform apply exploded") {
		t.Errorf("expected failing task in detail, got %q", record.Detail)
	}
	if strings.Contains(record.Detail, "PostDeploymentValidation") {
		t.Errorf("expected pipeline to stop at the failure, got %q", record.Detail)
	}

	// The failed run still lands in history and the schedule still advances.
	stored, err := f.registry.Get(config.AutomationID)
	if err != nil {
		t.Fatalf("failed to reload config: %v", err)
	}
	if len(stored.History) != 1 || stored.History[0].Result != "failure" {
		t.Errorf("expected failure recorded in history, got %+v", stored.History)
	}
}

func TestRunner_RunDue(t *testing.T) {
	f := newRunnerFixture(t)

	now := time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC)

	due := testConfig("auto-due", "prod", types.AutomationMaintenance, now.Add(-24*time.Hour))
	due.Schedule.NextRun = now.Add(-time.Hour)
	due.Tasks = BuildTaskPipeline(due.Type, due.Features)
	if _, err := f.registry.Create(due); err != nil {
		t.Fatalf("failed to create due config: %v", err)
	}

	ran, err := f.runner.RunDue(context.Background(), now)
	if err != nil {
		t.Fatalf("failed to run due automations: %v", err)
	}
	if ran != 1 {
		t.Errorf("expected 1 automation run, got %d", ran)
	}

	// Nothing is due anymore.
	ran, err = f.runner.RunDue(context.Background(), now)
	if err != nil {
		t.Fatalf("failed on second pass: %v", err)
	}
	if ran != 0 {
		t.Errorf("expected 0 runs on second pass, got %d", ran)
	}
}

func TestRunner_RunDue_SkipsFuture(t *testing.T) {
	f := newRunnerFixture(t)

	now := time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC)

	future := testConfig("auto-later", "prod", types.AutomationMaintenance, now)
	future.Schedule.NextRun = now.Add(time.Hour)
	future.Tasks = BuildTaskPipeline(future.Type, future.Features)
	if _, err := f.registry.Create(future); err != nil {
		t.Fatalf("failed to create config: %v", err)
	}

	ran, err := f.runner.RunDue(context.Background(), now)
	if err != nil {
		t.Fatalf("failed to run due automations: %v", err)
	}
	if ran != 0 {
		t.Errorf("expected no runs for a future schedule, got %d", ran)
	}
}

// A Custom-interval schedule keeps firing at its configured interval after
// every run, not just the first one computed at Start.
func TestRunner_Run_CustomIntervalAdvances(t *testing.T) {
	f := newRunnerFixture(t)

	config := testConfig("auto-custom", "prod", types.AutomationMonitoring, time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC))
	config.Schedule = types.Schedule{Kind: types.ScheduleCustom, IntervalHours: 6, NextRun: time.Date(2026, 3, 11, 15, 0, 0, 0, time.UTC)}
	config.Tasks = BuildTaskPipeline(config.Type, config.Features)
	if _, err := f.registry.Create(config); err != nil {
		t.Fatalf("failed to create config: %v", err)
	}

	record := f.runner.Run(context.Background(), config)
	if record.Result != "success" {
		t.Fatalf("expected success, got %s (%s)", record.Result, record.Detail)
	}

	stored, err := f.registry.Get(config.AutomationID)
	if err != nil {
		t.Fatalf("failed to reload config: %v", err)
	}

	gap := stored.Schedule.NextRun.Sub(record.FinishedAt)
	if gap < 6*time.Hour || gap > 6*time.Hour+5*time.Minute {
		t.Errorf("expected next run about 6h after the run, got %s", gap)
	}
	if stored.Schedule.IntervalHours != 6 {
		t.Errorf("expected interval preserved, got %d", stored.Schedule.IntervalHours)
	}
}

func TestRunner_BackupRotation(t *testing.T) {
	f := newRunnerFixture(t)

	// Seed more snapshots than the retention allows.
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		snap := &types.Snapshot{
			SnapshotID:   "snap-seed-" + string(rune('a'+i)),
			DeploymentID: "prod",
			Timestamp:    base.Add(time.Duration(i) * time.Hour),
			Serial:       1,
			Resources: []types.Resource{
				{Type: "aws_instance", Name: "web", Mode: types.ModeManaged,
					Instances: []types.Instance{{Attributes: map[string]interface{}{}}}},
			},
		}
		if _, err := f.store.Save(snap); err != nil {
			t.Fatalf("failed to seed snapshot: %v", err)
		}
	}

	config := activeMaintenanceConfig(t, f.registry, types.AutomationFeatures{
		AutoBackup: types.AutoBackupFeature{Enabled: true, RetentionCount: 2},
	})

	record := f.runner.Run(context.Background(), config)
	if record.Result != "success" {
		t.Fatalf("expected success, got %s (%s)", record.Result, record.Detail)
	}

	refs, err := f.store.List("prod")
	if err != nil {
		t.Fatalf("failed to list snapshots: %v", err)
	}
	if len(refs) != 2 {
		t.Errorf("expected retention of 2 snapshots, got %d", len(refs))
	}
}
