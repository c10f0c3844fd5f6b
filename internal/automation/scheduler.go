package automation

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/huolto/huolto/internal/deployment"
	"github.com/huolto/huolto/internal/errors"
	"github.com/huolto/huolto/internal/logger"
	"github.com/huolto/huolto/pkg/types"
)

// Fixed pipeline parameters. The poll interval applies to the
// continuous-deployment repository watch; the thresholds to monitoring
// automations.
const repositoryPollIntervalMinutes = 5

var defaultAlertThresholds = types.AlertThresholds{
	DriftPercentage: 10,
	FailureRate:     5,
	ResponseTime:    30,
}

// NextRun computes the next firing instant for a schedule kind. The result
// is always strictly after now.
//
// Daily, Weekly and Monthly fire at 02:00 local time. Weekly fires on the
// next Sunday after now's calendar date; run on a Sunday that means seven
// days out, not today.
func NextRun(kind types.ScheduleKind, now time.Time) time.Time {
	switch kind {
	case types.ScheduleHourly:
		return now.Add(time.Hour)
	case types.ScheduleDaily:
		return time.Date(now.Year(), now.Month(), now.Day()+1, 2, 0, 0, 0, now.Location())
	case types.ScheduleWeekly:
		days := (7 - int(now.Weekday())) % 7
		if days == 0 {
			days = 7
		}
		return time.Date(now.Year(), now.Month(), now.Day()+days, 2, 0, 0, 0, now.Location())
	case types.ScheduleMonthly:
		return time.Date(now.Year(), now.Month()+1, 1, 2, 0, 0, 0, now.Location())
	default:
		return now.Add(24 * time.Hour)
	}
}

// nextRunFor computes the next firing instant for a schedule, honoring a
// configured Custom interval.
func nextRunFor(schedule types.Schedule, now time.Time) time.Time {
	if schedule.Kind == types.ScheduleCustom && schedule.IntervalHours > 0 {
		return now.Add(time.Duration(schedule.IntervalHours) * time.Hour)
	}
	return NextRun(schedule.Kind, now)
}

// BuildTaskPipeline assembles the ordered task list for an automation type.
func BuildTaskPipeline(automationType types.AutomationType, features types.AutomationFeatures) []types.Task {
	switch automationType {
	case types.AutomationScheduled:
		return []types.Task{
			{Name: "PreDeploymentBackup", Enabled: features.AutoBackup.Enabled, Action: ActionBackup},
			{Name: "DeploymentExecution", Enabled: true, Action: ActionDeploy},
			{Name: "PostDeploymentValidation", Enabled: true, Action: ActionDriftCheck},
		}
	case types.AutomationContinuousDeployment:
		return []types.Task{
			{Name: "RepositorySync", Enabled: true, Action: ActionRepositorySync},
			{Name: "ConfigurationValidation", Enabled: true, Action: ActionValidateConfig},
			{Name: "AutomaticDeployment", Enabled: true, Action: ActionDeploy},
		}
	case types.AutomationMaintenance:
		return []types.Task{
			{Name: "DriftDetection", Enabled: features.DriftDetection.Enabled, Action: ActionDriftCheck},
			{Name: "BackupRotation", Enabled: features.AutoBackup.Enabled, Action: ActionBackupRotation},
			{Name: "HealthCheck", Enabled: true, Action: ActionHealthCheck},
			{Name: "UpdateCheck", Enabled: true, Action: ActionUpdateCheck},
		}
	case types.AutomationMonitoring:
		return []types.Task{
			{Name: "ContinuousDriftMonitoring", Enabled: features.DriftDetection.Enabled, Action: ActionDriftCheck},
			{Name: "PerformanceMonitoring", Enabled: true, Action: ActionHealthCheck},
			{Name: "AlertProcessing", Enabled: features.Notifications.Enabled, Action: ActionAlertProcessing},
		}
	default:
		return nil
	}
}

// Scheduler starts and stops automations, delegating persistence to the
// registry and platform trigger registration to the trigger scheduler.
type Scheduler struct {
	registry    *Registry
	deployments deployment.Registry
	triggers    TriggerScheduler
	log         logger.Logger
	now         func() time.Time
}

// NewScheduler creates an automation scheduler.
func NewScheduler(registry *Registry, deployments deployment.Registry, triggers TriggerScheduler, log logger.Logger) *Scheduler {
	if triggers == nil {
		triggers = NoopTriggerScheduler{}
	}
	return &Scheduler{
		registry:    registry,
		deployments: deployments,
		triggers:    triggers,
		log:         log,
		now:         time.Now,
	}
}

// WithClock overrides the scheduler's clock. Used in tests.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// NewAutomationID generates a time-ordered automation identifier with a
// random suffix.
func NewAutomationID(t time.Time) string {
	suffix := strings.Split(uuid.NewString(), "-")[0]
	return "auto-" + t.UTC().Format("20060102150405") + "-" + suffix
}

// Start validates the deployment, computes the next run, builds the task
// pipeline and persists the config. Re-starting a deployment+type that
// already has an Active config updates it in place, preserving its identity
// and history. Platform trigger registration is best-effort.
func (s *Scheduler) Start(deploymentID string, automationType types.AutomationType, schedule types.Schedule, features types.AutomationFeatures) (*types.AutomationConfig, error) {
	if !automationType.IsValid() {
		return nil, errors.Validation("invalid automation type: %s", automationType)
	}
	if !schedule.Kind.IsValid() {
		return nil, errors.Validation("invalid schedule kind: %s", schedule.Kind)
	}

	if _, err := s.deployments.Resolve(deploymentID); err != nil {
		return nil, err
	}

	now := s.now()
	config := &types.AutomationConfig{
		AutomationID: NewAutomationID(now),
		DeploymentID: deploymentID,
		Type:         automationType,
		Schedule:     schedule,
		Features:     features,
		Tasks:        BuildTaskPipeline(automationType, features),
		Status:       types.StatusActive,
		Enabled:      true,
		CreatedAt:    now.UTC(),
		LastModified: now.UTC(),
	}

	config.Schedule.NextRun = nextRunFor(config.Schedule, now)

	switch automationType {
	case types.AutomationContinuousDeployment:
		config.RepositoryWatch = &types.RepositoryWatch{
			Enabled:             true,
			PollIntervalMinutes: repositoryPollIntervalMinutes,
		}
	case types.AutomationMonitoring:
		thresholds := defaultAlertThresholds
		config.AlertThresholds = &thresholds
	}

	existing, err := s.activeConfig(deploymentID)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Status == types.StatusActive && existing.Type == automationType {
		// Update in place: keep identity and history, replace behavior.
		config.AutomationID = existing.AutomationID
		config.CreatedAt = existing.CreatedAt
		config.History = existing.History
		if err := s.registry.Update(config); err != nil {
			return nil, err
		}
	} else {
		if _, err := s.registry.Create(config); err != nil {
			return nil, err
		}
	}

	if err := s.triggers.Register(config); err != nil {
		s.log.WithField("automation", config.AutomationID).Warn("failed to register platform trigger: " + err.Error())
	}

	s.log.WithFields(map[string]interface{}{
		"automation": config.AutomationID,
		"deployment": deploymentID,
		"type":       automationType.String(),
		"next_run":   config.Schedule.NextRun,
	}).Info("automation started")

	return config, nil
}

// Stop disables the automation. Trigger unregistration is best-effort; its
// failure is logged and does not abort the stop.
func (s *Scheduler) Stop(automationID string, removeConfiguration, unregisterTriggers bool) error {
	if unregisterTriggers {
		if err := s.triggers.Unregister(automationID); err != nil {
			s.log.WithField("automation", automationID).Warn("failed to unregister platform trigger: " + err.Error())
		}
	}

	if err := s.registry.Disable(automationID, removeConfiguration); err != nil {
		return err
	}

	s.log.WithField("automation", automationID).Info("automation stopped")
	return nil
}

func (s *Scheduler) activeConfig(deploymentID string) (*types.AutomationConfig, error) {
	config, err := s.registry.loadActive(deploymentID)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return config, nil
}
