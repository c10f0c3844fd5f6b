package types

import (
	"errors"
	"time"
)

// AutomationType identifies the workflow an automation runs.
type AutomationType string

const (
	AutomationScheduled            AutomationType = "Scheduled"
	AutomationContinuousDeployment AutomationType = "ContinuousDeployment"
	AutomationMaintenance          AutomationType = "Maintenance"
	AutomationMonitoring           AutomationType = "Monitoring"
)

// IsValid checks if the AutomationType is one of the closed set.
func (at AutomationType) IsValid() bool {
	switch at {
	case AutomationScheduled, AutomationContinuousDeployment, AutomationMaintenance, AutomationMonitoring:
		return true
	default:
		return false
	}
}

func (at AutomationType) String() string {
	return string(at)
}

// ScheduleKind identifies the recurrence of an automation.
type ScheduleKind string

const (
	ScheduleHourly  ScheduleKind = "Hourly"
	ScheduleDaily   ScheduleKind = "Daily"
	ScheduleWeekly  ScheduleKind = "Weekly"
	ScheduleMonthly ScheduleKind = "Monthly"
	ScheduleCustom  ScheduleKind = "Custom"
)

// IsValid checks if the ScheduleKind is one of the closed set.
func (sk ScheduleKind) IsValid() bool {
	switch sk {
	case ScheduleHourly, ScheduleDaily, ScheduleWeekly, ScheduleMonthly, ScheduleCustom:
		return true
	default:
		return false
	}
}

func (sk ScheduleKind) String() string {
	return string(sk)
}

// AutomationStatus is the lifecycle state of an automation config. Disabled
// is terminal for a given config instance.
type AutomationStatus string

const (
	StatusActive   AutomationStatus = "Active"
	StatusDisabled AutomationStatus = "Disabled"
)

// IsValid checks if the AutomationStatus is one of the closed set.
func (as AutomationStatus) IsValid() bool {
	return as == StatusActive || as == StatusDisabled
}

func (as AutomationStatus) String() string {
	return string(as)
}

// Schedule describes when an automation next fires.
type Schedule struct {
	Kind          ScheduleKind `json:"kind"`
	IntervalHours int          `json:"intervalHours,omitempty"`
	NextRun       time.Time    `json:"nextRun"`
}

// DriftDetectionFeature configures recurring drift checks.
type DriftDetectionFeature struct {
	Enabled       bool `json:"enabled"`
	IntervalHours int  `json:"intervalHours,omitempty"`
}

// AutoBackupFeature configures pre-run snapshots and their retention.
type AutoBackupFeature struct {
	Enabled        bool `json:"enabled"`
	RetentionCount int  `json:"retentionCount,omitempty"`
}

// AutoRollbackFeature configures automatic convergence to the last snapshot.
type AutoRollbackFeature struct {
	Enabled           bool     `json:"enabled"`
	TriggerConditions []string `json:"triggerConditions,omitempty"`
}

// NotificationsFeature configures event notifications. Delivery is an
// external concern; only the endpoint and event selection live here.
type NotificationsFeature struct {
	Enabled    bool     `json:"enabled"`
	Endpoint   string   `json:"endpoint,omitempty"`
	EventTypes []string `json:"eventTypes,omitempty"`
}

// AutomationFeatures groups the optional behaviors of an automation.
type AutomationFeatures struct {
	DriftDetection DriftDetectionFeature `json:"driftDetection"`
	AutoBackup     AutoBackupFeature     `json:"autoBackup"`
	AutoRollback   AutoRollbackFeature   `json:"autoRollback"`
	Notifications  NotificationsFeature  `json:"notifications"`
}

// Task is one step in an automation's ordered pipeline.
type Task struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
	Action  string `json:"action"`
}

// ExecutionRecord is one entry in an automation's append-only history.
type ExecutionRecord struct {
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Result     string    `json:"result"`
	Detail     string    `json:"detail,omitempty"`
}

// AlertThresholds holds the monitoring automation's alerting limits.
type AlertThresholds struct {
	DriftPercentage float64 `json:"driftPercentage"`
	FailureRate     float64 `json:"failureRate"`
	ResponseTime    int     `json:"responseTime"`
}

// RepositoryWatch holds the continuous-deployment automation's poll settings.
type RepositoryWatch struct {
	Enabled             bool `json:"enabled"`
	PollIntervalMinutes int  `json:"pollIntervalMinutes"`
}

// AutomationConfig is one recurring automation attached to a deployment.
type AutomationConfig struct {
	AutomationID    string             `json:"automationId"`
	DeploymentID    string             `json:"deploymentId"`
	Type            AutomationType     `json:"type"`
	Schedule        Schedule           `json:"schedule"`
	Features        AutomationFeatures `json:"features"`
	Tasks           []Task             `json:"tasks"`
	History         []ExecutionRecord  `json:"history"`
	Status          AutomationStatus   `json:"status"`
	Enabled         bool               `json:"enabled"`
	CreatedAt       time.Time          `json:"createdAt"`
	LastModified    time.Time          `json:"lastModified"`
	RepositoryWatch *RepositoryWatch   `json:"repositoryWatch,omitempty"`
	AlertThresholds *AlertThresholds   `json:"alertThresholds,omitempty"`

	// IsHistorical is set on configs loaded from the archive rather than the
	// active directory. Never persisted.
	IsHistorical bool `json:"-"`
}

// Validate checks if the AutomationConfig has all required fields.
func (c *AutomationConfig) Validate() error {
	if c.AutomationID == "" {
		return errors.New("automation ID is required")
	}
	if c.DeploymentID == "" {
		return errors.New("automation deployment ID is required")
	}
	if !c.Type.IsValid() {
		return errors.New("invalid automation type: " + string(c.Type))
	}
	if !c.Schedule.Kind.IsValid() {
		return errors.New("invalid schedule kind: " + string(c.Schedule.Kind))
	}
	if !c.Status.IsValid() {
		return errors.New("invalid automation status: " + string(c.Status))
	}
	if c.CreatedAt.IsZero() {
		return errors.New("automation creation time is required")
	}
	return nil
}

// AutomationSummary provides metadata about a stored automation config.
type AutomationSummary struct {
	AutomationID string           `json:"automationId"`
	DeploymentID string           `json:"deploymentId"`
	Type         AutomationType   `json:"type"`
	Status       AutomationStatus `json:"status"`
	NextRun      time.Time        `json:"nextRun"`
	CreatedAt    time.Time        `json:"createdAt"`
	IsHistorical bool             `json:"isHistorical"`
}
