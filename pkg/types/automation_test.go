package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validAutomationConfig() *AutomationConfig {
	return &AutomationConfig{
		AutomationID: "auto-20260311100000-bbbb2222",
		DeploymentID: "prod",
		Type:         AutomationMaintenance,
		Schedule:     Schedule{Kind: ScheduleDaily, NextRun: time.Date(2026, 3, 12, 2, 0, 0, 0, time.UTC)},
		Status:       StatusActive,
		Enabled:      true,
		CreatedAt:    time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC),
		LastModified: time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC),
	}
}

func TestAutomationConfigValidate(t *testing.T) {
	assert.NoError(t, validAutomationConfig().Validate())
}

func TestAutomationConfigValidate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AutomationConfig)
	}{
		{"missing automation ID", func(c *AutomationConfig) { c.AutomationID = "" }},
		{"missing deployment ID", func(c *AutomationConfig) { c.DeploymentID = "" }},
		{"invalid type", func(c *AutomationConfig) { c.Type = "Cowboy" }},
		{"invalid schedule kind", func(c *AutomationConfig) { c.Schedule.Kind = "Fortnightly" }},
		{"invalid status", func(c *AutomationConfig) { c.Status = "Paused" }},
		{"zero creation time", func(c *AutomationConfig) { c.CreatedAt = time.Time{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validAutomationConfig()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestAutomationTypeIsValid(t *testing.T) {
	for _, at := range []AutomationType{AutomationScheduled, AutomationContinuousDeployment, AutomationMaintenance, AutomationMonitoring} {
		assert.True(t, at.IsValid(), at.String())
	}
	assert.False(t, AutomationType("Cowboy").IsValid())
	assert.False(t, AutomationType("").IsValid())
}

func TestScheduleKindIsValid(t *testing.T) {
	for _, sk := range []ScheduleKind{ScheduleHourly, ScheduleDaily, ScheduleWeekly, ScheduleMonthly, ScheduleCustom} {
		assert.True(t, sk.IsValid(), sk.String())
	}
	assert.False(t, ScheduleKind("Fortnightly").IsValid())
}

func TestComparisonSummary(t *testing.T) {
	s := ComparisonSummary{Added: 1, Removed: 2, Modified: 3, Unchanged: 4}
	assert.Equal(t, 10, s.Total())
	assert.True(t, s.HasDrift())

	clean := ComparisonSummary{Unchanged: 7}
	assert.False(t, clean.HasDrift())
}
