package automation

import "github.com/huolto/huolto/pkg/types"

// TriggerScheduler registers recurring OS-level triggers for automations.
// Registration failure is never fatal to the automation itself.
type TriggerScheduler interface {
	Register(config *types.AutomationConfig) error
	Unregister(automationID string) error
}

// NoopTriggerScheduler is the default trigger scheduler on platforms without
// one; the engine's own run-due loop drives executions instead.
type NoopTriggerScheduler struct{}

func (NoopTriggerScheduler) Register(*types.AutomationConfig) error { return nil }

func (NoopTriggerScheduler) Unregister(string) error { return nil }
