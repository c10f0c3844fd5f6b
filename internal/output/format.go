// Package output renders engine results for terminals. Formatting is a
// presentation concern layered outside the pure component contracts.
package output

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/huolto/huolto/pkg/types"
)

// FormatComparison renders a comparison result as a human-readable table:
// summary counts followed by per-resource change lines.
func FormatComparison(result *types.ComparisonResult, noColor bool) string {
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	if noColor {
		plain := fmt.Sprint
		green, yellow, red = plain, plain, plain
	}

	var sb strings.Builder

	sb.WriteString("Snapshot Comparison\n")
	sb.WriteString("===================\n")
	sb.WriteString(fmt.Sprintf("Reference:  %s (%s)\n", result.ReferenceID, result.ReferenceTime.Format("2006-01-02 15:04:05")))
	sb.WriteString(fmt.Sprintf("Difference: %s (%s)\n\n", result.DifferenceID, result.DifferenceTime.Format("2006-01-02 15:04:05")))

	sb.WriteString("Summary:\n")
	sb.WriteString(fmt.Sprintf("  Added:     %d\n", result.Summary.Added))
	sb.WriteString(fmt.Sprintf("  Removed:   %d\n", result.Summary.Removed))
	sb.WriteString(fmt.Sprintf("  Modified:  %d\n", result.Summary.Modified))
	if result.Summary.Unchanged > 0 {
		sb.WriteString(fmt.Sprintf("  Unchanged: %d\n", result.Summary.Unchanged))
	}
	sb.WriteString("\n")

	if !result.Summary.HasDrift() {
		sb.WriteString("No changes detected\n")
		return sb.String()
	}

	if len(result.Changes.Added) > 0 {
		sb.WriteString("Added:\n")
		for _, ref := range result.Changes.Added {
			sb.WriteString(fmt.Sprintf("  %s %s\n", green("+"), ref.Key))
		}
		sb.WriteString("\n")
	}

	if len(result.Changes.Modified) > 0 {
		sb.WriteString("Modified:\n")
		for _, mod := range result.Changes.Modified {
			sb.WriteString(fmt.Sprintf("  %s %s\n", yellow("~"), mod.Key))
			for _, fc := range mod.FieldChanges {
				sb.WriteString(fmt.Sprintf("      %s: %v -> %v\n", fc.Property, fc.OldValue, fc.NewValue))
			}
		}
		sb.WriteString("\n")
	}

	if len(result.Changes.Removed) > 0 {
		sb.WriteString("Removed:\n")
		for _, ref := range result.Changes.Removed {
			sb.WriteString(fmt.Sprintf("  %s %s\n", red("-"), ref.Key))
		}
	}

	return sb.String()
}

// FormatSnapshotList renders snapshot references as an aligned table.
func FormatSnapshotList(refs []types.SnapshotRef) string {
	if len(refs) == 0 {
		return "No snapshots stored\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-32s %-20s %-20s %10s\n", "SNAPSHOT", "DEPLOYMENT", "TIMESTAMP", "RESOURCES"))
	for _, ref := range refs {
		sb.WriteString(fmt.Sprintf("%-32s %-20s %-20s %10d\n",
			ref.SnapshotID, ref.DeploymentID, ref.Timestamp.Format("2006-01-02 15:04:05"), ref.ResourceCount))
	}
	return sb.String()
}

// FormatAutomationList renders automation summaries as an aligned table.
func FormatAutomationList(summaries []types.AutomationSummary) string {
	if len(summaries) == 0 {
		return "No automations configured\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-30s %-20s %-22s %-10s %-20s\n", "AUTOMATION", "DEPLOYMENT", "TYPE", "STATUS", "NEXT RUN"))
	for _, s := range summaries {
		status := string(s.Status)
		if s.IsHistorical {
			status += " (archived)"
		}
		sb.WriteString(fmt.Sprintf("%-30s %-20s %-22s %-10s %-20s\n",
			s.AutomationID, s.DeploymentID, s.Type, status, s.NextRun.Format("2006-01-02 15:04:05")))
	}
	return sb.String()
}

// FormatJSON renders any result as indented JSON, the export format.
func FormatJSON(v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data) + "\n", nil
}
