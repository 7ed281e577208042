package status

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatOptions controls output formatting.
type FormatOptions struct {
	NoColor  bool
	AllSteps bool
}

// FormatSummary formats a checkpoint summary for the terminal.
func FormatSummary(summary *Summary, opts FormatOptions) string {
	var b strings.Builder

	b.WriteString(formatHeader(summary, opts))
	if !summary.Exists {
		return b.String()
	}
	b.WriteString("\n\n")

	b.WriteString(formatEntities(summary))
	b.WriteString("\n")

	b.WriteString(formatProgress(summary, opts))
	b.WriteString("\n")

	if opts.AllSteps {
		b.WriteString("\n")
		b.WriteString(formatSteps(summary, opts))
	}

	return b.String()
}

// FormatJSON renders the summary as indented JSON.
func FormatJSON(summary *Summary) (string, error) {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling status: %w", err)
	}
	return string(data) + "\n", nil
}

func formatHeader(summary *Summary, opts FormatOptions) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Checkpoint: %s\n", summary.Path))
	b.WriteString(fmt.Sprintf("Env:        %s\n", summary.Env))
	if !summary.Exists {
		b.WriteString("Status:     no checkpoint, the next run starts fresh\n")
		return b.String()
	}
	b.WriteString(fmt.Sprintf("Status:     %s%s %s%s",
		getStateColor(summary.State, opts.NoColor), getStateIcon(summary.State),
		summary.State, resetColor(opts.NoColor)))
	return b.String()
}

func formatEntities(summary *Summary) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Creator:    %s\n", orDash(summary.CreatorID)))
	b.WriteString(fmt.Sprintf("User:       %s\n", orDash(summary.UserID)))
	b.WriteString(fmt.Sprintf("Pool:       %s\n", orDash(summary.PoolID)))
	b.WriteString(fmt.Sprintf("Stream:     %s\n", orDash(summary.StreamID)))
	b.WriteString(fmt.Sprintf("Drops:      %d\n", len(summary.Drops)))
	for _, d := range summary.Drops {
		b.WriteString(fmt.Sprintf("  - %s (placement: %s)\n", d.DropID, orDash(d.PlacementID)))
	}
	return b.String()
}

func formatProgress(summary *Summary, opts FormatOptions) string {
	var b strings.Builder

	stats := summary.StepStats
	var percentage int
	if stats.Total > 0 {
		percentage = (stats.Done * 100) / stats.Total
	}

	// Progress bar (24 characters wide)
	barWidth := 24
	filled := (percentage * barWidth) / 100
	progressBar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	b.WriteString(fmt.Sprintf("Progress:   %s %d%% (%d/%d steps)\n",
		progressBar, percentage, stats.Done, stats.Total))
	b.WriteString(fmt.Sprintf("Last step:  %s\n", summary.LastStep))
	if summary.NextStep != "" {
		b.WriteString(fmt.Sprintf("Next step:  %s%s%s\n",
			getColor("yellow", opts.NoColor), summary.NextStep, resetColor(opts.NoColor)))
	} else {
		b.WriteString("Next step:  none, all steps done\n")
	}
	return b.String()
}

func formatSteps(summary *Summary, opts FormatOptions) string {
	var b strings.Builder

	b.WriteString("Steps:\n")
	for _, s := range summary.Steps {
		if s.Pending {
			b.WriteString(fmt.Sprintf("  %s○ %s%s\n", getColor("gray", opts.NoColor), s.Tag, resetColor(opts.NoColor)))
		} else {
			b.WriteString(fmt.Sprintf("  %s✓ %s%s\n", getColor("green", opts.NoColor), s.Tag, resetColor(opts.NoColor)))
		}
	}
	return b.String()
}

// Formatting helpers

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func getStateIcon(state State) string {
	switch state {
	case StateInProgress:
		return "●"
	case StateComplete:
		return "✓"
	case StateNotStarted:
		return "○"
	default:
		return "?"
	}
}

func getStateColor(state State, noColor bool) string {
	if noColor {
		return ""
	}

	switch state {
	case StateInProgress:
		return "\033[33m" // Yellow
	case StateComplete:
		return "\033[32m" // Green
	case StateNotStarted:
		return "\033[90m" // Gray
	default:
		return ""
	}
}

func getColor(name string, noColor bool) string {
	if noColor {
		return ""
	}

	switch name {
	case "green":
		return "\033[32m"
	case "yellow":
		return "\033[33m"
	case "gray":
		return "\033[90m"
	default:
		return ""
	}
}

func resetColor(noColor bool) string {
	if noColor {
		return ""
	}
	return "\033[0m"
}
