package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jcrowe85/tiktok-analytics-sub000/internal/api"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/queue"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <content-id>",
		Short: "Show everything known about one content item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(service *api.Service) error {
				report, err := service.Status(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if report.Item == nil && report.Job == nil {
					fmt.Fprintf(out, "No record of content %s\n", args[0])
					return nil
				}
				for _, line := range renderStatusReport(report, shouldColorize(out)) {
					fmt.Fprintln(out, line)
				}
				return nil
			})
		},
	}
}

func renderStatusReport(report api.StatusReport, colorize bool) []string {
	var lines []string

	if report.Item != nil {
		lines = append(lines, renderSectionHeader("Content", colorize)...)
		lines = append(lines, renderStatusLine("ID", statusInfo, report.Item.ID, colorize))
		lines = append(lines, renderStatusLine("Kind", statusInfo, string(report.Item.Kind), colorize))
		lines = append(lines, renderStatusLine("Status", statusKindFor(report.Item.Status), string(report.Item.Status), colorize))
		if report.Item.ShareURL != "" {
			lines = append(lines, renderStatusLine("Share URL", statusInfo, report.Item.ShareURL, colorize))
		}
		if report.Item.Caption != "" {
			lines = append(lines, renderStatusLine("Caption", statusInfo, truncate(report.Item.Caption, 80), colorize))
		}
	}

	if report.Job != nil {
		lines = append(lines, renderSectionHeader("Job", colorize)...)
		lines = append(lines, renderStatusLine("Job ID", statusInfo, fmt.Sprintf("%d", report.Job.ID), colorize))
		lines = append(lines, renderStatusLine("Attempts", statusInfo,
			fmt.Sprintf("%d/%d", report.Job.Attempts, report.Job.MaxAttempts), colorize))
		if report.Job.ProgressMessage != "" {
			lines = append(lines, renderStatusLine("Progress", statusInfo,
				fmt.Sprintf("%.0f%% %s", report.Job.ProgressPercent, report.Job.ProgressMessage), colorize))
		}
		if report.Job.ErrorMessage != "" {
			lines = append(lines, renderStatusLine("Last error", statusError, report.Job.ErrorMessage, colorize))
		}
	}

	if report.Result != nil && report.Result.Status == queue.StatusCompleted {
		lines = append(lines, renderSectionHeader("Scores", colorize)...)
		lines = append(lines, renderStatusLine("Aggregate", statusOK,
			fmt.Sprintf("%.1f/100", report.Result.AggregateScore), colorize))

		rows := make([][]string, 0, len(report.Result.CategoryScores))
		for _, category := range sortedKeys(report.Result.CategoryScores) {
			rows = append(rows, []string{category, fmt.Sprintf("%.1f", report.Result.CategoryScores[category])})
		}
		if len(rows) > 0 {
			lines = append(lines, renderTable([]string{"Category", "Score"}, rows, 1))
		}
		if language := report.Result.Meta.DetectedLanguage; language != "" {
			lines = append(lines, renderStatusLine("Language", statusInfo, language, colorize))
		}
		if len(report.Result.Suggestions) > 0 {
			lines = append(lines, renderSectionHeader("Suggestions", colorize)...)
			for _, suggestion := range report.Result.Suggestions {
				lines = append(lines, statusIndent+"- "+suggestion)
			}
		}
	}

	return lines
}

func statusKindFor(status queue.Status) statusKind {
	switch status {
	case queue.StatusCompleted:
		return statusOK
	case queue.StatusFailed:
		return statusError
	case queue.StatusProcessing:
		return statusWarn
	default:
		return statusInfo
	}
}

func sortedKeys(scores map[string]float64) []string {
	keys := make([]string, 0, len(scores))
	for key := range scores {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	if len(value) <= limit {
		return value
	}
	return value[:limit-3] + "..."
}
