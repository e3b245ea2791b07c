package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jcrowe85/tiktok-analytics-sub000/internal/config"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/deps"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/services/llm"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var checkLLM bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check external tool availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			statuses := deps.CheckBinaries(deps.Requirements(cfg))
			rows := make([][]string, 0, len(statuses)+1)
			missing := 0
			for _, status := range statuses {
				state := "ok"
				if !status.Available {
					state = status.Detail
					if !status.Optional {
						missing++
					}
				}
				rows = append(rows, []string{status.Name, status.Command, status.Description, state})
			}

			if checkLLM {
				state := "ok"
				if err := scoringHealthCheck(cmd, cfg); err != nil {
					state = err.Error()
					missing++
				}
				rows = append(rows, []string{"Scoring LLM", cfg.ScoringLLM().Model, "Category scoring", state})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"Dependency", "Command", "Purpose", "Status"}, rows))
			if missing > 0 {
				return fmt.Errorf("%d required dependencies missing", missing)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&checkLLM, "llm", false, "Also ping the scoring LLM endpoint")
	return cmd
}

func scoringHealthCheck(cmd *cobra.Command, cfg *config.Config) error {
	src := cfg.ScoringLLM()
	client := llm.NewClient(llm.Config{
		APIKey:         src.APIKey,
		BaseURL:        src.BaseURL,
		Model:          src.Model,
		Referer:        src.Referer,
		Title:          src.Title,
		TimeoutSeconds: src.TimeoutSeconds,
	})
	return client.HealthCheck(cmd.Context())
}
