package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/pario-ai/modelbench/pkg/config"
	"github.com/pario-ai/modelbench/pkg/history"
	"github.com/pario-ai/modelbench/pkg/report"
)

func newHistoryCmd() *cobra.Command {
	var (
		configPath string
		limit      int
		runID      string
		summary    bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past benchmark runs and scores",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			h, err := history.New(cfg.DBPath)
			if err != nil {
				return err
			}
			defer h.Close()

			ctx := context.Background()
			out := cmd.OutOrStdout()
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

			// Scores of one run
			if runID != "" {
				scores, err := h.RunScores(ctx, runID)
				if err != nil {
					return err
				}
				if len(scores) == 0 {
					fmt.Fprintln(out, "No scores found for run.")
					return nil
				}
				fmt.Fprintln(w, "REVIEWER\tMODEL\tTASK\tSCORE\tCRITIQUE")
				for _, s := range scores {
					score := fmt.Sprintf("%d", s.Score)
					switch {
					case s.Unavailable:
						score = "N/A"
					case s.ParseFailed:
						score += " (unparsed)"
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s.ReviewerID, s.ModelID, report.TaskLabel(s.TaskID), score, oneLine(s.Critique, 60))
				}
				return w.Flush()
			}

			// Averages across runs
			if summary {
				rows, err := h.Summary(ctx)
				if err != nil {
					return err
				}
				if len(rows) == 0 {
					fmt.Fprintln(out, "No scores recorded yet.")
					return nil
				}
				fmt.Fprintln(w, "REVIEWER\tMODEL\tTASK\tRUNS\tAVERAGE")
				for _, r := range rows {
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.2f\n", r.ReviewerID, r.ModelID, report.TaskLabel(r.TaskID), r.Runs, r.Average)
				}
				return w.Flush()
			}

			runs, err := h.ListRuns(ctx, limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded yet.")
				return nil
			}
			fmt.Fprintln(w, "RUN ID\tSTARTED\tDURATION\tMODELS\tREVIEWERS\tREPORT")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
					r.ID, r.StartedAt.Local().Format("2006-01-02T15:04:05"), r.FinishedAt.Sub(r.StartedAt).Round(time.Second), r.Models, r.Reviewers, r.MarkdownPath)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config file")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to list (0 for all)")
	cmd.Flags().StringVar(&runID, "run", "", "show the scores of one run")
	cmd.Flags().BoolVar(&summary, "summary", false, "average scores per reviewer, model and task across runs")
	return cmd
}

func oneLine(s string, n int) string {
	r := []rune(s)
	for i, c := range r {
		if c == '\n' || c == '\r' {
			r[i] = ' '
		}
	}
	if len(r) > n {
		return string(r[:n-1]) + "…"
	}
	return string(r)
}
