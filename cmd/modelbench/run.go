package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pario-ai/modelbench/pkg/bench"
	"github.com/pario-ai/modelbench/pkg/config"
	"github.com/pario-ai/modelbench/pkg/report"
)

func newRunCmd() *cobra.Command {
	var (
		configPath  string
		inputPath   string
		verbose     bool
		concurrency int
	)

	cmd := &cobra.Command{
		Use:          "run",
		Short:        "Run every candidate model on every task and score the outputs",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(verbose)

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("concurrency") {
				cfg.Concurrency = concurrency
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			input, err := os.ReadFile(inputPath)
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}

			b, err := bench.New(cfg, bench.WithLogger(logger))
			if err != nil {
				return err
			}
			defer func() { _ = b.Close() }()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			res, err := b.Run(ctx, string(input))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "REVIEWER\tTASK\tMEAN\tMAX\tMIN\tSCORED")
			for _, st := range res.Stats {
				if st.Count == 0 {
					fmt.Fprintf(w, "%s\t%s\t-\t-\t-\t0\n", st.ReviewerID, report.TaskLabel(st.TaskID))
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%.*f\t%d\t%d\t%d\n", st.ReviewerID, report.TaskLabel(st.TaskID), cfg.Report.Precision, st.Mean, st.Max, st.Min, st.Count)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Fprintf(out, "\nRun:      %s\nMarkdown: %s\nHTML:     %s\n", res.RunID, res.Artifacts.Markdown, res.Artifacts.HTML)
			for _, c := range res.Artifacts.Charts {
				fmt.Fprintf(out, "Chart:    %s\n", c)
			}

			if verbose {
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "\nPROVIDER\tLIVE CALLS\tREMAINING")
				for _, s := range res.Budget {
					remaining := "unlimited"
					if s.Remaining >= 0 {
						remaining = fmt.Sprintf("%d", s.Remaining)
					}
					fmt.Fprintf(w, "%s\t%d\t%s\n", s.Provider, s.Calls, remaining)
				}
				return w.Flush()
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config file")
	cmd.Flags().StringVarP(&inputPath, "input", "i", "input.txt", "path to the text to evaluate")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	cmd.Flags().IntVar(&concurrency, "concurrency", 1, "number of concurrent model calls (overrides config)")
	return cmd
}

func newValidateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and list the reviewers that would run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Candidate models: %d\n", len(cfg.Models))
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "REVIEWER\tPROVIDER\tMODEL\tSTATUS")
			for _, r := range cfg.Reviewers {
				status := "enabled"
				if cfg.APIKey(r.Provider) == "" {
					status = "disabled (no API key)"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.ReviewerID(), r.Provider, r.Model, status)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config file")
	return cmd
}
