package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pario-ai/modelbench/pkg/report"
)

func newRenderCmd() *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "render <input.md> [output.html]",
		Short: "Convert a Markdown report to a standalone HTML page",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := args[0]
			dst := strings.TrimSuffix(src, filepath.Ext(src)) + ".html"
			if len(args) == 2 {
				dst = args[1]
			}

			data, err := os.ReadFile(src)
			if err != nil {
				return fmt.Errorf("read markdown: %w", err)
			}
			if title == "" {
				title = report.DefaultTitle
			}
			page, err := report.HTML(string(data), title)
			if err != nil {
				return err
			}
			if err := os.WriteFile(dst, page, 0o644); err != nil {
				return fmt.Errorf("write html: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", dst)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "page title")
	return cmd
}
