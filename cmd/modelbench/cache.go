package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pario-ai/modelbench/pkg/cache"
	"github.com/pario-ai/modelbench/pkg/config"
)

func newCacheCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the response cache",
	}

	open := func() (cache.Store, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		c, err := cache.Open(cfg, newLogger(false))
		if err != nil {
			return nil, err
		}
		if c == nil {
			return nil, fmt.Errorf("cache is disabled in %s", configPath)
		}
		return c, nil
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := open()
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			stats, err := c.Stats()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Entries: %d\n", stats.Entries)
			return nil
		},
	}

	var expiredOnly bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := open()
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			if err := c.Clear(expiredOnly); err != nil {
				return err
			}
			if expiredOnly {
				fmt.Fprintln(cmd.OutOrStdout(), "Expired cache entries cleared.")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "All cache entries cleared.")
			}
			return nil
		},
	}
	clearCmd.Flags().BoolVar(&expiredOnly, "expired", false, "only clear expired and unreadable entries")

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config file")
	cmd.AddCommand(statsCmd, clearCmd)
	return cmd
}
