package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the search and extraction cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cache entry",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("cache"); err != nil {
			return err
		}
		store, err := initCache(cmd.Context(), cfg.Cache)
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck

		n, err := store.Clear(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d entries\n", n)
		return nil
	},
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove expired and unreadable cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("cache"); err != nil {
			return err
		}
		store, err := initCache(cmd.Context(), cfg.Cache)
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck

		n, err := store.Prune(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "pruned %d entries\n", n)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd, cachePruneCmd)
	rootCmd.AddCommand(cacheCmd)
}
