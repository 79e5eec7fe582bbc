package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sells-group/grant-seeker/internal/cost"
	"github.com/sells-group/grant-seeker/internal/pipeline"
)

var queryCmd = &cobra.Command{
	Use:   "query [description]",
	Short: "Turn a project description into a search query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("query"); err != nil {
			return err
		}
		completer, err := initCompleter(cfg)
		if err != nil {
			return err
		}

		tracker := cost.NewTracker(cost.NewCalculator(cfg.Pricing))
		env := &searchEnv{cfg: cfg, completer: completer}
		q := pipeline.GenerateQuery(cmd.Context(), env.queryGenerator(tracker), strings.Join(args, " "))

		fmt.Fprintln(cmd.OutOrStdout(), q)
		tracker.Log()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)
}
