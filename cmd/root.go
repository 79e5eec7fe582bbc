package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/grant-seeker/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "grant-seeker",
	Short: "Find funding programs that fit a project",
	Long:  "Searches the web for grants, loans and tax credits, extracts structured records from each program page, filters and ranks them, and broadens the query until enough results are found.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
