package main

import (
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/grant-seeker/internal/export"
	"github.com/sells-group/grant-seeker/internal/model"
	"github.com/sells-group/grant-seeker/internal/pipeline"
)

var (
	searchTarget      int
	searchMaxAttempts int
	searchOut         string
	searchFormat      string
	searchDescribe    bool
	searchFilters     model.Filters
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search for funding programs and print ranked results",
	Long:  "Runs discovery, extraction, filtering and ranking for a query, broadening it until --target records are found or --max-attempts variants have been tried.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		format, err := outputFormat(searchFormat, searchOut)
		if err != nil {
			return err
		}

		env, err := initSearchEnv(ctx, cfg, "search")
		if err != nil {
			return err
		}
		defer env.Close()

		orch, tracker := env.newRun()

		query := strings.Join(args, " ")
		if searchDescribe {
			query = pipeline.GenerateQuery(ctx, env.queryGenerator(tracker), query)
			zap.L().Info("generated search query", zap.String("query", query))
		}

		target, attempts := searchTarget, searchMaxAttempts
		if target <= 0 {
			target = cfg.Refine.TargetCount
		}
		if attempts <= 0 {
			attempts = cfg.Refine.MaxAttempts
		}

		result, err := orch.Run(ctx, query, target, attempts, pipeline.WithFilters(searchFilters))
		return finishSearch(cmd.OutOrStdout(), searchOut, format, result, err)
	},
}

// finishSearch writes whatever the run produced, including the partial
// records of a cancelled run, and then reports the run error.
func finishSearch(stdout io.Writer, out string, format export.Format, result *model.Result, runErr error) error {
	if result == nil {
		return eris.Wrap(runErr, "search")
	}
	if runErr != nil {
		zap.L().Warn("search cut short, writing partial results",
			zap.Int("records", len(result.Records)),
			zap.Error(runErr),
		)
	}
	if err := writeResult(stdout, out, format, result.Records); err != nil {
		return err
	}
	if runErr != nil {
		return eris.Wrap(runErr, "search")
	}
	return nil
}

// outputFormat resolves --format, falling back to the --out extension.
func outputFormat(flag, out string) (export.Format, error) {
	if flag != "" {
		return export.ParseFormat(flag)
	}
	if out != "" {
		return export.FormatFromPath(out), nil
	}
	return export.FormatJSON, nil
}

func writeResult(stdout io.Writer, out string, format export.Format, records []model.Record) error {
	if out == "" || out == "-" {
		return export.Write(stdout, format, records)
	}
	if err := export.WriteFile(out, format, records); err != nil {
		return err
	}
	zap.L().Info("results written", zap.String("path", out), zap.Int("records", len(records)))
	return nil
}

func init() {
	f := searchCmd.Flags()
	f.IntVar(&searchTarget, "target", 0, "stop once this many records are found (default from config)")
	f.IntVar(&searchMaxAttempts, "max-attempts", 0, "maximum query variants to try (default from config)")
	f.StringVarP(&searchOut, "out", "o", "", "output file (default stdout)")
	f.StringVar(&searchFormat, "format", "", "output format: json, csv or xlsx (default from --out extension)")
	f.BoolVar(&searchDescribe, "describe", false, "treat the arguments as a project description and generate the query")
	f.StringSliceVar(&searchFilters.DemographicFocus, "demographic", nil, "founder demographic focus, e.g. women,indigenous,youth")
	f.Float64Var(&searchFilters.FundingMin, "funding-min", 0, "minimum funding amount in dollars")
	f.StringSliceVar(&searchFilters.FundingTypes, "funding-type", nil, "funding types to keep, e.g. grant,loan")
	f.StringSliceVar(&searchFilters.GeographicScope, "geography", nil, "provinces or regions to keep")
	rootCmd.AddCommand(searchCmd)
}

