package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/bonus-cli/internal/model"
)

var reportCmd = &cobra.Command{
	Use:   "report <agent-id>",
	Short: "Build an individual performance report",
	Long:  "Averages an agent's metrics over a period, compares them against the baseline targets, and decides bonus eligibility.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		_, agg, st, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		startRaw, _ := cmd.Flags().GetString("start")
		endRaw, _ := cmd.Flags().GetString("end")

		start, err := optionalTimestamp(startRaw)
		if err != nil {
			return err
		}
		end, err := optionalTimestamp(endRaw)
		if err != nil {
			return err
		}

		rep, err := agg.Individual(ctx, args[0], start, end)
		if err != nil {
			return eris.Wrap(err, "report")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	},
}

var kpisCmd = &cobra.Command{
	Use:   "kpis",
	Short: "Show company-wide KPIs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		_, agg, st, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		snap, err := agg.KPIs(ctx)
		if err != nil {
			return eris.Wrap(err, "kpis")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	},
}

func optionalTimestamp(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	ts, err := model.ParseTimestamp(raw)
	if err != nil {
		return nil, err
	}
	return &ts, nil
}

func init() {
	reportCmd.Flags().String("start", "", "period start date (inclusive)")
	reportCmd.Flags().String("end", "", "period end date (inclusive of its full day)")

	rootCmd.AddCommand(reportCmd, kpisCmd)
}
