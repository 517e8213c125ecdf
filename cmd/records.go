package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/bonus-cli/internal/bonus"
	"github.com/sells-group/bonus-cli/internal/model"
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Manage bonus records",
	Long:  "Commands for saving, listing, updating, and deleting agent bonus records.",
}

// -- records save --

var recordsSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Compute and save a bonus record",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		engine, _, st, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		agentID, _ := cmd.Flags().GetString("agent-id")
		name, _ := cmd.Flags().GetString("name")
		email, _ := cmd.Flags().GetString("email")
		sales, _ := cmd.Flags().GetFloat64("sales")
		quality, _ := cmd.Flags().GetFloat64("quality")
		absenteeism, _ := cmd.Flags().GetFloat64("absenteeism")
		at, _ := cmd.Flags().GetString("at")

		rec, err := engine.Save(ctx, bonus.SubmitForm{
			AgentID:     agentID,
			Name:        name,
			Email:       email,
			Sales:       sales,
			Quality:     quality,
			Absenteeism: absenteeism,
			RecordedAt:  at,
		})
		if err != nil {
			return eris.Wrap(err, "records save")
		}

		fmt.Printf("Saved %s: total bono %s\n", rec.Key(), rec.TotalBono.String())
		return nil
	},
}

// -- records list --

var recordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all bonus records",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		engine, _, st, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		records, err := engine.List(ctx)
		if err != nil {
			return eris.Wrap(err, "records list")
		}

		if len(records) == 0 {
			fmt.Fprintln(os.Stderr, "No records found.")
			return nil
		}

		formatRecordsList(os.Stdout, records)
		return nil
	},
}

// -- records show --

var recordsShowCmd = &cobra.Command{
	Use:   "show <agent-id> <timestamp>",
	Short: "Show one bonus record",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		engine, _, st, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		key, err := keyFromArgs(args)
		if err != nil {
			return err
		}

		rec, err := engine.Get(ctx, key)
		if err != nil {
			return eris.Wrap(err, "records show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	},
}

// -- records update --

var recordsUpdateCmd = &cobra.Command{
	Use:   "update <agent-id> <timestamp>",
	Short: "Update a record's metrics and recompute its total",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		engine, _, st, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		key, err := keyFromArgs(args)
		if err != nil {
			return err
		}

		// Only flags that were set participate; unset metrics keep their
		// stored values.
		var patch bonus.MetricsPatch
		if cmd.Flags().Changed("sales") {
			v, _ := cmd.Flags().GetFloat64("sales")
			patch.Sales = &v
		}
		if cmd.Flags().Changed("quality") {
			v, _ := cmd.Flags().GetFloat64("quality")
			patch.Quality = &v
		}
		if cmd.Flags().Changed("absenteeism") {
			v, _ := cmd.Flags().GetFloat64("absenteeism")
			patch.Absenteeism = &v
		}

		rec, err := engine.Update(ctx, key, patch)
		if err != nil {
			return eris.Wrap(err, "records update")
		}

		fmt.Printf("Updated %s: total bono %s\n", rec.Key(), rec.TotalBono.String())
		return nil
	},
}

// -- records delete --

var recordsDeleteCmd = &cobra.Command{
	Use:   "delete <agent-id> <timestamp>",
	Short: "Delete a bonus record",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		engine, _, st, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		key, err := keyFromArgs(args)
		if err != nil {
			return err
		}

		if err := engine.Delete(ctx, key); err != nil {
			return eris.Wrap(err, "records delete")
		}

		fmt.Printf("Deleted %s\n", key)
		return nil
	},
}

func keyFromArgs(args []string) (model.RecordKey, error) {
	ts, err := model.ParseTimestamp(args[1])
	if err != nil {
		return model.RecordKey{}, err
	}
	return model.NewRecordKey(args[0], ts), nil
}

// formatRecordsList writes a tabular list of records to w.
func formatRecordsList(out io.Writer, records []model.BonusRecord) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "AGENT\tNAME\tSALES\tQUALITY\tABSENT\tTOTAL\tRECORDED")
	_, _ = fmt.Fprintln(w, "-----\t----\t-----\t-------\t------\t-----\t--------")

	for _, r := range records {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%g\t%g\t%g\t%s\t%s\n",
			r.AgentID, r.Name,
			r.Metrics.Sales, r.Metrics.Quality, r.Metrics.Absenteeism,
			r.TotalBono.String(),
			r.RecordedAt.Format(time.RFC3339),
		)
	}
	_ = w.Flush()
}

func init() {
	recordsSaveCmd.Flags().String("agent-id", "", "agent identifier (required)")
	recordsSaveCmd.Flags().String("name", "", "agent name")
	recordsSaveCmd.Flags().String("email", "", "agent email")
	recordsSaveCmd.Flags().Float64("sales", 0, "sales metric")
	recordsSaveCmd.Flags().Float64("quality", 0, "quality metric")
	recordsSaveCmd.Flags().Float64("absenteeism", 0, "absenteeism metric (days)")
	recordsSaveCmd.Flags().String("at", "", "record timestamp (default now)")
	_ = recordsSaveCmd.MarkFlagRequired("agent-id")

	recordsUpdateCmd.Flags().Float64("sales", 0, "sales metric")
	recordsUpdateCmd.Flags().Float64("quality", 0, "quality metric")
	recordsUpdateCmd.Flags().Float64("absenteeism", 0, "absenteeism metric (days)")

	recordsCmd.AddCommand(recordsSaveCmd, recordsListCmd, recordsShowCmd, recordsUpdateCmd, recordsDeleteCmd)
	rootCmd.AddCommand(recordsCmd)
}
