package cmd

import (
	"fmt"
	"time"

	"github.com/abdul-hamid-achik/restflow/packages/history"
	"github.com/spf13/cobra"
)

var historyLimitFlag int

var historyCmd = &cobra.Command{
	Use:   "history <database>",
	Short: "Show recent runs recorded with --history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := history.Open(args[0])
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.RecentRuns(historyLimitFlag)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no runs recorded")
			return nil
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%-6s %-22s %-10s %8s %8s %8s\n", "ID", "STARTED", "DURATION", "PASSED", "FAILED", "ERRORED")
		for _, run := range runs {
			fmt.Fprintf(cmd.OutOrStdout(), "%-6d %-22s %-10s %8d %8d %8d\n",
				run.ID, run.StartedAt.Format("2006-01-02 15:04:05"), run.Duration.Round(time.Millisecond), run.Passed, run.Failed, run.Errored)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimitFlag, "limit", "l", 20, "Number of runs to show")
}
