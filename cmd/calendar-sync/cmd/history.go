package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var (
	historyRule  string
	historyLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent sync runs",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyRule, "rule", "", "show only runs of the named rule")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of runs to show")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	if historyRule != "" {
		if _, err := cfg.GetRule(historyRule); err != nil {
			return err
		}
	}

	svc, store, err := newSyncService()
	if err != nil {
		return err
	}
	defer store.Close()
	defer svc.Close()

	records, err := svc.History(historyRule, historyLimit)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Println("No sync runs recorded.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tRULE\tSTATUS\tCREATED\tUPDATED\tDELETED\tSKIPPED\tDURATION")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			r.StartTime.Format(time.DateTime),
			r.RuleID,
			r.Status,
			r.Created,
			r.Updated,
			r.Deleted,
			r.Skipped,
			r.EndTime.Sub(r.StartTime).Round(time.Millisecond),
		)
	}
	return w.Flush()
}
