package cmd

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/imyu7/calendar-sync/internal/domain"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List configured accounts and rules",
	RunE:  runAccounts,
}

func init() {
	rootCmd.AddCommand(accountsCmd)
}

func runAccounts(cmd *cobra.Command, args []string) error {
	accounts := make([]domain.Account, 0, len(cfg.Accounts))
	for _, a := range cfg.Accounts {
		accounts = append(accounts, a)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Key < accounts[j].Key })

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ACCOUNT\tEMAIL\tCALENDAR\tAUTH")
	for _, a := range accounts {
		auth := string(a.AuthType)
		if auth == "" {
			auth = string(domain.AuthOAuth)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.Key, a.Email, a.Calendar(), auth)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Println()
	w = tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RULE\tSOURCE\tDESTINATION\tENABLED\tWINDOW")
	for _, r := range cfg.Rules {
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%dd\n",
			r.ID(), r.Source, r.Destination, r.Enabled, cfg.RuleWindow(r))
	}
	return w.Flush()
}
