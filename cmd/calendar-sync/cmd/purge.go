package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var purgeYes bool

var purgeCmd = &cobra.Command{
	Use:   "purge <rule>",
	Short: "Delete every destination event a rule has created",
	Long: `Delete every destination event a rule has created and clear its
mapping state. The next sync run rebuilds the copies from scratch.

This is destructive: it removes real events from the destination
calendar. A confirmation prompt is shown unless --yes is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runPurge,
}

func init() {
	purgeCmd.Flags().BoolVarP(&purgeYes, "yes", "y", false, "skip the confirmation prompt")
	rootCmd.AddCommand(purgeCmd)
}

func runPurge(cmd *cobra.Command, args []string) error {
	ruleName := args[0]

	rule, err := cfg.GetRule(ruleName)
	if err != nil {
		return err
	}

	if !purgeYes {
		fmt.Printf("This deletes every event rule %q created in account %q. Continue? [y/N] ",
			rule.ID(), rule.Destination)
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		answer = strings.ToLower(strings.TrimSpace(answer))
		if answer != "y" && answer != "yes" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	svc, store, err := newSyncService()
	if err != nil {
		return err
	}
	defer store.Close()
	defer svc.Close()

	deleted, err := svc.Purge(cmd.Context(), ruleName)
	if err != nil {
		return err
	}

	fmt.Printf("Purged %d event(s) for rule %s.\n", deleted, rule.ID())
	return nil
}
