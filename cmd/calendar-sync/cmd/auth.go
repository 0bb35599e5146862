package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/imyu7/calendar-sync/internal/adapter/gcal"
	"github.com/imyu7/calendar-sync/internal/domain"
)

var authCmd = &cobra.Command{
	Use:   "auth [account]",
	Short: "Authorize an account for calendar access",
	Long: `Run the interactive OAuth flow for an account and cache the
resulting token under the configured tokens directory.

Without an argument, every OAuth account that is missing a token is
authorized in turn. Service account credentials need no interactive
step and are skipped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAuth,
}

func init() {
	rootCmd.AddCommand(authCmd)
}

func runAuth(cmd *cobra.Command, args []string) error {
	auth := gcal.NewAuthenticator(gcal.NewFileTokenCache(cfg.TokensDir))

	var accounts []domain.Account
	if len(args) == 1 {
		account, err := cfg.GetAccount(args[0])
		if err != nil {
			return err
		}
		accounts = append(accounts, *account)
	} else {
		for _, a := range cfg.Accounts {
			accounts = append(accounts, a)
		}
	}

	for _, account := range accounts {
		if account.AuthType == domain.AuthServiceAccount {
			fmt.Printf("Skipping %s: service account needs no authorization\n", account.Key)
			continue
		}

		fmt.Printf("Authorizing %s (%s)...\n", account.Key, account.Email)
		if err := auth.Authorize(cmd.Context(), account); err != nil {
			return fmt.Errorf("authorize %s: %w", account.Key, err)
		}
		fmt.Printf("Token saved for %s.\n\n", account.Key)
	}

	return nil
}
