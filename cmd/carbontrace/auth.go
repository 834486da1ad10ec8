package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tracekit/carbontrace/internal/gmail"
)

func authCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authenticate with external services",
	}

	cmd.AddCommand(authGmailCmd())

	return cmd
}

func authGmailCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gmail",
		Short: "Authorize read-only Gmail access for receipt scanning",
		Long: `Authorize read-only Gmail access for receipt scanning.

This command will:
1. Start a local web server
2. Open the Google consent screen in your browser
3. Save the resulting token for future scans

Configure gmail.client_id and gmail.client_secret first.`,
		RunE: runAuthGmail,
	}
}

func runAuthGmail(cmd *cobra.Command, _ []string) error {
	config := gmailOAuthConfig()
	if config.ClientID == "" || config.ClientSecret == "" {
		return fmt.Errorf("gmail.client_id and gmail.client_secret must be configured")
	}

	if _, err := gmail.AuthenticateOAuth2Interactive(cmd.Context(), config); err != nil {
		return fmt.Errorf("gmail authentication failed: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Gmail authentication complete.")
	return nil
}
