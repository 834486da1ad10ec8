package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tracekit/carbontrace/internal/cli"
	"github.com/tracekit/carbontrace/internal/config"
	"github.com/tracekit/carbontrace/internal/gmail"
)

func scanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan Gmail for activity receipts",
		Long: `Scan your Gmail inbox for rideshare, food delivery, and flight receipts and
extract activity records from them. By default the records are printed as
JSON suitable for "carbontrace calculate"; pass --calculate to run the
calculation directly.`,
		RunE: runScan,
	}

	cmd.Flags().String("query", "", "override the Gmail search query")
	cmd.Flags().Int64("max-messages", 200, "maximum number of messages to fetch")
	cmd.Flags().Bool("calculate", false, "calculate emissions from the scanned records")

	return cmd
}

func runScan(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	svc, err := gmail.NewService(ctx, gmailOAuthConfig())
	if err != nil {
		return fmt.Errorf("failed to authenticate with Gmail: %w", err)
	}

	query, _ := cmd.Flags().GetString("query")
	maxMessages, _ := cmd.Flags().GetInt64("max-messages")

	records, err := gmail.NewScanner(svc, query, maxMessages).Scan(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No receipts found.")
		return nil
	}

	encoded, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}

	calculate, _ := cmd.Flags().GetBool("calculate")
	if !calculate {
		fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
		return nil
	}

	calcEngine, cleanup, err := buildEngine()
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := calcEngine.CalculateRaw(ctx, encoded)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), cli.RenderResult(result))
	return nil
}

func gmailOAuthConfig() gmail.OAuth2Config {
	return config.LoadGmailConfig()
}
