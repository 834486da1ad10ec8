package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tracekit/carbontrace/internal/cli"
	"github.com/tracekit/carbontrace/internal/model"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse stored calculations",
	}

	cmd.AddCommand(historyListCmd())
	cmd.AddCommand(historyShowCmd())

	return cmd
}

func historyListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored calculations, newest first",
		RunE:  runHistoryList,
	}

	cmd.Flags().Int("limit", 20, "maximum number of calculations to show")
	cmd.Flags().Int("offset", 0, "number of calculations to skip")

	return cmd
}

func runHistoryList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	limit, _ := cmd.Flags().GetInt("limit")
	offset, _ := cmd.Flags().GetInt("offset")

	calcs, err := store.ListCalculations(ctx, limit, offset)
	if err != nil {
		return err
	}
	if len(calcs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No calculations stored yet.")
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout(), cli.TableHeaderStyle.Render(
		fmt.Sprintf("%-6s %-25s %s", "ID", "When", "Total kg CO₂")))
	for _, calc := range calcs {
		total := "?"
		var result model.EmissionsResult
		if err := json.Unmarshal(calc.Results, &result); err == nil {
			total = fmt.Sprintf("%.2f", result.TotalEmissionsKg)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%-6d %-25s %s\n",
			calc.ID, calc.CreatedAt.Local().Format("2006-01-02 15:04:05"), total)
	}
	return nil
}

func historyShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one stored calculation",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistoryShow,
	}
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid calculation id %q", args[0])
	}

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	calc, err := store.GetCalculation(ctx, id)
	if err != nil {
		return fmt.Errorf("calculation %d not found: %w", id, err)
	}

	var result model.EmissionsResult
	if err := json.Unmarshal(calc.Results, &result); err == nil {
		fmt.Fprint(cmd.OutOrStdout(), cli.RenderResult(&result))
		return nil
	}

	// Results predate the current schema; show them raw.
	encoded, err := json.MarshalIndent(calc, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
	return nil
}
