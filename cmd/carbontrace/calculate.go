package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tracekit/carbontrace/internal/cli"
	"github.com/tracekit/carbontrace/internal/common"
)

func calculateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calculate [file]",
		Short: "Calculate emissions from an activity file",
		Long: `Calculate carbon emissions from a JSON activity file, or from stdin when no
file is given. The payload is either an object keyed by category
(uber_rides, lyft, uber_eats, doordash, flights) or a flat array of
extraction records produced by "carbontrace scan".`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCalculate,
	}

	cmd.Flags().Bool("json", false, "print the raw JSON result instead of the summary")
	cmd.Flags().Bool("no-save", false, "skip writing the calculation to history")

	return cmd
}

func runCalculate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var payload []byte
	var err error
	if len(args) == 1 {
		payload, err = os.ReadFile(args[0]) // #nosec G304
		if err != nil {
			return fmt.Errorf("failed to read activity file: %w", err)
		}
	} else {
		payload, err = io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
	}

	calcEngine, cleanup, err := buildEngine()
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := calcEngine.CalculateRaw(ctx, payload)
	if err != nil {
		if errors.Is(err, common.ErrMalformedInput) {
			return common.NewUserError("activity payload is not valid; expected a per-category object or an extraction record array", err)
		}
		return err
	}

	noSave, _ := cmd.Flags().GetBool("no-save")
	if !noSave {
		if err := saveToHistory(ctx, payload, result); err != nil {
			slog.Warn("Could not save calculation to history", "error", err)
		}
	}

	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		encoded, marshalErr := json.MarshalIndent(result, "", "  ")
		if marshalErr != nil {
			return fmt.Errorf("failed to encode result: %w", marshalErr)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
		return nil
	}

	fmt.Fprint(cmd.OutOrStdout(), cli.RenderResult(result))
	return nil
}

func saveToHistory(ctx context.Context, inputs []byte, result any) error {
	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	results, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	_, err = store.SaveCalculation(ctx, inputs, results)
	return err
}
