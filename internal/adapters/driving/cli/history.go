package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history <source-key>",
	Short: "Show recent cycles for a source",
	Long: `Prints the most recent polling cycles and webhook deliveries recorded
for a source, newest first. Requires the sqlite store.`,
	Args: cobra.ExactArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of cycles to show")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	a, err := newApp(cmd, opts, false)
	if err != nil {
		return err
	}
	defer func() { _ = a.close(context.Background()) }()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	results, err := a.cycles.History(ctx, args[0], historyLimit)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		cmd.Printf("No cycles recorded for %s\n", args[0])
		return nil
	}
	for i := range results {
		printCycle(cmd, &results[i])
	}
	return nil
}
