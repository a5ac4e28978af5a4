package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-events/internal/core/domain"
)

var pollCmd = &cobra.Command{
	Use:   "poll <source-key>",
	Short: "Run one polling cycle for a source",
	Long: `Runs a single polling cycle for one source and prints the result.

The source is activated for polling only, so no webhook subscription is
created. Dedup history is shared with the run command when the sqlite
store is used, so items already emitted are not emitted again.`,
	Args: cobra.ExactArgs(1),
	RunE: runPoll,
}

func init() {
	rootCmd.AddCommand(pollCmd)
}

func runPoll(cmd *cobra.Command, args []string) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	a, err := newApp(cmd, opts, false)
	if err != nil {
		return err
	}
	defer func() { _ = a.close(context.Background()) }()

	cfg, err := findSource(a.sources, args[0])
	if err != nil {
		return err
	}
	if !cfg.Mode.AllowsPolling() {
		return fmt.Errorf("%w: %s is %s", domain.ErrModeNotAllowed, cfg.Key, cfg.Mode)
	}
	cfg = cfg.Clone()
	cfg.Mode = domain.ModePolling

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := a.runtime.Activate(ctx, cfg); err != nil {
		return err
	}

	result, err := a.runtime.Tick(ctx, cfg.Key)
	if result != nil {
		printCycle(cmd, result)
	}
	return err
}

func printCycle(cmd *cobra.Command, r *domain.CycleResult) {
	status := "ok"
	if !r.Success() {
		status = "failed: " + r.Error
	}
	cmd.Printf("%s %s cycle: fetched %d, emitted %d, skipped %d, malformed %d in %s (%s)\n",
		r.SourceKey, r.Trigger, r.Fetched, r.Emitted, r.Skipped, r.Malformed,
		r.Duration().Round(1e6), status)
}
