package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-events/internal/adapters/driven/sink"
	"github.com/custodia-labs/sercha-events/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-events/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-events/internal/core/services"
)

var sampleCmd = &cobra.Command{
	Use:   "sample <source-key>",
	Short: "Dry-run a source against generated sample events",
	Long: `Feeds the provider's sample timer and webhook events through the same
normalization and emission path as real events and prints the results.

Nothing is sent to the provider and no state is recorded.`,
	Args: cobra.ExactArgs(1),
	RunE: runSample,
}

func init() {
	rootCmd.AddCommand(sampleCmd)
}

func runSample(cmd *cobra.Command, args []string) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	sources, err := opts.loadSources()
	if err != nil {
		return err
	}
	cfg, err := findSource(sources, args[0])
	if err != nil {
		return err
	}

	runner := services.NewDryRunner(opts.newRegistry(), func() driven.DedupStore {
		return memory.NewDedupStore()
	}, services.Options{})

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	samples, err := runner.DryRun(ctx, cfg)
	if err != nil {
		return err
	}

	out := sink.NewJSONSink(cmd.OutOrStdout())
	for _, s := range samples {
		if err := out.Emit(ctx, s.Event); err != nil {
			return err
		}
	}
	return nil
}
