// Package cli provides the cobra command tree for sercha-events.
package cli

import (
	"context"
	"maps"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-events/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-events/internal/logger"
)

// version is set at build time via SetVersion.
var version = "dev"

// Persistent flag values.
var (
	configDir     string
	sourcesPath   string
	dataDir       string
	verbose       bool
	listenAddr    string
	webhookSecret string
	sinkTargets   string
	storeKind     string
)

// Flag defaults.
const (
	defaultListen = ":8080"
	defaultSink   = "stdout"
	defaultStore  = storeSQLite
)

var rootCmd = &cobra.Command{
	Use:   "sercha-events",
	Short: "Turn provider activity into deduplicated events",
	Long: `sercha-events watches configured sources by polling provider APIs and by
receiving provider webhooks, and emits one normalized event per new item.

Sources are declared in a TOML or YAML sources file. Each source names a
provider, a delivery mode (polling, webhook or both) and a dedupe strategy.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configDir, "config-dir", "", "settings directory (default ~/.sercha-events)")
	flags.StringVarP(&sourcesPath, "config", "c", "", "sources file (.toml, .yaml or .yml)")
	flags.StringVar(&dataDir, "data-dir", "", "directory for the sqlite store")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	flags.StringVar(&listenAddr, "listen", defaultListen, "webhook listen address")
	flags.StringVar(&webhookSecret, "webhook-secret", "", "default webhook signing secret")
	flags.StringVar(&sinkTargets, "sink", defaultSink, "comma-separated sinks: stdout, json, ws://... or wss://...")
	flags.StringVar(&storeKind, "store", defaultStore, "state store: sqlite or memory")
}

// Providers maps provider types to their builders.
type Providers map[string]driven.ProviderBuilder

type providersKey struct{}

// Execute runs the root command with the given providers available to
// every subcommand.
func Execute(providers Providers) error {
	return ExecuteContext(context.Background(), providers)
}

// ExecuteContext is Execute with a caller-supplied context.
func ExecuteContext(ctx context.Context, providers Providers) error {
	return rootCmd.ExecuteContext(context.WithValue(ctx, providersKey{}, maps.Clone(providers)))
}

// SetVersion sets the version printed by the version command.
func SetVersion(v string) {
	version = v
}

// providersFrom returns the providers passed to Execute.
func providersFrom(ctx context.Context) Providers {
	if ctx == nil {
		return nil
	}
	providers, _ := ctx.Value(providersKey{}).(Providers)
	return providers
}
