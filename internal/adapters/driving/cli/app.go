package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-events/internal/adapters/driven/auth"
	"github.com/custodia-labs/sercha-events/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sercha-events/internal/adapters/driven/metrics"
	"github.com/custodia-labs/sercha-events/internal/adapters/driven/sink"
	"github.com/custodia-labs/sercha-events/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-events/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sercha-events/internal/core/domain"
	"github.com/custodia-labs/sercha-events/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-events/internal/core/services"
)

const (
	storeSQLite = "sqlite"
	storeMemory = "memory"

	// DefaultSourcesFile is the sources file name in the settings directory.
	DefaultSourcesFile = "sources.toml"

	// SinkTokenEnv holds the bearer token sent to websocket sinks.
	SinkTokenEnv = "SERCHA_EVENTS_SINK_TOKEN"

	// webhookSecretSetting is the per-source signing secret setting.
	webhookSecretSetting = "webhook_secret"

	secretLookupTimeout = 2 * time.Second
)

// options are the effective process options after merging flags over the
// settings file.
type options struct {
	providers     Providers
	settings      file.Settings
	sourcesPath   string
	dataDir       string
	listen        string
	webhookSecret string
	sink          string
	store         string
}

// loadOptions reads the settings file and applies flags that were set
// explicitly on cmd.
func loadOptions(cmd *cobra.Command) (*options, error) {
	dir := configDir
	if dir == "" {
		var err error
		if dir, err = file.DefaultConfigDir(); err != nil {
			return nil, err
		}
	}
	settings, err := file.LoadSettings(dir)
	if err != nil {
		return nil, err
	}

	o := &options{
		providers:     providersFrom(cmd.Context()),
		settings:      settings,
		sourcesPath:   pick(cmd, "config", sourcesPath, settings.SourcesFile, filepath.Join(dir, DefaultSourcesFile)),
		dataDir:       pick(cmd, "data-dir", dataDir, settings.DataDir, ""),
		listen:        pick(cmd, "listen", listenAddr, settings.Listen, defaultListen),
		webhookSecret: pick(cmd, "webhook-secret", webhookSecret, settings.WebhookSecret, ""),
		sink:          pick(cmd, "sink", sinkTargets, settings.Sink, defaultSink),
		store:         pick(cmd, "store", storeKind, settings.Store, defaultStore),
	}
	return o, nil
}

// pick returns the flag value when the flag was set, else the settings
// value, else def.
func pick(cmd *cobra.Command, flag, flagValue, setting, def string) string {
	if f := cmd.Flag(flag); f != nil && f.Changed {
		return flagValue
	}
	if setting != "" {
		return setting
	}
	return def
}

// loadSources reads the configured sources file.
func (o *options) loadSources() ([]domain.SourceConfig, error) {
	sources, err := file.LoadSources(o.sourcesPath)
	if err != nil {
		return nil, err
	}
	return sources, nil
}

// findSource returns the source with key.
func findSource(sources []domain.SourceConfig, key string) (domain.SourceConfig, error) {
	for _, s := range sources {
		if s.Key == key {
			return s, nil
		}
	}
	return domain.SourceConfig{}, fmt.Errorf("%w: source %q", domain.ErrNotFound, key)
}

// newRegistry builds a provider registry with token resolution from the
// settings file and the environment.
func (o *options) newRegistry() *services.ProviderRegistry {
	registry := services.NewProviderRegistry(auth.NewResolver(o.settings.Tokens).Resolve)
	for providerType, builder := range o.providers {
		registry.Register(providerType, builder)
	}
	return registry
}

// app is a fully wired runtime.
type app struct {
	opts     *options
	sources  []domain.SourceConfig
	registry *services.ProviderRegistry
	metrics  *metrics.Prometheus
	runtime  *services.Runtime
	states   driven.StateStore
	cycles   driven.CycleStore
	closers  []io.Closer
}

// newApp loads sources, opens the state store and sink, and builds the runtime.
// A daemon app fires the first polling tick on activation and persists
// activated configs; one-shot commands do neither, so a poll forced to
// polling mode never overwrites the config stored by run.
func newApp(cmd *cobra.Command, opts *options, daemon bool) (*app, error) {
	sources, err := opts.loadSources()
	if err != nil {
		return nil, err
	}

	a := &app{
		opts:     opts,
		sources:  sources,
		registry: opts.newRegistry(),
		metrics:  metrics.New(),
	}

	emission, err := a.openSink(cmd.OutOrStdout())
	if err != nil {
		return nil, err
	}

	cfg := services.RuntimeConfig{
		Registry:      a.registry,
		Sink:          emission,
		RunOnActivate: daemon,
		Options:       services.Options{Metrics: a.metrics},
	}

	switch opts.store {
	case storeMemory:
		cfg.Dedup = memory.NewDedupStore()
		cfg.Sources = memory.NewSourceStore()
		cfg.States = memory.NewStateStore()
		cfg.Cycles = memory.NewCycleStore()
	case storeSQLite:
		store, err := sqlite.NewStore(opts.dataDir)
		if err != nil {
			_ = a.closeResources()
			return nil, fmt.Errorf("opening store: %w", err)
		}
		a.closers = append(a.closers, store)
		cfg.Dedup = store.DedupStore()
		cfg.Sources = store.SourceStore()
		cfg.States = store.StateStore()
		cfg.Cycles = store.CycleStore()
	default:
		_ = a.closeResources()
		return nil, fmt.Errorf("%w: store %q", domain.ErrUnsupportedType, opts.store)
	}
	a.states = cfg.States
	a.cycles = cfg.Cycles
	if !daemon {
		cfg.Sources = nil
	}

	rt, err := services.NewRuntime(cfg)
	if err != nil {
		_ = a.closeResources()
		return nil, err
	}
	a.runtime = rt
	return a, nil
}

// openSink builds the emission sink from the comma-separated --sink value.
func (a *app) openSink(stdout io.Writer) (driven.EmissionSink, error) {
	var sinks sink.FanOut
	for _, target := range strings.Split(a.opts.sink, ",") {
		target = strings.TrimSpace(target)
		switch {
		case target == "":
			continue
		case target == "stdout":
			sinks = append(sinks, sink.NewWriterSink(stdout))
		case target == "json":
			sinks = append(sinks, sink.NewJSONSink(stdout))
		case strings.HasPrefix(target, "ws://"), strings.HasPrefix(target, "wss://"):
			ws := sink.NewWebSocketSink(target, os.Getenv(SinkTokenEnv))
			a.closers = append(a.closers, ws)
			sinks = append(sinks, ws)
		default:
			return nil, fmt.Errorf("%w: sink %q", domain.ErrUnsupportedType, target)
		}
	}
	switch len(sinks) {
	case 0:
		return nil, fmt.Errorf("%w: no sink configured", domain.ErrInvalidInput)
	case 1:
		return sinks[0], nil
	default:
		return sinks, nil
	}
}

// secret returns the signing secret for a source: its own webhook_secret
// setting, else the secret its provider issued on subscription, else the
// process default.
func (a *app) secret(sources func() []domain.SourceConfig) func(string) string {
	return func(key string) string {
		for _, s := range sources() {
			if s.Key == key {
				if own := s.Setting(webhookSecretSetting, ""); own != "" {
					return own
				}
				break
			}
		}
		if a.states != nil {
			ctx, cancel := context.WithTimeout(context.Background(), secretLookupTimeout)
			defer cancel()
			if state, err := a.states.Get(ctx, key); err == nil && state.SigningSecret != "" {
				return state.SigningSecret
			}
		}
		return a.opts.webhookSecret
	}
}

// close shuts the runtime down and releases the store and sinks.
func (a *app) close(ctx context.Context) error {
	var errs []error
	if a.runtime != nil {
		errs = append(errs, a.runtime.Close(ctx))
	}
	errs = append(errs, a.closeResources())
	return errors.Join(errs...)
}

func (a *app) closeResources() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}
