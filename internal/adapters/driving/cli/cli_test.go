package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-events/internal/core/domain"
	"github.com/custodia-labs/sercha-events/internal/core/ports/driven"
)

const testSources = `
[[sources]]
key = "fake-poll"
provider = "fake"
name = "Fake Branches"
mode = "polling"
dedupe = "unique"
interval_seconds = 60

[[sources]]
key = "fake-hooks"
provider = "fake"
mode = "webhook"
dedupe = "unique"
webhook_event_types = ["create"]

[sources.settings]
webhook_secret = "per-source"
`

// fakeProvider lists two branches and accepts branch create deliveries.
type fakeProvider struct{}

var (
	_ driven.Provider = fakeProvider{}
	_ driven.Fetcher  = fakeProvider{}
)

func (fakeProvider) Type() string                  { return "fake" }
func (fakeProvider) SupportedEventTypes() []string { return []string{"create"} }

func (fakeProvider) Identity(item domain.RawItem) (string, error) {
	if ref := item.String("ref"); ref != "" {
		return ref, nil
	}
	return item.String("name"), nil
}

func (p fakeProvider) Summary(item domain.RawItem) (string, error) {
	id, err := p.Identity(item)
	return "New branch: " + id, err
}

func (fakeProvider) ShouldEmit(item domain.RawItem) bool { return item.String("ref_type") == "branch" }

func (fakeProvider) FetchBatch(context.Context, string) ([]domain.RawItem, string, error) {
	return []domain.RawItem{
		{Payload: map[string]any{"name": "alpha"}},
		{Payload: map[string]any{"name": "beta"}},
	}, "", nil
}

func (fakeProvider) SampleTimerEvent() domain.RawItem {
	return domain.RawItem{Payload: map[string]any{"name": "sample-branch"}, Sample: true}
}

func (fakeProvider) SampleWebhookEvent() domain.RawItem {
	return domain.RawItem{
		EventType: "create",
		Payload:   map[string]any{"ref": "sample-branch", "ref_type": "branch"},
		Sample:    true,
	}
}

// syncBuffer is a bytes.Buffer safe for concurrent writers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// testProviders are passed to every command run by execute.
var testProviders = Providers{
	"fake": func(domain.SourceConfig, driven.TokenProvider) (driven.Provider, error) {
		return fakeProvider{}, nil
	},
}

// setupWorkspace isolates HOME and writes a sources file. It returns the
// sources file path.
func setupWorkspace(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", "")

	path := filepath.Join(home, "sources.toml")
	require.NoError(t, os.WriteFile(path, []byte(testSources), 0600))
	return path
}

func resetFlags() {
	reset := func(fs *pflag.FlagSet) {
		fs.VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	}
	reset(rootCmd.PersistentFlags())
	for _, c := range rootCmd.Commands() {
		reset(c.Flags())
	}
}

func execute(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	resetFlags()

	out := &syncBuffer{}
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	}()

	err := ExecuteContext(ctx, testProviders)
	return out.String(), err
}
