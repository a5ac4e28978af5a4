package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-events/internal/core/domain"
)

const tomlSources = `
[[sources]]
key = "github-new-branch"
provider = "github"
name = "New Branch"
version = "0.0.1"
mode = "both"
dedupe = "unique"
interval_seconds = 300
webhook_event_types = ["create"]
overlap = "queue"

[sources.retention]
max_records = 500
max_age = "72h"

[sources.settings]
repo = "octo/hello"
callback_url = "https://example.com/hooks/github-new-branch"

[[sources]]
key = "frameio-assets"
provider = "frameio"
mode = "webhook"
dedupe = "unique_volatile"
webhook_event_types = ["asset.created", "asset.deleted"]
`

const yamlSources = `
sources:
  - key: github-new-branch
    provider: github
    mode: polling
    dedupe: none
    interval_seconds: 60
    settings:
      repo: octo/hello
  - key: frameio-comments
    provider: frameio
    mode: webhook
    dedupe: unique
    webhook_event_types: [comment.created]
    retention:
      max_records: 10
`

func TestParseSources_TOML(t *testing.T) {
	configs, err := ParseSources([]byte(tomlSources), FormatTOML)
	require.NoError(t, err)
	require.Len(t, configs, 2)

	gh := configs[0]
	assert.Equal(t, "github-new-branch", gh.Key)
	assert.Equal(t, "github", gh.Provider)
	assert.Equal(t, "New Branch", gh.Name)
	assert.Equal(t, domain.ModeBoth, gh.Mode)
	assert.Equal(t, domain.DedupeUnique, gh.Dedupe)
	assert.Equal(t, 5*time.Minute, gh.Interval)
	assert.Equal(t, []string{"create"}, gh.WebhookEventTypes)
	assert.Equal(t, domain.OverlapQueue, gh.Overlap)
	assert.Equal(t, domain.RetentionPolicy{MaxRecords: 500, MaxAge: 72 * time.Hour}, gh.Retention)
	assert.Equal(t, "octo/hello", gh.Settings["repo"])
	require.NoError(t, gh.Validate())

	fio := configs[1]
	assert.Equal(t, domain.ModeWebhook, fio.Mode)
	assert.Equal(t, domain.DedupeUniqueVolatile, fio.Dedupe)
	assert.True(t, fio.Retention.IsZero())
	require.NoError(t, fio.Validate())
}

func TestParseSources_YAML(t *testing.T) {
	configs, err := ParseSources([]byte(yamlSources), FormatYAML)
	require.NoError(t, err)
	require.Len(t, configs, 2)

	assert.Equal(t, domain.ModePolling, configs[0].Mode)
	assert.Equal(t, domain.DedupeNone, configs[0].Dedupe)
	assert.Equal(t, time.Minute, configs[0].Interval)
	assert.Equal(t, []string{"comment.created"}, configs[1].WebhookEventTypes)
	assert.Equal(t, 10, configs[1].Retention.MaxRecords)
}

func TestParseSources_Empty(t *testing.T) {
	configs, err := ParseSources(nil, FormatYAML)
	require.NoError(t, err)
	assert.Empty(t, configs)

	configs, err = ParseSources([]byte(""), FormatTOML)
	require.NoError(t, err)
	assert.Empty(t, configs)
}

func TestParseSources_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		format  Format
		wantErr error
	}{
		{"bad toml", "[[sources]\nkey=", FormatTOML, domain.ErrInvalidInput},
		{"bad yaml", "sources: [", FormatYAML, domain.ErrInvalidInput},
		{"unknown yaml field", "sources:\n  - key: a\n    colour: red\n", FormatYAML, domain.ErrInvalidInput},
		{"bad duration", "[[sources]]\nkey = \"a\"\n[sources.retention]\nmax_age = \"soon\"\n", FormatTOML, domain.ErrInvalidInput},
		{"duplicate key", "[[sources]]\nkey = \"a\"\n[[sources]]\nkey = \"a\"\n", FormatTOML, domain.ErrInvalidInput},
		{"unknown format", "", Format("json"), domain.ErrUnsupportedType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSources([]byte(tt.data), tt.format)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoadSources_ByExtension(t *testing.T) {
	dir := t.TempDir()

	tomlPath := filepath.Join(dir, "sources.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte(tomlSources), 0600))
	configs, err := LoadSources(tomlPath)
	require.NoError(t, err)
	assert.Len(t, configs, 2)

	ymlPath := filepath.Join(dir, "sources.yml")
	require.NoError(t, os.WriteFile(ymlPath, []byte(yamlSources), 0600))
	configs, err = LoadSources(ymlPath)
	require.NoError(t, err)
	assert.Len(t, configs, 2)

	_, err = LoadSources(filepath.Join(dir, "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
