package file

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/sercha-events/internal/core/domain"
)

// DefaultSourcesFile is the sources file name looked up in the config directory.
const DefaultSourcesFile = "sources.toml"

// sourcesDocument is the on-disk layout shared by both formats.
type sourcesDocument struct {
	Sources []sourceEntry `toml:"sources" yaml:"sources"`
}

type sourceEntry struct {
	Key               string            `toml:"key" yaml:"key"`
	Provider          string            `toml:"provider" yaml:"provider"`
	Name              string            `toml:"name" yaml:"name"`
	Version           string            `toml:"version" yaml:"version"`
	Mode              string            `toml:"mode" yaml:"mode"`
	Dedupe            string            `toml:"dedupe" yaml:"dedupe"`
	IntervalSeconds   int               `toml:"interval_seconds" yaml:"interval_seconds"`
	WebhookEventTypes []string          `toml:"webhook_event_types" yaml:"webhook_event_types"`
	Overlap           string            `toml:"overlap" yaml:"overlap"`
	Retention         retentionEntry    `toml:"retention" yaml:"retention"`
	Settings          map[string]string `toml:"settings" yaml:"settings"`
}

type retentionEntry struct {
	MaxRecords int `toml:"max_records" yaml:"max_records"`
	// MaxAge is a Go duration string such as "24h".
	MaxAge string `toml:"max_age" yaml:"max_age"`
}

// LoadSources reads and parses a sources file. The format is chosen by
// extension: .toml, .yaml or .yml. Entries are not validated here;
// validation happens when a source is activated.
func LoadSources(path string) ([]domain.SourceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sources file: %w", err)
	}
	return ParseSources(data, formatOf(path))
}

// Format is a sources file encoding.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

func formatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	default:
		return Format(strings.TrimPrefix(filepath.Ext(path), "."))
	}
}

// ParseSources decodes sources file content.
func ParseSources(data []byte, format Format) ([]domain.SourceConfig, error) {
	var doc sourcesDocument
	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: parsing TOML sources: %v", domain.ErrInvalidInput, err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil && len(bytes.TrimSpace(data)) > 0 {
			return nil, fmt.Errorf("%w: parsing YAML sources: %v", domain.ErrInvalidInput, err)
		}
	default:
		return nil, fmt.Errorf("%w: sources file format %q", domain.ErrUnsupportedType, format)
	}

	configs := make([]domain.SourceConfig, 0, len(doc.Sources))
	seen := make(map[string]struct{}, len(doc.Sources))
	for i, entry := range doc.Sources {
		cfg, err := entry.toConfig()
		if err != nil {
			return nil, fmt.Errorf("source #%d (%s): %w", i+1, entry.Key, err)
		}
		if _, dup := seen[cfg.Key]; dup {
			return nil, fmt.Errorf("%w: duplicate source key %q", domain.ErrInvalidInput, cfg.Key)
		}
		seen[cfg.Key] = struct{}{}
		configs = append(configs, cfg)
	}
	return configs, nil
}

func (e sourceEntry) toConfig() (domain.SourceConfig, error) {
	cfg := domain.SourceConfig{
		Key:               strings.TrimSpace(e.Key),
		Provider:          strings.TrimSpace(e.Provider),
		Name:              e.Name,
		Version:           e.Version,
		Mode:              domain.DeliveryMode(e.Mode),
		Dedupe:            domain.DedupeStrategy(e.Dedupe),
		Interval:          time.Duration(e.IntervalSeconds) * time.Second,
		WebhookEventTypes: e.WebhookEventTypes,
		Overlap:           domain.OverlapPolicy(e.Overlap),
		Retention:         domain.RetentionPolicy{MaxRecords: e.Retention.MaxRecords},
		Settings:          e.Settings,
	}
	if e.Retention.MaxAge != "" {
		d, err := time.ParseDuration(e.Retention.MaxAge)
		if err != nil {
			return cfg, fmt.Errorf("%w: retention.max_age: %v", domain.ErrInvalidInput, err)
		}
		cfg.Retention.MaxAge = d
	}
	return cfg, nil
}
