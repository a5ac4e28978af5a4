package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// SettingsFile is the process settings file name in the config directory.
const SettingsFile = "config.toml"

// Settings holds process-level defaults. Command-line flags override them.
type Settings struct {
	Listen        string `toml:"listen"`
	WebhookSecret string `toml:"webhook_secret"`
	Sink          string `toml:"sink"`
	Store         string `toml:"store"`
	DataDir       string `toml:"data_dir"`
	SourcesFile   string `toml:"sources_file"`

	// Tokens maps provider types to API tokens.
	Tokens map[string]string `toml:"tokens"`
}

// DefaultConfigDir returns ~/.sercha-events.
func DefaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".sercha-events"), nil
}

// LoadSettings reads configDir/config.toml. A missing file yields zero settings.
func LoadSettings(configDir string) (Settings, error) {
	var s Settings
	data, err := os.ReadFile(filepath.Join(configDir, SettingsFile))
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("reading settings: %w", err)
	}
	if err := toml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parsing settings: %w", err)
	}
	return s, nil
}

// Save writes the settings to configDir/config.toml with restricted permissions.
func (s Settings) Save(configDir string) error {
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := toml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	return os.WriteFile(filepath.Join(configDir, SettingsFile), data, 0600)
}

// Token returns the configured token for a provider type.
func (s Settings) Token(provider string) string {
	return s.Tokens[provider]
}
