// Package file provides file-based configuration adapters.
//
// Adapters:
//   - LoadSources: sources file (TOML or YAML) parsing into domain.SourceConfig
//   - Watcher: fsnotify-driven hot reload of the sources file
//   - Settings: TOML process settings used as flag defaults
package file
