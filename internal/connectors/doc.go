// Package connectors groups the provider implementations. Each
// subpackage exposes a Builder satisfying driven.ProviderBuilder that is
// registered with the provider registry at startup.
package connectors
