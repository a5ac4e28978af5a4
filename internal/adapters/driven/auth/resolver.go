package auth

import (
	"os"
	"strings"

	"github.com/custodia-labs/sercha-events/internal/core/domain"
	"github.com/custodia-labs/sercha-events/internal/core/ports/driven"
)

// TokenEnvSetting names the source setting that points at an environment
// variable holding the source's token.
const TokenEnvSetting = "token_env"

// Resolver picks the token provider for a source. Lookup order:
//
//  1. the environment variable named by the source's token_env setting
//  2. the token configured for the provider type in the settings file
//  3. SERCHA_<PROVIDER>_TOKEN
//  4. GITHUB_TOKEN, for the github provider
//
// Sources with no token get a NullTokenProvider.
type Resolver struct {
	tokens map[string]string
	getenv func(string) string
}

// NewResolver creates a resolver. tokens maps provider types to tokens
// and may be nil.
func NewResolver(tokens map[string]string) *Resolver {
	return &Resolver{tokens: tokens, getenv: os.Getenv}
}

// Resolve returns the token provider for cfg.
func (r *Resolver) Resolve(cfg domain.SourceConfig) driven.TokenProvider {
	if token := r.lookup(cfg); token != "" {
		return NewStaticTokenProvider(token)
	}
	return NullTokenProvider{}
}

func (r *Resolver) lookup(cfg domain.SourceConfig) string {
	if name := cfg.Setting(TokenEnvSetting, ""); name != "" {
		if token := r.getenv(name); token != "" {
			return token
		}
	}
	if token := r.tokens[cfg.Provider]; token != "" {
		return token
	}
	envName := "SERCHA_" + strings.ToUpper(strings.ReplaceAll(cfg.Provider, "-", "_")) + "_TOKEN"
	if token := r.getenv(envName); token != "" {
		return token
	}
	if cfg.Provider == "github" {
		return r.getenv("GITHUB_TOKEN")
	}
	return ""
}
