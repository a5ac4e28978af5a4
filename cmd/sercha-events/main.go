// Command sercha-events runs event sources that turn provider activity
// into deduplicated events.
package main

import (
	"os"

	"github.com/custodia-labs/sercha-events/internal/adapters/driving/cli"
	"github.com/custodia-labs/sercha-events/internal/connectors/frameio"
	"github.com/custodia-labs/sercha-events/internal/connectors/github"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cli.SetVersion(version)

	providers := cli.Providers{
		github.ProviderType:  github.Builder,
		"github-new-branch":  github.Builder,
		frameio.ProviderType: frameio.Builder,
	}
	if err := cli.Execute(providers); err != nil {
		os.Exit(1)
	}
}
