// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The runtime is written once against driven.Provider: the Normalizer
// turns raw items into events, the PollingDriver and WebhookDriver decide
// what to emit, and Runtime owns activation, timers and subscriptions.
//
// Services are pure Go with no CGO or external dependencies beyond uuid.
package services
