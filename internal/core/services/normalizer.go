package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-events/internal/core/domain"
	"github.com/custodia-labs/sercha-events/internal/core/ports/driven"
)

// Normalizer extracts identity and summary from raw items for one source.
// Both drivers go through the same Normalizer, so an item observed via
// polling and via webhook yields the same identity.
type Normalizer struct {
	cfg      *domain.SourceConfig
	provider driven.Provider
}

// NewNormalizer creates a normalizer for a source.
func NewNormalizer(cfg *domain.SourceConfig, provider driven.Provider) *Normalizer {
	return &Normalizer{cfg: cfg, provider: provider}
}

// Identity returns the item's stable identity, or a *domain.MalformedPayloadError.
func (n *Normalizer) Identity(item domain.RawItem) (string, error) {
	if item.Payload == nil {
		return "", &domain.MalformedPayloadError{SourceKey: n.cfg.Key, Reason: "empty payload"}
	}
	id, err := n.provider.Identity(item)
	if err != nil {
		return "", &domain.MalformedPayloadError{SourceKey: n.cfg.Key, Reason: "identity", Err: err}
	}
	if strings.TrimSpace(id) == "" {
		return "", &domain.MalformedPayloadError{SourceKey: n.cfg.Key, Reason: "empty identity"}
	}
	return id, nil
}

// Summary returns the provider's summary, falling back to a generic
// description when the provider cannot produce one.
func (n *Normalizer) Summary(item domain.RawItem) string {
	summary, err := n.provider.Summary(item)
	if err != nil || strings.TrimSpace(summary) == "" {
		return fmt.Sprintf("New event from %s", n.cfg.DisplayName())
	}
	return summary
}

// Event builds the emitted event for an item whose identity is already known.
func (n *Normalizer) Event(item domain.RawItem, identity string, trigger domain.Trigger, now time.Time) domain.EmittedEvent {
	return domain.EmittedEvent{
		SourceKey: n.cfg.Key,
		Identity:  identity,
		Summary:   n.Summary(item),
		Payload:   item.Payload,
		EmittedAt: now,
		Trigger:   trigger,
		Sample:    item.Sample,
	}
}

// Normalize computes identity and summary in one step.
func (n *Normalizer) Normalize(item domain.RawItem, trigger domain.Trigger, now time.Time) (domain.EmittedEvent, error) {
	id, err := n.Identity(item)
	if err != nil {
		return domain.EmittedEvent{}, err
	}
	return n.Event(item, id, trigger, now), nil
}
