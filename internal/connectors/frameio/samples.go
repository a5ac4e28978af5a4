package frameio

import "github.com/custodia-labs/sercha-events/internal/core/domain"

// SampleTimerEvent returns the webhook sample; Frame.io sources never poll.
func (p *Provider) SampleTimerEvent() domain.RawItem {
	return p.SampleWebhookEvent()
}

// SampleWebhookEvent returns an asset.created delivery.
func (p *Provider) SampleWebhookEvent() domain.RawItem {
	return domain.RawItem{
		EventType: EventAssetCreated,
		Payload: map[string]any{
			"type": EventAssetCreated,
			"resource": map[string]any{
				"type": "asset",
				"id":   "9d3a3b5e-4d0c-4a55-a6d1-1f6ce1c3f0a1",
			},
			"account": map[string]any{"id": "0f8b4c8e-2d7e-4d8f-9a63-0d4e5d1b7c21"},
			"team":    map[string]any{"id": p.teamID},
			"user":    map[string]any{"id": "5a1f3c7b-8e2d-4b6a-9c0d-3e4f5a6b7c8d"},
		},
		Sample: true,
	}
}
