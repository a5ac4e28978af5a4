package github

import "github.com/custodia-labs/sercha-events/internal/core/domain"

// SampleTimerEvent returns a listed branch shaped like a polled item.
func (p *Provider) SampleTimerEvent() domain.RawItem {
	return domain.RawItem{
		Payload: map[string]any{
			"name":       "feature-sample",
			"protected":  false,
			"repository": p.config.FullName(),
			"commit":     map[string]any{"sha": "6dcb09b5b57875f334f61aebed695e2e4193db5e"},
		},
		Sample: true,
	}
}

// SampleWebhookEvent returns a create delivery for a new branch.
func (p *Provider) SampleWebhookEvent() domain.RawItem {
	return domain.RawItem{
		EventType: EventCreate,
		Payload: map[string]any{
			"ref":           "feature-sample",
			"ref_type":      refTypeBranch,
			"master_branch": "main",
			"pusher_type":   "user",
			"repository": map[string]any{
				"full_name": p.config.FullName(),
			},
			"sender": map[string]any{"login": "octocat"},
		},
		Sample: true,
	}
}
