// Package github implements the GitHub new-branch event provider.
//
// The provider emits one event per branch created in a configured
// repository. It supports both delivery modes:
//
//   - Polling: lists the repository's branches through the REST API and
//     lets the runtime's dedup store suppress branches already seen.
//   - Webhook: subscribes a repository hook for "create" events and keeps
//     only deliveries whose ref_type is "branch" (tags are dropped).
//
// Both paths resolve identity the same way, from the payload's ref or the
// branch name, so a branch observed by both is emitted once.
//
// # Configuration
//
// Source settings:
//
//   - repo: the repository as owner/name. Required.
//   - callback_url: public URL of this process's webhook endpoint. Required
//     for webhook delivery.
//   - webhook_secret: shared secret set on the created hook.
//   - max_pages: branch pages fetched per poll (100 branches each). Default 10.
//   - base_url: API base URL for GitHub Enterprise.
//
// # Rate Limiting
//
// Requests go through a dual-strategy limiter: a token bucket keeps the
// request rate at about 1.2 per second, and the X-RateLimit-* headers of
// each response pause requests once the remaining quota falls below a
// reserve until the window resets.
//
// # Errors
//
// API failures surface as *APIError or *RateLimitError and reach the
// runtime wrapped in a *domain.TransientFetchError, so a failed poll
// records nothing and the next tick retries.
package github
