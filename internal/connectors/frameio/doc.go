// Package frameio implements a webhook-only provider for Frame.io.
//
// Frame.io pushes project, asset, comment and team events to a team-level
// webhook. The provider subscribes the configured event types through the
// hooks REST endpoint and turns each delivery into one event whose identity
// combines the resource id and the event type, so an asset that is created
// and later updated produces two events.
//
// Settings:
//
//   - team_id: the Frame.io team owning the hook. Required.
//   - callback_url: public URL of this process's webhook endpoint. Required.
//   - hook_name: display name of the created hook. Defaults to the source key.
//   - base_url: API base URL. Defaults to https://api.frame.io/v2.
package frameio
