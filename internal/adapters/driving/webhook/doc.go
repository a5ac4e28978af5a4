// Package webhook is the HTTP transport for provider webhook deliveries.
//
// Routes:
//
//	POST /hooks/{sourceKey}   authenticated delivery for one source
//	GET  /healthz             liveness
//	GET  /metrics             Prometheus scrape endpoint (when configured)
//
// A delivery is authenticated with the source's secret using either
// GitHub's X-Hub-Signature-256 or Frame.io's X-Frameio-Signature scheme,
// then handed to the runtime. Drops (unsubscribed type, predicate
// rejection, duplicate) still answer 202 so providers do not retry them.
package webhook
