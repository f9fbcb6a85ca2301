// Package telemetry provides no-op event tracking for open-source builds.
// Hosted deployments swap in a real client; the call sites stay identical.
package telemetry

type Client struct{}

var GlobalClient *Client = nil

// Track records a named event with properties. No-op in OSS builds; safe to
// call on the nil client.
func (c *Client) Track(event string, props map[string]interface{}) {}

// TrackWithContext records an event with request-scoped identifiers.
func (c *Client) TrackWithContext(event string, props map[string]interface{}, ids ...string) {}
