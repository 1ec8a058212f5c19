// Package provider defines the metadata provider boundary. Live status,
// game names, and numeric base ids come from an external service (Twitch,
// YouTube, or a local aggregator) that this daemon only polls.
package provider

import "context"

// ChannelStatus is a point-in-time snapshot of a channel as reported by
// the metadata provider.
type ChannelStatus struct {
	Channel string `json:"channel"`
	Live    bool   `json:"live"`
	Game    string `json:"game"`
	Title   string `json:"title"`
	BaseID  int64  `json:"base_id"`
}

// Provider is the read-only metadata boundary consumed by the recording
// rule engine and the numeric address resolver.
type Provider interface {
	// ChannelStatus returns the current status of a channel. A channel
	// that exists but is offline returns Live=false, not an error.
	ChannelStatus(ctx context.Context, channel string) (*ChannelStatus, error)
}
