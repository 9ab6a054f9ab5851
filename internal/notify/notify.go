// Package notify delivers alert messages to a configured channel.
//
// Channels that support it return a message id from Post and can Edit a
// previously posted message in place; channels that cannot edit return
// an empty id, which keeps the caller on fresh posts.
package notify

import (
	"context"
	"errors"
)

// ErrEditUnsupported is returned by channels that cannot edit posted messages.
var ErrEditUnsupported = errors.New("channel does not support editing messages")

// Notifier delivers alert messages through a specific channel type.
type Notifier interface {
	// Post sends a new message and returns its id, or "" when the
	// channel does not track message ids.
	Post(ctx context.Context, message string) (string, error)
	// Edit replaces the content of a previously posted message.
	Edit(ctx context.Context, messageID, message string) error
	// Type returns the channel type identifier (e.g., "zulip", "discord", "webhook").
	Type() string
}

// ZulipConfig holds configuration for Zulip message delivery.
type ZulipConfig struct {
	Site   string `json:"site" mapstructure:"site"`
	Email  string `json:"email" mapstructure:"email"`
	APIKey string `json:"api_key,omitempty" mapstructure:"api_key"` //nolint:gosec // G101: config field name, not a credential
	Stream string `json:"stream" mapstructure:"stream"`
	Topic  string `json:"topic" mapstructure:"topic"`
}

// DiscordConfig holds configuration for Discord message delivery.
type DiscordConfig struct {
	Token     string `json:"token,omitempty" mapstructure:"token"`
	ChannelID string `json:"channel_id" mapstructure:"channel_id"`
}

// WebhookConfig holds configuration for generic webhook delivery.
type WebhookConfig struct {
	URL     string            `json:"url" mapstructure:"url"`
	Secret  string            `json:"secret,omitempty" mapstructure:"secret"` //nolint:gosec // G101: config field name, not a credential
	Headers map[string]string `json:"headers,omitempty" mapstructure:"headers"`
}
