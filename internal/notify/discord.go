package notify

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// Compile-time interface guard.
var _ Notifier = (*DiscordNotifier)(nil)

// discordSession is the slice of *discordgo.Session the notifier uses.
type discordSession interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEdit(channelID, messageID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordNotifier posts alert messages to a Discord channel via a bot
// session and edits them in place.
type DiscordNotifier struct {
	session   discordSession
	channelID string
}

// NewDiscordNotifier creates a Discord notifier from a bot token. The
// session is REST-only; no gateway connection is opened.
func NewDiscordNotifier(cfg DiscordConfig) (*DiscordNotifier, error) {
	dg, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	return &DiscordNotifier{session: dg, channelID: cfg.ChannelID}, nil
}

// Post sends a channel message and returns the Discord message id.
func (d *DiscordNotifier) Post(ctx context.Context, message string) (string, error) {
	msg, err := d.session.ChannelMessageSend(d.channelID, message, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("discord post to %s: %w", d.channelID, err)
	}
	return msg.ID, nil
}

// Edit replaces the content of a previously posted message.
func (d *DiscordNotifier) Edit(ctx context.Context, messageID, message string) error {
	if _, err := d.session.ChannelMessageEdit(d.channelID, messageID, message, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord edit %s in %s: %w", messageID, d.channelID, err)
	}
	return nil
}

// Type returns the channel type identifier.
func (d *DiscordNotifier) Type() string {
	return "discord"
}
