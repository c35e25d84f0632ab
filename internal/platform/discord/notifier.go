package discord

import (
	"context"
	"log"

	"github.com/bwmarrin/discordgo"
)

// Notifier posts race events to their race channel. Delivery failures are
// logged and swallowed: a missed announcement must never unwind a committed
// race transition.
type Notifier struct {
	session *discordgo.Session
}

// NewNotifier wraps an authenticated Discord session.
func NewNotifier(session *discordgo.Session) *Notifier {
	return &Notifier{session: session}
}

// Notify posts message to the channel.
func (n *Notifier) Notify(ctx context.Context, channelRef, message string) {
	if _, err := n.session.ChannelMessageSend(channelRef, message, discordgo.WithContext(ctx)); err != nil {
		log.Printf("notify channel %s: %v", channelRef, err)
	}
}
