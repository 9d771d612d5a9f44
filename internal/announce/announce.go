// Package announce posts a rotating set of messages to a channel on a fixed
// interval, for the usual "follow me on..." chatter.
package announce

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type chatClient interface {
	Say(channelName, message string)
}

// Announcer broadcasts its messages on a channel, one per tick, in the order
// they were added.
type Announcer struct {
	logger      *zap.Logger
	messages    []string
	chatClient  chatClient
	interval    time.Duration
	channelName string
}

func New(interval time.Duration, channelName string, chatClient chatClient, logger *zap.Logger) *Announcer {
	return &Announcer{
		interval:    interval,
		channelName: channelName,
		chatClient:  chatClient,
		logger:      logger.Named("announce"),
	}
}

// AddMessages appends messages to the rotation.
func (a *Announcer) AddMessages(messages ...string) {
	a.messages = append(a.messages, messages...)
}

// Start posts one message per interval until the context is canceled. It
// blocks, run it in its own goroutine.
func (a *Announcer) Start(ctx context.Context) {
	if len(a.messages) == 0 {
		a.logger.Warn("skipping the announcements, no messages were added")
		return
	}

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	i := 0

	for {
		select {
		case <-ticker.C:
			i %= len(a.messages)
			a.chatClient.Say(a.channelName, a.messages[i])

			a.logger.Debug("sent an announcement to the chat", zap.Int("messageIndex", i))
			i++
		case <-ctx.Done():
			a.logger.Info("the announcer ended its job")
			return
		}
	}
}
