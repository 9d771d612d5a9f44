package bot

import (
	"context"
	"errors"
	"sync"
	"time"
)

var errMissingBadge = errors.New("called a command without a needed badge")
var errOnCooldown = errors.New("called a command during its cooldown")

// Available twitch badges:
// ["broadcaster", "moderator", "subscriber", "artist-badge", "founder", "vip", "sub-gifter", "bits", "partner", "staff"].
func hasBadge(badgeName string, badges map[string]int) bool {
	return badges[badgeName] != 0
}

// RequireBadges lets the call through, when the caller wears at least one of
// the given badges.
func RequireBadges(badges []string) Filter {
	return func(cb Handler) Handler {
		return func(ctx context.Context, args []string, chatClient ChatClient) error {
			event := EventFromContext(ctx)

			for _, badgeName := range badges {
				if hasBadge(badgeName, event.Message.User.Badges) {
					return cb(ctx, args, chatClient)
				}
			}

			return errMissingBadge
		}
	}
}

// Cooldown rejects calls arriving within the given interval of the last
// accepted one. The cooldown is shared by everyone in the chat.
func Cooldown(interval time.Duration) Filter {
	return func(cb Handler) Handler {
		var mu sync.Mutex
		var lastCall time.Time

		return func(ctx context.Context, args []string, chatClient ChatClient) error {
			mu.Lock()
			if !lastCall.IsZero() && time.Since(lastCall) < interval {
				mu.Unlock()
				return errOnCooldown
			}
			lastCall = time.Now()
			mu.Unlock()

			return cb(ctx, args, chatClient)
		}
	}
}
