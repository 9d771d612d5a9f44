package bot

import (
	"context"

	"github.com/gempir/go-twitch-irc/v4"
)

// Event carries the metadata of a dispatched message through a handler call.
type Event struct {
	Command string                 // Command is the lowercased name the message was dispatched under, empty for parsed messages.
	Message *twitch.PrivateMessage // Message is the chat message behind the dispatch, nil for whispers.
	Whisper *twitch.WhisperMessage // Whisper is the whisper behind the dispatch, nil for chat messages.
	Self    bool                   // Self reports whether the bot itself sent the message.
}

// ParsedMessage is the annotated copy of a public non-command message,
// emitted after the word-trigger and emote pass.
type ParsedMessage struct {
	Channel string
	User    twitch.User
	Message string // Message is the text with matched emote tokens replaced by image markup.
	Self    bool
}

type eventKey struct{}

func setEventToContext(ctx context.Context, event *Event) context.Context {
	return context.WithValue(ctx, eventKey{}, event)
}

// EventFromContext returns the Event bound to a handler call.
func EventFromContext(ctx context.Context) *Event {
	event, ok := ctx.Value(eventKey{}).(*Event)

	if !ok {
		panic("called EventFromContext() outside of the scope of a handler call")
	}

	return event
}
