package bot

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/gempir/go-twitch-irc/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var punctuationPattern = regexp.MustCompile(`[^\w\s]`)
var boundaryPattern = regexp.MustCompile(`\W+`)

func (b *Bot) handlePrivateMessage(message twitch.PrivateMessage) {
	self := strings.EqualFold(message.User.Name, b.username)
	if b.ignoreSelf && self {
		return
	}

	text := strings.TrimSpace(message.Message)
	if strings.HasPrefix(text, b.chatPrefix) {
		b.dispatchChatCommand(text, &message, self)
		return
	}

	b.dispatchParsedMessage(&message, self)
}

func (b *Bot) dispatchChatCommand(text string, message *twitch.PrivateMessage, self bool) {
	stripped := strings.TrimSpace(strings.TrimPrefix(text, b.chatPrefix))
	fields := strings.Fields(stripped)
	if len(fields) == 0 {
		return
	}

	name := strings.ToLower(fields[0])

	if reply, ok := b.commands[name]; ok {
		b.conn.Say(message.Channel, personalizeReply(reply, message.User.DisplayName))
		return
	}

	handlers, ok := b.chatHandlers[name]
	if !ok {
		b.logger.Debug("no handler was registered for the command", zap.String("command", name))
		return
	}

	event := &Event{Command: name, Message: message, Self: self}
	ctx := setEventToContext(b.baseCtx, event)

	for _, cb := range handlers {
		b.runHandler(ctx, event, fields[1:], cb)
	}
}

func (b *Bot) dispatchParsedMessage(message *twitch.PrivateMessage, self bool) {
	working := message.Message
	substituted := map[string]bool{}

	for _, token := range tokenizeMessage(message.Message) {
		if reply, ok := b.wordTriggers[token]; ok {
			b.conn.Say(message.Channel, personalizeReply(reply, message.User.DisplayName))
		}

		// One substitution per distinct token. Replacing a repeated token
		// again would hit the markup inserted by the first pass.
		if substituted[token] {
			continue
		}
		if emote, ok := b.emotes[token]; ok {
			working = strings.Replace(working, token, emote.ImageMarkup(token), 1)
			substituted[token] = true
		}
	}

	if len(b.parsedHandlers) == 0 {
		return
	}

	parsed := &ParsedMessage{
		Channel: message.Channel,
		User:    message.User,
		Message: working,
		Self:    self,
	}

	event := &Event{Message: message, Self: self}
	ctx := setEventToContext(b.baseCtx, event)

	for _, cb := range b.parsedHandlers {
		if err := cb(ctx, parsed); err != nil {
			b.logger.Error("unhandled error occurred in a parsed message handler", zap.Error(err))
		}
	}
}

func (b *Bot) handleWhisperMessage(message twitch.WhisperMessage) {
	self := strings.EqualFold(message.User.Name, b.username)
	if b.ignoreSelf && self {
		return
	}

	// Whispers without the prefix are not mirrored anywhere, so there is
	// nothing to do with them.
	text := strings.TrimSpace(message.Message)
	if !strings.HasPrefix(text, b.whisperPrefix) {
		return
	}

	stripped := strings.TrimSpace(strings.TrimPrefix(text, b.whisperPrefix))
	fields := strings.Fields(stripped)
	if len(fields) == 0 {
		return
	}

	name := strings.ToLower(fields[0])

	if reply, ok := b.commands[name]; ok {
		b.whisperReply(&message, personalizeReply(reply, message.User.DisplayName))
		return
	}

	handlers, ok := b.whisperHandlers[name]
	if !ok {
		b.logger.Debug("no handler was registered for the whispered command", zap.String("command", name))
		return
	}

	commandMessage := strings.TrimSpace(strings.TrimPrefix(stripped, fields[0]))

	event := &Event{Command: name, Whisper: &message, Self: self}
	ctx := setEventToContext(b.baseCtx, event)

	for _, cb := range handlers {
		b.runWhisperHandler(ctx, event, commandMessage, cb)
	}
}

func (b *Bot) runHandler(ctx context.Context, event *Event, args []string, cb Handler) {
	ctx, span := tracer.Start(ctx, "command")
	defer span.End()

	span.SetAttributes(
		attribute.String("command.name", event.Command),
		attribute.String("command.caller.name", event.Message.User.DisplayName),
	)

	err := cb(ctx, args, b.conn)
	if err == nil {
		span.SetStatus(codes.Ok, "successfully executed a command without error")
		return
	}

	if errors.Is(err, errMissingBadge) || errors.Is(err, errOnCooldown) {
		span.SetStatus(codes.Error, "a filter rejected the command call")
		b.logger.Debug("a filter rejected the command call", zap.String("command", event.Command), zap.Error(err))
		return
	}

	span.SetStatus(codes.Error, "unhandled error occurred")
	b.logger.Error("unhandled error occurred in a command handler", zap.String("command", event.Command), zap.Error(err))
}

func (b *Bot) runWhisperHandler(ctx context.Context, event *Event, commandMessage string, cb WhisperHandler) {
	ctx, span := tracer.Start(ctx, "whisper_command")
	defer span.End()

	span.SetAttributes(
		attribute.String("command.name", event.Command),
		attribute.String("command.caller.name", event.Whisper.User.DisplayName),
	)

	err := cb(ctx, commandMessage, b.conn)
	if err == nil {
		span.SetStatus(codes.Ok, "successfully executed a command without error")
		return
	}

	span.SetStatus(codes.Error, "unhandled error occurred")
	b.logger.Error("unhandled error occurred in a whisper handler", zap.String("command", event.Command), zap.Error(err))
}

func (b *Bot) whisperReply(message *twitch.WhisperMessage, reply string) {
	if b.whisperer == nil {
		b.logger.Debug("skipping a whisper reply, no whisperer is configured", zap.String("user", message.User.Name))
		return
	}

	if err := b.whisperer.Whisper(b.baseCtx, message.User.ID, reply); err != nil {
		b.logger.Error("failed to send a whisper reply", zap.String("user", message.User.Name), zap.Error(err))
	}
}

// tokenizeMessage strips punctuation and splits the rest on non-word runs,
// so "gg, wp!" yields the same tokens as "gg wp".
func tokenizeMessage(text string) []string {
	stripped := punctuationPattern.ReplaceAllString(text, "")
	return boundaryPattern.Split(stripped, -1)
}

func personalizeReply(reply, displayName string) string {
	return strings.Replace(reply, "@user", "@"+displayName, 1)
}
