// Package bot turns the raw message stream of a chat connection into
// command calls, word-trigger replies and parsed message events.
//
// The bot itself owns no protocol logic. It subscribes to an existing chat
// connection, classifies every inbound message exactly once and hands the
// outcome to the tables and handlers it was configured with.
package bot

import (
	"context"
	"errors"
	"strings"

	"github.com/gempir/go-twitch-irc/v4"
	"github.com/qbotlabs/twitchkit/internal/emotes"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

const defaultPrefix = "!"

var tracer = otel.Tracer("github.com/qbotlabs/twitchkit/internal/bot")

// Handler runs in response to a chat command. The dispatched message is bound
// to the context, see EventFromContext.
type Handler func(ctx context.Context, args []string, chatClient ChatClient) error

// WhisperHandler runs in response to a whispered command. It receives the
// remainder of the whisper after the command token, trimmed.
type WhisperHandler func(ctx context.Context, commandMessage string, chatClient ChatClient) error

// ParsedHandler runs for every public non-command message after the
// word-trigger and emote pass.
type ParsedHandler func(ctx context.Context, parsed *ParsedMessage) error

// Filter wraps a Handler with a check that may reject the call.
type Filter func(Handler) Handler

// ChatClient is the messaging surface handlers reply through. A connected
// *twitch.Client satisfies it.
type ChatClient interface {
	Say(channelName, message string)
	Reply(channelName, parentMessageID, message string)
	Join(channels ...string)
	Depart(channelName string)
}

type connection interface {
	ChatClient
	Connect() error
	Disconnect() error
	OnConnect(handler func())
	OnPrivateMessage(handler func(message twitch.PrivateMessage))
	OnWhisperMessage(handler func(message twitch.WhisperMessage))
}

type emoteFetcher interface {
	Fetch(ctx context.Context) (emotes.Table, error)
}

type whisperer interface {
	Whisper(ctx context.Context, toUserID, message string) error
}

// Options configures the dispatch tables of a Bot.
type Options struct {
	Username      string            // Username is the login the bot connects with, used for the self check.
	Channels      []string          // Channels lists the channels to join on connect.
	ChatPrefix    string            // ChatPrefix marks public messages as commands, "!" when empty.
	WhisperPrefix string            // WhisperPrefix marks whispers as commands, "!" when empty.
	Commands      map[string]string // Commands maps a command name to a canned reply with an optional @user placeholder.
	WordTriggers  map[string]string // WordTriggers maps a bare word to a canned reply, matched against every token.
	IgnoreSelf    bool              // IgnoreSelf drops messages the bot sent itself.
}

type Bot struct {
	conn         connection
	emoteFetcher emoteFetcher
	whisperer    whisperer
	logger       *zap.Logger

	username      string
	channels      []string
	chatPrefix    string
	whisperPrefix string
	ignoreSelf    bool

	commands     map[string]string
	wordTriggers map[string]string

	chatHandlers    map[string][]Handler
	whisperHandlers map[string][]WhisperHandler
	parsedHandlers  []ParsedHandler

	emotes  emotes.Table
	baseCtx context.Context
}

func New(conn connection, opts Options, logger *zap.Logger) *Bot {
	chatPrefix := opts.ChatPrefix
	if chatPrefix == "" {
		chatPrefix = defaultPrefix
	}
	whisperPrefix := opts.WhisperPrefix
	if whisperPrefix == "" {
		whisperPrefix = defaultPrefix
	}

	// Command names are folded once here, so the per-message lookup stays a
	// plain map access.
	commands := make(map[string]string, len(opts.Commands))
	for name, reply := range opts.Commands {
		commands[strings.ToLower(name)] = reply
	}

	return &Bot{
		conn:            conn,
		logger:          logger.Named("bot"),
		username:        opts.Username,
		channels:        opts.Channels,
		chatPrefix:      chatPrefix,
		whisperPrefix:   whisperPrefix,
		ignoreSelf:      opts.IgnoreSelf,
		commands:        commands,
		wordTriggers:    opts.WordTriggers,
		chatHandlers:    make(map[string][]Handler),
		whisperHandlers: make(map[string][]WhisperHandler),
	}
}

// UseEmoteFetcher makes Connect download the emote table before joining any
// channel, so the substitution pass never runs against an empty table.
func (b *Bot) UseEmoteFetcher(fetcher emoteFetcher) {
	b.emoteFetcher = fetcher
}

// UseWhisperer wires the collaborator that delivers whisper replies. Without
// one, replies to whispered commands are skipped.
func (b *Bot) UseWhisperer(w whisperer) {
	b.whisperer = w
}

// OnChatCommand registers a handler for a command without a canned reply.
// The name is matched case-insensitively, filters are applied right to left.
func (b *Bot) OnChatCommand(name string, cb Handler, filters ...Filter) {
	for i := len(filters) - 1; i >= 0; i-- {
		cb = filters[i](cb)
	}

	name = strings.ToLower(name)
	b.chatHandlers[name] = append(b.chatHandlers[name], cb)
}

// OnWhisperCommand registers a handler for a whispered command.
func (b *Bot) OnWhisperCommand(name string, cb WhisperHandler) {
	name = strings.ToLower(name)
	b.whisperHandlers[name] = append(b.whisperHandlers[name], cb)
}

// OnChatParsed registers a handler for the annotated copy of every public
// non-command message.
func (b *Bot) OnChatParsed(cb ParsedHandler) {
	b.parsedHandlers = append(b.parsedHandlers, cb)
}

// Connect fetches the emote table, joins the configured channels and blocks
// on the chat connection until Disconnect is called. Handlers have to be
// registered before calling it.
func (b *Bot) Connect(ctx context.Context) error {
	b.baseCtx = ctx

	if b.emoteFetcher != nil {
		table, err := b.emoteFetcher.Fetch(ctx)
		if err != nil {
			return errors.Join(errors.New("failed to fetch the emote table"), err)
		}
		b.emotes = table
	}

	b.conn.OnConnect(func() {
		b.logger.Info("connected to the chat", zap.Strings("channels", b.channels))
	})
	b.conn.OnPrivateMessage(b.handlePrivateMessage)
	b.conn.OnWhisperMessage(b.handleWhisperMessage)

	b.conn.Join(b.channels...)

	return b.conn.Connect()
}

func (b *Bot) Disconnect() error {
	return b.conn.Disconnect()
}
