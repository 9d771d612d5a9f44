package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gempir/go-twitch-irc/v4"
	"github.com/qbotlabs/twitchkit/internal/announce"
	"github.com/qbotlabs/twitchkit/internal/bot"
	"github.com/qbotlabs/twitchkit/internal/config"
	"github.com/qbotlabs/twitchkit/internal/credentials"
	"github.com/qbotlabs/twitchkit/internal/emotes"
	"github.com/qbotlabs/twitchkit/internal/helix"
	"github.com/qbotlabs/twitchkit/internal/history"
	"github.com/qbotlabs/twitchkit/internal/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultCredentialsFile = "access_credentials.json"

type credentialStore interface {
	Load(ctx context.Context, channelName string) (helix.Credentials, error)
	Save(ctx context.Context, credentials helix.Credentials, channelName string) error
}

// helixWhisperer delivers whisper replies through the Helix whisper endpoint
// on behalf of the bot's own account.
type helixWhisperer struct {
	client      *helix.Client
	fromUserID  string
	accessToken string
}

func (w *helixWhisperer) Whisper(ctx context.Context, toUserID, message string) error {
	return w.client.SendWhisper(ctx, &helix.WhisperParams{
		AccessToken: w.accessToken,
		FromUserID:  w.fromUserID,
		ToUserID:    toUserID,
		Message:     message,
	})
}

func main() {
	isDev := flag.Bool("dev", false, "load the development configuration and log human friendly")
	flag.Parse()

	cfg, err := config.New(*isDev)
	if err != nil {
		panic(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !*isDev {
		otelShutdown, err := config.InitOpenTelemetrySDK(ctx, cfg.OTELInstanceID, cfg.OTELAPIToken)
		if err != nil {
			panic(err)
		}
		defer func() {
			_ = otelShutdown(context.Background())
		}()
	}

	log, err := logger.New(*isDev)
	if err != nil {
		panic(err)
	}
	defer logger.Flush(log)

	store, closeStore, err := newCredentialStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to set up the credential store", zap.Error(err))
	}
	defer closeStore()

	helixClient := helix.NewClient(cfg.TwitchClientID, cfg.TwitchClientSecret, log)

	creds, err := store.Load(ctx, cfg.TwitchChatbotName)
	if errors.Is(err, credentials.ErrNotFound) {
		log.Fatal("no credentials are saved for the chatbot account, seed them first",
			zap.String("account", cfg.TwitchChatbotName))
	}
	if err != nil {
		log.Fatal("failed to load the chatbot credentials", zap.Error(err))
	}

	validation, err := helixClient.ValidateToken(ctx, creds.AccessToken)
	if err != nil {
		log.Info("the access token is not valid anymore, refreshing it", zap.Error(err))

		creds, err = helixClient.RefreshToken(ctx, creds.RefreshToken)
		if err != nil {
			log.Fatal("failed to refresh the access token", zap.Error(err))
		}

		if err := store.Save(ctx, creds, cfg.TwitchChatbotName); err != nil {
			log.Fatal("failed to save the refreshed credentials", zap.Error(err))
		}
		log.Info("refreshed and saved the access token")

		validation, err = helixClient.ValidateToken(ctx, creds.AccessToken)
		if err != nil {
			log.Fatal("the refreshed access token did not validate", zap.Error(err))
		}
	}

	ircClient := twitch.NewClient(cfg.TwitchChatbotName, "oauth:"+creds.AccessToken)

	chatBot := bot.New(ircClient, bot.Options{
		Username:      cfg.TwitchChatbotName,
		Channels:      cfg.TwitchChannels,
		ChatPrefix:    cfg.ChatPrefix,
		WhisperPrefix: cfg.WhisperPrefix,
		IgnoreSelf:    cfg.IgnoreSelf,
		Commands: map[string]string{
			"hello":   "Hi @user!",
			"lurk":    "Enjoy the lurk, @user",
			"discord": "All the stream infos are on discord",
		},
		WordTriggers: map[string]string{
			"gg": "Well played!",
		},
	}, log)

	chatBot.UseEmoteFetcher(emotes.NewFetcher(cfg.EmoteRegistryURL, log))
	chatBot.UseWhisperer(&helixWhisperer{
		client:      helixClient,
		fromUserID:  validation.UserID,
		accessToken: creds.AccessToken,
	})

	chatHistory := history.New(256)
	chatBot.OnChatParsed(func(ctx context.Context, parsed *bot.ParsedMessage) error {
		chatHistory.Record(history.Entry{Channel: parsed.Channel, Username: parsed.User.Name, Text: parsed.Message})
		return nil
	})

	registerCommands(chatBot, helixClient, chatHistory, creds.AccessToken, validation.UserID)

	announcer := announce.New(cfg.AnnounceInterval, cfg.TwitchChannels[0], ircClient, log)
	announcer.AddMessages(cfg.AnnounceMessages...)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return chatBot.Connect(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		return chatBot.Disconnect()
	})

	if len(cfg.AnnounceMessages) > 0 {
		g.Go(func() error {
			announcer.Start(gctx)
			return nil
		})
	}

	err = g.Wait()
	if err != nil && !errors.Is(err, twitch.ErrClientDisconnected) {
		log.Fatal("the chatbot stopped with an error", zap.Error(err))
	}

	log.Info("the chatbot shut down cleanly")
}

func newCredentialStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (credentialStore, func(), error) {
	if cfg.DatabasePath == "" {
		path := cfg.CredentialsFile
		if path == "" {
			path = defaultCredentialsFile
		}

		log.Info("keeping the credentials in a plain file", zap.String("path", path))
		return credentials.NewFileStore(path), func() {}, nil
	}

	aesCipher, err := credentials.NewAESCipher(cfg.CipherPassphrase, 32)
	if err != nil {
		return nil, nil, err
	}

	storage, err := credentials.NewSQLiteStorage(ctx, cfg.DatabasePath, cfg.DatabaseUsername, cfg.DatabasePassword, aesCipher, log)
	if err != nil {
		return nil, nil, err
	}

	return storage, func() {
		_ = storage.Close()
	}, nil
}

func registerCommands(chatBot *bot.Bot, helixClient *helix.Client, chatHistory *history.Buffer, userAccessToken, botUserID string) {
	chatBot.OnChatCommand("ping", func(ctx context.Context, _ []string, chatClient bot.ChatClient) error {
		event := bot.EventFromContext(ctx)
		chatClient.Say(event.Message.Channel, fmt.Sprintf("Pong! @%s", event.Message.User.DisplayName))

		return nil
	})

	chatBot.OnChatCommand("uptime", func(ctx context.Context, _ []string, chatClient bot.ChatClient) error {
		event := bot.EventFromContext(ctx)

		streams, err := helixClient.Streams(ctx, &helix.StreamsParams{UserLogins: []string{event.Message.Channel}})
		if err != nil {
			return err
		}

		if len(streams) == 0 {
			chatClient.Say(event.Message.Channel, "The stream is offline right now")
			return nil
		}

		chatClient.Say(event.Message.Channel, fmt.Sprintf("Live for %s", time.Since(streams[0].StartedAt).Round(time.Second)))
		return nil
	}, bot.Cooldown(10*time.Second))

	chatBot.OnChatCommand("game", func(ctx context.Context, _ []string, chatClient bot.ChatClient) error {
		event := bot.EventFromContext(ctx)

		streams, err := helixClient.Streams(ctx, &helix.StreamsParams{UserLogins: []string{event.Message.Channel}})
		if err != nil {
			return err
		}

		if len(streams) == 0 || streams[0].GameName == "" {
			chatClient.Say(event.Message.Channel, "No game is being played right now")
			return nil
		}

		chatClient.Say(event.Message.Channel, fmt.Sprintf("Currently playing %s", streams[0].GameName))
		return nil
	}, bot.Cooldown(10*time.Second))

	chatBot.OnChatCommand("followage", func(ctx context.Context, _ []string, chatClient bot.ChatClient) error {
		event := bot.EventFromContext(ctx)

		broadcasters, err := helixClient.Users(ctx, &helix.UsersParams{Logins: []string{event.Message.Channel}})
		if err != nil {
			return err
		}
		if len(broadcasters) == 0 {
			return errors.New("the broadcaster was not found")
		}

		follows, err := helixClient.UserFollows(ctx, &helix.UserFollowsParams{
			FromID: event.Message.User.ID,
			ToID:   broadcasters[0].ID,
			First:  1,
		})
		if err != nil {
			return err
		}

		if len(follows) == 0 {
			chatClient.Say(event.Message.Channel, fmt.Sprintf("@%s does not follow the channel yet", event.Message.User.DisplayName))
			return nil
		}

		days := int(time.Since(follows[0].FollowedAt).Hours() / 24)
		chatClient.Say(event.Message.Channel, fmt.Sprintf("@%s has been following for %d days", event.Message.User.DisplayName, days))
		return nil
	}, bot.Cooldown(5*time.Second))

	chatBot.OnChatCommand("vod", func(ctx context.Context, _ []string, chatClient bot.ChatClient) error {
		event := bot.EventFromContext(ctx)

		broadcasters, err := helixClient.Users(ctx, &helix.UsersParams{Logins: []string{event.Message.Channel}})
		if err != nil {
			return err
		}
		if len(broadcasters) == 0 {
			return errors.New("the broadcaster was not found")
		}

		videos, err := helixClient.Videos(ctx, &helix.VideosParams{
			UserID: broadcasters[0].ID,
			First:  1,
			Type:   "archive",
		})
		if err != nil {
			return err
		}

		if len(videos) == 0 {
			chatClient.Say(event.Message.Channel, "There is no VOD yet")
			return nil
		}

		chatClient.Say(event.Message.Channel, fmt.Sprintf("Latest VOD: %s", videos[0].URL))
		return nil
	}, bot.Cooldown(30*time.Second))

	chatBot.OnChatCommand("marker", func(ctx context.Context, args []string, chatClient bot.ChatClient) error {
		event := bot.EventFromContext(ctx)

		broadcasters, err := helixClient.Users(ctx, &helix.UsersParams{Logins: []string{event.Message.Channel}})
		if err != nil {
			return err
		}
		if len(broadcasters) == 0 {
			return errors.New("the broadcaster was not found")
		}

		markers, err := helixClient.CreateStreamMarker(ctx, &helix.StreamMarkerParams{
			AccessToken: userAccessToken,
			UserID:      broadcasters[0].ID,
			Description: strings.Join(args, " "),
		})
		if err != nil {
			return err
		}
		if len(markers) == 0 {
			return errors.New("twitch did not return the created marker")
		}

		chatClient.Say(event.Message.Channel, fmt.Sprintf("Marker dropped at %ds", markers[0].PositionSeconds))
		return nil
	}, bot.RequireBadges([]string{"broadcaster", "moderator"}))

	chatBot.OnWhisperCommand("recap", func(ctx context.Context, _ string, _ bot.ChatClient) error {
		event := bot.EventFromContext(ctx)

		entries := chatHistory.Recent(5)
		if len(entries) == 0 {
			return nil
		}

		lines := make([]string, 0, len(entries))
		for _, entry := range entries {
			lines = append(lines, fmt.Sprintf("%s: %s", entry.Username, entry.Text))
		}

		return helixClient.SendWhisper(ctx, &helix.WhisperParams{
			AccessToken: userAccessToken,
			FromUserID:  botUserID,
			ToUserID:    event.Whisper.User.ID,
			Message:     strings.Join(lines, " | "),
		})
	})
}
