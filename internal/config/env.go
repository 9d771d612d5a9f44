package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultAnnounceInterval = 15 * time.Minute

type Config struct {
	TwitchClientID     string
	TwitchClientSecret string
	TwitchChatbotName  string
	TwitchChannels     []string
	ChatPrefix         string
	WhisperPrefix      string
	IgnoreSelf         bool
	CipherPassphrase   string
	DatabasePath       string
	DatabaseUsername   string
	DatabasePassword   string
	CredentialsFile    string
	EmoteRegistryURL   string
	AnnounceInterval   time.Duration
	AnnounceMessages   []string
	OTELInstanceID     string
	OTELAPIToken       string
}

func New(isDevEnv bool) (*Config, error) {
	envFileName := ".env"

	if isDevEnv {
		envFileName = ".dev.env"
	}

	err := godotenv.Load(envFileName)
	if err != nil {
		return nil, errors.Join(errors.New("failed to load environment variables from a file"), err)
	}

	ignoreSelf := false
	if raw := os.Getenv("IGNORE_SELF"); raw != "" {
		ignoreSelf, err = strconv.ParseBool(raw)
		if err != nil {
			return nil, errors.Join(errors.New("failed to parse IGNORE_SELF"), err)
		}
	}

	announceInterval := defaultAnnounceInterval
	if raw := os.Getenv("ANNOUNCE_INTERVAL"); raw != "" {
		announceInterval, err = time.ParseDuration(raw)
		if err != nil {
			return nil, errors.Join(errors.New("failed to parse ANNOUNCE_INTERVAL"), err)
		}
	}

	channels := splitAndTrim(os.Getenv("TWITCH_CHANNELS"), ",")
	for i, channel := range channels {
		channels[i] = strings.TrimPrefix(channel, "#")
	}

	cfg := &Config{
		TwitchClientID:     os.Getenv("TWITCH_CLIENT_ID"),
		TwitchClientSecret: os.Getenv("TWITCH_CLIENT_SECRET"),
		TwitchChatbotName:  os.Getenv("TWITCH_CHATBOT_NAME"),
		TwitchChannels:     channels,
		ChatPrefix:         os.Getenv("CHAT_COMMAND_PREFIX"),
		WhisperPrefix:      os.Getenv("WHISPER_COMMAND_PREFIX"),
		IgnoreSelf:         ignoreSelf,
		CipherPassphrase:   os.Getenv("CIPHER_PASSPHRASE"),
		DatabasePath:       os.Getenv("DATABASE_PATH"),
		DatabaseUsername:   os.Getenv("DATABASE_USERNAME"),
		DatabasePassword:   os.Getenv("DATABASE_PASSWORD"),
		CredentialsFile:    os.Getenv("CREDENTIALS_FILE"),
		EmoteRegistryURL:   os.Getenv("EMOTE_REGISTRY_URL"),
		AnnounceInterval:   announceInterval,
		AnnounceMessages:   splitAndTrim(os.Getenv("ANNOUNCE_MESSAGES"), "|"),
		OTELInstanceID:     os.Getenv("OTEL_INSTANCE_ID"),
		OTELAPIToken:       os.Getenv("OTEL_API_TOKEN"),
	}

	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	var err error

	if c.TwitchClientID == "" {
		err = errors.Join(err, errors.New("TWITCH_CLIENT_ID is not set"))
	}
	if c.TwitchChatbotName == "" {
		err = errors.Join(err, errors.New("TWITCH_CHATBOT_NAME is not set"))
	}
	if len(c.TwitchChannels) == 0 {
		err = errors.Join(err, errors.New("TWITCH_CHANNELS is not set"))
	}

	return err
}

func splitAndTrim(value, separator string) []string {
	parts := strings.Split(value, separator)
	out := make([]string, 0, len(parts))

	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}

	return out
}
