package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Every tag carries the full variable name: an explicit envconfig tag
// replaces the derived key entirely, so the DESKBOT_ prefix has to be
// spelled out per field.
type Config struct {
	App        AppConfig
	Telegram   TelegramConfig
	DB         DBConfig
	BookMyDesk BookMyDeskConfig
	Scheduler  SchedulerConfig
}

type AppConfig struct {
	Env             string  `envconfig:"DESKBOT_ENV" default:"development"`
	DefaultTimezone string  `envconfig:"DESKBOT_DEFAULT_TIMEZONE" default:"Europe/Amsterdam"`
	Whitelist       []int64 `envconfig:"DESKBOT_WHITELISTED_CHAT_IDS"`
}

type TelegramConfig struct {
	Token string `envconfig:"DESKBOT_TELEGRAM_TOKEN" required:"true"`
}

type DBConfig struct {
	DSN string `envconfig:"DESKBOT_DB_DSN" required:"true"`
}

type BookMyDeskConfig struct {
	APIURL       string        `envconfig:"DESKBOT_BOOKMYDESK_API_URL" required:"true"`
	ClientID     string        `envconfig:"DESKBOT_BOOKMYDESK_CLIENT_ID" required:"true"`
	ClientSecret string        `envconfig:"DESKBOT_BOOKMYDESK_CLIENT_SECRET" required:"true"`
	UserAgent    string        `envconfig:"DESKBOT_BOOKMYDESK_USER_AGENT" default:"DeskBot"`
	Timeout      time.Duration `envconfig:"DESKBOT_BOOKMYDESK_TIMEOUT" default:"30s"`

	// The token endpoint does not always report an expiry; assume a short one.
	AccessTokenTTL time.Duration `envconfig:"DESKBOT_BOOKMYDESK_ACCESS_TOKEN_TTL" default:"15m"`

	// Location name used for "working externally". Empty disables the feature.
	ExternalLocationName string `envconfig:"DESKBOT_BOOKMYDESK_EXTERNAL_LOCATION_NAME"`
}

type SchedulerConfig struct {
	NotifyInterval  time.Duration `envconfig:"DESKBOT_NOTIFY_INTERVAL" default:"1m"`
	RefreshInterval time.Duration `envconfig:"DESKBOT_SESSION_REFRESH_INTERVAL" default:"1h"`
}

// Load reads configuration from the environment, with an optional .env file
// for development. Missing required values fail fast.
func Load() (*Config, error) {
	// Ignore a missing .env, the environment may carry everything already.
	_ = godotenv.Load(".env")

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// Whitelisted reports whether the chat id may use the bot. An empty
// whitelist admits everyone.
func (a AppConfig) Whitelisted(chatID int64) bool {
	if len(a.Whitelist) == 0 {
		return true
	}
	for _, id := range a.Whitelist {
		if id == chatID {
			return true
		}
	}
	return false
}
