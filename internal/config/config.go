// Package config loads server settings from the environment, with an
// optional .env file layered underneath.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port            string        `envconfig:"PORT" default:"5000"`
	DBURL           string        `envconfig:"DB_URL" required:"true"`
	JWTSecret       string        `envconfig:"JWT_SECRET" required:"true"`
	JWTIssuer       string        `envconfig:"JWT_ISS" default:"hybridchat"`
	TokenTTL        time.Duration `envconfig:"TOKEN_TTL" default:"24h"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat       string        `envconfig:"LOG_FORMAT" default:"text"`
	AllowedOrigins  []string      `envconfig:"ALLOWED_ORIGINS" default:"localhost:3000,localhost:3001"`
	SendBuffer      int           `envconfig:"SEND_BUFFER" default:"64"`
	MaxFrameBytes   int64         `envconfig:"MAX_FRAME_BYTES" default:"32768"`
	PingInterval    time.Duration `envconfig:"PING_INTERVAL" default:"30s"`
	PersistWorkers  int           `envconfig:"PERSIST_WORKERS" default:"4"`
	PersistQueue    int           `envconfig:"PERSIST_QUEUE" default:"1024"`
	MessageRate     int           `envconfig:"MESSAGE_RATE" default:"30"`
	MessageWindow   time.Duration `envconfig:"MESSAGE_WINDOW" default:"1m"`
	AuthRate        int           `envconfig:"AUTH_RATE" default:"10"`
	AuthWindow      time.Duration `envconfig:"AUTH_WINDOW" default:"1m"`
	EventsInterval  time.Duration `envconfig:"EVENTS_INTERVAL" default:"3s"`
	WSRequireToken  bool          `envconfig:"WS_REQUIRE_TOKEN" default:"false"`
	AdminUsername   string        `envconfig:"ADMIN_USERNAME" default:"admin"`
	AdminEmail      string        `envconfig:"ADMIN_EMAIL"`
	AdminPassword   string        `envconfig:"ADMIN_PASSWORD"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// Load reads .env files (if any) and then the process environment. Variables
// already set in the environment win over .env entries.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load .env: %w", err)
		}
		slog.Debug("no .env file found, using process environment")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Logger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func (c Config) Logger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level, AddSource: level == slog.LevelDebug}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
