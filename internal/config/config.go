package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config represents the service configuration
type Config struct {
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	Port            int           `envconfig:"PORT" default:"8080"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	// Neither the token nor the channel is required at startup. A missing token
	// surfaces as a Slack error on the first send.
	SlackBotToken      string        `envconfig:"SLACK_BOT_TOKEN"`
	SlackBotTokenParam string        `envconfig:"SLACK_BOT_TOKEN_PARAM"`
	SlackChannel       string        `envconfig:"SLACK_CHANNEL"`
	SlackAPIURL        string        `envconfig:"SLACK_API_URL" default:"https://slack.com/api/"`
	SlackTimeout       time.Duration `envconfig:"SLACK_TIMEOUT" default:"10s"`

	Telemetry TelemetryConfig `envconfig:"OTEL"`
}

// TelemetryConfig holds the OpenTelemetry trace export settings.
type TelemetryConfig struct {
	Enabled     bool    `envconfig:"TRACES_ENABLED" default:"false"`
	Endpoint    string  `envconfig:"EXPORTER_OTLP_ENDPOINT" default:"http://localhost:4318"`
	ServiceName string  `envconfig:"SERVICE_NAME" default:"slack-relay-svc"`
	SampleRate  float64 `envconfig:"TRACES_SAMPLE_RATE" default:"1.0"`
}

// Load reads an optional .env file and processes the environment into a Config.
// Values already present in the environment win over the .env file.
func Load(logger *slog.Logger, envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		logger.Info("No .env file found or error loading it", "error", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	return &cfg, nil
}

// Level returns the configured slog level, falling back to info.
func (c *Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// LogValue keeps the bot token out of log output.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("log_level", c.LogLevel),
		slog.Int("port", c.Port),
		slog.String("slack_bot_token", Mask(c.SlackBotToken)),
		slog.String("slack_bot_token_param", c.SlackBotTokenParam),
		slog.String("slack_channel", c.SlackChannel),
		slog.String("slack_api_url", c.SlackAPIURL),
		slog.Duration("slack_timeout", c.SlackTimeout),
		slog.Bool("otel_traces_enabled", c.Telemetry.Enabled),
		slog.String("otel_endpoint", c.Telemetry.Endpoint),
	)
}

// Mask hides all but the edges of a secret value.
func Mask(value string) string {
	switch {
	case value == "":
		return ""
	case len(value) > 8:
		return value[:4] + "..." + value[len(value)-4:]
	default:
		return "***masked***"
	}
}
