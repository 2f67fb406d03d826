// Package config loads the bot configuration from defaults, an optional
// config.yaml and BOT_* environment variables, and validates the result.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// ErrConfiguration wraps every loading or validation failure.
var ErrConfiguration = errors.New("configuration error")

// Config is the full bot configuration.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Bot       BotConfig       `mapstructure:"bot"`
	Profile   ProfileConfig   `mapstructure:"profile"`
	Network   NetworkConfig   `mapstructure:"network"`
	Call      CallConfig      `mapstructure:"call"`
	Shutdown  ShutdownConfig  `mapstructure:"shutdown"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Notify    NotifyConfig    `mapstructure:"notify"`
}

// LoggerConfig selects log level and output format.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// BotConfig is the bot's identity.
type BotConfig struct {
	Name          string        `mapstructure:"name"           validate:"required,max=128"`
	Statuses      []string      `mapstructure:"statuses"       validate:"required,min=1,dive,required,max=1007"`
	RefreshPeriod time.Duration `mapstructure:"refresh_period" validate:"min=1m"`
	Version       string        `mapstructure:"version"        validate:"required"`
}

// ProfileConfig locates the saved profile. An empty path selects the
// per-user cache file.
type ProfileConfig struct {
	Path string `mapstructure:"path"`
}

// BootstrapNode is one entry node of the network.
type BootstrapNode struct {
	Host      string `mapstructure:"host"       validate:"required"`
	Port      uint16 `mapstructure:"port"       validate:"required"`
	PublicKey string `mapstructure:"public_key" validate:"required,hexadecimal,len=64"`
}

// NetworkConfig configures the message engine's transport.
type NetworkConfig struct {
	UDPEnabled     bool            `mapstructure:"udp_enabled"`
	BootstrapNodes []BootstrapNode `mapstructure:"bootstrap_nodes" validate:"dive"`
}

// CallConfig holds the bitrates calls are answered and placed with.
type CallConfig struct {
	AudioBitrate uint32 `mapstructure:"audio_bitrate" validate:"gt=0"`
	VideoBitrate uint32 `mapstructure:"video_bitrate" validate:"gt=0"`
}

// ShutdownConfig bounds how long shutdown waits for the engine loops.
type ShutdownConfig struct {
	GracePeriod time.Duration `mapstructure:"grace_period" validate:"min=100ms,max=5m"`
}

// DatabaseConfig configures the history database.
type DatabaseConfig struct {
	Path             string        `mapstructure:"path"              validate:"required"`
	HistoryRetention time.Duration `mapstructure:"history_retention" validate:"min=1h"`
}

// TaskConfig enables one scheduled task. Schedule is a cron expression with
// a seconds field.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}

// SchedulerConfig lists the scheduled tasks by name.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

// TelegramConfig enables admin notifications to a Telegram chat.
type TelegramConfig struct {
	Token  string `mapstructure:"token"`
	ChatID int64  `mapstructure:"chat_id" validate:"required_with=Token"`
}

// NotifyConfig configures admin notifications.
type NotifyConfig struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// Load reads the configuration. The file is config.yaml in the working
// directory or in $HOME/.config/mrprickles, or whatever BOT_CONFIG names. A
// missing file is not an error unless BOT_CONFIG was set.
func Load() (*Config, error) {
	return load(viper.New(), os.Getenv("BOT_CONFIG"))
}

func load(v *viper.Viper, explicitPath string) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "mrprickles"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicitPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: failed to read config file: %w", ErrConfiguration, err)
		}
		slog.Debug("No config file found, using defaults and environment")
	} else {
		slog.Debug("Config file loaded", "path", v.ConfigFileUsed())
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %w", ErrConfiguration, err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	return cfg, nil
}
