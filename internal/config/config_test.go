package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/viper"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := load(viper.New(), writeConfig(t, "{}\n"))
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}

	if cfg.Logger.Level != DefaultLogLevel || cfg.Logger.JSON {
		t.Errorf("logger = %+v", cfg.Logger)
	}
	if cfg.Bot.Name != DefaultBotName || cfg.Bot.RefreshPeriod != 6*time.Hour {
		t.Errorf("bot = %+v", cfg.Bot)
	}
	if diff := cmp.Diff(DefaultStatuses, cfg.Bot.Statuses); diff != "" {
		t.Errorf("statuses mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(DefaultBootstrapNodes, cfg.Network.BootstrapNodes); diff != "" {
		t.Errorf("bootstrap nodes mismatch (-want +got):\n%s", diff)
	}
	if cfg.Call.AudioBitrate != 48 || cfg.Call.VideoBitrate != 5000 {
		t.Errorf("call = %+v", cfg.Call)
	}
	if cfg.Shutdown.GracePeriod != DefaultGracePeriod {
		t.Errorf("grace period = %v", cfg.Shutdown.GracePeriod)
	}
	if task := cfg.Scheduler.Tasks["sql_maintenance"]; !task.Enabled || task.Schedule == "" {
		t.Errorf("sql_maintenance task = %+v", task)
	}
	if cfg.Notify.Telegram.Token != "" {
		t.Error("telegram notifications enabled by default")
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
logger:
  level: debug
  json: true
bot:
  name: Spike
  statuses: [prickly, pointy, green]
  refresh_period: 1h
network:
  udp_enabled: false
  bootstrap_nodes:
    - host: 127.0.0.1
      port: 33445
      public_key: 788237D34978D1D5BD822F0A5BEBD2C53C64CC31CD3149350EE27D4D9A2F9B6B
shutdown:
  grace_period: 2s
scheduler:
  tasks:
    history_prune:
      enabled: false
notify:
  telegram:
    token: "123:abc"
    chat_id: 42
`)
	cfg, err := load(viper.New(), path)
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}

	if cfg.Logger.Level != "debug" || !cfg.Logger.JSON {
		t.Errorf("logger = %+v", cfg.Logger)
	}
	if cfg.Bot.Name != "Spike" || len(cfg.Bot.Statuses) != 3 || cfg.Bot.RefreshPeriod != time.Hour {
		t.Errorf("bot = %+v", cfg.Bot)
	}
	if cfg.Network.UDPEnabled || len(cfg.Network.BootstrapNodes) != 1 {
		t.Errorf("network = %+v", cfg.Network)
	}
	if cfg.Shutdown.GracePeriod != 2*time.Second {
		t.Errorf("grace period = %v", cfg.Shutdown.GracePeriod)
	}
	if cfg.Scheduler.Tasks["history_prune"].Enabled {
		t.Error("history_prune still enabled")
	}
	if !cfg.Scheduler.Tasks["sql_maintenance"].Enabled {
		t.Error("sql_maintenance lost its default")
	}
	if cfg.Notify.Telegram.ChatID != 42 {
		t.Errorf("telegram = %+v", cfg.Notify.Telegram)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("BOT_LOGGER_LEVEL", "warn")
	t.Setenv("BOT_SHUTDOWN_GRACE_PERIOD", "750ms")

	cfg, err := load(viper.New(), writeConfig(t, "logger:\n  level: debug\n"))
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}
	if cfg.Logger.Level != "warn" {
		t.Errorf("level = %q, want warn", cfg.Logger.Level)
	}
	if cfg.Shutdown.GracePeriod != 750*time.Millisecond {
		t.Errorf("grace period = %v", cfg.Shutdown.GracePeriod)
	}
}

func TestLoad_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"bad log level", "logger:\n  level: loud\n"},
		{"empty statuses", "bot:\n  statuses: []\n"},
		{"short node key", "network:\n  bootstrap_nodes:\n    - {host: a, port: 1, public_key: ABCD}\n"},
		{"zero bitrate", "call:\n  audio_bitrate: 0\n"},
		{"token without chat", "notify:\n  telegram:\n    token: abc\n"},
		{"enabled task without schedule", "scheduler:\n  tasks:\n    custom:\n      enabled: true\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := load(viper.New(), writeConfig(t, tt.body))
			if !errors.Is(err, ErrConfiguration) {
				t.Errorf("load() error = %v, want ErrConfiguration", err)
			}
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, err := load(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, ErrConfiguration) {
		t.Errorf("load() error = %v, want ErrConfiguration", err)
	}
}
