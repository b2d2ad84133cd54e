package settings

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"cryptick/internal/paths"
)

const EnvPrefix = "CRYPTICK"

const (
	StrategyBatch  = "batch"
	StrategySingle = "single"
)

// Settings are the runtime knobs that are not part of the user's saved
// profiles: API endpoint, timeouts, logging and diagnostics.
type Settings struct {
	DataDir         string
	APIBaseURL      string
	APITimeout      time.Duration
	APIRetries      int
	Strategy        string
	RefreshInterval time.Duration
	Debounce        time.Duration
	LogLevel        string
	MetricsAddr     string
}

var flagKeys = map[string]string{
	"data-dir":         "data_dir",
	"api-base-url":     "api.base_url",
	"api-timeout":      "api.timeout",
	"api-retries":      "api.retries",
	"api-strategy":     "api.strategy",
	"refresh-interval": "refresh.interval",
	"hotkey-debounce":  "hotkey.debounce",
	"log-level":        "log.level",
	"metrics-addr":     "metrics.addr",
}

// RegisterFlags declares the runtime flags on fs. Flag values win over
// environment variables, which win over the .env file and defaults.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("data-dir", "", "directory for state, logs and logo cache")
	fs.String("api-base-url", "https://api.geckoterminal.com/api/v2", "GeckoTerminal API base URL")
	fs.Duration("api-timeout", 15*time.Second, "timeout for a single API request")
	fs.Int("api-retries", 2, "retries per API request")
	fs.String("api-strategy", StrategyBatch, "fetch strategy: batch or single")
	fs.Duration("refresh-interval", 0, "override every profile's refresh interval")
	fs.Duration("hotkey-debounce", 300*time.Millisecond, "ignore repeated cycle presses within this window")
	fs.String("log-level", "info", "debug, info, warn or error")
	fs.String("metrics-addr", "", "serve prometheus metrics on this address when set")
}

// Load resolves settings from defaults, <data dir>/.env, CRYPTICK_* env vars
// and the flags registered by RegisterFlags.
func Load(fs *pflag.FlagSet) (*Settings, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag [%s]: %w", name, err)
				}
			}
		}
	}

	v.SetDefault("api.base_url", "https://api.geckoterminal.com/api/v2")
	v.SetDefault("api.timeout", 15*time.Second)
	v.SetDefault("api.retries", 2)
	v.SetDefault("api.strategy", StrategyBatch)
	v.SetDefault("refresh.interval", time.Duration(0))
	v.SetDefault("hotkey.debounce", 300*time.Millisecond)
	v.SetDefault("log.level", "info")
	v.SetDefault("metrics.addr", "")

	layout := paths.Resolve(v.GetString("data_dir"))
	if err := godotenv.Load(layout.EnvFile()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load env file [%s]: %w", layout.EnvFile(), err)
	}

	s := &Settings{
		DataDir:         layout.Root,
		APIBaseURL:      strings.TrimRight(v.GetString("api.base_url"), "/"),
		APITimeout:      v.GetDuration("api.timeout"),
		APIRetries:      v.GetInt("api.retries"),
		Strategy:        strings.ToLower(strings.TrimSpace(v.GetString("api.strategy"))),
		RefreshInterval: v.GetDuration("refresh.interval"),
		Debounce:        v.GetDuration("hotkey.debounce"),
		LogLevel:        v.GetString("log.level"),
		MetricsAddr:     v.GetString("metrics.addr"),
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) Validate() error {
	if s.APIBaseURL == "" || (!strings.HasPrefix(s.APIBaseURL, "http://") && !strings.HasPrefix(s.APIBaseURL, "https://")) {
		return fmt.Errorf("invalid API base URL: %q", s.APIBaseURL)
	}
	if s.APITimeout <= 0 {
		return fmt.Errorf("api timeout must be positive, got %s", s.APITimeout)
	}
	if s.APIRetries < 0 {
		return fmt.Errorf("api retries must not be negative, got %d", s.APIRetries)
	}
	if s.Strategy != StrategyBatch && s.Strategy != StrategySingle {
		return fmt.Errorf("invalid api strategy %q (allowed: batch, single)", s.Strategy)
	}
	if s.RefreshInterval < 0 || s.Debounce < 0 {
		return errors.New("durations must not be negative")
	}
	return nil
}

// Layout returns the file layout under the resolved data directory.
func (s *Settings) Layout() paths.Layout {
	return paths.Resolve(s.DataDir)
}
