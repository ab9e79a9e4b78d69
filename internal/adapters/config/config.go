package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bnema/whitebunny-cli/internal/adapters/adsgram"
	"github.com/bnema/whitebunny-cli/internal/application"
	"github.com/bnema/whitebunny-cli/internal/domain"
	"github.com/bnema/whitebunny-cli/internal/ports"
	"github.com/spf13/viper"
)

const (
	DefaultPath = "data.txt"
	envPrefix   = "WB"
	tokenSecret = "token"
)

const (
	KeyToken                = "token"
	KeyTelegramID           = "tg_id"
	KeyParallelAds          = "parallel_ads"
	KeyAdViewInterval       = "ad_view_interval"
	KeyAdMode               = "ad_mode"
	KeyAdsPerBatch          = "ads_per_batch"
	KeyServers              = "servers"
	KeyRecovery             = "recovery"
	KeyRewardCode           = "reward_code"
	KeyAdBlockID            = "ad_block_id"
	KeyAdAPIURL             = "ad_api_url"
	KeyStatsRequired        = "stats_required"
	KeyTapInterval          = "tap_interval"
	KeyHeartbeatInterval    = "heartbeat_interval"
	KeyProbeTimeout         = "probe_timeout"
	KeyRewardTimeout        = "reward_timeout"
	KeyMaxRewardAttempts    = "max_reward_attempts"
	KeyMaxReconnectAttempts = "max_reconnect_attempts"
)

var (
	ErrMissingKey   = errors.New("missing required config key")
	ErrInvalidValue = errors.New("invalid config value")
)

// Config is the effective bot configuration. Durations are read as
// milliseconds.
type Config struct {
	Path                 string
	Token                string
	TelegramID           string
	ParallelAds          int
	AdViewInterval       time.Duration
	AdMode               application.AdMode
	AdsPerBatch          int
	Servers              []string
	Recovery             application.RecoveryPolicy
	RewardCode           string
	AdBlockID            string
	AdAPIURL             string
	StatsRequired        bool
	TapInterval          time.Duration
	HeartbeatInterval    time.Duration
	ProbeTimeout         time.Duration
	RewardTimeout        time.Duration
	MaxRewardAttempts    int
	MaxReconnectAttempts int
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	if c.Token != "" {
		c.Token = "***"
	}
	return c
}

// Load reads path (key=value lines, or TOML when the extension says so),
// overlays WB_* environment variables and falls back to secrets for the
// token. A missing file is not an error on its own.
func Load(ctx context.Context, v *viper.Viper, path string, secrets ports.SecretStore) (Config, error) {
	if v == nil {
		v = viper.New()
	}
	if strings.TrimSpace(path) == "" {
		path = DefaultPath
	}

	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := readFile(v, path); err != nil {
		return Config{}, err
	}

	cfg := Config{
		Path:       path,
		Token:      strings.TrimSpace(v.GetString(KeyToken)),
		TelegramID: strings.TrimSpace(v.GetString(KeyTelegramID)),
		RewardCode: strings.TrimSpace(v.GetString(KeyRewardCode)),
		AdBlockID:  strings.TrimSpace(v.GetString(KeyAdBlockID)),
		AdAPIURL:   strings.TrimSpace(v.GetString(KeyAdAPIURL)),
		Servers:    listValue(v, KeyServers),
		Recovery:   application.RecoveryPolicy(strings.ToLower(strings.TrimSpace(v.GetString(KeyRecovery)))),
	}

	if cfg.Token == "" && secrets != nil {
		token, err := secrets.Get(ctx, tokenSecret)
		switch {
		case err == nil:
			cfg.Token = token
		case !errors.Is(err, domain.ErrSecretNotFound):
			return Config{}, fmt.Errorf("read stored token: %w", err)
		}
	}

	var missing []string
	if cfg.Token == "" {
		missing = append(missing, strings.ToUpper(KeyToken))
	}
	if cfg.TelegramID == "" {
		missing = append(missing, strings.ToUpper(KeyTelegramID))
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("%w: %s", ErrMissingKey, strings.Join(missing, ", "))
	}

	var err error
	if cfg.StatsRequired, err = boolValue(v, KeyStatsRequired); err != nil {
		return Config{}, err
	}

	ints := []struct {
		key    string
		dst    *int
		lowest int
	}{
		{KeyParallelAds, &cfg.ParallelAds, 1},
		{KeyAdsPerBatch, &cfg.AdsPerBatch, 1},
		{KeyMaxRewardAttempts, &cfg.MaxRewardAttempts, 1},
		{KeyMaxReconnectAttempts, &cfg.MaxReconnectAttempts, 1},
	}
	for _, field := range ints {
		if *field.dst, err = intValue(v, field.key, field.lowest); err != nil {
			return Config{}, err
		}
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{KeyAdViewInterval, &cfg.AdViewInterval},
		{KeyTapInterval, &cfg.TapInterval},
		{KeyHeartbeatInterval, &cfg.HeartbeatInterval},
		{KeyProbeTimeout, &cfg.ProbeTimeout},
		{KeyRewardTimeout, &cfg.RewardTimeout},
	}
	for _, field := range durations {
		ms, err := intValue(v, field.key, 1)
		if err != nil {
			return Config{}, err
		}
		*field.dst = time.Duration(ms) * time.Millisecond
	}

	mode := strings.ToLower(strings.TrimSpace(v.GetString(KeyAdMode)))
	switch {
	case mode != "":
		cfg.AdMode = application.AdMode(mode)
	case cfg.ParallelAds > 1:
		cfg.AdMode = application.AdModeParallel
	default:
		cfg.AdMode = application.AdModeSequential
	}
	if !cfg.AdMode.Valid() {
		return Config{}, fmt.Errorf("%w: %s=%q", ErrInvalidValue, strings.ToUpper(KeyAdMode), mode)
	}
	if !cfg.Recovery.Valid() {
		return Config{}, fmt.Errorf("%w: %s=%q", ErrInvalidValue, strings.ToUpper(KeyRecovery), cfg.Recovery)
	}
	if len(cfg.Servers) == 0 {
		return Config{}, fmt.Errorf("%w: %s is empty", ErrInvalidValue, strings.ToUpper(KeyServers))
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyParallelAds, 1)
	v.SetDefault(KeyAdViewInterval, 60000)
	v.SetDefault(KeyAdsPerBatch, 10)
	v.SetDefault(KeyServers, strings.Join(application.DefaultServers, ","))
	v.SetDefault(KeyRecovery, string(application.RecoveryReconnect))
	v.SetDefault(KeyRewardCode, application.DefaultAdViewConfig().RewardCode)
	v.SetDefault(KeyAdBlockID, "1440")
	v.SetDefault(KeyAdAPIURL, adsgram.DefaultBaseURL)
	v.SetDefault(KeyStatsRequired, true)
	v.SetDefault(KeyTapInterval, 100)
	v.SetDefault(KeyHeartbeatInterval, 1_000_000_000)
	v.SetDefault(KeyProbeTimeout, 8000)
	v.SetDefault(KeyRewardTimeout, 15000)
	v.SetDefault(KeyMaxRewardAttempts, 3)
	v.SetDefault(KeyMaxReconnectAttempts, 5)
}

func readFile(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat config file: %w", err)
	}

	v.SetConfigFile(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		v.SetConfigType("toml")
	default:
		v.SetConfigType("env")
	}

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	return nil
}

func intValue(v *viper.Viper, key string, lowest int) (int, error) {
	raw := strings.TrimSpace(v.GetString(key))
	n, err := strconv.Atoi(raw)
	if err != nil || n < lowest {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidValue, strings.ToUpper(key), raw)
	}
	return n, nil
}

func boolValue(v *viper.Viper, key string) (bool, error) {
	raw := strings.ToLower(strings.TrimSpace(v.GetString(key)))
	switch raw {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	}
	return false, fmt.Errorf("%w: %s=%q", ErrInvalidValue, strings.ToUpper(key), raw)
}

// listValue accepts a comma separated string or a TOML array.
func listValue(v *viper.Viper, key string) []string {
	parts := v.GetStringSlice(key)
	if raw, ok := v.Get(key).(string); ok {
		parts = strings.Split(raw, ",")
	}

	var out []string
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
