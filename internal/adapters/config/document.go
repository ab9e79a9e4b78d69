package config

import (
	"fmt"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

type document struct {
	Path       string          `toml:"path"`
	Token      string          `toml:"token"`
	TelegramID string          `toml:"tg_id"`
	Ads        adsDocument     `toml:"ads"`
	Session    sessionDocument `toml:"session"`
}

type adsDocument struct {
	Mode              string `toml:"mode"`
	Parallel          int    `toml:"parallel"`
	PerBatch          int    `toml:"per_batch"`
	ViewIntervalMS    int64  `toml:"view_interval_ms"`
	BlockID           string `toml:"block_id"`
	APIURL            string `toml:"api_url"`
	RewardCode        string `toml:"reward_code"`
	RewardTimeoutMS   int64  `toml:"reward_timeout_ms"`
	MaxRewardAttempts int    `toml:"max_reward_attempts"`
	StatsRequired     bool   `toml:"stats_required"`
}

type sessionDocument struct {
	Servers              []string `toml:"servers"`
	Recovery             string   `toml:"recovery"`
	TapIntervalMS        int64    `toml:"tap_interval_ms"`
	HeartbeatIntervalMS  int64    `toml:"heartbeat_interval_ms"`
	ProbeTimeoutMS       int64    `toml:"probe_timeout_ms"`
	MaxReconnectAttempts int      `toml:"max_reconnect_attempts"`
}

// MarshalTOML renders the effective configuration. Callers printing it should
// marshal Redacted() instead.
func (c Config) MarshalTOML() ([]byte, error) {
	doc := document{
		Path:       c.Path,
		Token:      c.Token,
		TelegramID: c.TelegramID,
		Ads: adsDocument{
			Mode:              string(c.AdMode),
			Parallel:          c.ParallelAds,
			PerBatch:          c.AdsPerBatch,
			ViewIntervalMS:    millis(c.AdViewInterval),
			BlockID:           c.AdBlockID,
			APIURL:            c.AdAPIURL,
			RewardCode:        c.RewardCode,
			RewardTimeoutMS:   millis(c.RewardTimeout),
			MaxRewardAttempts: c.MaxRewardAttempts,
			StatsRequired:     c.StatsRequired,
		},
		Session: sessionDocument{
			Servers:              c.Servers,
			Recovery:             string(c.Recovery),
			TapIntervalMS:        millis(c.TapInterval),
			HeartbeatIntervalMS:  millis(c.HeartbeatInterval),
			ProbeTimeoutMS:       millis(c.ProbeTimeout),
			MaxReconnectAttempts: c.MaxReconnectAttempts,
		},
	}

	data, err := toml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}

func millis(d time.Duration) int64 {
	return d.Milliseconds()
}
