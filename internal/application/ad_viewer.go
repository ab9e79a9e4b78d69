package application

import (
	"context"
	"log/slog"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/bnema/whitebunny-cli/internal/domain"
	"github.com/bnema/whitebunny-cli/internal/ports"
)

const checkTaskEvent = "checkTask"

type AdViewConfig struct {
	RewardCode string
	// StatsRequired aborts the view when the pre-flight stats beacon fails.
	StatsRequired    bool
	DefaultDuration  time.Duration
	MinViewDuration  time.Duration
	MaxViewDuration  time.Duration
	ClaimTimeout     time.Duration
	ClaimRetryDelay  time.Duration
	MaxClaimAttempts int
}

func DefaultAdViewConfig() AdViewConfig {
	return AdViewConfig{
		RewardCode:       "rewardAds10000",
		StatsRequired:    true,
		DefaultDuration:  32 * time.Second,
		MinViewDuration:  15 * time.Second,
		MaxViewDuration:  32 * time.Second,
		ClaimTimeout:     15 * time.Second,
		ClaimRetryDelay:  2 * time.Second,
		MaxClaimAttempts: 3,
	}
}

// AdViewer runs one ad view end to end: stats, descriptor, render and show
// beacons, the simulated view, the reward beacon and the server-side claim.
type AdViewer struct {
	ads         ports.AdNetwork
	conn        ports.Connection
	reconnector ports.Reconnector
	router      *UpdateRouter
	clock       ports.Clock
	cfg         AdViewConfig
	logger      *slog.Logger
	jitter      func(lo, hi time.Duration) time.Duration
	seq         atomic.Int64
}

func NewAdViewer(ads ports.AdNetwork, conn ports.Connection, reconnector ports.Reconnector, router *UpdateRouter, clock ports.Clock, cfg AdViewConfig, logger *slog.Logger) *AdViewer {
	defaults := DefaultAdViewConfig()
	if cfg.RewardCode == "" {
		cfg.RewardCode = defaults.RewardCode
	}
	if cfg.DefaultDuration <= 0 {
		cfg.DefaultDuration = defaults.DefaultDuration
	}
	if cfg.ClaimTimeout <= 0 {
		cfg.ClaimTimeout = defaults.ClaimTimeout
	}
	if cfg.MaxClaimAttempts <= 0 {
		cfg.MaxClaimAttempts = defaults.MaxClaimAttempts
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = discardLogger()
	}

	return &AdViewer{
		ads:         ads,
		conn:        conn,
		reconnector: reconnector,
		router:      router,
		clock:       clock,
		cfg:         cfg,
		logger:      logger,
		jitter:      uniformJitter,
	}
}

// View reports whether the ad was watched and its reward confirmed. Step
// failures are logged and never escape.
func (v *AdViewer) View(ctx context.Context) bool {
	logger := v.logger.With(slog.Int64("view", v.seq.Add(1)))

	if err := v.ads.ReportStats(ctx); err != nil {
		if v.cfg.StatsRequired {
			logger.Warn("Skipping failed view ad", slog.String("step", "stats"), slog.Any("error", err))
			return false
		}
		logger.Warn("Stats beacon failed, continuing", slog.Any("error", err))
	}

	ad, err := v.ads.FetchAd(ctx)
	if err != nil {
		logger.Warn("Skipping failed view ad", slog.String("step", "fetch"), slog.Any("error", err))
		return false
	}
	if err := ad.Validate(); err != nil {
		logger.Warn("Skipping failed view ad", slog.String("step", "validate"), slog.Any("error", err))
		return false
	}

	logger.Info("Starting to view ad",
		slog.String("title", ad.DisplayTitle()),
		slog.String("description", ad.Description),
		slog.String("campaign", ad.CampaignID))

	for _, kind := range []domain.BeaconKind{domain.BeaconRender, domain.BeaconShow} {
		if err := v.ads.Beacon(ctx, ad.Beacon(kind)); err != nil {
			logger.Warn("Beacon failed, continuing", slog.String("beacon", string(kind)), slog.Any("error", err))
		}
	}

	duration := v.viewDuration(ad)
	logger.Debug("Watching ad", slog.Duration("duration", duration))
	if !sleep(ctx, v.clock, duration) {
		return false
	}

	if err := v.ads.Beacon(ctx, ad.Beacon(domain.BeaconReward)); err != nil {
		logger.Warn("Skipping failed view ad", slog.String("step", "reward beacon"), slog.Any("error", err))
		return false
	}
	logger.Info("Reward beacon accepted")

	claim, ok := v.claimReward(ctx, logger)
	if !ok {
		logger.Warn("Skipping failed view ad",
			slog.String("step", "claim"),
			slog.Int("attempts", claim.Attempt),
			slog.String("outcome", string(claim.Outcome)))
		return false
	}

	logger.Info("Ad view completed and reward claimed", slog.Int64("total", claim.Points))
	return true
}

func (v *AdViewer) viewDuration(ad domain.AdDescriptor) time.Duration {
	if ad.Duration > 0 {
		return ad.Duration
	}
	if v.cfg.MaxViewDuration > v.cfg.MinViewDuration && v.cfg.MinViewDuration >= 0 {
		return v.jitter(v.cfg.MinViewDuration, v.cfg.MaxViewDuration)
	}
	return v.cfg.DefaultDuration
}

func (v *AdViewer) claimReward(ctx context.Context, logger *slog.Logger) (domain.RewardClaim, bool) {
	budget := domain.NewRetryBudget(domain.BackoffFixed, v.cfg.MaxClaimAttempts, v.cfg.ClaimRetryDelay)

	var claim domain.RewardClaim
	for !budget.Exhausted() {
		budget = budget.Next()
		claim = v.attemptClaim(ctx, budget.Attempts, logger)
		if claim.Confirmed() {
			return claim, true
		}
		if ctx.Err() != nil {
			return claim, false
		}

		logger.Warn("Reward claim not confirmed",
			slog.Int("attempt", claim.Attempt),
			slog.Int("max_attempts", budget.MaxAttempts),
			slog.String("outcome", string(claim.Outcome)))

		if budget.Exhausted() {
			break
		}
		if !sleep(ctx, v.clock, budget.Delay()) {
			return claim, false
		}
	}

	return claim, false
}

func (v *AdViewer) attemptClaim(ctx context.Context, attempt int, logger *slog.Logger) domain.RewardClaim {
	claim := domain.NewRewardClaim(attempt, v.cfg.RewardCode, v.clock.Now().Add(v.cfg.ClaimTimeout))

	if !v.reconnector.EnsureConnected(ctx) {
		return claim.Resolve(domain.ClaimFailed, 0)
	}

	pending, err := v.router.Arm(ctx)
	if err != nil {
		return claim.Resolve(domain.ClaimFailed, 0)
	}
	defer pending.Disarm()

	if !v.conn.Emit(checkTaskEvent, map[string]string{"code": v.cfg.RewardCode}) {
		return claim.Resolve(domain.ClaimFailed, 0)
	}
	logger.Info("Sent task check", slog.String("code", v.cfg.RewardCode), slog.Int("attempt", attempt))

	select {
	case update := <-pending.C():
		return claim.Resolve(domain.ClaimConfirmed, update.TotalPoint)
	case <-v.clock.After(v.cfg.ClaimTimeout):
		return claim.Resolve(domain.ClaimTimedOut, 0)
	case <-ctx.Done():
		return claim.Resolve(domain.ClaimFailed, 0)
	}
}

func uniformJitter(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(rand.Int63n(int64(hi-lo)))
}
