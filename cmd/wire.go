package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/bnema/whitebunny-cli/internal/adapters/adsgram"
	"github.com/bnema/whitebunny-cli/internal/adapters/config"
	"github.com/bnema/whitebunny-cli/internal/adapters/gameserver"
	"github.com/bnema/whitebunny-cli/internal/adapters/httpclient"
	"github.com/bnema/whitebunny-cli/internal/adapters/render/console"
	statusadapter "github.com/bnema/whitebunny-cli/internal/adapters/render/status"
	filestore "github.com/bnema/whitebunny-cli/internal/adapters/secrets/file"
	"github.com/bnema/whitebunny-cli/internal/application"
	"github.com/bnema/whitebunny-cli/internal/domain"
	"github.com/bnema/whitebunny-cli/internal/ports"
	"github.com/spf13/viper"
)

type app struct {
	configPath      string
	logLevel        string
	secretStore     ports.SecretStore
	summaryRenderer func(application.Summary, statusadapter.RenderOptions) (string, error)
	clock           ports.Clock
}

// botRuntime is one fully wired bot with the pieces commands need to reach.
type botRuntime struct {
	cfg       config.Config
	logger    *slog.Logger
	transport *gameserver.Transport
	bot       *application.Bot
}

func wireApp() (*app, error) {
	root, err := filestore.DefaultRoot()
	if err != nil {
		return nil, fmt.Errorf("wire secret store: %w", err)
	}

	return &app{
		configPath:      config.DefaultPath,
		logLevel:        "info",
		secretStore:     filestore.NewStore(root),
		summaryRenderer: statusadapter.Render,
		clock:           ports.SystemClock{},
	}, nil
}

func (a *app) newLogger(w io.Writer) (*slog.Logger, error) {
	level, err := console.ParseLevel(a.logLevel)
	if err != nil {
		return nil, err
	}
	return slog.New(console.NewHandler(w, &console.Options{Level: level})), nil
}

func (a *app) loadConfig(ctx context.Context) (config.Config, error) {
	cfg, err := config.Load(ctx, viper.New(), a.configPath, a.secretStore)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config %s: %w", a.configPath, err)
	}
	return cfg, nil
}

func (a *app) newHTTPClient(cfg config.Config) (*http.Client, error) {
	client, err := httpclient.New(httpclient.Options{Timeout: cfg.RewardTimeout + 15*time.Second})
	if err != nil {
		return nil, fmt.Errorf("wire http client: %w", err)
	}
	return client, nil
}

func (a *app) newTransport(cfg config.Config, client *http.Client, logger *slog.Logger, onUpdate func(domain.PlayerUpdate), onClose func(error)) *gameserver.Transport {
	return gameserver.New(gameserver.Config{
		Token:             cfg.Token,
		HTTPClient:        client,
		ProbeTimeout:      cfg.ProbeTimeout,
		HeartbeatInterval: cfg.HeartbeatInterval,
		Logger:            logger.With(slog.String("component", "session")),
		OnUpdate:          onUpdate,
		OnClose:           onClose,
	})
}

func (a *app) wireRuntime(ctx context.Context, w io.Writer) (*botRuntime, error) {
	logger, err := a.newLogger(w)
	if err != nil {
		return nil, err
	}
	cfg, err := a.loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	client, err := a.newHTTPClient(cfg)
	if err != nil {
		return nil, err
	}

	router := application.NewUpdateRouter(logger)

	// The bot is built after the transport it supervises.
	var bot *application.Bot
	transport := a.newTransport(cfg, client, logger, router.HandleUpdate, func(cause error) {
		if bot != nil {
			bot.HandleDisconnect(cause)
		}
	})

	budget := domain.NewRetryBudget(domain.BackoffExponential, cfg.MaxReconnectAttempts, time.Second).
		WithMaxDelay(30 * time.Second)
	supervisor := application.NewSupervisor(transport, cfg.Servers, budget, a.clock, logger)

	ads := adsgram.Client{
		API: adsgram.API{BaseURL: cfg.AdAPIURL},
		Placement: adsgram.Placement{
			BlockID:    cfg.AdBlockID,
			UserID:     cfg.TelegramID,
			TGPlatform: "tdesktop",
			Platform:   "Win32",
			Language:   "en",
			Premium:    true,
		},
		HTTPClient: client,
	}

	viewCfg := application.DefaultAdViewConfig()
	viewCfg.RewardCode = cfg.RewardCode
	viewCfg.StatsRequired = cfg.StatsRequired
	viewCfg.ClaimTimeout = cfg.RewardTimeout
	viewCfg.MaxClaimAttempts = cfg.MaxRewardAttempts
	viewer := application.NewAdViewer(ads, transport, supervisor, router, a.clock, viewCfg, logger)

	batchCfg := application.DefaultBatchConfig()
	batchCfg.Parallel = cfg.ParallelAds
	batchCfg.CycleInterval = cfg.AdViewInterval
	stats := &application.Stats{}
	batch := application.NewBatchRunner(viewer, a.clock, batchCfg, stats, logger)

	bot = application.NewBot(transport, supervisor, router, batch, stats, a.clock, application.BotConfig{
		AdMode:      cfg.AdMode,
		AdsPerBatch: cfg.AdsPerBatch,
		Recovery:    cfg.Recovery,
		TapInterval: cfg.TapInterval,
	}, logger)

	return &botRuntime{cfg: cfg, logger: logger, transport: transport, bot: bot}, nil
}

func (a *app) printSummary(w io.Writer, summary application.Summary, title string) error {
	rendered, err := a.summaryRenderer(summary, statusadapter.RenderOptions{Title: title})
	if err != nil {
		return fmt.Errorf("render summary: %w", err)
	}
	_, err = fmt.Fprintln(w, rendered)
	return err
}
