package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"entry-signals/internal/alerting"
	"entry-signals/internal/analysis"
	"entry-signals/internal/config"
	"entry-signals/internal/marketcache"
	"entry-signals/internal/provider"
	"entry-signals/internal/ratelimit"
	"entry-signals/internal/scheduler"
	"entry-signals/internal/service"
	"entry-signals/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

// components holds the market-data stack shared by the run and analyze paths.
type components struct {
	gate     *ratelimit.Gate
	cache    *marketcache.Cache
	client   *provider.Client
	analyzer *analysis.Analyzer
}

func (a *App) newComponents() *components {
	gate := ratelimit.New(ratelimit.Options{
		MinInterval:       a.Config.RateLimit.MinInterval,
		PrivilegedCallers: a.Config.RateLimit.PrivilegedCallers,
	}, a.Logger)

	ttls := marketcache.DefaultTTLs()
	if a.Config.Cache.OHLCTTL > 0 {
		ttls.OHLC = a.Config.Cache.OHLCTTL
	}
	if a.Config.Cache.MetricsTTL > 0 {
		ttls.Metrics = a.Config.Cache.MetricsTTL
	}
	if a.Config.Cache.PriceTTL > 0 {
		ttls.Price = a.Config.Cache.PriceTTL
	}
	if a.Config.Cache.VolumeTTL > 0 {
		ttls.Volume = a.Config.Cache.VolumeTTL
	}
	cache := marketcache.New(ttls)

	client := provider.NewClient(provider.Options{
		BaseURL:        a.Config.Provider.BaseURL,
		HistoryTimeout: a.Config.Provider.HistoryTimeout,
		MetricsTimeout: a.Config.Provider.MetricsTimeout,
		MaxAttempts:    a.Config.Provider.MaxAttempts,
		RetryBaseDelay: a.Config.Provider.RetryBaseDelay,
		MaxRetryDelay:  a.Config.Provider.MaxRetryDelay,
		LookbackDays:   a.Config.Provider.LookbackDays,
		UserAgent:      a.Config.Provider.UserAgent,
	}, gate, cache, provider.NewSyntheticGenerator(nil), a.Logger)

	analyzer := analysis.NewAnalyzer(client, a.Config.Analysis.Workers, a.Logger)

	return &components{gate: gate, cache: cache, client: client, analyzer: analyzer}
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// Run executes the long-running analysis service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; persistence disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	sched := scheduler.New(scheduler.Options{
		Interval:      a.Config.Scheduler.Interval,
		AlignToBucket: a.Config.Scheduler.AlignToBucket,
		StartupDelay:  a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	comps := a.newComponents()
	notifier := a.newNotifier()

	var snapshotStore storage.SnapshotStore
	var alertStore storage.EntryAlertStore
	if store != nil {
		snapshotStore = store
		alertStore = store
	}

	svc := service.New(a.Config, sched, comps.client, comps.analyzer, comps.gate, snapshotStore, alertStore, notifier, a.Logger)

	a.Logger.Info().Msg("starting analysis service")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("analysis service stopped")
	return nil
}

// AnalyzeOptions configure a one-shot analysis run.
type AnalyzeOptions struct {
	Assets []string
	// Price pins the current price instead of querying the provider. Only
	// meaningful with a single asset.
	Price float64
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}
