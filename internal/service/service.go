package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"entry-signals/internal/alerting"
	"entry-signals/internal/analysis"
	"entry-signals/internal/config"
	"entry-signals/internal/market"
	"entry-signals/internal/scheduler"
	"entry-signals/internal/storage"
)

// PriceSource supplies current spot prices for watchlist assets.
type PriceSource interface {
	FetchPrice(ctx context.Context, assetID string) (float64, error)
}

// Runner schedules concurrent analysis runs.
type Runner interface {
	Analyze(ctx context.Context, assetID string, currentPrice float64) <-chan analysis.IndicatorSet
}

// IntensiveLock claims the shared rate gate's intensive window for the
// duration of a whole-watchlist run.
type IntensiveLock interface {
	BeginIntensive(caller string)
	EndIntensive(caller string)
}

// analysisCaller is the privileged identity the bucket run presents to the
// rate gate.
const analysisCaller = "analysis"

// Service orchestrates watchlist analysis, persistence, and alerting.
type Service struct {
	scheduler  *scheduler.Scheduler
	prices     PriceSource
	analyzer   Runner
	intensive  IntensiveLock
	store      storage.SnapshotStore
	alertStore storage.EntryAlertStore
	notifier   alerting.Notifier
	logger     zerolog.Logger

	watchlist    []string
	qualityFloor int
	channels     []string
	alertsOn     bool
	locker       storage.AdvisoryLocker
	lockKey      int64
}

// New constructs the analysis service.
func New(cfg *config.Config, sched *scheduler.Scheduler, prices PriceSource, analyzer Runner, intensive IntensiveLock, store storage.SnapshotStore, alertStore storage.EntryAlertStore, notifier alerting.Notifier, logger zerolog.Logger) *Service {
	var locker storage.AdvisoryLocker
	if l, ok := store.(storage.AdvisoryLocker); ok {
		locker = l
	}

	return &Service{
		scheduler:    sched,
		prices:       prices,
		analyzer:     analyzer,
		intensive:    intensive,
		store:        store,
		alertStore:   alertStore,
		notifier:     notifier,
		logger:       logger.With().Str("component", "service").Logger(),
		watchlist:    cfg.Analysis.Watchlist,
		qualityFloor: analysis.Quality(cfg.Alerting.MinQuality).Rank(),
		channels:     cfg.Alerting.Channels,
		alertsOn:     cfg.Alerting.Enabled,
		locker:       locker,
		lockKey:      cfg.Scheduler.AdvisoryLockKey,
	}
}

// Run begins the aligned analysis loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, s.ProcessBucket)
}

// ProcessBucket 执行单个时间桶的全量观察列表分析。
func (s *Service) ProcessBucket(ctx context.Context, bucket time.Time) error {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		s.logger.Debug().Time("bucket", bucket).Msg("skip bucket because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	return s.executeBucket(ctx, bucket)
}

func (s *Service) executeBucket(ctx context.Context, bucket time.Time) error {
	if s.intensive != nil {
		s.intensive.BeginIntensive(analysisCaller)
		defer s.intensive.EndIntensive(analysisCaller)
	}

	type pending struct {
		asset  string
		price  float64
		result <-chan analysis.IndicatorSet
	}

	// Kick off all runs first; the analyzer pool bounds actual concurrency.
	runs := make([]pending, 0, len(s.watchlist))
	for _, asset := range s.watchlist {
		price, err := s.prices.FetchPrice(ctx, asset)
		if err != nil {
			s.logger.Warn().Err(err).Str("asset", asset).Msg("skip asset, current price unavailable")
			continue
		}
		runs = append(runs, pending{
			asset:  asset,
			price:  price,
			result: s.analyzer.Analyze(ctx, asset, price),
		})
	}

	for _, run := range runs {
		set := <-run.result
		s.recordResult(ctx, bucket, set)
	}

	s.logger.Info().Time("bucket", bucket).
		Int("assets", len(runs)).
		Int("skipped", len(s.watchlist)-len(runs)).
		Msg("watchlist bucket complete")

	return nil
}

func (s *Service) recordResult(ctx context.Context, bucket time.Time, set analysis.IndicatorSet) {
	if s.store != nil {
		snapshot, err := snapshotFromResult(bucket, set)
		if err != nil {
			s.logger.Error().Err(err).Str("asset", set.Asset).Msg("failed to encode snapshot")
		} else if err := s.store.UpsertSnapshot(ctx, snapshot); err != nil {
			s.logger.Error().Err(err).Str("asset", set.Asset).Time("bucket", bucket).Msg("failed to upsert snapshot")
		}
	}

	s.logger.Info().
		Str("asset", set.Asset).
		Time("bucket", bucket).
		Str("quality", string(set.Quality)).
		Int("signals", len(set.Signals)).
		Str("source", string(set.Source)).
		Msg("analysis recorded")

	if !s.alertsOn || s.notifier == nil {
		return
	}
	if set.Quality.Rank() < s.qualityFloor {
		return
	}

	note := notificationFromResult(bucket, set, s.channels)
	if s.alertStore != nil {
		record := storage.EntryAlertRecord{
			Asset:    set.Asset,
			BucketTS: bucket,
			Quality:  string(set.Quality),
			Score:    decimal.NewFromFloat(set.Score),
			Channels: s.channels,
		}
		if _, err := s.alertStore.InsertEntryAlert(ctx, record); err != nil {
			s.logger.Error().Err(err).Str("asset", set.Asset).Msg("failed to persist alert record")
		}
	}
	if err := s.notifier.Notify(ctx, note); err != nil {
		s.logger.Error().Err(err).Str("asset", set.Asset).Time("bucket", bucket).Msg("failed to dispatch alert")
	}
}

func snapshotFromResult(bucket time.Time, set analysis.IndicatorSet) (storage.AnalysisSnapshot, error) {
	signals, err := json.Marshal(set.Signals)
	if err != nil {
		return storage.AnalysisSnapshot{}, fmt.Errorf("marshal signals: %w", err)
	}

	return storage.AnalysisSnapshot{
		Asset:       set.Asset,
		Bucket:      bucket,
		Price:       decimal.NewFromFloat(set.CurrentPrice),
		RSI:         decimal.NewFromFloat(set.RSI),
		MACD:        decimal.NewFromFloat(set.MACD),
		Score:       decimal.NewFromFloat(set.Score),
		Trend:       string(set.Trend),
		Quality:     string(set.Quality),
		SignalCount: len(set.Signals),
		Signals:     signals,
		Synthetic:   set.Source != market.SourceLive,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

func notificationFromResult(bucket time.Time, set analysis.IndicatorSet, channels []string) alerting.Notification {
	lines := make([]alerting.SignalLine, 0, len(set.Signals))
	for _, sig := range set.Signals {
		lines = append(lines, alerting.SignalLine{
			Technique:  string(sig.Technique),
			Strength:   string(sig.Strength),
			Confidence: sig.Confidence,
			Target:     sig.Target,
			Stop:       sig.Stop,
		})
	}

	return alerting.Notification{
		Asset:     set.Asset,
		Bucket:    bucket,
		Price:     decimal.NewFromFloat(set.CurrentPrice),
		Quality:   string(set.Quality),
		Score:     decimal.NewFromFloat(set.Score),
		Trend:     string(set.Trend),
		Synthetic: set.Source != market.SourceLive,
		Signals:   lines,
		Channels:  channels,
	}
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
