package app

import (
	"context"
	"errors"
	"time"

	"entry-signals/internal/analysis"
	"entry-signals/internal/market"
	"entry-signals/internal/provider"
	"entry-signals/internal/service"
)

// SimulateAlert 以合成行情驱动一次完整的分析与告警链路, 用于验证告警通道。
func (a *App) SimulateAlert(ctx context.Context, asset string, price float64) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting 未启用")
	}

	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("未配置任何告警通道")
	}

	// 模拟时放开质量门槛, 保证链路必然走到通知。
	cfg := *a.Config
	cfg.Alerting.MinQuality = "very_poor"
	cfg.Analysis.Watchlist = []string{asset}

	data := &syntheticData{synth: provider.NewSyntheticGenerator(nil), price: price}
	analyzer := analysis.NewAnalyzer(data, 1, a.Logger)

	svc := service.New(&cfg, nil, data, analyzer, nil, nil, nil, notifier, a.Logger)

	bucket := time.Now().UTC().Truncate(a.Config.Scheduler.Interval)
	return svc.ProcessBucket(ctx, bucket)
}

// syntheticData serves generated candles so the pipeline runs offline.
type syntheticData struct {
	synth *provider.SyntheticGenerator
	price float64
}

func (s *syntheticData) FetchHistory(ctx context.Context, assetID string, currentPrice float64) market.History {
	return s.synth.History(assetID, currentPrice)
}

func (s *syntheticData) FetchMetrics(ctx context.Context, assetID string) (market.Metrics, error) {
	return market.Metrics{}, nil
}

func (s *syntheticData) FetchVolume(ctx context.Context, assetID string) (float64, error) {
	return s.synth.EstimateVolume(s.price), nil
}

func (s *syntheticData) FetchPrice(ctx context.Context, assetID string) (float64, error) {
	return s.price, nil
}

var _ analysis.MarketData = (*syntheticData)(nil)
var _ service.PriceSource = (*syntheticData)(nil)
