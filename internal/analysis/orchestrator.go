package analysis

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"entry-signals/internal/market"
	"entry-signals/internal/ta"
)

// MarketData is the slice of the provider surface the orchestrator needs.
type MarketData interface {
	FetchHistory(ctx context.Context, assetID string, currentPrice float64) market.History
	FetchMetrics(ctx context.Context, assetID string) (market.Metrics, error)
	FetchVolume(ctx context.Context, assetID string) (float64, error)
}

// Analyzer runs the per-asset pipeline: fetch -> indicators -> trend
// enhancement -> signals -> quality. Runs execute on a bounded worker pool
// and are independent; results arrive in no particular order.
type Analyzer struct {
	data    MarketData
	logger  zerolog.Logger
	workers chan struct{}
}

// NewAnalyzer constructs an Analyzer with the given pool size.
func NewAnalyzer(data MarketData, workers int, logger zerolog.Logger) *Analyzer {
	if workers <= 0 {
		workers = 4
	}
	return &Analyzer{
		data:    data,
		logger:  logger.With().Str("component", "analyzer").Logger(),
		workers: make(chan struct{}, workers),
	}
}

// Analyze schedules an analysis run and returns a single-result channel. The
// channel always delivers exactly one IndicatorSet: either the complete
// pipeline output or the error-state result. It never delivers a partial set
// and the pipeline never panics out to the caller.
func (a *Analyzer) Analyze(ctx context.Context, assetID string, currentPrice float64) <-chan IndicatorSet {
	out := make(chan IndicatorSet, 1)

	go func() {
		defer close(out)

		if ctx.Err() != nil {
			out <- a.errorResult(assetID, currentPrice, "cancelled before start")
			return
		}

		select {
		case a.workers <- struct{}{}:
			defer func() { <-a.workers }()
		case <-ctx.Done():
			out <- a.errorResult(assetID, currentPrice, "cancelled before start")
			return
		}

		out <- a.run(ctx, assetID, currentPrice)
	}()

	return out
}

// AnalyzeSync is the blocking form of Analyze.
func (a *Analyzer) AnalyzeSync(ctx context.Context, assetID string, currentPrice float64) IndicatorSet {
	return <-a.Analyze(ctx, assetID, currentPrice)
}

func (a *Analyzer) run(ctx context.Context, assetID string, currentPrice float64) (set IndicatorSet) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error().
				Str("asset", assetID).
				Interface("panic", r).
				Msg("analysis pipeline panicked")
			set = a.errorResult(assetID, currentPrice, "analysis failed")
		}
	}()

	started := time.Now()

	history := a.data.FetchHistory(ctx, assetID, currentPrice)

	volume := 0.0
	if v, err := a.data.FetchVolume(ctx, assetID); err == nil {
		volume = v
	}

	set = ComputeIndicators(history, currentPrice, volume)

	if set.Trend == ta.TrendNeutral {
		if metrics, err := a.data.FetchMetrics(ctx, assetID); err == nil {
			set.EnhanceTrend(metrics)
		}
	}

	set.Signals = GenerateSignals(set, currentPrice)
	set.Score, set.Quality = ScoreQuality(set.Signals)

	a.logger.Debug().
		Str("asset", assetID).
		Str("quality", string(set.Quality)).
		Int("signals", len(set.Signals)).
		Str("source", string(set.Source)).
		Dur("took", time.Since(started)).
		Msg("analysis complete")

	return set
}

// errorResult is the fixed terminal result for a failed run: very-poor,
// neutral, one very-weak diagnostic signal, no indicator values.
func (a *Analyzer) errorResult(assetID string, currentPrice float64, reason string) IndicatorSet {
	return IndicatorSet{
		Asset:        assetID,
		CurrentPrice: currentPrice,
		RSI:          50,
		Trend:        ta.TrendNeutral,
		Quality:      QualityVeryPoor,
		Source:       market.SourceSynthetic,
		GeneratedAt:  time.Now().UTC(),
		Signals: []EntrySignal{{
			Technique:  TechniqueDiagnostic,
			Strength:   StrengthVeryWeak,
			Rationale:  "manual review required: " + reason,
			Confidence: 0.1,
		}},
	}
}
