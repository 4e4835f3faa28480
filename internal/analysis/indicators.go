package analysis

import (
	"time"

	"entry-signals/internal/market"
	"entry-signals/internal/ta"
)

const (
	rsiPeriod         = 14
	volumeWindow      = 20
	volumeConfirmMult = 1.5
	trendEnhancePct   = 5.0
	trendlineSupMult  = 0.95
	trendlineResMult  = 1.05
)

// ComputeIndicators derives the full indicator battery from a price history.
// It is pure: no I/O, no shared state. currentVolume should come from a live
// volume source; pass <= 0 to fall back to the final candle's volume.
func ComputeIndicators(h market.History, currentPrice, currentVolume float64) IndicatorSet {
	closes := h.Closes()
	highs := h.Highs()
	lows := h.Lows()
	volumes := h.Volumes()

	set := IndicatorSet{
		Asset:        h.Asset,
		CurrentPrice: currentPrice,
		Source:       h.Source,
		GeneratedAt:  time.Now().UTC(),
	}

	set.RSI = ta.RSI(closes, rsiPeriod)
	set.MACD, set.MACDSignal = ta.MACD(closes)
	set.SMA10 = ta.SMA(closes, 10)
	set.SMA50 = ta.SMA(closes, 50)
	set.EMA10 = ta.EMA(closes, 10)
	set.EMA50 = ta.EMA(closes, 50)

	set.Support, set.Resistance = ta.SupportResistance(lows, highs)
	set.Fib382, set.Fib500, set.Fib618 = ta.Fibonacci(highs, lows)

	set.AvgVolume = ta.AverageVolume(volumes, volumeWindow)
	if currentVolume > 0 {
		set.CurrentVolume = currentVolume
	} else if len(volumes) > 0 {
		set.CurrentVolume = volumes[len(volumes)-1]
	}
	set.VolumeConfirmed = set.AvgVolume > 0 && set.CurrentVolume > set.AvgVolume*volumeConfirmMult

	set.Trend = ta.Classify(closes)
	set.TrendlineSupport = set.Support * trendlineSupMult
	set.TrendlineResistance = set.Resistance * trendlineResMult

	return set
}

// EnhanceTrend upgrades a neutral trend using the 7-day percent change from
// the market-metrics endpoint. Non-neutral classifications are left alone.
func (s *IndicatorSet) EnhanceTrend(m market.Metrics) {
	if s.Trend != ta.TrendNeutral {
		return
	}
	switch {
	case m.PctChange7d > trendEnhancePct:
		s.Trend = ta.TrendBullish
	case m.PctChange7d < -trendEnhancePct:
		s.Trend = ta.TrendBearish
	}
}
