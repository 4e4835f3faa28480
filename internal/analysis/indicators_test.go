package analysis

import (
	"math"
	"testing"
	"time"

	"entry-signals/internal/market"
	"entry-signals/internal/ta"
)

func buildHistory(closes []float64) market.History {
	candles := make([]market.Candle, len(closes))
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	for i, c := range closes {
		candles[i] = market.Candle{
			Timestamp: base + int64(i)*86_400_000,
			Open:      c * 0.995,
			High:      c * 1.01,
			Low:       c * 0.99,
			Close:     c,
			Volume:    1000,
		}
	}
	return market.History{Asset: "testcoin", Candles: candles, Source: market.SourceLive}
}

func TestComputeIndicatorsEmptyHistory(t *testing.T) {
	set := ComputeIndicators(market.History{Asset: "empty"}, 100, 0)

	if set.RSI != 50 {
		t.Fatalf("空历史 RSI 应为 50, 实际 %v", set.RSI)
	}
	if set.SMA10 != 0 || set.SMA50 != 0 || set.EMA10 != 0 || set.EMA50 != 0 {
		t.Fatal("空历史均线应为零值哨兵")
	}
	if set.Trend != ta.TrendNeutral {
		t.Fatalf("空历史趋势应为 neutral, 实际 %s", set.Trend)
	}
	if set.MACD != 0 || set.MACDSignal != 0 {
		t.Fatal("空历史 MACD 应为 0")
	}
}

func TestComputeIndicatorsConstantSeries(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 250
	}
	set := ComputeIndicators(buildHistory(closes), 250, 0)

	// All diffs are zero, so avgLoss==0 and the RSI rule pins it to 100.
	if set.RSI != 100 {
		t.Fatalf("恒定序列 RSI 应为 100, 实际 %v", set.RSI)
	}
	if math.Abs(set.SMA50-250) > 1e-9 || math.Abs(set.EMA50-250) > 1e-9 {
		t.Fatalf("恒定序列均线应为 250: sma=%v ema=%v", set.SMA50, set.EMA50)
	}
	if set.Trend != ta.TrendNeutral {
		t.Fatalf("恒定序列趋势应为 neutral, 实际 %s", set.Trend)
	}
}

func TestComputeIndicatorsVolumeConfirmation(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100
	}
	h := buildHistory(closes)

	confirmed := ComputeIndicators(h, 100, 1600) // avg 1000, 1.6x
	if !confirmed.VolumeConfirmed {
		t.Fatal("1.6x 平均量应确认放量")
	}

	quiet := ComputeIndicators(h, 100, 1400) // 1.4x
	if quiet.VolumeConfirmed {
		t.Fatal("1.4x 平均量不应确认")
	}

	fallback := ComputeIndicators(h, 100, 0)
	if fallback.CurrentVolume != 1000 {
		t.Fatalf("无实时量应回退到最后一根 K 线量, 实际 %v", fallback.CurrentVolume)
	}
}

func TestComputeIndicatorsTrendlines(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	set := ComputeIndicators(buildHistory(closes), 130, 0)

	if math.Abs(set.TrendlineSupport-set.Support*0.95) > 1e-9 {
		t.Fatalf("趋势线支撑应为 0.95*support: %v vs %v", set.TrendlineSupport, set.Support)
	}
	if math.Abs(set.TrendlineResistance-set.Resistance*1.05) > 1e-9 {
		t.Fatalf("趋势线阻力应为 1.05*resistance: %v vs %v", set.TrendlineResistance, set.Resistance)
	}
	if set.Trend != ta.TrendBullish {
		t.Fatalf("线性上升应为 bullish, 实际 %s", set.Trend)
	}
}

func TestEnhanceTrend(t *testing.T) {
	set := IndicatorSet{Trend: ta.TrendNeutral}

	set.EnhanceTrend(market.Metrics{PctChange7d: 6})
	if set.Trend != ta.TrendBullish {
		t.Fatalf("7d +6%% 应升级为 bullish, 实际 %s", set.Trend)
	}

	set = IndicatorSet{Trend: ta.TrendNeutral}
	set.EnhanceTrend(market.Metrics{PctChange7d: -8})
	if set.Trend != ta.TrendBearish {
		t.Fatalf("7d -8%% 应升级为 bearish, 实际 %s", set.Trend)
	}

	set = IndicatorSet{Trend: ta.TrendNeutral}
	set.EnhanceTrend(market.Metrics{PctChange7d: 3})
	if set.Trend != ta.TrendNeutral {
		t.Fatalf("±5%% 以内不应改变, 实际 %s", set.Trend)
	}

	set = IndicatorSet{Trend: ta.TrendBearish}
	set.EnhanceTrend(market.Metrics{PctChange7d: 20})
	if set.Trend != ta.TrendBearish {
		t.Fatal("非 neutral 趋势不应被覆盖")
	}
}
