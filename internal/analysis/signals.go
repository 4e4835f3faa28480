package analysis

import (
	"fmt"

	"entry-signals/internal/ta"
)

// GenerateSignals evaluates the fixed rule table against the computed
// indicators and the live price. Rules are independent: zero, one, or many
// signals may fire in a single run.
func GenerateSignals(set IndicatorSet, price float64) []EntrySignal {
	var signals []EntrySignal

	if set.RSI < 30 {
		signals = append(signals, EntrySignal{
			Technique:  TechniqueOversoldRSI,
			Strength:   StrengthStrong,
			Rationale:  fmt.Sprintf("RSI %.1f below 30: oversold, rebound likely", set.RSI),
			Target:     price * 1.05,
			Stop:       price * 0.95,
			Confidence: 0.75,
		})
	}

	if set.MACD > set.MACDSignal && set.MACD > 0 {
		signals = append(signals, EntrySignal{
			Technique:  TechniqueMACDCrossover,
			Strength:   StrengthModerate,
			Rationale:  fmt.Sprintf("MACD %.4f above signal %.4f in positive territory", set.MACD, set.MACDSignal),
			Target:     price * 1.08,
			Stop:       price * 0.92,
			Confidence: 0.70,
		})
	}

	if set.SMA10 > set.SMA50 && set.SMA10 > 0 {
		signals = append(signals, EntrySignal{
			Technique:  TechniqueMACrossover,
			Strength:   StrengthStrong,
			Rationale:  fmt.Sprintf("SMA10 %.2f above SMA50 %.2f: short-term momentum", set.SMA10, set.SMA50),
			Target:     price * 1.10,
			Stop:       price * 0.90,
			Confidence: 0.80,
		})
	}

	if set.Support > 0 && price <= set.Support*1.02 {
		signals = append(signals, EntrySignal{
			Technique:  TechniqueSupportBounce,
			Strength:   StrengthModerate,
			Rationale:  fmt.Sprintf("price %.2f at support %.2f: bounce zone", price, set.Support),
			Target:     set.Resistance,
			Stop:       set.Support * 0.95,
			Confidence: 0.65,
		})
	}

	if set.Fib618 > 0 && price <= set.Fib618*1.01 {
		signals = append(signals, EntrySignal{
			Technique:  TechniqueFibRetracement,
			Strength:   StrengthModerate,
			Rationale:  fmt.Sprintf("price %.2f near 61.8%% retracement %.2f", price, set.Fib618),
			Target:     set.Fib382,
			Stop:       set.Fib618 * 0.97,
			Confidence: 0.70,
		})
	}

	if set.VolumeConfirmed && set.Trend == ta.TrendBullish {
		signals = append(signals, EntrySignal{
			Technique:  TechniqueVolumeBreakout,
			Strength:   StrengthVeryStrong,
			Rationale:  fmt.Sprintf("volume %.0f confirms bullish trend (avg %.0f)", set.CurrentVolume, set.AvgVolume),
			Target:     price * 1.15,
			Stop:       price * 0.88,
			Confidence: 0.85,
		})
	}

	if set.TrendlineSupport > 0 && price <= set.TrendlineSupport*1.01 && set.Trend == ta.TrendBullish {
		signals = append(signals, EntrySignal{
			Technique:  TechniqueTrendlineBounce,
			Strength:   StrengthStrong,
			Rationale:  fmt.Sprintf("price %.2f at trendline support %.2f within bullish trend", price, set.TrendlineSupport),
			Target:     set.TrendlineResistance,
			Stop:       set.TrendlineSupport * 0.96,
			Confidence: 0.78,
		})
	}

	for i := range signals {
		signals[i].Confidence = clamp01(signals[i].Confidence)
	}
	return signals
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
