package analysis

import (
	"time"

	"entry-signals/internal/market"
	"entry-signals/internal/ta"
)

// Technique enumerates the signal detection rules.
type Technique string

const (
	TechniqueOversoldRSI     Technique = "oversold_rsi"
	TechniqueMACDCrossover   Technique = "macd_bullish_crossover"
	TechniqueMACrossover     Technique = "ma_crossover"
	TechniqueSupportBounce   Technique = "support_bounce"
	TechniqueFibRetracement  Technique = "fibonacci_retracement"
	TechniqueVolumeBreakout  Technique = "volume_breakout"
	TechniqueTrendlineBounce Technique = "trendline_bounce"
	// TechniqueDiagnostic marks the placeholder signal attached to
	// error-state results.
	TechniqueDiagnostic Technique = "diagnostic"
)

// Strength is the five-level ordinal attached to each signal.
type Strength string

const (
	StrengthVeryWeak   Strength = "very_weak"
	StrengthWeak       Strength = "weak"
	StrengthModerate   Strength = "moderate"
	StrengthStrong     Strength = "strong"
	StrengthVeryStrong Strength = "very_strong"
)

// Weight returns the quality-scoring weight for the strength level.
// Unrecognized levels weigh 0.5.
func (s Strength) Weight() float64 {
	switch s {
	case StrengthVeryStrong:
		return 1.0
	case StrengthStrong:
		return 0.8
	case StrengthModerate:
		return 0.6
	case StrengthWeak:
		return 0.4
	case StrengthVeryWeak:
		return 0.2
	default:
		return 0.5
	}
}

// Quality rates the aggregate entry opportunity.
type Quality string

const (
	QualityVeryPoor  Quality = "very_poor"
	QualityPoor      Quality = "poor"
	QualityAverage   Quality = "average"
	QualityGood      Quality = "good"
	QualityExcellent Quality = "excellent"
)

// Rank orders qualities so callers can compare against a floor.
func (q Quality) Rank() int {
	switch q {
	case QualityVeryPoor:
		return 0
	case QualityPoor:
		return 1
	case QualityAverage:
		return 2
	case QualityGood:
		return 3
	case QualityExcellent:
		return 4
	default:
		return -1
	}
}

// EntrySignal is one detected opportunity.
type EntrySignal struct {
	Technique  Technique
	Strength   Strength
	Rationale  string
	Target     float64
	Stop       float64
	Confidence float64
}

// IndicatorSet is the complete per-asset analysis result. It is created by a
// single orchestrator run, never shared across assets, and immutable once
// delivered to the caller.
type IndicatorSet struct {
	Asset        string
	CurrentPrice float64

	RSI        float64
	MACD       float64
	MACDSignal float64
	SMA10      float64
	SMA50      float64
	EMA10      float64
	EMA50      float64

	Support    float64
	Resistance float64
	Fib382     float64
	Fib500     float64
	Fib618     float64

	AvgVolume       float64
	CurrentVolume   float64
	VolumeConfirmed bool

	Trend               ta.Trend
	TrendlineSupport    float64
	TrendlineResistance float64

	Signals []EntrySignal
	Quality Quality
	Score   float64

	Source      market.Provenance
	GeneratedAt time.Time
}
