package provider

import (
	"math/rand"
	"sync"
	"time"

	"entry-signals/internal/market"
)

const (
	syntheticDays        = 30
	syntheticDailyMove   = 0.05 // ±5% day-over-day drift
	syntheticIntradayGap = 0.01 // ±1% open/close jitter
	syntheticWickSpread  = 0.03 // 0-3% high/low extension
)

// SyntheticGenerator produces a plausible daily history anchored on a live
// price, used whenever the provider cannot serve real data. The random source
// is injectable so tests can pin the seed.
type SyntheticGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewSyntheticGenerator builds a generator around the given source. A nil rng
// falls back to a time-seeded source.
func NewSyntheticGenerator(rng *rand.Rand) *SyntheticGenerator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &SyntheticGenerator{rng: rng, now: time.Now}
}

// History generates a 30-point daily series ending at currentPrice. Daily
// moves are compounded backward from today, each candle gets open/close
// jitter and high/low wicks, and volume is estimated from the price tier.
func (g *SyntheticGenerator) History(assetID string, currentPrice float64) market.History {
	g.mu.Lock()
	defer g.mu.Unlock()

	if currentPrice <= 0 {
		currentPrice = 1
	}

	closes := make([]float64, syntheticDays)
	closes[syntheticDays-1] = currentPrice
	for i := syntheticDays - 2; i >= 0; i-- {
		move := (g.rng.Float64()*2 - 1) * syntheticDailyMove
		closes[i] = closes[i+1] / (1 + move)
	}

	end := g.now().UTC().Truncate(24 * time.Hour)
	candles := make([]market.Candle, syntheticDays)
	for i := 0; i < syntheticDays; i++ {
		day := end.AddDate(0, 0, i-(syntheticDays-1))

		c := closes[i]
		o := c * (1 + (g.rng.Float64()*2-1)*syntheticIntradayGap)
		hi, lo := o, c
		if c > o {
			hi, lo = c, o
		}
		high := hi * (1 + g.rng.Float64()*syntheticWickSpread)
		low := lo * (1 - g.rng.Float64()*syntheticWickSpread)

		candles[i] = market.Candle{
			Timestamp: day.UnixMilli(),
			Open:      o,
			High:      high,
			Low:       low,
			Close:     c,
			Volume:    g.estimateVolume(currentPrice),
		}
	}

	return market.History{Asset: assetID, Candles: candles, Source: market.SourceSynthetic}
}

// estimateVolume models unit turnover by price tier: the pricier the asset,
// the fewer units change hands.
func (g *SyntheticGenerator) estimateVolume(price float64) float64 {
	var base float64
	switch {
	case price >= 10_000:
		base = 50_000
	case price >= 1_000:
		base = 500_000
	case price >= 100:
		base = 5_000_000
	case price >= 1:
		base = 50_000_000
	default:
		base = 500_000_000
	}
	jitter := 1 + (g.rng.Float64()*2-1)*0.2
	return base * jitter
}

// EstimateVolume exposes the tier estimate for callers that need a volume
// figure without a full synthetic series.
func (g *SyntheticGenerator) EstimateVolume(price float64) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.estimateVolume(price)
}
