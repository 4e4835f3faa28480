package market

// Provenance records where a price history came from.
type Provenance string

const (
	// SourceLive marks data returned by the provider.
	SourceLive Provenance = "live"
	// SourceSynthetic marks data generated locally after the provider
	// was unreachable or rate limited.
	SourceSynthetic Provenance = "synthetic"
)

// Candle is a single OHLC observation. Timestamp is epoch milliseconds.
// Candles are value types and never mutated after construction.
type Candle struct {
	Timestamp int64
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// History is an ascending-by-timestamp candle sequence for one asset.
type History struct {
	Asset   string
	Candles []Candle
	Source  Provenance
}

// Metrics carries the scalar market figures used for trend enhancement.
type Metrics struct {
	MarketCapUSD float64
	PctChange7d  float64
	PctChange24h float64
}

// Len reports the number of candles.
func (h History) Len() int { return len(h.Candles) }

// Closes extracts the close series.
func (h History) Closes() []float64 {
	out := make([]float64, len(h.Candles))
	for i, c := range h.Candles {
		out[i] = c.Close
	}
	return out
}

// Highs extracts the high series.
func (h History) Highs() []float64 {
	out := make([]float64, len(h.Candles))
	for i, c := range h.Candles {
		out[i] = c.High
	}
	return out
}

// Lows extracts the low series.
func (h History) Lows() []float64 {
	out := make([]float64, len(h.Candles))
	for i, c := range h.Candles {
		out[i] = c.Low
	}
	return out
}

// Volumes extracts the volume series.
func (h History) Volumes() []float64 {
	out := make([]float64, len(h.Candles))
	for i, c := range h.Candles {
		out[i] = c.Volume
	}
	return out
}

// Ascending reports whether timestamps are non-decreasing.
func (h History) Ascending() bool {
	for i := 1; i < len(h.Candles); i++ {
		if h.Candles[i].Timestamp < h.Candles[i-1].Timestamp {
			return false
		}
	}
	return true
}

// ReconcileLast returns a copy of the history whose final candle is adjusted to
// the given live price when the recorded close drifts more than tolerancePct
// away from it. High and low are widened so the candle stays self-consistent;
// timestamp and volume are preserved. The receiver is not modified.
func (h History) ReconcileLast(livePrice, tolerancePct float64) History {
	if len(h.Candles) == 0 || livePrice <= 0 {
		return h
	}
	last := h.Candles[len(h.Candles)-1]
	diff := last.Close - livePrice
	if diff < 0 {
		diff = -diff
	}
	if diff <= livePrice*tolerancePct {
		return h
	}

	candles := make([]Candle, len(h.Candles))
	copy(candles, h.Candles)

	adjusted := last
	adjusted.Close = livePrice
	if livePrice > adjusted.High {
		adjusted.High = livePrice
	}
	if livePrice < adjusted.Low {
		adjusted.Low = livePrice
	}
	candles[len(candles)-1] = adjusted

	return History{Asset: h.Asset, Candles: candles, Source: h.Source}
}
