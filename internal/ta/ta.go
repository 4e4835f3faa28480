package ta

import "sort"

// Trend classifies the direction of recent price action.
type Trend string

const (
	TrendBullish Trend = "bullish"
	TrendBearish Trend = "bearish"
	TrendNeutral Trend = "neutral"
)

// RSI computes the Relative Strength Index over the trailing period using
// simple (non-Wilder) averaging of first differences. It returns 50 (neutral)
// when fewer than period+1 closes are available, and 100 when the average
// loss over the window is zero.
func RSI(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period+1 {
		return 50
	}
	gain, loss := 0.0, 0.0
	for i := len(closes) - period; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	if loss == 0 {
		return 100
	}
	rs := (gain / float64(period)) / (loss / float64(period))
	rsi := 100 - 100/(1+rs)
	if rsi < 0 {
		return 0
	}
	if rsi > 100 {
		return 100
	}
	return rsi
}

// SMA returns the arithmetic mean of the trailing n closes, or 0 when the
// series is shorter than n.
func SMA(closes []float64, n int) float64 {
	if n <= 0 || len(closes) < n {
		return 0
	}
	sum := 0.0
	for i := len(closes) - n; i < len(closes); i++ {
		sum += closes[i]
	}
	return sum / float64(n)
}

// EMA returns the exponential moving average with the standard smoothing
// multiplier 2/(period+1), seeded with the SMA of the first period points.
// It returns 0 when the series is shorter than period.
func EMA(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period {
		return 0
	}
	seed := 0.0
	for i := 0; i < period; i++ {
		seed += closes[i]
	}
	ema := seed / float64(period)

	k := 2.0 / float64(period+1)
	for i := period; i < len(closes); i++ {
		ema = closes[i]*k + ema*(1-k)
	}
	return ema
}

// MACD returns the MACD line (EMA12 - EMA26) and its signal line. The signal
// line is approximated as 0.9x the MACD line rather than a true 9-period EMA
// of MACD. Both are 0 when fewer than 26 closes are available.
func MACD(closes []float64) (macd, signal float64) {
	if len(closes) < 26 {
		return 0, 0
	}
	macd = EMA(closes, 12) - EMA(closes, 26)
	signal = 0.9 * macd
	return macd, signal
}

// SupportResistance derives support as the mean of the 5 lowest lows and
// resistance as the mean of the 5 highest highs in the window. When fewer
// than 5 candles exist, all of them are used.
func SupportResistance(lows, highs []float64) (support, resistance float64) {
	return meanLowest(lows, 5), meanHighest(highs, 5)
}

// Fibonacci returns the 38.2%, 50% and 61.8% retracement levels measured down
// from the window swing high toward the swing low.
func Fibonacci(highs, lows []float64) (fib382, fib500, fib618 float64) {
	if len(highs) == 0 || len(lows) == 0 {
		return 0, 0, 0
	}
	swingHigh := highs[0]
	for _, h := range highs[1:] {
		if h > swingHigh {
			swingHigh = h
		}
	}
	swingLow := lows[0]
	for _, l := range lows[1:] {
		if l < swingLow {
			swingLow = l
		}
	}
	span := swingHigh - swingLow
	return swingHigh - span*0.382, swingHigh - span*0.500, swingHigh - span*0.618
}

// AverageVolume returns the mean of the trailing n volumes, falling back to
// the whole series when it is shorter than n.
func AverageVolume(volumes []float64, n int) float64 {
	if len(volumes) == 0 {
		return 0
	}
	if n <= 0 || n > len(volumes) {
		n = len(volumes)
	}
	sum := 0.0
	for i := len(volumes) - n; i < len(volumes); i++ {
		sum += volumes[i]
	}
	return sum / float64(n)
}

// Classify compares the mean close of the most recent 10 points against the
// mean of the 10 immediately preceding them: bullish when recent >= 1.02x
// older, bearish when recent <= 0.98x older. Fewer than 20 points, or a flat
// older mean, yields neutral.
func Classify(closes []float64) Trend {
	if len(closes) < 20 {
		return TrendNeutral
	}
	recent := mean(closes[len(closes)-10:])
	older := mean(closes[len(closes)-20 : len(closes)-10])
	if older == 0 {
		return TrendNeutral
	}
	switch {
	case recent >= older*1.02:
		return TrendBullish
	case recent <= older*0.98:
		return TrendBearish
	default:
		return TrendNeutral
	}
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func meanLowest(vals []float64, n int) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	if n > len(sorted) {
		n = len(sorted)
	}
	return mean(sorted[:n])
}

func meanHighest(vals []float64, n int) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	if n > len(sorted) {
		n = len(sorted)
	}
	return mean(sorted[len(sorted)-n:])
}
