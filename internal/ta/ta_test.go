package ta

import (
	"math"
	"testing"
)

func almostEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func constantSeries(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestRSIBounds(t *testing.T) {
	up := make([]float64, 30)
	down := make([]float64, 30)
	for i := range up {
		up[i] = 100 + float64(i)
		down[i] = 100 - float64(i)
	}

	if rsi := RSI(up, 14); rsi != 100 {
		t.Fatalf("单边上涨 avgLoss=0, RSI 应为 100, 实际 %v", rsi)
	}
	if rsi := RSI(down, 14); rsi < 0 || rsi > 5 {
		t.Fatalf("单边下跌 RSI 应接近 0, 实际 %v", rsi)
	}
	for i := 0; i < 30; i++ {
		mixed := append(append([]float64{}, up[:15]...), down[:15]...)
		if rsi := RSI(mixed[:i+1], 14); rsi < 0 || rsi > 100 {
			t.Fatalf("RSI 越界: %v", rsi)
		}
	}
}

func TestRSIShortSeriesDefaultsNeutral(t *testing.T) {
	closes := []float64{1, 2, 3}
	if rsi := RSI(closes, 14); rsi != 50 {
		t.Fatalf("不足 15 点应返回 50, 实际 %v", rsi)
	}
	if rsi := RSI(nil, 14); rsi != 50 {
		t.Fatalf("空序列应返回 50, 实际 %v", rsi)
	}
}

// A constant series has zero gains and zero losses; the avgLoss==0 rule wins,
// so the result is 100, not the intuitive 50.
func TestRSIConstantSeriesIs100(t *testing.T) {
	closes := constantSeries(250, 60)
	if rsi := RSI(closes, 14); rsi != 100 {
		t.Fatalf("恒定序列 RSI 应为 100, 实际 %v", rsi)
	}
}

func TestSMAMatchesTrailingMean(t *testing.T) {
	closes := make([]float64, 60)
	sum := 0.0
	for i := range closes {
		closes[i] = float64(i * i)
	}
	for i := 10; i < 60; i++ {
		sum += closes[i]
	}
	want := sum / 50

	if got := SMA(closes, 50); !almostEqual(got, want, 1e-9) {
		t.Fatalf("SMA(50) = %v, 期望 %v", got, want)
	}
	if got := SMA(closes[:49], 50); got != 0 {
		t.Fatalf("长度不足时应返回 0, 实际 %v", got)
	}
}

func TestEMAConvergesToConstant(t *testing.T) {
	for _, period := range []int{5, 10, 26, 50} {
		closes := constantSeries(42.5, 120)
		if got := EMA(closes, period); !almostEqual(got, 42.5, 1e-9) {
			t.Fatalf("EMA(%d) 恒定序列应收敛到 42.5, 实际 %v", period, got)
		}
	}
}

func TestMACDShortSeries(t *testing.T) {
	macd, signal := MACD(constantSeries(10, 25))
	if macd != 0 || signal != 0 {
		t.Fatalf("不足 26 点 MACD 应为 0: macd=%v signal=%v", macd, signal)
	}
}

func TestMACDSignalApproximation(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + float64(i)*0.5
	}
	macd, signal := MACD(closes)
	if macd <= 0 {
		t.Fatalf("稳定上升序列 MACD 应为正, 实际 %v", macd)
	}
	if !almostEqual(signal, macd*0.9, 1e-12) {
		t.Fatalf("signal 应为 0.9*MACD: macd=%v signal=%v", macd, signal)
	}
}

func TestSupportResistance(t *testing.T) {
	lows := []float64{10, 11, 12, 13, 14, 50, 60}
	highs := []float64{90, 95, 100, 105, 110, 20, 30}

	support, resistance := SupportResistance(lows, highs)
	if !almostEqual(support, 12, 1e-9) {
		t.Fatalf("support 应为 5 个最低点均值 12, 实际 %v", support)
	}
	if !almostEqual(resistance, 100, 1e-9) {
		t.Fatalf("resistance 应为 5 个最高点均值 100, 实际 %v", resistance)
	}

	s, r := SupportResistance([]float64{5, 7}, []float64{8, 10})
	if !almostEqual(s, 6, 1e-9) || !almostEqual(r, 9, 1e-9) {
		t.Fatalf("不足 5 点时应取全部: s=%v r=%v", s, r)
	}
}

func TestFibonacciOrderingAndRange(t *testing.T) {
	highs := []float64{100, 120, 110}
	lows := []float64{80, 85, 90}

	fib382, fib500, fib618 := Fibonacci(highs, lows)
	if !(fib382 > fib500 && fib500 > fib618) {
		t.Fatalf("级别次序错误: 38.2=%v 50=%v 61.8=%v", fib382, fib500, fib618)
	}
	for _, level := range []float64{fib382, fib500, fib618} {
		if level < 80 || level > 120 {
			t.Fatalf("级别 %v 应位于 [swingLow, swingHigh]", level)
		}
	}
	if !almostEqual(fib500, 100, 1e-9) {
		t.Fatalf("50%% 回撤应为区间中点 100, 实际 %v", fib500)
	}
}

func TestClassify(t *testing.T) {
	rising := make([]float64, 20)
	falling := make([]float64, 20)
	flat := constantSeries(100, 20)
	for i := range rising {
		rising[i] = 100 + float64(i)*2
		falling[i] = 100 - float64(i)*2
	}

	if trend := Classify(rising); trend != TrendBullish {
		t.Fatalf("上升序列应为 bullish, 实际 %s", trend)
	}
	if trend := Classify(falling); trend != TrendBearish {
		t.Fatalf("下降序列应为 bearish, 实际 %s", trend)
	}
	if trend := Classify(flat); trend != TrendNeutral {
		t.Fatalf("平稳序列应为 neutral, 实际 %s", trend)
	}
	if trend := Classify(rising[:19]); trend != TrendNeutral {
		t.Fatalf("不足 20 点应为 neutral, 实际 %s", trend)
	}
}

func TestAverageVolume(t *testing.T) {
	vols := []float64{1, 2, 3, 4}
	if got := AverageVolume(vols, 20); !almostEqual(got, 2.5, 1e-9) {
		t.Fatalf("短序列应取全部均值 2.5, 实际 %v", got)
	}
	long := make([]float64, 30)
	for i := range long {
		long[i] = float64(i)
	}
	// Trailing 20 of 0..29 is 10..29, mean 19.5.
	if got := AverageVolume(long, 20); !almostEqual(got, 19.5, 1e-9) {
		t.Fatalf("期望 19.5, 实际 %v", got)
	}
}
