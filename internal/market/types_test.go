package market

import "testing"

func sample(lastClose float64) History {
	return History{
		Asset:  "bitcoin",
		Source: SourceLive,
		Candles: []Candle{
			{Timestamp: 1000, Open: 95, High: 99, Low: 92, Close: 98, Volume: 10},
			{Timestamp: 2000, Open: 98, High: 102, Low: 96, Close: lastClose, Volume: 12},
		},
	}
}

func TestReconcileLastWithinTolerance(t *testing.T) {
	h := sample(100)
	out := h.ReconcileLast(105, 0.10)
	if out.Candles[1].Close != 100 {
		t.Fatalf("10%% 容差内不应改写, 实际 %v", out.Candles[1].Close)
	}
}

func TestReconcileLastRewritesDriftedCandle(t *testing.T) {
	h := sample(100)
	out := h.ReconcileLast(130, 0.10)

	if out.Candles[1].Close != 130 {
		t.Fatalf("应改写为现价 130, 实际 %v", out.Candles[1].Close)
	}
	if out.Candles[1].High != 130 {
		t.Fatalf("high 应拉宽到 130, 实际 %v", out.Candles[1].High)
	}
	if out.Candles[1].Timestamp != 2000 || out.Candles[1].Volume != 12 {
		t.Fatal("timestamp 与 volume 应保留")
	}
	// Copy-on-write: the receiver must be untouched.
	if h.Candles[1].Close != 100 {
		t.Fatalf("原序列不应被修改, 实际 %v", h.Candles[1].Close)
	}
}

func TestReconcileLastLowWidened(t *testing.T) {
	h := sample(100)
	out := h.ReconcileLast(80, 0.10)
	if out.Candles[1].Low != 80 {
		t.Fatalf("low 应拉宽到 80, 实际 %v", out.Candles[1].Low)
	}
}

func TestAscending(t *testing.T) {
	h := sample(100)
	if !h.Ascending() {
		t.Fatal("样例应为升序")
	}
	h.Candles[0].Timestamp = 3000
	if h.Ascending() {
		t.Fatal("乱序应被识别")
	}
}

func TestSeriesExtraction(t *testing.T) {
	h := sample(100)
	if closes := h.Closes(); len(closes) != 2 || closes[1] != 100 {
		t.Fatalf("closes 提取错误: %v", closes)
	}
	if vols := h.Volumes(); vols[0] != 10 || vols[1] != 12 {
		t.Fatalf("volumes 提取错误: %v", vols)
	}
}
