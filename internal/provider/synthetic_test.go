package provider

import (
	"math"
	"math/rand"
	"testing"

	"entry-signals/internal/market"
)

func TestSyntheticHistoryShape(t *testing.T) {
	gen := NewSyntheticGenerator(rand.New(rand.NewSource(42)))
	h := gen.History("bitcoin", 65000)

	if h.Source != market.SourceSynthetic {
		t.Fatalf("provenance 应为 synthetic, 实际 %s", h.Source)
	}
	if h.Len() != 30 {
		t.Fatalf("应生成 30 点, 实际 %d", h.Len())
	}
	if !h.Ascending() {
		t.Fatal("时间戳应升序")
	}
	if last := h.Candles[29].Close; last != 65000 {
		t.Fatalf("末点收盘应等于现价, 实际 %v", last)
	}

	for i, c := range h.Candles {
		if c.High < c.Open || c.High < c.Close {
			t.Fatalf("candle %d: high %v 低于 open/close", i, c.High)
		}
		if c.Low > c.Open || c.Low > c.Close {
			t.Fatalf("candle %d: low %v 高于 open/close", i, c.Low)
		}
		if c.Volume <= 0 {
			t.Fatalf("candle %d: volume 应为正", i)
		}
		if i > 0 {
			ratio := c.Close / h.Candles[i-1].Close
			if ratio < 0.94 || ratio > 1.06 {
				t.Fatalf("candle %d: 日波动 %v 超出 ±5%% 边界", i, ratio)
			}
		}
	}
}

func TestSyntheticDeterministicWithSeed(t *testing.T) {
	a := NewSyntheticGenerator(rand.New(rand.NewSource(7))).History("eth", 3000)
	b := NewSyntheticGenerator(rand.New(rand.NewSource(7))).History("eth", 3000)

	for i := range a.Candles {
		if a.Candles[i].Close != b.Candles[i].Close {
			t.Fatalf("相同种子应生成相同序列, 差异位于 %d", i)
		}
	}
}

func TestEstimateVolumeDecreasesWithPrice(t *testing.T) {
	gen := NewSyntheticGenerator(rand.New(rand.NewSource(1)))

	// Tier midpoints; jitter is ±20% so tier ordering still holds.
	cheap := gen.EstimateVolume(0.5)
	mid := gen.EstimateVolume(50)
	expensive := gen.EstimateVolume(65000)

	if !(cheap > mid && mid > expensive) {
		t.Fatalf("价格越高估算成交量应越低: cheap=%v mid=%v expensive=%v", cheap, mid, expensive)
	}
	if math.IsNaN(cheap) || cheap <= 0 {
		t.Fatalf("估算值异常: %v", cheap)
	}
}
