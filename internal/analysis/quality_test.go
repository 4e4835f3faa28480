package analysis

import (
	"math"
	"testing"
)

func TestScoreQualityEmptyIsPoor(t *testing.T) {
	score, quality := ScoreQuality(nil)
	if quality != QualityPoor {
		t.Fatalf("空信号集应为 poor, 实际 %s", quality)
	}
	if score != 0 {
		t.Fatalf("空信号集得分应为 0, 实际 %v", score)
	}
}

func TestScoreQualityWeightedAverage(t *testing.T) {
	signals := []EntrySignal{
		{Strength: StrengthVeryStrong, Confidence: 0.9}, // w=1.0
		{Strength: StrengthModerate, Confidence: 0.6},   // w=0.6
	}
	want := (0.9*1.0 + 0.6*0.6) / (1.0 + 0.6)

	score, quality := ScoreQuality(signals)
	if math.Abs(score-want) > 1e-9 {
		t.Fatalf("加权得分 %v, 期望 %v", score, want)
	}
	if quality != QualityGood {
		t.Fatalf("得分 %.3f 应评为 good, 实际 %s", score, quality)
	}
}

func TestScoreQualityThresholds(t *testing.T) {
	cases := []struct {
		confidence float64
		want       Quality
	}{
		{0.90, QualityExcellent},
		{0.80, QualityGood},
		{0.65, QualityAverage},
		{0.45, QualityPoor},
		{0.10, QualityVeryPoor},
	}
	for _, tc := range cases {
		_, got := ScoreQuality([]EntrySignal{{Strength: StrengthStrong, Confidence: tc.confidence}})
		if got != tc.want {
			t.Fatalf("confidence %.2f: 期望 %s, 实际 %s", tc.confidence, tc.want, got)
		}
	}
}

func TestScoreQualityUnknownStrengthDefaultWeight(t *testing.T) {
	score, _ := ScoreQuality([]EntrySignal{{Strength: Strength("mystery"), Confidence: 0.8}})
	// A single signal's score equals its confidence regardless of weight.
	if math.Abs(score-0.8) > 1e-9 {
		t.Fatalf("单信号得分应等于其置信度, 实际 %v", score)
	}
	if Strength("mystery").Weight() != 0.5 {
		t.Fatalf("未知强度权重应为 0.5")
	}
}

func TestScoreQualityMonotonicUnderVeryStrongAddition(t *testing.T) {
	base := []EntrySignal{
		{Strength: StrengthWeak, Confidence: 0.3},
		{Strength: StrengthModerate, Confidence: 0.7},
		{Strength: StrengthStrong, Confidence: 0.55},
	}
	for i := 1; i <= len(base); i++ {
		subset := base[:i]
		before, _ := ScoreQuality(subset)
		after, _ := ScoreQuality(append(append([]EntrySignal{}, subset...), EntrySignal{
			Strength:   StrengthVeryStrong,
			Confidence: 1.0,
		}))
		if after < before {
			t.Fatalf("追加满置信 very_strong 信号不应降低得分: %v -> %v", before, after)
		}
	}
}
