package scoring

import (
	"fmt"
	"testing"
	"time"
)

func txAt(customer string, amount float64, ts time.Time) *TransactionContext {
	return &TransactionContext{
		CustomerID: customer,
		Amount:     amount,
		Currency:   "USD",
		Country:    "US",
		Type:       "card_purchase",
		Timestamp:  ts,
	}
}

// noon avoids the overnight cold-start heuristic skewing assertions.
func noon() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 12, 0, 0, 0, time.UTC)
}

func TestScoreColdStartIsLow(t *testing.T) {
	m := NewModel()
	a := m.Score(txAt("cus_a", 45.00, noon()))
	if a.Score > 2.0 {
		t.Errorf("cold-start small purchase scored %.2f, want <= 2.0", a.Score)
	}
	if a.Confidence >= 0.5 {
		t.Errorf("cold-start confidence = %.2f, should be low", a.Confidence)
	}
}

func TestStructuringProximityScoresHigh(t *testing.T) {
	m := NewModel()
	near := m.Score(txAt("cus_b", 9850, noon()))
	far := m.Score(txAt("cus_b", 6500, noon()))
	if near.Factors["structuring"] <= far.Factors["structuring"] {
		t.Errorf("structuring factor near=%.3f far=%.3f, near should dominate",
			near.Factors["structuring"], far.Factors["structuring"])
	}
	if near.Factors["structuring"] < 0.8 {
		t.Errorf("9850 vs 10000 threshold scored %.3f, want >= 0.8", near.Factors["structuring"])
	}
}

func TestStructuringAtThresholdIsZero(t *testing.T) {
	if got := structuringFactor(10000); got != 0 {
		t.Errorf("at-threshold factor = %.3f, want 0", got)
	}
	if got := structuringFactor(15500); got != 0 {
		t.Errorf("over-threshold factor = %.3f, want 0", got)
	}
}

func TestAmountDeviationAgainstProfile(t *testing.T) {
	m := NewModel()
	base := noon().Add(-20 * time.Hour)
	// build a stable profile of ~50 dollar purchases
	for i := 0; i < 30; i++ {
		m.Observe(txAt("cus_c", 45+float64(i%10), base.Add(time.Duration(i)*30*time.Minute)))
	}

	usual := m.Score(txAt("cus_c", 52, noon()))
	spike := m.Score(txAt("cus_c", 2500, noon()))
	if spike.Factors["amount_deviation"] <= usual.Factors["amount_deviation"] {
		t.Errorf("deviation spike=%.3f usual=%.3f", spike.Factors["amount_deviation"], usual.Factors["amount_deviation"])
	}
	if spike.Factors["amount_deviation"] < 0.9 {
		t.Errorf("50x spike deviation = %.3f, want near 1.0", spike.Factors["amount_deviation"])
	}
}

func TestVelocityBurst(t *testing.T) {
	m := NewModel()
	ts := noon()
	for i := 0; i < 8; i++ {
		m.Observe(txAt("cus_d", 100, ts.Add(-time.Duration(i)*3*time.Minute)))
	}
	burst := m.Score(txAt("cus_d", 100, ts))
	if burst.Factors["velocity"] < 0.9 {
		t.Errorf("burst velocity = %.3f, want near 1.0", burst.Factors["velocity"])
	}

	quiet := m.Score(txAt("cus_e", 100, ts))
	if quiet.Factors["velocity"] != 0 {
		t.Errorf("single transaction velocity = %.3f, want 0", quiet.Factors["velocity"])
	}
}

func TestGeographicFactor(t *testing.T) {
	cases := []struct {
		country, currency string
		min               float64
	}{
		{"IR", "USD", 1.0},
		{"AF", "USD", 0.7},
		{"US", "RUB", 0.5},
		{"US", "USD", 0.0},
	}
	for _, tc := range cases {
		got := geographicFactor(tc.country, tc.currency)
		if got < tc.min {
			t.Errorf("geographic(%s,%s) = %.2f, want >= %.2f", tc.country, tc.currency, got, tc.min)
		}
	}
}

func TestScoreStaysInRange(t *testing.T) {
	m := NewModel()
	ts := noon()
	for i := 0; i < 200; i++ {
		tx := txAt("cus_f", float64(i*137%20000), ts.Add(-time.Duration(i)*time.Minute))
		a := m.Score(tx)
		if a.Score < 0 || a.Score > 10 {
			t.Fatalf("score %.3f out of [0,10]", a.Score)
		}
		m.Observe(tx)
	}
}

func TestVelocityForCounts(t *testing.T) {
	m := NewModel()
	ts := noon()
	m.Observe(txAt("cus_g", 10, ts.Add(-30*time.Minute)))
	m.Observe(txAt("cus_g", 10, ts.Add(-90*time.Minute)))
	m.Observe(txAt("cus_g", 10, ts.Add(-30*time.Hour))) // outside 24h

	v := m.VelocityFor("cus_g", ts)
	if v.Count1h != 1 {
		t.Errorf("Count1h = %d, want 1", v.Count1h)
	}
	if v.Count24h != 2 {
		t.Errorf("Count24h = %d, want 2", v.Count24h)
	}
}

func TestWindowPruning(t *testing.T) {
	m := NewModel()
	ts := noon()
	for i := 0; i < maxWindowSize+100; i++ {
		m.Observe(txAt("cus_h", 10, ts))
	}
	w := m.getWindow("cus_h")
	w.mu.Lock()
	n := len(w.entries)
	w.mu.Unlock()
	if n > maxWindowSize {
		t.Errorf("window size = %d, want <= %d", n, maxWindowSize)
	}
}

func TestConfidenceGrowsWithHistory(t *testing.T) {
	m := NewModel()
	ts := noon()
	first := m.Score(txAt("cus_i", 100, ts))
	for i := 0; i < 40; i++ {
		m.Observe(txAt("cus_i", 100, ts.Add(-time.Duration(i)*10*time.Minute)))
	}
	later := m.Score(txAt("cus_i", 100, ts))
	if later.Confidence <= first.Confidence {
		t.Errorf("confidence did not grow: first=%.3f later=%.3f", first.Confidence, later.Confidence)
	}
}

func BenchmarkScore(b *testing.B) {
	m := NewModel()
	ts := time.Now()
	for i := 0; i < 500; i++ {
		m.Observe(txAt("cus_bench", float64(50+i%200), ts.Add(-time.Duration(i)*time.Minute)))
	}
	tx := txAt("cus_bench", 9850, ts)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Score(tx)
	}
}

func ExampleModel_Score() {
	m := NewModel()
	a := m.Score(&TransactionContext{
		CustomerID: "cus_demo",
		Amount:     9850,
		Currency:   "USD",
		Country:    "US",
		Timestamp:  time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC),
	})
	fmt.Println(a.Score > 0)
	// Output: true
}
