package analytics

import (
	"math"
	"testing"
)

func TestRollingStats_Add(t *testing.T) {
	rs := NewRollingStats(5, 3)

	values := []float64{10, 20, 30, 40, 50}
	for _, v := range values {
		rs.Add(v)
	}

	if rs.Count() != 5 {
		t.Errorf("Expected count 5, got %d", rs.Count())
	}

	expectedMean := 30.0
	if math.Abs(rs.Mean()-expectedMean) > 1e-9 {
		t.Errorf("Expected mean %.2f, got %.2f", expectedMean, rs.Mean())
	}

	// Дисперсия генеральной совокупности [10..50] = 200
	if math.Abs(rs.Variance()-200) > 1e-9 {
		t.Errorf("Expected variance 200, got %.4f", rs.Variance())
	}
}

func TestRollingStats_RollingBehavior(t *testing.T) {
	rs := NewRollingStats(3, 1)

	rs.Add(10)
	rs.Add(20)
	rs.Add(30)

	if math.Abs(rs.Mean()-20.0) > 1e-9 {
		t.Errorf("Expected mean 20, got %.2f", rs.Mean())
	}

	// 10 вытесняется
	rs.Add(40)

	if rs.Count() != 3 {
		t.Errorf("Expected count to stay at capacity 3, got %d", rs.Count())
	}
	if math.Abs(rs.Mean()-30.0) > 1e-9 {
		t.Errorf("Expected mean 30, got %.2f", rs.Mean())
	}

	got := rs.Values()
	want := []float64{20, 30, 40}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected window %v, got %v", want, got)
		}
	}
}

func TestRollingStats_VarianceNeedsTwoValues(t *testing.T) {
	rs := NewRollingStats(10, 1)
	rs.Add(42)

	if rs.Variance() != 0 {
		t.Errorf("Expected variance 0 for single value, got %.4f", rs.Variance())
	}
	if rs.StdDev() != 0 {
		t.Errorf("Expected stddev 0 for single value, got %.4f", rs.StdDev())
	}
}

func TestRollingStats_ZScoreNeedsMinSamples(t *testing.T) {
	rs := NewRollingStats(DefaultWindowCapacity, DefaultMinSamples)

	for i := 0; i < DefaultMinSamples-1; i++ {
		rs.Add(float64(20 + i))
		if _, ok := rs.ZScore(25); ok {
			t.Fatalf("Expected no z-score with %d samples", rs.Count())
		}
	}

	rs.Add(29)
	if _, ok := rs.ZScore(25); !ok {
		t.Errorf("Expected z-score once %d samples collected", DefaultMinSamples)
	}
}

func TestRollingStats_ZeroSpread(t *testing.T) {
	rs := NewRollingStats(DefaultWindowCapacity, DefaultMinSamples)

	for i := 0; i < 10; i++ {
		rs.Add(23)
	}

	if rs.StdDev() != 0 {
		t.Errorf("Expected stddev 0 for identical values, got %.4f", rs.StdDev())
	}

	z, ok := rs.ZScore(23)
	if !ok || z != 0 {
		t.Errorf("Expected z-score 0 for the mean value, got %.4f (ok=%v)", z, ok)
	}

	if z, ok := rs.ZScore(24); ok {
		t.Errorf("Expected undefined z-score for differing value, got %.4f", z)
	}
}

func TestRollingStats_EvictionMatchesDirectComputation(t *testing.T) {
	rs := NewRollingStats(100, DefaultMinSamples)

	for i := 1; i <= 101; i++ {
		rs.Add(float64(i))
	}

	if rs.Count() != 100 {
		t.Fatalf("Expected count 100, got %d", rs.Count())
	}

	window := rs.Values()
	if window[0] != 2 || window[len(window)-1] != 101 {
		t.Fatalf("Expected window 2..101, got %v..%v", window[0], window[len(window)-1])
	}

	var sum float64
	for _, v := range window {
		sum += v
	}
	mean := sum / float64(len(window))
	var sq float64
	for _, v := range window {
		sq += (v - mean) * (v - mean)
	}
	variance := sq / float64(len(window))

	if rs.Mean() != mean {
		t.Errorf("Expected mean %.6f, got %.6f", mean, rs.Mean())
	}
	if rs.Variance() != variance {
		t.Errorf("Expected variance %.6f, got %.6f", variance, rs.Variance())
	}
	if math.Abs(rs.Mean()-51.5) > 1e-9 {
		t.Errorf("Expected mean 51.5, got %.6f", rs.Mean())
	}
	if math.Abs(rs.Variance()-833.25) > 1e-9 {
		t.Errorf("Expected variance 833.25, got %.6f", rs.Variance())
	}
}

func TestRollingStats_NoDriftOverLongStream(t *testing.T) {
	rs := NewRollingStats(50, DefaultMinSamples)

	for i := 0; i < 10000; i++ {
		rs.Add(1e6 + float64(i%7))
	}

	window := rs.Values()
	var sum float64
	for _, v := range window {
		sum += v
	}
	mean := sum / float64(len(window))

	if math.Abs(rs.Mean()-mean) > 1e-9 {
		t.Errorf("Mean drifted: got %.9f, want %.9f", rs.Mean(), mean)
	}
}

func BenchmarkRollingStatsAdd(b *testing.B) {
	rs := NewRollingStats(DefaultWindowCapacity, DefaultMinSamples)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rs.Add(float64(i % 100))
	}
}
