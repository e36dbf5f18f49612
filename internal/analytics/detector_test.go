package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lab-anomaly-service/internal/models"
)

func sample(readings map[string]float64) models.Sample {
	s := models.Sample{
		Timestamp: time.Date(2026, 2, 20, 15, 30, 0, 0, time.UTC),
		SourceID:  "LAB-001",
		Location:  "main_lab",
		Readings:  make(map[string]models.Reading, len(readings)),
	}
	for name, v := range readings {
		s.Readings[name] = models.Reading{Channel: name, Value: models.Float(v), Unit: DefaultThresholds()[name].Unit}
	}
	return s
}

// prime подает значения 22/24 по очереди: среднее 23, σ = 1
func prime(d *Detector, channel string, n int) {
	for i := 0; i < n; i++ {
		v := 22.0
		if i%2 == 1 {
			v = 24.0
		}
		d.Analyze(sample(map[string]float64{channel: v}))
	}
}

func TestCheckThreshold(t *testing.T) {
	d := NewDetector(DefaultOptions())

	tests := []struct {
		name      string
		channel   string
		value     float64
		checked   bool
		anomaly   bool
		violation models.Violation
	}{
		{"above max", "temperature", 33, true, true, models.ViolationAboveMax},
		{"below min", "temperature", 14.9, true, true, models.ViolationBelowMin},
		{"inside range", "temperature", 23, true, false, models.ViolationNone},
		{"exactly max", "temperature", 32, true, false, models.ViolationNone},
		{"exactly min", "gas", 0, true, false, models.ViolationNone},
		{"gas above max", "gas", 120, true, true, models.ViolationAboveMax},
		{"unconfigured", "humidity", 99, false, false, models.ViolationNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := d.CheckThreshold(tt.channel, tt.value)
			assert.Equal(t, tt.checked, res.Checked)
			assert.Equal(t, tt.anomaly, res.IsAnomaly)
			assert.Equal(t, tt.violation, res.Violation)
			if !tt.checked {
				assert.Equal(t, models.ReasonNoThresholdConfig, res.Reason)
			}
		})
	}
}

func TestCheckZScore_InsufficientHistory(t *testing.T) {
	d := NewDetector(DefaultOptions())

	res := d.CheckZScore("temperature", 23)
	assert.False(t, res.Checked)
	assert.Equal(t, models.ReasonInsufficientHistory, res.Reason)
	assert.Equal(t, 0, res.SamplesCollected)

	prime(d, "temperature", 9)

	res = d.CheckZScore("temperature", 23)
	assert.False(t, res.Checked)
	assert.Equal(t, models.ReasonInsufficientHistory, res.Reason)
	assert.Equal(t, 9, res.SamplesCollected)
	assert.Equal(t, DefaultMinSamples, res.SamplesNeeded)
}

func TestCheckZScore_ZeroVariance(t *testing.T) {
	d := NewDetector(DefaultOptions())
	for i := 0; i < 10; i++ {
		d.Analyze(sample(map[string]float64{"temperature": 23}))
	}

	same := d.CheckZScore("temperature", 23)
	assert.True(t, same.Checked)
	assert.Equal(t, 0.0, same.ZScore)
	assert.False(t, same.IsAnomaly)

	diff := d.CheckZScore("temperature", 24)
	assert.False(t, diff.Checked)
	assert.False(t, diff.IsAnomaly)
	assert.Equal(t, models.ReasonZeroVariance, diff.Reason)
}

func TestCheckZScore_DoesNotUpdateHistory(t *testing.T) {
	d := NewDetector(DefaultOptions())
	prime(d, "temperature", 12)

	d.CheckZScore("temperature", 30)
	d.CheckZScore("temperature", 30)

	assert.Equal(t, 12, d.Calibration()["temperature"])
}

func TestAnalyze_TenthSampleStillCalibrating(t *testing.T) {
	d := NewDetector(DefaultOptions())

	normal := []float64{22.8, 23.1, 22.9, 23.3, 23.0, 22.7, 23.2, 23.1, 22.9}
	for _, v := range normal {
		res := d.Analyze(sample(map[string]float64{"temperature": v}))
		require.False(t, res.AnomalyDetected)
	}

	// z-score 10-го значения считается по 9 накопленным, до обновления истории
	res := d.Analyze(sample(map[string]float64{"temperature": 23}))
	zr := res.Channels["temperature"].ZScore
	require.NotNil(t, zr)
	assert.False(t, zr.Checked)
	assert.Equal(t, models.ReasonInsufficientHistory, zr.Reason)
	assert.Equal(t, 9, zr.SamplesCollected)
	assert.Equal(t, 10, d.Calibration()["temperature"])

	res = d.Analyze(sample(map[string]float64{"temperature": 23}))
	zr = res.Channels["temperature"].ZScore
	require.NotNil(t, zr)
	assert.True(t, zr.Checked)
	assert.Equal(t, 10, zr.SamplesCollected)
	assert.False(t, res.AnomalyDetected)
}

func TestAnalyze_ZScoreOnlyAnomaly(t *testing.T) {
	d := NewDetector(DefaultOptions())
	prime(d, "temperature", 20)

	// 31 внутри границ, но на 8σ от среднего
	res := d.Analyze(sample(map[string]float64{"temperature": 31}))

	assert.True(t, res.AnomalyDetected)
	assert.Equal(t, []string{"temperature"}, res.TriggeredChannels)
	detail := res.Channels["temperature"]
	assert.Equal(t, []string{models.TriggerZScore}, detail.Reasons)
	assert.False(t, detail.Threshold.IsAnomaly)
	require.NotNil(t, detail.ZScore)
	assert.InDelta(t, 8.0, detail.ZScore.ZScore, 1e-6)
	assert.InDelta(t, 23.0, detail.ZScore.Mean, 1e-6)
	assert.InDelta(t, 1.0, detail.ZScore.StdDev, 1e-6)
}

func TestAnalyze_MultipleReasons(t *testing.T) {
	d := NewDetector(DefaultOptions())
	prime(d, "temperature", 20)

	res := d.Analyze(sample(map[string]float64{"temperature": 40}))

	assert.Equal(t,
		[]string{models.TriggerAboveMax, models.TriggerZScore},
		res.Channels["temperature"].Reasons)
}

func TestAnalyze_ThresholdOnly(t *testing.T) {
	opts := DefaultOptions()
	opts.UseZScore = false
	d := NewDetector(opts)

	res := d.Analyze(sample(map[string]float64{
		"temperature": 45,
		"gas":         10,
		"vibration":   9,
		"cpu_usage":   50,
	}))

	assert.True(t, res.AnomalyDetected)
	assert.Equal(t, []string{"temperature", "vibration"}, res.TriggeredChannels)
	assert.Equal(t, []string{models.MethodThreshold}, res.Metadata.MethodsUsed)
	assert.Nil(t, res.Channels["gas"].ZScore)
	assert.Empty(t, d.Calibration())
}

func TestAnalyze_TriggerOrderIsSorted(t *testing.T) {
	d := NewDetector(DefaultOptions())

	res := d.Analyze(sample(map[string]float64{
		"vibration":   12,
		"temperature": 50,
		"gas":         300,
		"cpu_usage":   99,
	}))

	assert.Equal(t, []string{"cpu_usage", "gas", "temperature", "vibration"}, res.TriggeredChannels)
	assert.Len(t, res.Triggered(), 4)
}

func TestAnalyze_MissingValueSkipped(t *testing.T) {
	d := NewDetector(DefaultOptions())

	s := sample(map[string]float64{"gas": 10})
	s.Readings["temperature"] = models.Reading{Channel: "temperature", Unit: "°C"}

	res := d.Analyze(s)

	assert.False(t, res.AnomalyDetected)
	_, ok := res.Channels["temperature"]
	assert.False(t, ok)
	_, ok = d.Calibration()["temperature"]
	assert.False(t, ok)
	assert.Equal(t, 1, d.Calibration()["gas"])
}

func TestAnalyze_UnconfiguredChannel(t *testing.T) {
	d := NewDetector(DefaultOptions())

	res := d.Analyze(sample(map[string]float64{"humidity": 1000}))

	assert.False(t, res.AnomalyDetected)
	detail := res.Channels["humidity"]
	assert.False(t, detail.Threshold.Checked)
	assert.Equal(t, models.ReasonNoThresholdConfig, detail.Threshold.Reason)
}

func TestAnalyze_Metadata(t *testing.T) {
	d := NewDetector(DefaultOptions())
	s := sample(map[string]float64{"gas": 10})

	res := d.Analyze(s)

	assert.Equal(t, s.Timestamp, res.Metadata.Timestamp)
	assert.Equal(t, "LAB-001", res.Metadata.SourceID)
	assert.Equal(t, "main_lab", res.Metadata.Location)
	assert.Equal(t, []string{models.MethodThreshold, models.MethodZScore}, res.Metadata.MethodsUsed)
	assert.NotNil(t, res.TriggeredChannels)
}

func TestResetHistory(t *testing.T) {
	d := NewDetector(DefaultOptions())
	for i := 0; i < 12; i++ {
		d.Analyze(sample(map[string]float64{
			"temperature": 22 + float64(i%3),
			"gas":         10 + float64(i%4),
		}))
	}

	d.ResetHistory("temperature")

	cal := d.Calibration()
	_, ok := cal["temperature"]
	assert.False(t, ok)
	assert.Equal(t, 12, cal["gas"])
	assert.False(t, d.CheckZScore("temperature", 23).Checked)
	assert.True(t, d.CheckZScore("gas", 11).Checked)

	d.ResetHistory("never-seen")
	assert.Len(t, d.Calibration(), 1)

	d.ResetHistory("")
	assert.Empty(t, d.Calibration())
}

func TestNewDetector_Defaults(t *testing.T) {
	d := NewDetector(Options{})

	assert.Equal(t, DefaultThresholds(), d.Thresholds())
	assert.Equal(t, DefaultMinSamples, d.MinSamples())
	assert.Equal(t, []string{models.MethodThreshold}, d.methods())
}

func TestNewDetector_ThresholdsAreCopied(t *testing.T) {
	cfg := models.ThresholdConfig{"temperature": {Min: 0, Max: 10, Unit: "°C"}}
	d := NewDetector(Options{Thresholds: cfg})

	cfg["temperature"] = models.Threshold{Min: 0, Max: 100}

	assert.True(t, d.CheckThreshold("temperature", 50).IsAnomaly)
}

func BenchmarkAnalyze(b *testing.B) {
	d := NewDetector(DefaultOptions())
	s := sample(map[string]float64{
		"temperature": 23,
		"gas":         12,
		"vibration":   1.2,
		"cpu_usage":   45,
	})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d.Analyze(s)
	}
}
