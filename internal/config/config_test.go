package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"lab-anomaly-service/internal/analytics"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, ":8080", cfg.ServerAddr)
	assert.Equal(t, "HAWKINS-LAB-001", cfg.SensorID)
	assert.Equal(t, "main_lab", cfg.Location)
	assert.Equal(t, 5*time.Second, cfg.PollingInterval)
	assert.Equal(t, analytics.DefaultZScoreThreshold, cfg.ZScoreThreshold)
	assert.Equal(t, analytics.DefaultMinSamples, cfg.MinSamples)
	assert.Equal(t, analytics.DefaultWindowCapacity, cfg.WindowCapacity)
	assert.True(t, cfg.UseZScore)
	assert.Equal(t, "lab.alerts", cfg.AMQPExchange)
	assert.Equal(t, "voice-alerts", cfg.S3Bucket)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("SENSOR_ID", "LAB-007")
	t.Setenv("STATIONS", "LAB-008, LAB-007 ,,LAB-009")
	t.Setenv("POLLING_INTERVAL", "2.5")
	t.Setenv("ZSCORE_THRESHOLD", "3")
	t.Setenv("MIN_SAMPLES", "20")
	t.Setenv("USE_ZSCORE", "false")
	t.Setenv("REDIS_DB", "0")
	t.Setenv("EXPLAINER_TIMEOUT", "750ms")

	cfg := Load()

	assert.Equal(t, 2500*time.Millisecond, cfg.PollingInterval)
	assert.Equal(t, 750*time.Millisecond, cfg.ExplainerTimeout)
	assert.Equal(t, []string{"LAB-007", "LAB-008", "LAB-009"}, cfg.AllStations())
	assert.Equal(t, 0, cfg.RedisDB)

	opts := cfg.DetectorOptions()
	assert.Equal(t, 3.0, opts.ZScoreThreshold)
	assert.Equal(t, 20, opts.MinSamples)
	assert.False(t, opts.UseZScore)
	assert.Equal(t, analytics.DefaultThresholds(), opts.Thresholds)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("WINDOW_CAPACITY", "lots")
	t.Setenv("POLLING_INTERVAL", "-1s")
	t.Setenv("USE_ZSCORE", "maybe")

	cfg := Load()

	assert.Equal(t, analytics.DefaultWindowCapacity, cfg.WindowCapacity)
	assert.Equal(t, 5*time.Second, cfg.PollingInterval)
	assert.True(t, cfg.UseZScore)
}
