// Package explain превращает сработавшие каналы в тематические предупреждения.
// Текст генерирует LLM через OpenAI-совместимый API; при любой ошибке используется
// детерминированный шаблон по имени канала.
package explain

import (
	"strconv"
	"time"

	"lab-anomaly-service/internal/analytics"
	"lab-anomaly-service/internal/models"
)

// Уровни серьезности для генератора объяснений
const (
	SeverityWarning  = "WARNING"
	SeverityCritical = "CRITICAL"
)

// Anomaly данные одного сработавшего канала для объяснения
type Anomaly struct {
	SourceID     string    `json:"source_id"`
	Channel      string    `json:"channel"`
	Value        float64   `json:"value"`
	Unit         string    `json:"unit"`
	ThresholdMin float64   `json:"threshold_min"`
	ThresholdMax float64   `json:"threshold_max"`
	Location     string    `json:"location"`
	Timestamp    time.Time `json:"timestamp"`
	Severity     string    `json:"severity"`
}

// FromDetection строит Anomaly для каждого сработавшего канала в порядке срабатывания.
// Границы берутся из результата проверки, затем из thresholds, затем 0..100.
func FromDetection(res models.DetectionResult, thresholds models.ThresholdConfig) []Anomaly {
	if thresholds == nil {
		thresholds = analytics.DefaultThresholds()
	}

	severity := SeverityWarning
	if len(res.TriggeredChannels) >= 2 {
		severity = SeverityCritical
	}

	ts := res.Metadata.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	out := make([]Anomaly, 0, len(res.TriggeredChannels))
	for _, name := range res.TriggeredChannels {
		detail := res.Channels[name]

		lo, hi := 0.0, 100.0
		if detail.Threshold.Checked {
			lo, hi = detail.Threshold.Min, detail.Threshold.Max
		} else if cfg, ok := thresholds[name]; ok {
			lo, hi = cfg.Min, cfg.Max
		}

		out = append(out, Anomaly{
			SourceID:     res.Metadata.SourceID,
			Channel:      name,
			Value:        detail.Value,
			Unit:         detail.Unit,
			ThresholdMin: lo,
			ThresholdMax: hi,
			Location:     res.Metadata.Location,
			Timestamp:    ts,
			Severity:     severity,
		})
	}
	return out
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
