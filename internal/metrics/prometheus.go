// Package metrics реализует экспорт метрик в Prometheus
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"lab-anomaly-service/internal/models"
)

// Prometheus метрики
var (
	// RequestsTotal общее количество запросов
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lab_requests_total",
			Help: "Total number of requests processed",
		},
		[]string{"endpoint", "method", "status"},
	)

	// RequestDuration длительность запросов
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lab_request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"endpoint", "method"},
	)

	// SamplesReceived количество принятых измерений
	SamplesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lab_samples_received_total",
			Help: "Total number of sensor samples analyzed",
		},
		[]string{"source_id"},
	)

	// SensorValue последнее значение канала
	SensorValue = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lab_sensor_value",
			Help: "Latest reading per channel",
		},
		[]string{"channel", "source_id", "location"},
	)

	// ZScore последний z-score канала
	ZScore = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lab_sensor_zscore",
			Help: "Latest z-score per channel, set only when the check ran",
		},
		[]string{"channel", "source_id"},
	)

	// AnomaliesDetected количество измерений с аномалией
	AnomaliesDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lab_anomalies_detected_total",
			Help: "Total number of samples with at least one triggered channel",
		},
		[]string{"source_id"},
	)

	// ChannelTriggers срабатывания по каналам
	ChannelTriggers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lab_channel_triggers_total",
			Help: "Triggered channels by reason",
		},
		[]string{"channel", "reason"},
	)

	// TriggeredChannels число сработавших каналов в последнем цикле
	TriggeredChannels = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lab_triggered_channels",
			Help: "Number of triggered channels in the latest sample",
		},
		[]string{"source_id"},
	)

	// BreachLevel последний уровень прорыва
	BreachLevel = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lab_breach_level",
			Help: "Latest breach level (0-10)",
		},
		[]string{"source_id", "location"},
	)

	// AnalysisLatency время выполнения анализа
	AnalysisLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lab_analysis_latency_seconds",
			Help:    "Analysis computation latency in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05},
		},
	)

	// CollaboratorFailures ошибки внешних сервисов
	CollaboratorFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lab_collaborator_failures_total",
			Help: "Failures of cache, explainer, voice, storage and alert publisher",
		},
		[]string{"collaborator"},
	)

	// ResultsDropped результаты, не принятые потребителем
	ResultsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lab_results_dropped_total",
			Help: "Results dropped because the consumer was not keeping up",
		},
	)
)

// RecordResult обновляет метрики по результату станции
func RecordResult(res models.StationResult) {
	meta := res.Detection.Metadata
	sourceID := meta.SourceID
	if sourceID == "" {
		sourceID = res.Sample.SourceID
	}

	SamplesReceived.WithLabelValues(sourceID).Inc()

	for name, detail := range res.Detection.Channels {
		SensorValue.WithLabelValues(name, sourceID, meta.Location).Set(detail.Value)
		if detail.ZScore != nil && detail.ZScore.Checked {
			ZScore.WithLabelValues(name, sourceID).Set(detail.ZScore.ZScore)
		}
		for _, reason := range detail.Reasons {
			ChannelTriggers.WithLabelValues(name, reason).Inc()
		}
	}

	if res.Detection.AnomalyDetected {
		AnomaliesDetected.WithLabelValues(sourceID).Inc()
	}
	TriggeredChannels.WithLabelValues(sourceID).Set(float64(len(res.Detection.TriggeredChannels)))
	BreachLevel.WithLabelValues(sourceID, meta.Location).Set(float64(res.Breach.Level))
}
