// Package models содержит структуры данных сенсоров, результатов детекции и оценки прорыва
package models

import "time"

// Reading одно измерение канала. Value == nil означает, что значение не пришло
type Reading struct {
	Channel string   `json:"channel"`
	Value   *float64 `json:"value"`
	Unit    string   `json:"unit"`
}

// Sample набор измерений одной станции за цикл опроса
type Sample struct {
	Timestamp time.Time          `json:"timestamp"`
	SourceID  string             `json:"source_id"`
	Location  string             `json:"location"`
	Readings  map[string]Reading `json:"readings"`
}

// Float возвращает указатель на значение, удобно для сборки Reading
func Float(v float64) *float64 {
	return &v
}

// Threshold статические границы канала
type Threshold struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Unit string  `json:"unit"`
}

// ThresholdConfig таблица границ по имени канала
type ThresholdConfig map[string]Threshold

// Clone возвращает независимую копию таблицы
func (c ThresholdConfig) Clone() ThresholdConfig {
	out := make(ThresholdConfig, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Violation вид нарушения границ
type Violation string

const (
	ViolationNone     Violation = ""
	ViolationBelowMin Violation = "below_min"
	ViolationAboveMax Violation = "above_max"
)

// Причины, по которым проверка не выполнена
const (
	ReasonNoThresholdConfig   = "no_threshold_config"
	ReasonInsufficientHistory = "insufficient_history"
	ReasonZeroVariance        = "zero_variance"
)

// Причины срабатывания канала
const (
	TriggerBelowMin = "threshold_below_min"
	TriggerAboveMax = "threshold_above_max"
	TriggerZScore   = "zscore_exceeded"
)

// Методы детекции
const (
	MethodThreshold = "threshold"
	MethodZScore    = "zscore"
)

// ThresholdResult результат проверки границ
type ThresholdResult struct {
	Checked   bool      `json:"checked"`
	IsAnomaly bool      `json:"is_anomaly"`
	Reason    string    `json:"reason,omitempty"`
	Value     float64   `json:"value"`
	Min       float64   `json:"min_threshold"`
	Max       float64   `json:"max_threshold"`
	Violation Violation `json:"violation,omitempty"`
}

// ZScoreResult результат проверки отклонения от скользящего среднего
type ZScoreResult struct {
	Checked          bool    `json:"checked"`
	IsAnomaly        bool    `json:"is_anomaly"`
	Reason           string  `json:"reason,omitempty"`
	ZScore           float64 `json:"zscore"`
	Threshold        float64 `json:"threshold"`
	Mean             float64 `json:"mean"`
	StdDev           float64 `json:"std_dev"`
	SamplesNeeded    int     `json:"samples_needed,omitempty"`
	SamplesCollected int     `json:"samples_collected"`
}

// ChannelDetail подробности анализа одного канала
type ChannelDetail struct {
	Value     float64         `json:"value"`
	Unit      string          `json:"unit"`
	Reasons   []string        `json:"reasons"`
	Threshold ThresholdResult `json:"threshold_result"`
	ZScore    *ZScoreResult   `json:"zscore_result,omitempty"`
}

// Triggered сообщает, сработал ли канал
func (d ChannelDetail) Triggered() bool {
	return len(d.Reasons) > 0
}

// DetectionMetadata метаданные анализа
type DetectionMetadata struct {
	Timestamp   time.Time `json:"timestamp"`
	SourceID    string    `json:"source_id"`
	Location    string    `json:"location"`
	MethodsUsed []string  `json:"detection_methods"`
}

// DetectionResult результат анализа одного Sample
type DetectionResult struct {
	AnomalyDetected   bool                     `json:"anomaly_detected"`
	TriggeredChannels []string                 `json:"triggered_channels"`
	Channels          map[string]ChannelDetail `json:"channels"`
	Metadata          DetectionMetadata        `json:"metadata"`
}

// Triggered возвращает подробности только сработавших каналов в порядке срабатывания
func (r DetectionResult) Triggered() []ChannelDetail {
	out := make([]ChannelDetail, 0, len(r.TriggeredChannels))
	for _, name := range r.TriggeredChannels {
		out = append(out, r.Channels[name])
	}
	return out
}

// BreachAssessment итоговая оценка уровня прорыва
type BreachAssessment struct {
	Level             int      `json:"level"`
	Label             string   `json:"label"`
	TriggeredChannels []string `json:"triggered_channels"`
	Count             int      `json:"count"`
	IsMultiChannel    bool     `json:"is_multi_channel"`
	Recommendation    string   `json:"recommendation"`
}

// StationResult полный результат цикла для станции
type StationResult struct {
	Sample    Sample           `json:"sample"`
	Detection DetectionResult  `json:"detection"`
	Breach    BreachAssessment `json:"breach"`
}
