package models

import "time"

// SamplesBatch пакет измерений для массовой загрузки
type SamplesBatch struct {
	Samples []Sample `json:"samples"`
}

// HealthStatus представляет статус здоровья сервиса
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Redis     string    `json:"redis"`
	Uptime    string    `json:"uptime"`
}

// StatsResponse содержит статистику сервиса
type StatsResponse struct {
	TotalSamples   int64          `json:"total_samples"`
	AnomaliesCount int64          `json:"anomalies_count"`
	Stations       []string       `json:"stations"`
	LastBreach     map[string]int `json:"last_breach_level"`
}

// CalibrationStatus прогресс накопления истории по каналам станции
type CalibrationStatus struct {
	SourceID   string         `json:"source_id"`
	MinSamples int            `json:"min_samples"`
	Channels   map[string]int `json:"samples_collected"`
}
