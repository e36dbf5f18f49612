// Package handlers содержит HTTP обработчики для API
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lab-anomaly-service/internal/analytics"
	"lab-anomaly-service/internal/cache"
	"lab-anomaly-service/internal/metrics"
	"lab-anomaly-service/internal/models"
)

// MaxBatchSize максимальный размер пакета измерений
const MaxBatchSize = 1000

// ResultSink получает каждый результат анализа: метрики, кэш, уведомления
type ResultSink interface {
	Handle(ctx context.Context, res models.StationResult)
}

// Handler содержит зависимости для HTTP обработчиков
type Handler struct {
	monitor   *analytics.Monitor
	store     cache.Store
	sink      ResultSink
	startTime time.Time
	logger    zerolog.Logger
}

// NewHandler создает новый обработчик; store и sink могут быть nil
func NewHandler(monitor *analytics.Monitor, store cache.Store, sink ResultSink) *Handler {
	return &Handler{
		monitor:   monitor,
		store:     store,
		sink:      sink,
		startTime: time.Now(),
		logger:    log.With().Str("component", "http").Logger(),
	}
}

// SamplesHandler обрабатывает POST /samples - анализ одного измерения
func (h *Handler) SamplesHandler(w http.ResponseWriter, r *http.Request) {
	var sample models.Sample
	if err := json.NewDecoder(r.Body).Decode(&sample); err != nil {
		h.respondError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := normalizeSample(&sample); err != nil {
		h.respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	result := h.analyze(r.Context(), sample)
	h.respondJSON(w, result, http.StatusOK)
}

// BatchSamplesHandler обрабатывает POST /samples/batch - массовая загрузка измерений
func (h *Handler) BatchSamplesHandler(w http.ResponseWriter, r *http.Request) {
	var batch models.SamplesBatch
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		h.respondError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(batch.Samples) > MaxBatchSize {
		h.respondError(w, fmt.Sprintf("batch too large: %d > %d", len(batch.Samples), MaxBatchSize), http.StatusBadRequest)
		return
	}
	for i := range batch.Samples {
		if err := normalizeSample(&batch.Samples[i]); err != nil {
			h.respondError(w, fmt.Sprintf("sample %d: %s", i, err), http.StatusBadRequest)
			return
		}
	}

	results := make([]models.StationResult, 0, len(batch.Samples))
	anomaliesCount := 0
	for _, sample := range batch.Samples {
		result := h.analyze(r.Context(), sample)
		results = append(results, result)
		if result.Detection.AnomalyDetected {
			anomaliesCount++
		}
	}

	response := map[string]interface{}{
		"processed":       len(batch.Samples),
		"anomalies_found": anomaliesCount,
		"results":         results,
	}
	h.respondJSON(w, response, http.StatusOK)
}

// LatestSamplesHandler обрабатывает GET /samples/latest - последние измерения из кэша
func (h *Handler) LatestSamplesHandler(w http.ResponseWriter, r *http.Request) {
	count := int64(50)
	if countStr := r.URL.Query().Get("count"); countStr != "" {
		if c, err := strconv.ParseInt(countStr, 10, 64); err == nil && c > 0 && c <= cache.LatestLimit {
			count = c
		}
	}

	if h.store == nil {
		h.respondError(w, "Cache not available", http.StatusServiceUnavailable)
		return
	}

	samples, err := h.store.LatestSamples(r.Context(), count)
	if err != nil {
		h.respondError(w, "Failed to get samples: "+err.Error(), http.StatusInternalServerError)
		return
	}
	h.respondJSON(w, samples, http.StatusOK)
}

// StationLatestHandler обрабатывает GET /stations/{id}/latest - последний результат станции
func (h *Handler) StationLatestHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if h.store == nil {
		h.respondError(w, "Cache not available", http.StatusServiceUnavailable)
		return
	}

	res, ok, err := h.store.StationResult(r.Context(), id)
	if err != nil {
		h.respondError(w, "Failed to get station result: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if !ok {
		h.respondError(w, "No result for station "+id, http.StatusNotFound)
		return
	}
	h.respondJSON(w, res, http.StatusOK)
}

// CalibrationHandler обрабатывает GET /stations/{id}/calibration
func (h *Handler) CalibrationHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	status, ok := h.monitor.Calibration(id)
	if !ok {
		h.respondError(w, "Unknown station "+id, http.StatusNotFound)
		return
	}
	h.respondJSON(w, status, http.StatusOK)
}

// ResetHandler обрабатывает POST /stations/{id}/reset?channel= - сброс истории
func (h *Handler) ResetHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	channel := r.URL.Query().Get("channel")

	if !h.monitor.ResetHistory(id, channel) {
		h.respondError(w, "Unknown station "+id, http.StatusNotFound)
		return
	}

	h.logger.Info().Str("source_id", id).Str("channel", channel).Msg("History reset")
	h.respondJSON(w, map[string]interface{}{
		"source_id": id,
		"channel":   channel,
		"reset":     true,
	}, http.StatusOK)
}

// ThresholdsHandler обрабатывает GET /thresholds - действующая конфигурация детектора
func (h *Handler) ThresholdsHandler(w http.ResponseWriter, r *http.Request) {
	s := h.monitor.Settings()
	h.respondJSON(w, map[string]interface{}{
		"thresholds":       s.Thresholds,
		"zscore_threshold": s.ZScoreThreshold,
		"min_samples":      s.MinSamples,
		"window_capacity":  s.WindowCapacity,
		"use_zscore":       s.UseZScore,
	}, http.StatusOK)
}

// HealthHandler обрабатывает GET /health - проверка здоровья
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	redisStatus := "disconnected"
	if h.store != nil && h.store.Ping(r.Context()) == nil {
		redisStatus = "connected"
	}

	status := models.HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Redis:     redisStatus,
		Uptime:    time.Since(h.startTime).String(),
	}
	h.respondJSON(w, status, http.StatusOK)
}

// StatsHandler обрабатывает GET /stats - статистика сервиса
func (h *Handler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	var totalSamples, anomaliesCount int64
	if h.store != nil {
		totalSamples, _ = h.store.GetCounter(r.Context(), cache.SamplesTotalKey)
		anomaliesCount, _ = h.store.GetCounter(r.Context(), cache.AnomaliesTotalKey)
	}

	response := models.StatsResponse{
		TotalSamples:   totalSamples,
		AnomaliesCount: anomaliesCount,
		Stations:       h.monitor.Stations(),
		LastBreach:     h.monitor.LastBreach(),
	}
	h.respondJSON(w, response, http.StatusOK)
}

func (h *Handler) analyze(ctx context.Context, sample models.Sample) models.StationResult {
	result := h.monitor.AnalyzeSync(sample)

	if h.sink != nil {
		h.sink.Handle(ctx, result)
	} else {
		metrics.RecordResult(result)
	}
	return result
}

// normalizeSample проверяет измерение и заполняет пропущенные поля
func normalizeSample(s *models.Sample) error {
	if s.SourceID == "" {
		return errors.New("source_id is required")
	}
	if len(s.Readings) == 0 {
		return errors.New("readings must not be empty")
	}
	for name, reading := range s.Readings {
		if reading.Channel == "" {
			reading.Channel = name
			s.Readings[name] = reading
		}
	}
	// Устанавливаем временную метку, если не указана
	if s.Timestamp.IsZero() {
		s.Timestamp = time.Now().UTC()
	}
	return nil
}

// respondJSON отправляет JSON ответ
func (h *Handler) respondJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

// respondError отправляет ошибку в JSON формате
func (h *Handler) respondError(w http.ResponseWriter, message string, status int) {
	h.respondJSON(w, map[string]string{"error": message}, status)
}
