package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lab-anomaly-service/internal/metrics"
)

// NewRouter регистрирует все маршруты API
func NewRouter(h *Handler) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/samples", instrument("/samples", h.SamplesHandler)).Methods(http.MethodPost)
	router.HandleFunc("/samples/batch", instrument("/samples/batch", h.BatchSamplesHandler)).Methods(http.MethodPost)
	router.HandleFunc("/samples/latest", instrument("/samples/latest", h.LatestSamplesHandler)).Methods(http.MethodGet)
	router.HandleFunc("/stations/{id}/latest", instrument("/stations/{id}/latest", h.StationLatestHandler)).Methods(http.MethodGet)
	router.HandleFunc("/stations/{id}/calibration", instrument("/stations/{id}/calibration", h.CalibrationHandler)).Methods(http.MethodGet)
	router.HandleFunc("/stations/{id}/reset", instrument("/stations/{id}/reset", h.ResetHandler)).Methods(http.MethodPost)
	router.HandleFunc("/thresholds", instrument("/thresholds", h.ThresholdsHandler)).Methods(http.MethodGet)
	router.HandleFunc("/stats", instrument("/stats", h.StatsHandler)).Methods(http.MethodGet)
	router.HandleFunc("/health", h.HealthHandler).Methods(http.MethodGet)

	// Prometheus метрики
	router.Handle("/prometheus", promhttp.Handler())

	return router
}

// statusRecorder запоминает код ответа
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// instrument считает запросы и их длительность по шаблону маршрута
func instrument(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		timer := prometheus.NewTimer(metrics.RequestDuration.WithLabelValues(endpoint, r.Method))
		defer timer.ObserveDuration()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)

		metrics.RequestsTotal.WithLabelValues(endpoint, r.Method, strconv.Itoa(rec.status)).Inc()
	}
}
