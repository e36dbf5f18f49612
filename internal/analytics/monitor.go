package analytics

import (
	"sort"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lab-anomaly-service/internal/metrics"
	"lab-anomaly-service/internal/models"
)

// station детектор одной станции и его блокировка
type station struct {
	mu         sync.Mutex
	detector   *Detector
	lastBreach int
}

// Monitor держит по одному Detector на станцию и обрабатывает измерения пулом воркеров.
// Измерения станции всегда попадают к одному воркеру, поэтому порядок сохраняется.
type Monitor struct {
	opts     Options // с примененными значениями по умолчанию
	mu       sync.RWMutex
	stations map[string]*station

	inputs   []chan models.Sample
	results  chan models.StationResult
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	logger   zerolog.Logger
}

// NewMonitor создает монитор; bufferSize задает емкость очередей
func NewMonitor(opts Options, bufferSize int) *Monitor {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Monitor{
		opts:     opts.withDefaults(),
		stations: make(map[string]*station),
		results:  make(chan models.StationResult, bufferSize),
		stopChan: make(chan struct{}),
		logger:   log.With().Str("component", "monitor").Logger(),
	}
}

// Start запускает воркеры. Вызывается один раз до Submit.
func (m *Monitor) Start(numWorkers int) {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	capacity := cap(m.results)
	m.inputs = make([]chan models.Sample, numWorkers)
	for i := range m.inputs {
		m.inputs[i] = make(chan models.Sample, capacity)
		m.wg.Add(1)
		go m.worker(m.inputs[i])
	}
}

// worker горутина для обработки измерений
func (m *Monitor) worker(in <-chan models.Sample) {
	defer m.wg.Done()
	for {
		select {
		case sample := <-in:
			result := m.AnalyzeSync(sample)
			select {
			case m.results <- result:
			default:
				metrics.ResultsDropped.Inc()
				m.logger.Warn().Str("source_id", sample.SourceID).Msg("results channel full, dropping result")
			}
		case <-m.stopChan:
			return
		}
	}
}

// Submit ставит измерение в очередь воркера станции. false, если очередь заполнена
// или монитор остановлен.
func (m *Monitor) Submit(sample models.Sample) bool {
	if len(m.inputs) == 0 {
		return false
	}
	select {
	case <-m.stopChan:
		return false
	default:
	}

	idx := xxhash.Sum64String(sample.SourceID) % uint64(len(m.inputs))
	select {
	case m.inputs[idx] <- sample:
		return true
	default:
		return false
	}
}

// Results возвращает канал результатов; закрывается после Stop
func (m *Monitor) Results() <-chan models.StationResult {
	return m.results
}

// AnalyzeSync синхронно анализирует измерение и оценивает уровень прорыва
func (m *Monitor) AnalyzeSync(sample models.Sample) models.StationResult {
	st := m.station(sample.SourceID)

	start := time.Now()
	st.mu.Lock()
	detection := st.detector.Analyze(sample)
	breach := ComputeBreach(detection)
	st.lastBreach = breach.Level
	st.mu.Unlock()
	metrics.AnalysisLatency.Observe(time.Since(start).Seconds())

	return models.StationResult{
		Sample:    sample,
		Detection: detection,
		Breach:    breach,
	}
}

// ResetHistory сбрасывает историю канала станции (пустой channel сбрасывает все).
// false, если станция еще не присылала данных.
func (m *Monitor) ResetHistory(sourceID, channel string) bool {
	m.mu.RLock()
	st, ok := m.stations[sourceID]
	m.mu.RUnlock()
	if !ok {
		return false
	}

	st.mu.Lock()
	st.detector.ResetHistory(channel)
	st.mu.Unlock()
	return true
}

// Calibration возвращает прогресс калибровки станции
func (m *Monitor) Calibration(sourceID string) (models.CalibrationStatus, bool) {
	m.mu.RLock()
	st, ok := m.stations[sourceID]
	m.mu.RUnlock()
	if !ok {
		return models.CalibrationStatus{}, false
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	return models.CalibrationStatus{
		SourceID:   sourceID,
		MinSamples: st.detector.MinSamples(),
		Channels:   st.detector.Calibration(),
	}, true
}

// Thresholds возвращает таблицу границ, с которой создаются детекторы
func (m *Monitor) Thresholds() models.ThresholdConfig {
	return m.opts.Thresholds.Clone()
}

// Settings возвращает действующую конфигурацию детекторов станций
func (m *Monitor) Settings() Options {
	opts := m.opts
	opts.Thresholds = m.opts.Thresholds.Clone()
	return opts
}

// Stations возвращает отсортированный список известных станций
func (m *Monitor) Stations() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.stations))
	for id := range m.stations {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// LastBreach возвращает последний уровень прорыва по станциям
func (m *Monitor) LastBreach() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]int, len(m.stations))
	for id, st := range m.stations {
		st.mu.Lock()
		out[id] = st.lastBreach
		st.mu.Unlock()
	}
	return out
}

// Stop останавливает воркеры и закрывает канал результатов
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopChan)
		m.wg.Wait()
		close(m.results)
	})
}

func (m *Monitor) station(sourceID string) *station {
	m.mu.RLock()
	st, ok := m.stations[sourceID]
	m.mu.RUnlock()
	if ok {
		return st
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok = m.stations[sourceID]; ok {
		return st
	}
	st = &station{detector: NewDetector(m.opts)}
	m.stations[sourceID] = st
	return st
}
