package analytics

import (
	"math"
	"sort"

	"lab-anomaly-service/internal/models"
)

// DefaultZScoreThreshold порог z-score для детекции аномалий (> 2.5σ)
const DefaultZScoreThreshold = 2.5

// DefaultThresholds возвращает таблицу границ лабораторных каналов
func DefaultThresholds() models.ThresholdConfig {
	return models.ThresholdConfig{
		"temperature": {Min: 15.0, Max: 32.0, Unit: "°C"},
		"gas":         {Min: 0.0, Max: 75.0, Unit: "ppm"},
		"vibration":   {Min: 0.0, Max: 4.0, Unit: "mm/s"},
		"cpu_usage":   {Min: 0.0, Max: 85.0, Unit: "%"},
	}
}

// Options конфигурация детектора, задается только при создании
type Options struct {
	Thresholds      models.ThresholdConfig
	ZScoreThreshold float64
	MinSamples      int
	WindowCapacity  int
	UseZScore       bool
}

// DefaultOptions возвращает конфигурацию по умолчанию с включенным z-score
func DefaultOptions() Options {
	return Options{
		Thresholds:      DefaultThresholds(),
		ZScoreThreshold: DefaultZScoreThreshold,
		MinSamples:      DefaultMinSamples,
		WindowCapacity:  DefaultWindowCapacity,
		UseZScore:       true,
	}
}

// Detector проверяет показания по границам и по z-score.
// Держит историю каналов одной станции; не безопасен для конкурентного доступа.
type Detector struct {
	thresholds     models.ThresholdConfig
	zThreshold     float64
	minSamples     int
	windowCapacity int
	useZScore      bool
	history        map[string]*RollingStats
}

// withDefaults заменяет нулевые поля значениями по умолчанию
func (o Options) withDefaults() Options {
	if len(o.Thresholds) == 0 {
		o.Thresholds = DefaultThresholds()
	} else {
		o.Thresholds = o.Thresholds.Clone()
	}
	if o.ZScoreThreshold <= 0 {
		o.ZScoreThreshold = DefaultZScoreThreshold
	}
	if o.MinSamples <= 0 {
		o.MinSamples = DefaultMinSamples
	}
	if o.WindowCapacity <= 0 {
		o.WindowCapacity = DefaultWindowCapacity
	}
	return o
}

// NewDetector создает детектор; нулевые поля Options заменяются значениями по умолчанию
func NewDetector(opts Options) *Detector {
	opts = opts.withDefaults()
	return &Detector{
		thresholds:     opts.Thresholds,
		zThreshold:     opts.ZScoreThreshold,
		minSamples:     opts.MinSamples,
		windowCapacity: opts.WindowCapacity,
		useZScore:      opts.UseZScore,
		history:        make(map[string]*RollingStats),
	}
}

// Thresholds возвращает копию таблицы границ
func (d *Detector) Thresholds() models.ThresholdConfig {
	return d.thresholds.Clone()
}

// MinSamples возвращает порог калибровки z-score
func (d *Detector) MinSamples() int {
	return d.minSamples
}

// CheckThreshold проверяет значение канала по статическим границам
func (d *Detector) CheckThreshold(channel string, value float64) models.ThresholdResult {
	cfg, ok := d.thresholds[channel]
	if !ok {
		return models.ThresholdResult{Checked: false, Reason: models.ReasonNoThresholdConfig, Value: value}
	}

	violation := models.ViolationNone
	switch {
	case value < cfg.Min:
		violation = models.ViolationBelowMin
	case value > cfg.Max:
		violation = models.ViolationAboveMax
	}

	return models.ThresholdResult{
		Checked:   true,
		IsAnomaly: violation != models.ViolationNone,
		Value:     value,
		Min:       cfg.Min,
		Max:       cfg.Max,
		Violation: violation,
	}
}

// CheckZScore проверяет отклонение значения от скользящего среднего канала.
// История не изменяется.
func (d *Detector) CheckZScore(channel string, value float64) models.ZScoreResult {
	hist := d.history[channel]
	collected := 0
	if hist != nil {
		collected = hist.Count()
	}

	if hist == nil || !hist.Ready() {
		return models.ZScoreResult{
			Checked:          false,
			Reason:           models.ReasonInsufficientHistory,
			Threshold:        d.zThreshold,
			SamplesNeeded:    d.minSamples,
			SamplesCollected: collected,
		}
	}

	z, ok := hist.ZScore(value)
	if !ok {
		return models.ZScoreResult{
			Checked:          false,
			Reason:           models.ReasonZeroVariance,
			Threshold:        d.zThreshold,
			Mean:             hist.Mean(),
			SamplesCollected: collected,
		}
	}

	return models.ZScoreResult{
		Checked:          true,
		IsAnomaly:        math.Abs(z) > d.zThreshold,
		ZScore:           z,
		Threshold:        d.zThreshold,
		Mean:             hist.Mean(),
		StdDev:           hist.StdDev(),
		SamplesCollected: collected,
	}
}

// Analyze анализирует все каналы Sample.
// Каналы без значения пропускаются. История канала обновляется после вычисления z-score,
// чтобы текущее значение не влияло на собственную базу.
func (d *Detector) Analyze(sample models.Sample) models.DetectionResult {
	names := make([]string, 0, len(sample.Readings))
	for name := range sample.Readings {
		names = append(names, name)
	}
	sort.Strings(names)

	result := models.DetectionResult{
		TriggeredChannels: []string{},
		Channels:          make(map[string]models.ChannelDetail, len(names)),
		Metadata: models.DetectionMetadata{
			Timestamp:   sample.Timestamp,
			SourceID:    sample.SourceID,
			Location:    sample.Location,
			MethodsUsed: d.methods(),
		},
	}

	for _, name := range names {
		reading := sample.Readings[name]
		if reading.Value == nil {
			continue
		}
		value := *reading.Value

		detail := models.ChannelDetail{
			Value:   value,
			Unit:    reading.Unit,
			Reasons: []string{},
		}

		detail.Threshold = d.CheckThreshold(name, value)
		switch detail.Threshold.Violation {
		case models.ViolationBelowMin:
			detail.Reasons = append(detail.Reasons, models.TriggerBelowMin)
		case models.ViolationAboveMax:
			detail.Reasons = append(detail.Reasons, models.TriggerAboveMax)
		}

		if d.useZScore {
			zr := d.CheckZScore(name, value)
			detail.ZScore = &zr
			if zr.IsAnomaly {
				detail.Reasons = append(detail.Reasons, models.TriggerZScore)
			}
			d.historyFor(name).Add(value)
		}

		if detail.Triggered() {
			result.TriggeredChannels = append(result.TriggeredChannels, name)
		}
		result.Channels[name] = detail
	}

	result.AnomalyDetected = len(result.TriggeredChannels) > 0
	return result
}

// ResetHistory сбрасывает историю канала; пустое имя сбрасывает все каналы
func (d *Detector) ResetHistory(channel string) {
	if channel == "" {
		d.history = make(map[string]*RollingStats)
		return
	}
	delete(d.history, channel)
}

// Calibration возвращает количество накопленных значений по каналам
func (d *Detector) Calibration() map[string]int {
	out := make(map[string]int, len(d.history))
	for name, h := range d.history {
		out[name] = h.Count()
	}
	return out
}

func (d *Detector) historyFor(channel string) *RollingStats {
	h, ok := d.history[channel]
	if !ok {
		h = NewRollingStats(d.windowCapacity, d.minSamples)
		d.history[channel] = h
	}
	return h
}

func (d *Detector) methods() []string {
	if d.useZScore {
		return []string{models.MethodThreshold, models.MethodZScore}
	}
	return []string{models.MethodThreshold}
}
