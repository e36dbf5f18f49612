// Package simulator генерирует синтетические показания лабораторных сенсоров
package simulator

import (
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"lab-anomaly-service/internal/models"
)

// DefaultAnomalyProbability вероятность аномального значения на канал
const DefaultAnomalyProbability = 0.04

// ChannelProfile нормальный и аномальный диапазоны канала
type ChannelProfile struct {
	Unit       string
	NormalMin  float64
	NormalMax  float64
	AnomalyMin float64
	AnomalyMax float64
}

// DefaultProfiles возвращает профили четырех лабораторных каналов
func DefaultProfiles() map[string]ChannelProfile {
	return map[string]ChannelProfile{
		"temperature": {Unit: "°C", NormalMin: 18, NormalMax: 28, AnomalyMin: -10, AnomalyMax: 60},
		"gas":         {Unit: "ppm", NormalMin: 0, NormalMax: 50, AnomalyMin: 100, AnomalyMax: 500},
		"vibration":   {Unit: "mm/s", NormalMin: 0, NormalMax: 2.5, AnomalyMin: 8, AnomalyMax: 20},
		"cpu_usage":   {Unit: "%", NormalMin: 5, NormalMax: 70, AnomalyMin: 95, AnomalyMax: 100},
	}
}

// Generated измерение вместе со списком каналов, куда была внесена аномалия
type Generated struct {
	Sample   models.Sample
	Injected []string
}

// Generator создает Sample для одной станции
type Generator struct {
	sourceID    string
	location    string
	probability float64
	profiles    map[string]ChannelProfile
	channels    []string
	rng         *rand.Rand
	now         func() time.Time
}

// Option настраивает Generator
type Option func(*Generator)

// WithRand задает источник случайных чисел (для воспроизводимых тестов)
func WithRand(r *rand.Rand) Option {
	return func(g *Generator) { g.rng = r }
}

// WithProbability задает вероятность аномалии на канал
func WithProbability(p float64) Option {
	return func(g *Generator) { g.probability = p }
}

// WithProfiles заменяет профили каналов
func WithProfiles(p map[string]ChannelProfile) Option {
	return func(g *Generator) { g.profiles = p }
}

// WithClock задает источник времени
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// NewGenerator создает генератор станции
func NewGenerator(sourceID, location string, opts ...Option) *Generator {
	g := &Generator{
		sourceID:    sourceID,
		location:    location,
		probability: DefaultAnomalyProbability,
		profiles:    DefaultProfiles(),
		rng:         rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), uint64(len(sourceID)))),
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(g)
	}
	for name := range g.profiles {
		g.channels = append(g.channels, name)
	}
	// Фиксированный порядок, иначе одинаковый seed дает разные значения
	sort.Strings(g.channels)
	return g
}

// SourceID возвращает идентификатор станции
func (g *Generator) SourceID() string {
	return g.sourceID
}

// Next генерирует измерение по всем каналам
func (g *Generator) Next() Generated {
	out := Generated{
		Sample: models.Sample{
			Timestamp: g.now(),
			SourceID:  g.sourceID,
			Location:  g.location,
			Readings:  make(map[string]models.Reading, len(g.channels)),
		},
	}

	for _, name := range g.channels {
		p := g.profiles[name]
		lo, hi := p.NormalMin, p.NormalMax
		if g.rng.Float64() < g.probability {
			lo, hi = p.AnomalyMin, p.AnomalyMax
			out.Injected = append(out.Injected, name)
		}
		value := round2(lo + g.rng.Float64()*(hi-lo))
		out.Sample.Readings[name] = models.Reading{Channel: name, Value: &value, Unit: p.Unit}
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
