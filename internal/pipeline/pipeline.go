// Package pipeline опрашивает симуляторы станций, передает измерения в Monitor
// и обрабатывает результаты: метрики, кэш, лог уровня прорыва, уведомления.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lab-anomaly-service/internal/analytics"
	"lab-anomaly-service/internal/cache"
	"lab-anomaly-service/internal/metrics"
	"lab-anomaly-service/internal/models"
	"lab-anomaly-service/internal/simulator"
)

// Pipeline цикл опроса и обработки результатов
type Pipeline struct {
	monitor    *analytics.Monitor
	generators []*simulator.Generator
	interval   time.Duration
	store      cache.Store
	notifier   *Notifier
	logger     zerolog.Logger
}

// New создает конвейер; store и notifier могут быть nil
func New(monitor *analytics.Monitor, generators []*simulator.Generator, interval time.Duration,
	store cache.Store, notifier *Notifier) *Pipeline {
	return &Pipeline{
		monitor:    monitor,
		generators: generators,
		interval:   interval,
		store:      store,
		notifier:   notifier,
		logger:     log.With().Str("component", "pipeline").Logger(),
	}
}

// Run опрашивает станции с заданным интервалом и обрабатывает результаты до отмены ctx
// или закрытия канала результатов.
func (p *Pipeline) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, g := range p.generators {
		wg.Add(1)
		go func(g *simulator.Generator) {
			defer wg.Done()
			p.poll(ctx, g)
		}(g)
	}

	p.consume(ctx)
	wg.Wait()
}

func (p *Pipeline) poll(ctx context.Context, g *simulator.Generator) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		gen := g.Next()
		if len(gen.Injected) > 0 {
			p.logger.Debug().Str("source_id", g.SourceID()).Strs("injected", gen.Injected).Msg("Simulated anomaly")
		}
		if !p.monitor.Submit(gen.Sample) {
			p.logger.Warn().Str("source_id", g.SourceID()).Msg("Monitor queue full or stopped, sample dropped")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (p *Pipeline) consume(ctx context.Context) {
	results := p.monitor.Results()
	for {
		select {
		case <-ctx.Done():
			return
		case res, ok := <-results:
			if !ok {
				return
			}
			p.Handle(ctx, res)
		}
	}
}

// Handle обрабатывает один результат; используется и HTTP обработчиками
func (p *Pipeline) Handle(ctx context.Context, res models.StationResult) {
	metrics.RecordResult(res)

	if p.store != nil {
		if err := p.store.RecordResult(ctx, res); err != nil {
			metrics.CollaboratorFailures.WithLabelValues("redis").Inc()
			p.logger.Error().Err(err).Str("source_id", res.Sample.SourceID).Msg("Failed to cache result")
		}
	}

	p.logResult(res)

	if res.Detection.AnomalyDetected && p.notifier != nil {
		p.notifier.Enqueue(res)
	}
}

func (p *Pipeline) logResult(res models.StationResult) {
	event := p.logger.Info()
	if res.Detection.AnomalyDetected {
		event = p.logger.Warn()
	}
	event.
		Str("source_id", res.Sample.SourceID).
		Str("location", res.Sample.Location).
		Strs("triggered", res.Detection.TriggeredChannels).
		Str("recommendation", res.Breach.Recommendation).
		Msg(BreachBar(res.Breach))
}

// BreachBar рисует шкалу уровня: [####------] 4/10 -- Label
func BreachBar(b models.BreachAssessment) string {
	level := b.Level
	if level < 0 {
		level = 0
	}
	if level > analytics.MaxBreachLevel {
		level = analytics.MaxBreachLevel
	}
	bar := strings.Repeat("#", level) + strings.Repeat("-", analytics.MaxBreachLevel-level)
	return fmt.Sprintf("[%s] %d/%d -- %s", bar, b.Level, analytics.MaxBreachLevel, b.Label)
}
