package explain

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Generator внешний генератор текста
type Generator interface {
	Explain(ctx context.Context, a Anomaly) (string, error)
}

// Source откуда взят текст объяснения
type Source string

const (
	SourceModel    Source = "model"
	SourceFallback Source = "fallback"
)

// Service оборачивает Generator: ограничивает время и откатывается на шаблон
type Service struct {
	gen     Generator
	timeout time.Duration
	logger  zerolog.Logger
}

// NewService создает сервис объяснений; gen может быть nil
func NewService(gen Generator, timeout time.Duration) *Service {
	return &Service{
		gen:     gen,
		timeout: timeout,
		logger:  log.With().Str("component", "explainer").Logger(),
	}
}

// Explain всегда возвращает текст; ошибки генератора только логируются
func (s *Service) Explain(ctx context.Context, a Anomaly) (string, Source) {
	if s.gen == nil {
		return Fallback(a), SourceFallback
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	text, err := s.gen.Explain(ctx, a)
	if err != nil || text == "" {
		s.logger.Warn().Err(err).Str("channel", a.Channel).Msg("Explanation unavailable, using fallback")
		return Fallback(a), SourceFallback
	}
	return text, SourceModel
}
