package pipeline

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lab-anomaly-service/internal/alerts"
	"lab-anomaly-service/internal/explain"
	"lab-anomaly-service/internal/metrics"
	"lab-anomaly-service/internal/models"
	"lab-anomaly-service/internal/storage"
	"lab-anomaly-service/internal/voice"
)

// Explainer возвращает текст предупреждения и его источник
type Explainer interface {
	Explain(ctx context.Context, a explain.Anomaly) (string, explain.Source)
}

// Speaker озвучивает текст
type Speaker interface {
	Enabled() bool
	Speak(ctx context.Context, text string) (voice.Clip, error)
}

// Archiver сохраняет аудио во внешнее хранилище
type Archiver interface {
	Upload(ctx context.Context, key string, audio []byte) error
}

// Notifier рассылает уведомления об аномалиях в отдельной горутине,
// чтобы задержки внешних сервисов не тормозили детекцию.
type Notifier struct {
	explainer  Explainer
	speaker    Speaker
	archive    Archiver
	publisher  alerts.Publisher
	thresholds models.ThresholdConfig

	queue   chan models.StationResult
	wg      sync.WaitGroup
	once    sync.Once
	started bool
	logger  zerolog.Logger
}

// NotifierDeps внешние сервисы; любое поле может быть nil
type NotifierDeps struct {
	Explainer  Explainer
	Speaker    Speaker
	Archive    Archiver
	Publisher  alerts.Publisher
	Thresholds models.ThresholdConfig
}

// NewNotifier создает рассыльщик с очередью на queueSize результатов
func NewNotifier(deps NotifierDeps, queueSize int) *Notifier {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Notifier{
		explainer:  deps.Explainer,
		speaker:    deps.Speaker,
		archive:    deps.Archive,
		publisher:  deps.Publisher,
		thresholds: deps.Thresholds,
		queue:      make(chan models.StationResult, queueSize),
		logger:     log.With().Str("component", "notifier").Logger(),
	}
}

// Start запускает обработчик очереди
func (n *Notifier) Start(ctx context.Context) {
	n.started = true
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		for res := range n.queue {
			n.Notify(ctx, res)
		}
	}()
}

// Enqueue ставит результат в очередь. false, если очередь заполнена.
func (n *Notifier) Enqueue(res models.StationResult) bool {
	select {
	case n.queue <- res:
		return true
	default:
		n.logger.Warn().Str("source_id", res.Sample.SourceID).Msg("Notification queue full, skipping")
		return false
	}
}

// Stop дожидается отправки уже поставленных уведомлений
func (n *Notifier) Stop() {
	n.once.Do(func() {
		close(n.queue)
		if n.started {
			n.wg.Wait()
		}
	})
}

// Notify синхронно объясняет первую аномалию, озвучивает ее и публикует событие.
// Ошибки только логируются.
func (n *Notifier) Notify(ctx context.Context, res models.StationResult) alerts.Event {
	ev := alerts.BuildAlert(res)

	anomalies := explain.FromDetection(res.Detection, n.thresholds)
	if len(anomalies) > 0 && n.explainer != nil {
		text, src := n.explainer.Explain(ctx, anomalies[0])
		ev.Explanation = text
		n.logger.Info().
			Str("source_id", ev.SourceID).
			Str("channel", anomalies[0].Channel).
			Str("source", string(src)).
			Msg(text)
	}

	if ev.Explanation != "" && n.speaker != nil && n.speaker.Enabled() {
		ev.VoiceClip = n.voice(ctx, res, ev.Explanation)
	}

	if n.publisher != nil {
		if err := n.publisher.Publish(ctx, ev); err != nil {
			metrics.CollaboratorFailures.WithLabelValues("alerts").Inc()
			n.logger.Error().Err(err).Str("id", ev.ID).Msg("Failed to publish alert")
		}
	}
	return ev
}

// voice возвращает ключ объекта в хранилище или локальный путь к файлу
func (n *Notifier) voice(ctx context.Context, res models.StationResult, text string) string {
	clip, err := n.speaker.Speak(ctx, text)
	if err != nil {
		metrics.CollaboratorFailures.WithLabelValues("voice").Inc()
		n.logger.Error().Err(err).Msg("Voice alert failed")
		return ""
	}
	if n.archive == nil {
		return clip.Path
	}

	key := storage.ObjectKey(res.Sample.SourceID, res.Detection.Metadata.Timestamp, clip.Path)
	if err := n.archive.Upload(ctx, key, clip.Audio); err != nil {
		metrics.CollaboratorFailures.WithLabelValues("storage").Inc()
		n.logger.Error().Err(err).Str("key", key).Msg("Failed to archive voice clip")
		return clip.Path
	}
	return key
}
