package alerts

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Publisher отправляет события о прорыве
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// RabbitPublisher публикует события в topic exchange
type RabbitPublisher struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	exchange   string
	routingKey string
}

// DialRabbit подключается к брокеру и объявляет exchange
func DialRabbit(url, exchange, routingKey string) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}

	p, err := NewRabbitPublisher(conn, exchange, routingKey)
	if err != nil {
		conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

// NewRabbitPublisher открывает канал на готовом соединении
func NewRabbitPublisher(conn *amqp.Connection, exchange, routingKey string) (*RabbitPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("amqp channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true, // durable
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("amqp exchange declare: %w", err)
	}

	return &RabbitPublisher{
		channel:    ch,
		exchange:   exchange,
		routingKey: routingKey,
	}, nil
}

// Publish сериализует событие и отправляет его с routing key, уточненным станцией
func (p *RabbitPublisher) Publish(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	return p.channel.PublishWithContext(ctx,
		p.exchange,
		RoutingKey(p.routingKey, ev),
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    ev.ID,
			Timestamp:    ev.CreatedAt,
			Type:         ev.AlertType,
			Body:         body,
		},
	)
}

// Close закрывает канал и, если оно наше, соединение
func (p *RabbitPublisher) Close() error {
	if err := p.channel.Close(); err != nil {
		return err
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// RoutingKey base.alertType.sourceID, например anomaly.detected.error.LAB-001
func RoutingKey(base string, ev Event) string {
	key := base + "." + ev.AlertType
	if ev.SourceID != "" {
		key += "." + ev.SourceID
	}
	return key
}

// LogPublisher пишет события в лог, когда брокер не настроен
type LogPublisher struct {
	logger zerolog.Logger
}

// NewLogPublisher создает публикатор в лог
func NewLogPublisher() *LogPublisher {
	return &LogPublisher{logger: log.With().Str("component", "alerts").Logger()}
}

func (p *LogPublisher) Publish(_ context.Context, ev Event) error {
	p.logger.Warn().
		Str("id", ev.ID).
		Str("alert_type", ev.AlertType).
		Strs("triggered", ev.TriggeredChannels).
		Msg(ev.Title)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
