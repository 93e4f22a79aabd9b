package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	q "github.com/iliyamo/cinema-ops/internal/queue"
)

// EventPublisher delivers sale events. Errors are returned so callers can
// log them; a failed publish never rolls back a sale.
type EventPublisher interface {
	PublishSaleRecorded(ctx context.Context, ev q.SaleRecordedEvent) error
	PublishSaleCancelled(ctx context.Context, ev q.SaleCancelledEvent) error
}

// NoopPublisher drops every event. It is used when EVENTS_ENABLED is off.
type NoopPublisher struct{}

func (NoopPublisher) PublishSaleRecorded(context.Context, q.SaleRecordedEvent) error   { return nil }
func (NoopPublisher) PublishSaleCancelled(context.Context, q.SaleCancelledEvent) error { return nil }

// AMQPPublisher publishes persistent JSON messages to durable queues on the
// default exchange. It dials per publish, which is enough for the sale rate
// of a single box office.
type AMQPPublisher struct {
	URL string
	Log *slog.Logger
}

func NewAMQPPublisher(url string, log *slog.Logger) *AMQPPublisher {
	return &AMQPPublisher{URL: url, Log: log}
}

func (p *AMQPPublisher) PublishSaleRecorded(ctx context.Context, ev q.SaleRecordedEvent) error {
	return p.publish(ctx, q.SaleRecordedQueue, ev)
}

func (p *AMQPPublisher) PublishSaleCancelled(ctx context.Context, ev q.SaleCancelledEvent) error {
	return p.publish(ctx, q.SaleCancelledQueue, ev)
}

func (p *AMQPPublisher) publish(ctx context.Context, queue string, event any) error {
	conn, err := amqp.Dial(p.URL)
	if err != nil {
		p.Log.Warn("rabbitmq: dial failed", slog.String("error", err.Error()))
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.Log.Warn("rabbitmq: channel open failed", slog.String("error", err.Error()))
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		p.Log.Warn("rabbitmq: queue declare failed", slog.String("queue", queue), slog.String("error", err.Error()))
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queue, false, false, pub); err != nil {
		p.Log.Warn("rabbitmq: publish failed", slog.String("queue", queue), slog.String("error", err.Error()))
		return err
	}
	return nil
}
