package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// SalesLogFile is the file name the consumer appends to inside its
// directory.
const SalesLogFile = "sales.log"

// Consumer listens on the sale queues and writes one line per event to
// Dir/sales.log.
type Consumer struct {
	URL string
	Dir string
	Log *slog.Logger
}

// Run dials the broker and consumes until ctx is cancelled, reconnecting
// with exponential backoff (capped at 30s) when the connection drops.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			c.Log.Warn("sales consumer: dial failed", slog.String("error", err.Error()), slog.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.Log.Warn("sales consumer: loop ended, reconnecting", slog.String("error", err.Error()))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.Log.Warn("sales consumer: set QoS failed", slog.String("error", err.Error()))
	}

	recorded, err := declareAndConsume(ch, SaleRecordedQueue)
	if err != nil {
		return err
	}
	cancelled, err := declareAndConsume(ch, SaleCancelledQueue)
	if err != nil {
		return err
	}

	for {
		var d amqp.Delivery
		var ok bool
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok = <-recorded:
		case d, ok = <-cancelled:
		}
		if !ok {
			return errors.New("deliveries channel closed")
		}
		if err := handleMessage(c.Dir, d.RoutingKey, d.Body); err != nil {
			c.Log.Error("sales consumer: handle message failed", slog.String("error", err.Error()))
			_ = d.Nack(false, false) // reject without requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
}

func declareAndConsume(ch *amqp.Channel, queue string) (<-chan amqp.Delivery, error) {
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("queue declare %s: %w", queue, err)
	}
	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("queue consume %s: %w", queue, err)
	}
	return msgs, nil
}

// handleMessage renders one event as a log line and appends it to
// dir/sales.log.
func handleMessage(dir, routingKey string, body []byte) error {
	line, err := formatEvent(routingKey, body)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	f, err := os.OpenFile(filepath.Join(dir, SalesLogFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

func formatEvent(routingKey string, body []byte) (string, error) {
	switch routingKey {
	case SaleRecordedQueue:
		var ev SaleRecordedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		return fmt.Sprintf("[%s] Sale recorded | session_id=%s | sale_id=%s | movie=%q | type=%s | qty=%d | seats=%d | total=%s | occupancy=%.2f%% | seller=%s\n",
			ev.RecordedAt, ev.SessionID, ev.SaleID, ev.MovieTitle, ev.TicketType, ev.Quantity,
			ev.SeatsConsumed, centsString(ev.TotalCents), ev.OccupancyPercent, ev.SoldBy), nil
	case SaleCancelledQueue:
		var ev SaleCancelledEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		return fmt.Sprintf("[%s] Sale cancelled | session_id=%s | sale_id=%s | seats=%d | total=%s | by=%s\n",
			ev.CancelledAt, ev.SessionID, ev.SaleID, ev.SeatsReleased, centsString(ev.TotalCents), ev.CancelledBy), nil
	default:
		return "", fmt.Errorf("unknown routing key %q", routingKey)
	}
}

func centsString(c int64) string {
	sign := ""
	if c < 0 {
		sign, c = "-", -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
