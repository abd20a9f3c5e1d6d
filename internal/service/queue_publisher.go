// Package queue_publisher publishes domain events to RabbitMQ.  Errors are
// logged and returned so callers can ignore failures without interrupting
// the main request flow.
package queue_publisher

import (
    "context"
    "encoding/json"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"

    "github.com/iliyamo/phenom-api/internal/metrics"
    q "github.com/iliyamo/phenom-api/internal/queue"
)

// Publisher dials the broker per publish, which keeps it free of
// connection state at the cost of a handshake per event.
type Publisher struct {
    URL     string
    Log     *zap.Logger
    Metrics *metrics.Metrics
}

func New(url string, log *zap.Logger, m *metrics.Metrics) *Publisher {
    return &Publisher{URL: url, Log: log, Metrics: m}
}

// PublishEntityDeleted publishes to the entity.deleted queue.
func (p *Publisher) PublishEntityDeleted(ctx context.Context, ev q.EntityDeletedEvent) error {
    return p.publish(ctx, q.EntityDeletedQueue, ev)
}

// PublishPasswordReset publishes to the password.reset_requested queue.
func (p *Publisher) PublishPasswordReset(ctx context.Context, ev q.PasswordResetRequestedEvent) error {
    return p.publish(ctx, q.PasswordResetQueue, ev)
}

func (p *Publisher) publish(ctx context.Context, queue string, event any) (err error) {
    defer func() {
        result := "ok"
        if err != nil {
            result = "error"
            p.Log.Warn("rabbitmq: publish failed", zap.String("queue", queue), zap.Error(err))
        }
        if p.Metrics != nil {
            p.Metrics.EventsPublished.WithLabelValues(queue, result).Inc()
        }
    }()

    body, err := json.Marshal(event)
    if err != nil {
        return err
    }

    conn, err := amqp.Dial(p.URL)
    if err != nil {
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        return err
    }
    defer func() { _ = ch.Close() }()

    // Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(
        queue, // name
        true,  // durable
        false, // autoDelete
        false, // exclusive
        false, // noWait
        nil,   // args
    ); err != nil {
        return err
    }

    return ch.PublishWithContext(ctx,
        "",    // default exchange
        queue, // routing key = queue name
        false, // mandatory
        false, // immediate
        amqp.Publishing{
            ContentType:  "application/json",
            DeliveryMode: amqp.Persistent, // store on disk
            Timestamp:    time.Now().UTC(),
            Body:         body,
        })
}
