package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"
)

// Mailer delivers password reset links.
type Mailer interface {
    SendPasswordReset(ctx context.Context, ev PasswordResetRequestedEvent) error
}

// LogMailer writes reset requests to the log instead of sending mail.
// It is the default outside production.
type LogMailer struct{ Log *zap.Logger }

func (m LogMailer) SendPasswordReset(_ context.Context, ev PasswordResetRequestedEvent) error {
    m.Log.Info("password reset requested",
        zap.String("user_id", ev.UserID),
        zap.String("email", ev.Email),
        zap.Time("expires_at", ev.ExpiresAt))
    return nil
}

// Consumer drains the entity.deleted and password.reset_requested queues.
type Consumer struct {
    URL    string
    Log    *zap.Logger
    Mailer Mailer
}

// Run connects to RabbitMQ, declares both queues (durable) and consumes
// until ctx is cancelled.  Broker failures trigger a reconnect with
// exponential backoff capped at 30s; a message that cannot be handled is
// rejected without requeue so it cannot loop.
func (c *Consumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        conn, err := amqp.Dial(c.URL)
        if err != nil {
            c.Log.Warn("audit-consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
            select {
            case <-ctx.Done():
                return ctx.Err()
            case <-time.After(backoff):
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        err = c.consumeLoop(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        c.Log.Warn("audit-consumer: consume loop ended; reconnecting", zap.Error(err))
        select {
        case <-ctx.Done():
            return ctx.Err()
        case <-time.After(2 * time.Second):
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
        c.Log.Warn("audit-consumer: set QoS failed", zap.Error(err))
    }

    deliveries := make(map[string]<-chan amqp.Delivery, 2)
    for _, name := range []string{EntityDeletedQueue, PasswordResetQueue} {
        if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
            return fmt.Errorf("queue declare %s: %w", name, err)
        }
        msgs, err := ch.Consume(name, "", false, false, false, false, nil)
        if err != nil {
            return fmt.Errorf("queue consume %s: %w", name, err)
        }
        deliveries[name] = msgs
    }

    deleted, resets := deliveries[EntityDeletedQueue], deliveries[PasswordResetQueue]
    for {
        var (
            d  amqp.Delivery
            ok bool
        )
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok = <-deleted:
        case d, ok = <-resets:
        }
        if !ok {
            return errors.New("deliveries channel closed")
        }
        if err := c.Handle(ctx, d.RoutingKey, d.Body); err != nil {
            c.Log.Error("audit-consumer: handle message failed", zap.String("queue", d.RoutingKey), zap.Error(err))
            _ = d.Nack(false, false)
            continue
        }
        _ = d.Ack(false)
    }
}

// Handle processes one message body published under routingKey.
func (c *Consumer) Handle(ctx context.Context, routingKey string, body []byte) error {
    switch routingKey {
    case EntityDeletedQueue:
        var ev EntityDeletedEvent
        if err := json.Unmarshal(body, &ev); err != nil {
            return fmt.Errorf("unmarshal: %w", err)
        }
        c.Log.Info("entity deleted",
            zap.String("entity", ev.Entity),
            zap.String("id", ev.ID),
            zap.Strings("failed_steps", ev.Failures),
            zap.Time("deleted_at", ev.DeletedAt))
        return nil
    case PasswordResetQueue:
        var ev PasswordResetRequestedEvent
        if err := json.Unmarshal(body, &ev); err != nil {
            return fmt.Errorf("unmarshal: %w", err)
        }
        if ev.Email == "" || ev.Token == "" {
            return errors.New("reset event without email or token")
        }
        return c.Mailer.SendPasswordReset(ctx, ev)
    }
    return fmt.Errorf("unknown routing key %q", routingKey)
}
