package email

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"bookkeeping-notifier/internal/domain/delivery"
	"bookkeeping-notifier/internal/infra/logger"
)

// AMQPSender publishes composed emails to a broker queue consumed by a
// separate delivery worker. Messages are persistent JSON; the exchange and
// queue are declared idempotently at startup.
type AMQPSender struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	queue    string
}

func NewAMQPSender(url, exchange, queue string) (*AMQPSender, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to AMQP broker: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open AMQP channel: %w", err)
	}

	if err := channel.ExchangeDeclare(exchange, "direct", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %q: %w", exchange, err)
	}
	if _, err := channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue %q: %w", queue, err)
	}
	if err := channel.QueueBind(queue, queue, exchange, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to bind queue %q: %w", queue, err)
	}

	return &AMQPSender{conn: conn, channel: channel, exchange: exchange, queue: queue}, nil
}

func (s *AMQPSender) SendEmail(ctx context.Context, msg delivery.EmailMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal email message: %w", err)
	}

	err = s.channel.PublishWithContext(ctx, s.exchange, s.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish email message: %w", err)
	}

	logger.Log.Infof("Email for %q published to queue %q", msg.To, s.queue)
	return nil
}

func (s *AMQPSender) Close() error {
	if err := s.channel.Close(); err != nil {
		return fmt.Errorf("failed to close AMQP channel: %w", err)
	}
	return s.conn.Close()
}
