package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/aya15elsheikh/forms/internal/models"
)

// EventPublisher announces stored submissions to downstream consumers.
type EventPublisher interface {
	PublishSubmissionCreated(ctx context.Context, event *models.SubmissionCreatedEvent) error
	PublishSubmissionsImported(ctx context.Context, event *models.SubmissionsImportedEvent) error
	Close() error
}

type RabbitMQConfig struct {
	URL        string
	Exchange   string
	CreatedKey string
	ImportKey  string
}

type rabbitMQClient struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
	keys     map[string]string
	logger   zerolog.Logger
}

func NewRabbitMQClient(cfg RabbitMQConfig, logger zerolog.Logger) (EventPublisher, error) {
	conn, err := amqp091.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		cfg.Exchange, // name
		"topic",      // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	logger.Info().
		Str("exchange", cfg.Exchange).
		Msg("Connected to RabbitMQ")

	return &rabbitMQClient{
		conn:     conn,
		channel:  channel,
		exchange: cfg.Exchange,
		keys: map[string]string{
			"created":  cfg.CreatedKey,
			"imported": cfg.ImportKey,
		},
		logger: logger,
	}, nil
}

func (c *rabbitMQClient) PublishSubmissionCreated(ctx context.Context, event *models.SubmissionCreatedEvent) error {
	if err := c.publish(ctx, c.keys["created"], event); err != nil {
		return err
	}

	c.logger.Info().
		Str("submission_id", event.SubmissionID).
		Str("form_id", event.FormID).
		Msg("Submission created event published")
	return nil
}

func (c *rabbitMQClient) PublishSubmissionsImported(ctx context.Context, event *models.SubmissionsImportedEvent) error {
	if err := c.publish(ctx, c.keys["imported"], event); err != nil {
		return err
	}

	c.logger.Info().
		Str("form_id", event.FormID).
		Int("count", event.Count).
		Msg("Submissions imported event published")
	return nil
}

func (c *rabbitMQClient) publish(ctx context.Context, routingKey string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	publishCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = c.channel.PublishWithContext(
		publishCtx,
		c.exchange, // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

func (c *rabbitMQClient) Close() error {
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			c.logger.Error().Err(err).Msg("Failed to close RabbitMQ channel")
		}
	}

	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			c.logger.Error().Err(err).Msg("Failed to close RabbitMQ connection")
		}
	}

	return nil
}

type nopPublisher struct{}

// NewNopPublisher is used when RabbitMQ is disabled or unreachable.
func NewNopPublisher() EventPublisher {
	return nopPublisher{}
}

func (nopPublisher) PublishSubmissionCreated(context.Context, *models.SubmissionCreatedEvent) error {
	return nil
}

func (nopPublisher) PublishSubmissionsImported(context.Context, *models.SubmissionsImportedEvent) error {
	return nil
}

func (nopPublisher) Close() error { return nil }
