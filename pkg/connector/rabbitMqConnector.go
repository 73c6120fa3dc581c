package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/streadway/amqp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/otodash/erp-sync/pkg/config"
	"github.com/otodash/erp-sync/pkg/mapper"
)

type RabbitMqConnectorCreator func(ctx context.Context, settings *config.ConnectorSettings) (Connector, error)

var NewRabbitMqConnector RabbitMqConnectorCreator = func(ctx context.Context, settings *config.ConnectorSettings) (Connector, error) {
	conn, err := amqp.Dial(settings.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	notifyClose := make(chan *amqp.Error)
	conn.NotifyClose(notifyClose)
	go func() {
		for err := range notifyClose {
			log.Error().Err(err).Msg("rabbitmq connection closed")
		}
	}()

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	err = ch.ExchangeDeclare(
		settings.Exchange, // name
		"topic",           // type
		true,              // durable
		false,             // auto-deleted
		false,             // internal
		false,             // no-wait
		nil,               // arguments
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &rabbitMqConnector{connection: conn, channel: ch, exchange: settings.Exchange}, nil
}

type rabbitMqConnector struct {
	connection *amqp.Connection
	channel    *amqp.Channel
	exchange   string
}

func (r *rabbitMqConnector) Deliver(ctx context.Context, doc mapper.OutboundDocument) error {
	tracer := otel.Tracer(tracerName)
	_, span := tracer.Start(ctx, "Deliver",
		trace.WithAttributes(
			semconv.MessagingSystemKey.String("rabbitmq"),
			semconv.MessagingDestinationKey.String(r.exchange),
			semconv.MessagingRabbitmqRoutingKeyKey.String(routingKey(doc)),
		),
		trace.WithAttributes(documentAttributes(doc, "rabbitmq")...),
	)
	defer span.End()

	body, err := json.Marshal(doc)
	if err != nil {
		span.RecordError(err)
		return Permanent(fmt.Errorf("encode document: %w", err))
	}

	headers := amqp.Table{
		"operation":      string(doc.Operation),
		"tenant_id":      doc.TenantID,
		"schema_version": doc.Meta.SchemaVersion,
	}

	err = r.channel.Publish(
		r.exchange, routingKey(doc), false, false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
			Headers:     headers,
		},
	)
	if err != nil {
		span.RecordError(err)
		return Transient(err)
	}

	span.SetAttributes(
		attribute.Int("messaging.message_payload_size_bytes", len(body)),
	)

	return nil
}

// routingKey shapes per-operation routing, e.g. erp.set_status.
func routingKey(doc mapper.OutboundDocument) string {
	return "erp." + strings.ToLower(string(doc.Operation))
}

func (r *rabbitMqConnector) Close() error {
	if err := r.channel.Close(); err != nil {
		log.Error().Err(err).Msg("rabbitmq channel close failed")
	}
	if r.connection != nil {
		return r.connection.Close()
	}
	return nil
}
