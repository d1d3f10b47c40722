package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"storefront/internal/domain"
)

const publishTimeout = 3 * time.Second

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitPublisher publishes JSON events to the topic exchange.
type RabbitPublisher struct {
	ch  channel
	now func() time.Time
}

func NewRabbitPublisher(conn *amqp.Connection) (*RabbitPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := declareEventsExchange(ch); err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", EventsExchange, err)
	}
	return &RabbitPublisher{ch: ch, now: time.Now}, nil
}

func (p *RabbitPublisher) Close() error {
	return p.ch.Close()
}

func (p *RabbitPublisher) PublishOrderCompleted(ctx context.Context, o *domain.Order) error {
	ev := newOrderCompleted(o, p.now().UTC())
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", OrderCompletedEventName, err)
	}
	return p.publishJSON(ctx, OrderCompletedRoutingKey, ev.EventID, body)
}

func (p *RabbitPublisher) publishJSON(ctx context.Context, routingKey, messageID string, body []byte) error {
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return p.ch.PublishWithContext(
		pubCtx,
		EventsExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    messageID,
			Timestamp:    p.now().UTC(),
			Body:         body,
		},
	)
}

func newOrderCompleted(o *domain.Order, now time.Time) Envelope[OrderCompleted] {
	lines := make([]OrderLine, 0, len(o.Items))
	for _, it := range o.Items {
		lines = append(lines, OrderLine{
			VariantID: it.VariantID,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price,
		})
	}
	return Envelope[OrderCompleted]{
		EventName:    OrderCompletedEventName,
		EventVersion: 1,
		EventID:      uuid.NewString(),
		Producer:     producerName,
		PartitionKey: o.UserID,
		OccurredAt:   now,
		Payload: OrderCompleted{
			OrderID:    o.ID,
			UserID:     o.UserID,
			TotalPrice: o.TotalPrice,
			Items:      lines,
		},
	}
}

func declareEventsExchange(ch *amqp.Channel) error {
	return ch.ExchangeDeclare(
		EventsExchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
}
