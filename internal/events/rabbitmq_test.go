package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
)

type published struct {
	exchange, key string
	msg           amqp.Publishing
	hasDeadline   bool
}

type fakeChannel struct {
	out    []published
	err    error
	closed bool
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	_, ok := ctx.Deadline()
	f.out = append(f.out, published{exchange: exchange, key: key, msg: msg, hasDeadline: ok})
	return f.err
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func completedOrder() *domain.Order {
	return &domain.Order{
		ID:         "o1",
		UserID:     "u1",
		Status:     domain.StatusComplete,
		TotalPrice: decimal.RequireFromString("320.00"),
		Items: []domain.OrderItem{
			{VariantID: "v1", ProductID: "p1", Quantity: 2, Price: decimal.RequireFromString("150.00")},
			{VariantID: "v2", ProductID: "p2", Quantity: 1, Price: decimal.RequireFromString("20.00")},
		},
	}
}

func TestRabbitPublisher_PublishOrderCompleted(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ch := &fakeChannel{}
	p := &RabbitPublisher{ch: ch, now: func() time.Time { return fixed }}

	require.NoError(t, p.PublishOrderCompleted(context.Background(), completedOrder()))
	require.Len(t, ch.out, 1)

	got := ch.out[0]
	assert.Equal(t, EventsExchange, got.exchange)
	assert.Equal(t, OrderCompletedRoutingKey, got.key)
	assert.Equal(t, "application/json", got.msg.ContentType)
	assert.Equal(t, amqp.Persistent, got.msg.DeliveryMode)
	assert.True(t, got.hasDeadline)

	var env Envelope[OrderCompleted]
	require.NoError(t, json.Unmarshal(got.msg.Body, &env))
	assert.Equal(t, OrderCompletedEventName, env.EventName)
	assert.Equal(t, 1, env.EventVersion)
	assert.Equal(t, got.msg.MessageId, env.EventID)
	_, err := uuid.Parse(env.EventID)
	assert.NoError(t, err)
	assert.Equal(t, "u1", env.PartitionKey)
	assert.True(t, env.OccurredAt.Equal(fixed))
	assert.Equal(t, "o1", env.Payload.OrderID)
	assert.True(t, env.Payload.TotalPrice.Equal(decimal.NewFromInt(320)))
	require.Len(t, env.Payload.Items, 2)
	assert.Equal(t, 2, env.Payload.Items[0].Quantity)
}

func TestRabbitPublisher_PropagatesError(t *testing.T) {
	boom := errors.New("channel closed")
	ch := &fakeChannel{err: boom}
	p := &RabbitPublisher{ch: ch, now: time.Now}

	err := p.PublishOrderCompleted(context.Background(), completedOrder())
	assert.ErrorIs(t, err, boom)

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}
