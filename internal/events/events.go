package events

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

const (
	EventsExchange           = "ecommerce.events"
	OrderCompletedRoutingKey = "order.completed.v1"
	OrderCompletedEventName  = "OrderCompleted"
	producerName             = "storefront"
)

// Envelope is the common wrapper for every published event.
type Envelope[T any] struct {
	EventName    string    `json:"eventName"`
	EventVersion int       `json:"eventVersion"`
	EventID      string    `json:"eventId"`
	Producer     string    `json:"producer"`
	PartitionKey string    `json:"partitionKey"`
	OccurredAt   time.Time `json:"occurredAt"`
	Payload      T         `json:"payload"`
}

type OrderCompleted struct {
	OrderID    string          `json:"orderId"`
	UserID     string          `json:"userId"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	Items      []OrderLine     `json:"items"`
}

type OrderLine struct {
	VariantID string          `json:"variantId"`
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// Publisher announces order lifecycle changes after they are committed.
type Publisher interface {
	PublishOrderCompleted(ctx context.Context, o *domain.Order) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) PublishOrderCompleted(context.Context, *domain.Order) error { return nil }
