package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	StatusShoppingCart OrderStatus = "shopping-cart"
	StatusPayment      OrderStatus = "payment"
	StatusComplete     OrderStatus = "complete"
)

// Order is a user's cart while in shopping-cart status and settled history once complete.
type Order struct {
	ID         string          `json:"id"`
	UserID     string          `json:"userId"`
	Status     OrderStatus     `json:"status"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	Items      []OrderItem     `json:"items"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// OrderItem is one variant line of an order. Price is the unit price captured
// when the variant was first added and never follows later catalog changes.
type OrderItem struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"orderId,omitempty"`
	VariantID string          `json:"variantId"`
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// NewCart returns an empty, unsaved cart owned by userID.
func NewCart(userID string) *Order {
	return &Order{
		UserID:     userID,
		Status:     StatusShoppingCart,
		TotalPrice: decimal.Zero,
		Items:      []OrderItem{},
	}
}

// IsEmpty reports whether the order has no items.
func (o *Order) IsEmpty() bool {
	return len(o.Items) == 0
}

// ItemCount returns the sum of all item quantities.
func (o *Order) ItemCount() int {
	var count int
	for _, item := range o.Items {
		count += item.Quantity
	}
	return count
}

// ComputeTotal sums price*quantity over all items.
func (o *Order) ComputeTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// AddVariant adds one unit of v. An existing line for the same variant is
// incremented at its captured price; otherwise a new line is appended at the
// variant's current price.
func (o *Order) AddVariant(v Variant, now time.Time) error {
	if o.Status != StatusShoppingCart {
		return ErrInvalidState
	}
	if idx := o.itemIndex(v.ID); idx >= 0 {
		o.Items[idx].Quantity++
		o.Items[idx].UpdatedAt = now
		o.TotalPrice = o.TotalPrice.Add(o.Items[idx].Price)
	} else {
		o.Items = append(o.Items, OrderItem{
			VariantID: v.ID,
			ProductID: v.ProductID,
			Quantity:  1,
			Price:     v.Price,
			CreatedAt: now,
			UpdatedAt: now,
		})
		o.TotalPrice = o.TotalPrice.Add(v.Price)
	}
	o.UpdatedAt = now
	return nil
}

// RemoveVariant takes one unit of variantID out of the order and drops the
// line once its quantity reaches zero.
func (o *Order) RemoveVariant(variantID string, now time.Time) error {
	if o.Status != StatusShoppingCart {
		return ErrInvalidState
	}
	if o.IsEmpty() {
		return ErrEmptyCart
	}
	idx := o.itemIndex(variantID)
	if idx < 0 {
		return ErrNotFound
	}
	o.Items[idx].Quantity--
	o.Items[idx].UpdatedAt = now
	o.TotalPrice = o.TotalPrice.Sub(o.Items[idx].Price)
	if o.Items[idx].Quantity == 0 {
		o.Items = append(o.Items[:idx], o.Items[idx+1:]...)
	}
	o.UpdatedAt = now
	return nil
}

// Reopen moves an order left in payment status by a failed checkout back to shopping-cart.
func (o *Order) Reopen(now time.Time) error {
	if o.Status != StatusPayment {
		return ErrInvalidState
	}
	o.Status = StatusShoppingCart
	o.UpdatedAt = now
	return nil
}

// MarkPaid completes the order. Complete is terminal.
func (o *Order) MarkPaid(now time.Time) error {
	if o.Status == StatusComplete {
		return ErrInvalidState
	}
	o.Status = StatusComplete
	o.UpdatedAt = now
	return nil
}

// MarkPaymentFailed records a failed checkout attempt; the order stays retryable.
func (o *Order) MarkPaymentFailed(now time.Time) error {
	if o.Status == StatusComplete {
		return ErrInvalidState
	}
	o.Status = StatusPayment
	o.UpdatedAt = now
	return nil
}

func (o *Order) itemIndex(variantID string) int {
	for i, item := range o.Items {
		if item.VariantID == variantID {
			return i
		}
	}
	return -1
}
