package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Color and Size enumerate the variant options offered by the catalog.
type (
	Color string
	Size  string
)

const (
	ColorBlack Color = "Black"
	ColorRed   Color = "Red"
	ColorWhite Color = "White"

	SizeS Size = "S"
	SizeM Size = "M"
	SizeL Size = "L"
)

// Valid reports whether c is one of the catalog colors.
func (c Color) Valid() bool {
	switch c {
	case ColorBlack, ColorRed, ColorWhite:
		return true
	}
	return false
}

// Valid reports whether s is one of the catalog sizes.
func (s Size) Valid() bool {
	switch s {
	case SizeS, SizeM, SizeL:
		return true
	}
	return false
}

type Product struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	CategoryID  *string   `json:"categoryId,omitempty"`
	Variants    []Variant `json:"variants"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Variant is a purchasable option of a product carrying the current unit price.
type Variant struct {
	ID        string          `json:"id"`
	ProductID string          `json:"productId"`
	Color     Color           `json:"color"`
	Size      Size            `json:"size"`
	Price     decimal.Decimal `json:"price"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}
