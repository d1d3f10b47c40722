package domain

import "time"

// Ratings accepted for a review.
const (
	MinRating = 1
	MaxRating = 5
)

// Review is a user's rating of a product. A user reviews a product at most once.
type Review struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	ProductID   string    `json:"productId"`
	Rating      int       `json:"rating"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
