package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a uniqueness constraint was violated.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidState is returned when an order is not in the status an operation requires.
	ErrInvalidState = errors.New("invalid order state")
	// ErrEmptyCart is returned when removing from or checking out a cart without items.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrPaymentFailed is returned when checkout's payment decision was negative.
	ErrPaymentFailed = errors.New("payment failed, please try again")
	// ErrInvalidInput marks request values rejected by validation.
	ErrInvalidInput = errors.New("invalid input")
)
