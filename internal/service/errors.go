package service

import "errors"

var (
	// ErrInvalidTransition the requested trigger is not accepted in the
	// order's current status.
	ErrInvalidTransition = errors.New("invalid order status transition")

	// ErrPaymentExpired the payment deadline has passed.
	ErrPaymentExpired = errors.New("payment deadline expired")

	// ErrWrongPin the submitted pickup PIN does not match.
	ErrWrongPin = errors.New("wrong pickup pin")

	// ErrAlreadyCollected a retried verification against a collected order.
	ErrAlreadyCollected = errors.New("order already collected")

	// ErrLockerUnavailable the locker is not accepting reservations.
	ErrLockerUnavailable = errors.New("locker is not available")

	// ErrInvalidPrice financial fields failed validation.
	ErrInvalidPrice = errors.New("invalid price")
)
