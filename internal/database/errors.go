package database

import "errors"

var (
	// ErrOrderNotFound заказ не найден
	ErrOrderNotFound = errors.New("order not found")

	// ErrLockerNotFound постамат не найден
	ErrLockerNotFound = errors.New("locker not found")

	// ErrNoCompartment нет свободных ячеек в постамате
	ErrNoCompartment = errors.New("no free compartment in locker")

	// ErrConcurrentModification конфликт версий при обновлении
	ErrConcurrentModification = errors.New("order was modified concurrently")
)
