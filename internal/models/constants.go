package models

import "time"

const (
	// PaymentWindow время на оплату после создания заказа
	PaymentWindow = 15 * time.Minute

	// DefaultPollInterval интервал опроса деталей заказа и списка постаматов
	DefaultPollInterval = 5 * time.Second

	// DefaultExpiryScanInterval интервал проверки просроченных оплат
	DefaultExpiryScanInterval = 30 * time.Second

	// PickupPoints баллы за успешное получение заказа
	PickupPoints = 50

	// PinLength длина ПИН-кода для получения
	PinLength = 6

	// DefaultRedisTTL время жизни кэша постаматов в Redis
	DefaultRedisTTL = 60 * time.Second

	// DefaultHTTPTimeout таймаут клиентских запросов
	DefaultHTTPTimeout = 10 * time.Second
)

// Cancel reasons recorded on buyer- or seller-initiated cancellation.
const (
	CancelReasonBuyer   = "cancelled_by_buyer"
	CancelReasonSeller  = "cancelled_by_seller"
	CancelReasonPayment = "payment_deadline_expired"
)
