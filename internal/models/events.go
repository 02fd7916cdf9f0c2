package models

import "time"

// Event types
const (
	EventTypeOrderCompleted     = "ORDER_COMPLETED"
	EventTypeReservationExpired = "RESERVATION_EXPIRED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderCompletedEvent is published once per committed order. The post-order
// worker consumes it to send the receipt email and render the ticket PDF.
type OrderCompletedEvent struct {
	BaseEvent
	OrderID         int64  `json:"order_id"`
	OrderReference  string `json:"order_reference"`
	CheckoutEventID int64  `json:"checkout_event_id"`
	BuyerEmail      string `json:"buyer_email"`
	Amount          string `json:"amount"`
	Currency        string `json:"currency"`
	AttendeeCount   int    `json:"attendee_count"`
}

// ReservationExpiredEvent is published by the expiry sweeper when stale holds
// are released, mostly for operational visibility.
type ReservationExpiredEvent struct {
	BaseEvent
	Released int64 `json:"released"`
}
