package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event represents an event that sells tickets
type Event struct {
	ID                     int64           `db:"id" json:"id"`
	AccountID              int64           `db:"account_id" json:"account_id"`
	Title                  string          `db:"title" json:"title"`
	OrganiserName          string          `db:"organiser_name" json:"organiser_name"`
	Currency               string          `db:"currency" json:"currency"`
	AskForAllAttendeesInfo bool            `db:"ask_for_all_attendees_info" json:"ask_for_all_attendees_info"`
	SalesVolume            decimal.Decimal `db:"sales_volume" json:"sales_volume"`
	OrganiserFeesVolume    decimal.Decimal `db:"organiser_fees_volume" json:"organiser_fees_volume"`
	CreatedAt              time.Time       `db:"created_at" json:"created_at"`
}

// TicketType represents a purchasable ticket class for an event
type TicketType struct {
	ID                  int64           `db:"id" json:"id"`
	EventID             int64           `db:"event_id" json:"event_id"`
	Title               string          `db:"title" json:"title"`
	Price               decimal.Decimal `db:"price" json:"price"`
	BookingFee          decimal.Decimal `db:"booking_fee" json:"booking_fee"`
	OrganiserBookingFee decimal.Decimal `db:"organiser_booking_fee" json:"organiser_booking_fee"`
	Quantity            int             `db:"quantity" json:"quantity"`
	QuantitySold        int             `db:"quantity_sold" json:"quantity_sold"`
	MinPerPerson        int             `db:"min_per_person" json:"min_per_person"`
	MaxPerPerson        int             `db:"max_per_person" json:"max_per_person"`
	SalesVolume         decimal.Decimal `db:"sales_volume" json:"sales_volume"`
	OrganiserFeesVolume decimal.Decimal `db:"organiser_fees_volume" json:"organiser_fees_volume"`

	// Loaded separately, not a column
	Questions []Question `db:"-" json:"questions,omitempty"`
}

// Question is a custom question attached to a ticket type
type Question struct {
	ID           int64  `db:"id" json:"id"`
	TicketTypeID int64  `db:"ticket_type_id" json:"ticket_type_id"`
	Prompt       string `db:"prompt" json:"prompt"`
	IsRequired   bool   `db:"is_required" json:"is_required"`
}

// Reservation is a time-boxed hold on ticket inventory owned by a buyer session
type Reservation struct {
	ID           int64     `db:"id" json:"id"`
	TicketTypeID int64     `db:"ticket_type_id" json:"ticket_type_id"`
	EventID      int64     `db:"event_id" json:"event_id"`
	Quantity     int       `db:"quantity" json:"quantity"`
	SessionID    string    `db:"session_id" json:"session_id"`
	ExpiresAt    time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// PaymentGateway is a configured payment provider for an account
type PaymentGateway struct {
	ID           int64             `db:"id" json:"id"`
	AccountID    int64             `db:"account_id" json:"account_id"`
	Name         string            `db:"name" json:"name"`
	ProviderName string            `db:"provider_name" json:"provider_name"`
	Config       map[string]string `db:"-" json:"config"`
}

// Order represents a completed purchase
type Order struct {
	ID                  int64           `db:"id" json:"id"`
	Reference           string          `db:"reference" json:"reference"`
	FirstName           string          `db:"first_name" json:"first_name"`
	LastName            string          `db:"last_name" json:"last_name"`
	Email               string          `db:"email" json:"email"`
	Status              string          `db:"status" json:"status"`
	Amount              decimal.Decimal `db:"amount" json:"amount"`
	BookingFee          decimal.Decimal `db:"booking_fee" json:"booking_fee"`
	OrganiserBookingFee decimal.Decimal `db:"organiser_booking_fee" json:"organiser_booking_fee"`
	Currency            string          `db:"currency" json:"currency"`
	TransactionID       string          `db:"transaction_id" json:"transaction_id,omitempty"`
	PaymentGatewayID    int64           `db:"payment_gateway_id" json:"payment_gateway_id,omitempty"`
	AccountID           int64           `db:"account_id" json:"account_id"`
	EventID             int64           `db:"event_id" json:"event_id"`
	CreatedAt           time.Time       `db:"created_at" json:"created_at"`
}

// OrderItem is a denormalized snapshot of a ticket line at purchase time
type OrderItem struct {
	ID             int64           `db:"id" json:"id"`
	OrderID        int64           `db:"order_id" json:"order_id"`
	Title          string          `db:"title" json:"title"`
	Quantity       int             `db:"quantity" json:"quantity"`
	UnitPrice      decimal.Decimal `db:"unit_price" json:"unit_price"`
	UnitBookingFee decimal.Decimal `db:"unit_booking_fee" json:"unit_booking_fee"`
}

// Attendee is a ticket holder within an order
type Attendee struct {
	ID           int64  `db:"id" json:"id"`
	OrderID      int64  `db:"order_id" json:"order_id"`
	EventID      int64  `db:"event_id" json:"event_id"`
	TicketTypeID int64  `db:"ticket_type_id" json:"ticket_type_id"`
	AccountID    int64  `db:"account_id" json:"account_id"`
	FirstName    string `db:"first_name" json:"first_name"`
	LastName     string `db:"last_name" json:"last_name"`
	Email        string `db:"email" json:"email"`
	Reference    string `db:"reference" json:"reference"`
}

// QuestionAnswer is an attendee's answer to a custom question
type QuestionAnswer struct {
	ID         int64  `db:"id" json:"id"`
	AttendeeID int64  `db:"attendee_id" json:"attendee_id"`
	EventID    int64  `db:"event_id" json:"event_id"`
	AccountID  int64  `db:"account_id" json:"account_id"`
	QuestionID int64  `db:"question_id" json:"question_id"`
	AnswerText string `db:"answer_text" json:"answer_text"`
}

// Affiliate tracks referral sales for an event
type Affiliate struct {
	ID          int64           `db:"id" json:"id"`
	EventID     int64           `db:"event_id" json:"event_id"`
	Name        string          `db:"name" json:"name"`
	SalesVolume decimal.Decimal `db:"sales_volume" json:"sales_volume"`
	TicketsSold int             `db:"tickets_sold" json:"tickets_sold"`
}

// EventStats holds per-day aggregate counters for an event
type EventStats struct {
	ID                  int64           `db:"id" json:"id"`
	EventID             int64           `db:"event_id" json:"event_id"`
	Date                time.Time       `db:"date" json:"date"`
	TicketsSold         int             `db:"tickets_sold" json:"tickets_sold"`
	SalesVolume         decimal.Decimal `db:"sales_volume" json:"sales_volume"`
	OrganiserFeesVolume decimal.Decimal `db:"organiser_fees_volume" json:"organiser_fees_volume"`
}

// Order statuses
const (
	OrderStatusDraft    = "DRAFT"
	OrderStatusComplete = "COMPLETE"
)

// ProcessedEvent for idempotent post-order task handling
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
