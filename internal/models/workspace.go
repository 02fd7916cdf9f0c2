package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Rule kinds for workspace field validation
const (
	RuleRequired = "required"
	RuleEmail    = "email"
)

// FieldRule is one validation rule for one form field, built at workspace-open
// time and replayed at submission time. AttendeeSlot and TicketTypeID tag the
// per-attendee rules so they can be skipped when buyer info is mirrored.
type FieldRule struct {
	Field        string `json:"field"`
	Kind         string `json:"kind"`
	Message      string `json:"message"`
	PerAttendee  bool   `json:"per_attendee"`
	AttendeeSlot int    `json:"attendee_slot,omitempty"`
	TicketTypeID int64  `json:"ticket_type_id,omitempty"`
}

// WorkspaceLine is one selected ticket line inside a pending order
type WorkspaceLine struct {
	TicketTypeID        int64           `json:"ticket_type_id"`
	Title               string          `json:"title"`
	Quantity            int             `json:"quantity"`
	UnitPrice           decimal.Decimal `json:"unit_price"`
	UnitBookingFee      decimal.Decimal `json:"unit_booking_fee"`
	UnitOrganiserFee    decimal.Decimal `json:"unit_organiser_fee"`
	LinePrice           decimal.Decimal `json:"line_price"`
	LineBookingFee      decimal.Decimal `json:"line_booking_fee"`
	LineOrganiserFee    decimal.Decimal `json:"line_organiser_fee"`
	Questions           []Question      `json:"questions,omitempty"`
	QuestionAnswersKeys []string        `json:"-"`
}

// Workspace is the session-scoped draft of an in-progress purchase. It is
// serialized to the workspace store and mutated through the payment round
// trip. ExpiresAt is the business expiry; it is enforced on the selection and
// form-submission legs only, never on the payment-return leg.
type Workspace struct {
	EventID                int64           `json:"event_id"`
	AccountID              int64           `json:"account_id"`
	SessionID              string          `json:"session_id"`
	Lines                  []WorkspaceLine `json:"lines"`
	TotalQuantity          int             `json:"total_quantity"`
	OrderTotal             decimal.Decimal `json:"order_total"`
	BookingFee             decimal.Decimal `json:"booking_fee"`
	OrganiserBookingFee    decimal.Decimal `json:"organiser_booking_fee"`
	Currency               string          `json:"currency"`
	RequiresPayment        bool            `json:"requires_payment"`
	Rules                  []FieldRule     `json:"rules"`
	ExpiresAt              time.Time       `json:"expires_at"`
	GatewayID              int64           `json:"gateway_id,omitempty"`
	GatewayName            string          `json:"gateway_name,omitempty"`
	GatewayProviderName    string          `json:"gateway_provider_name,omitempty"`
	GatewayConfig          map[string]string `json:"gateway_config,omitempty"`
	AffiliateRef           string          `json:"affiliate_ref,omitempty"`
	AskForAllAttendeesInfo bool            `json:"ask_for_all_attendees_info"`
	OrganiserName          string          `json:"organiser_name"`
	IsEmbedded             bool            `json:"is_embedded"`

	// Appended during the checkout round trip, never overwritten. Index 0 of
	// BuyerForms and of Continuations is authoritative: a redirect initiated
	// by the first attempt completes with the first attempt's data.
	BuyerForms     []map[string]string `json:"buyer_forms,omitempty"`
	TransactionIDs []string            `json:"transaction_ids,omitempty"`
	Continuations  []map[string]string `json:"continuations,omitempty"`
}

// TotalBookingFee returns the combined platform and organiser fee
func (w *Workspace) TotalBookingFee() decimal.Decimal {
	return w.BookingFee.Add(w.OrganiserBookingFee)
}

// ChargeAmount is what the gateway is asked to capture: the order total plus
// the organiser's portion of the booking fee
func (w *Workspace) ChargeAmount() decimal.Decimal {
	return w.OrderTotal.Add(w.OrganiserBookingFee)
}

// Expired reports whether the business expiry has passed
func (w *Workspace) Expired(now time.Time) bool {
	return now.After(w.ExpiresAt)
}

// FirstBuyerForm returns the buyer submission recorded by the first completed
// form post. Later re-submissions append but never override it.
func (w *Workspace) FirstBuyerForm() map[string]string {
	if len(w.BuyerForms) == 0 {
		return nil
	}
	return w.BuyerForms[0]
}

// FirstTransactionID returns the first recorded gateway transaction reference
func (w *Workspace) FirstTransactionID() string {
	if len(w.TransactionIDs) == 0 {
		return ""
	}
	return w.TransactionIDs[0]
}

// FirstContinuation returns the continuation data recorded by the attempt that
// initiated the redirect. Later attempts append but never override it.
func (w *Workspace) FirstContinuation() map[string]string {
	if len(w.Continuations) == 0 {
		return nil
	}
	return w.Continuations[0]
}
