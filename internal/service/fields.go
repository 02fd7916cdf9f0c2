package service

import "fmt"

// Form field names shared between rule construction at workspace-open time
// and replay at submission and commit time.
const (
	FieldBuyerFirstName = "order_first_name"
	FieldBuyerLastName  = "order_last_name"
	FieldBuyerEmail     = "order_email"
	FieldMirrorBuyer    = "mirror_buyer_info"
	FieldPaymentToken   = "payment_token"
)

// Card fields are never persisted into the workspace
var scrubbedFields = []string{"card-number", "card-cvc"}

func ticketQuantityField(ticketTypeID int64) string {
	return fmt.Sprintf("ticket_%d", ticketTypeID)
}

func attendeeFirstNameField(slot int, ticketTypeID int64) string {
	return fmt.Sprintf("ticket_holder_first_name.%d.%d", slot, ticketTypeID)
}

func attendeeLastNameField(slot int, ticketTypeID int64) string {
	return fmt.Sprintf("ticket_holder_last_name.%d.%d", slot, ticketTypeID)
}

func attendeeEmailField(slot int, ticketTypeID int64) string {
	return fmt.Sprintf("ticket_holder_email.%d.%d", slot, ticketTypeID)
}

func questionAnswerField(ticketTypeID int64, slot int, questionID int64) string {
	return fmt.Sprintf("ticket_holder_questions.%d.%d.%d", ticketTypeID, slot, questionID)
}
